package cosmos

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"cosmossdk.io/math"
	"github.com/cosmos/btcutil/bech32"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/interchainlabs/eureka-relayer/internal/codec"
	"github.com/interchainlabs/eureka-relayer/internal/relay"
)

// type URLs for the eureka (channel v2) messages, which no dependency of
// ours generates Go types for
const (
	typeURLMsgRecvPacket   = "/ibc.core.channel.v2.MsgRecvPacket"
	typeURLMsgAcknowledge  = "/ibc.core.channel.v2.MsgAcknowledgement"
	typeURLMsgTimeout      = "/ibc.core.channel.v2.MsgTimeout"
	typeURLMsgUpdateClient = "/ibc.core.client.v1.MsgUpdateClient"
	typeURLMsgCreateClient = "/ibc.core.client.v1.MsgCreateClient"

	codeIncorrectSequence = 32
)

// signer holds the relayer's account key and its bech32 address.
type signer struct {
	priv    *secp256k1.PrivKey
	address string

	// account identity on chain, lazily loaded and resynced on sequence
	// conflicts
	accountNumber uint64
	sequence      uint64
	loaded        bool
}

func newSigner(hexKey, prefix string) (*signer, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("signer key is not hex: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("signer key must be 32 bytes, got %d", len(raw))
	}
	priv := &secp256k1.PrivKey{Key: raw}
	addr, err := bech32Address(prefix, priv.PubKey().Address().Bytes())
	if err != nil {
		return nil, err
	}
	return &signer{priv: priv, address: addr}, nil
}

func bech32Address(prefix string, addr []byte) (string, error) {
	converted, err := bech32.ConvertBits(addr, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert address bits: %w", err)
	}
	encoded, err := bech32.Encode(prefix, converted)
	if err != nil {
		return "", fmt.Errorf("bech32 encode address: %w", err)
	}
	return encoded, nil
}

// EncodeRelayTx renders the relay transaction into a TxBody: the client
// update first when present, then the packet messages in order.
func (c *Client) EncodeRelayTx(tx *relay.RelayTx) ([]byte, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("chain %s has no signer configured", c.cfg.ChainID)
	}
	var msgs []*codectypes.Any
	if tx.UpdateClient != nil {
		update := &clienttypes.MsgUpdateClient{
			ClientId: tx.ClientID,
			ClientMessage: &codectypes.Any{
				TypeUrl: clientMessageTypeURL(tx.UpdateClient.ProofType),
				Value:   tx.UpdateClient.Update,
			},
			Signer: c.signer.address,
		}
		bz, err := update.Marshal()
		if err != nil {
			return nil, fmt.Errorf("marshal client update: %w", err)
		}
		msgs = append(msgs, &codectypes.Any{TypeUrl: typeURLMsgUpdateClient, Value: bz})
	}
	for _, m := range tx.Msgs {
		typeURL, bz, err := c.encodeRelayMsg(&m)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, &codectypes.Any{TypeUrl: typeURL, Value: bz})
	}
	body := &txtypes.TxBody{Messages: msgs}
	bz, err := body.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal tx body: %w", err)
	}
	return bz, nil
}

func clientMessageTypeURL(pt relay.ProofType) string {
	switch pt {
	case relay.ProofTypeGroth16, relay.ProofTypePlonk:
		return "/ibc.lightclients.groth16.v1.ClientMessage"
	case relay.ProofTypeMock:
		return "/ibc.lightclients.mock.v1.ClientMessage"
	default:
		return "/ibc.lightclients.tendermint.v1.Header"
	}
}

// encodeRelayMsg builds the v2 channel message for one packet operation:
// packet field 1, proof field 2, proof height field 3, signer last, with the
// acknowledgement list in between for ack messages.
func (c *Client) encodeRelayMsg(m *relay.RelayMsg) (string, []byte, error) {
	packetBytes := codec.MarshalPacketProto(m.Packet)

	var msg []byte
	msg = protowire.AppendTag(msg, 1, protowire.BytesType)
	msg = protowire.AppendBytes(msg, packetBytes)
	msg = protowire.AppendTag(msg, 2, protowire.BytesType)
	msg = protowire.AppendBytes(msg, m.Proof.Proof)
	msg = protowire.AppendTag(msg, 3, protowire.VarintType)
	msg = protowire.AppendVarint(msg, m.Proof.Height)

	switch m.Action {
	case relay.ActionRecv:
		msg = protowire.AppendTag(msg, 4, protowire.BytesType)
		msg = protowire.AppendString(msg, c.signer.address)
		return typeURLMsgRecvPacket, msg, nil
	case relay.ActionAck:
		var ackList []byte
		for _, ack := range m.Acks {
			ackList = protowire.AppendTag(ackList, 1, protowire.BytesType)
			ackList = protowire.AppendBytes(ackList, ack)
		}
		msg = protowire.AppendTag(msg, 4, protowire.BytesType)
		msg = protowire.AppendBytes(msg, ackList)
		msg = protowire.AppendTag(msg, 5, protowire.BytesType)
		msg = protowire.AppendString(msg, c.signer.address)
		return typeURLMsgAcknowledge, msg, nil
	case relay.ActionTimeout:
		msg = protowire.AppendTag(msg, 4, protowire.BytesType)
		msg = protowire.AppendString(msg, c.signer.address)
		return typeURLMsgTimeout, msg, nil
	default:
		return "", nil, fmt.Errorf("unknown relay action %q", m.Action)
	}
}

// EncodeCreateClientTx renders a MsgCreateClient body for the counterparty's
// initial states.
func (c *Client) EncodeCreateClientTx(clientState, consensusState []byte, params map[string]string) ([]byte, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("chain %s has no signer configured", c.cfg.ChainID)
	}
	clientType := params["client_type"]
	if clientType == "" {
		clientType = "07-tendermint"
	}
	lightClient := strings.TrimLeft(clientType, "0123456789-")
	msg := &clienttypes.MsgCreateClient{
		ClientState: &codectypes.Any{
			TypeUrl: fmt.Sprintf("/ibc.lightclients.%s.v1.ClientState", lightClient),
			Value:   clientState,
		},
		ConsensusState: &codectypes.Any{
			TypeUrl: fmt.Sprintf("/ibc.lightclients.%s.v1.ConsensusState", lightClient),
			Value:   consensusState,
		},
		Signer: c.signer.address,
	}
	bz, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal create client: %w", err)
	}
	body := &txtypes.TxBody{
		Messages: []*codectypes.Any{{TypeUrl: typeURLMsgCreateClient, Value: bz}},
	}
	return body.Marshal()
}

// SubmitTx signs the relay transaction with the current account sequence,
// broadcasts it and waits for inclusion. A sequence mismatch resyncs the
// account and surfaces ErrSignerNonceConflict for the orchestrator to retry.
func (c *Client) SubmitTx(ctx context.Context, tx *relay.RelayTx) (*relay.SubmitResult, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("chain %s has no signer configured", c.cfg.ChainID)
	}
	body, err := c.EncodeRelayTx(tx)
	if err != nil {
		return nil, err
	}

	c.txMu.Lock()
	defer c.txMu.Unlock()

	if !c.signer.loaded {
		if err := c.resyncAccount(ctx); err != nil {
			return nil, err
		}
	}

	raw, err := c.signTx(body)
	if err != nil {
		return nil, err
	}

	res, err := c.rpc.BroadcastTxSync(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("broadcast tx: %w", err)
	}
	if res.Code != 0 {
		if res.Code == codeIncorrectSequence {
			c.signer.loaded = false
			return nil, fmt.Errorf("account sequence mismatch (log: %s): %w", res.Log, relay.ErrSignerNonceConflict)
		}
		if strings.Contains(res.Log, "packet commitment") || strings.Contains(res.Log, "already received") {
			return nil, fmt.Errorf("checktx rejected (log: %s): %w", res.Log, relay.ErrSubmissionRaced)
		}
		return nil, fmt.Errorf("checktx failed with code %d: %s", res.Code, res.Log)
	}
	c.signer.sequence++

	result, err := c.waitInclusion(ctx, res.Hash)
	if err != nil {
		return nil, err
	}
	c.logger.Info("relay tx included",
		zap.String("chain_id", c.cfg.ChainID),
		zap.String("tx_hash", result.TxHash),
		zap.Uint64("height", result.Height))
	return result, nil
}

func (c *Client) waitInclusion(ctx context.Context, hash []byte) (*relay.SubmitResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		res, err := c.rpc.Tx(waitCtx, hash, false)
		if err == nil {
			if res.TxResult.Code != 0 {
				// execution failure after inclusion: most often a competing
				// relayer landed the same packet first
				return nil, fmt.Errorf("tx %X failed on-chain with code %d (log: %s): %w",
					hash, res.TxResult.Code, res.TxResult.Log, relay.ErrSubmissionRaced)
			}
			return &relay.SubmitResult{TxHash: fmt.Sprintf("%X", hash), Height: uint64(res.Height)}, nil
		}
		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("tx %X not included within %s: %w", hash, c.cfg.ConfirmTimeout, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

// signTx wraps the body into a signed TxRaw (direct sign mode).
func (c *Client) signTx(body []byte) ([]byte, error) {
	authInfo, err := c.buildAuthInfo()
	if err != nil {
		return nil, err
	}

	signDoc := &txtypes.SignDoc{
		BodyBytes:     body,
		AuthInfoBytes: authInfo,
		ChainId:       c.cfg.ChainID,
		AccountNumber: c.signer.accountNumber,
	}
	signBytes, err := signDoc.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal sign doc: %w", err)
	}

	sig, err := c.signer.priv.Sign(signBytes)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	raw := &txtypes.TxRaw{
		BodyBytes:     body,
		AuthInfoBytes: authInfo,
		Signatures:    [][]byte{sig},
	}
	return raw.Marshal()
}

func (c *Client) buildAuthInfo() ([]byte, error) {
	pubKey, err := codectypes.NewAnyWithValue(c.signer.priv.PubKey())
	if err != nil {
		return nil, fmt.Errorf("pack signer pubkey: %w", err)
	}
	amount, ok := math.NewIntFromString(c.cfg.GasAmount)
	if !ok {
		return nil, fmt.Errorf("gas amount %q is not an integer", c.cfg.GasAmount)
	}
	authInfo := &txtypes.AuthInfo{
		SignerInfos: []*txtypes.SignerInfo{{
			PublicKey: pubKey,
			ModeInfo: &txtypes.ModeInfo{
				Sum: &txtypes.ModeInfo_Single_{
					Single: &txtypes.ModeInfo_Single{Mode: signing.SignMode_SIGN_MODE_DIRECT},
				},
			},
			Sequence: c.signer.sequence,
		}},
		Fee: &txtypes.Fee{
			Amount:   sdktypes.Coins{sdktypes.Coin{Denom: c.cfg.GasDenom, Amount: amount}},
			GasLimit: c.cfg.GasLimit,
		},
	}
	return authInfo.Marshal()
}
