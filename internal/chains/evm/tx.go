package evm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/interchainlabs/eureka-relayer/internal/codec"
	"github.com/interchainlabs/eureka-relayer/internal/relay"
)

const (
	sigUpdateClient  = "updateClient(string,bytes)"
	sigRecvPacket    = "recvPacket(bytes,bytes,uint64)"
	sigAckPacket     = "ackPacket(bytes,bytes[],bytes,uint64)"
	sigTimeoutPacket = "timeoutPacket(bytes,bytes,uint64)"
	sigMulticall     = "multicall(bytes[])"
	sigCreateClient  = "createClient(bytes,bytes)"
)

var (
	selUpdateClient  = crypto.Keccak256([]byte(sigUpdateClient))[:4]
	selRecvPacket    = crypto.Keccak256([]byte(sigRecvPacket))[:4]
	selAckPacket     = crypto.Keccak256([]byte(sigAckPacket))[:4]
	selTimeoutPacket = crypto.Keccak256([]byte(sigTimeoutPacket))[:4]
	selMulticall     = crypto.Keccak256([]byte(sigMulticall))[:4]
	selCreateClient  = crypto.Keccak256([]byte(sigCreateClient))[:4]

	bytesType      = must(abi.NewType("bytes", "", nil))
	bytesArrayType = must(abi.NewType("bytes[]", "", nil))
)

func calldata(selector []byte, args abi.Arguments, values ...any) ([]byte, error) {
	packed, err := args.Pack(values...)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, selector...), packed...), nil
}

// EncodeRelayTx renders the transaction as router calldata: a single call
// when one message suffices, a multicall otherwise, with the client update
// first.
func (c *Client) EncodeRelayTx(tx *relay.RelayTx) ([]byte, error) {
	var calls [][]byte
	if tx.UpdateClient != nil {
		call, err := calldata(selUpdateClient,
			abi.Arguments{{Type: stringArgs}, {Type: bytesType}},
			tx.ClientID, tx.UpdateClient.Update)
		if err != nil {
			return nil, fmt.Errorf("encode updateClient: %w", err)
		}
		calls = append(calls, call)
	}
	for i := range tx.Msgs {
		call, err := c.encodeRelayCall(&tx.Msgs[i])
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("relay tx carries no messages")
	}
	if len(calls) == 1 {
		return calls[0], nil
	}
	return calldata(selMulticall, abi.Arguments{{Type: bytesArrayType}}, calls)
}

func (c *Client) encodeRelayCall(m *relay.RelayMsg) ([]byte, error) {
	packet, err := codec.EncodePacketABI(m.Packet)
	if err != nil {
		return nil, fmt.Errorf("encode packet %d: %w", m.Packet.Sequence, err)
	}
	switch m.Action {
	case relay.ActionRecv:
		return calldata(selRecvPacket,
			abi.Arguments{{Type: bytesType}, {Type: bytesType}, {Type: uint64Args}},
			packet, m.Proof.Proof, m.Proof.Height)
	case relay.ActionAck:
		acks := m.Acks
		if acks == nil {
			acks = [][]byte{}
		}
		return calldata(selAckPacket,
			abi.Arguments{{Type: bytesType}, {Type: bytesArrayType}, {Type: bytesType}, {Type: uint64Args}},
			packet, acks, m.Proof.Proof, m.Proof.Height)
	case relay.ActionTimeout:
		return calldata(selTimeoutPacket,
			abi.Arguments{{Type: bytesType}, {Type: bytesType}, {Type: uint64Args}},
			packet, m.Proof.Proof, m.Proof.Height)
	default:
		return nil, fmt.Errorf("unknown relay action %q", m.Action)
	}
}

// EncodeCreateClientTx renders a createClient call for the counterparty's
// initial states.
func (c *Client) EncodeCreateClientTx(clientState, consensusState []byte, _ map[string]string) ([]byte, error) {
	return calldata(selCreateClient,
		abi.Arguments{{Type: bytesType}, {Type: bytesType}},
		clientState, consensusState)
}

// SubmitTx signs the calldata with the next nonce and waits for the receipt.
// A nonce that was consumed elsewhere resyncs from the node and surfaces
// ErrSignerNonceConflict.
func (c *Client) SubmitTx(ctx context.Context, tx *relay.RelayTx) (*relay.SubmitResult, error) {
	if c.key == nil {
		return nil, fmt.Errorf("chain %s has no signer configured", c.cfg.ChainID)
	}
	data, err := c.EncodeRelayTx(tx)
	if err != nil {
		return nil, err
	}

	c.txMu.Lock()
	defer c.txMu.Unlock()

	if !c.synced {
		nonce, err := c.eth.PendingNonceAt(ctx, c.sender)
		if err != nil {
			return nil, fmt.Errorf("query pending nonce: %w", err)
		}
		c.nonce = nonce
		c.synced = true
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    c.nonce,
		To:       &c.contract,
		Gas:      c.cfg.GasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(unsigned, types.LatestSignerForChainID(c.evmChain), c.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		if isNonceError(err) {
			c.synced = false
			return nil, fmt.Errorf("nonce %d already used: %w", c.nonce, relay.ErrSignerNonceConflict)
		}
		return nil, fmt.Errorf("send tx: %w", err)
	}
	c.nonce++

	receipt, err := c.waitReceipt(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		// reverts on relay calls are nearly always a lost race with another
		// relayer; the orchestrator re-checks destination state on retry
		return nil, fmt.Errorf("tx %s reverted: %w", signed.Hash(), relay.ErrSubmissionRaced)
	}
	c.logger.Info("relay tx mined",
		zap.String("chain_id", c.cfg.ChainID),
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.Uint64("height", receipt.BlockNumber.Uint64()))
	return &relay.SubmitResult{
		TxHash: signed.Hash().Hex(),
		Height: receipt.BlockNumber.Uint64(),
	}, nil
}

func (c *Client) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		receipt, err := c.eth.TransactionReceipt(waitCtx, hash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("tx %s not mined within %s: %w", hash, c.cfg.ConfirmTimeout, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func isNonceError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "nonce too low") ||
		strings.Contains(msg, "replacement transaction underpriced") ||
		strings.Contains(msg, "already known")
}
