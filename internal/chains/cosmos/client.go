// Package cosmos adapts a CometBFT/Cosmos-SDK chain to the relay
// orchestrator: state queries over ABCI, packet event extraction from tx
// events, and direct-sign transaction submission.
package cosmos

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	rpcclient "github.com/cometbft/cometbft/rpc/client"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"go.uber.org/zap"

	"github.com/interchainlabs/eureka-relayer/internal/codec"
	"github.com/interchainlabs/eureka-relayer/internal/relay"
)

const (
	ibcStorePath = "store/ibc/key"

	// event attribute carrying the proto-encoded packet, as emitted by the
	// v2 channel keeper
	attrEncodedPacketHex = "encoded_packet_hex"
	attrEncodedAckHex    = "encoded_acknowledgement_hex"

	eventTypeSendPacket = "send_packet"
	eventTypeWriteAck   = "write_acknowledgement"
)

// Config holds the connection and signing parameters of one cosmos chain.
type Config struct {
	ChainID       string
	RPCAddr       string
	AccountPrefix string
	// SignerKey is the hex-encoded secp256k1 private key of the relayer
	// account.
	SignerKey string
	GasLimit  uint64
	GasDenom  string
	GasAmount string
	// ConfirmTimeout bounds the wait for a broadcast tx to land in a block.
	ConfirmTimeout time.Duration
}

// Client implements relay.ChainClient and relay.EventSource for a cosmos
// chain.
type Client struct {
	cfg    Config
	rpc    *rpchttp.HTTP
	logger *zap.Logger

	signer *signer

	// txMu serializes submission so account sequences are consumed in order.
	txMu sync.Mutex
}

// NewClient dials the RPC endpoint and derives the signer account from the
// configured key. The websocket is started eagerly: event subscription does
// not work without it.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	rpc, err := rpchttp.New(cfg.RPCAddr, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("dial cometbft rpc %s: %w", cfg.RPCAddr, err)
	}
	if err := rpc.Start(); err != nil {
		return nil, fmt.Errorf("start cometbft websocket: %w", err)
	}

	var sg *signer
	if cfg.SignerKey != "" {
		sg, err = newSigner(cfg.SignerKey, cfg.AccountPrefix)
		if err != nil {
			return nil, fmt.Errorf("load signer key: %w", err)
		}
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 30 * time.Second
	}
	return &Client{cfg: cfg, rpc: rpc, logger: logger, signer: sg}, nil
}

var (
	_ relay.ChainClient = (*Client)(nil)
	_ relay.EventSource = (*Client)(nil)
)

func (c *Client) ChainID() string         { return c.cfg.ChainID }
func (c *Client) Family() codec.Family    { return codec.FamilyCosmos }
func (c *Client) ContractAddress() string { return "" }

func (c *Client) LatestHeight(ctx context.Context) (uint64, error) {
	status, err := c.rpc.Status(ctx)
	if err != nil {
		return 0, fmt.Errorf("query node status: %w", err)
	}
	return uint64(status.SyncInfo.LatestBlockHeight), nil
}

func (c *Client) HeaderTime(ctx context.Context, height uint64) (time.Time, error) {
	h := int64(height)
	res, err := c.rpc.Header(ctx, &h)
	if err != nil {
		return time.Time{}, fmt.Errorf("query header at %d: %w", height, err)
	}
	return res.Header.Time, nil
}

// storeQuery reads a raw value from the IBC store without a proof.
func (c *Client) storeQuery(ctx context.Context, key string) ([]byte, error) {
	res, err := c.rpc.ABCIQueryWithOptions(ctx, ibcStorePath, []byte(key), rpcclient.ABCIQueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("abci query %q: %w", key, err)
	}
	if res.Response.IsErr() {
		return nil, fmt.Errorf("abci query %q failed with code %d: %s", key, res.Response.Code, res.Response.Log)
	}
	return res.Response.Value, nil
}

func (c *Client) PacketCommitment(ctx context.Context, clientID string, sequence uint64) ([]byte, error) {
	value, err := c.storeQuery(ctx, codec.DerivePath(codec.RoleCommitment, clientID, sequence))
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, nil
	}
	return value, nil
}

func (c *Client) HasPacketReceipt(ctx context.Context, clientID string, sequence uint64) (bool, error) {
	value, err := c.storeQuery(ctx, codec.DerivePath(codec.RoleReceipt, clientID, sequence))
	if err != nil {
		return false, err
	}
	return len(value) > 0, nil
}

func (c *Client) HasPacketAcknowledgement(ctx context.Context, clientID string, sequence uint64) (bool, error) {
	value, err := c.storeQuery(ctx, codec.DerivePath(codec.RoleAcknowledgement, clientID, sequence))
	if err != nil {
		return false, err
	}
	return len(value) > 0, nil
}

// ClientHeight reads the stored client state of clientID and extracts its
// latest height. The client state layout is the one this relayer writes on
// client creation (field 3 holds the height).
func (c *Client) ClientHeight(ctx context.Context, clientID string) (uint64, error) {
	value, err := c.storeQuery(ctx, fmt.Sprintf("clients/%s/clientState", clientID))
	if err != nil {
		return 0, err
	}
	if len(value) == 0 {
		return 0, fmt.Errorf("client %s not found on %s", clientID, c.cfg.ChainID)
	}
	height, err := clientStateLatestHeight(value)
	if err != nil {
		return 0, fmt.Errorf("decode client state of %s: %w", clientID, err)
	}
	return height, nil
}

// PacketEvents loads the named transactions and extracts their packet
// lifecycle events.
func (c *Client) PacketEvents(ctx context.Context, txIDs []string) ([]relay.PacketEvent, error) {
	var out []relay.PacketEvent
	for _, id := range txIDs {
		hash, err := hex.DecodeString(strings.TrimPrefix(id, "0x"))
		if err != nil {
			return nil, fmt.Errorf("tx id %q is not hex: %w", id, err)
		}
		res, err := c.rpc.Tx(ctx, hash, false)
		if err != nil {
			return nil, fmt.Errorf("load tx %s: %w", id, err)
		}
		events, err := extractPacketEvents(res.TxResult.Events, uint64(res.Height), id)
		if err != nil {
			return nil, fmt.Errorf("parse events of tx %s: %w", id, err)
		}
		out = append(out, events...)
	}
	return out, nil
}

// SubscribeEvents streams send and write-ack events over the node's
// websocket. The returned channel closes when the context is cancelled.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan relay.PacketEvent, error) {
	subscriber := fmt.Sprintf("eureka-relayer-%s", c.cfg.ChainID)
	txEvents, err := c.rpc.Subscribe(ctx, subscriber, "tm.event='Tx'")
	if err != nil {
		return nil, fmt.Errorf("subscribe to tx events: %w", err)
	}

	out := make(chan relay.PacketEvent)
	go func() {
		defer close(out)
		defer func() {
			unsubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.rpc.Unsubscribe(unsubCtx, subscriber, "tm.event='Tx'"); err != nil {
				c.logger.Warn("unsubscribe failed", zap.Error(err))
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-txEvents:
				if !ok {
					return
				}
				c.forwardTxEvent(ctx, ev, out)
			}
		}
	}()
	return out, nil
}

func (c *Client) forwardTxEvent(ctx context.Context, ev coretypes.ResultEvent, out chan<- relay.PacketEvent) {
	txData, ok := ev.Data.(cmttypes.EventDataTx)
	if !ok {
		return
	}
	events, err := extractPacketEvents(txData.Result.Events, uint64(txData.Height), "")
	if err != nil {
		c.logger.Warn("dropping malformed packet event", zap.Error(err))
		return
	}
	for _, pe := range events {
		select {
		case out <- pe:
		case <-ctx.Done():
			return
		}
	}
}

// extractPacketEvents converts ABCI events into relay packet events. Events
// of other modules are skipped; a packet attribute that fails to decode is
// an error, silence would hide relayable packets.
func extractPacketEvents(events []abcitypes.Event, height uint64, txHash string) ([]relay.PacketEvent, error) {
	var out []relay.PacketEvent
	for _, ev := range events {
		var kind relay.EventKind
		switch ev.Type {
		case eventTypeSendPacket:
			kind = relay.EventSendPacket
		case eventTypeWriteAck:
			kind = relay.EventWriteAcknowledgement
		default:
			continue
		}

		var packet *codec.Packet
		var acks [][]byte
		for _, attr := range ev.Attributes {
			switch attr.Key {
			case attrEncodedPacketHex:
				bz, err := hex.DecodeString(attr.Value)
				if err != nil {
					return nil, fmt.Errorf("%s attribute is not hex: %w", attrEncodedPacketHex, err)
				}
				pkt, err := codec.UnmarshalPacketProto(bz)
				if err != nil {
					return nil, fmt.Errorf("decode packet from %s event: %w", ev.Type, err)
				}
				packet = &pkt
			case attrEncodedAckHex:
				bz, err := hex.DecodeString(attr.Value)
				if err != nil {
					return nil, fmt.Errorf("%s attribute is not hex: %w", attrEncodedAckHex, err)
				}
				acks = append(acks, bz)
			}
		}
		if packet == nil {
			return nil, fmt.Errorf("%s event without %s attribute", ev.Type, attrEncodedPacketHex)
		}
		out = append(out, relay.PacketEvent{
			Kind:   kind,
			Packet: *packet,
			Acks:   acks,
			Height: height,
			TxHash: txHash,
		})
	}
	return out, nil
}

// Close stops the websocket connection.
func (c *Client) Close() error {
	return c.rpc.Stop()
}
