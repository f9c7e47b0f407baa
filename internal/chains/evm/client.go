// Package evm adapts an Ethereum chain running the IBC router contract to
// the relay orchestrator: log-based event discovery, commitment queries via
// eth_call, and EIP-155 signed multicall submission.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/interchainlabs/eureka-relayer/internal/codec"
	"github.com/interchainlabs/eureka-relayer/internal/relay"
)

// Router event and method signatures. Topic hashes are derived from the
// canonical forms, which must match the deployed contract.
const (
	sigSendPacket = "SendPacket((uint64,string,string,uint64,(string,string,string,string,bytes)[]))"
	sigWriteAck   = "WriteAcknowledgement((uint64,string,string,uint64,(string,string,string,string,bytes)[]),bytes[])"

	methodGetCommitment = "getCommitment(bytes32)"
	methodClientHeight  = "getClientHeight(string)"
)

var (
	topicSendPacket = crypto.Keccak256Hash([]byte(sigSendPacket))
	topicWriteAck   = crypto.Keccak256Hash([]byte(sigWriteAck))

	selGetCommitment = crypto.Keccak256([]byte(methodGetCommitment))[:4]
	selClientHeight  = crypto.Keccak256([]byte(methodClientHeight))[:4]

	stringArgs = must(abi.NewType("string", "", nil))
	uint64Args = must(abi.NewType("uint64", "", nil))
)

func must(t abi.Type, err error) abi.Type {
	if err != nil {
		panic(err)
	}
	return t
}

// Config holds the connection and signing parameters of one EVM chain.
type Config struct {
	ChainID  string
	RPCAddr  string
	Contract string
	// SignerKey is the hex-encoded secp256k1 private key of the relayer
	// account.
	SignerKey string
	GasLimit  uint64
	// PollInterval paces the event log scan.
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
}

// Client implements relay.ChainClient and relay.EventSource over an EVM
// node.
type Client struct {
	cfg      Config
	eth      *ethclient.Client
	contract common.Address
	logger   *zap.Logger

	key      *ecdsa.PrivateKey
	sender   common.Address
	evmChain *big.Int

	// txMu serializes signing so nonces are consumed in order; nonce is the
	// next one to use, resynced from the node on conflicts.
	txMu   sync.Mutex
	nonce  uint64
	synced bool
}

// NewClient dials the node and verifies the chain id. The signer key is
// optional for read-only use.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.RPCAddr)
	if err != nil {
		return nil, fmt.Errorf("dial evm rpc %s: %w", cfg.RPCAddr, err)
	}
	eth := ethclient.NewClient(rpcClient)
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("query chain id: %w", err)
	}

	c := &Client{
		cfg:      cfg,
		eth:      eth,
		contract: common.HexToAddress(cfg.Contract),
		logger:   logger,
		evmChain: chainID,
	}
	if cfg.SignerKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.SignerKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("load signer key: %w", err)
		}
		c.key = key
		c.sender = crypto.PubkeyToAddress(key.PublicKey)
	}
	if c.cfg.PollInterval <= 0 {
		c.cfg.PollInterval = 5 * time.Second
	}
	if c.cfg.ConfirmTimeout <= 0 {
		c.cfg.ConfirmTimeout = 2 * time.Minute
	}
	return c, nil
}

var (
	_ relay.ChainClient = (*Client)(nil)
	_ relay.EventSource = (*Client)(nil)
)

func (c *Client) ChainID() string         { return c.cfg.ChainID }
func (c *Client) Family() codec.Family    { return codec.FamilyEVM }
func (c *Client) ContractAddress() string { return c.contract.Hex() }

func (c *Client) LatestHeight(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

func (c *Client) HeaderTime(ctx context.Context, height uint64) (time.Time, error) {
	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(height))
	if err != nil {
		return time.Time{}, fmt.Errorf("header at %d: %w", height, err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// commitment reads the router's commitment mapping for the hashed path. The
// contract stores packet commitments, receipts and acknowledgement hashes in
// one mapping, zero meaning absent.
func (c *Client) commitment(ctx context.Context, path string) ([32]byte, error) {
	key := codec.PathKey(path, codec.FamilyEVM)
	data := append(append([]byte{}, selGetCommitment...), key[:]...)
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return [32]byte{}, fmt.Errorf("call getCommitment for %q: %w", path, err)
	}
	if len(out) != 32 {
		return [32]byte{}, fmt.Errorf("getCommitment returned %d bytes, want 32", len(out))
	}
	return [32]byte(out), nil
}

func (c *Client) PacketCommitment(ctx context.Context, clientID string, sequence uint64) ([]byte, error) {
	value, err := c.commitment(ctx, codec.DerivePath(codec.RoleCommitment, clientID, sequence))
	if err != nil {
		return nil, err
	}
	if value == ([32]byte{}) {
		return nil, nil
	}
	return value[:], nil
}

func (c *Client) HasPacketReceipt(ctx context.Context, clientID string, sequence uint64) (bool, error) {
	value, err := c.commitment(ctx, codec.DerivePath(codec.RoleReceipt, clientID, sequence))
	if err != nil {
		return false, err
	}
	return value != [32]byte{}, nil
}

func (c *Client) HasPacketAcknowledgement(ctx context.Context, clientID string, sequence uint64) (bool, error) {
	value, err := c.commitment(ctx, codec.DerivePath(codec.RoleAcknowledgement, clientID, sequence))
	if err != nil {
		return false, err
	}
	return value != [32]byte{}, nil
}

func (c *Client) ClientHeight(ctx context.Context, clientID string) (uint64, error) {
	args := abi.Arguments{{Type: stringArgs}}
	packed, err := args.Pack(clientID)
	if err != nil {
		return 0, fmt.Errorf("pack client id: %w", err)
	}
	data := append(append([]byte{}, selClientHeight...), packed...)
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("call getClientHeight(%s): %w", clientID, err)
	}
	values, err := abi.Arguments{{Type: uint64Args}}.Unpack(out)
	if err != nil {
		return 0, fmt.Errorf("decode client height: %w", err)
	}
	height, ok := values[0].(uint64)
	if !ok {
		return 0, fmt.Errorf("client height is not uint64")
	}
	return height, nil
}

// PacketEvents loads the given transaction receipts and decodes their router
// logs.
func (c *Client) PacketEvents(ctx context.Context, txIDs []string) ([]relay.PacketEvent, error) {
	var out []relay.PacketEvent
	for _, id := range txIDs {
		receipt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(id))
		if err != nil {
			return nil, fmt.Errorf("receipt of %s: %w", id, err)
		}
		for _, log := range receipt.Logs {
			ev, ok, err := c.decodeLog(log)
			if err != nil {
				return nil, fmt.Errorf("decode log of %s: %w", id, err)
			}
			if ok {
				out = append(out, ev)
			}
		}
	}
	return out, nil
}

func (c *Client) decodeLog(log *types.Log) (relay.PacketEvent, bool, error) {
	if log.Address != c.contract || len(log.Topics) == 0 {
		return relay.PacketEvent{}, false, nil
	}
	switch log.Topics[0] {
	case topicSendPacket:
		packet, err := codec.DecodePacketABI(log.Data)
		if err != nil {
			return relay.PacketEvent{}, false, err
		}
		return relay.PacketEvent{
			Kind:   relay.EventSendPacket,
			Packet: packet,
			Height: log.BlockNumber,
			TxHash: log.TxHash.Hex(),
		}, true, nil
	case topicWriteAck:
		packet, acks, err := codec.DecodeWriteAckEventABI(log.Data)
		if err != nil {
			return relay.PacketEvent{}, false, err
		}
		return relay.PacketEvent{
			Kind:   relay.EventWriteAcknowledgement,
			Packet: packet,
			Acks:   acks,
			Height: log.BlockNumber,
			TxHash: log.TxHash.Hex(),
		}, true, nil
	default:
		return relay.PacketEvent{}, false, nil
	}
}

// SubscribeEvents polls the router's logs. Polling is used instead of a
// websocket subscription so plain HTTP endpoints work; the scan resumes from
// the last seen block on every tick.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan relay.PacketEvent, error) {
	from, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("query head for log scan: %w", err)
	}

	out := make(chan relay.PacketEvent)
	go func() {
		defer close(out)
		ticker := time.NewTicker(c.cfg.PollInterval)
		defer ticker.Stop()
		next := from + 1
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				head, err := c.eth.BlockNumber(ctx)
				if err != nil {
					c.logger.Warn("log scan head query failed", zap.Error(err))
					continue
				}
				if head < next {
					continue
				}
				logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
					FromBlock: new(big.Int).SetUint64(next),
					ToBlock:   new(big.Int).SetUint64(head),
					Addresses: []common.Address{c.contract},
					Topics:    [][]common.Hash{{topicSendPacket, topicWriteAck}},
				})
				if err != nil {
					c.logger.Warn("log scan failed", zap.Uint64("from", next), zap.Uint64("to", head), zap.Error(err))
					continue
				}
				for i := range logs {
					ev, ok, err := c.decodeLog(&logs[i])
					if err != nil {
						c.logger.Warn("dropping undecodable router log",
							zap.String("tx_hash", logs[i].TxHash.Hex()), zap.Error(err))
						continue
					}
					if !ok {
						continue
					}
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
				next = head + 1
			}
		}
	}()
	return out, nil
}
