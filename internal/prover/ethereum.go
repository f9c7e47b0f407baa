package prover

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/interchainlabs/eureka-relayer/internal/codec"
	"github.com/interchainlabs/eureka-relayer/internal/relay"
)

// Ethereum produces Merkle-Patricia storage proofs for commitments held in
// the router contract, via eth_getProof.
type Ethereum struct {
	eth      *ethclient.Client
	geth     *gethclient.Client
	contract common.Address
	// ibcStoreSlot is the declared slot of the commitment mapping in the
	// router contract's storage layout.
	ibcStoreSlot uint64
	logger       *zap.Logger
}

// NewEthereum wraps an established RPC connection. The same connection backs
// both the standard and the geth-extension client.
func NewEthereum(rpcClient *rpc.Client, contract common.Address, ibcStoreSlot uint64, logger *zap.Logger) *Ethereum {
	return &Ethereum{
		eth:          ethclient.NewClient(rpcClient),
		geth:         gethclient.New(rpcClient),
		contract:     contract,
		ibcStoreSlot: ibcStoreSlot,
		logger:       logger,
	}
}

var _ relay.ProofProvider = (*Ethereum)(nil)

// storageProofEnvelope is the serialized form of an eth_getProof result: the
// account branch down to the contract plus the storage branch to the slot.
type storageProofEnvelope struct {
	Address      common.Address `json:"address"`
	StorageHash  common.Hash    `json:"storageHash"`
	AccountProof []string       `json:"accountProof"`
	Slot         common.Hash    `json:"slot"`
	Value        *big.Int       `json:"value"`
	StorageProof []string       `json:"storageProof"`
}

func (e *Ethereum) storageProof(ctx context.Context, path string, height uint64) (*storageProofEnvelope, error) {
	key := codec.PathKey(path, codec.FamilyEVM)
	slot := codec.EVMStorageSlot(key, e.ibcStoreSlot)

	res, err := e.geth.GetProof(ctx, e.contract, []string{slot.Hex()}, new(big.Int).SetUint64(height))
	if err != nil {
		return nil, classifyEthError(fmt.Errorf("eth_getProof for slot %s at height %d: %w", slot, height, err))
	}
	if len(res.StorageProof) != 1 {
		return nil, fmt.Errorf("eth_getProof returned %d storage proofs, want 1", len(res.StorageProof))
	}
	sp := res.StorageProof[0]
	return &storageProofEnvelope{
		Address:      e.contract,
		StorageHash:  res.StorageHash,
		AccountProof: res.AccountProof,
		Slot:         slot,
		Value:        sp.Value,
		StorageProof: sp.Proof,
	}, nil
}

// MembershipProof proves the commitment slot holds a non-zero value.
func (e *Ethereum) MembershipProof(ctx context.Context, path string, height uint64) (*relay.ProofBundle, error) {
	env, err := e.storageProof(ctx, path, height)
	if err != nil {
		return nil, err
	}
	if env.Value == nil || env.Value.Sign() == 0 {
		return nil, fmt.Errorf("commitment slot for %q empty at height %d: %w", path, height, relay.ErrPacketUnrelayable)
	}
	proof, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode storage proof: %w", err)
	}
	return &relay.ProofBundle{Height: height, Proof: proof, ProofType: relay.ProofTypeMerkle}, nil
}

// NonMembershipProof proves the slot is vacant (zero value with a valid
// exclusion branch).
func (e *Ethereum) NonMembershipProof(ctx context.Context, path string, height uint64) (*relay.ProofBundle, error) {
	env, err := e.storageProof(ctx, path, height)
	if err != nil {
		return nil, err
	}
	if env.Value != nil && env.Value.Sign() != 0 {
		return nil, fmt.Errorf("commitment slot for %q occupied at height %d: %w", path, height, relay.ErrPacketUnrelayable)
	}
	proof, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode storage proof: %w", err)
	}
	return &relay.ProofBundle{Height: height, Proof: proof, ProofType: relay.ProofTypeMerkle}, nil
}

// UpdateProof ships the RLP execution headers from just above the trusted
// height through the target height. The counterparty client walks the
// parent-hash chain.
func (e *Ethereum) UpdateProof(ctx context.Context, trustedHeight, targetHeight uint64) (*relay.UpdateProof, error) {
	if targetHeight <= trustedHeight {
		return nil, fmt.Errorf("target height %d not above trusted height %d: %w",
			targetHeight, trustedHeight, relay.ErrClientUpdateUnavailable)
	}
	var headers []rlp.RawValue
	for h := trustedHeight + 1; h <= targetHeight; h++ {
		header, err := e.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(h))
		if err != nil {
			return nil, classifyEthError(fmt.Errorf("header at %d: %w", h, err))
		}
		raw, err := rlp.EncodeToBytes(header)
		if err != nil {
			return nil, fmt.Errorf("rlp encode header at %d: %w", h, err)
		}
		headers = append(headers, raw)
	}
	update, err := rlp.EncodeToBytes(headers)
	if err != nil {
		return nil, fmt.Errorf("rlp encode header chain: %w", err)
	}
	return &relay.UpdateProof{
		TrustedHeight: trustedHeight,
		TargetHeight:  targetHeight,
		Update:        update,
		ProofType:     relay.ProofTypeMerkle,
	}, nil
}

// InitialClientState snapshots the chain head for client creation on the
// counterparty.
func (e *Ethereum) InitialClientState(ctx context.Context) ([]byte, []byte, error) {
	chainID, err := e.eth.ChainID(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("query chain id: %w", err)
	}
	header, err := e.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("query chain head: %w", err)
	}

	clientState, err := json.Marshal(map[string]any{
		"chain_id":       chainID.String(),
		"contract":       e.contract.Hex(),
		"ibc_store_slot": e.ibcStoreSlot,
		"latest_height":  header.Number.Uint64(),
	})
	if err != nil {
		return nil, nil, err
	}
	consensusState, err := json.Marshal(map[string]any{
		"timestamp":  header.Time,
		"state_root": header.Root.Hex(),
	})
	if err != nil {
		return nil, nil, err
	}
	return clientState, consensusState, nil
}

func classifyEthError(err error) error {
	if err == nil {
		return nil
	}
	// geth reports pruned state as "missing trie node"
	msg := err.Error()
	if strings.Contains(msg, "missing trie node") ||
		strings.Contains(msg, "header not found") ||
		strings.Contains(msg, "required historical state unavailable") {
		return fmt.Errorf("%v: %w", err, relay.ErrHeightNotAvailable)
	}
	return err
}
