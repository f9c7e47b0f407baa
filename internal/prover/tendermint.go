// Package prover implements the proof providers behind the relay state
// machine: raw Tendermint/ics23 merkle proofs, Ethereum storage proofs and
// SP1 succinct proofs obtained from an external prover service.
package prover

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cmtcrypto "github.com/cometbft/cometbft/proto/tendermint/crypto"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	rpcclient "github.com/cometbft/cometbft/rpc/client"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	cmttypes "github.com/cometbft/cometbft/types"
	ics23 "github.com/cosmos/ics23/go"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/interchainlabs/eureka-relayer/internal/relay"
)

const (
	// ibcStorePath is the ABCI query path of the IBC commitment store.
	ibcStorePath = "store/ibc/key"

	validatorsPageSize = 100
)

// Tendermint produces raw merkle proofs and light-block client updates from
// a CometBFT full node. Safe for concurrent use.
type Tendermint struct {
	client         *rpchttp.HTTP
	chainID        string
	trustingPeriod time.Duration
	logger         *zap.Logger
}

// NewTendermint dials the node's RPC endpoint. The connection is lazy; a
// dead endpoint surfaces on the first query.
func NewTendermint(rpcAddr, chainID string, trustingPeriod time.Duration, logger *zap.Logger) (*Tendermint, error) {
	client, err := rpchttp.New(rpcAddr, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("dial tendermint rpc %s: %w", rpcAddr, err)
	}
	return &Tendermint{
		client:         client,
		chainID:        chainID,
		trustingPeriod: trustingPeriod,
		logger:         logger,
	}, nil
}

var _ relay.ProofProvider = (*Tendermint)(nil)

// MembershipProof queries the IBC store with Prove set and requires a
// non-empty value under the path. The ABCI query runs at height-1 (the IAVL
// version committed into the app hash of the header at height) so the proof
// verifies against the consensus state at height.
func (t *Tendermint) MembershipProof(ctx context.Context, path string, height uint64) (*relay.ProofBundle, error) {
	resp, err := t.abciProofQuery(ctx, path, height)
	if err != nil {
		return nil, err
	}
	if len(resp.Value) == 0 {
		return nil, fmt.Errorf("no value under %q at height %d: %w", path, height, relay.ErrPacketUnrelayable)
	}
	proof, err := t.encodeProofOps(resp.ProofOps, true)
	if err != nil {
		return nil, fmt.Errorf("encode membership proof for %q: %w", path, err)
	}
	return &relay.ProofBundle{
		Height:    height,
		Proof:     proof,
		ProofType: relay.ProofTypeMerkle,
	}, nil
}

// NonMembershipProof requires the path to be vacant; used to prove a packet
// was never received.
func (t *Tendermint) NonMembershipProof(ctx context.Context, path string, height uint64) (*relay.ProofBundle, error) {
	resp, err := t.abciProofQuery(ctx, path, height)
	if err != nil {
		return nil, err
	}
	if len(resp.Value) != 0 {
		return nil, fmt.Errorf("value exists under %q at height %d: %w", path, height, relay.ErrPacketUnrelayable)
	}
	proof, err := t.encodeProofOps(resp.ProofOps, false)
	if err != nil {
		return nil, fmt.Errorf("encode non-membership proof for %q: %w", path, err)
	}
	return &relay.ProofBundle{
		Height:    height,
		Proof:     proof,
		ProofType: relay.ProofTypeMerkle,
	}, nil
}

func (t *Tendermint) abciProofQuery(ctx context.Context, path string, height uint64) (*abciResponseQuery, error) {
	// queries at the IAVL version, one below the consensus height
	if height <= 2 {
		return nil, fmt.Errorf("proof queries below height 3 are not supported")
	}
	queryHeight := int64(height) - 1

	res, err := t.client.ABCIQueryWithOptions(ctx, ibcStorePath, []byte(path), rpcclient.ABCIQueryOptions{
		Height: queryHeight,
		Prove:  true,
	})
	if err != nil {
		return nil, classifyRPCError(fmt.Errorf("abci query %q at height %d: %w", path, queryHeight, err))
	}
	if res.Response.IsErr() {
		return nil, classifyRPCError(fmt.Errorf("abci query %q failed with code %d: %s", path, res.Response.Code, res.Response.Log))
	}
	if res.Response.ProofOps == nil || len(res.Response.ProofOps.Ops) == 0 {
		return nil, fmt.Errorf("abci query %q returned no proof ops", path)
	}
	return &abciResponseQuery{Value: res.Response.Value, ProofOps: res.Response.ProofOps}, nil
}

type abciResponseQuery struct {
	Value    []byte
	ProofOps *cmtcrypto.ProofOps
}

// encodeProofOps validates each proof op as ics23 and packs the commitment
// proofs into a single length-delimited message (repeated field 1), the same
// shape as an ibc MerkleProof.
func (t *Tendermint) encodeProofOps(ops *cmtcrypto.ProofOps, membership bool) ([]byte, error) {
	var out []byte
	for i, op := range ops.Ops {
		var commitment ics23.CommitmentProof
		if err := commitment.Unmarshal(op.Data); err != nil {
			return nil, fmt.Errorf("proof op %d (%s) is not an ics23 commitment proof: %w", i, op.Type, err)
		}
		// the leaf op (store level) must match the claimed membership kind
		if i == 0 {
			if membership && commitment.GetExist() == nil && commitment.GetBatch() == nil {
				return nil, fmt.Errorf("proof op 0 is not an existence proof")
			}
			if !membership && commitment.GetNonexist() == nil {
				return nil, fmt.Errorf("proof op 0 is not a non-existence proof")
			}
		}
		out = protowire.AppendTag(out, 1, protowire.BytesType)
		out = protowire.AppendBytes(out, op.Data)
	}
	return out, nil
}

// UpdateProof assembles the light block at targetHeight with the trusted
// validator set injected, serialized as a tendermint LightBlock proto.
func (t *Tendermint) UpdateProof(ctx context.Context, trustedHeight, targetHeight uint64) (*relay.UpdateProof, error) {
	trustedCommit, err := t.commit(ctx, trustedHeight)
	if err != nil {
		// the trusted height being gone means the client cannot be advanced
		// from it at all, not just from this node
		if errors.Is(err, relay.ErrHeightNotAvailable) {
			return nil, fmt.Errorf("trusted height %d pruned: %w", trustedHeight, relay.ErrClientUpdateUnavailable)
		}
		return nil, fmt.Errorf("trusted commit at %d: %w", trustedHeight, err)
	}
	if t.trustingPeriod > 0 && time.Since(trustedCommit.Header.Time) > t.trustingPeriod {
		return nil, fmt.Errorf("consensus state at height %d is older than the trusting period %s: %w",
			trustedHeight, t.trustingPeriod, relay.ErrTrustingPeriodExpired)
	}

	targetCommit, err := t.commit(ctx, targetHeight)
	if err != nil {
		return nil, fmt.Errorf("target commit at %d: %w", targetHeight, err)
	}
	valSet, err := t.validatorSet(ctx, targetHeight)
	if err != nil {
		return nil, fmt.Errorf("validator set at %d: %w", targetHeight, err)
	}
	// trusted validators for a header at height h are the next validators
	// committed at h, i.e. the set active at trustedHeight+1
	trustedVals, err := t.validatorSet(ctx, trustedHeight+1)
	if err != nil {
		return nil, fmt.Errorf("trusted validator set at %d: %w", trustedHeight+1, err)
	}

	update, err := marshalLightBlock(targetCommit, valSet, trustedVals)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("assembled client update",
		zap.Uint64("trusted_height", trustedHeight),
		zap.Uint64("target_height", targetHeight))
	return &relay.UpdateProof{
		TrustedHeight: trustedHeight,
		TargetHeight:  targetHeight,
		Update:        update,
		ProofType:     relay.ProofTypeMerkle,
	}, nil
}

func (t *Tendermint) commit(ctx context.Context, height uint64) (*cmttypes.SignedHeader, error) {
	h := int64(height)
	res, err := t.client.Commit(ctx, &h)
	if err != nil {
		return nil, classifyRPCError(err)
	}
	return &res.SignedHeader, nil
}

func (t *Tendermint) validatorSet(ctx context.Context, height uint64) (*cmttypes.ValidatorSet, error) {
	h := int64(height)
	var vals []*cmttypes.Validator
	page := 1
	perPage := validatorsPageSize
	for {
		res, err := t.client.Validators(ctx, &h, &page, &perPage)
		if err != nil {
			return nil, classifyRPCError(err)
		}
		vals = append(vals, res.Validators...)
		if len(vals) >= res.Total {
			break
		}
		page++
	}
	return cmttypes.NewValidatorSet(vals), nil
}

// marshalLightBlock packs the signed header and both validator sets into one
// length-delimited message: field 1 light block, field 2 trusted validators.
func marshalLightBlock(sh *cmttypes.SignedHeader, valSet, trustedVals *cmttypes.ValidatorSet) ([]byte, error) {
	vsProto, err := valSet.ToProto()
	if err != nil {
		return nil, fmt.Errorf("marshal validator set: %w", err)
	}
	lb := cmtproto.LightBlock{
		SignedHeader: sh.ToProto(),
		ValidatorSet: vsProto,
	}
	lbBytes, err := lb.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal light block: %w", err)
	}
	tvProto, err := trustedVals.ToProto()
	if err != nil {
		return nil, fmt.Errorf("marshal trusted validator set: %w", err)
	}
	tvBytes, err := tvProto.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal trusted validator set: %w", err)
	}

	var out []byte
	out = protowire.AppendTag(out, 1, protowire.BytesType)
	out = protowire.AppendBytes(out, lbBytes)
	out = protowire.AppendTag(out, 2, protowire.BytesType)
	out = protowire.AppendBytes(out, tvBytes)
	return out, nil
}

// InitialClientState snapshots the chain head into the client and consensus
// state a counterparty needs to create a fresh tracking client.
func (t *Tendermint) InitialClientState(ctx context.Context) ([]byte, []byte, error) {
	status, err := t.client.Status(ctx)
	if err != nil {
		return nil, nil, classifyRPCError(fmt.Errorf("query node status: %w", err))
	}
	height := status.SyncInfo.LatestBlockHeight
	commit, err := t.commit(ctx, uint64(height))
	if err != nil {
		return nil, nil, fmt.Errorf("commit at head %d: %w", height, err)
	}

	var clientState []byte
	clientState = protowire.AppendTag(clientState, 1, protowire.BytesType)
	clientState = protowire.AppendString(clientState, t.chainID)
	clientState = protowire.AppendTag(clientState, 2, protowire.VarintType)
	clientState = protowire.AppendVarint(clientState, uint64(t.trustingPeriod.Seconds()))
	clientState = protowire.AppendTag(clientState, 3, protowire.VarintType)
	clientState = protowire.AppendVarint(clientState, uint64(height))

	var consensusState []byte
	consensusState = protowire.AppendTag(consensusState, 1, protowire.VarintType)
	consensusState = protowire.AppendVarint(consensusState, uint64(commit.Header.Time.UnixNano()))
	consensusState = protowire.AppendTag(consensusState, 2, protowire.BytesType)
	consensusState = protowire.AppendBytes(consensusState, commit.Header.AppHash)
	consensusState = protowire.AppendTag(consensusState, 3, protowire.BytesType)
	consensusState = protowire.AppendBytes(consensusState, commit.Header.NextValidatorsHash)

	return clientState, consensusState, nil
}

// classifyRPCError maps node error strings onto the orchestrator's
// retryability sentinels. CometBFT reports pruned heights in the error text;
// there is no structured code for it.
func classifyRPCError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "lowest height is") || strings.Contains(msg, "is not available") {
		return fmt.Errorf("%v: %w", err, relay.ErrHeightNotAvailable)
	}
	return err
}
