package relay

import (
	"context"
	"time"

	"github.com/interchainlabs/eureka-relayer/internal/codec"
)

//go:generate mockgen -destination ../../testutil/mocks/relay/chain.go -package mock_relay -source chain.go

// ChainClient is the polymorphic adapter over heterogeneous chains. Read
// methods are safe for concurrent use; SubmitTx serializes on the signer
// internally so that transactions go out in increasing nonce order.
type ChainClient interface {
	ChainID() string
	Family() codec.Family

	LatestHeight(ctx context.Context) (uint64, error)
	// HeaderTime returns the consensus timestamp of the block at height.
	HeaderTime(ctx context.Context, height uint64) (time.Time, error)

	// PacketCommitment returns the stored commitment digest, or nil if the
	// commitment has been deleted (acked or timed out).
	PacketCommitment(ctx context.Context, clientID string, sequence uint64) ([]byte, error)
	HasPacketReceipt(ctx context.Context, clientID string, sequence uint64) (bool, error)
	HasPacketAcknowledgement(ctx context.Context, clientID string, sequence uint64) (bool, error)

	// ClientHeight returns the latest height of the named light client
	// stored on this chain.
	ClientHeight(ctx context.Context, clientID string) (uint64, error)

	// PacketEvents extracts packet lifecycle events from the named
	// transactions.
	PacketEvents(ctx context.Context, txIDs []string) ([]PacketEvent, error)

	// ContractAddress returns the router contract address on EVM chains,
	// empty elsewhere.
	ContractAddress() string

	// EncodeCreateClientTx renders a client-creation transaction for this
	// chain from the counterparty's initial states.
	EncodeCreateClientTx(clientState, consensusState []byte, params map[string]string) ([]byte, error)

	// EncodeRelayTx renders an assembled relay transaction into the chain's
	// wire format without submitting it.
	EncodeRelayTx(tx *RelayTx) ([]byte, error)

	SubmitTx(ctx context.Context, tx *RelayTx) (*SubmitResult, error)
}

// EventSource streams packet lifecycle events from a chain. Closed when the
// context is cancelled.
type EventSource interface {
	SubscribeEvents(ctx context.Context) (<-chan PacketEvent, error)
}

// ProofProvider abstracts the proof systems behind one capability: prove
// that a key has (or lacks) a value at a height, verifiable by the
// counterparty's light client.
type ProofProvider interface {
	// UpdateProof builds the client update from trustedHeight to
	// targetHeight. Fails with ErrClientUpdateUnavailable (wrapped) if no
	// valid header chain exists between the two heights.
	UpdateProof(ctx context.Context, trustedHeight, targetHeight uint64) (*UpdateProof, error)

	// MembershipProof proves key existence at height. Fails with
	// ErrHeightNotAvailable (wrapped) if the node has pruned the height.
	MembershipProof(ctx context.Context, path string, height uint64) (*ProofBundle, error)

	// NonMembershipProof proves key absence at height; used for timeout
	// relaying.
	NonMembershipProof(ctx context.Context, path string, height uint64) (*ProofBundle, error)

	// InitialClientState observes the source chain and produces the client
	// and consensus state a counterparty needs to create a fresh client.
	InitialClientState(ctx context.Context) (clientState, consensusState []byte, err error)
}
