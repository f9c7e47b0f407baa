package relay

import (
	"fmt"
	"time"

	"github.com/interchainlabs/eureka-relayer/internal/codec"
)

// Action is the relayable operation a task performs for its packet.
type Action string

const (
	ActionRecv    Action = "recv"
	ActionAck     Action = "ack"
	ActionTimeout Action = "timeout"
)

// TaskState is the position of a RelayTask in its lifecycle.
type TaskState string

const (
	StateDiscovered     TaskState = "discovered"
	StateProofRequested TaskState = "proof_requested"
	StateProofReady     TaskState = "proof_ready"
	StateSubmitted      TaskState = "submitted"
	StateConfirmed      TaskState = "confirmed"
	StateFailed         TaskState = "failed"
)

// TaskKey identifies a task for dedup purposes: at most one task per key is
// in flight at any time.
type TaskKey struct {
	ClientID string
	Sequence uint64
	Action   Action
}

func (k TaskKey) String() string {
	return fmt.Sprintf("%s/%d/%s", k.ClientID, k.Sequence, k.Action)
}

// PacketKey identifies a packet regardless of action. Distinct actions for
// the same packet serialize on this key.
type PacketKey struct {
	ClientID string
	Sequence uint64
}

// RelayTask is the orchestrator's working unit. Owned exclusively by the
// orchestrator for its lifetime.
type RelayTask struct {
	Packet             codec.Packet
	Action             Action
	SourceChain        string
	DestChain          string
	DiscoveredAtHeight uint64
	Acks               [][]byte // set for ack tasks

	State    TaskState
	Attempts uint
	LastErr  error
}

// Key returns the dedup key of the task. The client identifier used is the
// packet's source client: together with the sequence it is unique across the
// pair.
func (t *RelayTask) Key() TaskKey {
	return TaskKey{ClientID: t.Packet.SourceClient, Sequence: t.Packet.Sequence, Action: t.Action}
}

// PacketKey returns the per-packet serialization key.
func (t *RelayTask) PacketKey() PacketKey {
	return PacketKey{ClientID: t.Packet.SourceClient, Sequence: t.Packet.Sequence}
}

// ProofType discriminates how a ProofBundle's bytes are to be verified.
type ProofType string

const (
	// ProofTypeMerkle is a raw ICS-23 or Merkle-Patricia proof.
	ProofTypeMerkle ProofType = "merkle"
	// SP1 succinct proofs.
	ProofTypeGroth16 ProofType = "groth16"
	ProofTypePlonk   ProofType = "plonk"
	ProofTypeMock    ProofType = "mock"
)

// ProofBundle carries everything the destination light client needs to
// verify one membership or non-membership claim. Height-bound: not reusable
// across retries at a different height.
type ProofBundle struct {
	Height         uint64
	Proof          []byte
	ClientState    []byte
	ConsensusState []byte

	ProofType ProofType
	// VKey identifies the SP1 program verification key, empty for raw
	// Merkle proofs.
	VKey string
}

// UpdateProof is the header chain (or succinct equivalent) that advances the
// destination light client to the proof height.
type UpdateProof struct {
	TrustedHeight uint64
	TargetHeight  uint64
	Update        []byte
	ProofType     ProofType
	VKey          string
}

// EventKind classifies an observed packet lifecycle event.
type EventKind string

const (
	EventSendPacket           EventKind = "send_packet"
	EventRecvPacket           EventKind = "recv_packet"
	EventWriteAcknowledgement EventKind = "write_acknowledgement"
	EventTimeoutPacket        EventKind = "timeout_packet"
	EventAcknowledgePacket    EventKind = "acknowledge_packet"
)

// PacketEvent is a raw lifecycle event surfaced by a chain adapter.
type PacketEvent struct {
	Kind   EventKind
	Packet codec.Packet
	Acks   [][]byte // populated for write_acknowledgement
	Height uint64
	TxHash string
}

// RelayMsg is one packet operation inside a relay transaction.
type RelayMsg struct {
	Action Action
	Packet codec.Packet
	Acks   [][]byte
	Proof  ProofBundle
}

// RelayTx is an assembled destination transaction: an optional client update
// followed by one or more packet messages sharing that update.
type RelayTx struct {
	ChainID      string
	ClientID     string
	UpdateClient *UpdateProof
	Msgs         []RelayMsg
}

// SubmitResult reports the on-chain outcome of a submitted transaction.
type SubmitResult struct {
	TxHash string
	Height uint64
}

// PairConfig binds one orchestrator instance to one relayed chain pair
// direction. Immutable after load.
type PairConfig struct {
	SourceChainID string
	DestChainID   string

	// SourceClientID is the client on the destination chain tracking the
	// source chain; DestClientID the reverse.
	SourceClientID string
	DestClientID   string

	MaxBatchSize   int
	MaxAttempts    uint
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	FlushInterval  time.Duration
	ConfirmTimeout time.Duration
	ProofTimeout   time.Duration
	ProverCapacity int64
	MockClient     bool
}
