package codec

import "math/big"

// EncodingABI is the payload encoding produced and consumed by the EVM-side
// ICS-26 router contracts.
const EncodingABI = "application/x-solidity-abi"

// EncodingProto is the payload encoding used when crossing the Cosmos SDK boundary.
const EncodingProto = "application/x-protobuf"

// TransferPort is the well-known ICS-20 port identifier.
const TransferPort = "transfer"

// Family tells which hash function family a chain's commitments use.
type Family string

const (
	// FamilyCosmos marks chains whose commitments are SHA-256 based.
	FamilyCosmos Family = "cosmos"
	// FamilyEVM marks chains whose commitments are Keccak-256 based.
	FamilyEVM Family = "evm"
)

// Packet identifies one cross-chain message. Immutable once created; the
// sequence is assigned by the source chain at send time.
type Packet struct {
	Sequence         uint64
	SourceClient     string
	DestClient       string
	TimeoutTimestamp uint64
	Payloads         []Payload
}

// Payload is a single application payload carried by a Packet.
type Payload struct {
	SourcePort string
	DestPort   string
	Version    string
	Encoding   string
	Value      []byte
}

// FungibleTokenPacketData is the ICS-20 v1 token transfer record.
type FungibleTokenPacketData struct {
	Denom    string
	Sender   string
	Receiver string
	Amount   *big.Int
	Memo     string
}

// Hop is one forwarding step of a multi-hop denom trace or forwarding path.
type Hop struct {
	PortID   string
	ClientID string
}

// Denom is a token denomination with its transfer trace. An empty Trace means
// the denom is native to the chain it is observed on.
type Denom struct {
	Base  string
	Trace []Hop
}

// HasPrefix reports whether the denom's trace begins with the given hop. The
// empty trace never matches.
func (d Denom) HasPrefix(hop Hop) bool {
	if len(d.Trace) == 0 {
		return false
	}
	return d.Trace[0] == hop
}

// IsNative reports whether the denom has an empty trace.
func (d Denom) IsNative() bool {
	return len(d.Trace) == 0
}

// Token is one denomination/amount pair of a v2 transfer.
type Token struct {
	Denom  Denom
	Amount *big.Int
}

// ForwardingPacketData describes the remaining forwarding path of a v2
// transfer. Hops is bounded by MaxForwardingHops.
type ForwardingPacketData struct {
	DestinationMemo string
	Hops            []Hop
}

// FungibleTokenPacketDataV2 is the multi-token transfer record with optional
// forwarding.
type FungibleTokenPacketDataV2 struct {
	Tokens     []Token
	Sender     string
	Receiver   string
	Memo       string
	Forwarding ForwardingPacketData
}

// MaxForwardingHops bounds the recursive forwarding structure. Deeper paths
// are rejected on both encode and decode.
const MaxForwardingHops = 8
