package codec

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Role selects which on-chain store a commitment key refers to.
type Role int

const (
	RoleCommitment Role = iota
	RoleReceipt
	RoleAcknowledgement
)

func (r Role) String() string {
	switch r {
	case RoleCommitment:
		return "commitment"
	case RoleReceipt:
		return "receipt"
	case RoleAcknowledgement:
		return "acknowledgement"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Path prefixes of the v2 (client-based) commitment grammar. Both sides hash
// these strings independently, so they must agree bit for bit with the
// on-chain store.
const (
	commitmentPathPrefix = "commitments"
	receiptPathPrefix    = "receipts"
	ackPathPrefix        = "acks"
)

// DerivePath builds the canonical store path for a packet commitment,
// receipt or acknowledgement.
func DerivePath(role Role, clientID string, sequence uint64) string {
	var prefix string
	switch role {
	case RoleCommitment:
		prefix = commitmentPathPrefix
	case RoleReceipt:
		prefix = receiptPathPrefix
	case RoleAcknowledgement:
		prefix = ackPathPrefix
	default:
		panic(fmt.Sprintf("unknown commitment role %d", int(role)))
	}
	return fmt.Sprintf("%s/%s/%d", prefix, clientID, sequence)
}

func hashFor(family Family, bz []byte) [32]byte {
	if family == FamilyEVM {
		return [32]byte(crypto.Keccak256(bz))
	}
	return sha256.Sum256(bz)
}

// CommitmentKey hashes the derived path with the destination family's hash
// function. The result is the 32-byte lookup key for proof requests and the
// on-chain storage key.
func CommitmentKey(role Role, clientID string, sequence uint64, family Family) [32]byte {
	return hashFor(family, []byte(DerivePath(role, clientID, sequence)))
}

// PathKey hashes an already-derived store path. Equivalent to CommitmentKey
// for callers that carry the path string instead of its parts.
func PathKey(path string, family Family) [32]byte {
	return hashFor(family, []byte(path))
}

// EVMStorageSlot derives the Merkle-Patricia storage slot of a commitment in
// the router contract: keccak256(commitmentKey ‖ uint256(ibcStoreSlot)).
func EVMStorageSlot(commitmentKey [32]byte, ibcStoreSlot uint64) common.Hash {
	slot := new(big.Int).SetUint64(ibcStoreSlot)
	return common.BytesToHash(crypto.Keccak256(
		commitmentKey[:],
		common.BigToHash(slot).Bytes(),
	))
}

func appendLengthPrefixed(dst, bz []byte) []byte {
	var l [8]byte
	binary.BigEndian.PutUint64(l[:], uint64(len(bz)))
	dst = append(dst, l[:]...)
	return append(dst, bz...)
}

func payloadDigest(pl Payload, family Family) [32]byte {
	bz := make([]byte, 0, 40+len(pl.SourcePort)+len(pl.DestPort)+len(pl.Version)+len(pl.Encoding)+len(pl.Value))
	bz = appendLengthPrefixed(bz, []byte(pl.SourcePort))
	bz = appendLengthPrefixed(bz, []byte(pl.DestPort))
	bz = appendLengthPrefixed(bz, []byte(pl.Version))
	bz = appendLengthPrefixed(bz, []byte(pl.Encoding))
	bz = appendLengthPrefixed(bz, pl.Value)
	return hashFor(family, bz)
}

func payloadListDigest(payloads []Payload, family Family) [32]byte {
	bz := make([]byte, 0, 32*len(payloads))
	for _, pl := range payloads {
		d := payloadDigest(pl, family)
		bz = append(bz, d[:]...)
	}
	return hashFor(family, bz)
}

// CommitmentDigest computes the 32-byte packet commitment:
// H(u64be(timeoutTimestamp) ‖ H(payloads) ‖ u64be(sequence)), with H chosen
// by the destination chain family.
func CommitmentDigest(p Packet, family Family) [32]byte {
	bz := make([]byte, 0, 48)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], p.TimeoutTimestamp)
	bz = append(bz, ts[:]...)
	pd := payloadListDigest(p.Payloads, family)
	bz = append(bz, pd[:]...)
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], p.Sequence)
	bz = append(bz, seq[:]...)
	return hashFor(family, bz)
}

// AckCommitmentDigest computes the commitment over the acknowledgement list
// written by the destination chain: H over the concatenation of H(ack).
func AckCommitmentDigest(acks [][]byte, family Family) [32]byte {
	bz := make([]byte, 0, 32*len(acks))
	for _, ack := range acks {
		d := hashFor(family, ack)
		bz = append(bz, d[:]...)
	}
	return hashFor(family, bz)
}
