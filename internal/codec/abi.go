package codec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// The tuple layouts below mirror the shared ABI schema of the on-chain
// ICS-20/ICS-26 contracts. Field order is part of the wire format and must
// not be changed.

var (
	hopComponents = []abi.ArgumentMarshaling{
		{Name: "portId", Type: "string"},
		{Name: "clientId", Type: "string"},
	}

	ftpdType = mustNewType("tuple", []abi.ArgumentMarshaling{
		{Name: "denom", Type: "string"},
		{Name: "sender", Type: "string"},
		{Name: "receiver", Type: "string"},
		{Name: "amount", Type: "uint256"},
		{Name: "memo", Type: "string"},
	})

	ftpdV2Type = mustNewType("tuple", []abi.ArgumentMarshaling{
		{Name: "tokens", Type: "tuple[]", Components: []abi.ArgumentMarshaling{
			{Name: "denom", Type: "tuple", Components: []abi.ArgumentMarshaling{
				{Name: "base", Type: "string"},
				{Name: "trace", Type: "tuple[]", Components: hopComponents},
			}},
			{Name: "amount", Type: "uint256"},
		}},
		{Name: "sender", Type: "string"},
		{Name: "receiver", Type: "string"},
		{Name: "memo", Type: "string"},
		{Name: "forwarding", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "destinationMemo", Type: "string"},
			{Name: "hops", Type: "tuple[]", Components: hopComponents},
		}},
	})

	packetType = mustNewType("tuple", []abi.ArgumentMarshaling{
		{Name: "sequence", Type: "uint64"},
		{Name: "sourceClient", Type: "string"},
		{Name: "destClient", Type: "string"},
		{Name: "timeoutTimestamp", Type: "uint64"},
		{Name: "payloads", Type: "tuple[]", Components: []abi.ArgumentMarshaling{
			{Name: "sourcePort", Type: "string"},
			{Name: "destPort", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "encoding", Type: "string"},
			{Name: "value", Type: "bytes"},
		}},
	})

	bytesArrayType = mustNewType("bytes[]", nil)

	ftpdArgs          = abi.Arguments{{Type: ftpdType}}
	ftpdV2Args        = abi.Arguments{{Type: ftpdV2Type}}
	packetArgs        = abi.Arguments{{Type: packetType}}
	writeAckEventArgs = abi.Arguments{{Type: packetType}, {Type: bytesArrayType}}
)

func mustNewType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}

type hopTuple struct {
	PortId   string
	ClientId string
}

type ftpdTuple struct {
	Denom    string
	Sender   string
	Receiver string
	Amount   *big.Int
	Memo     string
}

type denomTuple struct {
	Base  string
	Trace []hopTuple
}

type tokenTuple struct {
	Denom  denomTuple
	Amount *big.Int
}

type forwardingTuple struct {
	DestinationMemo string
	Hops            []hopTuple
}

type ftpdV2Tuple struct {
	Tokens     []tokenTuple
	Sender     string
	Receiver   string
	Memo       string
	Forwarding forwardingTuple
}

type payloadTuple struct {
	SourcePort string
	DestPort   string
	Version    string
	Encoding   string
	Value      []byte
}

type packetTuple struct {
	Sequence         uint64
	SourceClient     string
	DestClient       string
	TimeoutTimestamp uint64
	Payloads         []payloadTuple
}

func checkAmount(amount *big.Int) error {
	if amount == nil {
		return encodingErrorf("amount is nil")
	}
	if amount.Sign() < 0 {
		return encodingErrorf("amount %s is negative", amount)
	}
	if amount.BitLen() > 256 {
		return encodingErrorf("amount %s exceeds 256 bits", amount)
	}
	return nil
}

func toHopTuples(hops []Hop) []hopTuple {
	out := make([]hopTuple, len(hops))
	for i, h := range hops {
		out[i] = hopTuple{PortId: h.PortID, ClientId: h.ClientID}
	}
	return out
}

func fromHopTuples(hops []hopTuple) []Hop {
	if len(hops) == 0 {
		return nil
	}
	out := make([]Hop, len(hops))
	for i, h := range hops {
		out[i] = Hop{PortID: h.PortId, ClientID: h.ClientId}
	}
	return out
}

// EncodeFungibleTokenPacketData ABI-encodes a v1 transfer record.
func EncodeFungibleTokenPacketData(data FungibleTokenPacketData) ([]byte, error) {
	if err := checkAmount(data.Amount); err != nil {
		return nil, err
	}
	packed, err := ftpdArgs.Pack(ftpdTuple{
		Denom:    data.Denom,
		Sender:   data.Sender,
		Receiver: data.Receiver,
		Amount:   data.Amount,
		Memo:     data.Memo,
	})
	if err != nil {
		return nil, encodingErrorf("%v", err)
	}
	return packed, nil
}

// DecodeFungibleTokenPacketData is the strict inverse of
// EncodeFungibleTokenPacketData.
func DecodeFungibleTokenPacketData(bz []byte) (FungibleTokenPacketData, error) {
	out, err := ftpdArgs.Unpack(bz)
	if err != nil {
		return FungibleTokenPacketData{}, decodingErrorf("%v", err)
	}
	if len(out) != 1 {
		return FungibleTokenPacketData{}, decodingErrorf("expected a single tuple, got %d values", len(out))
	}
	record := abi.ConvertType(out[0], new(ftpdTuple)).(*ftpdTuple)
	return FungibleTokenPacketData{
		Denom:    record.Denom,
		Sender:   record.Sender,
		Receiver: record.Receiver,
		Amount:   record.Amount,
		Memo:     record.Memo,
	}, nil
}

// EncodeFungibleTokenPacketDataV2 ABI-encodes a v2 multi-token transfer
// record, forwarding path included.
func EncodeFungibleTokenPacketDataV2(data FungibleTokenPacketDataV2) ([]byte, error) {
	if len(data.Tokens) == 0 {
		return nil, encodingErrorf("transfer carries no tokens")
	}
	if len(data.Forwarding.Hops) > MaxForwardingHops {
		return nil, encodingErrorf("forwarding path of %d hops exceeds the bound of %d", len(data.Forwarding.Hops), MaxForwardingHops)
	}
	tokens := make([]tokenTuple, len(data.Tokens))
	for i, t := range data.Tokens {
		if err := checkAmount(t.Amount); err != nil {
			return nil, err
		}
		if len(t.Denom.Trace) > MaxForwardingHops {
			return nil, encodingErrorf("denom trace of %d hops exceeds the bound of %d", len(t.Denom.Trace), MaxForwardingHops)
		}
		tokens[i] = tokenTuple{
			Denom: denomTuple{
				Base:  t.Denom.Base,
				Trace: toHopTuples(t.Denom.Trace),
			},
			Amount: t.Amount,
		}
	}
	packed, err := ftpdV2Args.Pack(ftpdV2Tuple{
		Tokens:   tokens,
		Sender:   data.Sender,
		Receiver: data.Receiver,
		Memo:     data.Memo,
		Forwarding: forwardingTuple{
			DestinationMemo: data.Forwarding.DestinationMemo,
			Hops:            toHopTuples(data.Forwarding.Hops),
		},
	})
	if err != nil {
		return nil, encodingErrorf("%v", err)
	}
	return packed, nil
}

// DecodeFungibleTokenPacketDataV2 is the strict inverse of
// EncodeFungibleTokenPacketDataV2.
func DecodeFungibleTokenPacketDataV2(bz []byte) (FungibleTokenPacketDataV2, error) {
	out, err := ftpdV2Args.Unpack(bz)
	if err != nil {
		return FungibleTokenPacketDataV2{}, decodingErrorf("%v", err)
	}
	if len(out) != 1 {
		return FungibleTokenPacketDataV2{}, decodingErrorf("expected a single tuple, got %d values", len(out))
	}
	record := abi.ConvertType(out[0], new(ftpdV2Tuple)).(*ftpdV2Tuple)
	if len(record.Tokens) == 0 {
		return FungibleTokenPacketDataV2{}, decodingErrorf("transfer carries no tokens")
	}
	if len(record.Forwarding.Hops) > MaxForwardingHops {
		return FungibleTokenPacketDataV2{}, decodingErrorf("forwarding path of %d hops exceeds the bound of %d", len(record.Forwarding.Hops), MaxForwardingHops)
	}
	tokens := make([]Token, len(record.Tokens))
	for i, t := range record.Tokens {
		if len(t.Denom.Trace) > MaxForwardingHops {
			return FungibleTokenPacketDataV2{}, decodingErrorf("denom trace of %d hops exceeds the bound of %d", len(t.Denom.Trace), MaxForwardingHops)
		}
		tokens[i] = Token{
			Denom: Denom{
				Base:  t.Denom.Base,
				Trace: fromHopTuples(t.Denom.Trace),
			},
			Amount: t.Amount,
		}
	}
	return FungibleTokenPacketDataV2{
		Tokens:   tokens,
		Sender:   record.Sender,
		Receiver: record.Receiver,
		Memo:     record.Memo,
		Forwarding: ForwardingPacketData{
			DestinationMemo: record.Forwarding.DestinationMemo,
			Hops:            fromHopTuples(record.Forwarding.Hops),
		},
	}, nil
}

// EncodePacketABI ABI-encodes the full packet struct as the EVM router
// contracts expect it in recvPacket/ackPacket/timeoutPacket messages.
func EncodePacketABI(p Packet) ([]byte, error) {
	packed, err := packetArgs.Pack(packetToTuple(p))
	if err != nil {
		return nil, encodingErrorf("%v", err)
	}
	return packed, nil
}

// DecodePacketABI is the strict inverse of EncodePacketABI.
func DecodePacketABI(bz []byte) (Packet, error) {
	out, err := packetArgs.Unpack(bz)
	if err != nil {
		return Packet{}, decodingErrorf("%v", err)
	}
	if len(out) != 1 {
		return Packet{}, decodingErrorf("expected a single tuple, got %d values", len(out))
	}
	record := abi.ConvertType(out[0], new(packetTuple)).(*packetTuple)
	return tupleToPacket(record), nil
}

// packetToTuple converts without validation; used by the event codecs.
func packetToTuple(p Packet) packetTuple {
	payloads := make([]payloadTuple, len(p.Payloads))
	for i, pl := range p.Payloads {
		payloads[i] = payloadTuple(pl)
	}
	return packetTuple{
		Sequence:         p.Sequence,
		SourceClient:     p.SourceClient,
		DestClient:       p.DestClient,
		TimeoutTimestamp: p.TimeoutTimestamp,
		Payloads:         payloads,
	}
}

func tupleToPacket(record *packetTuple) Packet {
	payloads := make([]Payload, len(record.Payloads))
	for i, pl := range record.Payloads {
		payloads[i] = Payload(pl)
	}
	return Packet{
		Sequence:         record.Sequence,
		SourceClient:     record.SourceClient,
		DestClient:       record.DestClient,
		TimeoutTimestamp: record.TimeoutTimestamp,
		Payloads:         payloads,
	}
}

// EncodeWriteAckEventABI packs the data segment of a WriteAcknowledgement
// event: the packet tuple followed by one acknowledgement per payload.
func EncodeWriteAckEventABI(p Packet, acks [][]byte) ([]byte, error) {
	packed, err := writeAckEventArgs.Pack(packetToTuple(p), acks)
	if err != nil {
		return nil, encodingErrorf("%v", err)
	}
	return packed, nil
}

// DecodeWriteAckEventABI is the strict inverse of EncodeWriteAckEventABI.
func DecodeWriteAckEventABI(bz []byte) (Packet, [][]byte, error) {
	out, err := writeAckEventArgs.Unpack(bz)
	if err != nil {
		return Packet{}, nil, decodingErrorf("%v", err)
	}
	if len(out) != 2 {
		return Packet{}, nil, decodingErrorf("expected packet and acks, got %d values", len(out))
	}
	record := abi.ConvertType(out[0], new(packetTuple)).(*packetTuple)
	acks := *abi.ConvertType(out[1], new([][]byte)).(*[][]byte)
	return tupleToPacket(record), acks, nil
}
