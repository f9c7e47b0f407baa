package codec

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Protobuf rendition of the packet structure for the Cosmos SDK boundary.
// The field numbering matches the channel/v2 Packet message and is part of
// the wire format:
//
//	Packet:  1=sequence 2=source_client 3=dest_client 4=timeout_timestamp 5=payloads
//	Payload: 1=source_port 2=dest_port 3=version 4=encoding 5=value

// MarshalPacketProto serializes a packet in protobuf wire format.
func MarshalPacketProto(p Packet) []byte {
	var bz []byte
	if p.Sequence != 0 {
		bz = protowire.AppendTag(bz, 1, protowire.VarintType)
		bz = protowire.AppendVarint(bz, p.Sequence)
	}
	if p.SourceClient != "" {
		bz = protowire.AppendTag(bz, 2, protowire.BytesType)
		bz = protowire.AppendString(bz, p.SourceClient)
	}
	if p.DestClient != "" {
		bz = protowire.AppendTag(bz, 3, protowire.BytesType)
		bz = protowire.AppendString(bz, p.DestClient)
	}
	if p.TimeoutTimestamp != 0 {
		bz = protowire.AppendTag(bz, 4, protowire.VarintType)
		bz = protowire.AppendVarint(bz, p.TimeoutTimestamp)
	}
	for _, pl := range p.Payloads {
		bz = protowire.AppendTag(bz, 5, protowire.BytesType)
		bz = protowire.AppendBytes(bz, marshalPayload(pl))
	}
	return bz
}

func marshalPayload(pl Payload) []byte {
	var bz []byte
	if pl.SourcePort != "" {
		bz = protowire.AppendTag(bz, 1, protowire.BytesType)
		bz = protowire.AppendString(bz, pl.SourcePort)
	}
	if pl.DestPort != "" {
		bz = protowire.AppendTag(bz, 2, protowire.BytesType)
		bz = protowire.AppendString(bz, pl.DestPort)
	}
	if pl.Version != "" {
		bz = protowire.AppendTag(bz, 3, protowire.BytesType)
		bz = protowire.AppendString(bz, pl.Version)
	}
	if pl.Encoding != "" {
		bz = protowire.AppendTag(bz, 4, protowire.BytesType)
		bz = protowire.AppendString(bz, pl.Encoding)
	}
	if len(pl.Value) != 0 {
		bz = protowire.AppendTag(bz, 5, protowire.BytesType)
		bz = protowire.AppendBytes(bz, pl.Value)
	}
	return bz
}

// UnmarshalPacketProto parses a protobuf wire format packet. Unknown fields
// are rejected rather than skipped: the message is a consensus structure and
// an unknown field means a schema mismatch.
func UnmarshalPacketProto(bz []byte) (Packet, error) {
	var p Packet
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return Packet{}, decodingErrorf("bad proto tag: %v", protowire.ParseError(n))
		}
		bz = bz[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(bz)
			if n < 0 {
				return Packet{}, decodingErrorf("bad sequence varint")
			}
			p.Sequence = v
			bz = bz[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(bz)
			if n < 0 {
				return Packet{}, decodingErrorf("bad source client field")
			}
			p.SourceClient = v
			bz = bz[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(bz)
			if n < 0 {
				return Packet{}, decodingErrorf("bad dest client field")
			}
			p.DestClient = v
			bz = bz[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(bz)
			if n < 0 {
				return Packet{}, decodingErrorf("bad timeout varint")
			}
			p.TimeoutTimestamp = v
			bz = bz[n:]
		case num == 5 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(bz)
			if n < 0 {
				return Packet{}, decodingErrorf("bad payload field")
			}
			pl, err := unmarshalPayload(v)
			if err != nil {
				return Packet{}, err
			}
			p.Payloads = append(p.Payloads, pl)
			bz = bz[n:]
		default:
			return Packet{}, decodingErrorf("unknown packet field %d (wire type %d)", num, typ)
		}
	}
	return p, nil
}

func unmarshalPayload(bz []byte) (Payload, error) {
	var pl Payload
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return Payload{}, decodingErrorf("bad proto tag in payload: %v", protowire.ParseError(n))
		}
		bz = bz[n:]
		if typ != protowire.BytesType {
			return Payload{}, decodingErrorf("unexpected wire type %d for payload field %d", typ, num)
		}
		v, n := protowire.ConsumeBytes(bz)
		if n < 0 {
			return Payload{}, decodingErrorf("truncated payload field %d", num)
		}
		switch num {
		case 1:
			pl.SourcePort = string(v)
		case 2:
			pl.DestPort = string(v)
		case 3:
			pl.Version = string(v)
		case 4:
			pl.Encoding = string(v)
		case 5:
			pl.Value = append([]byte(nil), v...)
		default:
			return Payload{}, decodingErrorf("unknown payload field %d", num)
		}
		bz = bz[n:]
	}
	return pl, nil
}
