package evm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interchainlabs/eureka-relayer/internal/codec"
	"github.com/interchainlabs/eureka-relayer/internal/relay"
)

var testContract = common.HexToAddress("0x3fC91A3afd70395Cd496C647d5a6CC9D4B2b7FAD")

func testEVMClient() *Client {
	return &Client{
		cfg:      Config{ChainID: "1", GasLimit: 500000},
		contract: testContract,
	}
}

func samplePacket() codec.Packet {
	return codec.Packet{
		Sequence:         4,
		SourceClient:     "08-groth16-0",
		DestClient:       "07-tendermint-0",
		TimeoutTimestamp: 1_700_000_000,
		Payloads: []codec.Payload{{
			SourcePort: codec.TransferPort,
			DestPort:   codec.TransferPort,
			Version:    "ics20-1",
			Encoding:   codec.EncodingABI,
			Value:      []byte{0xde, 0xad},
		}},
	}
}

func TestDecodeSendPacketLog(t *testing.T) {
	c := testEVMClient()
	packet := samplePacket()
	data, err := codec.EncodePacketABI(packet)
	require.NoError(t, err)

	log := &types.Log{
		Address:     testContract,
		Topics:      []common.Hash{topicSendPacket},
		Data:        data,
		BlockNumber: 19_000_000,
		TxHash:      common.HexToHash("0x01"),
	}
	ev, ok, err := c.decodeLog(log)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, relay.EventSendPacket, ev.Kind)
	assert.Equal(t, packet, ev.Packet)
	assert.Equal(t, uint64(19_000_000), ev.Height)
}

func TestDecodeWriteAckLog(t *testing.T) {
	c := testEVMClient()
	packet := samplePacket()
	acks := [][]byte{[]byte{0x01}}
	data, err := codec.EncodeWriteAckEventABI(packet, acks)
	require.NoError(t, err)

	log := &types.Log{
		Address:     testContract,
		Topics:      []common.Hash{topicWriteAck},
		Data:        data,
		BlockNumber: 19_000_001,
	}
	ev, ok, err := c.decodeLog(log)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, relay.EventWriteAcknowledgement, ev.Kind)
	assert.Equal(t, packet, ev.Packet)
	assert.Equal(t, acks, ev.Acks)
}

func TestDecodeLogIgnoresForeign(t *testing.T) {
	c := testEVMClient()

	// wrong contract
	_, ok, err := c.decodeLog(&types.Log{
		Address: common.HexToAddress("0x01"),
		Topics:  []common.Hash{topicSendPacket},
	})
	require.NoError(t, err)
	assert.False(t, ok)

	// unknown topic on the right contract
	_, ok, err = c.decodeLog(&types.Log{
		Address: testContract,
		Topics:  []common.Hash{common.HexToHash("0xffff")},
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncodeRelayTxSingleCall(t *testing.T) {
	c := testEVMClient()
	data, err := c.EncodeRelayTx(&relay.RelayTx{
		ClientID: "07-tendermint-0",
		Msgs: []relay.RelayMsg{{
			Action: relay.ActionRecv,
			Packet: samplePacket(),
			Proof:  relay.ProofBundle{Height: 100, Proof: []byte{0x11}},
		}},
	})
	require.NoError(t, err)
	// a single message goes out without the multicall wrapper
	assert.Equal(t, selRecvPacket, data[:4])
}

func TestEncodeRelayTxMulticallWithUpdate(t *testing.T) {
	c := testEVMClient()
	data, err := c.EncodeRelayTx(&relay.RelayTx{
		ClientID: "07-tendermint-0",
		UpdateClient: &relay.UpdateProof{
			TrustedHeight: 90,
			TargetHeight:  100,
			Update:        []byte{0x22},
			ProofType:     relay.ProofTypeGroth16,
		},
		Msgs: []relay.RelayMsg{
			{Action: relay.ActionAck, Packet: samplePacket(), Acks: [][]byte{[]byte{0x01}}, Proof: relay.ProofBundle{Height: 100, Proof: []byte{0x33}}},
			{Action: relay.ActionTimeout, Packet: samplePacket(), Proof: relay.ProofBundle{Height: 100, Proof: []byte{0x44}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, selMulticall, data[:4])
}

func TestEncodeRelayTxRejectsEmpty(t *testing.T) {
	c := testEVMClient()
	_, err := c.EncodeRelayTx(&relay.RelayTx{})
	require.Error(t, err)
}

func TestEncodeCreateClientTx(t *testing.T) {
	c := testEVMClient()
	data, err := c.EncodeCreateClientTx([]byte("cs"), []byte("cons"), nil)
	require.NoError(t, err)
	assert.Equal(t, selCreateClient, data[:4])
}
