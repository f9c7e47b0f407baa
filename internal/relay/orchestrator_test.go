package relay_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/interchainlabs/eureka-relayer/internal/codec"
	"github.com/interchainlabs/eureka-relayer/internal/relay"
	mock_relay "github.com/interchainlabs/eureka-relayer/testutil/mocks/relay"
)

const (
	srcChainID  = "cosmoshub-4"
	dstChainID  = "1"
	srcClientID = "07-tendermint-0"
	dstClientID = "08-groth16-0"
)

func testPacket(seq uint64, timeout uint64) codec.Packet {
	return codec.Packet{
		Sequence:         seq,
		SourceClient:     dstClientID,
		DestClient:       srcClientID,
		TimeoutTimestamp: timeout,
		Payloads: []codec.Payload{{
			SourcePort: codec.TransferPort,
			DestPort:   codec.TransferPort,
			Version:    "ics20-1",
			Encoding:   codec.EncodingABI,
			Value:      []byte{0xde, 0xad, 0xbe, 0xef},
		}},
	}
}

// memStorage is an in-memory Storage for orchestrator tests. Every save is
// also appended to a history so tests can inspect records that a later
// DeleteTask removed from the live set.
type memStorage struct {
	mu      sync.Mutex
	tasks   map[relay.TaskKey]relay.StoredTask
	history []relay.StoredTask
}

func newMemStorage() *memStorage {
	return &memStorage{tasks: make(map[relay.TaskKey]relay.StoredTask)}
}

func (s *memStorage) SaveTask(rec relay.StoredTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[rec.Key] = rec
	s.history = append(s.history, rec)
	return nil
}

// lastSaved returns the most recent record persisted for key, even when the
// live record has since been deleted.
func (s *memStorage) lastSaved(key relay.TaskKey) (relay.StoredTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Key == key {
			return s.history[i], true
		}
	}
	return relay.StoredTask{}, false
}

func (s *memStorage) GetTask(key relay.TaskKey) (*relay.StoredTask, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tasks[key]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (s *memStorage) DeleteTask(key relay.TaskKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, key)
	return nil
}

func (s *memStorage) tasksInState(state relay.TaskState) []relay.StoredTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []relay.StoredTask
	for _, rec := range s.tasks {
		if rec.State == state {
			out = append(out, rec)
		}
	}
	return out
}

func (s *memStorage) SubmittedTasks() ([]relay.StoredTask, error) {
	return s.tasksInState(relay.StateSubmitted), nil
}

func (s *memStorage) FailedTasks() ([]relay.StoredTask, error) {
	return s.tasksInState(relay.StateFailed), nil
}

func (s *memStorage) Close() error { return nil }

type testFixture struct {
	orch      *relay.Orchestrator
	srcClient *mock_relay.MockChainClient
	dstClient *mock_relay.MockChainClient
	srcProver *mock_relay.MockProofProvider
	dstProver *mock_relay.MockProofProvider
	srcEvents chan relay.PacketEvent
	dstEvents chan relay.PacketEvent
	storage   *memStorage
}

func newFixture(t *testing.T, tweak func(*relay.PairConfig)) *testFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &testFixture{
		srcClient: mock_relay.NewMockChainClient(ctrl),
		dstClient: mock_relay.NewMockChainClient(ctrl),
		srcProver: mock_relay.NewMockProofProvider(ctrl),
		dstProver: mock_relay.NewMockProofProvider(ctrl),
		srcEvents: make(chan relay.PacketEvent, 8),
		dstEvents: make(chan relay.PacketEvent, 8),
		storage:   newMemStorage(),
	}

	f.srcClient.EXPECT().ChainID().Return(srcChainID).AnyTimes()
	f.dstClient.EXPECT().ChainID().Return(dstChainID).AnyTimes()

	srcEvents := mock_relay.NewMockEventSource(ctrl)
	srcEvents.EXPECT().SubscribeEvents(gomock.Any()).
		Return((<-chan relay.PacketEvent)(f.srcEvents), nil)
	dstEvents := mock_relay.NewMockEventSource(ctrl)
	dstEvents.EXPECT().SubscribeEvents(gomock.Any()).
		Return((<-chan relay.PacketEvent)(f.dstEvents), nil)

	cfg := relay.PairConfig{
		SourceChainID:  srcChainID,
		DestChainID:    dstChainID,
		SourceClientID: srcClientID,
		DestClientID:   dstClientID,
		MaxBatchSize:   1,
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
		FlushInterval:  5 * time.Millisecond,
		ProofTimeout:   time.Second,
		ProverCapacity: 2,
	}
	if tweak != nil {
		tweak(&cfg)
	}

	f.orch = relay.NewOrchestrator(cfg,
		relay.Endpoint{Client: f.srcClient, Prover: f.srcProver, Events: srcEvents},
		relay.Endpoint{Client: f.dstClient, Prover: f.dstProver, Events: dstEvents},
		f.storage, nil, zaptest.NewLogger(t))
	return f
}

func (f *testFixture) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.orch.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("orchestrator did not stop")
		}
	})
}

// settle waits until no tasks remain in flight.
func (f *testFixture) settle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return f.orch.InflightCount() == 0 },
		5*time.Second, 2*time.Millisecond)
}

func TestRecvHappyPath(t *testing.T) {
	f := newFixture(t, nil)
	packet := testPacket(1, 2_000_000_000)

	// destination clock well before the packet timeout
	f.dstClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(500), nil).AnyTimes()
	f.dstClient.EXPECT().HeaderTime(gomock.Any(), uint64(500)).
		Return(time.Unix(1_700_000_000, 0), nil).AnyTimes()

	f.dstClient.EXPECT().HasPacketReceipt(gomock.Any(), srcClientID, uint64(1)).
		Return(false, nil)
	f.srcClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(120), nil)
	f.srcProver.EXPECT().
		MembershipProof(gomock.Any(), "commitments/08-groth16-0/1", uint64(120)).
		Return(&relay.ProofBundle{Height: 120, Proof: []byte{0x01}, ProofType: relay.ProofTypeMerkle}, nil)
	// destination client already trusts the proof height, no update needed
	f.dstClient.EXPECT().ClientHeight(gomock.Any(), srcClientID).Return(uint64(120), nil)

	submitted := make(chan *relay.RelayTx, 1)
	f.dstClient.EXPECT().SubmitTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *relay.RelayTx) (*relay.SubmitResult, error) {
			submitted <- tx
			return &relay.SubmitResult{TxHash: "0xabc", Height: 501}, nil
		})

	f.start(t)
	f.srcEvents <- relay.PacketEvent{Kind: relay.EventSendPacket, Packet: packet, Height: 118}

	select {
	case tx := <-submitted:
		require.Len(t, tx.Msgs, 1)
		assert.Equal(t, relay.ActionRecv, tx.Msgs[0].Action)
		assert.Equal(t, packet, tx.Msgs[0].Packet)
		assert.Equal(t, srcClientID, tx.ClientID)
		assert.Nil(t, tx.UpdateClient)
	case <-time.After(5 * time.Second):
		t.Fatal("no transaction submitted")
	}
	f.settle(t)
	// confirmed tasks leave no persistent record
	assert.Empty(t, f.storage.tasksInState(relay.StateSubmitted))
	assert.Empty(t, f.storage.tasksInState(relay.StateFailed))
}

func TestExpiredSendBecomesTimeout(t *testing.T) {
	f := newFixture(t, nil)
	packet := testPacket(7, 1_600_000_000)

	// destination clock already past the packet timeout
	f.dstClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(900), nil).AnyTimes()
	f.dstClient.EXPECT().HeaderTime(gomock.Any(), uint64(900)).
		Return(time.Unix(1_700_000_000, 0), nil).AnyTimes()

	f.srcClient.EXPECT().PacketCommitment(gomock.Any(), dstClientID, uint64(7)).
		Return([]byte{0xcc}, nil)
	f.dstClient.EXPECT().HasPacketReceipt(gomock.Any(), srcClientID, uint64(7)).
		Return(false, nil)
	f.dstProver.EXPECT().
		NonMembershipProof(gomock.Any(), "receipts/07-tendermint-0/7", uint64(900)).
		Return(&relay.ProofBundle{Height: 900, Proof: []byte{0x02}, ProofType: relay.ProofTypeMerkle}, nil)
	// source client lags the proof height, an update must ride along
	f.srcClient.EXPECT().ClientHeight(gomock.Any(), dstClientID).Return(uint64(850), nil)
	f.dstProver.EXPECT().UpdateProof(gomock.Any(), uint64(850), uint64(900)).
		Return(&relay.UpdateProof{TrustedHeight: 850, TargetHeight: 900, Update: []byte{0x03}}, nil)

	submitted := make(chan *relay.RelayTx, 1)
	f.srcClient.EXPECT().SubmitTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *relay.RelayTx) (*relay.SubmitResult, error) {
			submitted <- tx
			return &relay.SubmitResult{TxHash: "F00D", Height: 901}, nil
		})

	f.start(t)
	f.srcEvents <- relay.PacketEvent{Kind: relay.EventSendPacket, Packet: packet, Height: 880}

	select {
	case tx := <-submitted:
		require.Len(t, tx.Msgs, 1)
		assert.Equal(t, relay.ActionTimeout, tx.Msgs[0].Action)
		require.NotNil(t, tx.UpdateClient)
		assert.Equal(t, uint64(900), tx.UpdateClient.TargetHeight)
	case <-time.After(5 * time.Second):
		t.Fatal("no transaction submitted")
	}
	f.settle(t)
}

func TestAckRelay(t *testing.T) {
	f := newFixture(t, nil)
	packet := testPacket(3, 2_000_000_000)
	ack := []byte(`{"result":"AQ=="}`)

	// commitment still present on the source, ack not yet relayed
	f.srcClient.EXPECT().PacketCommitment(gomock.Any(), dstClientID, uint64(3)).
		Return([]byte{0xaa}, nil)
	f.dstClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(640), nil)
	f.dstProver.EXPECT().
		MembershipProof(gomock.Any(), "acks/07-tendermint-0/3", uint64(640)).
		Return(&relay.ProofBundle{Height: 640, Proof: []byte{0x04}, ProofType: relay.ProofTypeMerkle}, nil)
	f.srcClient.EXPECT().ClientHeight(gomock.Any(), dstClientID).Return(uint64(640), nil)

	submitted := make(chan *relay.RelayTx, 1)
	f.srcClient.EXPECT().SubmitTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *relay.RelayTx) (*relay.SubmitResult, error) {
			submitted <- tx
			return &relay.SubmitResult{TxHash: "BEEF", Height: 1000}, nil
		})

	f.start(t)
	f.dstEvents <- relay.PacketEvent{
		Kind:   relay.EventWriteAcknowledgement,
		Packet: packet,
		Acks:   [][]byte{ack},
		Height: 639,
	}

	select {
	case tx := <-submitted:
		require.Len(t, tx.Msgs, 1)
		assert.Equal(t, relay.ActionAck, tx.Msgs[0].Action)
		require.Len(t, tx.Msgs[0].Acks, 1)
		assert.Equal(t, ack, tx.Msgs[0].Acks[0])
	case <-time.After(5 * time.Second):
		t.Fatal("no transaction submitted")
	}
	f.settle(t)
}

func TestAlreadyRelayedSkipsProof(t *testing.T) {
	f := newFixture(t, nil)
	packet := testPacket(5, 2_000_000_000)

	f.dstClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(500), nil).AnyTimes()
	f.dstClient.EXPECT().HeaderTime(gomock.Any(), uint64(500)).
		Return(time.Unix(1_700_000_000, 0), nil).AnyTimes()
	// receipt already written: the prover must never be consulted and
	// nothing may be submitted (no expectations registered for either)
	f.dstClient.EXPECT().HasPacketReceipt(gomock.Any(), srcClientID, uint64(5)).
		Return(true, nil)

	f.start(t)
	f.srcEvents <- relay.PacketEvent{Kind: relay.EventSendPacket, Packet: packet, Height: 490}
	f.settle(t)

	assert.Empty(t, f.storage.tasksInState(relay.StateFailed))
}

func TestRetryableSubmitFailureRetries(t *testing.T) {
	f := newFixture(t, nil)
	packet := testPacket(9, 2_000_000_000)

	f.dstClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(500), nil).AnyTimes()
	f.dstClient.EXPECT().HeaderTime(gomock.Any(), uint64(500)).
		Return(time.Unix(1_700_000_000, 0), nil).AnyTimes()
	f.dstClient.EXPECT().HasPacketReceipt(gomock.Any(), srcClientID, uint64(9)).
		Return(false, nil).Times(2)
	f.srcClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(200), nil).Times(2)
	// proofs are height-bound and fetched fresh on every attempt
	f.srcProver.EXPECT().
		MembershipProof(gomock.Any(), "commitments/08-groth16-0/9", uint64(200)).
		Return(&relay.ProofBundle{Height: 200, Proof: []byte{0x05}, ProofType: relay.ProofTypeMerkle}, nil).
		Times(2)
	f.dstClient.EXPECT().ClientHeight(gomock.Any(), srcClientID).Return(uint64(200), nil).Times(2)

	submitted := make(chan *relay.RelayTx, 2)
	first := f.dstClient.EXPECT().SubmitTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *relay.RelayTx) (*relay.SubmitResult, error) {
			submitted <- tx
			return nil, fmt.Errorf("broadcast: %w", relay.ErrSubmissionRaced)
		})
	f.dstClient.EXPECT().SubmitTx(gomock.Any(), gomock.Any()).After(first).
		DoAndReturn(func(_ context.Context, tx *relay.RelayTx) (*relay.SubmitResult, error) {
			submitted <- tx
			return &relay.SubmitResult{TxHash: "0xdef", Height: 502}, nil
		})

	f.start(t)
	f.srcEvents <- relay.PacketEvent{Kind: relay.EventSendPacket, Packet: packet, Height: 198}
	f.settle(t)

	require.Len(t, submitted, 2)
	assert.Empty(t, f.storage.tasksInState(relay.StateFailed))
}

func TestPermanentFailureRecorded(t *testing.T) {
	f := newFixture(t, nil)
	packet := testPacket(11, 2_000_000_000)

	f.dstClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(500), nil).AnyTimes()
	f.dstClient.EXPECT().HeaderTime(gomock.Any(), uint64(500)).
		Return(time.Unix(1_700_000_000, 0), nil).AnyTimes()
	f.dstClient.EXPECT().HasPacketReceipt(gomock.Any(), srcClientID, uint64(11)).
		Return(false, nil)
	f.srcClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(300), nil)
	f.srcProver.EXPECT().
		MembershipProof(gomock.Any(), "commitments/08-groth16-0/11", uint64(300)).
		Return(&relay.ProofBundle{Height: 300, Proof: []byte{0x06}, ProofType: relay.ProofTypeMerkle}, nil)
	f.dstClient.EXPECT().ClientHeight(gomock.Any(), srcClientID).Return(uint64(250), nil)
	// the client cannot be advanced: permanent, no retry loop
	f.srcProver.EXPECT().UpdateProof(gomock.Any(), uint64(250), uint64(300)).
		Return(nil, fmt.Errorf("light block gap: %w", relay.ErrClientUpdateUnavailable))

	f.start(t)
	f.srcEvents <- relay.PacketEvent{Kind: relay.EventSendPacket, Packet: packet, Height: 298}
	f.settle(t)

	failed := f.storage.tasksInState(relay.StateFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, uint64(11), failed[0].Key.Sequence)
	assert.Equal(t, relay.ActionRecv, failed[0].Key.Action)
	assert.Contains(t, failed[0].LastError, "light block gap")
}

func TestDuplicateDiscoveryIsDeduped(t *testing.T) {
	f := newFixture(t, nil)
	packet := testPacket(13, 2_000_000_000)

	f.dstClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(500), nil).AnyTimes()
	f.dstClient.EXPECT().HeaderTime(gomock.Any(), uint64(500)).
		Return(time.Unix(1_700_000_000, 0), nil).AnyTimes()

	proceed := make(chan struct{})
	f.dstClient.EXPECT().HasPacketReceipt(gomock.Any(), srcClientID, uint64(13)).
		DoAndReturn(func(context.Context, string, uint64) (bool, error) {
			// hold the first task in flight until the duplicate arrives
			<-proceed
			return false, nil
		})
	f.srcClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(400), nil)
	f.srcProver.EXPECT().
		MembershipProof(gomock.Any(), "commitments/08-groth16-0/13", uint64(400)).
		Return(&relay.ProofBundle{Height: 400, Proof: []byte{0x07}, ProofType: relay.ProofTypeMerkle}, nil)
	f.dstClient.EXPECT().ClientHeight(gomock.Any(), srcClientID).Return(uint64(400), nil)
	f.dstClient.EXPECT().SubmitTx(gomock.Any(), gomock.Any()).
		Return(&relay.SubmitResult{TxHash: "0x111", Height: 501}, nil).
		Times(1)

	f.start(t)
	// discover directly so the duplicates are admitted (and rejected) before
	// the first task is allowed past its receipt check
	ev := relay.PacketEvent{Kind: relay.EventSendPacket, Packet: packet, Height: 398}
	f.orch.Discover(context.Background(), ev)
	require.Equal(t, 1, f.orch.InflightCount())
	f.orch.Discover(context.Background(), ev)
	f.orch.Discover(context.Background(), ev)
	require.Equal(t, 1, f.orch.InflightCount())
	close(proceed)
	f.settle(t)
}

func TestTransientClassifyFailureStillRelays(t *testing.T) {
	f := newFixture(t, nil)
	packet := testPacket(19, 2_000_000_000)

	// the destination clock probe fails once; the event must survive it
	first := f.dstClient.EXPECT().LatestHeight(gomock.Any()).
		Return(uint64(0), fmt.Errorf("fetch latest header: %w", relay.ErrHeightNotAvailable))
	f.dstClient.EXPECT().LatestHeight(gomock.Any()).After(first).
		Return(uint64(500), nil).AnyTimes()
	f.dstClient.EXPECT().HeaderTime(gomock.Any(), uint64(500)).
		Return(time.Unix(1_700_000_000, 0), nil).AnyTimes()

	f.dstClient.EXPECT().HasPacketReceipt(gomock.Any(), srcClientID, uint64(19)).
		Return(false, nil)
	f.srcClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(120), nil)
	f.srcProver.EXPECT().
		MembershipProof(gomock.Any(), "commitments/08-groth16-0/19", uint64(120)).
		Return(&relay.ProofBundle{Height: 120, Proof: []byte{0x08}, ProofType: relay.ProofTypeMerkle}, nil)
	f.dstClient.EXPECT().ClientHeight(gomock.Any(), srcClientID).Return(uint64(120), nil)

	submitted := make(chan *relay.RelayTx, 1)
	f.dstClient.EXPECT().SubmitTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *relay.RelayTx) (*relay.SubmitResult, error) {
			submitted <- tx
			return &relay.SubmitResult{TxHash: "0x222", Height: 501}, nil
		})

	f.start(t)
	f.srcEvents <- relay.PacketEvent{Kind: relay.EventSendPacket, Packet: packet, Height: 118}

	select {
	case tx := <-submitted:
		require.Len(t, tx.Msgs, 1)
		assert.Equal(t, relay.ActionRecv, tx.Msgs[0].Action)
	case <-time.After(5 * time.Second):
		t.Fatal("no transaction submitted")
	}
	f.settle(t)
	assert.Empty(t, f.storage.tasksInState(relay.StateFailed))
}

func TestProverFailureRetriesAndCountsAttempts(t *testing.T) {
	f := newFixture(t, nil)
	packet := testPacket(17, 2_000_000_000)

	f.dstClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(500), nil).AnyTimes()
	f.dstClient.EXPECT().HeaderTime(gomock.Any(), uint64(500)).
		Return(time.Unix(1_700_000_000, 0), nil).AnyTimes()
	f.dstClient.EXPECT().HasPacketReceipt(gomock.Any(), srcClientID, uint64(17)).
		Return(false, nil).Times(2)
	f.srcClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(320), nil).Times(2)
	// prover hiccups once, then delivers; the task must record both attempts
	firstProof := f.srcProver.EXPECT().
		MembershipProof(gomock.Any(), "commitments/08-groth16-0/17", uint64(320)).
		Return(nil, fmt.Errorf("circuit backlog: %w", relay.ErrProverUnavailable))
	f.srcProver.EXPECT().
		MembershipProof(gomock.Any(), "commitments/08-groth16-0/17", uint64(320)).
		After(firstProof).
		Return(&relay.ProofBundle{Height: 320, Proof: []byte{0x09}, ProofType: relay.ProofTypeMerkle}, nil)
	f.dstClient.EXPECT().ClientHeight(gomock.Any(), srcClientID).Return(uint64(320), nil)
	f.dstClient.EXPECT().SubmitTx(gomock.Any(), gomock.Any()).
		Return(&relay.SubmitResult{TxHash: "0x333", Height: 502}, nil)

	f.start(t)
	f.srcEvents <- relay.PacketEvent{Kind: relay.EventSendPacket, Packet: packet, Height: 318}
	f.settle(t)

	key := relay.TaskKey{ClientID: dstClientID, Sequence: 17, Action: relay.ActionRecv}
	rec, ok := f.storage.lastSaved(key)
	require.True(t, ok)
	assert.Equal(t, uint(2), rec.Attempts)
	// the confirmed task leaves no live record behind
	_, live, err := f.storage.GetTask(key)
	require.NoError(t, err)
	assert.False(t, live)
}

func TestShutdownPreservesSubmittedState(t *testing.T) {
	f := newFixture(t, nil)
	packet := testPacket(23, 2_000_000_000)

	f.dstClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(500), nil).AnyTimes()
	f.dstClient.EXPECT().HeaderTime(gomock.Any(), uint64(500)).
		Return(time.Unix(1_700_000_000, 0), nil).AnyTimes()
	f.dstClient.EXPECT().HasPacketReceipt(gomock.Any(), srcClientID, uint64(23)).
		Return(false, nil)
	f.srcClient.EXPECT().LatestHeight(gomock.Any()).Return(uint64(120), nil)
	f.srcProver.EXPECT().
		MembershipProof(gomock.Any(), "commitments/08-groth16-0/23", uint64(120)).
		Return(&relay.ProofBundle{Height: 120, Proof: []byte{0x0a}, ProofType: relay.ProofTypeMerkle}, nil)
	f.dstClient.EXPECT().ClientHeight(gomock.Any(), srcClientID).Return(uint64(120), nil)

	entered := make(chan struct{})
	f.dstClient.EXPECT().SubmitTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *relay.RelayTx) (*relay.SubmitResult, error) {
			close(entered)
			<-ctx.Done()
			return nil, ctx.Err()
		})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.orch.Run(ctx) }()

	f.srcEvents <- relay.PacketEvent{Kind: relay.EventSendPacket, Packet: packet, Height: 118}
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("transaction never reached broadcast")
	}
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not stop")
	}
	f.settle(t)

	// the interrupted task must come back as submitted so a restart's
	// reconcile can check whether the broadcast landed
	key := relay.TaskKey{ClientID: dstClientID, Sequence: 23, Action: relay.ActionRecv}
	rec, ok, err := f.storage.GetTask(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, relay.StateSubmitted, rec.State)
	assert.Empty(t, f.storage.tasksInState(relay.StateFailed))
}

func TestReconcileDropsLandedSubmissions(t *testing.T) {
	f := newFixture(t, nil)

	landed := relay.StoredTask{
		Key:       relay.TaskKey{ClientID: dstClientID, Sequence: 21, Action: relay.ActionRecv},
		State:     relay.StateSubmitted,
		Attempts:  1,
		UpdatedAt: time.Now(),
	}
	stale := relay.StoredTask{
		Key:       relay.TaskKey{ClientID: dstClientID, Sequence: 22, Action: relay.ActionAck},
		State:     relay.StateSubmitted,
		Attempts:  2,
		UpdatedAt: time.Now(),
	}
	require.NoError(t, f.storage.SaveTask(landed))
	require.NoError(t, f.storage.SaveTask(stale))

	// seq 21 was received before the restart, seq 22's ack never landed
	f.dstClient.EXPECT().HasPacketReceipt(gomock.Any(), srcClientID, uint64(21)).
		Return(true, nil)
	f.srcClient.EXPECT().PacketCommitment(gomock.Any(), dstClientID, uint64(22)).
		Return([]byte{0xbb}, nil)

	f.start(t)
	require.Eventually(t, func() bool {
		_, ok, _ := f.storage.GetTask(landed.Key)
		return !ok
	}, 5*time.Second, 2*time.Millisecond)

	rec, ok, err := f.storage.GetTask(stale.Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, relay.StateDiscovered, rec.State)
}
