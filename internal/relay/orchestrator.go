package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/interchainlabs/eureka-relayer/internal/codec"
	"github.com/interchainlabs/eureka-relayer/internal/metrics"
)

// Endpoint bundles the chain client and proof provider of one side of a
// relayed pair.
type Endpoint struct {
	Client ChainClient
	Prover ProofProvider
	Events EventSource
}

// Orchestrator drives the relay state machine for one chain pair direction:
// it consumes discovered source-chain events, requests proofs, assembles
// relay transactions and submits them with retry and failure handling.
type Orchestrator struct {
	cfg     PairConfig
	src     Endpoint
	dst     Endpoint
	storage Storage
	logger  *zap.Logger

	// gate bounds concurrent proof generation; shared across all tasks of
	// this orchestrator (optionally across orchestrators).
	gate *semaphore.Weighted

	mu       sync.Mutex
	inflight map[TaskKey]*RelayTask
	pktLocks map[PacketKey]*sync.Mutex
	pktRefs  map[PacketKey]int

	toSrc *batcher
	toDst *batcher
}

// NewOrchestrator builds an orchestrator bound to exactly one PairConfig.
// gate may be shared between orchestrators to rate-limit a common prover.
func NewOrchestrator(cfg PairConfig, src, dst Endpoint, storage Storage, gate *semaphore.Weighted, logger *zap.Logger) *Orchestrator {
	if gate == nil {
		capacity := cfg.ProverCapacity
		if capacity <= 0 {
			capacity = 4
		}
		gate = semaphore.NewWeighted(capacity)
	}
	return &Orchestrator{
		cfg:      cfg,
		src:      src,
		dst:      dst,
		storage:  storage,
		logger:   logger,
		gate:     gate,
		inflight: make(map[TaskKey]*RelayTask),
		pktLocks: make(map[PacketKey]*sync.Mutex),
		pktRefs:  make(map[PacketKey]int),
		toSrc:    newBatcher(src.Client, cfg.MaxBatchSize, cfg.FlushInterval, logger.Named("batcher_src")),
		toDst:    newBatcher(dst.Client, cfg.MaxBatchSize, cfg.FlushInterval, logger.Named("batcher_dst")),
	}
}

// SourceChainID returns the source chain this orchestrator watches.
func (o *Orchestrator) SourceChainID() string { return o.cfg.SourceChainID }

// DestChainID returns the destination chain this orchestrator submits to.
func (o *Orchestrator) DestChainID() string { return o.cfg.DestChainID }

// Run subscribes to both chains and relays until the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.reconcile(ctx); err != nil {
		return fmt.Errorf("reconcile persisted tasks: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.toSrc.run(ctx) })
	g.Go(func() error { return o.toDst.run(ctx) })
	g.Go(func() error { return o.watch(ctx, o.src) })
	g.Go(func() error { return o.watch(ctx, o.dst) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// reconcile inspects tasks left in Submitted state by a previous run. If the
// destination shows the packet as processed the record is closed; otherwise
// it is demoted to Discovered so rediscovery is not short-circuited by a
// stale in-flight marker.
func (o *Orchestrator) reconcile(ctx context.Context) error {
	pending, err := o.storage.SubmittedTasks()
	if err != nil {
		return err
	}
	for _, rec := range pending {
		processed, err := o.submittedTaskLanded(ctx, rec)
		if err != nil {
			o.logger.Warn("could not reconcile submitted task, keeping record",
				zap.String("task", rec.Key.String()), zap.Error(err))
			continue
		}
		if processed {
			o.logger.Info("submitted task landed before restart", zap.String("task", rec.Key.String()))
			if err := o.storage.DeleteTask(rec.Key); err != nil {
				return err
			}
			continue
		}
		rec.State = StateDiscovered
		rec.UpdatedAt = time.Now()
		if err := o.storage.SaveTask(rec); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) submittedTaskLanded(ctx context.Context, rec StoredTask) (bool, error) {
	switch rec.Key.Action {
	case ActionRecv:
		return o.dst.Client.HasPacketReceipt(ctx, o.cfg.SourceClientID, rec.Key.Sequence)
	case ActionAck, ActionTimeout:
		commitment, err := o.src.Client.PacketCommitment(ctx, rec.Key.ClientID, rec.Key.Sequence)
		if err != nil {
			return false, err
		}
		return commitment == nil, nil
	default:
		return false, fmt.Errorf("unknown action %q", rec.Key.Action)
	}
}

func (o *Orchestrator) watch(ctx context.Context, ep Endpoint) error {
	if ep.Events == nil {
		return nil
	}
	events, err := ep.Events.SubscribeEvents(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to %s events: %w", ep.Client.ChainID(), err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("event stream from %s closed", ep.Client.ChainID())
			}
			o.Discover(ctx, ev)
		}
	}
}

// Discover classifies a raw packet event into a relay task and starts
// processing it. Duplicate discoveries for an in-flight key are ignored.
func (o *Orchestrator) Discover(ctx context.Context, ev PacketEvent) {
	task, err := o.classify(ctx, ev)
	if err != nil {
		// the scanner has already advanced past this event, so dropping it
		// here loses the packet; classification gets its own retry budget
		o.logger.Warn("event classification failed, retrying",
			zap.String("kind", string(ev.Kind)), zap.Error(err))
		go o.reclassify(ctx, ev)
		return
	}
	o.start(ctx, task)
}

func (o *Orchestrator) reclassify(ctx context.Context, ev PacketEvent) {
	var task *RelayTask
	err := retry.Do(
		func() error {
			var err error
			task, err = o.classify(ctx, ev)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(o.cfg.MaxAttempts),
		retry.Delay(o.cfg.RetryBaseDelay),
		retry.MaxDelay(o.cfg.RetryMaxDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		o.logger.Error("dropping event after classification retries",
			zap.String("kind", string(ev.Kind)), zap.Uint64("sequence", ev.Packet.Sequence),
			zap.Error(err))
		return
	}
	o.start(ctx, task)
}

func (o *Orchestrator) start(ctx context.Context, task *RelayTask) {
	if task == nil {
		return
	}
	if !o.admit(task) {
		o.logger.Debug("task already in flight", zap.String("task", task.Key().String()))
		return
	}
	go func() {
		defer o.release(task)
		o.process(ctx, task)
	}()
}

// classify turns an observed event into at most one task. A send whose
// timeout has already passed on the destination clock becomes a timeout
// task; otherwise a recv task. Write-acks become ack tasks.
func (o *Orchestrator) classify(ctx context.Context, ev PacketEvent) (*RelayTask, error) {
	switch ev.Kind {
	case EventSendPacket:
		action := ActionRecv
		expired, err := o.packetExpired(ctx, ev.Packet)
		if err != nil {
			return nil, err
		}
		if expired {
			action = ActionTimeout
		}
		return &RelayTask{
			Packet:             ev.Packet,
			Action:             action,
			SourceChain:        o.cfg.SourceChainID,
			DestChain:          o.cfg.DestChainID,
			DiscoveredAtHeight: ev.Height,
			State:              StateDiscovered,
		}, nil
	case EventWriteAcknowledgement:
		return &RelayTask{
			Packet:             ev.Packet,
			Action:             ActionAck,
			SourceChain:        o.cfg.SourceChainID,
			DestChain:          o.cfg.DestChainID,
			DiscoveredAtHeight: ev.Height,
			Acks:               ev.Acks,
			State:              StateDiscovered,
		}, nil
	default:
		// recv/timeout/acknowledge events close lifecycles we do not act on
		return nil, nil
	}
}

// packetExpired compares the packet timeout against the destination chain's
// consensus clock, not the local wall clock.
func (o *Orchestrator) packetExpired(ctx context.Context, p codec.Packet) (bool, error) {
	height, err := o.dst.Client.LatestHeight(ctx)
	if err != nil {
		return false, err
	}
	ts, err := o.dst.Client.HeaderTime(ctx, height)
	if err != nil {
		return false, err
	}
	return uint64(ts.Unix()) >= p.TimeoutTimestamp, nil
}

// admit reserves the task key; returns false when a task for it is already
// in flight.
func (o *Orchestrator) admit(task *RelayTask) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := task.Key()
	if _, ok := o.inflight[key]; ok {
		return false
	}
	o.inflight[key] = task
	pk := task.PacketKey()
	if _, ok := o.pktLocks[pk]; !ok {
		o.pktLocks[pk] = &sync.Mutex{}
	}
	o.pktRefs[pk]++
	metrics.SetInflightTasks(len(o.inflight))
	return true
}

func (o *Orchestrator) release(task *RelayTask) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, task.Key())
	pk := task.PacketKey()
	o.pktRefs[pk]--
	if o.pktRefs[pk] <= 0 {
		delete(o.pktRefs, pk)
		delete(o.pktLocks, pk)
	}
	metrics.SetInflightTasks(len(o.inflight))
}

// InflightCount reports the number of tasks currently owned by the
// orchestrator.
func (o *Orchestrator) InflightCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.inflight)
}

func (o *Orchestrator) packetLock(pk PacketKey) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pktLocks[pk]
}

// process runs one task to a terminal state. A poisoned task never escapes
// this function; the orchestrator keeps serving the others.
func (o *Orchestrator) process(ctx context.Context, task *RelayTask) {
	// recv, ack and timeout for the same packet never run concurrently
	if lock := o.packetLock(task.PacketKey()); lock != nil {
		lock.Lock()
		defer lock.Unlock()
	}

	logger := o.logger.With(zap.String("task", task.Key().String()))
	err := retry.Do(
		func() error { return o.attempt(ctx, task) },
		retry.Context(ctx),
		retry.Attempts(o.cfg.MaxAttempts),
		retry.Delay(o.cfg.RetryBaseDelay),
		retry.MaxDelay(o.cfg.RetryMaxDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return IsRetryable(err) }),
		retry.OnRetry(func(n uint, err error) {
			metrics.IncTaskRetry(string(task.Action))
			logger.Info("task attempt failed, backing off",
				zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)

	switch {
	case err == nil:
		o.finishTask(task, StateConfirmed, nil)
		metrics.IncTaskTerminal(string(task.Action), "confirmed")
		logger.Info("task confirmed", zap.Uint("attempts", task.Attempts))
	case errors.Is(err, ErrAlreadyRelayed):
		// not a failure: a competing relayer or an earlier run delivered it
		o.finishTask(task, StateConfirmed, nil)
		metrics.IncTaskTerminal(string(task.Action), "already_relayed")
		logger.Info("packet already relayed, dropping task")
	case ctx.Err() != nil:
		// shutdown, not exhaustion: keep the last persisted state so the
		// next run's reconcile re-checks the task against chain state
		logger.Info("task interrupted by shutdown",
			zap.String("state", string(task.State)), zap.Error(err))
	default:
		// retryable errors that exhausted the attempt cap become permanent
		// and are reported, never silently dropped
		task.LastErr = err
		o.failTask(task, err)
		metrics.IncTaskTerminal(string(task.Action), "failed")
		logger.Error("task permanently failed",
			zap.Uint("attempts", task.Attempts), zap.Error(err))
	}
}

// attempt drives one pass of the state machine. Proofs are requested fresh
// on every attempt: they are height-bound and not reusable across retries.
func (o *Orchestrator) attempt(ctx context.Context, task *RelayTask) error {
	task.Attempts++

	// idempotent short-circuit before any proof work
	relayed, err := o.alreadyRelayed(ctx, task)
	if err != nil {
		return err
	}
	if relayed {
		return ErrAlreadyRelayed
	}

	if err := o.setState(task, StateProofRequested, ""); err != nil {
		return err
	}

	item, err := o.buildBatchItem(ctx, task)
	if err != nil {
		return err
	}
	if err := o.setState(task, StateProofReady, ""); err != nil {
		return err
	}

	target := o.submitTarget(task.Action)
	if err := o.setState(task, StateSubmitted, ""); err != nil {
		return err
	}
	if err := target.enqueue(ctx, item); err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) alreadyRelayed(ctx context.Context, task *RelayTask) (bool, error) {
	p := task.Packet
	switch task.Action {
	case ActionRecv:
		return o.dst.Client.HasPacketReceipt(ctx, p.DestClient, p.Sequence)
	case ActionAck:
		commitment, err := o.src.Client.PacketCommitment(ctx, p.SourceClient, p.Sequence)
		if err != nil {
			return false, err
		}
		return commitment == nil, nil
	case ActionTimeout:
		commitment, err := o.src.Client.PacketCommitment(ctx, p.SourceClient, p.Sequence)
		if err != nil {
			return false, err
		}
		if commitment == nil {
			return true, nil
		}
		received, err := o.dst.Client.HasPacketReceipt(ctx, p.DestClient, p.Sequence)
		if err != nil {
			return false, err
		}
		if received {
			// delivered after all; the ack path will clean the commitment up
			return true, nil
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown action %q", task.Action)
	}
}

// buildBatchItem fetches the proof bundle and, when the target client is
// behind, the client update required next to it.
func (o *Orchestrator) buildBatchItem(ctx context.Context, task *RelayTask) (*batchItem, error) {
	proofFrom, submitTo := o.route(task.Action)
	p := task.Packet

	proofHeight, err := proofFrom.Client.LatestHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("query %s latest height: %w", proofFrom.Client.ChainID(), err)
	}

	if err := o.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer o.gate.Release(1)

	proofCtx := ctx
	if o.cfg.ProofTimeout > 0 {
		var cancel context.CancelFunc
		proofCtx, cancel = context.WithTimeout(ctx, o.cfg.ProofTimeout)
		defer cancel()
	}

	start := time.Now()
	var bundle *ProofBundle
	switch task.Action {
	case ActionRecv:
		path := codec.DerivePath(codec.RoleCommitment, p.SourceClient, p.Sequence)
		bundle, err = proofFrom.Prover.MembershipProof(proofCtx, path, proofHeight)
	case ActionAck:
		path := codec.DerivePath(codec.RoleAcknowledgement, p.DestClient, p.Sequence)
		bundle, err = proofFrom.Prover.MembershipProof(proofCtx, path, proofHeight)
	case ActionTimeout:
		path := codec.DerivePath(codec.RoleReceipt, p.DestClient, p.Sequence)
		bundle, err = proofFrom.Prover.NonMembershipProof(proofCtx, path, proofHeight)
	default:
		return nil, fmt.Errorf("unknown action %q", task.Action)
	}
	if err != nil {
		metrics.ObserveProofDuration(proofFrom.Client.ChainID(), false, time.Since(start).Seconds())
		return nil, fmt.Errorf("fetch %s proof at height %d: %w", task.Action, proofHeight, err)
	}
	metrics.ObserveProofDuration(proofFrom.Client.ChainID(), true, time.Since(start).Seconds())

	clientID := o.targetClientID(task.Action)
	update, err := o.clientUpdateIfBehind(ctx, submitTo, proofFrom, clientID, bundle.Height)
	if err != nil {
		return nil, err
	}

	return &batchItem{
		msg: RelayMsg{
			Action: task.Action,
			Packet: p,
			Acks:   task.Acks,
			Proof:  *bundle,
		},
		clientID: clientID,
		update:   update,
		resp:     make(chan error, 1),
	}, nil
}

func (o *Orchestrator) clientUpdateIfBehind(ctx context.Context, submitTo, proofFrom Endpoint, clientID string, proofHeight uint64) (*UpdateProof, error) {
	trusted, err := submitTo.Client.ClientHeight(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("query client %s height on %s: %w", clientID, submitTo.Client.ChainID(), err)
	}
	if trusted >= proofHeight {
		return nil, nil
	}
	update, err := proofFrom.Prover.UpdateProof(ctx, trusted, proofHeight)
	if err != nil {
		return nil, fmt.Errorf("build client update %d -> %d: %w", trusted, proofHeight, err)
	}
	return update, nil
}

// route returns (proof source, submission target) endpoints for an action:
// recv proves on the source and submits to the destination; ack and timeout
// prove on the destination and submit back to the source.
func (o *Orchestrator) route(action Action) (proofFrom, submitTo Endpoint) {
	if action == ActionRecv {
		return o.src, o.dst
	}
	return o.dst, o.src
}

// targetClientID is the light client updated on the submission target.
func (o *Orchestrator) targetClientID(action Action) string {
	if action == ActionRecv {
		return o.cfg.SourceClientID
	}
	return o.cfg.DestClientID
}

func (o *Orchestrator) submitTarget(action Action) *batcher {
	if action == ActionRecv {
		return o.toDst
	}
	return o.toSrc
}

func (o *Orchestrator) setState(task *RelayTask, state TaskState, txHash string) error {
	task.State = state
	rec := StoredTask{
		Key:       task.Key(),
		State:     state,
		Attempts:  task.Attempts,
		TxHash:    txHash,
		UpdatedAt: time.Now(),
	}
	if err := o.storage.SaveTask(rec); err != nil {
		return fmt.Errorf("persist task state %s: %w", state, err)
	}
	return nil
}

func (o *Orchestrator) finishTask(task *RelayTask, state TaskState, err error) {
	task.State = state
	if dbErr := o.storage.DeleteTask(task.Key()); dbErr != nil {
		o.logger.Warn("failed to drop finished task record",
			zap.String("task", task.Key().String()), zap.Error(dbErr))
	}
}

func (o *Orchestrator) failTask(task *RelayTask, cause error) {
	task.State = StateFailed
	rec := StoredTask{
		Key:       task.Key(),
		State:     StateFailed,
		Attempts:  task.Attempts,
		LastError: cause.Error(),
		UpdatedAt: time.Now(),
	}
	if dbErr := o.storage.SaveTask(rec); dbErr != nil {
		o.logger.Warn("failed to persist task failure",
			zap.String("task", task.Key().String()), zap.Error(dbErr))
	}
}
