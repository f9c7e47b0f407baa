package relay

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/interchainlabs/eureka-relayer/internal/metrics"
)

// batchItem is one proof-ready task waiting for submission.
type batchItem struct {
	msg      RelayMsg
	clientID string
	update   *UpdateProof // nil when the target client is already fresh
	resp     chan error
}

// batchKey groups items that can share one transaction: same target client
// and same required client-update height.
type batchKey struct {
	clientID     string
	updateHeight uint64
}

// batcher coalesces proof-ready tasks into multicall transactions per
// destination chain. Submission itself is serialized by the chain client's
// signer; the batcher only bounds how much work rides on one (expensive)
// client update.
type batcher struct {
	client  ChainClient
	maxSize int
	flush   time.Duration
	logger  *zap.Logger

	in chan *batchItem
}

func newBatcher(client ChainClient, maxSize int, flush time.Duration, logger *zap.Logger) *batcher {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &batcher{
		client:  client,
		maxSize: maxSize,
		flush:   flush,
		logger:  logger,
		in:      make(chan *batchItem),
	}
}

// enqueue hands an item to the batcher and waits for the submission outcome.
func (b *batcher) enqueue(ctx context.Context, item *batchItem) error {
	select {
	case b.in <- item:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-item.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *batcher) run(ctx context.Context) error {
	pending := make(map[batchKey][]*batchItem)
	ticker := time.NewTicker(b.flush)
	defer ticker.Stop()

	flushKey := func(key batchKey) {
		items := pending[key]
		if len(items) == 0 {
			return
		}
		delete(pending, key)
		b.submit(ctx, key, items)
	}

	flushAll := func() {
		for key := range pending {
			flushKey(key)
		}
	}

	for {
		select {
		case <-ctx.Done():
			// drain: fail everything still queued so no task hangs
			for _, items := range pending {
				for _, item := range items {
					item.resp <- ctx.Err()
				}
			}
			return ctx.Err()
		case item := <-b.in:
			key := batchKey{clientID: item.clientID}
			if item.update != nil {
				key.updateHeight = item.update.TargetHeight
			}
			pending[key] = append(pending[key], item)
			if len(pending[key]) >= b.maxSize {
				flushKey(key)
			}
		case <-ticker.C:
			flushAll()
		}
	}
}

func (b *batcher) submit(ctx context.Context, key batchKey, items []*batchItem) {
	tx := &RelayTx{
		ChainID:  b.client.ChainID(),
		ClientID: key.clientID,
		Msgs:     make([]RelayMsg, 0, len(items)),
	}
	for _, item := range items {
		if tx.UpdateClient == nil && item.update != nil {
			tx.UpdateClient = item.update
		}
		tx.Msgs = append(tx.Msgs, item.msg)
	}

	start := time.Now()
	res, err := b.client.SubmitTx(ctx, tx)
	if err != nil {
		metrics.IncSubmittedTx(b.client.ChainID(), false)
		b.logger.Warn("relay tx submission failed",
			zap.String("chain_id", b.client.ChainID()),
			zap.String("client_id", key.clientID),
			zap.Int("batch_size", len(items)),
			zap.Error(err))
		for _, item := range items {
			item.resp <- fmt.Errorf("submit batch of %d msgs: %w", len(items), err)
		}
		return
	}

	metrics.IncSubmittedTx(b.client.ChainID(), true)
	metrics.ObserveSubmitDuration(b.client.ChainID(), time.Since(start).Seconds())
	b.logger.Info("relay tx confirmed",
		zap.String("chain_id", b.client.ChainID()),
		zap.String("tx_hash", res.TxHash),
		zap.Uint64("height", res.Height),
		zap.Int("batch_size", len(items)))
	for _, item := range items {
		item.resp <- nil
	}
}
