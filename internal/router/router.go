// Package router owns the orchestrators of all configured chain pairs and
// dispatches operator requests to the right one.
package router

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/interchainlabs/eureka-relayer/internal/relay"
)

// pairKey routes by source and destination chain identity.
type pairKey struct {
	src string
	dst string
}

// Router holds one orchestrator per relayed direction.
type Router struct {
	mu    sync.RWMutex
	pairs map[pairKey]*relay.Orchestrator
}

func New() *Router {
	return &Router{pairs: make(map[pairKey]*relay.Orchestrator)}
}

// Register adds an orchestrator for its source/destination direction.
// Duplicate registrations are an error: two orchestrators racing on one
// direction would double-submit.
func (r *Router) Register(o *relay.Orchestrator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey{src: o.SourceChainID(), dst: o.DestChainID()}
	if _, ok := r.pairs[key]; ok {
		return fmt.Errorf("pair %s -> %s already registered", key.src, key.dst)
	}
	r.pairs[key] = o
	return nil
}

func (r *Router) lookup(srcChain, dstChain string) (*relay.Orchestrator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.pairs[pairKey{src: srcChain, dst: dstChain}]
	if !ok {
		return nil, fmt.Errorf("no relay pair configured for %s -> %s", srcChain, dstChain)
	}
	return o, nil
}

// Run starts every registered orchestrator and blocks until the context is
// cancelled or one of them fails.
func (r *Router) Run(ctx context.Context) error {
	r.mu.RLock()
	orchestrators := make([]*relay.Orchestrator, 0, len(r.pairs))
	for _, o := range r.pairs {
		orchestrators = append(orchestrators, o)
	}
	r.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, o := range orchestrators {
		o := o
		g.Go(func() error { return o.Run(ctx) })
	}
	return g.Wait()
}

// RelayByTx builds (without submitting) the relay transaction for the packet
// events found in the given transactions of the pair's source chain.
// timeoutTxIDs name destination-chain transactions whose sends timed out.
func (r *Router) RelayByTx(ctx context.Context, srcChain, dstChain string, srcTxIDs, timeoutTxIDs []string) (*relay.BuiltTx, error) {
	o, err := r.lookup(srcChain, dstChain)
	if err != nil {
		return nil, err
	}
	return o.BuildRelayTx(ctx, srcTxIDs, timeoutTxIDs)
}

// CreateClient builds the transaction that instantiates on dstChain a light
// client tracking srcChain.
func (r *Router) CreateClient(ctx context.Context, srcChain, dstChain string, params map[string]string) (*relay.BuiltTx, error) {
	o, err := r.lookup(srcChain, dstChain)
	if err != nil {
		return nil, err
	}
	return o.BuildCreateClientTx(ctx, params)
}

// PacketStatus proxies a read-only packet lifecycle query to the chain
// adapters of the matched pair.
func (r *Router) PacketStatus(ctx context.Context, srcChain, dstChain string, sequence uint64) (*relay.PacketStatus, error) {
	o, err := r.lookup(srcChain, dstChain)
	if err != nil {
		return nil, err
	}
	return o.PacketStatus(ctx, sequence)
}

// Info reports the wiring and live state of every registered pair.
func (r *Router) Info() []relay.Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]relay.Info, 0, len(r.pairs))
	for _, o := range r.pairs {
		out = append(out, o.PairInfo())
	}
	return out
}
