package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/interchainlabs/eureka-relayer/internal/config"
	"github.com/interchainlabs/eureka-relayer/internal/relay"
	"github.com/interchainlabs/eureka-relayer/internal/router"
	"github.com/interchainlabs/eureka-relayer/internal/server"
	"github.com/interchainlabs/eureka-relayer/internal/storage"
)

var (
	Version = ""
	Commit  = ""
)

const (
	AppContext               = "app"
	ServerContext            = "server"
	CosmosChainClientContext = "cosmos_chain_client"
	EthChainClientContext    = "eth_chain_client"
	CosmosProverContext      = "cosmos_prover"
	EthProverContext         = "eth_prover"
	SP1ProverContext         = "sp1_prover"
	CosmosToEthContext       = "cosmos_to_eth"
	EthToCosmosContext       = "eth_to_cosmos"
)

// NewDefaultStorage returns leveldb-backed task persistence, or a no-op store
// when no path is configured. Without persistence the relayer cannot recover
// submitted tasks after a restart.
func NewDefaultStorage(cfg config.EurekaRelayerConfig, logger *zap.Logger) (relay.Storage, error) {
	if cfg.StoragePath == "" {
		logger.Warn("no storage path configured, task persistence disabled")
		return &storage.DummyStorage{}, nil
	}
	st, err := storage.NewLevelDBStorage(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb storage at %s: %w", cfg.StoragePath, err)
	}
	return st, nil
}

// NewDefaultRouter builds one orchestrator per relay direction and registers
// both on a fresh router. The storage and the proof gate are shared: leveldb
// allows a single process, and the prover capacity is a global bound.
func NewDefaultRouter(cfg config.EurekaRelayerConfig, deps *DependencyContainer,
	st relay.Storage, logger *zap.Logger) (*router.Router, error) {
	cosmosEndpoint := deps.CosmosEndpoint()
	evmEndpoint := deps.EVMEndpoint()

	shared := relay.PairConfig{
		MaxBatchSize:   cfg.MaxBatchSize,
		MaxAttempts:    cfg.MaxAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
		RetryMaxDelay:  cfg.RetryMaxDelay,
		FlushInterval:  cfg.FlushInterval,
		ProofTimeout:   cfg.ProofTimeout,
		ProverCapacity: cfg.ProverCapacity,
	}

	cosmosToEth := shared
	cosmosToEth.SourceChainID = cfg.CosmosChain.ChainID
	cosmosToEth.DestChainID = cfg.EthChain.ChainID
	cosmosToEth.SourceClientID = cfg.EthChain.ClientID
	cosmosToEth.DestClientID = cfg.CosmosChain.ClientID

	ethToCosmos := shared
	ethToCosmos.SourceChainID = cfg.EthChain.ChainID
	ethToCosmos.DestChainID = cfg.CosmosChain.ChainID
	ethToCosmos.SourceClientID = cfg.CosmosChain.ClientID
	ethToCosmos.DestClientID = cfg.EthChain.ClientID

	rt := router.New()
	if err := rt.Register(relay.NewOrchestrator(cosmosToEth, cosmosEndpoint, evmEndpoint,
		st, deps.Gate(), logger.Named(CosmosToEthContext))); err != nil {
		return nil, err
	}
	if err := rt.Register(relay.NewOrchestrator(ethToCosmos, evmEndpoint, cosmosEndpoint,
		st, deps.Gate(), logger.Named(EthToCosmosContext))); err != nil {
		return nil, err
	}
	return rt, nil
}

// NewDefaultServer serves the operator API for rt on the configured address.
func NewDefaultServer(cfg config.EurekaRelayerConfig, rt *router.Router, logger *zap.Logger) *server.Server {
	return server.New(rt, cfg.ListenAddr, logger.Named(ServerContext))
}

// Run blocks until ctx is cancelled or either the router or the API server
// fails. A failure of one cancels the other.
func Run(ctx context.Context, rt *router.Router, srv *server.Server, logger *zap.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	if err := g.Wait(); err != nil {
		logger.Error("component exited with an error", zap.Error(err))
		return err
	}
	return nil
}
