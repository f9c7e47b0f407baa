package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/interchainlabs/eureka-relayer/internal/chains/cosmos"
	"github.com/interchainlabs/eureka-relayer/internal/chains/evm"
	"github.com/interchainlabs/eureka-relayer/internal/config"
	"github.com/interchainlabs/eureka-relayer/internal/prover"
	"github.com/interchainlabs/eureka-relayer/internal/relay"
)

// DependencyContainer assembles the chain adapters and proof providers the
// orchestrators are wired with.
type DependencyContainer struct {
	cosmosClient *cosmos.Client
	evmClient    *evm.Client
	cosmosProver relay.ProofProvider
	evmProver    relay.ProofProvider

	// gate bounds total concurrent proof generation across both relay
	// directions.
	gate *semaphore.Weighted
}

func NewDefaultDependencyContainer(ctx context.Context,
	cfg config.EurekaRelayerConfig, logger *zap.Logger) (*DependencyContainer, error) {
	cosmosClient, err := cosmos.NewClient(cosmos.Config{
		ChainID:        cfg.CosmosChain.ChainID,
		RPCAddr:        cfg.CosmosChain.RPCAddress,
		AccountPrefix:  cfg.CosmosChain.AccountPrefix,
		SignerKey:      cfg.CosmosChain.SignerKey,
		GasLimit:       cfg.CosmosChain.GasLimit,
		GasDenom:       cfg.CosmosChain.GasDenom,
		GasAmount:      cfg.CosmosChain.GasAmount,
		ConfirmTimeout: cfg.CosmosChain.ConfirmTimeout,
	}, logger.Named(CosmosChainClientContext))
	if err != nil {
		return nil, fmt.Errorf("could not initialize cosmos chain client: %w", err)
	}

	evmClient, err := evm.NewClient(ctx, evm.Config{
		ChainID:        cfg.EthChain.ChainID,
		RPCAddr:        cfg.EthChain.RPCAddress,
		Contract:       cfg.EthChain.Contract,
		SignerKey:      cfg.EthChain.SignerKey,
		GasLimit:       cfg.EthChain.GasLimit,
		PollInterval:   cfg.EthChain.PollInterval,
		ConfirmTimeout: cfg.EthChain.ConfirmTimeout,
	}, logger.Named(EthChainClientContext))
	if err != nil {
		return nil, fmt.Errorf("could not initialize evm chain client: %w", err)
	}

	tmProver, err := prover.NewTendermint(cfg.CosmosChain.RPCAddress, cfg.CosmosChain.ChainID,
		cfg.CosmosChain.TrustingPeriod, logger.Named(CosmosProverContext))
	if err != nil {
		return nil, fmt.Errorf("could not initialize tendermint prover: %w", err)
	}
	// cosmos state proofs are verified by the SP1 client on the EVM side and
	// pass through the prover service first (mock mode skips the service)
	cosmosProver, err := prover.NewSP1(tmProver, prover.SP1Config{
		Endpoint:       cfg.Prover.Endpoint,
		Mode:           cfg.Prover.Mode,
		PrivateKey:     cfg.Prover.PrivateKey,
		PrivateCluster: cfg.Prover.PrivateCluster,
		PollInterval:   cfg.Prover.PollInterval,
	}, logger.Named(SP1ProverContext))
	if err != nil {
		return nil, fmt.Errorf("could not initialize sp1 prover: %w", err)
	}

	ethRPC, err := rpc.DialContext(ctx, cfg.EthChain.RPCAddress)
	if err != nil {
		return nil, fmt.Errorf("could not dial evm rpc for the prover: %w", err)
	}
	evmProver := prover.NewEthereum(ethRPC, common.HexToAddress(cfg.EthChain.Contract),
		cfg.EthChain.IBCStoreSlot, logger.Named(EthProverContext))

	return &DependencyContainer{
		cosmosClient: cosmosClient,
		evmClient:    evmClient,
		cosmosProver: cosmosProver,
		evmProver:    evmProver,
		gate:         semaphore.NewWeighted(cfg.ProverCapacity),
	}, nil
}

// CosmosEndpoint bundles the cosmos side of the pair.
func (c *DependencyContainer) CosmosEndpoint() relay.Endpoint {
	return relay.Endpoint{Client: c.cosmosClient, Prover: c.cosmosProver, Events: c.cosmosClient}
}

// EVMEndpoint bundles the EVM side of the pair.
func (c *DependencyContainer) EVMEndpoint() relay.Endpoint {
	return relay.Endpoint{Client: c.evmClient, Prover: c.evmProver, Events: c.evmClient}
}

func (c *DependencyContainer) Gate() *semaphore.Weighted {
	return c.gate
}
