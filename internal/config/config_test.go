package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/interchainlabs/eureka-relayer/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RELAYER_COSMOSCHAIN_CHAIN_ID", "cosmoshub-4")
	t.Setenv("RELAYER_COSMOSCHAIN_CLIENT_ID", "08-groth16-0")
	t.Setenv("RELAYER_ETHCHAIN_CHAIN_ID", "1")
	t.Setenv("RELAYER_ETHCHAIN_CONTRACT", "0x1111111111111111111111111111111111111111")
	t.Setenv("RELAYER_ETHCHAIN_CLIENT_ID", "07-tendermint-0")
}

func TestConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.NewEurekaRelayerConfig()
	require.NoError(t, err)

	require.Equal(t, "cosmoshub-4", cfg.CosmosChain.ChainID)
	require.Equal(t, "tcp://127.0.0.1:26657", cfg.CosmosChain.RPCAddress)
	require.Equal(t, "cosmos", cfg.CosmosChain.AccountPrefix)
	require.Equal(t, "mock", cfg.Prover.Mode)
	require.Equal(t, ":9999", cfg.ListenAddr)
	require.Equal(t, 8, cfg.MaxBatchSize)
	require.Equal(t, int64(4), cfg.ProverCapacity)
}

func TestConfigRejectsChannelIdentifier(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RELAYER_ETHCHAIN_CLIENT_ID", "channel-0")

	_, err := config.NewEurekaRelayerConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "channel identifier")
}

func TestConfigNetworkProverNeedsCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RELAYER_PROVER_MODE", "network-groth16")
	t.Setenv("RELAYER_PROVER_ENDPOINT", "https://prover.example.com")

	_, err := config.NewEurekaRelayerConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "NETWORK_PRIVATE_KEY")

	t.Setenv("NETWORK_PRIVATE_KEY", "deadbeef")
	cfg, err := config.NewEurekaRelayerConfig()
	require.NoError(t, err)
	require.Equal(t, "deadbeef", cfg.Prover.PrivateKey)
}

func TestConfigUnknownProverMode(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RELAYER_PROVER_MODE", "cuda")

	_, err := config.NewEurekaRelayerConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown prover mode")
}
