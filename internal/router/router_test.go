package router_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/interchainlabs/eureka-relayer/internal/relay"
	"github.com/interchainlabs/eureka-relayer/internal/router"
	"github.com/interchainlabs/eureka-relayer/internal/storage"
	mock_relay "github.com/interchainlabs/eureka-relayer/testutil/mocks/relay"
)

func testOrchestrator(t *testing.T, srcChain, dstChain string) *relay.Orchestrator {
	t.Helper()

	ctrl := gomock.NewController(t)
	srcClient := mock_relay.NewMockChainClient(ctrl)
	dstClient := mock_relay.NewMockChainClient(ctrl)
	srcClient.EXPECT().ChainID().Return(srcChain).AnyTimes()
	dstClient.EXPECT().ChainID().Return(dstChain).AnyTimes()

	cfg := relay.PairConfig{
		SourceChainID:  srcChain,
		DestChainID:    dstChain,
		SourceClientID: "07-tendermint-0",
		DestClientID:   "08-groth16-0",
	}
	src := relay.Endpoint{Client: srcClient}
	dst := relay.Endpoint{Client: dstClient}
	return relay.NewOrchestrator(cfg, src, dst, &storage.DummyStorage{}, nil, zaptest.NewLogger(t))
}

func TestRegisterRejectsDuplicatePair(t *testing.T) {
	r := router.New()
	require.NoError(t, r.Register(testOrchestrator(t, "cosmoshub-4", "1")))

	err := r.Register(testOrchestrator(t, "cosmoshub-4", "1"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "already registered")
}

func TestRegisterAllowsOppositeDirection(t *testing.T) {
	r := router.New()
	require.NoError(t, r.Register(testOrchestrator(t, "cosmoshub-4", "1")))
	require.NoError(t, r.Register(testOrchestrator(t, "1", "cosmoshub-4")))
	require.Len(t, r.Info(), 2)
}

func TestRelayByTxUnknownPair(t *testing.T) {
	r := router.New()
	require.NoError(t, r.Register(testOrchestrator(t, "cosmoshub-4", "1")))

	_, err := r.RelayByTx(context.Background(), "osmosis-1", "1", []string{"ab"}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no relay pair configured")

	_, err = r.CreateClient(context.Background(), "1", "osmosis-1", nil)
	require.Error(t, err)
}

func TestInfoReportsPairs(t *testing.T) {
	r := router.New()
	require.NoError(t, r.Register(testOrchestrator(t, "cosmoshub-4", "1")))
	require.NoError(t, r.Register(testOrchestrator(t, "osmosis-1", "1")))

	infos := r.Info()
	require.Len(t, infos, 2)

	sources := make(map[string]bool)
	for _, info := range infos {
		sources[info.SourceChainID] = true
		require.Equal(t, "1", info.DestChainID)
	}
	require.True(t, sources["cosmoshub-4"])
	require.True(t, sources["osmosis-1"])
}
