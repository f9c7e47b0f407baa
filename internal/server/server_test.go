package server_test

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/interchainlabs/eureka-relayer/internal/relay"
	"github.com/interchainlabs/eureka-relayer/internal/router"
	"github.com/interchainlabs/eureka-relayer/internal/server"
	"github.com/interchainlabs/eureka-relayer/internal/storage"
	mock_relay "github.com/interchainlabs/eureka-relayer/testutil/mocks/relay"
)

type serverFixture struct {
	handler   http.Handler
	srcProver *mock_relay.MockProofProvider
	srcClient *mock_relay.MockChainClient
	dstClient *mock_relay.MockChainClient
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	srcClient := mock_relay.NewMockChainClient(ctrl)
	dstClient := mock_relay.NewMockChainClient(ctrl)
	srcProver := mock_relay.NewMockProofProvider(ctrl)
	srcClient.EXPECT().ChainID().Return("cosmoshub-4").AnyTimes()
	dstClient.EXPECT().ChainID().Return("1").AnyTimes()

	cfg := relay.PairConfig{
		SourceChainID:  "cosmoshub-4",
		DestChainID:    "1",
		SourceClientID: "07-tendermint-0",
		DestClientID:   "08-groth16-0",
	}
	orch := relay.NewOrchestrator(
		cfg,
		relay.Endpoint{Client: srcClient, Prover: srcProver},
		relay.Endpoint{Client: dstClient},
		&storage.DummyStorage{},
		nil,
		zaptest.NewLogger(t),
	)

	rt := router.New()
	require.NoError(t, rt.Register(orch))

	srv := server.New(rt, "127.0.0.1:0", zaptest.NewLogger(t))
	return &serverFixture{
		handler:   srv.Handler(),
		srcProver: srcProver,
		srcClient: srcClient,
		dstClient: dstClient,
	}
}

func (f *serverFixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestInfoListsPairs(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(http.MethodGet, "/v1/info", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Pairs []relay.Info `json:"pairs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Pairs, 1)
	require.Equal(t, "cosmoshub-4", resp.Pairs[0].SourceChainID)
	require.Equal(t, "1", resp.Pairs[0].DestChainID)
	require.Equal(t, 0, resp.Pairs[0].InflightTasks)
}

func TestRelayByTxValidation(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodPost, "/v1/relay_by_tx", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/v1/relay_by_tx", `{"src_chain":"cosmoshub-4"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/v1/relay_by_tx",
		`{"src_chain":"cosmoshub-4","dst_chain":"1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/v1/relay_by_tx",
		`{"src_chain":"osmosis-1","dst_chain":"1","source_tx_ids":["ab"]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp["error"], "no relay pair configured")
}

func TestCreateClient(t *testing.T) {
	f := newServerFixture(t)

	f.srcProver.EXPECT().InitialClientState(gomock.Any()).
		Return([]byte("client-state"), []byte("consensus-state"), nil)
	f.dstClient.EXPECT().
		EncodeCreateClientTx([]byte("client-state"), []byte("consensus-state"), map[string]string{"checksum": "ff"}).
		Return([]byte{0xde, 0xad}, nil)
	f.dstClient.EXPECT().ContractAddress().Return("0xabc")

	rec := f.do(http.MethodPost, "/v1/create_client",
		`{"src_chain":"cosmoshub-4","dst_chain":"1","parameters":{"checksum":"ff"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tx      string `json:"tx"`
		Address string `json:"address"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xde, 0xad}), resp.Tx)
	require.Equal(t, "0xabc", resp.Address)
}

func TestCreateClientUnknownPair(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(http.MethodPost, "/v1/create_client",
		`{"src_chain":"1","dst_chain":"cosmoshub-4"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPacketStatus(t *testing.T) {
	f := newServerFixture(t)

	f.srcClient.EXPECT().PacketCommitment(gomock.Any(), "08-groth16-0", uint64(5)).
		Return([]byte{0x01}, nil)
	f.dstClient.EXPECT().HasPacketReceipt(gomock.Any(), "07-tendermint-0", uint64(5)).
		Return(true, nil)
	f.dstClient.EXPECT().HasPacketAcknowledgement(gomock.Any(), "07-tendermint-0", uint64(5)).
		Return(false, nil)

	rec := f.do(http.MethodGet, "/v1/packet_status?src_chain=cosmoshub-4&dst_chain=1&sequence=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status relay.PacketStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, uint64(5), status.Sequence)
	require.True(t, status.CommitmentExists)
	require.True(t, status.ReceiptExists)
	require.False(t, status.AckExists)
}

func TestPacketStatusValidation(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/v1/packet_status?src_chain=cosmoshub-4&dst_chain=1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/v1/packet_status?src_chain=cosmoshub-4&sequence=1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
