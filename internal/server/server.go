// Package server exposes the relayer's operator API over HTTP: transaction
// building endpoints, pair info, prometheus metrics and a liveness probe.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/interchainlabs/eureka-relayer/internal/metrics"
	"github.com/interchainlabs/eureka-relayer/internal/router"
)

// Server serves the JSON API for a running router.
type Server struct {
	router *router.Router
	logger *zap.Logger
	http   *http.Server
}

func New(rt *router.Router, listenAddr string, logger *zap.Logger) *Server {
	s := &Server{
		router: rt,
		logger: logger,
	}

	r := mux.NewRouter().StrictSlash(true)
	r.HandleFunc("/v1/relay_by_tx", s.handleRelayByTx).Methods(http.MethodPost)
	r.HandleFunc("/v1/create_client", s.handleCreateClient).Methods(http.MethodPost)
	r.HandleFunc("/v1/packet_status", s.handlePacketStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/info", s.handleInfo).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:              listenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routing table for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type relayByTxRequest struct {
	SrcChain     string   `json:"src_chain"`
	DstChain     string   `json:"dst_chain"`
	SourceTxIDs  []string `json:"source_tx_ids"`
	TimeoutTxIDs []string `json:"timeout_tx_ids"`
}

type builtTxResponse struct {
	Tx      string `json:"tx"`
	Address string `json:"address"`
}

func (s *Server) handleRelayByTx(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req relayByTxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "relay_by_tx", start, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.SrcChain == "" || req.DstChain == "" {
		s.writeError(w, "relay_by_tx", start, http.StatusBadRequest, errors.New("src_chain and dst_chain are required"))
		return
	}
	if len(req.SourceTxIDs) == 0 && len(req.TimeoutTxIDs) == 0 {
		s.writeError(w, "relay_by_tx", start, http.StatusBadRequest, errors.New("no transaction ids given"))
		return
	}

	built, err := s.router.RelayByTx(r.Context(), req.SrcChain, req.DstChain, req.SourceTxIDs, req.TimeoutTxIDs)
	if err != nil {
		s.writeError(w, "relay_by_tx", start, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, "relay_by_tx", start, builtTxResponse{
		Tx:      base64.StdEncoding.EncodeToString(built.Tx),
		Address: built.Address,
	})
}

type createClientRequest struct {
	SrcChain   string            `json:"src_chain"`
	DstChain   string            `json:"dst_chain"`
	Parameters map[string]string `json:"parameters"`
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req createClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "create_client", start, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.SrcChain == "" || req.DstChain == "" {
		s.writeError(w, "create_client", start, http.StatusBadRequest, errors.New("src_chain and dst_chain are required"))
		return
	}

	built, err := s.router.CreateClient(r.Context(), req.SrcChain, req.DstChain, req.Parameters)
	if err != nil {
		s.writeError(w, "create_client", start, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, "create_client", start, builtTxResponse{
		Tx:      base64.StdEncoding.EncodeToString(built.Tx),
		Address: built.Address,
	})
}

func (s *Server) handlePacketStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q := r.URL.Query()
	srcChain, dstChain := q.Get("src_chain"), q.Get("dst_chain")
	if srcChain == "" || dstChain == "" {
		s.writeError(w, "packet_status", start, http.StatusBadRequest, errors.New("src_chain and dst_chain are required"))
		return
	}
	sequence, err := strconv.ParseUint(q.Get("sequence"), 10, 64)
	if err != nil {
		s.writeError(w, "packet_status", start, http.StatusBadRequest, fmt.Errorf("parse sequence: %w", err))
		return
	}

	status, err := s.router.PacketStatus(r.Context(), srcChain, dstChain, sequence)
	if err != nil {
		s.writeError(w, "packet_status", start, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, "packet_status", start, status)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.writeJSON(w, "info", start, map[string]any{"pairs": s.router.Info()})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) writeJSON(w http.ResponseWriter, method string, start time.Time, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to write response", zap.String("method", method), zap.Error(err))
		metrics.AddFailedRequest(method, time.Since(start).Seconds())
		return
	}
	metrics.AddSuccessRequest(method, time.Since(start).Seconds())
}

func (s *Server) writeError(w http.ResponseWriter, method string, start time.Time, status int, err error) {
	s.logger.Warn("request failed", zap.String("method", method), zap.Error(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	metrics.AddFailedRequest(method, time.Since(start).Seconds())
}
