package prover

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/interchainlabs/eureka-relayer/internal/relay"
)

// SP1 proving modes.
const (
	ModeMock           = "mock"
	ModeNetworkGroth16 = "network-groth16"
	ModeNetworkPlonk   = "network-plonk"
)

const defaultPollInterval = 2 * time.Second

// SP1Config configures the succinct prover client.
type SP1Config struct {
	Endpoint string
	Mode     string
	// PrivateKey authenticates against the prover network. Loaded from the
	// NETWORK_PRIVATE_KEY environment variable by the config layer.
	PrivateKey string
	// PrivateCluster routes requests to a reserved proving cluster instead
	// of the shared fleet.
	PrivateCluster bool
	PollInterval   time.Duration
}

// SP1 wraps a base proof provider and compresses its raw proofs into
// succinct ones through an external SP1 prover service. In mock mode the
// service is never contacted and the raw material passes through tagged as
// mock, which the counterparty's mock client accepts without verification.
type SP1 struct {
	base   relay.ProofProvider
	cfg    SP1Config
	http   *http.Client
	logger *zap.Logger
}

// NewSP1 validates the mode and wraps base.
func NewSP1(base relay.ProofProvider, cfg SP1Config, logger *zap.Logger) (*SP1, error) {
	switch cfg.Mode {
	case ModeMock, ModeNetworkGroth16, ModeNetworkPlonk:
	default:
		return nil, fmt.Errorf("unknown sp1 mode %q", cfg.Mode)
	}
	if cfg.Mode != ModeMock && cfg.Endpoint == "" {
		return nil, fmt.Errorf("sp1 mode %q requires a prover endpoint", cfg.Mode)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &SP1{
		base:   base,
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}, nil
}

var _ relay.ProofProvider = (*SP1)(nil)

func (s *SP1) proofType() relay.ProofType {
	switch s.cfg.Mode {
	case ModeNetworkGroth16:
		return relay.ProofTypeGroth16
	case ModeNetworkPlonk:
		return relay.ProofTypePlonk
	default:
		return relay.ProofTypeMock
	}
}

func (s *SP1) MembershipProof(ctx context.Context, path string, height uint64) (*relay.ProofBundle, error) {
	raw, err := s.base.MembershipProof(ctx, path, height)
	if err != nil {
		return nil, err
	}
	return s.compress(ctx, "membership", raw)
}

func (s *SP1) NonMembershipProof(ctx context.Context, path string, height uint64) (*relay.ProofBundle, error) {
	raw, err := s.base.NonMembershipProof(ctx, path, height)
	if err != nil {
		return nil, err
	}
	return s.compress(ctx, "non-membership", raw)
}

func (s *SP1) UpdateProof(ctx context.Context, trustedHeight, targetHeight uint64) (*relay.UpdateProof, error) {
	raw, err := s.base.UpdateProof(ctx, trustedHeight, targetHeight)
	if err != nil {
		return nil, err
	}
	if s.cfg.Mode == ModeMock {
		raw.ProofType = relay.ProofTypeMock
		return raw, nil
	}
	proof, vkey, err := s.prove(ctx, "update-client", raw.Update)
	if err != nil {
		return nil, err
	}
	return &relay.UpdateProof{
		TrustedHeight: raw.TrustedHeight,
		TargetHeight:  raw.TargetHeight,
		Update:        proof,
		ProofType:     s.proofType(),
		VKey:          vkey,
	}, nil
}

func (s *SP1) InitialClientState(ctx context.Context) ([]byte, []byte, error) {
	return s.base.InitialClientState(ctx)
}

func (s *SP1) compress(ctx context.Context, kind string, raw *relay.ProofBundle) (*relay.ProofBundle, error) {
	if s.cfg.Mode == ModeMock {
		return &relay.ProofBundle{
			Height:    raw.Height,
			Proof:     raw.Proof,
			ProofType: relay.ProofTypeMock,
		}, nil
	}
	proof, vkey, err := s.prove(ctx, kind, raw.Proof)
	if err != nil {
		return nil, err
	}
	return &relay.ProofBundle{
		Height:    raw.Height,
		Proof:     proof,
		ProofType: s.proofType(),
		VKey:      vkey,
	}, nil
}

type proveRequest struct {
	Kind           string `json:"kind"`
	Mode           string `json:"mode"`
	Witness        string `json:"witness"`
	PrivateCluster bool   `json:"private_cluster,omitempty"`
}

type proveResponse struct {
	RequestID string `json:"request_id"`
}

type proofStatusResponse struct {
	Status string `json:"status"`
	Proof  string `json:"proof,omitempty"`
	VKey   string `json:"vkey,omitempty"`
	Error  string `json:"error,omitempty"`
}

// prove submits a proving request and polls until it is fulfilled or the
// context expires.
func (s *SP1) prove(ctx context.Context, kind string, witness []byte) ([]byte, string, error) {
	id, err := s.submitRequest(ctx, kind, witness)
	if err != nil {
		return nil, "", err
	}
	s.logger.Debug("sp1 proof requested",
		zap.String("kind", kind), zap.String("request_id", id))

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		status, err := s.pollRequest(ctx, id)
		if err != nil {
			return nil, "", err
		}
		switch status.Status {
		case "fulfilled":
			proof, err := base64.StdEncoding.DecodeString(status.Proof)
			if err != nil {
				return nil, "", fmt.Errorf("decode sp1 proof for request %s: %w", id, err)
			}
			return proof, status.VKey, nil
		case "unexecutable", "rejected":
			return nil, "", fmt.Errorf("sp1 request %s: %s: %w", id, status.Error, relay.ErrProofRejected)
		case "pending", "assigned", "running":
		default:
			return nil, "", fmt.Errorf("sp1 request %s in unknown status %q", id, status.Status)
		}
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *SP1) submitRequest(ctx context.Context, kind string, witness []byte) (string, error) {
	body, err := json.Marshal(proveRequest{
		Kind:           kind,
		Mode:           s.cfg.Mode,
		Witness:        base64.StdEncoding.EncodeToString(witness),
		PrivateCluster: s.cfg.PrivateCluster,
	})
	if err != nil {
		return "", err
	}
	var out proveResponse
	if err := s.doJSON(ctx, http.MethodPost, s.cfg.Endpoint+"/v1/prove", body, &out); err != nil {
		return "", err
	}
	if out.RequestID == "" {
		return "", fmt.Errorf("sp1 service returned no request id")
	}
	return out.RequestID, nil
}

func (s *SP1) pollRequest(ctx context.Context, id string) (*proofStatusResponse, error) {
	var out proofStatusResponse
	if err := s.doJSON(ctx, http.MethodGet, s.cfg.Endpoint+"/v1/proofs/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SP1) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.PrivateKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.PrivateKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("sp1 request %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("sp1 service responded %d: %w", resp.StatusCode, relay.ErrProverUnavailable)
	case resp.StatusCode >= 400:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sp1 service rejected request with %d: %s: %w", resp.StatusCode, payload, relay.ErrProofRejected)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode sp1 response: %w", err)
	}
	return nil
}
