package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/interchainlabs/eureka-relayer/internal/prover"
)

const envPrefix = "RELAYER"

// EurekaRelayerConfig describes one relayed chain pair: a cosmos chain and an
// EVM chain, with a light client for each on the other side. Loaded from the
// environment under the RELAYER_ prefix.
type EurekaRelayerConfig struct {
	CosmosChain struct {
		ChainID       string `split_words:"true" required:"true"`
		RPCAddress    string `split_words:"true" default:"tcp://127.0.0.1:26657"`
		AccountPrefix string `split_words:"true" default:"cosmos"`
		// SignerKey is the hex-encoded secp256k1 private key of the relayer
		// account.
		SignerKey      string        `split_words:"true"`
		GasLimit       uint64        `split_words:"true" default:"2000000"`
		GasDenom       string        `split_words:"true" default:"uatom"`
		GasAmount      string        `split_words:"true" default:"5000"`
		ConfirmTimeout time.Duration `split_words:"true" default:"30s"`
		// TrustingPeriod of the counterparty client tracking this chain.
		TrustingPeriod time.Duration `split_words:"true" default:"336h"`
		// ClientID is the client stored on this chain that tracks the EVM
		// chain.
		ClientID string `split_words:"true" required:"true"`
	}
	EthChain struct {
		ChainID    string `split_words:"true" required:"true"`
		RPCAddress string `split_words:"true" default:"http://127.0.0.1:8545"`
		// Contract is the ICS-26 router contract address.
		Contract string `split_words:"true" required:"true"`
		// SignerKey is the hex-encoded secp256k1 private key of the relayer
		// account.
		SignerKey string `split_words:"true"`
		GasLimit  uint64 `split_words:"true" default:"5000000"`
		// IBCStoreSlot is the base storage slot of the contract's commitment
		// mapping, used to derive storage proof keys.
		IBCStoreSlot   uint64        `split_words:"true" default:"0"`
		PollInterval   time.Duration `split_words:"true" default:"5s"`
		ConfirmTimeout time.Duration `split_words:"true" default:"2m"`
		// ClientID is the client stored on this chain that tracks the cosmos
		// chain.
		ClientID string `split_words:"true" required:"true"`
	}
	Prover struct {
		// Mode selects how cosmos state proofs reach the EVM side: mock,
		// network-groth16 or network-plonk.
		Mode     string `split_words:"true" default:"mock"`
		Endpoint string `split_words:"true"`
		// PrivateKey authenticates against the SP1 prover network. Read from
		// NETWORK_PRIVATE_KEY, matching the prover service convention.
		PrivateKey     string        `envconfig:"NETWORK_PRIVATE_KEY"`
		PrivateCluster bool          `split_words:"true" default:"false"`
		PollInterval   time.Duration `split_words:"true" default:"2s"`
	}

	// StoragePath is the leveldb directory for task persistence. Empty
	// disables persistence, which also disables crash recovery.
	StoragePath string `split_words:"true"`
	ListenAddr  string `split_words:"true" default:":9999"`

	MaxBatchSize   int           `split_words:"true" default:"8"`
	MaxAttempts    uint          `split_words:"true" default:"5"`
	RetryBaseDelay time.Duration `split_words:"true" default:"1s"`
	RetryMaxDelay  time.Duration `split_words:"true" default:"30s"`
	FlushInterval  time.Duration `split_words:"true" default:"3s"`
	ProofTimeout   time.Duration `split_words:"true" default:"2m"`
	ProverCapacity int64         `split_words:"true" default:"4"`
}

func NewEurekaRelayerConfig() (EurekaRelayerConfig, error) {
	cfg := EurekaRelayerConfig{}
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to init config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects wiring mistakes that would otherwise surface as opaque
// on-chain failures.
func (c EurekaRelayerConfig) Validate() error {
	if err := validateClientID(c.CosmosChain.ClientID); err != nil {
		return fmt.Errorf("cosmos chain client id: %w", err)
	}
	if err := validateClientID(c.EthChain.ClientID); err != nil {
		return fmt.Errorf("eth chain client id: %w", err)
	}
	switch c.Prover.Mode {
	case prover.ModeMock:
	case prover.ModeNetworkGroth16, prover.ModeNetworkPlonk:
		if c.Prover.Endpoint == "" {
			return fmt.Errorf("prover mode %q requires an endpoint", c.Prover.Mode)
		}
		if c.Prover.PrivateKey == "" {
			return fmt.Errorf("prover mode %q requires NETWORK_PRIVATE_KEY", c.Prover.Mode)
		}
	default:
		return fmt.Errorf("unknown prover mode %q", c.Prover.Mode)
	}
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("max batch size must be at least 1")
	}
	return nil
}

// validateClientID enforces client identifiers. Channel identifiers belong to
// the channel-based protocol and are a frequent operator mixup.
func validateClientID(id string) error {
	if id == "" {
		return fmt.Errorf("empty")
	}
	if strings.HasPrefix(id, "channel-") {
		return fmt.Errorf("%q is a channel identifier, expected a client identifier", id)
	}
	return nil
}
