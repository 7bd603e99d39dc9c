package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrMissingContract  = errors.New("contract address is not defined")
	ErrMissingProjectID = errors.New("project id is not defined")
)

// DeploymentConfig represents deployments.json.
type DeploymentConfig struct {
	ChainID   uint64 `json:"chainId"`
	Network   string `json:"network"`
	RPCURL    string `json:"rpcUrl"`
	Contracts struct {
		WasteLiveItems string `json:"WasteLiveItems"`
	} `json:"contracts"`
}

// AppConfig ties together the deployment file and environment overrides.
type AppConfig struct {
	ProjectID  string
	Deployment DeploymentConfig
	Service    ServiceConfig
	Chain      ChainConfig
}

type ServiceConfig struct {
	HTTPPort             int
	HMACSecret           string
	HMACClockSkew        time.Duration
	IdempotencyWindow    time.Duration
	IdempotencyStorePath string
	PostgresDSN          string
}

type ChainConfig struct {
	RPCURL          string
	ContractAddress string
	ChainID         uint64
	NetworkName     string
	PrivateKey      string
	ClefEndpoint    string
	ReceiptPoll     time.Duration
	WalletPoll      time.Duration
}

const (
	defaultDeploymentsPath = "deployments.json"
	defaultRPCURL          = "https://dream-rpc.somnia.network"
	defaultChainID         = 50312
	defaultNetworkName     = "Somnia Testnet"
)

// Load reads and validates the configuration.
func Load() (*AppConfig, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read aggregates configuration from disk and environment without validating
// it. A missing deployments file is tolerated when the environment supplies
// the address.
func Read() (*AppConfig, error) {
	deploymentsPath := envOr("DEPLOYMENTS_PATH", defaultDeploymentsPath)

	deployCfg, err := loadDeployments(deploymentsPath)
	if err != nil {
		return nil, fmt.Errorf("load deployments: %w", err)
	}

	cfg := &AppConfig{
		ProjectID:  envOr("PROJECT_ID", ""),
		Deployment: *deployCfg,
		Service: ServiceConfig{
			HTTPPort:             envOrInt("API_HTTP_PORT", 3000),
			HMACSecret:           envOr("API_HMAC_SECRET", ""),
			HMACClockSkew:        time.Duration(envOrInt("HMAC_CLOCK_SKEW_SECONDS", 60)) * time.Second,
			IdempotencyWindow:    time.Duration(envOrInt("IDEMPOTENCY_WINDOW_SECONDS", 600)) * time.Second,
			IdempotencyStorePath: envOr("IDEMPOTENCY_STORE_PATH", filepath.Join(os.TempDir(), "wastelive-idem.json")),
			PostgresDSN:          envOr("POSTGRES_DSN", ""),
		},
		Chain: ChainConfig{
			RPCURL:          envOr("CHAIN_RPC_URL", orDefault(deployCfg.RPCURL, defaultRPCURL)),
			ContractAddress: envOr("CONTRACT_ADDRESS", deployCfg.Contracts.WasteLiveItems),
			ChainID:         uint64(envOrInt("CHAIN_ID", int(orDefaultUint(deployCfg.ChainID, defaultChainID)))),
			NetworkName:     envOr("CHAIN_NETWORK_NAME", orDefault(deployCfg.Network, defaultNetworkName)),
			PrivateKey:      envOr("CHAIN_PRIVATE_KEY", ""),
			ClefEndpoint:    envOr("CLEF_ENDPOINT", ""),
			ReceiptPoll:     time.Duration(envOrInt("RECEIPT_POLL_MS", 2000)) * time.Millisecond,
			WalletPoll:      time.Duration(envOrInt("WALLET_POLL_MS", 5000)) * time.Millisecond,
		},
	}
	return cfg, nil
}

// Validate checks the values the app cannot start without.
func (c *AppConfig) Validate() error {
	if c.Chain.ContractAddress == "" {
		return ErrMissingContract
	}
	if !common.IsHexAddress(c.Chain.ContractAddress) {
		return fmt.Errorf("%w: %q is not a hex address", ErrMissingContract, c.Chain.ContractAddress)
	}
	if c.ProjectID == "" {
		return ErrMissingProjectID
	}
	if c.Chain.PrivateKey != "" && c.Chain.ClefEndpoint != "" {
		return errors.New("set only one of CHAIN_PRIVATE_KEY and CLEF_ENDPOINT")
	}
	return nil
}

func loadDeployments(path string) (*DeploymentConfig, error) {
	var cfg DeploymentConfig
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envOr(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return fallback
}

func orDefault(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}

func orDefaultUint(val, fallback uint64) uint64 {
	if val == 0 {
		return fallback
	}
	return val
}
