package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

func writeDeployments(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deployments.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write deployments: %v", err)
	}
	return path
}

func TestLoadFromDeploymentsAndEnv(t *testing.T) {
	path := writeDeployments(t, `{"chainId":50312,"network":"Somnia Testnet","contracts":{"WasteLiveItems":"`+testAddress+`"}}`)
	t.Setenv("DEPLOYMENTS_PATH", path)
	t.Setenv("PROJECT_ID", "proj-123")
	t.Setenv("API_HTTP_PORT", "8081")
	t.Setenv("RECEIPT_POLL_MS", "250")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chain.ContractAddress != testAddress {
		t.Fatalf("unexpected contract %q", cfg.Chain.ContractAddress)
	}
	if cfg.Chain.ChainID != 50312 || cfg.Chain.NetworkName != "Somnia Testnet" {
		t.Fatalf("unexpected network %d %q", cfg.Chain.ChainID, cfg.Chain.NetworkName)
	}
	if cfg.Service.HTTPPort != 8081 {
		t.Fatalf("expected port override, got %d", cfg.Service.HTTPPort)
	}
	if cfg.Chain.ReceiptPoll != 250*time.Millisecond {
		t.Fatalf("unexpected poll interval %s", cfg.Chain.ReceiptPoll)
	}
	if cfg.Chain.RPCURL != defaultRPCURL {
		t.Fatalf("expected default rpc url, got %q", cfg.Chain.RPCURL)
	}
}

func TestLoadMissingProjectID(t *testing.T) {
	t.Setenv("DEPLOYMENTS_PATH", filepath.Join(t.TempDir(), "absent.json"))
	t.Setenv("CONTRACT_ADDRESS", testAddress)
	t.Setenv("PROJECT_ID", "")

	if _, err := Load(); !errors.Is(err, ErrMissingProjectID) {
		t.Fatalf("expected ErrMissingProjectID, got %v", err)
	}
}

func TestLoadMissingContract(t *testing.T) {
	t.Setenv("DEPLOYMENTS_PATH", filepath.Join(t.TempDir(), "absent.json"))
	t.Setenv("CONTRACT_ADDRESS", "")
	t.Setenv("PROJECT_ID", "proj")

	if _, err := Load(); !errors.Is(err, ErrMissingContract) {
		t.Fatalf("expected ErrMissingContract, got %v", err)
	}
}

func TestValidateRejectsBadAddressAndDoubleSigner(t *testing.T) {
	cfg := &AppConfig{ProjectID: "p", Chain: ChainConfig{ContractAddress: "not-an-address"}}
	if err := cfg.Validate(); !errors.Is(err, ErrMissingContract) {
		t.Fatalf("expected ErrMissingContract, got %v", err)
	}

	cfg.Chain.ContractAddress = testAddress
	cfg.Chain.PrivateKey = "0x01"
	cfg.Chain.ClefEndpoint = "http://localhost:8550"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error when both signers are configured")
	}
}

func TestLoadInvalidDeploymentsJSON(t *testing.T) {
	t.Setenv("DEPLOYMENTS_PATH", writeDeployments(t, "{"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestReadSkipsValidation(t *testing.T) {
	t.Setenv("DEPLOYMENTS_PATH", filepath.Join(t.TempDir(), "absent.json"))
	t.Setenv("CONTRACT_ADDRESS", "")
	t.Setenv("PROJECT_ID", "")

	cfg, err := Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if cfg.Chain.ChainID != defaultChainID || cfg.Chain.NetworkName != defaultNetworkName {
		t.Fatalf("unexpected network defaults %d %q", cfg.Chain.ChainID, cfg.Chain.NetworkName)
	}
}
