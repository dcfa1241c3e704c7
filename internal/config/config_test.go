package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
networks:
  - identifier: " Ethereum "
    registry: "0x00000000000000000000000000000000000000aa"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Resolver.MetadataItemsPerChunk != 10 {
		t.Fatalf("expected metadata chunk default 10, got %d", cfg.Resolver.MetadataItemsPerChunk)
	}
	if cfg.Resolver.QuantityItemsPerChunk != 20 {
		t.Fatalf("expected quantity chunk default 20, got %d", cfg.Resolver.QuantityItemsPerChunk)
	}
	if cfg.Resolver.MaxRetries != defaultResolverMaxRetries {
		t.Fatalf("expected resolver retry default %d, got %d", defaultResolverMaxRetries, cfg.Resolver.MaxRetries)
	}
	if cfg.Resolver.ScanSafetyCap != 1000 {
		t.Fatalf("expected scan safety cap 1000, got %d", cfg.Resolver.ScanSafetyCap)
	}
	if cfg.RpcClient.LivenessTimeout().Seconds() != 10 {
		t.Fatalf("expected 10s liveness timeout, got %s", cfg.RpcClient.LivenessTimeout())
	}
	if cfg.Networks[0].Identifier != "ethereum" {
		t.Fatalf("expected normalized identifier, got %q", cfg.Networks[0].Identifier)
	}
}

func TestLoadConfigKeepsExplicitZeroRetries(t *testing.T) {
	path := writeConfig(t, `
resolver:
  maxRetries: 0
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Resolver.MaxRetries != 0 {
		t.Fatalf("expected explicit zero retries to be kept, got %d", cfg.Resolver.MaxRetries)
	}
}

func TestLoadConfigClampsNegativeRetries(t *testing.T) {
	path := writeConfig(t, `
resolver:
  maxRetries: -3
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Resolver.MaxRetries != 0 {
		t.Fatalf("expected negative retries clamped to 0, got %d", cfg.Resolver.MaxRetries)
	}
}

func TestLoadConfigRejectsBadAddresses(t *testing.T) {
	path := writeConfig(t, `
networks:
  - identifier: "ethereum"
    registry: "not-an-address"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed registry address")
	}
}

func TestLoadConfigRejectsDuplicateNetworks(t *testing.T) {
	path := writeConfig(t, `
networks:
  - identifier: "ethereum"
  - identifier: "ETHEREUM"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for duplicate network identifiers")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
