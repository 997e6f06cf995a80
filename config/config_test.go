package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingPathYieldsDefault(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.Driver != "memory" || cfg.Secrets.Driver != "env" {
		t.Fatalf("got %+v, want Default()", cfg)
	}
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: postgres\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected schema validation to reject an unsupported store driver")
	}
}

func TestLoadConfigAppliesDefaultMaxParallel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("models:\n  fast:\n    endpoint: http://x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Async.MaxParallel != 4 {
		t.Fatalf("got MaxParallel=%d, want 4", cfg.Async.MaxParallel)
	}
}

func TestValidateRequiresRegionForAWSSecrets(t *testing.T) {
	cfg := Default()
	cfg.Secrets.Driver = "aws-sm"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to require secrets.region for aws-sm")
	}
}

func TestValidateRequiresModelEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Models = map[string]ModelConfig{"fast": {Name: "fast"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to reject a model with no endpoint")
	}
}

func TestSaveConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Models = map[string]ModelConfig{"fast": {Name: "fast", Endpoint: "http://x"}}
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Models["fast"].Endpoint != "http://x" {
		t.Fatalf("got %+v, want round-tripped model config", got.Models)
	}
}
