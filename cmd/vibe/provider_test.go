package main

import (
	"context"
	"testing"

	"github.com/vibelang/vibe-core/ai"
	"github.com/vibelang/vibe-core/config"
	"github.com/vibelang/vibe-core/secrets"
)

func TestNewModelProviderResolvesDefaultModel(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{Models: map[string]config.ModelConfig{
		"fast": {Name: "fast", Endpoint: "http://example.invalid"},
	}}
	env, err := secrets.NewProvider(ctx, config.SecretsConfig{})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	mp, err := newModelProvider(ctx, cfg, env)
	if err != nil {
		t.Fatalf("newModelProvider: %v", err)
	}
	if _, err := mp.resolve(""); err != nil {
		t.Fatalf("resolve(\"\") should fall back to the only configured model: %v", err)
	}
	if _, err := mp.resolve("nonexistent"); err == nil {
		t.Fatal("expected error resolving an unconfigured model")
	}
}

func TestModelProviderImplementsAIProvider(t *testing.T) {
	var _ ai.Provider = (*modelProvider)(nil)
}
