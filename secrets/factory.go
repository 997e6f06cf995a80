package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/vibelang/vibe-core/config"
)

// NewProvider builds the Provider a config.SecretsConfig names.
func NewProvider(ctx context.Context, cfg config.SecretsConfig) (Provider, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "env":
		return NewEnvProvider(cfg.Prefix), nil
	case "aws-sm", "aws":
		if cfg.Region == "" {
			return nil, fmt.Errorf("secrets: region is required for the aws-sm driver")
		}
		return NewAWSProvider(ctx, cfg.Region, cfg.Prefix)
	default:
		return nil, fmt.Errorf("secrets: unsupported driver %q", cfg.Driver)
	}
}

// ResolveModelKey resolves a ModelConfig.APIKeyRef through provider,
// returning "" (not an error) when no ref was configured — a model may
// legitimately need no key (a local endpoint, e.g.).
func ResolveModelKey(ctx context.Context, provider Provider, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	return provider.GetSecret(ctx, ref)
}
