package secrets

import (
	"context"
	"os"
)

// EnvProvider resolves secrets from process environment variables,
// optionally namespaced by a prefix (e.g. ref "OPENAI_KEY" with prefix
// "VIBE_" reads VIBE_OPENAI_KEY, falling back to the bare name). The ref
// is used as written; its case is not changed.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider builds the default, zero-configuration secrets backend.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) GetSecret(ctx context.Context, key string) (string, error) {
	if p.prefix != "" {
		if v := os.Getenv(p.prefix + key); v != "" {
			return v, nil
		}
	}
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	return "", newError("env", key, ErrNotFound)
}
