package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/vibelang/vibe-core/config"
)

func TestEnvProviderResolvesPrefixedThenBareName(t *testing.T) {
	t.Setenv("VIBE_OPENAI_KEY", "prefixed-value")
	t.Setenv("FALLBACK_KEY", "bare-value")

	p := NewEnvProvider("VIBE_")

	v, err := p.GetSecret(context.Background(), "OPENAI_KEY")
	if err != nil || v != "prefixed-value" {
		t.Fatalf("got (%q, %v), want prefixed-value", v, err)
	}

	v, err = p.GetSecret(context.Background(), "FALLBACK_KEY")
	if err != nil || v != "bare-value" {
		t.Fatalf("got (%q, %v), want bare-value", v, err)
	}
}

func TestEnvProviderMissingKeyReturnsNotFound(t *testing.T) {
	p := NewEnvProvider("")
	_, err := p.GetSecret(context.Background(), "DOES_NOT_EXIST_IN_ENV")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestNewProviderDefaultsToEnv(t *testing.T) {
	p, err := NewProvider(context.Background(), config.SecretsConfig{})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if _, ok := p.(*EnvProvider); !ok {
		t.Fatalf("got %T, want *EnvProvider", p)
	}
}

func TestNewProviderAWSRequiresRegion(t *testing.T) {
	_, err := NewProvider(context.Background(), config.SecretsConfig{Driver: "aws-sm"})
	if err == nil {
		t.Fatal("expected error for missing region")
	}
}

func TestResolveModelKeyEmptyRefIsNotAnError(t *testing.T) {
	v, err := ResolveModelKey(context.Background(), NewEnvProvider(""), "")
	if err != nil || v != "" {
		t.Fatalf("got (%q, %v), want (\"\", nil)", v, err)
	}
}
