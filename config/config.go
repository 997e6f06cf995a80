// Package config loads the runtime configuration a `vibe` CLI invocation
// needs: which models are callable, where secrets and session snapshots
// live, and which MCP servers back external tool declarations. Grounded
// on config.Config's YAML-plus-jsonschema loading shape (gopkg.in/yaml.v3
// for the document, santhosh-tekuri/jsonschema/v5 for validation) but
// trimmed to vibe-core's actual surface: no flow registries, no Smithery
// auto-enable, no HTTP server settings.
package config

import (
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// AsyncConfig bounds the scheduler's in-flight operation count (spec.md
// §4.5's async_let fan-out, drained by package async).
type AsyncConfig struct {
	MaxParallel int `yaml:"max_parallel" json:"max_parallel"`
}

// ModelConfig names one callable model binding: the endpoint a `do`/`vibe`
// call resolves to and the secret reference its API key comes from.
// AI provider transport itself is out of scope (spec.md §1); this is only
// the addressing a caller's provider implementation consumes.
type ModelConfig struct {
	Name      string `yaml:"name" json:"name"`
	Provider  string `yaml:"provider" json:"provider"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	APIKeyRef string `yaml:"api_key_ref" json:"api_key_ref"`
}

// SecretsConfig selects the secrets.Provider backing ModelConfig.APIKeyRef
// resolution.
type SecretsConfig struct {
	Driver string `yaml:"driver" json:"driver"` // "env" | "aws-sm"
	Region string `yaml:"region,omitempty" json:"region,omitempty"`
	Prefix string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
}

// StoreConfig selects the store.Store backing session snapshot
// persistence (spec.md §9's "resumable" requirement).
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"` // "sqlite" | "memory"
	DSN    string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// EventConfig selects the busevent.Bus backing stepper lifecycle events.
type EventConfig struct {
	Driver string `yaml:"driver" json:"driver"` // "memory" (the only driver carried forward)
}

// MCPServerConfig describes one external MCP tool server a ToolDeclStmt
// with no HostBody resolves against (spec.md §4.4's declared tool, backed
// by a real process instead of a host block).
type MCPServerConfig struct {
	Command  string            `yaml:"command,omitempty" json:"command,omitempty"`
	Args     []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env      map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Endpoint string            `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// TracingConfig selects the telemetry package's exporter.
type TracingConfig struct {
	ServiceName string `yaml:"service_name,omitempty" json:"service_name,omitempty"`
	Exporter    string `yaml:"exporter,omitempty" json:"exporter,omitempty"` // "stdout" (default) | "otlp"
	Endpoint    string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"` // otlp collector address
}

// Config is the full runtime configuration document a `vibe` CLI
// invocation loads before building a runtime.Session.
type Config struct {
	Async      AsyncConfig                `yaml:"async" json:"async"`
	Models     map[string]ModelConfig     `yaml:"models" json:"models"`
	Secrets    SecretsConfig              `yaml:"secrets" json:"secrets"`
	Store      StoreConfig                `yaml:"store" json:"store"`
	Event      EventConfig                `yaml:"event" json:"event"`
	MCPServers map[string]MCPServerConfig `yaml:"mcp_servers,omitempty" json:"mcp_servers,omitempty"`
	Tracing    *TracingConfig             `yaml:"tracing,omitempty" json:"tracing,omitempty"`
}

// configSchema constrains the document shape jsonschema validates against
// after YAML decoding normalizes it to a map — driver fields must be one
// of the values this build actually implements, which a free-form YAML
// decode would otherwise accept silently.
const configSchema = `{
  "type": "object",
  "properties": {
    "secrets": {
      "type": "object",
      "properties": {"driver": {"enum": ["", "env", "aws-sm"]}}
    },
    "store": {
      "type": "object",
      "properties": {"driver": {"enum": ["", "sqlite", "memory"]}}
    },
    "event": {
      "type": "object",
      "properties": {"driver": {"enum": ["", "memory"]}}
    },
    "tracing": {
      "type": "object",
      "properties": {"exporter": {"enum": ["", "stdout", "otlp"]}}
    }
  }
}`

var compiledSchema *jsonschema.Schema

func init() {
	s, err := jsonschema.CompileString("vibe-core-config.json", configSchema)
	if err != nil {
		panic(fmt.Sprintf("config: invalid embedded schema: %v", err))
	}
	compiledSchema = s
}

// Default returns the zero-configuration runtime: env-var secrets,
// in-memory store and event bus, four-way async parallelism.
func Default() *Config {
	return &Config{
		Async:   AsyncConfig{MaxParallel: 4},
		Secrets: SecretsConfig{Driver: "env"},
		Store:   StoreConfig{Driver: "memory"},
		Event:   EventConfig{Driver: "memory"},
	}
}

// LoadConfig reads and validates a YAML configuration document. A missing
// path is not an error — it yields Default().
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if cfg.Async.MaxParallel <= 0 {
		cfg.Async.MaxParallel = 4
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML, for `vibe config init`-style
// bootstrapping.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks cross-field invariants LoadConfig's schema cannot
// express (a missing model endpoint, a driver needing a region it wasn't
// given).
func (c *Config) Validate() error {
	if c.Secrets.Driver == "aws-sm" && c.Secrets.Region == "" {
		return fmt.Errorf("secrets.region is required for the aws-sm driver")
	}
	for name, m := range c.Models {
		if m.Endpoint == "" {
			return fmt.Errorf("model %q is missing an endpoint", name)
		}
	}
	return nil
}
