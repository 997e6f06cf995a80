package store

import (
	"fmt"
	"strings"

	"github.com/vibelang/vibe-core/config"
)

// New builds the Store a config.StoreConfig names.
func New(cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "vibe-core.sqlite"
		}
		return NewSqliteStore(dsn)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}
