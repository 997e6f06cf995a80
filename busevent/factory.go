package busevent

import (
	"fmt"
	"strings"

	"github.com/vibelang/vibe-core/config"
)

// New builds the Bus a config.EventConfig names.
func New(cfg config.EventConfig) (Bus, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewInMemoryBus(), nil
	default:
		return nil, fmt.Errorf("busevent: unsupported driver %q", cfg.Driver)
	}
}
