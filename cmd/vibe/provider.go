package main

import (
	"context"
	"fmt"

	"github.com/vibelang/vibe-core/ai"
	"github.com/vibelang/vibe-core/config"
	"github.com/vibelang/vibe-core/secrets"
	"github.com/vibelang/vibe-core/vm"
)

// modelProvider dispatches a Request to the ai.HTTPProvider its req.Model
// names, built from config.Config's Models map (spec.md §1's "only the
// provider's contract appears here" boundary — building the transport
// itself is this CLI's job, not the interpreter's).
type modelProvider struct {
	byModel map[string]*ai.HTTPProvider
	dflt    string
}

func newModelProvider(ctx context.Context, cfg *config.Config, secretsProvider secrets.Provider) (*modelProvider, error) {
	mp := &modelProvider{byModel: make(map[string]*ai.HTTPProvider, len(cfg.Models))}
	for name, m := range cfg.Models {
		key, err := secrets.ResolveModelKey(ctx, secretsProvider, m.APIKeyRef)
		if err != nil {
			return nil, fmt.Errorf("resolving key for model %q: %w", name, err)
		}
		mp.byModel[name] = &ai.HTTPProvider{Endpoint: m.Endpoint, APIKey: key}
		if mp.dflt == "" {
			mp.dflt = name
		}
	}
	return mp, nil
}

func (mp *modelProvider) resolve(model string) (*ai.HTTPProvider, error) {
	if model == "" {
		model = mp.dflt
	}
	p, ok := mp.byModel[model]
	if !ok {
		return nil, fmt.Errorf("no model %q configured", model)
	}
	return p, nil
}

func (mp *modelProvider) Do(ctx context.Context, req ai.Request) (ai.Result, error) {
	p, err := mp.resolve(req.Model)
	if err != nil {
		return ai.Result{}, err
	}
	return p.Do(ctx, req)
}

func (mp *modelProvider) Vibe(ctx context.Context, req ai.Request, invoke ai.ToolInvoker) (ai.Result, []vm.ToolRound, error) {
	p, err := mp.resolve(req.Model)
	if err != nil {
		return ai.Result{}, nil, err
	}
	return p.Vibe(ctx, req, invoke)
}

var _ ai.Provider = (*modelProvider)(nil)
