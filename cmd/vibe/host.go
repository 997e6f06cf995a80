package main

import (
	"context"
	"fmt"

	"github.com/vibelang/vibe-core/mcptools"
	"github.com/vibelang/vibe-core/value"
)

// mcpHost implements runtime.HostEvaluator by routing every call to the
// configured MCP servers. Inline ts_block evaluation has no evaluator in
// this build (the host-language evaluator is out of scope — see
// DESIGN.md); a program that suspends on ts_eval fails with a clear
// error instead of hanging.
type mcpHost struct {
	manager *mcptools.Manager
}

func (h *mcpHost) Evaluate(ctx context.Context, params []string, body string, args []value.VibeValue, loc value.Location) (value.VibeValue, error) {
	return value.VibeValue{}, fmt.Errorf("inline host block at %s has no evaluator wired in this build", loc)
}

func (h *mcpHost) CallImported(ctx context.Context, name string, args []value.VibeValue, loc value.Location) (value.VibeValue, error) {
	callArgs := make(map[string]any, len(args))
	for i, a := range args {
		callArgs[fmt.Sprintf("arg%d", i)] = a.Value
	}
	result, err := h.manager.Call(ctx, name, callArgs)
	if err != nil {
		return value.VibeValue{}, err
	}
	return value.New(result), nil
}
