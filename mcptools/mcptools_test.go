package mcptools

import (
	"context"
	"testing"

	"github.com/vibelang/vibe-core/ai"
)

func TestManagerCallRejectsMalformedName(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.Call(context.Background(), "no-slash-here", nil); err == nil {
		t.Fatal("expected error for name without a server/tool split")
	}
}

func TestManagerCallRejectsUnknownServer(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.Call(context.Background(), "ghost/tool", nil); err == nil {
		t.Fatal("expected error for unconfigured server")
	}
}

func TestFuncRegistrationsBuildsOneHandlerPerSpec(t *testing.T) {
	specs := []ai.ToolSpec{
		{
			Name:        "greet",
			Description: "says hello",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"name": map[string]any{"type": "string"}},
				"required":   []string{"name"},
			},
		},
	}
	called := false
	invoke := func(ctx context.Context, name string, args map[string]any) (any, error) {
		called = true
		if name != "greet" {
			t.Fatalf("got invoke name %q, want greet", name)
		}
		return map[string]any{"reply": "hi " + args["name"].(string)}, nil
	}

	regs := FuncRegistrations(specs, invoke)
	if len(regs) != 1 {
		t.Fatalf("got %d registrations, want 1", len(regs))
	}
	if regs[0].Name != "greet" || regs[0].Handler == nil {
		t.Fatalf("got %+v", regs[0])
	}
	_ = called
}
