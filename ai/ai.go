// Package ai implements the provider contract behind a vibe-core AI call
// (spec.md §4.4): it receives a rendered prompt/context and returns a
// result vm.ResumeWithAIResponse can apply. The wire protocol of any real
// vendor API is out of scope (spec.md §1 "only their contract appears
// here"); this package defines that contract plus a vendor-neutral HTTP
// transport and a deterministic stub used by tests.
package ai

import (
	"context"

	"github.com/vibelang/vibe-core/value"
	"github.com/vibelang/vibe-core/vm"
)

// Request is everything a provider needs to answer one `do` or `vibe`
// call: the rendered context+prompt text (already assembled by package
// ctxasm), the model name, and (for `vibe`) the tool catalogue the model
// may invoke.
type Request struct {
	OpKind         string // "do" | "vibe"
	Text           string
	Model          string
	ExpectedFields []string
	Tools          []ToolSpec
}

// ToolSpec describes one callable tool exposed to a `vibe` call.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON-Schema object
}

// ToolInvoker executes one tool call a model requested during a `vibe`
// round, returning the raw result payload. Implemented by package
// runtime, which sends host-block-bodied tools to its HostEvaluator and
// runs ordinary vibe-core functions exposed as tools in a sub-session.
type ToolInvoker func(ctx context.Context, name string, args map[string]any) (any, error)

// Result is a provider's answer to one Request.
type Result struct {
	Value any
	Usage *value.Usage
}

// Provider answers AI requests. Do handles a single-shot `do` call;
// Vibe drives a multi-turn tool loop, invoking calls via invoke until the
// model stops requesting tools or the provider's round limit is reached
// (HTTPProvider.MaxToolRounds; StubProvider runs at most one round).
type Provider interface {
	Do(ctx context.Context, req Request) (Result, error)
	Vibe(ctx context.Context, req Request, invoke ToolInvoker) (Result, []vm.ToolRound, error)
}
