package ai

import (
	"context"
	"fmt"

	"github.com/vibelang/vibe-core/value"
	"github.com/vibelang/vibe-core/vm"
)

// StubProvider is a deterministic, network-free Provider for tests: it
// answers from a canned table keyed by prompt text, and for Vibe replays
// a fixed sequence of tool calls before returning a final value.
type StubProvider struct {
	Replies  map[string]any
	Default  any
	ToolPlan []StubToolCall // all run in order, as one round, on every Vibe call
	Final    any
}

// StubToolCall is one scripted tool invocation for StubProvider.Vibe.
type StubToolCall struct {
	Name string
	Args map[string]any
}

func (p *StubProvider) Do(_ context.Context, req Request) (Result, error) {
	if v, ok := p.Replies[req.Text]; ok {
		return Result{Value: v}, nil
	}
	if p.Default != nil {
		return Result{Value: p.Default}, nil
	}
	return Result{Value: fmt.Sprintf("stub reply to %q", req.Text)}, nil
}

func (p *StubProvider) Vibe(ctx context.Context, req Request, invoke ToolInvoker) (Result, []vm.ToolRound, error) {
	var rounds []vm.ToolRound
	if len(p.ToolPlan) > 0 {
		round := vm.ToolRound{}
		for _, step := range p.ToolPlan {
			out, err := invoke(ctx, step.Name, step.Args)
			tc := value.ToolCall{Name: step.Name, Args: step.Args, Result: out}
			if err != nil {
				tc.Err = value.NewErr(value.KindHostBlockError, value.Location{}, "%s", err.Error())
			}
			round.Calls = append(round.Calls, tc)
		}
		rounds = append(rounds, round)
	}
	if p.Final != nil {
		return Result{Value: p.Final}, rounds, nil
	}
	result, err := p.Do(ctx, req)
	return result, rounds, err
}
