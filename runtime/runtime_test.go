package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vibelang/vibe-core/ai"
	"github.com/vibelang/vibe-core/debug"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/value"
	"github.com/vibelang/vibe-core/vm"
)

type fakeHost struct {
	evaluate     func(params []string, body string, args []value.VibeValue) (value.VibeValue, error)
	callImported func(name string, args []value.VibeValue) (value.VibeValue, error)
}

func (h *fakeHost) Evaluate(_ context.Context, params []string, body string, args []value.VibeValue, _ value.Location) (value.VibeValue, error) {
	return h.evaluate(params, body, args)
}

func (h *fakeHost) CallImported(_ context.Context, name string, args []value.VibeValue, _ value.Location) (value.VibeValue, error) {
	return h.callImported(name, args)
}

func TestCreateInitialStateStopOnEntryPauses(t *testing.T) {
	prog := &program.Program{ModulePath: "main.vibe", Body: []program.Stmt{
		&program.LetStmt{Name: "x", Value: &program.Literal{Value: 1.0}},
	}, Functions: map[string]*program.Function{}}
	sess := CreateInitialState(prog, vm.Options{StopOnEntry: true})
	require.Equal(t, vm.StatusPaused, sess.State.Status)
}

func TestRunToSettledResolvesDoCall(t *testing.T) {
	prog := &program.Program{ModulePath: "main.vibe", Body: []program.Stmt{
		&program.LetStmt{Name: "r", Value: &program.AIExpr{OpKind: "do", Prompt: &program.Literal{Value: "2+2?"}, Model: "m"}},
	}, Functions: map[string]*program.Function{}}
	sess := CreateInitialState(prog, vm.Options{})
	sess.Provider = &ai.StubProvider{Replies: map[string]any{"2+2?": "4"}}

	sess.RunToSettled(context.Background())
	require.Equal(t, vm.StatusCompleted, sess.State.Status)
	require.Equal(t, "4", sess.State.CallStack.Top().Locals["r"].Value)
}

func TestRunToSettledWrapsProviderErrorAsAIProviderError(t *testing.T) {
	prog := &program.Program{ModulePath: "main.vibe", Body: []program.Stmt{
		&program.LetStmt{Name: "r", Value: &program.AIExpr{OpKind: "do", Prompt: &program.Literal{Value: "q"}, Model: "m"}},
	}, Functions: map[string]*program.Function{}}
	sess := CreateInitialState(prog, vm.Options{})
	sess.Provider = &ai.StubProvider{} // Do never errors; simulate via expected_fields mismatch instead
	prog.Body[0] = &program.LetStmt{Name: "r", Value: &program.AIExpr{
		OpKind: "do", Prompt: &program.Literal{Value: "q"}, Model: "m", ExpectedFields: []string{"name"},
	}}
	sess = CreateInitialState(prog, vm.Options{})
	sess.Provider = &ai.StubProvider{Default: "not an object"}

	sess.RunToSettled(context.Background())
	require.Equal(t, vm.StatusCompleted, sess.State.Status)
	r := sess.State.CallStack.Top().Locals["r"]
	require.True(t, r.IsError())
	require.Equal(t, value.KindAIProviderError, r.Err.Kind)
}

func TestRunToSettledResolvesVibeCallWithHostBodiedTool(t *testing.T) {
	prog := &program.Program{
		ModulePath: "main.vibe",
		Body: []program.Stmt{
			&program.ToolDeclStmt{Name: "lookup", Params: []string{"q"}, HostBody: "return host_lookup(q)"},
			&program.LetStmt{Name: "r", Value: &program.AIExpr{OpKind: "vibe", Prompt: &program.Literal{Value: "weather?"}, Model: "m"}},
		},
		Functions: map[string]*program.Function{},
	}
	sess := CreateInitialState(prog, vm.Options{})
	sess.Provider = &ai.StubProvider{
		ToolPlan: []ai.StubToolCall{{Name: "lookup", Args: map[string]any{"q": "weather"}}},
		Final:    "sunny",
	}
	var calledWith []value.VibeValue
	sess.Host = &fakeHost{
		callImported: func(name string, args []value.VibeValue) (value.VibeValue, error) {
			calledWith = args
			return value.New("72F"), nil
		},
	}

	sess.RunToSettled(context.Background())
	require.Equal(t, vm.StatusCompleted, sess.State.Status)
	require.Equal(t, "sunny", sess.State.CallStack.Top().Locals["r"].Value)
	require.Len(t, calledWith, 1)
	require.Equal(t, "weather", calledWith[0].Value)
}

func TestRunToSettledResolvesAsyncAIOps(t *testing.T) {
	prog := &program.Program{
		ModulePath: "main.vibe",
		Body: []program.Stmt{
			&program.AsyncLetStmt{Name: "a", Value: &program.AIExpr{OpKind: "do", Prompt: &program.Literal{Value: "A"}, Model: "m"}},
			&program.AsyncLetStmt{Name: "b", Value: &program.AIExpr{OpKind: "do", Prompt: &program.Literal{Value: "B"}, Model: "m"}},
			&program.ExprStmt{Value: &program.BinaryExpr{Op: value.OpAdd, Left: &program.Ident{Name: "a"}, Right: &program.Ident{Name: "b"}}},
		},
		Functions: map[string]*program.Function{},
	}
	sess := CreateInitialState(prog, vm.Options{MaxParallel: 4})
	sess.Provider = &ai.StubProvider{Replies: map[string]any{"A": "A-val", "B": "B-val"}}

	sess.RunToSettled(context.Background())
	require.Equal(t, vm.StatusCompleted, sess.State.Status)
	require.Equal(t, "A-valB-val", sess.State.LastResult.Value)
}

func TestRunToSettledResolvesTSEval(t *testing.T) {
	prog := &program.Program{
		ModulePath: "main.vibe",
		Body: []program.Stmt{
			&program.LetStmt{Name: "r", Value: &program.TSEvalExpr{Params: []string{"n"}, Body: "return n*2", Args: []program.Expr{&program.Literal{Value: 21.0}}}},
		},
		Functions: map[string]*program.Function{},
	}
	sess := CreateInitialState(prog, vm.Options{})
	sess.Host = &fakeHost{
		evaluate: func(_ []string, _ string, args []value.VibeValue) (value.VibeValue, error) {
			return value.New(args[0].Value.(float64) * 2), nil
		},
	}

	sess.RunToSettled(context.Background())
	require.Equal(t, vm.StatusCompleted, sess.State.Status)
	require.Equal(t, 42.0, sess.State.CallStack.Top().Locals["r"].Value)
	require.Equal(t, handoffModeAfterSettle(sess), true)
}

func handoffModeAfterSettle(sess *Session) bool {
	return sess.Handoff.Mode() == "script"
}

func TestRunToSettledResolvesHostBodiedToolCall(t *testing.T) {
	prog := &program.Program{
		ModulePath: "main.vibe",
		Body: []program.Stmt{
			&program.ExprStmt{Value: &program.CallExpr{Callee: &program.Ident{Name: "greet"}, Args: []program.Expr{&program.Literal{Value: "world"}}}},
		},
		Functions: map[string]*program.Function{
			"greet": {Name: "greet", Params: []string{"name"}, HostBody: "return 'hi ' + name"},
		},
	}
	sess := CreateInitialState(prog, vm.Options{})
	sess.Host = &fakeHost{
		callImported: func(name string, args []value.VibeValue) (value.VibeValue, error) {
			return value.New("hi " + args[0].Value.(string)), nil
		},
	}

	sess.RunToSettled(context.Background())
	require.Equal(t, vm.StatusCompleted, sess.State.Status)
	require.Equal(t, "hi world", sess.State.LastResult.Value)
}

func TestBreakpointPausesSessionDriver(t *testing.T) {
	loc := value.Location{File: "main.vibe", Line: 2}
	prog := &program.Program{
		ModulePath: "main.vibe",
		Body: []program.Stmt{
			&program.LetStmt{Name: "x", Value: &program.Literal{Value: 1.0}, Loc: value.Location{File: "main.vibe", Line: 1}},
			&program.LetStmt{Name: "y", Value: &program.Literal{Value: 2.0}, Loc: loc},
		},
		Functions: map[string]*program.Function{},
	}
	sess := CreateInitialState(prog, vm.Options{})
	sess.SetBreakpoints("main.vibe", []int{2}, nil)

	sess.RunUntilPause()
	require.Equal(t, vm.StatusPaused, sess.State.Status)

	frames := sess.GetStackTrace()
	require.Len(t, frames, 1)
	require.Equal(t, 2, frames[0].Line)

	sess.ResumeExecution()
	sess.RunUntilPause()
	require.Equal(t, vm.StatusCompleted, sess.State.Status)
}

func TestManualPauseStopsBeforeNextStep(t *testing.T) {
	prog := &program.Program{
		ModulePath: "main.vibe",
		Body: []program.Stmt{
			&program.LetStmt{Name: "x", Value: &program.Literal{Value: 1.0}},
			&program.LetStmt{Name: "y", Value: &program.Literal{Value: 2.0}},
		},
		Functions: map[string]*program.Function{},
	}
	sess := CreateInitialState(prog, vm.Options{})
	sess.Pause()
	sess.RunUntilPause()
	require.Equal(t, vm.StatusPaused, sess.State.Status)
	_, ok := sess.State.CallStack.Top().Locals["x"]
	require.False(t, ok)
}

func TestSetStepModeIntoPausesAtNextStatement(t *testing.T) {
	prog := &program.Program{
		ModulePath: "main.vibe",
		Body: []program.Stmt{
			&program.LetStmt{Name: "x", Value: &program.Literal{Value: 1.0}},
			&program.LetStmt{Name: "y", Value: &program.Literal{Value: 2.0}},
		},
		Functions: map[string]*program.Function{},
	}
	sess := CreateInitialState(prog, vm.Options{})
	sess.SetStepMode(debug.StepInto)
	sess.RunUntilPause()
	require.Equal(t, vm.StatusPaused, sess.State.Status)
	_, ok := sess.State.CallStack.Top().Locals["x"]
	require.False(t, ok)
}
