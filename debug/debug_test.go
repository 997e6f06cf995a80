package debug

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/value"
	"github.com/vibelang/vibe-core/vm"
)

// step drives s one instruction, pausing first via ctrl if it says to.
// Mirrors the loop package runtime's driver runs between suspensions.
func step(s *vm.State, ctrl *Controller) (paused bool, reason PauseReason) {
	if pause, r := ctrl.ShouldPauseBefore(s); pause {
		s.Status = vm.StatusPaused
		ctrl.BeginPause()
		return true, r
	}
	vm.Step(s)
	return false, ""
}

func runToPauseOrEnd(s *vm.State, ctrl *Controller) PauseReason {
	for s.Status == vm.StatusRunning {
		if paused, reason := step(s, ctrl); paused {
			return reason
		}
	}
	return ""
}

func sampleProgram() []program.Stmt {
	return []program.Stmt{
		&program.LetStmt{Name: "x", Value: &program.Literal{Value: 1.0}, Loc: value.Location{File: "main.vibe", Line: 1}},
		&program.LetStmt{Name: "y", Value: &program.Literal{Value: 2.0}, Loc: value.Location{File: "main.vibe", Line: 2}},
		&program.ExprStmt{Value: &program.Ident{Name: "x"}, Loc: value.Location{File: "main.vibe", Line: 3}},
	}
}

func newState(body []program.Stmt) *vm.State {
	prog := &program.Program{ModulePath: "main.vibe", Body: body, Functions: map[string]*program.Function{}}
	return vm.NewState(prog, vm.Options{})
}

func TestBreakpointPausesBeforeLine(t *testing.T) {
	s := newState(sampleProgram())
	ctrl := NewController()
	ctrl.SetBreakpoints("main.vibe", []int{2}, nil)

	reason := runToPauseOrEnd(s, ctrl)
	require.Equal(t, ReasonBreakpoint, reason)
	require.Equal(t, vm.StatusPaused, s.Status)
	require.Equal(t, 1.0, s.CallStack.Top().Locals["x"].Value)
	_, declared := s.CallStack.Top().Locals["y"]
	require.False(t, declared)
}

func TestConditionalBreakpointOnlyPausesWhenTrue(t *testing.T) {
	s := newState([]program.Stmt{
		&program.LetStmt{Name: "x", Value: &program.Literal{Value: 1.0}, Loc: value.Location{File: "main.vibe", Line: 1}},
		&program.LetStmt{Name: "x", Value: &program.Literal{Value: 5.0}, Loc: value.Location{File: "main.vibe", Line: 2}},
		&program.ExprStmt{Value: &program.Ident{Name: "x"}, Loc: value.Location{File: "main.vibe", Line: 3}},
	})
	ctrl := NewController()
	cond := &program.BinaryExpr{Op: value.OpGt, Left: &program.Ident{Name: "x"}, Right: &program.Literal{Value: 3.0}}
	ctrl.SetBreakpoints("main.vibe", []int{3}, []program.Expr{cond})

	reason := runToPauseOrEnd(s, ctrl)
	require.Equal(t, ReasonBreakpoint, reason)
	require.Equal(t, 5.0, s.CallStack.Top().Locals["x"].Value)
}

func TestHitConditionSkipsEarlyHits(t *testing.T) {
	body := []program.Stmt{}
	for i := 0; i < 3; i++ {
		body = append(body, &program.ExprStmt{Value: &program.Literal{Value: float64(i)}, Loc: value.Location{File: "loop.vibe", Line: 1}})
	}
	s := newState(body)
	ctrl := NewController()
	ctrl.SetBreakpoints("loop.vibe", []int{1}, nil)
	ctrl.breakpoints["loop.vibe"][0].HitCondition = "==3"

	// First two reaches (count 1, 2) don't satisfy ==3; only the third pauses.
	reason := runToPauseOrEnd(s, ctrl)
	require.Equal(t, ReasonBreakpoint, reason)
	require.Equal(t, 3, ctrl.breakpoints["loop.vibe"][0].HitCount)
}

func TestLogMessageBreakpointNeverPauses(t *testing.T) {
	s := newState(sampleProgram())
	ctrl := NewController()
	ctrl.SetBreakpoints("main.vibe", []int{2}, nil)
	ctrl.breakpoints["main.vibe"][0].LogMessage = "x is {x}"

	reason := runToPauseOrEnd(s, ctrl)
	require.Equal(t, PauseReason(""), reason)
	require.Equal(t, vm.StatusCompleted, s.Status)
	require.Len(t, ctrl.LogMessages, 1)
	require.Equal(t, "x is 1", ctrl.LogMessages[0])
}

func TestStepIntoPausesAtNextStatement(t *testing.T) {
	s := newState(sampleProgram())
	ctrl := NewController()
	ctrl.SetStepMode(StepInto, s)

	reason := runToPauseOrEnd(s, ctrl)
	require.Equal(t, ReasonStep, reason)
	_, declared := s.CallStack.Top().Locals["x"]
	require.False(t, declared)
}

func TestStepOverPausesAtSameDepth(t *testing.T) {
	s := newState([]program.Stmt{
		&program.LetStmt{Name: "x", Value: &program.Literal{Value: 1.0}, Loc: value.Location{File: "main.vibe", Line: 1}},
	})
	ctrl := NewController()
	ctrl.SetStepMode(StepOver, s)

	reason := runToPauseOrEnd(s, ctrl)
	require.Equal(t, ReasonStep, reason)
}

func TestStepOutDoesNotPauseAtSameDepth(t *testing.T) {
	s := newState(sampleProgram())
	ctrl := NewController()
	ctrl.SetStepMode(StepOut, s)

	reason := runToPauseOrEnd(s, ctrl)
	require.Equal(t, PauseReason(""), reason)
	require.Equal(t, vm.StatusCompleted, s.Status)
}

func TestExceptionBreakpointAllPausesOnAnyError(t *testing.T) {
	ctrl := NewController()
	ctrl.SetExceptionBreakpoints(ExceptionConfig{All: true})
	require.True(t, ctrl.ShouldPauseOnError(value.KindTypeError, true))
}

func TestExceptionBreakpointFiltersByKind(t *testing.T) {
	ctrl := NewController()
	ctrl.SetExceptionBreakpoints(ExceptionConfig{Filters: []value.ErrorKind{value.KindRangeError}})
	require.True(t, ctrl.ShouldPauseOnError(value.KindRangeError, false))
	require.False(t, ctrl.ShouldPauseOnError(value.KindTypeError, false))
}

func TestStackScopeVariableProtocol(t *testing.T) {
	s := newState(sampleProgram())
	ctrl := NewController()
	ctrl.SetBreakpoints("main.vibe", []int{2}, nil)
	runToPauseOrEnd(s, ctrl)

	trace := GetStackTrace(s, CurrentLocation(s))
	require.Len(t, trace, 1)
	require.Equal(t, "main.vibe", trace[0].File)
	require.Equal(t, 2, trace[0].Line)

	scopes := ctrl.GetScopes(s, trace[0].FrameIndex)
	require.Len(t, scopes, 1)
	require.Equal(t, "locals", scopes[0].Name)

	vars := ctrl.GetVariables(s, scopes[0].VariablesReference)
	require.Len(t, vars, 1)
	require.Equal(t, "x", vars[0].Name)
	require.Equal(t, "1", vars[0].Value)
	require.False(t, vars[0].HasError)

	children := ctrl.GetVariables(s, vars[0].VariablesReference)
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.Name
	}
	require.Equal(t, []string{"value", "err", "toolCalls", "usage"}, names)
}

func TestWatchExpressionEvaluatesAgainstPausedState(t *testing.T) {
	s := newState(sampleProgram())
	ctrl := NewController()
	ctrl.SetBreakpoints("main.vibe", []int{2}, nil)
	runToPauseOrEnd(s, ctrl)

	w := ctrl.AddWatch(&program.Ident{Name: "x"})
	results := ctrl.EvaluateWatches(s)
	require.Len(t, results, 1)
	require.Equal(t, "1", w.LastValue)

	ctrl.RemoveWatch(w.ID)
	require.Empty(t, ctrl.Watches())
}
