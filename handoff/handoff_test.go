package handoff

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vibelang/vibe-core/debug"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/value"
	"github.com/vibelang/vibe-core/vm"
)

func tsEvalState(t *testing.T) *vm.State {
	t.Helper()
	prog := &program.Program{
		ModulePath: "main.vibe",
		Body: []program.Stmt{
			&program.ExprStmt{Value: &program.TSEvalExpr{Params: []string{"n"}, Body: "return n * 2", Args: []program.Expr{&program.Literal{Value: 21.0}}}},
		},
		Functions: map[string]*program.Function{},
	}
	s := vm.NewState(prog, vm.Options{})
	vm.RunUntilPause(s)
	require.Equal(t, vm.StatusAwaitingTS, s.Status)
	return s
}

func TestEnterCapturesDebugStateAndSwitchesMode(t *testing.T) {
	s := tsEvalState(t)
	dbg := debug.NewController()
	dbg.SetStepMode(debug.StepOver, s)

	h := NewController()
	require.NoError(t, h.Enter(ReasonTSBlock, dbg))
	require.Equal(t, ModeHost, h.Mode())
	require.Equal(t, ReasonTSBlock, h.Reason())
	require.Equal(t, 1, h.HostCallDepth())
}

func TestEnterTwiceFails(t *testing.T) {
	s := tsEvalState(t)
	dbg := debug.NewController()
	h := NewController()
	require.NoError(t, h.Enter(ReasonTSBlock, dbg))
	require.Error(t, h.Enter(ReasonTool, dbg))
}

func TestStepInOutTracksDepth(t *testing.T) {
	tsEvalState(t)
	dbg := debug.NewController()
	h := NewController()
	require.NoError(t, h.Enter(ReasonTSBlock, dbg))

	h.StepIn()
	require.Equal(t, 2, h.HostCallDepth())
	require.False(t, h.StepOut())
	require.Equal(t, 1, h.HostCallDepth())
	require.True(t, h.StepOut())
	require.Equal(t, 0, h.HostCallDepth())
}

func TestExitTSRestoresDebugStateAndResumesStepper(t *testing.T) {
	s := tsEvalState(t)
	dbg := debug.NewController()
	dbg.SetStepMode(debug.StepInto, s)
	savedMode := dbg.Snapshot().StepMode

	h := NewController()
	require.NoError(t, h.Enter(ReasonTSBlock, dbg))
	dbg.SetStepMode(debug.StepNone, s) // host adapter drives its own stepping meanwhile

	h.ExitTS(s, dbg, value.New(42.0), nil)
	require.Equal(t, vm.StatusRunning, s.Status)
	require.Equal(t, ModeScript, h.Mode())
	require.Equal(t, savedMode, dbg.Snapshot().StepMode)

	vm.RunUntilPause(s)
	require.Equal(t, vm.StatusCompleted, s.Status)
	require.Equal(t, 42.0, s.LastResult.Value)
}

func TestExitTSWrapsHostErrorAsHostBlockError(t *testing.T) {
	s := tsEvalState(t)
	dbg := debug.NewController()
	h := NewController()
	require.NoError(t, h.Enter(ReasonTSBlock, dbg))

	h.ExitTS(s, dbg, value.VibeValue{}, assertErr("boom"))
	require.True(t, s.LastResult.IsError())
	require.Equal(t, value.KindHostBlockError, s.LastResult.Err.Kind)
}

func TestExitToolResumesHostBodiedToolCall(t *testing.T) {
	prog := &program.Program{
		ModulePath: "main.vibe",
		Body: []program.Stmt{
			&program.ExprStmt{Value: &program.CallExpr{Callee: &program.Ident{Name: "greet"}, Args: []program.Expr{&program.Literal{Value: "world"}}}},
		},
		Functions: map[string]*program.Function{
			"greet": {Name: "greet", Params: []string{"name"}, HostBody: "return 'hi ' + name"},
		},
	}
	s := vm.NewState(prog, vm.Options{})
	vm.RunUntilPause(s)
	require.Equal(t, vm.StatusAwaitingTool, s.Status)

	dbg := debug.NewController()
	h := NewController()
	require.NoError(t, h.Enter(ReasonTool, dbg))
	h.ExitTool(s, dbg, value.New("hi world"), nil)

	vm.RunUntilPause(s)
	require.Equal(t, vm.StatusCompleted, s.Status)
	require.Equal(t, "hi world", s.LastResult.Value)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
