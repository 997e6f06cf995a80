// Package runtime is the driver API spec.md §6 names: it wires vm,
// debug, handoff, ai, and async together into the create_initial_state/
// step/resume_with_*/set_breakpoints/get_stack_trace surface a caller
// (a CLI, an editor integration) actually drives. Grounded on
// core/dependencies.go's InitializeDependencies (one function wiring
// storage/event-bus/blob/secrets/engine into a single driver object) for
// the "compose the packages above into one struct" shape, and on
// cmd/flow/run.go's parse → configure → execute → report pipeline for
// the run-to-completion loop.
package runtime

import (
	"context"

	"github.com/vibelang/vibe-core/ai"
	"github.com/vibelang/vibe-core/debug"
	"github.com/vibelang/vibe-core/handoff"
	"github.com/vibelang/vibe-core/logger"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/telemetry"
	"github.com/vibelang/vibe-core/value"
	"github.com/vibelang/vibe-core/vm"
)

// Session bundles one program's execution state with the debug and
// handoff controllers wrapped around it, plus the injected providers
// (spec.md §1's "only their contract appears here" boundary) a caller
// must supply to resolve AI/host suspensions.
type Session struct {
	State   *vm.State
	Debug   *debug.Controller
	Handoff *handoff.Controller

	// Provider answers ai_vibe requests. Nil is fine for callers driving
	// the machine by hand (e.g. tests exercising resume_with_ai_response
	// directly); RunToSettled requires one.
	Provider ai.Provider
	// Host answers ts_eval/call_imported_ts/host-bodied-tool requests.
	Host HostEvaluator

	requestPause bool
}

// CreateInitialState implements create_initial_state (spec.md §6).
func CreateInitialState(prog *program.Program, opts vm.Options) *Session {
	s := vm.NewState(prog, opts)
	sess := &Session{State: s, Debug: debug.NewController(), Handoff: handoff.NewController()}
	if s.Status == vm.StatusPaused {
		sess.Debug.BeginPause()
	}
	return sess
}

// Pause requests that the next Step stop before dispatching, regardless
// of breakpoints or step mode (spec.md §6 "pause/resume_execution").
func (sess *Session) Pause() { sess.requestPause = true }

// ResumeExecution leaves a manual or breakpoint/step pause and lets the
// next RunUntilPause/Step proceed.
func (sess *Session) ResumeExecution() *vm.State {
	if sess.State.Status == vm.StatusPaused {
		sess.State.Status = vm.StatusRunning
	}
	return sess.State
}

// Step dispatches at most one instruction, first consulting the debug
// controller's pause predicate (spec.md §4.6): Controller.ShouldPauseBefore
// never mutates state itself, so Session is the driver loop that turns a
// "yes" into an actual status=paused transition.
func (sess *Session) Step() *vm.State {
	s := sess.State
	if s.Status != vm.StatusRunning {
		return s
	}
	if sess.requestPause {
		sess.requestPause = false
		s.Status = vm.StatusPaused
		sess.Debug.BeginPause()
		return s
	}
	if pause, _ := sess.Debug.ShouldPauseBefore(s); pause {
		s.Status = vm.StatusPaused
		sess.Debug.BeginPause()
		return s
	}
	_, end := telemetry.StartStep(context.Background())
	result := vm.Step(s)
	end(string(result.Status))
	if result.Status != vm.StatusRunning {
		logger.Debug("session suspended with status %s", result.Status)
	}
	return result
}

// StepN runs up to n steps, stopping early if status leaves running.
func (sess *Session) StepN(n int) *vm.State {
	for i := 0; i < n && sess.State.Status == vm.StatusRunning; i++ {
		sess.Step()
	}
	return sess.State
}

// RunUntilPause steps until status leaves running (a breakpoint/step
// pause, a suspend into awaiting_*, completion, or error).
func (sess *Session) RunUntilPause() *vm.State {
	for sess.State.Status == vm.StatusRunning {
		sess.Step()
	}
	return sess.State
}

// SetBreakpoints implements set_breakpoints (spec.md §6): replaces, not
// accumulates, the breakpoint set for file.
func (sess *Session) SetBreakpoints(file string, lines []int, conditions []program.Expr) []*debug.Breakpoint {
	return sess.Debug.SetBreakpoints(file, lines, conditions)
}

// ClearBreakpoints implements clear_breakpoints.
func (sess *Session) ClearBreakpoints(file string) { sess.Debug.ClearBreakpoints(file) }

// SetStepMode implements set_step_mode, capturing the session's current
// call depth as the step's origin.
func (sess *Session) SetStepMode(mode debug.StepMode) {
	sess.Debug.SetStepMode(mode, sess.State)
}

// GetStackTrace implements get_stack_trace.
func (sess *Session) GetStackTrace() []debug.StackFrame {
	return debug.GetStackTrace(sess.State, debug.CurrentLocation(sess.State))
}

// GetScopes implements get_scopes.
func (sess *Session) GetScopes(frameIndex int) []debug.Scope {
	return sess.Debug.GetScopes(sess.State, frameIndex)
}

// GetVariables implements get_variables.
func (sess *Session) GetVariables(ref int) []debug.Variable {
	return sess.Debug.GetVariables(sess.State, ref)
}

// ResumeWithAIResponse implements resume_with_ai_response.
func (sess *Session) ResumeWithAIResponse(result any, toolRounds []vm.ToolRound, usage *value.Usage) *vm.State {
	return vm.ResumeWithAIResponse(sess.State, result, toolRounds, usage)
}

// ResumeWithAsyncResults implements resume_with_async_results.
func (sess *Session) ResumeWithAsyncResults(results map[string]value.VibeValue) *vm.State {
	return vm.ResumeWithAsyncResults(sess.State, results)
}

// ResumeWithTSResult implements resume_with_ts_result.
func (sess *Session) ResumeWithTSResult(result value.VibeValue, hostErr error) *vm.State {
	return sess.Handoff.ExitTS(sess.State, sess.Debug, result, hostErr)
}

// ResumeWithCompress implements resume_with_compress.
func (sess *Session) ResumeWithCompress(summaryText string) *vm.State {
	return vm.ResumeWithCompress(sess.State, summaryText)
}
