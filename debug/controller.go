package debug

import (
	"fmt"

	"github.com/vibelang/vibe-core/instr"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/value"
	"github.com/vibelang/vibe-core/vm"
)

// StepMode is the active stepping granularity (spec.md §4.6).
type StepMode string

const (
	StepInto StepMode = "into"
	StepOver StepMode = "over"
	StepOut  StepMode = "out"
	StepNone StepMode = "none"
)

// ExceptionConfig configures which runtime faults pause the machine
// (spec.md §4.6 "exception breakpoints").
type ExceptionConfig struct {
	All      bool
	Uncaught bool
	Filters  []value.ErrorKind
}

// PauseReason explains why ShouldPauseBefore returned true.
type PauseReason string

const (
	ReasonBreakpoint PauseReason = "breakpoint"
	ReasonStep       PauseReason = "step"
	ReasonException  PauseReason = "exception"
)

// Controller is the debug surface wrapped around a *vm.State: it never
// drives the stepper itself (package runtime does), it only decides
// whether the driver should pause before the next vm.Step and answers
// the stack/scope/variable/watch introspection protocol once paused.
type Controller struct {
	breakpoints     map[string][]*Breakpoint
	exceptions      ExceptionConfig
	stepMode        StepMode
	stepOriginDepth int
	stepArmed       bool
	watches         []*Watch

	nextRef int
	refs    map[int]refTarget

	// LogMessages accumulates rendered log_message breakpoint hits
	// (spec.md §4.6 "triggering only logs and never pauses"); the driver
	// surfaces these however it reports progress.
	LogMessages []string
}

// NewController builds an idle Controller with no breakpoints, no step
// mode, and exception breakpoints disabled.
func NewController() *Controller {
	return &Controller{
		breakpoints: make(map[string][]*Breakpoint),
		stepMode:    StepNone,
		refs:        make(map[int]refTarget),
	}
}

// SetExceptionBreakpoints replaces the exception-breakpoint config.
func (c *Controller) SetExceptionBreakpoints(cfg ExceptionConfig) { c.exceptions = cfg }

// SetStepMode arms mode, capturing s's current call depth as the origin
// for over/out predicates (spec.md §4.6 "the new location ... satisfying
// the mode's frame-depth predicate").
func (c *Controller) SetStepMode(mode StepMode, s *vm.State) {
	c.stepMode = mode
	c.stepOriginDepth = s.CallStack.Depth()
	c.stepArmed = mode != StepNone
}

// ShouldPauseBefore inspects the instruction s is about to dispatch and
// reports whether the driver should stop first, and why. Call this
// immediately before each vm.Step(s) in the driver loop.
func (c *Controller) ShouldPauseBefore(s *vm.State) (bool, PauseReason) {
	ins, depth, ok := s.PeekNext()
	if !ok || ins.Op != instr.OpExecStatement {
		return false, ""
	}
	stmt, ok := ins.Stmt.(program.Stmt)
	if !ok {
		return false, ""
	}
	loc := stmt.Location()

	if bp := c.at(loc.File, loc.Line); bp != nil {
		pause, logOnly := shouldBreak(bp, s)
		if logOnly {
			c.LogMessages = append(c.LogMessages, renderLogMessage(bp.LogMessage, s.CallStack.Top().Locals))
		}
		if pause {
			return true, ReasonBreakpoint
		}
	}

	if c.stepArmed && c.stepSatisfied(depth) {
		c.stepArmed = false
		return true, ReasonStep
	}
	return false, ""
}

func (c *Controller) stepSatisfied(depth int) bool {
	switch c.stepMode {
	case StepInto:
		return true
	case StepOver:
		return depth <= c.stepOriginDepth
	case StepOut:
		return depth < c.stepOriginDepth
	default:
		return false
	}
}

// Snapshot is the subset of Controller state the handoff controller
// saves as saved_debug_state before transferring execution into a host
// block (spec.md §4.7), and restores when control returns to script mode.
type Snapshot struct {
	StepMode        StepMode
	StepOriginDepth int
	StepArmed       bool
}

// Snapshot captures the stepping state for later restoration.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{StepMode: c.stepMode, StepOriginDepth: c.stepOriginDepth, StepArmed: c.stepArmed}
}

// Restore reinstates a previously captured Snapshot.
func (c *Controller) Restore(sn Snapshot) {
	c.stepMode, c.stepOriginDepth, c.stepArmed = sn.StepMode, sn.StepOriginDepth, sn.StepArmed
}

// ShouldPauseOnError reports whether an error of kind reached while
// uncaught should pause the machine (spec.md §4.6 "an error with kind
// matching a filter or satisfying the enabled flag pauses the machine").
// caught is true when the error is still inside a VibeValue (recoverable,
// spec.md §4.8) rather than a runtime fault.
func (c *Controller) ShouldPauseOnError(kind value.ErrorKind, caught bool) bool {
	if c.exceptions.All {
		return true
	}
	if c.exceptions.Uncaught && !caught {
		return true
	}
	for _, f := range c.exceptions.Filters {
		if f == kind {
			return true
		}
	}
	return false
}

func formatValue(v any) string {
	return fmt.Sprintf("%v", v)
}

// CurrentLocation reports the source position of the instruction s is
// paused in front of, for GetStackTrace's deepest-frame attribution.
func CurrentLocation(s *vm.State) value.Location {
	ins, _, ok := s.PeekNext()
	if !ok {
		return value.Location{}
	}
	if stmt, ok := ins.Stmt.(program.Stmt); ok {
		return stmt.Location()
	}
	return ins.Location
}
