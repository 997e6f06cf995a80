// Package handoff implements the script↔host mode transfer controller
// (spec.md §4.7): ts_eval, call_imported_ts, and host-bodied tool calls
// all suspend the stepper and hand control to an external host
// evaluator. Grounded on adapter/mcp_adapter.go's lifecycle bookkeeping
// for an out-of-process collaborator (a mutex-guarded map of live
// sessions, a single Close-shaped teardown) — generalized here from
// per-host subprocess/pipe state to a single in-flight host-call depth
// counter, since the host evaluator itself is an injected contract
// (spec.md §1) rather than a concrete subprocess this package owns.
package handoff

import (
	"fmt"
	"sync"

	"github.com/vibelang/vibe-core/debug"
	"github.com/vibelang/vibe-core/value"
	"github.com/vibelang/vibe-core/vm"
)

// Reason identifies what triggered the transfer into host mode.
type Reason string

const (
	ReasonTSBlock  Reason = "ts_block"
	ReasonTSImport Reason = "ts_import"
	ReasonTool     Reason = "tool"
)

// Mode is the controller's current execution mode.
type Mode string

const (
	ModeScript Mode = "script"
	ModeHost   Mode = "host"
)

// Controller tracks the script↔host boundary crossed by awaiting_ts and
// awaiting_tool suspensions. It does not itself evaluate host code (the
// host debug adapter and host evaluator are out of scope, spec.md §1);
// it only bookkeeps mode, call depth, and the saved debug-controller
// state around the transfer.
type Controller struct {
	mu            sync.Mutex
	mode          Mode
	reason        Reason
	hostCallDepth int
	saved         *debug.Snapshot
}

// NewController builds a Controller starting in script mode.
func NewController() *Controller {
	return &Controller{mode: ModeScript}
}

// Mode reports the current mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// HostCallDepth reports the current nested-host-call depth (0 outside
// host mode).
func (c *Controller) HostCallDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hostCallDepth
}

// Reason reports why the current (or most recent) host-mode transfer
// happened.
func (c *Controller) Reason() Reason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Enter captures dbg's step state as saved_debug_state and switches to
// host mode with host_call_depth=1 (spec.md §4.7 steps 1-2). Call this
// once the stepper has suspended into awaiting_ts or awaiting_tool.
func (c *Controller) Enter(reason Reason, dbg *debug.Controller) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeHost {
		return fmt.Errorf("handoff: already in host mode (reason %s, depth %d)", c.reason, c.hostCallDepth)
	}
	snap := dbg.Snapshot()
	c.saved = &snap
	c.mode = ModeHost
	c.reason = reason
	c.hostCallDepth = 1
	return nil
}

// StepIn records the host debug adapter entering a nested host call,
// bumping host_call_depth (spec.md §4.7 step 3).
func (c *Controller) StepIn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeHost {
		c.hostCallDepth++
	}
}

// StepOut records the host debug adapter returning from a nested host
// call, decrementing host_call_depth, and reports whether depth has
// returned to 0 (spec.md §4.7 step 3-4: "when depth returns to 0 ...").
// A caller observing true then calls ExitTS or ExitTool.
func (c *Controller) StepOut() (reachedZero bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeHost || c.hostCallDepth == 0 {
		return true
	}
	c.hostCallDepth--
	return c.hostCallDepth == 0
}

// ExitTS restores saved_debug_state, transitions back to script mode,
// and resumes the stepper via vm.ResumeWithTSResult with the host
// evaluator's return value (spec.md §4.7 step 4). Used for ts_eval /
// call_imported_ts transfers.
func (c *Controller) ExitTS(s *vm.State, dbg *debug.Controller, result value.VibeValue, hostErr error) *vm.State {
	c.leave(dbg)
	return vm.ResumeWithTSResult(s, result, hostErr)
}

// ExitTool is ExitTS's counterpart for a host-bodied tool call,
// resuming via vm.ResumeWithToolResult.
func (c *Controller) ExitTool(s *vm.State, dbg *debug.Controller, result value.VibeValue, hostErr error) *vm.State {
	c.leave(dbg)
	return vm.ResumeWithToolResult(s, result, hostErr)
}

func (c *Controller) leave(dbg *debug.Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saved != nil {
		dbg.Restore(*c.saved)
		c.saved = nil
	}
	c.mode = ModeScript
	c.hostCallDepth = 0
}
