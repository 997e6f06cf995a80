// Package vm implements the stepwise, resumable instruction machine:
// RuntimeState plus the step(state) -> state dispatch loop. It is the
// component every other package (ai, async, debug, handoff, runtime)
// drives or observes.
package vm

import (
	"github.com/vibelang/vibe-core/frame"
	"github.com/vibelang/vibe-core/instr"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/value"
)

// Status is the machine's run status.
type Status string

const (
	StatusRunning         Status = "running"
	StatusPaused          Status = "paused"
	StatusAwaitingAI      Status = "awaiting_ai"
	StatusAwaitingCompress Status = "awaiting_compress"
	StatusAwaitingUser    Status = "awaiting_user"
	StatusAwaitingTS      Status = "awaiting_ts"
	StatusAwaitingTool    Status = "awaiting_tool"
	StatusAwaitingAsync   Status = "awaiting_async"
	StatusCompleted       Status = "completed"
	StatusError           Status = "error"
)

// AsyncOpStatus is an AsyncOp's lifecycle status.
type AsyncOpStatus string

const (
	AsyncPending   AsyncOpStatus = "pending"
	AsyncRunning   AsyncOpStatus = "running"
	AsyncCompleted AsyncOpStatus = "completed"
	AsyncFailed    AsyncOpStatus = "failed"
)

// AsyncOp is one entry in the async registry (spec.md §4.5, §3).
type AsyncOp struct {
	ID          string
	Kind        string // "ai" | "ts" | "call"
	Status      AsyncOpStatus
	VariableName string
	FrameIndex  int
	Result      *value.VibeValue
	StartNS     int64
	EndNS       int64
}

// StartRequest is one queued async start, FIFO behind max_parallel
// in-flight operations (spec.md §4.5).
type StartRequest struct {
	OpID       string
	Kind       string
	FrameIndex int
	VarName    string
	// Payload describes what to run: for kind "ai" a PendingAI-shaped
	// request, for "ts" a PendingTS-shaped request. Kind "call" is not
	// queued: async_let runs it inline. The driver (package runtime)
	// interprets Payload.
	Payload any
}

// PendingAI describes a suspended ai_vibe request (spec.md §4.4).
type PendingAI struct {
	OpKind         string // "do" | "vibe"
	Prompt         string
	Model          string
	ContextSpec    instr.ContextSpec
	ExpectedFields []string
	AsyncOpID      string // "" when not an async-scheduled AI call
}

// PendingCompress describes a suspended compress-mode summarization
// request (spec.md §4.3).
type PendingCompress struct {
	FrameIndex  int
	EntryIndex  int
	Model       string
	PromptHint  string
	ResumeLabel string
}

// PendingTS describes a suspended ts_eval / call_imported_ts request
// (spec.md §4.7).
type PendingTS struct {
	Kind   string // "ts_block" | "ts_import"
	Params []string
	Body   string
	Name   string
	Args   []value.VibeValue
}

// PendingTool describes a suspended tool-loop call awaiting a
// host-block-bodied tool's result (spec.md §4.4, §4.7).
type PendingTool struct {
	Name string
	Args map[string]any
}

// PendingDestructure re-queues a destructure_assign that hit a pending
// async value (spec.md §4.2 "Destructuring").
type PendingDestructure struct {
	Fields  []string
	IsConst bool
	AsyncOperationID string
}

// State is RuntimeState (spec.md §3). It is the single unit of
// persisted/serializable execution state.
type State struct {
	Status Status

	Program   *program.Program
	Functions map[string]*program.Function
	Modules   map[string]*program.Program

	Arena     *frame.Arena
	CallStack *frame.CallStack

	InstructionStack []instr.Instruction
	ValueStack       []value.VibeValue
	LastResult       value.VibeValue

	AIHistory     []AIHistoryEntry
	ExecutionLog  []string

	LocalContext  []frame.FrameEntry
	GlobalContext []frame.FrameEntry

	PendingAI           *PendingAI
	PendingCompress     *PendingCompress
	PendingTS           *PendingTS
	PendingTool         *PendingTool
	PendingDestructure  *PendingDestructure

	AsyncOperations    map[string]*AsyncOp
	PendingAsyncIDs    map[string]bool
	PendingAsyncStarts []StartRequest
	AwaitingAsyncIDs   []string
	MaxParallel        int

	LastUsedModel string
	RootDir       string
	Error         string

	nextAsyncID int
}

// AIHistoryEntry records one completed AI exchange for the driver-facing
// transcript (distinct from a frame's ordered prompt entries, which feed
// context assembly — this is a flat audit log).
type AIHistoryEntry struct {
	OpKind   string
	Prompt   string
	Model    string
	Response value.VibeValue
}

// Options configures create_initial_state (spec.md §6).
type Options struct {
	StopOnEntry bool
	MaxParallel int
	RootDir     string
}

// PeekNext returns the instruction Step would dispatch next without
// mutating s, along with the current dynamic call depth — package
// debug's breakpoint/step-mode controller calls this before each Step
// to decide whether to pause first (spec.md §6 "breakpoints ... stop
// execution before the line runs").
func (s *State) PeekNext() (instr.Instruction, int, bool) {
	if len(s.InstructionStack) == 0 {
		return instr.Instruction{}, s.CallStack.Depth(), false
	}
	return s.InstructionStack[len(s.InstructionStack)-1], s.CallStack.Depth(), true
}

// NewState builds the initial RuntimeState for prog, pushing its
// top-level statements as the first exec_statements instruction.
func NewState(prog *program.Program, opts Options) *State {
	arena := frame.NewArena()
	root := arena.Push(frame.NewFrame("module", nil, prog.ModulePath))
	cs := frame.NewCallStack(arena, root)

	maxParallel := opts.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 4
	}

	s := &State{
		Status:          StatusRunning,
		Program:         prog,
		Functions:       prog.Functions,
		Modules:         map[string]*program.Program{prog.ModulePath: prog},
		Arena:           arena,
		CallStack:       cs,
		AsyncOperations: make(map[string]*AsyncOp),
		PendingAsyncIDs: make(map[string]bool),
		MaxParallel:     maxParallel,
		RootDir:         opts.RootDir,
	}
	if opts.StopOnEntry {
		s.Status = StatusPaused
	}
	s.InstructionStack = []instr.Instruction{{
		Op:    instr.OpExecStatements,
		Stmt:  prog.Body,
		Index: 0,
	}}
	return s
}

// NextAsyncID hands out a fresh async operation id, stable across runs
// that serialize/deserialize state consistently (monotonic counter, not
// a random uuid, so replays are reproducible in tests).
func (s *State) NextAsyncID() string {
	s.nextAsyncID++
	return "async-" + itoa(s.nextAsyncID)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
