package vm

import (
	"github.com/vibelang/vibe-core/frame"
	"github.com/vibelang/vibe-core/instr"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/value"
)

func dispatchIfBranch(s *State, ins instr.Instruction) {
	cond := s.LastResult
	if cond.IsError() {
		s.LastResult = cond
		return
	}
	b, ok := cond.Value.(bool)
	if !ok {
		fault(s, ins.Location, value.KindTypeError, "if condition must be boolean")
		return
	}
	if b {
		pushSeq(s, ins.Consequent)
	} else if ins.Alternate != nil {
		pushSeq(s, ins.Alternate)
	}
}

func contextModeOf(c program.ContextModeClause) instr.ContextMode {
	switch c.Mode {
	case "verbose":
		return instr.ContextVerbose
	case "compress":
		return instr.ContextCompress
	default:
		return instr.ContextForget
	}
}

func dispatchForInInit(s *State, ins instr.Instruction) {
	fs, ok := ins.Stmt.(*program.ForInStmt)
	if !ok {
		fault(s, ins.Location, value.KindInternalError, "for_in_init missing statement payload")
		return
	}
	top := s.CallStack.Top()
	entryIndex := len(top.OrderedEntries)
	top.OrderedEntries = append(top.OrderedEntries, frame.ScopeEnter("for", fs.Label))
	saved := top.Snapshot()

	itemsSeq := compileExpr(fs.Items)
	iterate := instr.Instruction{
		Op: instr.OpForInIterate, Name: fs.Var, Body: compileBlock(fs.Body), Stmt: fs,
		Index: 0, SavedKeys: saved, ContextMode: contextModeOf(fs.ContextMode), Label: fs.Label,
		EntryIndex: entryIndex, Location: ins.Location,
	}
	pushSeq(s, append(itemsSeq, iterate))
}

func dispatchForInIterate(s *State, ins instr.Instruction) {
	items := s.LastResult
	if items.AsyncPending() {
		op, present := s.AsyncOperations[items.AsyncOperationID]
		if present && (op.Status == AsyncPending || op.Status == AsyncRunning) {
			s.AwaitingAsyncIDs = append(s.AwaitingAsyncIDs, items.AsyncOperationID)
			s.Status = StatusAwaitingAsync
			s.InstructionStack = append(s.InstructionStack, ins)
			return
		}
	}
	seq, ok := materializeSequence(items)
	if !ok {
		fault(s, ins.Location, value.KindTypeError, "for-in source must be an array, number, or range")
		return
	}
	if ins.Index >= len(seq) {
		exitLoopScope(s, ins.EntryIndex, ins.ContextMode, "for", ins.Label, ins.SavedKeys)
		return
	}
	top := s.CallStack.Top()
	top.DeclareVar(ins.Name, value.New(seq[ins.Index]), "", false, value.SourceUser, false)

	next := ins
	next.Index = ins.Index + 1
	body := append(append([]instr.Instruction(nil), ins.Body...), next)
	pushSeq(s, body)
}

// materializeSequence expands a for-in items value into a concrete
// []any per spec.md §4.2 ("item source may be an array, a number N
// (produces [1..N]), or a range array built earlier").
func materializeSequence(v value.VibeValue) ([]any, bool) {
	switch payload := v.Value.(type) {
	case []any:
		return payload, true
	case float64:
		n := int(payload)
		out := make([]any, n)
		for i := 0; i < n; i++ {
			out[i] = float64(i + 1)
		}
		return out, true
	default:
		return nil, false
	}
}

// exitLoopScope restores the block-scoped locals declared inside the
// loop (spec.md §3 "keys captured at block entry are restored") and then
// applies the loop's declared context mode to ordered_entries.
func exitLoopScope(s *State, entryIndex int, mode instr.ContextMode, scopeKind, label string, savedKeys any) {
	top := s.CallStack.Top()
	if saved, ok := savedKeys.(frame.SavedKeys); ok {
		top.RestoreTo(saved)
	}
	switch mode {
	case instr.ContextForget:
		top.TruncateEntriesTo(entryIndex)
	case instr.ContextVerbose:
		top.OrderedEntries = append(top.OrderedEntries, frame.ScopeExit(scopeKind, label))
		return
	case instr.ContextCompress:
		s.PendingCompress = &PendingCompress{FrameIndex: s.CallStack.TopIndex(), EntryIndex: entryIndex, Model: s.LastUsedModel}
		s.Status = StatusAwaitingCompress
		return
	}
	top.OrderedEntries = append(top.OrderedEntries, frame.ScopeExit(scopeKind, label))
}

func dispatchWhileInit(s *State, ins instr.Instruction) {
	ws, ok := ins.Stmt.(*program.WhileStmt)
	if !ok {
		fault(s, ins.Location, value.KindInternalError, "while_init missing statement payload")
		return
	}
	top := s.CallStack.Top()
	entryIndex := len(top.OrderedEntries)
	top.OrderedEntries = append(top.OrderedEntries, frame.ScopeEnter("while", ws.Label))
	saved := top.Snapshot()

	check := instr.Instruction{
		Op: instr.OpWhileCheck, Stmt: ws, Body: compileBlock(ws.Body), SavedKeys: saved,
		ContextMode: contextModeOf(ws.ContextMode), Label: ws.Label, EntryIndex: entryIndex, Location: ins.Location,
	}
	pushSeq(s, append(compileExpr(ws.Cond), check))
}

func dispatchWhileCheck(s *State, ins instr.Instruction) {
	cond := s.LastResult
	if cond.IsError() {
		s.LastResult = cond
		return
	}
	b, ok := cond.Value.(bool)
	if !ok {
		fault(s, ins.Location, value.KindTypeError, "while condition must be boolean")
		return
	}
	if !b {
		exitLoopScope(s, ins.EntryIndex, ins.ContextMode, "while", ins.Label, ins.SavedKeys)
		return
	}
	iterate := instr.Instruction{
		Op: instr.OpWhileIterate, Stmt: ins.Stmt, Body: ins.Body, SavedKeys: ins.SavedKeys,
		ContextMode: ins.ContextMode, Label: ins.Label, EntryIndex: ins.EntryIndex, Location: ins.Location,
	}
	pushSeq(s, append(append([]instr.Instruction(nil), ins.Body...), iterate))
}

func dispatchWhileIterate(s *State, ins instr.Instruction) {
	ws := ins.Stmt.(*program.WhileStmt)
	check := instr.Instruction{
		Op: instr.OpWhileCheck, Stmt: ws, Body: ins.Body, SavedKeys: ins.SavedKeys,
		ContextMode: ins.ContextMode, Label: ins.Label, EntryIndex: ins.EntryIndex, Location: ins.Location,
	}
	pushSeq(s, append(compileExpr(ws.Cond), check))
}

func dispatchBreakLoop(s *State, ins instr.Instruction) {
	// A break unwinds the currently-open loop scope by draining any
	// remaining loop-body instructions ahead of its trailing iterate/exit
	// frame. Here the instruction stack already holds only the loop's
	// continuation frames (iterate/check), so breaking means dropping
	// straight to the loop's exit: callers compile break within a block
	// whose surrounding for_in_iterate/while_check instructions are still
	// on the stack, so we scan for and discard them.
	for len(s.InstructionStack) > 0 {
		top := s.InstructionStack[len(s.InstructionStack)-1]
		if top.Op == instr.OpForInIterate || top.Op == instr.OpWhileCheck || top.Op == instr.OpWhileIterate {
			s.InstructionStack = s.InstructionStack[:len(s.InstructionStack)-1]
			if top.Label == "" || top.Label == ins.Label || ins.Label == "" {
				exitLoopScope(s, top.EntryIndex, top.ContextMode, scopeKindFor(top.Op), top.Label, top.SavedKeys)
				return
			}
			continue
		}
		s.InstructionStack = s.InstructionStack[:len(s.InstructionStack)-1]
	}
}

func scopeKindFor(op instr.Op) string {
	if op == instr.OpForInIterate {
		return "for"
	}
	return "while"
}
