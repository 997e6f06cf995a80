package vm

import (
	"fmt"

	"github.com/vibelang/vibe-core/instr"
	"github.com/vibelang/vibe-core/value"
)

// Step executes one instruction and returns the mutated state (spec.md
// §4.2). Callers drive a run by looping Step until Status leaves
// "running"; package runtime is the intended driver.
func Step(s *State) *State {
	if s.Status != StatusRunning {
		return s
	}
	if len(s.InstructionStack) == 0 {
		assembleContext(s)
		if len(s.PendingAsyncIDs) > 0 {
			// Fire-and-forget async ops must terminate before the program
			// is allowed to reach completed (spec.md §4.5, §8).
			s.AwaitingAsyncIDs = pendingAsyncIDList(s)
			s.Status = StatusAwaitingAsync
			return s
		}
		s.Status = StatusCompleted
		return s
	}

	ins := pop(s)
	assembleContext(s)
	dispatch(s, ins)
	return s
}

// StepN runs up to n steps, stopping early if the machine leaves
// "running".
func StepN(s *State, n int) *State {
	for i := 0; i < n && s.Status == StatusRunning; i++ {
		Step(s)
	}
	return s
}

// RunUntilPause steps until the machine suspends or terminates.
func RunUntilPause(s *State) *State {
	for s.Status == StatusRunning {
		Step(s)
	}
	return s
}

func dispatch(s *State, ins instr.Instruction) {
	switch ins.Op {
	case instr.OpExecStatements:
		dispatchExecStatements(s, ins)
	case instr.OpExecStatement:
		pushSeq(s, compileStmtAny(ins.Stmt))
	case instr.OpExecExpression:
		pushSeq(s, compileExprAny(ins.Stmt))

	case instr.OpDeclareVar:
		dispatchDeclareVar(s, ins)
	case instr.OpAssignVar:
		dispatchAssignVar(s, ins)
	case instr.OpDestructureAssign:
		dispatchDestructureAssign(s, ins)
	case instr.OpAsyncInlineComplete:
		dispatchAsyncInlineComplete(s, ins)

	case instr.OpCallFunction:
		dispatchCallFunction(s, ins)
	case instr.OpPushFrame:
		dispatchPushFrame(s, ins)
	case instr.OpPopFrame:
		s.CallStack.PopFrame()
	case instr.OpReturnValue:
		dispatchReturnValue(s, ins)
	case instr.OpThrowError:
		dispatchThrowError(s, ins)

	case instr.OpExecToolDecl:
		dispatchExecToolDecl(s, ins)
	case instr.OpDeclareModel:
		dispatchDeclareModel(s, ins)

	case instr.OpIfBranch:
		dispatchIfBranch(s, ins)
	case instr.OpForInInit:
		dispatchForInInit(s, ins)
	case instr.OpForInIterate:
		dispatchForInIterate(s, ins)
	case instr.OpWhileInit:
		dispatchWhileInit(s, ins)
	case instr.OpWhileCheck:
		dispatchWhileCheck(s, ins)
	case instr.OpWhileIterate:
		dispatchWhileIterate(s, ins)
	case instr.OpBreakLoop:
		dispatchBreakLoop(s, ins)

	case instr.OpAIVibe:
		dispatchAIVibe(s, ins)
	case instr.OpTSEval:
		dispatchTSEval(s, ins)
	case instr.OpCallImportedTS:
		dispatchCallImportedTS(s, ins)

	case instr.OpLoadVar:
		dispatchLoadVar(s, ins)
	case instr.OpPushValue:
		s.ValueStack = append(s.ValueStack, s.LastResult)
	case instr.OpLiteral:
		s.LastResult = value.New(ins.Literal)
	case instr.OpBuildObject:
		dispatchBuildObject(s, ins)
	case instr.OpBuildArray:
		dispatchBuildArray(s, ins)
	case instr.OpBuildRange:
		dispatchBuildRange(s, ins)
	case instr.OpCollectArgs:
		dispatchCollectArgs(s, ins)
	case instr.OpBinaryOp:
		left := popValue(s)
		s.LastResult = value.Binary(value.BinaryOp(ins.Op2), left, s.LastResult, ins.Location)
	case instr.OpUnaryOp:
		s.LastResult = value.Unary(value.UnaryOp(ins.Op2), s.LastResult, ins.Location)
	case instr.OpIndexAccess:
		idx := s.LastResult
		target := popValue(s)
		s.LastResult = value.Index(target, idx, ins.Location)
	case instr.OpSliceAccess:
		dispatchSliceAccess(s, ins)
	case instr.OpMemberAccess:
		s.LastResult = value.Member(s.LastResult, ins.Name, ins.Location)
	case instr.OpInterpolateString:
		dispatchInterpolate(s, ins, false)
	case instr.OpInterpolatePromptString:
		dispatchInterpolate(s, ins, true)
	case instr.OpClearPromptContext:
		// forget-mode scope exit is performed inline by the loop ops and
		// the compiler does not emit this instruction; dispatching it
		// truncates to the current length, leaving the entries unchanged.
		top := s.CallStack.Top()
		top.TruncateEntriesTo(len(top.OrderedEntries))
	case instr.OpClearAsyncContext:
		// no-op marker consumed by package async for bookkeeping only.
	case instr.OpEnterBlock:
		// handled inline by compileStmt's block/loop instructions; kept
		// as an explicit variant for the debug controller's stepping.
	case instr.OpExitBlock:
	default:
		fault(s, ins.Location, value.KindInternalError, "unhandled instruction %q", ins.Op)
	}
}

func pendingAsyncIDList(s *State) []string {
	ids := make([]string, 0, len(s.PendingAsyncIDs))
	for id := range s.PendingAsyncIDs {
		ids = append(ids, id)
	}
	return ids
}

func dispatchExecStatements(s *State, ins instr.Instruction) {
	stmts := asStmtSlice(ins.Stmt)
	if ins.Index >= len(stmts) {
		return
	}
	next := instr.Instruction{Op: instr.OpExecStatements, Stmt: stmts, Index: ins.Index + 1}
	cur := instr.Instruction{Op: instr.OpExecStatement, Stmt: stmts[ins.Index]}
	pushSeq(s, []instr.Instruction{cur, next})
}

// fault terminates the run with a runtime fault (spec.md §4.8).
func fault(s *State, loc value.Location, kind value.ErrorKind, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.Status = StatusError
	s.Error = fmt.Sprintf("%s at %s", msg, loc.String())
	s.LastResult = value.NewError(value.NewErr(kind, loc, "%s", msg))
}
