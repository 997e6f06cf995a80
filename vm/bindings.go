package vm

import (
	"github.com/vibelang/vibe-core/instr"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/value"
)

func dispatchDeclareVar(s *State, ins instr.Instruction) {
	if ins.Op2 == "async" {
		dispatchAsyncLet(s, ins)
		return
	}
	v := s.LastResult
	top := s.CallStack.Top()
	if ins.IsConst {
		v = v.AsConst()
	}
	top.DeclareVar(ins.Name, v, ins.Type, ins.IsConst, v.Source, ins.IsPrivate)
	s.LastResult = v
}

func dispatchAssignVar(s *State, ins instr.Instruction) {
	v := s.LastResult
	f, ok := frameOwning(s, ins.Name)
	if !ok {
		fault(s, ins.Location, value.KindReferenceError, "undeclared identifier %q", ins.Name)
		return
	}
	if err := f.AssignVar(ins.Name, v); err != nil {
		fault(s, ins.Location, value.KindConstAssignError, "%s", err.Error())
		return
	}
	s.LastResult = v
}

func dispatchDestructureAssign(s *State, ins instr.Instruction) {
	v := s.LastResult
	if v.AsyncPending() {
		s.PendingDestructure = &PendingDestructure{Fields: ins.Names, IsConst: ins.IsConst, AsyncOperationID: v.AsyncOperationID}
		s.AwaitingAsyncIDs = append(s.AwaitingAsyncIDs, v.AsyncOperationID)
		s.Status = StatusAwaitingAsync
		// re-queue the same instruction for when the result lands
		s.InstructionStack = append(s.InstructionStack, ins)
		return
	}
	if v.IsError() {
		s.LastResult = v
		return
	}
	obj, ok := v.Value.(map[string]any)
	if !ok {
		fault(s, ins.Location, value.KindTypeError, "destructuring requires an object value")
		return
	}
	top := s.CallStack.Top()
	for _, field := range ins.Names {
		fv, present := obj[field]
		if !present {
			fault(s, ins.Location, value.KindMissingFieldError, "missing destructuring field %q", field)
			return
		}
		top.DeclareVar(field, value.New(fv), "", ins.IsConst, SourceFor(v), false)
	}
	s.LastResult = v
}

// SourceFor preserves provenance across destructuring.
func SourceFor(v value.VibeValue) value.Source { return v.Source }

func dispatchLoadVar(s *State, ins instr.Instruction) {
	v, ok := lookupVar(s, ins.Name)
	if !ok {
		fault(s, ins.Location, value.KindReferenceError, "undeclared identifier %q", ins.Name)
		return
	}
	if v.AsyncPending() {
		op, present := s.AsyncOperations[v.AsyncOperationID]
		if present && (op.Status == AsyncPending || op.Status == AsyncRunning) {
			s.AwaitingAsyncIDs = append(s.AwaitingAsyncIDs, v.AsyncOperationID)
			s.Status = StatusAwaitingAsync
			s.InstructionStack = append(s.InstructionStack, ins)
			return
		}
	}
	s.LastResult = v
}

func dispatchAsyncLet(s *State, ins instr.Instruction) {
	stmt, ok := ins.Stmt.(*program.AsyncLetStmt)
	if !ok {
		fault(s, ins.Location, value.KindInternalError, "async declare_var missing statement payload")
		return
	}
	opID := s.NextAsyncID()
	kind := asyncKindOf(stmt.Value)
	placeholder := value.VibeValue{AsyncOperationID: opID}
	top := s.CallStack.Top()
	top.DeclareVar(stmt.Name, placeholder, stmt.Type, false, value.SourceUser, false)

	s.AsyncOperations[opID] = &AsyncOp{ID: opID, Kind: kind, Status: AsyncPending, VariableName: stmt.Name, FrameIndex: s.CallStack.TopIndex()}
	s.PendingAsyncIDs[opID] = true

	switch kind {
	case "ai", "ts":
		// genuine external I/O: queue for package async's bounded,
		// concurrent driver (spec.md §4.5). The prompt/args are resolved
		// now, against the frame that is still current, rather than
		// deferred to the driver — by the time async.Drain runs, stepping
		// may have moved s.CallStack.Top() onto an unrelated frame.
		s.PendingAsyncStarts = append(s.PendingAsyncStarts, StartRequest{
			OpID: opID, Kind: kind, FrameIndex: s.CallStack.TopIndex(), VarName: stmt.Name,
			Payload: resolveAsyncPayload(s, stmt.Value),
		})
	default:
		// no external transport involved: run the expression through the
		// ordinary instruction sequence (it may itself suspend on a nested
		// ai/ts call, which is fine — implicit await still applies when a
		// later read touches the placeholder) and finalize inline.
		seq := compileExpr(stmt.Value)
		finish := instr.Instruction{Op: instr.OpAsyncInlineComplete, Name: opID, Op2: stmt.Name, Location: ins.Location}
		pushSeq(s, append(seq, finish))
	}
	s.LastResult = placeholder
}

func dispatchAsyncInlineComplete(s *State, ins instr.Instruction) {
	v := s.LastResult
	opID, varName := ins.Name, ins.Op2
	op, ok := s.AsyncOperations[opID]
	if !ok {
		return
	}
	if v.IsError() {
		op.Status = AsyncFailed
	} else {
		op.Status = AsyncCompleted
	}
	op.Result = &v
	delete(s.PendingAsyncIDs, opID)
	s.Arena.At(op.FrameIndex).Locals[varName] = v
	s.LastResult = v
}

func asyncKindOf(e program.Expr) string {
	switch e.(type) {
	case *program.AIExpr:
		return "ai"
	case *program.TSEvalExpr, *program.ImportedTSCallExpr:
		return "ts"
	default:
		return "call"
	}
}

// resolveAsyncPayload evaluates an "ai"/"ts" async_let's non-suspending
// parts (prompt text, call arguments) against the still-current frame
// and returns the same PendingAI/PendingTS shapes the synchronous
// dispatchAIVibe/dispatchTSEval/dispatchCallImportedTS paths produce,
// so package runtime's async.Runner never needs to re-evaluate an
// expression against a frame stepping may since have moved past.
func resolveAsyncPayload(s *State, e program.Expr) any {
	switch n := e.(type) {
	case *program.AIExpr:
		promptVal := evalSimple(s, n.Prompt)
		prompt := ""
		if !promptVal.IsError() {
			prompt = stringify(promptVal.Value)
		}
		model := n.Model
		if model == "" {
			model = s.LastUsedModel
		}
		return &PendingAI{
			OpKind:         n.OpKind,
			Prompt:         prompt,
			Model:          model,
			ContextSpec:    instr.ContextSpec(n.ContextSpec),
			ExpectedFields: n.ExpectedFields,
		}
	case *program.TSEvalExpr:
		args := make([]value.VibeValue, len(n.Args))
		for i, a := range n.Args {
			args[i] = evalSimple(s, a)
		}
		return &PendingTS{Kind: "ts_block", Params: n.Params, Body: n.Body, Args: args}
	case *program.ImportedTSCallExpr:
		args := make([]value.VibeValue, len(n.Args))
		for i, a := range n.Args {
			args[i] = evalSimple(s, a)
		}
		return &PendingTS{Kind: "ts_import", Name: n.Name, Args: args}
	default:
		return nil
	}
}
