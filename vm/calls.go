package vm

import (
	"github.com/vibelang/vibe-core/instr"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/value"
)

func dispatchPushFrame(s *State, ins instr.Instruction) {
	root := s.CallStack.Indices[0]
	s.CallStack.PushFrame(ins.Name, &root, s.Program.ModulePath)
}

func dispatchReturnValue(s *State, ins instr.Instruction) {
	result := s.LastResult
	for len(s.InstructionStack) > 0 {
		top := s.InstructionStack[len(s.InstructionStack)-1]
		s.InstructionStack = s.InstructionStack[:len(s.InstructionStack)-1]
		if top.Op == instr.OpPopFrame {
			break
		}
	}
	s.CallStack.PopFrame()
	s.LastResult = result
}

func dispatchThrowError(s *State, ins instr.Instruction) {
	v := s.LastResult
	if !v.IsError() {
		fault(s, ins.Location, value.KindInternalError, "throw requires an error-carrying value")
		return
	}
	s.Status = StatusError
	s.Error = v.Err.Error()
}

func dispatchCallFunction(s *State, ins instr.Instruction) {
	argc := ins.Argc
	args := make([]value.VibeValue, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = popValue(s)
	}

	if ce, ok := ins.Stmt.(*program.CallExpr); ok {
		if me, ok := ce.Callee.(*program.MemberExpr); ok {
			callMethodOnTarget(s, me, args, ins.Location)
			return
		}
	}

	if ins.Name != "" {
		if fn, ok := s.Functions[ins.Name]; ok {
			callUserFunction(s, fn, args, ins.Location)
			return
		}
		if v, ok := lookupVar(s, ins.Name); ok {
			callCallableValue(s, v, args, false, ins.Location)
			return
		}
		fault(s, ins.Location, value.KindReferenceError, "undeclared function %q", ins.Name)
		return
	}

	callee := popValue(s)
	callCallableValue(s, callee, args, false, ins.Location)
}

func callUserFunction(s *State, fn *program.Function, args []value.VibeValue, loc value.Location) {
	if len(args) != len(fn.Params) {
		fault(s, loc, value.KindSemanticError, "function %q expects %d arguments, got %d", fn.Name, len(fn.Params), len(args))
		return
	}

	if fn.HostBody != "" {
		argMap := make(map[string]any, len(fn.Params))
		for i, p := range fn.Params {
			argMap[p] = args[i].Value
		}
		s.PendingTool = &PendingTool{Name: fn.Name, Args: argMap}
		s.Status = StatusAwaitingTool
		return
	}

	root := s.CallStack.Indices[0]
	idx := s.CallStack.PushFrame(fn.Name, &root, s.Program.ModulePath)
	f := s.Arena.At(idx)
	for i, p := range fn.Params {
		f.DeclareVar(p, args[i], "", false, value.SourceUser, false)
	}
	s.LastResult = value.Null()
	body := instr.Instruction{Op: instr.OpExecStatements, Stmt: fn.Body, Index: 0}
	popFrame := instr.Instruction{Op: instr.OpPopFrame}
	pushSeq(s, []instr.Instruction{body, popFrame})
}

// callMethodOnTarget resolves method calls (push/pop/len/toString) whose
// receiver is a member access, special-cased so mutating methods can
// write the result back into the owning binding; for an identifier
// receiver the const flag is read from the binding's stored value in
// Frame.Locals (spec.md §9 "const value sharing").
func callMethodOnTarget(s *State, me *program.MemberExpr, args []value.VibeValue, loc value.Location) {
	id, simple := me.Target.(*program.Ident)
	if !simple {
		recv := evalSimple(s, me.Target)
		bm := value.Member(recv, me.Prop, loc)
		callCallableValue(s, bm, args, recv.IsConst, loc)
		return
	}
	recv, ok := lookupVar(s, id.Name)
	if !ok {
		fault(s, loc, value.KindReferenceError, "undeclared identifier %q", id.Name)
		return
	}
	f, owned := frameOwning(s, id.Name)
	isConst := owned && f.Locals[id.Name].IsConst
	bm := value.Member(recv, me.Prop, loc)
	result, mutated, err := callBoundMethodOrPlain(bm, args, isConst, loc)
	if err == nil && mutated != nil && owned {
		f.Locals[id.Name] = value.New(mutated)
	}
	s.LastResult = result
}

func callBoundMethodOrPlain(v value.VibeValue, args []value.VibeValue, isConst bool, loc value.Location) (value.VibeValue, []any, error) {
	bm, ok := v.Value.(value.BoundMethod)
	if !ok {
		if v.IsError() {
			return v, nil, nil
		}
		return value.NewError(value.NewErr(value.KindTypeError, loc, "value is not callable")), nil, nil
	}
	return value.CallBoundMethod(bm, args, isConst, loc)
}

func callCallableValue(s *State, v value.VibeValue, args []value.VibeValue, isConst bool, loc value.Location) {
	result, _, _ := callBoundMethodOrPlain(v, args, isConst, loc)
	s.LastResult = result
}

// Eval synchronously evaluates an expression that cannot itself suspend
// (no AI/host/async node anywhere in it). Exposed for package debug's
// watch expressions and breakpoint conditions; it is the same evaluator
// used internally by evalSimple's callers.
func Eval(s *State, e program.Expr) value.VibeValue { return evalSimple(s, e) }

// evalSimple synchronously evaluates expression kinds that cannot
// suspend (literals, identifiers, member and index access). It resolves
// method-call receivers that are not bare identifiers (e.g.
// `obj.field.push(x)`), AI prompts and models, interpolation parts, and
// async payloads.
func evalSimple(s *State, e program.Expr) value.VibeValue {
	switch n := e.(type) {
	case *program.Literal:
		return value.New(n.Value)
	case *program.Ident:
		v, _ := lookupVar(s, n.Name)
		return v
	case *program.MemberExpr:
		return value.Member(evalSimple(s, n.Target), n.Prop, n.Loc)
	case *program.IndexExpr:
		return value.Index(evalSimple(s, n.Target), evalSimple(s, n.Index), n.Loc)
	default:
		return value.NewError(value.NewErr(value.KindInternalError, value.Location{}, "unsupported receiver expression"))
	}
}
