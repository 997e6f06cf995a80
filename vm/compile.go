package vm

import (
	"github.com/vibelang/vibe-core/instr"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/value"
)

// compileExpr lowers an expression into the stack-based micro-instruction
// sequence described by spec.md §4.1/§4.2: operands are staged through
// push_value (value_stack) and last_result, binary/unary/index/slice/
// member ops drain them in the documented order.
func compileExpr(e program.Expr) []instr.Instruction {
	switch n := e.(type) {
	case *program.Literal:
		return []instr.Instruction{{Op: instr.OpLiteral, Literal: n.Value, Location: n.Loc}}

	case *program.Ident:
		return []instr.Instruction{{Op: instr.OpLoadVar, Name: n.Name, Location: n.Loc}}

	case *program.BinaryExpr:
		var seq []instr.Instruction
		seq = append(seq, compileExpr(n.Left)...)
		seq = append(seq, instr.Instruction{Op: instr.OpPushValue, Location: n.Loc})
		seq = append(seq, compileExpr(n.Right)...)
		seq = append(seq, instr.Instruction{Op: instr.OpBinaryOp, Op2: string(n.Op), Location: n.Loc})
		return seq

	case *program.UnaryExpr:
		seq := compileExpr(n.Operand)
		seq = append(seq, instr.Instruction{Op: instr.OpUnaryOp, Op2: string(n.Op), Location: n.Loc})
		return seq

	case *program.IndexExpr:
		var seq []instr.Instruction
		seq = append(seq, compileExpr(n.Target)...)
		seq = append(seq, instr.Instruction{Op: instr.OpPushValue, Location: n.Loc})
		seq = append(seq, compileExpr(n.Index)...)
		seq = append(seq, instr.Instruction{Op: instr.OpIndexAccess, Location: n.Loc})
		return seq

	case *program.SliceExpr:
		var seq []instr.Instruction
		seq = append(seq, compileExpr(n.Target)...)
		seq = append(seq, instr.Instruction{Op: instr.OpPushValue, Location: n.Loc})
		hasStart := n.Start != nil
		hasEnd := n.End != nil
		if hasStart {
			seq = append(seq, compileExpr(n.Start)...)
			seq = append(seq, instr.Instruction{Op: instr.OpPushValue, Location: n.Loc})
		}
		if hasEnd {
			seq = append(seq, compileExpr(n.End)...)
			seq = append(seq, instr.Instruction{Op: instr.OpPushValue, Location: n.Loc})
		}
		seq = append(seq, instr.Instruction{Op: instr.OpSliceAccess, HasStart: hasStart, HasEnd: hasEnd, Location: n.Loc})
		return seq

	case *program.MemberExpr:
		seq := compileExpr(n.Target)
		seq = append(seq, instr.Instruction{Op: instr.OpMemberAccess, Name: n.Prop, Location: n.Loc})
		return seq

	case *program.CallExpr:
		var seq []instr.Instruction
		name := ""
		pushCallee := true
		switch callee := n.Callee.(type) {
		case *program.Ident:
			name = callee.Name
			pushCallee = false
		case *program.MemberExpr:
			pushCallee = false
		}
		if pushCallee {
			seq = append(seq, compileExpr(n.Callee)...)
			seq = append(seq, instr.Instruction{Op: instr.OpPushValue, Location: n.Loc})
		}
		for _, a := range n.Args {
			seq = append(seq, compileExpr(a)...)
			seq = append(seq, instr.Instruction{Op: instr.OpPushValue, Location: n.Loc})
		}
		seq = append(seq, instr.Instruction{Op: instr.OpCallFunction, Argc: len(n.Args), Name: name, Stmt: n, Location: n.Loc})
		return seq

	case *program.ArrayExpr:
		var seq []instr.Instruction
		for _, el := range n.Elements {
			seq = append(seq, compileExpr(el)...)
			seq = append(seq, instr.Instruction{Op: instr.OpPushValue, Location: n.Loc})
		}
		seq = append(seq, instr.Instruction{Op: instr.OpBuildArray, Count: len(n.Elements), Location: n.Loc})
		return seq

	case *program.ObjectExpr:
		var seq []instr.Instruction
		for _, v := range n.Values {
			seq = append(seq, compileExpr(v)...)
			seq = append(seq, instr.Instruction{Op: instr.OpPushValue, Location: n.Loc})
		}
		seq = append(seq, instr.Instruction{Op: instr.OpBuildObject, Keys: n.Keys, Location: n.Loc})
		return seq

	case *program.RangeExpr:
		seq := compileExpr(n.N)
		seq = append(seq, instr.Instruction{Op: instr.OpBuildRange, Location: n.Loc})
		return seq

	case *program.InterpStringExpr:
		return []instr.Instruction{{Op: instr.OpInterpolateString, Template: compileParts(n.Parts), Location: n.Loc}}

	case *program.InterpPromptExpr:
		return []instr.Instruction{{Op: instr.OpInterpolatePromptString, Template: compileParts(n.Parts), Location: n.Loc}}

	case *program.AIExpr:
		return []instr.Instruction{{
			Op:          instr.OpAIVibe,
			Model:       n.Model,
			ContextSpec: instr.ContextSpec(n.ContextSpec),
			Op2:         n.OpKind,
			Stmt:        n,
			Location:    n.Loc,
		}}

	case *program.TSEvalExpr:
		var seq []instr.Instruction
		for _, a := range n.Args {
			seq = append(seq, compileExpr(a)...)
			seq = append(seq, instr.Instruction{Op: instr.OpPushValue, Location: n.Loc})
		}
		seq = append(seq, instr.Instruction{Op: instr.OpTSEval, Params: n.Params, Argc: len(n.Args), Stmt: n, Location: n.Loc})
		return seq

	case *program.ImportedTSCallExpr:
		var seq []instr.Instruction
		for _, a := range n.Args {
			seq = append(seq, compileExpr(a)...)
			seq = append(seq, instr.Instruction{Op: instr.OpPushValue, Location: n.Loc})
		}
		seq = append(seq, instr.Instruction{Op: instr.OpCallImportedTS, Name: n.Name, Argc: len(n.Args), Stmt: n, Location: n.Loc})
		return seq

	default:
		return []instr.Instruction{{Op: instr.OpLiteral, Literal: nil}}
	}
}

func compileParts(parts []program.TemplatePiece) []instr.TemplatePart {
	out := make([]instr.TemplatePart, 0, len(parts))
	for _, p := range parts {
		if p.Expr == nil {
			out = append(out, instr.TemplatePart{Literal: p.Literal})
		} else {
			out = append(out, instr.TemplatePart{IsExpr: true, Expression: p.Expr})
		}
	}
	return out
}

// compileStmt lowers a statement into its instruction sequence. Control
// flow (if/for/while) is lowered into the dedicated control instructions
// rather than flattened, so a single step boundary lands on each branch
// decision (needed by the debug controller's stepping modes, §4.6).
func compileStmt(st program.Stmt) []instr.Instruction {
	switch n := st.(type) {
	case *program.LetStmt:
		seq := compileExpr(n.Value)
		seq = append(seq, instr.Instruction{
			Op: instr.OpDeclareVar, Name: n.Name, IsConst: n.IsConst,
			Type: n.Type, IsPrivate: n.IsPrivate, Location: n.Loc,
		})
		return seq

	case *program.AsyncLetStmt:
		return []instr.Instruction{{Op: instr.OpDeclareVar, Name: n.Name, Type: n.Type, Stmt: n, Op2: "async", Location: n.Loc}}

	case *program.AssignStmt:
		seq := compileExpr(n.Value)
		seq = append(seq, instr.Instruction{Op: instr.OpAssignVar, Name: n.Name, Location: n.Loc})
		return seq

	case *program.DestructureStmt:
		seq := compileExpr(n.Value)
		seq = append(seq, instr.Instruction{Op: instr.OpDestructureAssign, Names: n.Fields, IsConst: n.IsConst, Location: n.Loc})
		return seq

	case *program.ExprStmt:
		return compileExpr(n.Value)

	case *program.IfStmt:
		seq := compileExpr(n.Cond)
		seq = append(seq, instr.Instruction{
			Op: instr.OpIfBranch, Consequent: compileBlock(n.Consequent),
			Alternate: compileBlock(n.Alternate), Location: n.Loc,
		})
		return seq

	case *program.ForInStmt:
		return []instr.Instruction{{Op: instr.OpForInInit, Stmt: n, Location: n.Loc}}

	case *program.WhileStmt:
		return []instr.Instruction{{Op: instr.OpWhileInit, Stmt: n, Location: n.Loc}}

	case *program.BreakStmt:
		return []instr.Instruction{{Op: instr.OpBreakLoop, Label: n.Label, Location: n.Loc}}

	case *program.ReturnStmt:
		var seq []instr.Instruction
		if n.Value != nil {
			seq = compileExpr(n.Value)
		} else {
			seq = []instr.Instruction{{Op: instr.OpLiteral, Literal: nil, Location: n.Loc}}
		}
		seq = append(seq, instr.Instruction{Op: instr.OpReturnValue, Location: n.Loc})
		return seq

	case *program.ThrowStmt:
		seq := compileExpr(n.Value)
		seq = append(seq, instr.Instruction{Op: instr.OpThrowError, Location: n.Loc})
		return seq

	case *program.BlockStmt:
		return []instr.Instruction{{Op: instr.OpExecStatements, Stmt: n.Body, Index: 0, Location: n.Loc}}

	case *program.ToolDeclStmt:
		return []instr.Instruction{{Op: instr.OpExecToolDecl, ToolDecl: n, Location: n.Loc}}

	case *program.ModelDeclStmt:
		return []instr.Instruction{{Op: instr.OpDeclareModel, Stmt: n, Location: n.Loc}}

	default:
		return nil
	}
}

func compileBlock(body []program.Stmt) []instr.Instruction {
	if len(body) == 0 {
		return nil
	}
	return []instr.Instruction{{Op: instr.OpExecStatements, Stmt: body, Index: 0}}
}

// pushSeq pushes seq onto the instruction stack such that seq[0]
// executes first (instruction_stack is LIFO; see step.go).
func pushSeq(s *State, seq []instr.Instruction) {
	for i := len(seq) - 1; i >= 0; i-- {
		s.InstructionStack = append(s.InstructionStack, seq[i])
	}
}

func pop(s *State) instr.Instruction {
	n := len(s.InstructionStack)
	ins := s.InstructionStack[n-1]
	s.InstructionStack = s.InstructionStack[:n-1]
	return ins
}

func asStmtSlice(v any) []program.Stmt {
	switch t := v.(type) {
	case []program.Stmt:
		return t
	case program.Stmt:
		return []program.Stmt{t}
	default:
		return nil
	}
}

func compileStmtAny(v any) []instr.Instruction {
	st, ok := v.(program.Stmt)
	if !ok {
		return nil
	}
	return compileStmt(st)
}

func compileExprAny(v any) []instr.Instruction {
	e, ok := v.(program.Expr)
	if !ok {
		return nil
	}
	return compileExpr(e)
}

func popValue(s *State) value.VibeValue {
	n := len(s.ValueStack)
	v := s.ValueStack[n-1]
	s.ValueStack = s.ValueStack[:n-1]
	return v
}
