package vm

import (
	"fmt"
	"strings"

	"github.com/vibelang/vibe-core/instr"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/value"
)

func dispatchBuildArray(s *State, ins instr.Instruction) {
	elems := make([]any, ins.Count)
	for i := ins.Count - 1; i >= 0; i-- {
		elems[i] = popValue(s).Value
	}
	s.LastResult = value.New(elems)
}

func dispatchBuildObject(s *State, ins instr.Instruction) {
	obj := make(map[string]any, len(ins.Keys))
	vals := make([]any, len(ins.Keys))
	for i := len(ins.Keys) - 1; i >= 0; i-- {
		vals[i] = popValue(s).Value
	}
	for i, k := range ins.Keys {
		obj[k] = vals[i]
	}
	s.LastResult = value.New(obj)
}

func dispatchBuildRange(s *State, ins instr.Instruction) {
	n := s.LastResult
	if n.IsError() {
		return
	}
	f, ok := n.Value.(float64)
	if !ok {
		fault(s, ins.Location, value.KindTypeError, "range requires a numeric operand")
		return
	}
	count := int(f)
	out := make([]any, count)
	for i := 0; i < count; i++ {
		out[i] = float64(i + 1)
	}
	s.LastResult = value.New(out)
}

func dispatchCollectArgs(s *State, ins instr.Instruction) {
	args := make([]any, ins.Count)
	for i := ins.Count - 1; i >= 0; i-- {
		args[i] = popValue(s).Value
	}
	s.LastResult = value.New(args)
}

func dispatchSliceAccess(s *State, ins instr.Instruction) {
	var end, start *int
	if ins.HasEnd {
		e := popValue(s)
		if ef, ok := e.Value.(float64); ok {
			i := int(ef)
			end = &i
		}
	}
	if ins.HasStart {
		st := popValue(s)
		if sf, ok := st.Value.(float64); ok {
			i := int(sf)
			start = &i
		}
	}
	target := popValue(s)
	s.LastResult = value.Slice(target, start, end, ins.Location)
}

func dispatchInterpolate(s *State, ins instr.Instruction, isPrompt bool) {
	var b strings.Builder
	for _, part := range ins.Template {
		if !part.IsExpr {
			b.WriteString(part.Literal)
			continue
		}
		e, ok := part.Expression.(program.Expr)
		if !ok {
			continue
		}
		v := evalSimple(s, e)
		if v.IsError() {
			s.LastResult = v
			return
		}
		b.WriteString(stringify(v.Value))
	}
	out := b.String()
	if isPrompt {
		s.LastResult = value.VibeValue{Value: out, TypeAnnotation: value.TypePrompt}
		return
	}
	s.LastResult = value.New(out)
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", v)
}
