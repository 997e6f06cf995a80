package debug

import (
	"github.com/vibelang/vibe-core/value"
	"github.com/vibelang/vibe-core/vm"
)

// StackFrame is one entry in a paused stack trace (spec.md §6
// get_stack_trace), deepest first.
type StackFrame struct {
	FrameIndex int
	Name       string
	File       string
	Line       int
}

// Scope is a named variable group inside one stack frame, referencing
// its variables by a variables_reference rather than inlining them
// (spec.md §4.6).
type Scope struct {
	Name               string
	VariablesReference int
}

// Variable is one inspectable binding or VibeValue sub-field. Composite
// values carry a non-zero VariablesReference for further expansion.
type Variable struct {
	Name               string
	Value              string
	Type               string
	VariablesReference int
	HasError           bool
	HasToolCalls       bool
	ToolCallCount      int
}

type refKind int

const (
	refLocals refKind = iota
	refVibeValue
)

type refTarget struct {
	kind       refKind
	frameIndex int
	value      value.VibeValue
}

func (c *Controller) newRef(t refTarget) int {
	c.nextRef++
	c.refs[c.nextRef] = t
	return c.nextRef
}

// BeginPause must be called once when the machine newly pauses, before
// GetScopes/GetVariables: it drops stale reference bindings from the
// previous pause so variables_reference values reflect the current
// frame state rather than a now-stale snapshot.
func (c *Controller) BeginPause() {
	c.refs = make(map[int]refTarget)
}

// GetStackTrace builds the paused call stack, deepest frame first
// (spec.md §4.6 "top = deepest"). currentLoc is the location of the
// instruction the driver paused in front of, attributed to the deepest
// frame.
func GetStackTrace(s *vm.State, currentLoc value.Location) []StackFrame {
	indices := s.CallStack.Indices
	out := make([]StackFrame, len(indices))
	for i := range indices {
		idx := indices[len(indices)-1-i]
		f := s.Arena.At(idx)
		sf := StackFrame{FrameIndex: idx, Name: f.Name}
		if i == 0 {
			sf.File, sf.Line = currentLoc.File, currentLoc.Line
		}
		out[i] = sf
	}
	return out
}

// GetScopes returns the scopes visible at frameIndex: the frame's own
// locals, plus the module-root globals when frameIndex is not itself the
// root.
func (c *Controller) GetScopes(s *vm.State, frameIndex int) []Scope {
	scopes := []Scope{
		{Name: "locals", VariablesReference: c.newRef(refTarget{kind: refLocals, frameIndex: frameIndex})},
	}
	if root := s.CallStack.Indices[0]; root != frameIndex {
		scopes = append(scopes, Scope{Name: "globals", VariablesReference: c.newRef(refTarget{kind: refLocals, frameIndex: root})})
	}
	return scopes
}

// GetVariables services a variables_reference query, returning either a
// frame's locals (in declaration order) or a VibeValue's expansion into
// {value, err, errDetails, toolCalls, usage} (spec.md §4.6).
func (c *Controller) GetVariables(s *vm.State, ref int) []Variable {
	t, ok := c.refs[ref]
	if !ok {
		return nil
	}
	switch t.kind {
	case refLocals:
		f := s.Arena.At(t.frameIndex)
		out := make([]Variable, 0, len(f.LocalOrder))
		for _, name := range f.LocalOrder {
			out = append(out, c.describeValue(name, f.Locals[name]))
		}
		return out
	case refVibeValue:
		return c.expandVibeValue(t.value)
	default:
		return nil
	}
}

func (c *Controller) describeValue(name string, v value.VibeValue) Variable {
	return Variable{
		Name:               name,
		Value:              formatValue(v.Value),
		Type:               string(v.TypeAnnotation),
		VariablesReference: c.newRef(refTarget{kind: refVibeValue, value: v}),
		HasError:           v.IsError(),
		HasToolCalls:       v.HasToolCalls(),
		ToolCallCount:      len(v.ToolCalls),
	}
}

func (c *Controller) expandVibeValue(v value.VibeValue) []Variable {
	out := []Variable{{Name: "value", Value: formatValue(v.Value)}}
	if v.Err != nil {
		out = append(out,
			Variable{Name: "err", Value: string(v.Err.Kind)},
			Variable{Name: "errDetails", Value: v.Err.Error()},
		)
	} else {
		out = append(out, Variable{Name: "err", Value: "null"})
	}
	out = append(out, Variable{Name: "toolCalls", Value: formatValue(v.ToolCalls), ToolCallCount: len(v.ToolCalls)})
	if v.Usage != nil {
		out = append(out, Variable{Name: "usage", Value: formatValue(*v.Usage)})
	} else {
		out = append(out, Variable{Name: "usage", Value: "null"})
	}
	return out
}
