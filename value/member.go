package value

import "fmt"

// BoundMethod is the sentinel produced by member access to a method-like
// member (len, push, pop, toString). call_function later invokes it
// (spec.md §4.2 "Member access").
type BoundMethod struct {
	Receiver VibeValue
	Name     string
}

var reservedFields = map[string]bool{
	"err": true, "errDetails": true, "toolCalls": true, "usage": true,
}

var methodNames = map[string]bool{
	"len": true, "push": true, "pop": true, "toString": true,
}

// Member evaluates operand.prop. Reserved fields (err, errDetails,
// toolCalls, usage) are always exposed regardless of error state; any
// other property first unwraps the value.
func Member(operand VibeValue, prop string, loc Location) VibeValue {
	switch prop {
	case "err":
		if operand.Err == nil {
			return Null()
		}
		return New(string(operand.Err.Kind))
	case "errDetails":
		if operand.Err == nil {
			return Null()
		}
		return New(map[string]any{
			"message":  operand.Err.Message,
			"kind":     string(operand.Err.Kind),
			"location": operand.Err.Location.String(),
		})
	case "toolCalls":
		out := make([]any, 0, len(operand.ToolCalls))
		for _, tc := range operand.ToolCalls {
			out = append(out, map[string]any{
				"name": tc.Name, "args": tc.Args, "result": tc.Result,
				"duration_ms": tc.DurationMs,
			})
		}
		return New(out)
	case "usage":
		u := operand.UsageCopy()
		if u == nil {
			return Null()
		}
		return New(map[string]any{
			"request_id": u.RequestID, "input_tokens": u.InputTokens,
			"output_tokens": u.OutputTokens, "cached_input_tokens": u.CachedInputTokens,
			"thinking_tokens": u.ThinkingTokens,
		})
	}

	if operand.IsError() {
		return operand
	}

	if methodNames[prop] {
		return VibeValue{Value: BoundMethod{Receiver: operand, Name: prop}}
	}

	switch payload := operand.Value.(type) {
	case map[string]any:
		v, ok := payload[prop]
		if !ok {
			return NewError(NewErr(KindReferenceError, loc, "no property %q on object", prop))
		}
		return New(v)
	default:
		return NewError(NewErr(KindTypeError, loc, "cannot access property %q on non-object value", prop))
	}
}

// CallBoundMethod invokes a method-like member produced by Member.
// Mutating methods (push, pop) reject a const receiver binding; the
// caller supplies isConst (package vm reads it from the binding's stored
// value in Frame.Locals), not from bm.Receiver.IsConst, per spec.md §9
// "const value sharing".
func CallBoundMethod(bm BoundMethod, args []VibeValue, isConst bool, loc Location) (result VibeValue, mutated []any, err error) {
	switch bm.Name {
	case "len":
		return New(float64(seqLen(bm.Receiver.Value))), nil, nil
	case "toString":
		return New(fmt.Sprintf("%v", bm.Receiver.Value)), nil, nil
	case "push":
		if isConst {
			return NewError(NewErr(KindConstAssignError, loc, "cannot push onto a const sequence")), nil, fmt.Errorf("const")
		}
		seq, ok := bm.Receiver.Value.([]any)
		if !ok {
			return NewError(NewErr(KindTypeError, loc, "push requires an array receiver")), nil, nil
		}
		if len(args) != 1 {
			return NewError(NewErr(KindTypeError, loc, "push requires exactly one argument")), nil, nil
		}
		next := append(append([]any(nil), seq...), args[0].Value)
		return New(next), next, nil
	case "pop":
		if isConst {
			return NewError(NewErr(KindConstAssignError, loc, "cannot pop from a const sequence")), nil, fmt.Errorf("const")
		}
		seq, ok := bm.Receiver.Value.([]any)
		if !ok || len(seq) == 0 {
			return NewError(NewErr(KindRangeError, loc, "pop from empty or non-array receiver")), nil, nil
		}
		popped := seq[len(seq)-1]
		next := append([]any(nil), seq[:len(seq)-1]...)
		return New(popped), next, nil
	default:
		return NewError(NewErr(KindInternalError, loc, "unknown method %q", bm.Name)), nil, nil
	}
}
