// Package value implements VibeValue, the single tagged value type that
// flows through every expression the stepper evaluates.
package value

import (
	"fmt"
)

// ErrorKind enumerates the runtime error taxonomy. Kinds distinguish how an
// error should propagate: VibeValue errors are recoverable (a script can
// branch on them), runtime faults are not.
type ErrorKind string

const (
	KindParseError        ErrorKind = "ParseError"
	KindSemanticError      ErrorKind = "SemanticError"
	KindTypeError          ErrorKind = "TypeError"
	KindReferenceError     ErrorKind = "ReferenceError"
	KindRangeError         ErrorKind = "RangeError"
	KindConstAssignError   ErrorKind = "ConstAssignError"
	KindMissingFieldError  ErrorKind = "MissingFieldError"
	KindAIProviderError    ErrorKind = "AIProviderError"
	KindHostBlockError     ErrorKind = "HostBlockError"
	KindCompressError      ErrorKind = "CompressError"
	KindAsyncCanceledError ErrorKind = "AsyncCanceledError"
	KindBreakpointError    ErrorKind = "BreakpointError"
	KindInternalError      ErrorKind = "InternalError"
)

// Location pinpoints an error or instruction to a source position.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

func (l Location) String() string {
	if l.File == "" && l.Line == 0 && l.Col == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Err is the error record carried by a VibeValue.
type Err struct {
	Message  string    `json:"message"`
	Kind     ErrorKind `json:"kind"`
	Location Location  `json:"location"`
	Stack    []string  `json:"stack,omitempty"`
}

func (e *Err) Error() string {
	if loc := e.Location.String(); loc != "" {
		return fmt.Sprintf("%s at %s", e.Message, loc)
	}
	return e.Message
}

// NewErr builds an Err at the given kind and location.
func NewErr(kind ErrorKind, loc Location, format string, args ...any) *Err {
	return &Err{Message: fmt.Sprintf(format, args...), Kind: kind, Location: loc}
}

// ToolCall records one tool invocation made during a tool-loop AI call.
type ToolCall struct {
	Name       string         `json:"name"`
	Args       map[string]any `json:"args"`
	Result     any            `json:"result,omitempty"`
	Err        *Err           `json:"err,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// Usage is the per-request resource accounting returned by an AI provider.
type Usage struct {
	RequestID         string `json:"request_id"`
	InputTokens       int    `json:"input_tokens"`
	OutputTokens      int    `json:"output_tokens"`
	CachedInputTokens int    `json:"cached_input_tokens,omitempty"`
	ThinkingTokens     int    `json:"thinking_tokens,omitempty"`
}

// Source tags the provenance of a value.
type Source string

const (
	SourceAI   Source = "ai"
	SourceUser Source = "user"
)

// TypeAnnotation is a declared type tag on a binding.
type TypeAnnotation string

const (
	TypeText    TypeAnnotation = "text"
	TypeNumber  TypeAnnotation = "number"
	TypeBoolean TypeAnnotation = "boolean"
	TypeJSON    TypeAnnotation = "json"
	TypePrompt  TypeAnnotation = "prompt"
	TypeModel   TypeAnnotation = "model"
)

// ArrayTypeAnnotation builds the `<elem>[]` declared-type tag for arrays.
func ArrayTypeAnnotation(elem string) TypeAnnotation {
	return TypeAnnotation(elem + "[]")
}

// VibeValue is the only in-language value representation (spec.md §3).
//
// Invariants enforced by constructors and operators in this package:
//  1. Err != nil => Value == nil.
//  2. Any scalar operation on a value with Err yields a new value carrying
//     the first error unchanged (see Propagate).
//  3. IsConst is copied from the binding into the value for cheap
//     downstream mutation checks, but privacy lives on the FrameEntry, not
//     here (see package frame).
type VibeValue struct {
	Value            any             `json:"value"`
	Err              *Err            `json:"err,omitempty"`
	ToolCalls        []ToolCall      `json:"tool_calls,omitempty"`
	Usage            *Usage          `json:"usage,omitempty"`
	IsConst          bool            `json:"is_const"`
	TypeAnnotation   TypeAnnotation  `json:"type_annotation,omitempty"`
	Source           Source          `json:"source,omitempty"`
	AsyncOperationID string          `json:"async_operation_id,omitempty"`
}

// New wraps a raw payload into a VibeValue.
func New(v any) VibeValue {
	return VibeValue{Value: v}
}

// NewError builds an error-carrying VibeValue. Value is always nil.
func NewError(e *Err) VibeValue {
	return VibeValue{Err: e}
}

// Null is the canonical null value.
func Null() VibeValue { return VibeValue{Value: nil} }

// IsError reports whether v carries a propagating error.
func (v VibeValue) IsError() bool { return v.Err != nil }

// HasToolCalls reports whether v carries a non-empty tool-call trace,
// used by the debug controller's "hasToolCalls" display hint (spec.md §4.6).
func (v VibeValue) HasToolCalls() bool { return len(v.ToolCalls) > 0 }

// AsyncPending reports whether v is a placeholder for a still-pending
// async operation.
func (v VibeValue) AsyncPending() bool { return v.AsyncOperationID != "" }

// Propagate returns the first-error-wins result for a binary operation:
// if a carries an error it is returned unchanged; else if b carries an
// error it is returned unchanged; else ok is false and the caller should
// proceed with unwrapped payloads.
func Propagate(a, b VibeValue) (result VibeValue, propagated bool) {
	if a.IsError() {
		return a, true
	}
	if b.IsError() {
		return b, true
	}
	return VibeValue{}, false
}

// UsageCopy returns a shallow copy of v's Usage record (nil when v has
// none), so that caller mutations of the returned usage record do not
// leak back into the original (spec.md §4.2 "member access", §8 testable property).
func (v VibeValue) UsageCopy() *Usage {
	if v.Usage == nil {
		return nil
	}
	cp := *v.Usage
	return &cp
}

// Clone performs a shallow copy of v, used wherever a value crosses a
// privacy or const boundary (assigning a private value into a
// non-private binding, for instance — see package frame).
func (v VibeValue) Clone() VibeValue {
	cp := v
	if v.ToolCalls != nil {
		cp.ToolCalls = append([]ToolCall(nil), v.ToolCalls...)
	}
	if v.Usage != nil {
		u := *v.Usage
		cp.Usage = &u
	}
	return cp
}

// AsConst returns a copy of v with IsConst forced to true, used when a
// `const` binding is declared.
func (v VibeValue) AsConst() VibeValue {
	cp := v
	cp.IsConst = true
	return cp
}
