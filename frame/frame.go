// Package frame implements the lexical call-stack frames that back every
// running vibe-core program: locals, their declaration-ordered history
// (FrameEntry), and the frame arena that lets closures reference module
// globals by index rather than by pointer (spec.md §3, §9).
package frame

import (
	"fmt"

	"github.com/vibelang/vibe-core/value"
)

// EntryKind tags a FrameEntry's variant.
type EntryKind string

const (
	EntryVariable  EntryKind = "variable"
	EntryPrompt    EntryKind = "prompt"
	EntryScopeEnter EntryKind = "scope_enter"
	EntryScopeExit  EntryKind = "scope_exit"
	EntrySummary    EntryKind = "summary"
	EntryToolCall   EntryKind = "tool_call"
)

// FrameEntry is one ordered history item appended to a frame as the
// stepper runs. Exactly one of the variant-specific fields is populated,
// selected by Kind.
type FrameEntry struct {
	Kind EntryKind

	// EntryVariable
	Name      string
	Value     value.VibeValue
	Type      value.TypeAnnotation
	IsConst   bool
	Source    value.Source
	IsPrivate bool

	// EntryPrompt
	OpKind   string // "do" | "vibe"
	Prompt   string
	ToolCalls []value.ToolCall
	Response *value.VibeValue

	// EntryScopeEnter / EntryScopeExit
	ScopeKind string
	Label     string

	// EntrySummary
	Text string
}

// Variable builds an EntryVariable FrameEntry.
func Variable(name string, v value.VibeValue, typ value.TypeAnnotation, isConst bool, source value.Source, isPrivate bool) FrameEntry {
	return FrameEntry{Kind: EntryVariable, Name: name, Value: v, Type: typ, IsConst: isConst, Source: source, IsPrivate: isPrivate}
}

// Prompt builds an EntryPrompt FrameEntry.
func Prompt(opKind, prompt string, toolCalls []value.ToolCall, response *value.VibeValue) FrameEntry {
	return FrameEntry{Kind: EntryPrompt, OpKind: opKind, Prompt: prompt, ToolCalls: toolCalls, Response: response}
}

// ScopeEnter/ScopeExit build scope marker FrameEntries.
func ScopeEnter(scopeKind, label string) FrameEntry { return FrameEntry{Kind: EntryScopeEnter, ScopeKind: scopeKind, Label: label} }
func ScopeExit(scopeKind, label string) FrameEntry  { return FrameEntry{Kind: EntryScopeExit, ScopeKind: scopeKind, Label: label} }

// Summary builds an EntrySummary FrameEntry (produced by the `compress`
// context mode).
func Summary(text string) FrameEntry { return FrameEntry{Kind: EntrySummary, Text: text} }

// ToolCallEntry builds an EntryToolCall FrameEntry.
func ToolCallEntry(name string, args map[string]any, result any, err *value.Err) FrameEntry {
	tc := value.ToolCall{Name: name, Args: args, Result: result, Err: err}
	return FrameEntry{Kind: EntryToolCall, Name: name, ToolCalls: []value.ToolCall{tc}}
}

// Frame is a lexical call-stack frame: locals plus the ordered entry
// history used to render context for AI calls and to drive the debug
// controller's scope/variable protocol.
type Frame struct {
	Name             string
	Locals           map[string]value.VibeValue
	LocalOrder       []string // preserves declaration order of Locals
	ParentFrameIndex *int     // lexical parent, an index into the Arena
	OrderedEntries   []FrameEntry
	ModulePath       string
}

// NewFrame creates an empty frame with the given lexical parent (nil for
// the module root).
func NewFrame(name string, parent *int, modulePath string) *Frame {
	return &Frame{
		Name:       name,
		Locals:     make(map[string]value.VibeValue),
		ParentFrameIndex: parent,
		ModulePath: modulePath,
	}
}

// DeclareVar adds a new local binding and appends its FrameEntry.
func (f *Frame) DeclareVar(name string, v value.VibeValue, typ value.TypeAnnotation, isConst bool, source value.Source, isPrivate bool) {
	if isConst {
		v = v.AsConst()
	}
	if _, exists := f.Locals[name]; !exists {
		f.LocalOrder = append(f.LocalOrder, name)
	}
	f.Locals[name] = v
	f.OrderedEntries = append(f.OrderedEntries, Variable(name, v, typ, isConst, source, isPrivate))
}

// AssignVar mutates an existing binding. Assigning into a non-private
// binding from a private source drops the private flag — privacy is a
// property of the declaration, not the value (spec.md §4.3, §9).
func (f *Frame) AssignVar(name string, v value.VibeValue) error {
	existing, ok := f.Locals[name]
	if !ok {
		return fmt.Errorf("undeclared identifier %q", name)
	}
	if existing.IsConst {
		return fmt.Errorf("cannot assign to const binding %q", name)
	}
	entryIsPrivate := f.entryPrivacy(name)
	if existing.IsConst {
		v = v.AsConst()
	}
	f.Locals[name] = v
	f.OrderedEntries = append(f.OrderedEntries, Variable(name, v, "", false, v.Source, entryIsPrivate))
	return nil
}

func (f *Frame) entryPrivacy(name string) bool {
	for i := len(f.OrderedEntries) - 1; i >= 0; i-- {
		e := f.OrderedEntries[i]
		if e.Kind == EntryVariable && e.Name == name {
			return e.IsPrivate
		}
	}
	return false
}

// SavedKeys is a snapshot of which local names existed at block entry,
// used to restore locals to their prior state on block exit (spec.md
// §3: "variables ... removed on block exit (keys captured at block
// entry are restored)").
type SavedKeys map[string]bool

// Snapshot captures the currently-declared local names.
func (f *Frame) Snapshot() SavedKeys {
	keys := make(SavedKeys, len(f.Locals))
	for k := range f.Locals {
		keys[k] = true
	}
	return keys
}

// RestoreTo removes any local not present in saved.
func (f *Frame) RestoreTo(saved SavedKeys) {
	for name := range f.Locals {
		if !saved[name] {
			delete(f.Locals, name)
		}
	}
	newOrder := f.LocalOrder[:0]
	for _, name := range f.LocalOrder {
		if _, ok := f.Locals[name]; ok {
			newOrder = append(newOrder, name)
		}
	}
	f.LocalOrder = newOrder
}

// TruncateEntriesTo truncates OrderedEntries back to entryIndex (the
// `forget` context mode, spec.md §4.3).
func (f *Frame) TruncateEntriesTo(entryIndex int) {
	if entryIndex < 0 {
		entryIndex = 0
	}
	if entryIndex > len(f.OrderedEntries) {
		entryIndex = len(f.OrderedEntries)
	}
	f.OrderedEntries = f.OrderedEntries[:entryIndex]
}

// CompressEntriesFrom replaces the slice [entryIndex:] with a single
// summary entry (the `compress` context mode, spec.md §4.3). Compressing
// an empty scope (entryIndex == len(OrderedEntries)) is a no-op.
func (f *Frame) CompressEntriesFrom(entryIndex int, summaryText string) {
	if entryIndex >= len(f.OrderedEntries) {
		return
	}
	f.OrderedEntries = append(f.OrderedEntries[:entryIndex], Summary(summaryText))
}

// Arena holds every frame created during a run, append-only, indexed by
// position — frames are never relocated, matching the serializable-state
// constraint of spec.md §9.
type Arena struct {
	Frames []*Frame
}

// NewArena creates an empty arena.
func NewArena() *Arena { return &Arena{} }

// Push appends a new frame and returns its arena index.
func (a *Arena) Push(f *Frame) int {
	a.Frames = append(a.Frames, f)
	return len(a.Frames) - 1
}

// At returns the frame at index i.
func (a *Arena) At(i int) *Frame { return a.Frames[i] }

// LexicalParent walks to f's lexical parent frame, or nil at the module
// root.
func (a *Arena) LexicalParent(f *Frame) *Frame {
	if f.ParentFrameIndex == nil {
		return nil
	}
	return a.Frames[*f.ParentFrameIndex]
}
