package vm

import (
	"github.com/vibelang/vibe-core/frame"
	"github.com/vibelang/vibe-core/value"
)

// lookupVar resolves name by walking the lexical parent chain from the
// current frame (not the dynamic call stack — spec.md §3, §9).
func lookupVar(s *State, name string) (value.VibeValue, bool) {
	f := s.CallStack.Top()
	for f != nil {
		if v, ok := f.Locals[name]; ok {
			return v, true
		}
		f = s.Arena.LexicalParent(f)
	}
	return value.VibeValue{}, false
}

// frameOwning returns the frame (and its arena index) that owns the
// nearest binding named name along the lexical parent chain, for
// assignment.
func frameOwning(s *State, name string) (*frame.Frame, bool) {
	f := s.CallStack.Top()
	idx := s.CallStack.TopIndex()
	for f != nil {
		if _, ok := f.Locals[name]; ok {
			return f, true
		}
		if f.ParentFrameIndex == nil {
			break
		}
		idx = *f.ParentFrameIndex
		f = s.Arena.At(idx)
	}
	return nil, false
}
