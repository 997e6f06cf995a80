package vm

import (
	"github.com/vibelang/vibe-core/frame"
	"github.com/vibelang/vibe-core/instr"
)

// assembleContext rebuilds local_context and global_context from
// call_stack, filtering private entries (spec.md §4.3). It runs before
// every step.
func assembleContext(s *State) {
	top := s.CallStack.Top()
	s.LocalContext = filterPrivate(top.OrderedEntries)

	frames := s.CallStack.Frames()
	root := s.CallStack.ModuleRoot()
	global := append([]frame.FrameEntry(nil), filterPrivate(root.OrderedEntries)...)
	for _, f := range frames[:len(frames)-1] {
		if f == root {
			continue
		}
		global = append(global, filterPrivate(f.OrderedEntries)...)
	}
	s.GlobalContext = global
}

func filterPrivate(entries []frame.FrameEntry) []frame.FrameEntry {
	out := make([]frame.FrameEntry, 0, len(entries))
	for _, e := range entries {
		if e.Kind == frame.EntryVariable && e.IsPrivate {
			continue
		}
		out = append(out, e)
	}
	return out
}

// contextFor resolves the rendered view to hand an AI call per its
// declared context_spec (spec.md §4.4).
func contextFor(s *State, spec string) []frame.FrameEntry {
	switch spec {
	case "local":
		return s.LocalContext
	case "global":
		return s.GlobalContext
	case "none":
		return nil
	default: // "default" falls back to local, the innermost scope
		return s.LocalContext
	}
}

// ContextEntriesFor exposes contextFor to package runtime, which builds
// the provider-facing request text for a suspended ai_vibe/async "ai" op.
func ContextEntriesFor(s *State, spec instr.ContextSpec) []frame.FrameEntry {
	return contextFor(s, string(spec))
}
