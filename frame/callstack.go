package frame

// CallStack is the dynamic stack of currently-executing frame indices
// into an Arena. It is distinct from a Frame's lexical ParentFrameIndex:
// the call stack tracks *who called whom*, the lexical parent tracks
// *where a frame was defined* (spec.md §3 "this enables closures over
// module globals").
type CallStack struct {
	Arena   *Arena
	Indices []int
}

// NewCallStack creates a call stack rooted at the module frame index.
func NewCallStack(arena *Arena, moduleFrameIndex int) *CallStack {
	return &CallStack{Arena: arena, Indices: []int{moduleFrameIndex}}
}

// Top returns the innermost (deepest) frame.
func (c *CallStack) Top() *Frame {
	return c.Arena.At(c.Indices[len(c.Indices)-1])
}

// TopIndex returns the arena index of the innermost frame.
func (c *CallStack) TopIndex() int { return c.Indices[len(c.Indices)-1] }

// PushFrame creates a new frame lexically parented at lexicalParent (nil
// to parent at the module root) and pushes it as the new dynamic top.
func (c *CallStack) PushFrame(name string, lexicalParent *int, modulePath string) int {
	f := NewFrame(name, lexicalParent, modulePath)
	idx := c.Arena.Push(f)
	c.Indices = append(c.Indices, idx)
	return idx
}

// PopFrame removes the dynamic top frame and returns to the caller.
func (c *CallStack) PopFrame() {
	if len(c.Indices) > 1 {
		c.Indices = c.Indices[:len(c.Indices)-1]
	}
}

// Depth returns the dynamic call depth (1 at the module root).
func (c *CallStack) Depth() int { return len(c.Indices) }

// Frames returns the dynamic stack of frames, deepest last, used to
// build global_context (spec.md §4.3: "concatenation of the module-root
// frame's entries ... plus non-top frames in caller order").
func (c *CallStack) Frames() []*Frame {
	out := make([]*Frame, len(c.Indices))
	for i, idx := range c.Indices {
		out[i] = c.Arena.At(idx)
	}
	return out
}

// ModuleRoot returns the bottommost (module-root) frame.
func (c *CallStack) ModuleRoot() *Frame {
	return c.Arena.At(c.Indices[0])
}
