package debug

import (
	"github.com/google/uuid"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/vm"
)

// Watch is a user-registered watch expression (spec.md §4.6).
type Watch struct {
	ID         string
	Expression program.Expr
	LastValue  string
}

// AddWatch registers a new watch expression and returns it.
func (c *Controller) AddWatch(expr program.Expr) *Watch {
	w := &Watch{ID: uuid.New().String(), Expression: expr}
	c.watches = append(c.watches, w)
	return w
}

// RemoveWatch drops a previously registered watch by id.
func (c *Controller) RemoveWatch(id string) {
	for i, w := range c.watches {
		if w.ID == id {
			c.watches = append(c.watches[:i], c.watches[i+1:]...)
			return
		}
	}
}

// Watches returns the currently registered watch expressions.
func (c *Controller) Watches() []*Watch { return c.watches }

// EvaluateWatches runs every registered watch expression against the
// paused state s, storing and returning each one's stringified result
// (spec.md §4.6 "stores lastValue (stringified)").
func (c *Controller) EvaluateWatches(s *vm.State) []*Watch {
	for _, w := range c.watches {
		v := vm.Eval(s, w.Expression)
		w.LastValue = formatValue(v.Value)
		if v.IsError() {
			w.LastValue = "error: " + v.Err.Error()
		}
	}
	return c.watches
}
