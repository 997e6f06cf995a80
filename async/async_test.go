package async

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/value"
	"github.com/vibelang/vibe-core/vm"
)

func runningState(t *testing.T, body []program.Stmt, maxParallel int) *vm.State {
	t.Helper()
	prog := &program.Program{ModulePath: "main.vibe", Body: body, Functions: map[string]*program.Function{}}
	s := vm.NewState(prog, vm.Options{MaxParallel: maxParallel})
	vm.RunUntilPause(s)
	return s
}

func TestDrainResolvesSingleAsyncLet(t *testing.T) {
	s := runningState(t, []program.Stmt{
		&program.AsyncLetStmt{Name: "a", Value: &program.AIExpr{OpKind: "do", Prompt: &program.Literal{Value: "A"}, Model: "m"}},
		&program.ExprStmt{Value: &program.Ident{Name: "a"}},
	}, 4)
	require.Equal(t, vm.StatusAwaitingAsync, s.Status)

	run := func(_ context.Context, req vm.StartRequest) (value.VibeValue, error) {
		require.Equal(t, "ai", req.Kind)
		return value.New("A-result"), nil
	}
	Drain(context.Background(), s, run)
	require.Equal(t, vm.StatusRunning, s.Status)
	vm.RunUntilPause(s)
	require.Equal(t, vm.StatusCompleted, s.Status)
	require.Equal(t, "A-result", s.LastResult.Value)
}

func TestDrainCapturesRunnerError(t *testing.T) {
	s := runningState(t, []program.Stmt{
		&program.AsyncLetStmt{Name: "a", Value: &program.AIExpr{OpKind: "do", Prompt: &program.Literal{Value: "A"}, Model: "m"}},
		&program.ExprStmt{Value: &program.Ident{Name: "a"}},
	}, 4)

	run := func(_ context.Context, req vm.StartRequest) (value.VibeValue, error) {
		return value.VibeValue{}, fmt.Errorf("provider unreachable")
	}
	Drain(context.Background(), s, run)
	vm.RunUntilPause(s)
	require.Equal(t, vm.StatusCompleted, s.Status)
	require.True(t, s.LastResult.IsError())
	require.Equal(t, value.KindAsyncCanceledError, s.LastResult.Err.Kind)
}

func TestDrainBoundsConcurrencyByMaxParallel(t *testing.T) {
	s := runningState(t, []program.Stmt{
		&program.AsyncLetStmt{Name: "a", Value: &program.AIExpr{OpKind: "do", Prompt: &program.Literal{Value: "A"}, Model: "m"}},
		&program.AsyncLetStmt{Name: "b", Value: &program.AIExpr{OpKind: "do", Prompt: &program.Literal{Value: "B"}, Model: "m"}},
		&program.AsyncLetStmt{Name: "c", Value: &program.AIExpr{OpKind: "do", Prompt: &program.Literal{Value: "C"}, Model: "m"}},
	}, 1)
	require.Len(t, s.PendingAsyncStarts, 3)

	var inFlight, maxSeen int32
	run := func(_ context.Context, req vm.StartRequest) (value.VibeValue, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			seen := atomic.LoadInt32(&maxSeen)
			if cur <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return value.New("done"), nil
	}
	Drain(context.Background(), s, run)
	require.Equal(t, int32(1), atomic.LoadInt32(&maxSeen))
}

func TestDrainNoOpWhenNothingQueued(t *testing.T) {
	s := runningState(t, []program.Stmt{
		&program.LetStmt{Name: "x", Value: &program.Literal{Value: 1.0}},
	}, 4)
	require.Equal(t, vm.StatusCompleted, s.Status)
	Drain(context.Background(), s, func(context.Context, vm.StartRequest) (value.VibeValue, error) {
		t.Fatal("runner should not be called")
		return value.VibeValue{}, nil
	})
}
