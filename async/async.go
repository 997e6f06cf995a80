// Package async drives the pending ai/ts operations a stepper has queued
// via async_let (spec.md §4.5): bounded-concurrency fan-out over
// vm.State.PendingAsyncStarts, feeding settled results back through
// vm.ResumeWithAsyncResults. Grounded on engine.Engine's waiting/
// completedOutputs pending-token registry (generalized here from one
// pause kind to many concurrent AsyncOps) and on oriys-nova's
// errgroup-bounded parallel pre-fetch pipeline for the fan-out shape.
package async

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/vibelang/vibe-core/value"
	"github.com/vibelang/vibe-core/vm"
)

// Runner executes one queued async start and returns its settled value.
// Package runtime supplies the implementation: it answers kind "ai"
// through its ai.Provider and kind "ts" through its HostEvaluator.
type Runner func(ctx context.Context, req vm.StartRequest) (value.VibeValue, error)

// Drain runs every currently-queued PendingAsyncStart concurrently,
// bounded by s.MaxParallel in-flight operations, and applies the
// results via vm.ResumeWithAsyncResults. It is a no-op if nothing is
// queued. A Runner error is captured as a failed AsyncOp result rather
// than aborting the batch, so one bad operation does not starve the rest
// (spec.md §4.5 "a failed fire-and-forget op surfaces as an error value
// on next read, not a crash").
func Drain(ctx context.Context, s *vm.State, run Runner) *vm.State {
	starts := s.PendingAsyncStarts
	if len(starts) == 0 {
		return s
	}
	s.PendingAsyncStarts = nil

	maxParallel := s.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 1
	}
	sem := semaphore.NewWeighted(int64(maxParallel))
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	results := make(map[string]value.VibeValue, len(starts))

	for _, start := range starts {
		start := start
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			v, err := run(gctx, start)
			if err != nil {
				v = value.NewError(value.NewErr(value.KindAsyncCanceledError, value.Location{}, "%s", err.Error()))
			}
			mu.Lock()
			results[start.OpID] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // Runner swallows its own errors into result values; g never returns one

	return vm.ResumeWithAsyncResults(s, results)
}
