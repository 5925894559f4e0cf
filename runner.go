package contracts

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultRunner runs up to one segment call per CPU.
func DefaultRunner(ctx context.Context) Runner {
	return newSegmentRunner(ctx, runtime.NumCPU())
}

// NewLimitedRunner runs at most maxConcurrency segment calls at once.
// Non-positive limits run calls one at a time.
func NewLimitedRunner(ctx context.Context, maxConcurrency int) Runner {
	return newSegmentRunner(ctx, maxConcurrency)
}

// segmentRunner fans segment calls out on an errgroup and gates them with a
// weighted semaphore. The first error cancels ctx for every task.
type segmentRunner struct {
	ctx   context.Context
	group *errgroup.Group
	slots *semaphore.Weighted
	limit int
}

func newSegmentRunner(parent context.Context, limit int) *segmentRunner {
	limit = max(limit, 1)
	group, ctx := errgroup.WithContext(parent)
	return &segmentRunner{ctx: ctx, group: group, slots: semaphore.NewWeighted(int64(limit)), limit: limit}
}

// Go schedules fn. Tasks still queued for a slot when ctx is cancelled
// never start.
func (r *segmentRunner) Go(fn func() error) {
	r.group.Go(func() error {
		if err := r.slots.Acquire(r.ctx, 1); err != nil {
			return err
		}
		defer r.slots.Release(1)
		return fn()
	})
}

func (r *segmentRunner) Wait() error { return r.group.Wait() }

// runnerContext is the context tasks scheduled on r should observe. Custom
// runners get the caller's ctx unchanged.
func runnerContext(ctx context.Context, r Runner) context.Context {
	if sr, ok := r.(*segmentRunner); ok {
		return sr.ctx
	}
	return ctx
}
