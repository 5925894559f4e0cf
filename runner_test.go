package contracts

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRunner(t *testing.T) {
	runner := DefaultRunner(context.Background())
	require.NotNil(t, runner)

	_, ok := runner.(*segmentRunner)
	assert.True(t, ok, "DefaultRunner should return *segmentRunner, got %T", runner)
}

func TestSegmentRunner_Go_Success(t *testing.T) {
	runner := DefaultRunner(context.Background())

	var counter int32
	for i := 0; i < 5; i++ {
		runner.Go(func() error {
			atomic.AddInt32(&counter, 1)
			return nil
		})
	}

	require.NoError(t, runner.Wait())
	assert.Equal(t, int32(5), atomic.LoadInt32(&counter))
}

func TestSegmentRunner_Go_WithError(t *testing.T) {
	runner := DefaultRunner(context.Background())
	expectedErr := errors.New("test error")

	runner.Go(func() error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	runner.Go(func() error { return expectedErr })

	assert.Equal(t, expectedErr, runner.Wait())
}

func TestSegmentRunner_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := DefaultRunner(ctx)

	runner.Go(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
			return nil
		}
	})
	cancel()

	assert.ErrorIs(t, runner.Wait(), context.Canceled)
}

func TestSegmentRunner_EmptyRunner(t *testing.T) {
	assert.NoError(t, DefaultRunner(context.Background()).Wait())
}

func TestLimitedRunner_BoundsConcurrency(t *testing.T) {
	runner := NewLimitedRunner(context.Background(), 2)

	var active, peak int32
	for i := 0; i < 10; i++ {
		runner.Go(func() error {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil
		})
	}

	require.NoError(t, runner.Wait())
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestLimitedRunner_NonPositiveLimit(t *testing.T) {
	runner := NewLimitedRunner(context.Background(), 0)
	var ran int32
	runner.Go(func() error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	require.NoError(t, runner.Wait())
	assert.Equal(t, int32(1), ran)
}

func TestLimitedRunner_QueuedTaskSkippedAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewLimitedRunner(ctx, 1)

	release := make(chan struct{})
	var second int32
	runner.Go(func() error {
		<-release
		return nil
	})
	runner.Go(func() error {
		atomic.AddInt32(&second, 1)
		return nil
	})

	cancel()
	time.Sleep(10 * time.Millisecond)
	close(release)

	assert.ErrorIs(t, runner.Wait(), context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&second))
}

func TestNewSegmentRunner(t *testing.T) {
	ctx := context.Background()
	runner := newSegmentRunner(ctx, 3)

	require.NotNil(t, runner)
	assert.NotNil(t, runner.group)
	assert.Equal(t, 3, runner.limit)
	assert.Equal(t, 1, newSegmentRunner(ctx, -2).limit)
	assert.NotEqual(t, ctx, runner.ctx, "runner.ctx should be derived from the parent")
	assert.Equal(t, runner.ctx, runnerContext(ctx, runner))
}

type serialRunner struct{ err error }

func (s *serialRunner) Go(fn func() error) {
	if err := fn(); err != nil && s.err == nil {
		s.err = err
	}
}
func (s *serialRunner) Wait() error { return s.err }

func TestRunnerContext_CustomRunner(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, runnerContext(ctx, &serialRunner{}))
}

func BenchmarkSegmentRunner(b *testing.B) {
	ctx := context.Background()

	b.Run("Sequential", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			runner := DefaultRunner(ctx)
			runner.Go(func() error { return nil })
			_ = runner.Wait()
		}
	})

	b.Run("Concurrent", func(b *testing.B) {
		runner := DefaultRunner(ctx)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			runner.Go(func() error { return nil })
		}
		_ = runner.Wait()
	})
}
