package shared

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunOrdered(t *testing.T) {
	t.Run("preserves input order under concurrency", func(t *testing.T) {
		items := []int{5, 1, 4, 2, 3}
		pool := NewPool(4, 0)

		got, errs := RunOrdered(context.Background(), pool, items, func(_ context.Context, n int) (int, error) {
			time.Sleep(time.Duration(n) * time.Millisecond)
			return n * 10, nil
		}, nil)

		for i, n := range items {
			if errs[i] != nil {
				t.Errorf("unexpected error at %d: %v", i, errs[i])
			}
			if got[i] != n*10 {
				t.Errorf("result[%d] = %d, want %d", i, got[i], n*10)
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		var active, peak atomic.Int32
		items := make([]int, 12)

		RunOrdered(context.Background(), NewPool(3, 0), items, func(_ context.Context, _ int) (struct{}, error) {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
			return struct{}{}, nil
		}, nil)

		if peak.Load() > 3 {
			t.Errorf("peak concurrency %d exceeds limit 3", peak.Load())
		}
	})

	t.Run("element errors do not stop siblings", func(t *testing.T) {
		boom := errors.New("boom")
		items := []int{1, 2, 3}

		got, errs := RunOrdered(context.Background(), nil, items, func(_ context.Context, n int) (int, error) {
			if n == 2 {
				return 0, boom
			}
			return n, nil
		}, nil)

		if !errors.Is(errs[1], boom) {
			t.Errorf("expected boom at index 1, got %v", errs[1])
		}
		if got[0] != 1 || got[2] != 3 {
			t.Errorf("unexpected results %v", got)
		}
	})

	t.Run("reports progress for every element", func(t *testing.T) {
		var calls []int
		RunOrdered(context.Background(), NewPool(2, 0), []int{1, 2, 3, 4}, func(_ context.Context, n int) (int, error) {
			return n, nil
		}, func(done int) { calls = append(calls, done) })

		if len(calls) != 4 || calls[3] != 4 {
			t.Errorf("unexpected progress calls %v", calls)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var ran atomic.Int32
		_, errs := RunOrdered(ctx, nil, []int{1, 2}, func(_ context.Context, n int) (int, error) {
			ran.Add(1)
			return n, nil
		}, nil)

		if ran.Load() != 0 {
			t.Errorf("expected no work after cancellation, ran %d", ran.Load())
		}
		for i, err := range errs {
			if !errors.Is(err, context.Canceled) {
				t.Errorf("errs[%d] = %v, want context.Canceled", i, err)
			}
		}
	})
}
