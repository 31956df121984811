package shared

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Pool runs per-element work with bounded concurrency and an optional request rate.
//
// A zero Pool runs one task at a time without throttling.
type Pool struct {
	Concurrency int
	Limiter     *rate.Limiter
}

// NewPool creates a [Pool]. A non-positive rps disables throttling.
func NewPool(concurrency int, rps float64) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Pool{Concurrency: concurrency, Limiter: limiter}
}

// RunOrdered calls fn once for every element of items and returns the results and errors
// in input order, regardless of completion order.
//
// Per-element errors never cancel sibling tasks. Only ctx cancellation stops dispatch; elements
// that were never started report ctx.Err(). onDone, when non-nil, is called after each element
// completes with the number completed so far; calls are serialized.
func RunOrdered[In, Out any](ctx context.Context, p *Pool, items []In, fn func(context.Context, In) (Out, error), onDone func(done int)) ([]Out, []error) {
	if p == nil {
		p = &Pool{}
	}
	limit := p.Concurrency
	if limit < 1 {
		limit = 1
	}

	results := make([]Out, len(items))
	errs := make([]error, len(items))
	done := make(chan struct{}, len(items))

	var g errgroup.Group
	g.SetLimit(limit)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		count := 0
		for range done {
			count++
			if onDone != nil {
				onDone(count)
			}
		}
	}()

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(items); j++ {
				errs[j] = err
			}
			break
		}

		g.Go(func() error {
			defer func() { done <- struct{}{} }()
			if p.Limiter != nil {
				if err := p.Limiter.Wait(ctx); err != nil {
					errs[i] = err
					return nil
				}
			}
			results[i], errs[i] = fn(ctx, item)
			return nil
		})
	}

	_ = g.Wait()
	close(done)
	<-finished

	return results, errs
}
