// Package ratelimit bounds request issuance against one external API:
// at most N tasks in flight, and consecutive dispatches spaced by at
// least 1/rps seconds. One Limiter exists per upstream so throttling on
// Shopify never starves Notion and vice versa.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type Limiter struct {
	sem     chan struct{}
	spacing *rate.Limiter
}

// New returns a limiter allowing rps dispatches per second and at most
// concurrency tasks in flight. Burst is pinned to 1 so starts are evenly
// spaced rather than front-loaded.
func New(rps float64, concurrency int) *Limiter {
	if rps <= 0 {
		rps = 1
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Limiter{
		sem:     make(chan struct{}, concurrency),
		spacing: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Execute runs task once a concurrency slot and a dispatch token are both
// available, and returns the task's error. The slot is held for the full
// duration of the task; the dispatch token only gates its start.
func (l *Limiter) Execute(ctx context.Context, task func(context.Context) error) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("rate limiter: %w", ctx.Err())
	}
	defer func() { <-l.sem }()

	if err := l.spacing.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return task(ctx)
}
