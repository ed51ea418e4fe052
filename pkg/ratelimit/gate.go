// Package ratelimit serializes outbound API calls behind a minimum
// inter-call delay so upstream quotas are respected.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a minimum interval between calls. Burst is fixed at one, so
// callers are strictly serialized. The delay applies whether the previous
// call succeeded or failed.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate builds a gate with the given minimum interval between calls.
// A non-positive interval disables the gate.
func NewGate(minInterval time.Duration) *Gate {
	if minInterval <= 0 {
		return &Gate{}
	}
	return &Gate{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the next call is allowed or the context is canceled.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil || g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

// Interval returns the configured minimum interval between calls.
func (g *Gate) Interval() time.Duration {
	if g == nil || g.limiter == nil {
		return 0
	}
	limit := g.limiter.Limit()
	if limit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(limit))
}
