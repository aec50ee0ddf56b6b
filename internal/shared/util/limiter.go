package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter to provide a simpler interface.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a new token bucket limiter.
// r: tokens per second; zero or less means unlimited.
// b: burst size, at least one.
func NewLimiter(r float64, b int) *Limiter {
	limit := rate.Limit(r)
	if r <= 0 {
		limit = rate.Inf
	}
	if b < 1 {
		b = 1
	}
	return &Limiter{
		inner: rate.NewLimiter(limit, b),
	}
}

// Allow reports whether an event with weight n may happen now.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available. Requests above the burst size
// are split so large batches are paced instead of rejected.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	burst := l.inner.Burst()
	for n > 0 {
		step := n
		if burst > 0 && step > burst {
			step = burst
		}
		if err := l.inner.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
