package retry

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces calls to each named service by at least a fixed interval.
// Services are paced independently.
type Pacer struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	interval time.Duration
}

// NewPacer creates a new Pacer allowing one call per interval per service,
// with no bursting.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

// Wait blocks until a call to service is allowed.
// Returns an error if the context is canceled before the wait completes.
func (p *Pacer) Wait(ctx context.Context, service string) error {
	if p == nil || p.interval <= 0 {
		return nil
	}

	p.mu.Lock()
	limiter, ok := p.limiters[service]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(p.interval), 1)
		p.limiters[service] = limiter
	}
	p.mu.Unlock()

	return limiter.Wait(ctx)
}
