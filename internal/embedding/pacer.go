package embedding

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval spaces successive embedding requests.
const DefaultInterval = 100 * time.Millisecond

// Pacer decides when the next request may be sent.
type Pacer interface {
	Wait(ctx context.Context) error
}

// RatePacer is a token bucket with burst 1: the first request goes out
// immediately and later ones are spaced by the configured interval.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer returns a pacer allowing one request per interval. A
// non-positive interval disables pacing.
func NewRatePacer(interval time.Duration) *RatePacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RatePacer{limiter: rate.NewLimiter(limit, 1)}
}

func (p *RatePacer) Wait(ctx context.Context) error { return p.limiter.Wait(ctx) }

// NoPacer never delays; it only reports cancellation.
type NoPacer struct{}

func (NoPacer) Wait(ctx context.Context) error { return ctx.Err() }
