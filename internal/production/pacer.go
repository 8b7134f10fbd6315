package production

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between successive estimator calls.
const DefaultInterval = time.Second

// Pacer spaces out estimator calls. Wait blocks until the next call may
// start or ctx is done.
type Pacer interface {
	Wait(ctx context.Context) error
}

// IntervalPacer allows one call per interval. The first call is never
// delayed, so a single-segment run does not wait at all.
type IntervalPacer struct {
	limiter *rate.Limiter
}

// NewIntervalPacer creates a pacer with the given minimum spacing between
// call starts. A non-positive interval disables pacing.
func NewIntervalPacer(interval time.Duration) *IntervalPacer {
	if interval <= 0 {
		return &IntervalPacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &IntervalPacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait implements Pacer.
func (p *IntervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NoDelay is a Pacer that never waits. It only reports cancellation.
type NoDelay struct{}

// Wait implements Pacer.
func (NoDelay) Wait(ctx context.Context) error {
	return ctx.Err()
}
