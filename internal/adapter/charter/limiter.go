package charter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces upstream requests. Wait blocks until the next request may be
// sent or ctx is done.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewIntervalLimiter enforces a minimum interval between requests. The first
// request passes immediately. A non-positive interval disables pacing.
func NewIntervalLimiter(interval time.Duration) Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
