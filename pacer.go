package rx

import (
	"time"

	"golang.org/x/time/rate"
)

// Pacer hands out emission slots at most one per interval. A Pacer shared by
// several Signals limits their combined rate; slots go to values in the order
// they reserve them, whatever Signal they come from.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a Pacer spacing slots interval apart. A non-positive
// interval never delays.
func NewPacer(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// reserve books the next slot and returns how long after now it opens.
func (p *Pacer) reserve(now time.Time) time.Duration {
	r := p.limiter.ReserveN(now, 1)
	if !r.OK() {
		return 0
	}
	return r.DelayFrom(now)
}
