package fetcher

import (
	"context"
	"math/rand"
	"time"
)

// Pacer enforces a minimum delay between consecutive operations, with
// optional positive jitter. The pipeline is sequential by design, so one
// pacer instance has one caller at a time.
type Pacer struct {
	min       time.Duration
	jitterPct int
	last      time.Time
}

func NewPacer(min time.Duration, jitterPct int) *Pacer {
	return &Pacer{min: min, jitterPct: jitterPct}
}

// Wait blocks until at least the minimum interval has passed since the
// previous Wait returned. The first call never blocks.
func (p *Pacer) Wait(ctx context.Context) error {
	if !p.last.IsZero() {
		interval := p.min
		if p.jitterPct > 0 {
			jitter := float64(interval) * float64(p.jitterPct) / 100 * rand.Float64()
			interval += time.Duration(jitter)
		}

		if remaining := interval - time.Since(p.last); remaining > 0 {
			select {
			case <-time.After(remaining):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	p.last = time.Now()
	return nil
}
