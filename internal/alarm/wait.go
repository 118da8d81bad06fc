package alarm

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/time/rate"
)

// DefaultYieldRate bounds BlockingServiceFor to this many passes per second.
const DefaultYieldRate rate.Limit = 50

// RateYield paces service passes with a token bucket, then lets other
// goroutines run.
func RateYield(limit rate.Limit) Yielder {
	if limit <= 0 {
		return GoschedYield
	}
	lim := rate.NewLimiter(limit, 1)
	return func(ctx context.Context) error {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
		runtime.Gosched()
		return nil
	}
}

// GoschedYield yields the processor without pacing.
func GoschedYield(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}

// SetYield replaces the yield used by BlockingServiceFor.
func (r *Registry) SetYield(y Yielder) {
	if y != nil {
		r.yield = y
	}
}

// BlockingServiceFor keeps servicing the registry until d has elapsed,
// yielding between passes. It always runs at least one pass. Elapsed time
// comes from the Ticks source, so wall clock steps neither stretch nor cut
// the wait. The returned error is the yield error, typically ctx
// cancellation.
func (r *Registry) BlockingServiceFor(ctx context.Context, d time.Duration) error {
	start := r.ticks()
	for {
		r.Service()
		if err := r.yield(ctx); err != nil {
			return err
		}
		if r.ticks().Sub(start) > d {
			return nil
		}
	}
}
