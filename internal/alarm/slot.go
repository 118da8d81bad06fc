package alarm

import (
	"time"

	"cronalarms/internal/cronexpr"
)

// slot is one alarm. The zero value is the free state.
type slot struct {
	allocated bool
	expr      cronexpr.Expression
	callback  Callback
	next      time.Time
	enabled   bool
	oneShot   bool
}

// recompute advances next to the first occurrence after now.
// Unless forced, a trigger that is still in the future is kept.
func (s *slot) recompute(now time.Time, forced bool) {
	if !s.enabled || !s.allocated {
		return
	}
	if forced || !s.next.After(now) {
		s.next = s.expr.Next(now)
	}
}

// due reports whether an enabled slot should fire at now.
// A zero next means the expression has no further occurrence.
func (s *slot) due(now time.Time) bool {
	return s.enabled && !s.next.IsZero() && !now.Before(s.next)
}

func (s *slot) reset() { *s = slot{} }
