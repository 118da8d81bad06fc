package alarm

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cronalarms/internal/cronexpr"
	logx "cronalarms/pkg/logx"
)

// Registry is a fixed-capacity table of alarms.
type Registry struct {
	slots [Capacity]slot

	globalEnabled bool
	servicing     bool
	servicedID    ID

	clock  Clock
	ticks  Ticks
	parser cronexpr.Parser
	yield  Yielder
	log    logx.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock trigger times are computed against.
func WithClock(c Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithTicks sets the monotonic source BlockingServiceFor measures its wait with.
func WithTicks(t Ticks) Option {
	return func(r *Registry) {
		if t != nil {
			r.ticks = t
		}
	}
}

// WithParser replaces the cron parser used by Create and CreateAt.
func WithParser(p cronexpr.Parser) Option {
	return func(r *Registry) {
		if p != nil {
			r.parser = p
		}
	}
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(log logx.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithYield replaces the cooperative yield used by BlockingServiceFor.
func WithYield(y Yielder) Option {
	return func(r *Registry) {
		if y != nil {
			r.yield = y
		}
	}
}

// WithYieldRate caps how many service passes per second BlockingServiceFor runs.
func WithYieldRate(limit rate.Limit) Option {
	return func(r *Registry) { r.yield = RateYield(limit) }
}

// New returns a registry with every slot free and servicing globally enabled.
func New(opts ...Option) *Registry {
	r := &Registry{
		globalEnabled: true,
		servicedID:    InvalidID,
		clock:         SystemClock{},
		ticks:         time.Now,
		parser:        cronexpr.Standard,
		yield:         RateYield(DefaultYieldRate),
	}
	for _, o := range opts {
		o(r)
	}
	if r.log.IsZero() {
		r.log = logx.Nop()
	}
	return r
}

// Create allocates the lowest free slot.
func (r *Registry) Create(expr string, cb Callback, oneShot bool) (ID, error) {
	for i := range r.slots {
		if !r.slots[i].allocated {
			return r.CreateAt(ID(i), expr, cb, oneShot)
		}
	}
	r.log.Warn("alarm create failed", logx.String("expr", expr), logx.Int("capacity", Capacity), logx.Err(ErrNoCapacity))
	return InvalidID, ErrNoCapacity
}

// CreateAt installs an alarm at id, replacing whatever occupied it.
// On error the slot is left as it was.
func (r *Registry) CreateAt(id ID, expr string, cb Callback, oneShot bool) (ID, error) {
	if !id.Valid() {
		return InvalidID, fmt.Errorf("%w: %d (capacity %d)", ErrInvalidID, id, Capacity)
	}
	if cb == nil {
		return InvalidID, ErrNilCallback
	}
	parsed, err := r.parser.Parse(expr)
	if err != nil {
		r.log.Debug("alarm create rejected", logx.String("expr", expr), logx.Err(err))
		return InvalidID, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}

	r.Free(id)
	s := &r.slots[id]
	s.allocated = true
	s.expr = parsed
	s.callback = cb
	s.oneShot = oneShot
	r.Enable(id)

	r.log.Debug("alarm created",
		logx.Alarm(uint8(id)),
		logx.String("expr", strings.TrimSpace(expr)),
		logx.Bool("one_shot", oneShot),
		logx.Time("next", s.next),
	)
	return id, nil
}

// Enable lets id fire again and re-anchors its schedule to now.
func (r *Registry) Enable(id ID) {
	if !r.IsAllocated(id) {
		return
	}
	s := &r.slots[id]
	s.enabled = true
	s.recompute(r.clock.Now(), true)
}

// Disable stops id from firing. Its next trigger is left stale.
func (r *Registry) Disable(id ID) {
	if !r.IsAllocated(id) {
		return
	}
	r.slots[id].enabled = false
}

// IsEnabled reports whether id is allocated and enabled.
func (r *Registry) IsEnabled(id ID) bool {
	return r.IsAllocated(id) && r.slots[id].enabled
}

// Free releases id for reuse. Freeing a free id is a no-op.
func (r *Registry) Free(id ID) {
	if !r.IsAllocated(id) {
		return
	}
	r.slots[id].reset()
	r.log.Debug("alarm freed", logx.Alarm(uint8(id)))
}

// GlobalUpdateNextTrigger re-anchors every enabled slot to now.
func (r *Registry) GlobalUpdateNextTrigger() {
	now := r.clock.Now()
	for i := range r.slots {
		if r.slots[i].enabled {
			r.slots[i].recompute(now, true)
		}
	}
}

// GlobalEnable resumes servicing. Occurrences missed while disabled are
// skipped rather than fired in a burst.
func (r *Registry) GlobalEnable() {
	r.GlobalUpdateNextTrigger()
	r.globalEnabled = true
}

// GlobalDisable silences every alarm without touching slot state.
func (r *Registry) GlobalDisable() { r.globalEnabled = false }

// IsGlobalEnabled reports whether Service fires anything at all.
func (r *Registry) IsGlobalEnabled() bool { return r.globalEnabled }

// Count returns the number of allocated slots.
func (r *Registry) Count() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].allocated {
			n++
		}
	}
	return n
}

// IsAllocated reports whether id is in range and holds an alarm.
func (r *Registry) IsAllocated(id ID) bool {
	return id.Valid() && r.slots[id].allocated
}

// NextTrigger returns the earliest next trigger over all allocated slots.
// ok is false when nothing is allocated.
func (r *Registry) NextTrigger() (next time.Time, ok bool) {
	for i := range r.slots {
		s := &r.slots[i]
		if !s.allocated {
			continue
		}
		if !ok || s.next.Before(next) {
			next = s.next
			ok = true
		}
	}
	return next, ok
}

// NextTriggerOf returns the next trigger of id; ok is false when id is free.
func (r *Registry) NextTriggerOf(id ID) (time.Time, bool) {
	if !r.IsAllocated(id) {
		return time.Time{}, false
	}
	return r.slots[id].next, true
}

// Snapshot lists allocated slots in id order.
func (r *Registry) Snapshot() []SlotInfo {
	out := make([]SlotInfo, 0, Capacity)
	for i := range r.slots {
		s := &r.slots[i]
		if !s.allocated {
			continue
		}
		out = append(out, SlotInfo{ID: ID(i), Enabled: s.enabled, OneShot: s.oneShot, NextTrigger: s.next})
	}
	return out
}
