package alarm

import (
	logx "cronalarms/pkg/logx"
)

// Service runs one pass over all slots and fires the ones that are due.
//
// It does nothing while globally disabled or when called from inside a
// callback. Slots are visited in index order; changes a callback makes to a
// slot not yet visited take effect in the same pass, changes to visited
// slots wait for the next pass. Each slot fires at most once per pass no
// matter how many occurrences it missed.
func (r *Registry) Service() {
	if !r.globalEnabled || r.servicing {
		return
	}
	r.servicing = true
	defer func() {
		r.servicing = false
		r.servicedID = InvalidID
	}()

	for i := 0; i < Capacity; i++ {
		r.servicedID = ID(i)
		s := &r.slots[i]
		now := r.clock.Now()
		if !s.due(now) {
			continue
		}
		cb := s.callback
		if s.oneShot {
			r.Free(r.servicedID)
		} else {
			s.recompute(now, false)
		}
		r.log.Trace("alarm fired", logx.Alarm(uint8(i)), logx.Time("at", now))
		if cb != nil {
			cb()
		}
	}
}

// TriggeredID returns the id being dispatched when called from a callback,
// InvalidID otherwise.
func (r *Registry) TriggeredID() ID {
	if !r.servicing {
		return InvalidID
	}
	return r.servicedID
}

// IsServicing reports whether a Service pass is in progress.
func (r *Registry) IsServicing() bool { return r.servicing }
