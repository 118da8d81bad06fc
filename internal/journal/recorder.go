package journal

import (
	"context"
	"time"

	"cronalarms/internal/eventbus"
	logx "cronalarms/pkg/logx"
)

const appendTimeout = 2 * time.Second

// Recorder drains alarm events from a bus into a Store.
type Recorder struct {
	st    Store
	ch    <-chan eventbus.Event
	unsub func()
	log   logx.Logger
}

// NewRecorder subscribes immediately so no event published after it returns
// is missed.
func NewRecorder(st Store, bus eventbus.Bus, log logx.Logger) *Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	ch, unsub := bus.Subscribe(256)
	return &Recorder{st: st, ch: ch, unsub: unsub, log: log}
}

// Run appends events until ctx is done. Append failures are logged and
// never stop the loop.
func (r *Recorder) Run(ctx context.Context) error {
	defer r.unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-r.ch:
			if !ok {
				return nil
			}
			e, ok := EntryFromEvent(ev)
			if !ok {
				continue
			}
			actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), appendTimeout)
			err := r.st.Append(actx, e)
			cancel()
			if err != nil {
				r.log.Warn("journal append failed", logx.String("name", e.Name), logx.String("kind", e.Kind), logx.Err(err))
			}
		}
	}
}

// EntryFromEvent maps an alarm.* bus event to a journal entry.
func EntryFromEvent(ev eventbus.Event) (Entry, bool) {
	d, ok := ev.Data.(eventbus.AlarmData)
	if !ok {
		return Entry{}, false
	}
	switch ev.Type {
	case eventbus.TypeAlarmFired, eventbus.TypeAlarmScheduled, eventbus.TypeAlarmRemoved, eventbus.TypeAlarmRejected:
	default:
		return Entry{}, false
	}
	return Entry{
		At:      ev.Time,
		Kind:    ev.Type,
		Name:    d.Name,
		AlarmID: d.ID,
		Expr:    d.Expr,
		Message: d.Message,
		Next:    d.Next,
		Error:   d.Err,
	}, true
}
