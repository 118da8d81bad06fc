package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event types published by the daemon.
const (
	TypeAlarmFired     = "alarm.fired"
	TypeAlarmScheduled = "alarm.scheduled"
	TypeAlarmRemoved   = "alarm.removed"
	TypeAlarmRejected  = "alarm.rejected"
)

// Event is a lightweight, in-memory signal used to decouple components.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers MUST use buffered channels.
//   - Slow subscribers may drop events (bounded backpressure).
type Event struct {
	Type string
	Time time.Time
	Data any
}

// AlarmData is the payload of every alarm.* event.
type AlarmData struct {
	Name    string    `json:"name"`
	ID      uint8     `json:"id"`
	Expr    string    `json:"expr,omitempty"`
	OneShot bool      `json:"one_shot,omitempty"`
	Message string    `json:"message,omitempty"`
	Next    time.Time `json:"next,omitempty"`
	Err     string    `json:"err,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns a simple in-memory fanout bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		// Drop for slow subscribers.
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			// Holding the write lock excludes concurrent Publish, so close is safe.
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, unsub
}
