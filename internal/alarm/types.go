package alarm

import (
	"context"
	"math"
	"strconv"
	"time"
)

// ID identifies a slot. It is the slot's index in the registry.
type ID uint8

// InvalidID is returned by failed allocations and by TriggeredID outside a
// service pass.
const InvalidID ID = math.MaxUint8

// Capacity must leave InvalidID unused.
var _ [int(InvalidID) - Capacity]struct{}

// Valid reports whether id indexes a slot.
func (id ID) Valid() bool { return int(id) < Capacity }

// String renders id as its decimal index, or "invalid".
func (id ID) String() string {
	if id == InvalidID {
		return "invalid"
	}
	return strconv.Itoa(int(id))
}

// Callback is invoked synchronously from Service when its alarm fires.
type Callback func()

// Clock supplies the current time. Only second resolution is meaningful.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location (time.Local when nil).
type SystemClock struct {
	Location *time.Location
}

// Now returns the current wall time. Converting to Location drops the
// monotonic reading, so it is only used for trigger times.
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// Ticks returns a monotonic instant used to measure BlockingServiceFor
// durations. time.Now qualifies; values from time.In do not.
type Ticks func() time.Time

// Yielder hands control back to the host between service passes.
// A non-nil error stops BlockingServiceFor.
type Yielder func(ctx context.Context) error

// SlotInfo is a read-only view of one allocated slot.
type SlotInfo struct {
	ID          ID
	Enabled     bool
	OneShot     bool
	NextTrigger time.Time
}
