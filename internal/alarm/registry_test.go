package alarm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronalarms/internal/cronexpr"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clk), WithYield(GoschedYield)}, opts...)
	return New(opts...), clk
}

func noop() {}

func fillRegistry(t *testing.T, r *Registry) {
	t.Helper()
	for i := 0; i < Capacity; i++ {
		id, err := r.Create("* * * * * *", noop, false)
		require.NoError(t, err)
		require.Equal(t, ID(i), id)
	}
}

func TestCreateComputesFutureTrigger(t *testing.T) {
	t.Parallel()
	r, clk := newTestRegistry(t)

	for _, expr := range []string{"* * * * * *", "0 */5 * * * *", "@hourly", "90s", "0 0 1 1 *"} {
		id, err := r.Create(expr, noop, false)
		require.NoError(t, err, expr)

		next, ok := r.NextTriggerOf(id)
		require.True(t, ok)
		assert.True(t, next.After(clk.Now()), "%s: next %v not after now", expr, next)
		assert.True(t, r.IsEnabled(id))
	}
}

func TestCreateInvalidExpressionDoesNotConsumeSlot(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t)

	id, err := r.Create("not a cron", noop, false)
	require.ErrorIs(t, err, ErrInvalidExpression)
	assert.Equal(t, InvalidID, id)
	assert.Equal(t, 0, r.Count())
	assert.False(t, r.IsAllocated(0))

	id, err = r.Create("* * * * * *", noop, false)
	require.NoError(t, err)
	assert.Equal(t, ID(0), id)
}

func TestCreateNilCallback(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t)

	_, err := r.Create("* * * * * *", nil, false)
	require.ErrorIs(t, err, ErrNilCallback)
	assert.Equal(t, 0, r.Count())
}

func TestCreateNoCapacity(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t)
	fillRegistry(t, r)

	id, err := r.Create("* * * * * *", noop, false)
	require.ErrorIs(t, err, ErrNoCapacity)
	assert.Equal(t, InvalidID, id)
	assert.Equal(t, Capacity, r.Count())
}

func TestFreeAndReuseLowestID(t *testing.T) {
	t.Parallel()
	r, clk := newTestRegistry(t)
	fillRegistry(t, r)

	oldFired := 0
	newFired := 0
	_, err := r.CreateAt(0, "* * * * * *", func() { oldFired++ }, false)
	require.NoError(t, err)

	r.Free(0)
	assert.False(t, r.IsAllocated(0))
	assert.Equal(t, Capacity-1, r.Count())

	id, err := r.Create("* * * * * *", func() { newFired++ }, false)
	require.NoError(t, err)
	assert.Equal(t, ID(0), id)
	assert.True(t, r.IsAllocated(0))
	assert.Equal(t, Capacity, r.Count())

	_, err = r.Create("* * * * * *", noop, false)
	require.ErrorIs(t, err, ErrNoCapacity)

	clk.Advance(time.Second)
	r.Service()
	assert.Equal(t, 0, oldFired)
	assert.Equal(t, 1, newFired)
}

func TestFreeIsIdempotent(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t)
	a, err := r.Create("* * * * * *", noop, false)
	require.NoError(t, err)
	b, err := r.Create("* * * * * *", noop, true)
	require.NoError(t, err)
	bNext, _ := r.NextTriggerOf(b)

	r.Free(a)
	r.Free(a)
	r.Free(5)
	r.Free(InvalidID)

	assert.False(t, r.IsAllocated(a))
	require.True(t, r.IsAllocated(b))
	got, ok := r.NextTriggerOf(b)
	assert.True(t, ok)
	assert.Equal(t, bNext, got)
	assert.Equal(t, 1, r.Count())
}

func TestCreateAt(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t)

	id, err := r.CreateAt(3, "0 * * * * *", noop, false)
	require.NoError(t, err)
	assert.Equal(t, ID(3), id)
	assert.True(t, r.IsAllocated(3))
	assert.False(t, r.IsAllocated(0))

	_, err = r.CreateAt(ID(Capacity), "* * * * * *", noop, false)
	require.ErrorIs(t, err, ErrInvalidID)
	_, err = r.CreateAt(InvalidID, "* * * * * *", noop, false)
	require.ErrorIs(t, err, ErrInvalidID)

	// A failed replacement leaves the previous occupant untouched.
	before, _ := r.NextTriggerOf(3)
	_, err = r.CreateAt(3, "bogus", noop, false)
	require.ErrorIs(t, err, ErrInvalidExpression)
	after, ok := r.NextTriggerOf(3)
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestServiceFiresDueRecurringAlarm(t *testing.T) {
	t.Parallel()
	r, clk := newTestRegistry(t)

	fired := 0
	var firedAt []time.Time
	id, err := r.Create("* * * * * *", func() {
		fired++
		firedAt = append(firedAt, clk.Now())
	}, false)
	require.NoError(t, err)

	r.Service()
	assert.Equal(t, 0, fired, "not due yet")

	for i := 1; i <= 3; i++ {
		clk.Advance(time.Second)
		r.Service()
		require.Equal(t, i, fired)
		next, ok := r.NextTriggerOf(id)
		require.True(t, ok)
		assert.True(t, next.After(firedAt[i-1]))
	}
	assert.True(t, r.IsAllocated(id))
}

func TestServiceFiresMissedOccurrencesOnce(t *testing.T) {
	t.Parallel()
	r, clk := newTestRegistry(t)

	fired := 0
	id, err := r.Create("* * * * * *", func() { fired++ }, false)
	require.NoError(t, err)

	clk.Advance(10 * time.Second)
	r.Service()
	r.Service()
	assert.Equal(t, 1, fired)

	next, _ := r.NextTriggerOf(id)
	assert.WithinDuration(t, clk.Now().Add(time.Second), next, 0)
}

func TestOneShotFreedBeforeCallback(t *testing.T) {
	t.Parallel()
	r, clk := newTestRegistry(t)

	var (
		fired       int
		allocatedIn = true
		triggeredIn = InvalidID
		servicingIn bool
		countInside = -1
	)
	id, err := r.Create("* * * * * *", func() {
		fired++
		triggeredIn = r.TriggeredID()
		allocatedIn = r.IsAllocated(triggeredIn)
		servicingIn = r.IsServicing()
		countInside = r.Count()
	}, true)
	require.NoError(t, err)

	clk.Advance(time.Second)
	r.Service()
	assert.Equal(t, 1, fired)
	assert.Equal(t, id, triggeredIn)
	assert.False(t, allocatedIn)
	assert.True(t, servicingIn)
	assert.Equal(t, 0, countInside)
	assert.False(t, r.IsAllocated(id))

	clk.Advance(time.Second)
	r.Service()
	assert.Equal(t, 1, fired)
}

func TestTriggeredIDOutsideService(t *testing.T) {
	t.Parallel()
	r, clk := newTestRegistry(t)
	assert.Equal(t, InvalidID, r.TriggeredID())
	assert.False(t, r.IsServicing())

	var seen []ID
	for i := 0; i < 3; i++ {
		_, err := r.Create("* * * * * *", func() { seen = append(seen, r.TriggeredID()) }, false)
		require.NoError(t, err)
	}
	clk.Advance(time.Second)
	r.Service()

	assert.Equal(t, []ID{0, 1, 2}, seen)
	assert.Equal(t, InvalidID, r.TriggeredID())
	assert.False(t, r.IsServicing())
}

func TestNestedServiceIsNoop(t *testing.T) {
	t.Parallel()
	r, clk := newTestRegistry(t)

	first, second := 0, 0
	_, err := r.Create("* * * * * *", func() {
		first++
		r.Service()
	}, false)
	require.NoError(t, err)
	_, err = r.Create("* * * * * *", func() { second++ }, false)
	require.NoError(t, err)

	clk.Advance(time.Second)
	r.Service()
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestCallbackMutatesOtherSlots(t *testing.T) {
	t.Parallel()
	r, clk := newTestRegistry(t)

	var order []string
	late := InvalidID
	_, err := r.Create("* * * * * *", func() {
		order = append(order, "zero")
		if late != InvalidID {
			return
		}
		// Slot 1 is not visited yet: disabling it takes effect this pass.
		r.Disable(1)
		// Replacing slot 2 re-anchors it to now, so it is not due this pass.
		r.Free(2)
		late, _ = r.CreateAt(2, "* * * * * *", func() { order = append(order, "late") }, false)
	}, false)
	require.NoError(t, err)
	_, err = r.Create("* * * * * *", func() { order = append(order, "one") }, false)
	require.NoError(t, err)
	_, err = r.Create("* * * * * *", func() { order = append(order, "two") }, false)
	require.NoError(t, err)
	_, err = r.Create("* * * * * *", func() {
		order = append(order, "three")
		// Slot 0 was already visited: no refire this pass.
		r.Enable(0)
	}, false)
	require.NoError(t, err)

	clk.Advance(time.Second)
	r.Service()
	assert.Equal(t, []string{"zero", "three"}, order)
	assert.Equal(t, ID(2), late)

	clk.Advance(time.Second)
	r.Service()
	assert.Equal(t, []string{"zero", "three", "zero", "late", "three"}, order)
}

func TestDisableAndEnable(t *testing.T) {
	t.Parallel()
	r, clk := newTestRegistry(t)

	fired := 0
	id, err := r.Create("* * * * * *", func() { fired++ }, false)
	require.NoError(t, err)

	r.Disable(id)
	assert.False(t, r.IsEnabled(id))
	assert.True(t, r.IsAllocated(id))

	clk.Advance(5 * time.Second)
	r.Service()
	assert.Equal(t, 0, fired)

	r.Enable(id)
	next, _ := r.NextTriggerOf(id)
	assert.True(t, next.After(clk.Now()))
	r.Service()
	assert.Equal(t, 0, fired)

	clk.Advance(time.Second)
	r.Service()
	assert.Equal(t, 1, fired)

	// Unallocated ids are ignored.
	r.Enable(7)
	r.Disable(InvalidID)
	assert.False(t, r.IsAllocated(7))
}

func TestGlobalDisableEnableReanchors(t *testing.T) {
	t.Parallel()
	r, clk := newTestRegistry(t)

	fired := 0
	id, err := r.Create("* * * * * *", func() { fired++ }, false)
	require.NoError(t, err)

	r.GlobalDisable()
	assert.False(t, r.IsGlobalEnabled())
	clk.Advance(time.Minute)
	r.Service()
	assert.Equal(t, 0, fired)

	r.GlobalEnable()
	assert.True(t, r.IsGlobalEnabled())
	next, _ := r.NextTriggerOf(id)
	assert.True(t, next.After(clk.Now()))
	r.Service()
	assert.Equal(t, 0, fired, "no catch-up firing for time spent disabled")

	clk.Advance(time.Second)
	r.Service()
	assert.Equal(t, 1, fired)
}

func TestNextTrigger(t *testing.T) {
	t.Parallel()
	r, clk := newTestRegistry(t)

	_, ok := r.NextTrigger()
	assert.False(t, ok)

	_, err := r.Create("@hourly", noop, false)
	require.NoError(t, err)
	id, err := r.Create("0 * * * * *", noop, false)
	require.NoError(t, err)

	next, ok := r.NextTrigger()
	require.True(t, ok)
	assert.WithinDuration(t, clk.Now().Add(time.Minute), next, 0)

	r.Free(id)
	next, ok = r.NextTrigger()
	require.True(t, ok)
	assert.WithinDuration(t, clk.Now().Add(time.Hour), next, 0)

	_, ok = r.NextTriggerOf(id)
	assert.False(t, ok)
	_, ok = r.NextTriggerOf(InvalidID)
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t)

	_, err := r.CreateAt(4, "* * * * * *", noop, true)
	require.NoError(t, err)
	_, err = r.CreateAt(1, "* * * * * *", noop, false)
	require.NoError(t, err)
	r.Disable(1)

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, ID(1), snap[0].ID)
	assert.False(t, snap[0].Enabled)
	assert.Equal(t, ID(4), snap[1].ID)
	assert.True(t, snap[1].OneShot)
}

func TestPanickingCallbackDoesNotWedgeRegistry(t *testing.T) {
	t.Parallel()
	r, clk := newTestRegistry(t)

	calls := 0
	_, err := r.Create("* * * * * *", func() {
		calls++
		panic("boom")
	}, false)
	require.NoError(t, err)

	clk.Advance(time.Second)
	assert.Panics(t, r.Service)
	assert.False(t, r.IsServicing())

	// The slot was advanced before the callback ran, so it is not due again.
	assert.NotPanics(t, r.Service)
	assert.Equal(t, 1, calls)
}

type stepExpr struct{ step time.Duration }

func (e stepExpr) Next(after time.Time) time.Time { return after.Add(e.step) }

func TestCustomParser(t *testing.T) {
	t.Parallel()
	parseErr := errors.New("unsupported")
	r, clk := newTestRegistry(t, WithParser(cronexpr.ParserFunc(func(text string) (cronexpr.Expression, error) {
		d, err := time.ParseDuration(text)
		if err != nil {
			return nil, parseErr
		}
		return stepExpr{step: d}, nil
	})))

	id, err := r.Create("3s", noop, false)
	require.NoError(t, err)
	next, _ := r.NextTriggerOf(id)
	assert.WithinDuration(t, clk.Now().Add(3*time.Second), next, 0)

	_, err = r.Create("weekly", noop, false)
	require.ErrorIs(t, err, ErrInvalidExpression)
	require.ErrorIs(t, err, parseErr)
}

func TestBlockingServiceFor(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	yields := 0
	r := New(WithClock(clk), WithTicks(clk.Now), WithYield(func(ctx context.Context) error {
		yields++
		clk.Advance(500 * time.Millisecond)
		return ctx.Err()
	}))

	fired := 0
	_, err := r.Create("* * * * * *", func() { fired++ }, false)
	require.NoError(t, err)

	require.NoError(t, r.BlockingServiceFor(context.Background(), 3*time.Second))
	assert.Equal(t, 7, yields)
	assert.Equal(t, 3, fired)
}

func TestBlockingServiceForIgnoresWallClockSteps(t *testing.T) {
	t.Parallel()
	wall := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	mono := &fakeClock{now: time.Unix(0, 0)}
	yields := 0
	r := New(WithClock(wall), WithTicks(mono.Now), WithYield(func(ctx context.Context) error {
		yields++
		if yields == 1 {
			// NTP steps the wall clock back an hour mid-wait.
			wall.Advance(-time.Hour)
		}
		wall.Advance(500 * time.Millisecond)
		mono.Advance(500 * time.Millisecond)
		return ctx.Err()
	}))

	fired := 0
	_, err := r.Create("* * * * * *", func() { fired++ }, false)
	require.NoError(t, err)

	require.NoError(t, r.BlockingServiceFor(context.Background(), 3*time.Second))
	assert.Equal(t, 7, yields, "wait length follows the monotonic source")
	assert.Zero(t, fired, "trigger times follow the wall clock")
}

func TestBlockingServiceForCanceled(t *testing.T) {
	t.Parallel()
	r, _ := newTestRegistry(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.BlockingServiceFor(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRateYield(t *testing.T) {
	t.Parallel()
	y := RateYield(1000)
	require.NoError(t, y(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, RateYield(1)(ctx))
}
