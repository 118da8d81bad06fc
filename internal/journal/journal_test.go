package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronalarms/internal/eventbus"
	logx "cronalarms/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		require.NoError(t, err)
		assert.Nil(t, st)
	}
	_, err := Open(Config{Driver: "postgres"}, logx.Nop())
	require.Error(t, err)
	_, err = Open(Config{Driver: "file"}, logx.Nop())
	require.Error(t, err)
}

func testStore(t *testing.T, driver, name string) {
	t.Helper()
	st, err := Open(Config{Driver: driver, Path: filepath.Join(t.TempDir(), name)}, logx.Nop())
	require.NoError(t, err)
	require.NotNil(t, st)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, st.Append(ctx, Entry{
			At:      base.Add(time.Duration(i) * time.Second),
			Kind:    eventbus.TypeAlarmFired,
			Name:    "tick",
			AlarmID: uint8(i),
			Next:    base.Add(time.Duration(i+1) * time.Second),
		}))
	}

	got, err := st.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint8(4), got[0].AlarmID)
	assert.Equal(t, uint8(2), got[2].AlarmID)
	assert.True(t, got[0].At.Equal(base.Add(4*time.Second)))
	assert.True(t, got[0].Next.Equal(base.Add(5*time.Second)))
	assert.Equal(t, "tick", got[1].Name)

	all, err := st.Recent(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	require.NoError(t, st.Close())
	require.ErrorIs(t, st.Append(ctx, Entry{Kind: "x"}), ErrClosed)
}

func TestFileStore(t *testing.T) {
	t.Parallel()
	testStore(t, "file", "journal.log")
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	testStore(t, "sqlite", "journal.db")
}

func TestRecordDrainsBus(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "j")}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	bus := eventbus.New()
	rec := NewRecorder(st, bus, logx.Nop())
	// Published before Run starts: still recorded.
	bus.Publish(eventbus.Event{Type: eventbus.TypeAlarmFired, Data: eventbus.AlarmData{Name: "early", ID: 1}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	require.Eventually(t, func() bool {
		got, err := st.Recent(context.Background(), 1)
		return err == nil && len(got) == 1 && got[0].Name == "early"
	}, 2*time.Second, 10*time.Millisecond)

	bus.Publish(eventbus.Event{Type: "other", Data: "ignored"})
	bus.Publish(eventbus.Event{Type: eventbus.TypeAlarmRemoved, Data: eventbus.AlarmData{Name: "gone", ID: 3}})

	require.Eventually(t, func() bool {
		got, err := st.Recent(context.Background(), 1)
		return err == nil && len(got) == 1 && got[0].Name == "gone"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestEntryFromEvent(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e, ok := EntryFromEvent(eventbus.Event{
		Type: eventbus.TypeAlarmRejected,
		Time: at,
		Data: eventbus.AlarmData{Name: "bad", ID: 255, Expr: "nope", Err: "invalid"},
	})
	require.True(t, ok)
	assert.Equal(t, Entry{At: at, Kind: eventbus.TypeAlarmRejected, Name: "bad", AlarmID: 255, Expr: "nope", Error: "invalid"}, e)

	_, ok = EntryFromEvent(eventbus.Event{Type: eventbus.TypeAlarmFired, Data: 42})
	assert.False(t, ok)
}
