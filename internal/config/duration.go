package config

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTick is the service loop slice used when scheduler.tick is unset.
const DefaultTick = time.Second

// TickDuration returns scheduler.tick, or DefaultTick when it is blank or 0.
func (c SchedulerConfig) TickDuration() (time.Duration, error) {
	d, err := fieldDuration("scheduler.tick", c.Tick)
	if err != nil || d > 0 {
		return d, err
	}
	return DefaultTick, nil
}

// BusyTimeoutDuration returns journal.busy_timeout; 0 leaves the driver default.
func (c JournalConfig) BusyTimeoutDuration() (time.Duration, error) {
	return fieldDuration("journal.busy_timeout", c.BusyTimeout)
}

// fieldDuration parses a non-negative Go duration; blank means 0. Errors
// carry the config path of the field.
func fieldDuration(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: %s is negative", path, s)
	}
	return d, nil
}
