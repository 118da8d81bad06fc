package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cronalarms/internal/alarm"
	"cronalarms/internal/cronexpr"
)

// Validate checks everything that can be checked without touching the
// registry: names, schedules, pinned ids, durations and timezone.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}
	if _, err := cfg.Scheduler.TickDuration(); err != nil {
		errs = append(errs, err)
	}

	if len(cfg.Alarms) > alarm.Capacity {
		errs = append(errs, fmt.Errorf("alarms: %d declared, capacity is %d", len(cfg.Alarms), alarm.Capacity))
	}
	names := map[string]int{}
	pinned := map[int]string{}
	for i, a := range cfg.Alarms {
		path := fmt.Sprintf("alarms[%d]", i)
		name := strings.TrimSpace(a.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("%s.name: required", path))
		} else if j, dup := names[name]; dup {
			errs = append(errs, fmt.Errorf("%s.name: %q already used by alarms[%d]", path, name, j))
		} else {
			names[name] = i
		}
		if _, err := cronexpr.Standard.Parse(a.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("%s.schedule: %w", path, err))
		}
		if a.ID != nil {
			id := *a.ID
			if id < 0 || id >= alarm.Capacity {
				errs = append(errs, fmt.Errorf("%s.id: %d out of range [0,%d)", path, id, alarm.Capacity))
			} else if other, dup := pinned[id]; dup {
				errs = append(errs, fmt.Errorf("%s.id: slot %d already pinned by %q", path, id, other))
			} else {
				pinned[id] = name
			}
		}
	}

	if j := cfg.Journal; j != nil {
		switch strings.ToLower(strings.TrimSpace(j.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(j.Path) == "" {
				errs = append(errs, errors.New("journal.path: required"))
			}
		default:
			errs = append(errs, fmt.Errorf("journal.driver: unknown %q", j.Driver))
		}
		if _, err := j.BusyTimeoutDuration(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
