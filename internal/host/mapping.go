package host

import (
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cronalarms/internal/alarm"
	"cronalarms/internal/config"
	"cronalarms/internal/journal"
	logx "cronalarms/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		Format:  cfg.Logging.Format,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

// mapJournalConfig returns enabled=false when the section is omitted.
func mapJournalConfig(cfg *config.Config) (journal.Config, bool, error) {
	j := cfg.Journal
	if j == nil {
		return journal.Config{}, false, nil
	}
	driver := strings.ToLower(strings.TrimSpace(j.Driver))
	if driver == "" || driver == "none" {
		return journal.Config{}, false, nil
	}
	busy, err := j.BusyTimeoutDuration()
	if err != nil {
		return journal.Config{}, false, err
	}
	return journal.Config{Driver: driver, Path: strings.TrimSpace(j.Path), BusyTimeout: busy}, true, nil
}

func mapYieldRate(cfg *config.Config) rate.Limit {
	if cfg.Scheduler.YieldRate == nil {
		return alarm.DefaultYieldRate
	}
	return rate.Limit(*cfg.Scheduler.YieldRate)
}

func loadLocation(tz string, log logx.Logger) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// zoneClock is the registry clock. Its location is only changed by the
// goroutine that owns the registry.
type zoneClock struct {
	loc *time.Location
}

func (c *zoneClock) Now() time.Time { return time.Now().In(c.loc) }
