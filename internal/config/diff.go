package config

import (
	"sort"
	"strings"

	logx "cronalarms/pkg/logx"
)

// AlarmChanges lists alarm names by what a reload did to them.
type AlarmChanges struct {
	Added   []string
	Removed []string
	Changed []string
}

func (c AlarmChanges) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// DiffAlarms compares alarm definitions by name.
func DiffAlarms(oldA, newA []AlarmConfig) AlarmChanges {
	oldM := make(map[string]uint64, len(oldA))
	for _, a := range oldA {
		oldM[strings.TrimSpace(a.Name)] = HashAlarm(a)
	}
	var ch AlarmChanges
	seen := make(map[string]struct{}, len(newA))
	for _, a := range newA {
		name := strings.TrimSpace(a.Name)
		seen[name] = struct{}{}
		h, ok := oldM[name]
		switch {
		case !ok:
			ch.Added = append(ch.Added, name)
		case h != HashAlarm(a):
			ch.Changed = append(ch.Changed, name)
		}
	}
	for name := range oldM {
		if _, ok := seen[name]; !ok {
			ch.Removed = append(ch.Removed, name)
		}
	}
	sort.Strings(ch.Added)
	sort.Strings(ch.Removed)
	sort.Strings(ch.Changed)
	return ch
}

// SummarizeConfigChange returns a compact list of changed sections and
// structured attrs for logging.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.String("logging.format", newCfg.Logging.Format),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	oSch, nSch := oldCfg.Scheduler, newCfg.Scheduler
	if oSch.IsEnabled() != nSch.IsEnabled() ||
		strings.TrimSpace(oSch.Timezone) != strings.TrimSpace(nSch.Timezone) ||
		strings.TrimSpace(oSch.Tick) != strings.TrimSpace(nSch.Tick) ||
		derefFloat(oSch.YieldRate) != derefFloat(nSch.YieldRate) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", nSch.IsEnabled()),
			logx.String("scheduler.timezone", strings.TrimSpace(nSch.Timezone)),
			logx.String("scheduler.tick", strings.TrimSpace(nSch.Tick)),
		)
	}

	if ac := DiffAlarms(oldCfg.Alarms, newCfg.Alarms); !ac.Empty() {
		changed = append(changed, "alarms")
		attrs = append(attrs,
			logx.Int("alarms.added", len(ac.Added)),
			logx.Int("alarms.removed", len(ac.Removed)),
			logx.Int("alarms.changed", len(ac.Changed)),
			logx.Int("alarms.total", len(newCfg.Alarms)),
		)
	}

	oj, nj := derefJournal(oldCfg.Journal), derefJournal(newCfg.Journal)
	if oj != nj {
		changed = append(changed, "journal")
		attrs = append(attrs,
			logx.String("journal.driver", strings.TrimSpace(nj.Driver)),
			logx.Bool("journal.path_set", strings.TrimSpace(nj.Path) != ""),
		)
	}

	if oldCfg.Systemd != newCfg.Systemd {
		changed = append(changed, "systemd")
		attrs = append(attrs,
			logx.Bool("systemd.notify", newCfg.Systemd.Notify),
			logx.Bool("systemd.watchdog", newCfg.Systemd.Watchdog),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return -1
	}
	return *p
}

func derefJournal(j *JournalConfig) JournalConfig {
	if j == nil {
		return JournalConfig{}
	}
	return *j
}
