package config

// Config is the daemon configuration file (JSON or YAML).
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Alarms    []AlarmConfig   `json:"alarms"`

	// Journal records alarm firings. Nil or driver "none" disables it.
	Journal *JournalConfig `json:"journal,omitempty"`
	Systemd SystemdConfig  `json:"systemd,omitempty"`
}

type LoggingConfig struct {
	Level   string `json:"level"`
	Console bool   `json:"console"`
	// Format of console output: "console" (default) or "json".
	Format string      `json:"format,omitempty"`
	File   LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the alarm registry and its service loop.
//
// Example:
//
//	scheduler:
//	  enabled: true
//	  timezone: Europe/Madrid
//	  tick: 1s
//	  yield_rate: 20
type SchedulerConfig struct {
	// Enabled maps to the registry's global enable flag. Omitted means true.
	Enabled *bool `json:"enabled,omitempty"`
	// Timezone for cron evaluation. Empty means the host's local zone.
	Timezone string `json:"timezone,omitempty"`
	// Tick is how long one BlockingServiceFor call lasts before the loop
	// applies pending config and pings the watchdog (Go duration, default 1s).
	Tick string `json:"tick,omitempty"`
	// YieldRate caps service passes per second (default 50, <=0 disables pacing).
	YieldRate *float64 `json:"yield_rate,omitempty"`
}

func (c SchedulerConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// AlarmConfig declares one alarm.
//
// Example:
//
//	alarms:
//	  - name: water-plants
//	    schedule: "0 30 7 * * *"
//	    message: "pump on"
//	  - name: reminder
//	    schedule: "0 0 18 * * 5"
//	    one_shot: true
//	    id: 3
type AlarmConfig struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	OneShot  bool   `json:"one_shot,omitempty"`
	// Enabled omitted means true. Disabled alarms still hold their slot.
	Enabled *bool `json:"enabled,omitempty"`
	// ID pins the alarm to a slot. Omitted means lowest free slot.
	ID      *int   `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

func (a AlarmConfig) IsEnabled() bool { return a.Enabled == nil || *a.Enabled }

// JournalConfig controls the firing journal.
//
// Example:
//
//	journal: { driver: sqlite, path: ./data/journal.db, busy_timeout: 2s }
type JournalConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// SystemdConfig controls sd_notify integration. Both are no-ops outside systemd.
type SystemdConfig struct {
	Notify   bool `json:"notify"`
	Watchdog bool `json:"watchdog"`
}
