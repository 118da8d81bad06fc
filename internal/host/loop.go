package host

import (
	"context"
	"strings"

	"cronalarms/internal/alarm"
	"cronalarms/internal/config"
	logx "cronalarms/pkg/logx"
)

// runLoop is the only goroutine that touches the registry after Start.
func (h *Host) runLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-h.cfgCh:
			if ok && cfg != nil {
				h.reload(cfg)
			}
		default:
		}

		if err := h.reg.BlockingServiceFor(ctx, h.tick); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		h.sd.Watchdog(h.clock.Now())
	}
}

// reload applies a new committed config between service passes.
func (h *Host) reload(cfg *config.Config) {
	h.sd.Reloading()
	defer h.sd.Ready()

	changed, attrs := config.SummarizeConfigChange(h.cfg, cfg)
	old := h.cfg
	h.cfg = cfg
	if len(changed) == 0 {
		return
	}
	h.log.Info("config reloaded", append([]logx.Field{logx.String("changed", strings.Join(changed, ","))}, attrs...)...)

	for _, section := range changed {
		switch section {
		case "logging":
			h.logs.Apply(mapLoggingConfig(cfg))
		case "scheduler":
			h.applyScheduler(old, cfg)
		case "alarms":
			if err := h.rc.apply(cfg.Alarms); err != nil {
				h.log.Warn("some alarms were not installed", logx.Err(err))
			}
			h.logSlots()
		case "journal", "systemd":
			h.log.Warn("config section requires restart", logx.String("section", section))
		}
	}
}

func (h *Host) applyScheduler(old, cfg *config.Config) {
	if tick, err := cfg.Scheduler.TickDuration(); err == nil {
		h.tick = tick
	}
	h.reg.SetYield(alarm.RateYield(mapYieldRate(cfg)))

	if strings.TrimSpace(old.Scheduler.Timezone) != strings.TrimSpace(cfg.Scheduler.Timezone) {
		h.clock.loc = loadLocation(cfg.Scheduler.Timezone, h.log)
		// Wall-clock schedules must be recomputed in the new zone.
		h.reg.GlobalUpdateNextTrigger()
		h.log.Info("timezone changed", logx.String("tz", h.clock.loc.String()))
	}
	h.applyGlobal(cfg)
}

func (h *Host) applyGlobal(cfg *config.Config) {
	want := cfg.Scheduler.IsEnabled()
	if want == h.reg.IsGlobalEnabled() {
		return
	}
	if want {
		h.reg.GlobalEnable()
		h.log.Info("alarms globally enabled")
		return
	}
	h.reg.GlobalDisable()
	h.log.Info("alarms globally disabled")
}
