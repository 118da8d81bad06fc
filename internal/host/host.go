package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cronalarms/internal/alarm"
	"cronalarms/internal/config"
	"cronalarms/internal/cronexpr"
	"cronalarms/internal/eventbus"
	"cronalarms/internal/journal"
	"cronalarms/internal/runtime/supervisor"
	logx "cronalarms/pkg/logx"
)

type Host struct {
	cfgm *config.ConfigManager
	cfg  *config.Config

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	jrnl journal.Store
	sd   *sdNotifier
	sup  *supervisor.Supervisor

	// Owned by the loop goroutine once Start returns.
	reg   *alarm.Registry
	clock *zoneClock
	rc    *reconciler
	tick  time.Duration

	cfgCh chan *config.Config
}

// New loads cfgPath and wires every component. Nothing runs until Start.
func New(cfgPath string) (*Host, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	tick, err := cfg.Scheduler.TickDuration()
	if err != nil {
		return nil, err
	}
	jc, journalOn, err := mapJournalConfig(cfg)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	cfgm.SetValidator(dryRun)

	clock := &zoneClock{loc: loadLocation(cfg.Scheduler.Timezone, log)}
	reg := alarm.New(
		alarm.WithClock(clock),
		alarm.WithParser(cronexpr.Standard),
		alarm.WithYieldRate(mapYieldRate(cfg)),
		alarm.WithLogger(log.With(logx.String("comp", "alarm"))),
	)
	bus := eventbus.New()

	h := &Host{
		cfgm:  cfgm,
		cfg:   cfg,
		log:   log.With(logx.String("comp", "host")),
		logs:  logSvc,
		bus:   bus,
		sd:    newSDNotifier(cfg.Systemd, log.With(logx.String("comp", "systemd"))),
		reg:   reg,
		clock: clock,
		tick:  tick,
	}
	h.rc = newReconciler(reg, cronexpr.Standard, bus, log.With(logx.String("comp", "alarms")))

	if journalOn {
		h.jrnl, err = journal.Open(jc, log.With(logx.String("comp", "journal")))
		if err != nil {
			_ = h.release()
			return nil, fmt.Errorf("journal: %w", err)
		}
		log.Info("journal enabled", logx.String("driver", jc.Driver))
	}
	return h, nil
}

// dryRun installs cfg's alarms into a scratch registry so a reload that
// cannot be applied is rejected before it is published.
func dryRun(_ context.Context, cfg *config.Config) error {
	loc := loadLocation(cfg.Scheduler.Timezone, logx.Nop())
	reg := alarm.New(alarm.WithClock(alarm.SystemClock{Location: loc}))
	return newReconciler(reg, cronexpr.Standard, nil, logx.Nop()).apply(cfg.Alarms)
}

// release closes what New opened. Safe to call more than once.
func (h *Host) release() error {
	var err error
	if h.jrnl != nil {
		err = h.jrnl.Close()
	}
	if h.logs != nil {
		if cerr := h.logs.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Registry exposes the registry for in-process hosts that add their own
// alarms. It must only be used before Start or from alarm callbacks.
func (h *Host) Registry() *alarm.Registry { return h.reg }

// Start installs the configured alarms and launches the service loop,
// the config watcher and the journal recorder.
func (h *Host) Start(ctx context.Context) error {
	if h.sup != nil {
		return errors.New("host already started")
	}
	h.sup = supervisor.New(ctx,
		supervisor.WithLogger(h.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	h.cfgCh = h.cfgm.Subscribe(1)

	// Subscribe before installing alarms so their events reach the journal.
	if h.jrnl != nil {
		rec := journal.NewRecorder(h.jrnl, h.bus, h.log.With(logx.String("comp", "journal")))
		h.sup.Go("journal.record", rec.Run)
	}

	if err := h.rc.apply(h.cfg.Alarms); err != nil {
		h.log.Warn("some alarms were not installed", logx.Err(err))
	}
	h.applyGlobal(h.cfg)

	// The registry belongs to alarm.loop once it starts; read it before.
	fields := []logx.Field{logx.Int("alarms", h.reg.Count()), logx.Int("capacity", alarm.Capacity), logx.String("tz", h.clock.loc.String())}
	if next, ok := h.reg.NextTrigger(); ok {
		fields = append(fields, logx.Time("next", next))
	}
	h.logSlots()

	h.sup.GoRestart("config.watch", h.cfgm.Watch, supervisor.WithRestartBackoff(time.Second, 30*time.Second))
	h.sup.Go("alarm.loop", h.runLoop)

	h.log.Info("host started", append(fields, logx.Int("goroutines", int(h.sup.Active())))...)
	h.sd.Ready()
	return nil
}

// logSlots writes the registry table at debug level. Registry goroutine only.
func (h *Host) logSlots() {
	h.log.Debug("alarm slots", logx.String("slots", formatSlots(h.reg.Snapshot())))
}

// Done is closed when the host stops on its own (fatal error) or after Stop.
func (h *Host) Done() <-chan struct{} {
	if h.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return h.sup.Context().Done()
}

// Stop cancels every goroutine, waits for them and closes the journal.
func (h *Host) Stop(ctx context.Context) error {
	start := time.Now()
	h.sd.Stopping()
	var err error
	if h.sup != nil {
		err = h.sup.Stop(ctx)
		h.cfgm.Unsubscribe(h.cfgCh)
	}
	h.log.Info("host stopped", logx.Duration("took", time.Since(start)))
	if rerr := h.release(); rerr != nil && err == nil {
		err = rerr
	}
	return err
}
