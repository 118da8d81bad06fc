package host

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cronalarms/internal/alarm"
	"cronalarms/internal/config"
	"cronalarms/internal/cronexpr"
	"cronalarms/internal/eventbus"
	logx "cronalarms/pkg/logx"
)

const previewCount = 3

type entry struct {
	def config.AlarmConfig
	id  alarm.ID
}

// reconciler keeps the registry in line with the configured alarm list.
// It must only be used from the goroutine that owns the registry.
type reconciler struct {
	reg    *alarm.Registry
	parser cronexpr.Parser
	bus    eventbus.Bus
	log    logx.Logger

	defs    []config.AlarmConfig
	entries map[string]*entry
}

// newReconciler wires a reconciler. parser must be the registry's parser; it
// is only used to preview upcoming firings in logs.
func newReconciler(reg *alarm.Registry, parser cronexpr.Parser, bus eventbus.Bus, log logx.Logger) *reconciler {
	return &reconciler{reg: reg, parser: parser, bus: bus, log: log, entries: map[string]*entry{}}
}

// apply frees removed or changed alarms and creates new or changed ones.
// Alarms that fail to install are reported and skipped; the rest still apply.
func (rc *reconciler) apply(defs []config.AlarmConfig) error {
	diff := config.DiffAlarms(rc.defs, defs)
	rc.defs = append([]config.AlarmConfig(nil), defs...)

	for _, name := range append(diff.Removed, diff.Changed...) {
		rc.remove(name)
	}

	byName := make(map[string]config.AlarmConfig, len(defs))
	for _, d := range defs {
		byName[strings.TrimSpace(d.Name)] = d
	}
	pending := append(append([]string(nil), diff.Added...), diff.Changed...)
	// Pinned slots first so automatic allocation cannot take them.
	sort.SliceStable(pending, func(i, j int) bool {
		return byName[pending[i]].ID != nil && byName[pending[j]].ID == nil
	})

	var errs []error
	for i := 0; i < len(pending); i++ {
		def := byName[pending[i]]
		if def.ID != nil {
			// Move an unpinned alarm out of the way.
			if other := rc.occupant(alarm.ID(*def.ID)); other != nil && other.def.ID == nil {
				name := strings.TrimSpace(other.def.Name)
				rc.reg.Free(other.id)
				delete(rc.entries, name)
				pending = append(pending, name)
			}
		}
		if err := rc.install(def); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (rc *reconciler) occupant(id alarm.ID) *entry {
	for _, e := range rc.entries {
		if e.id == id {
			return e
		}
	}
	return nil
}

func (rc *reconciler) install(def config.AlarmConfig) error {
	name := strings.TrimSpace(def.Name)
	cb := rc.callback(name, def)

	var (
		id  alarm.ID
		err error
	)
	if def.ID != nil {
		id, err = rc.reg.CreateAt(alarm.ID(*def.ID), def.Schedule, cb, def.OneShot)
	} else {
		id, err = rc.reg.Create(def.Schedule, cb, def.OneShot)
	}
	if err != nil {
		rc.log.Error("alarm rejected", logx.String("name", name), logx.String("schedule", def.Schedule), logx.Err(err))
		rc.publish(eventbus.TypeAlarmRejected, eventbus.AlarmData{Name: name, ID: uint8(alarm.InvalidID), Expr: def.Schedule, Err: err.Error()})
		return err
	}
	if !def.IsEnabled() {
		rc.reg.Disable(id)
	}
	rc.entries[name] = &entry{def: def, id: id}

	next, _ := rc.reg.NextTriggerOf(id)
	rc.log.Info("alarm scheduled",
		logx.String("name", name),
		logx.Alarm(uint8(id)),
		logx.String("schedule", def.Schedule),
		logx.Bool("enabled", def.IsEnabled()),
		logx.Bool("one_shot", def.OneShot),
		logx.Time("next", next),
		logx.String("upcoming", rc.upcoming(def, next)),
	)
	rc.publish(eventbus.TypeAlarmScheduled, eventbus.AlarmData{Name: name, ID: uint8(id), Expr: def.Schedule, OneShot: def.OneShot, Next: next})
	return nil
}

// upcoming lists the next few firings starting at next. One-shots and
// disabled alarms have nothing after next.
func (rc *reconciler) upcoming(def config.AlarmConfig, next time.Time) string {
	if next.IsZero() || !def.IsEnabled() {
		return ""
	}
	times := []time.Time{next}
	if !def.OneShot && rc.parser != nil {
		if expr, err := rc.parser.Parse(def.Schedule); err == nil {
			times = append(times, cronexpr.Preview(expr, next, previewCount-1)...)
		}
	}
	return cronexpr.FormatPreview(times)
}

func (rc *reconciler) remove(name string) {
	e, ok := rc.entries[name]
	if !ok {
		return
	}
	delete(rc.entries, name)
	rc.reg.Free(e.id)
	rc.log.Info("alarm removed", logx.String("name", name), logx.Alarm(uint8(e.id)))
	rc.publish(eventbus.TypeAlarmRemoved, eventbus.AlarmData{Name: name, ID: uint8(e.id), Expr: e.def.Schedule})
}

// callback runs inside Registry.Service.
func (rc *reconciler) callback(name string, def config.AlarmConfig) alarm.Callback {
	return func() {
		id := rc.reg.TriggeredID()
		next, _ := rc.reg.NextTriggerOf(id)
		if def.OneShot {
			// The registry already released the slot.
			if e, ok := rc.entries[name]; ok && e.id == id {
				delete(rc.entries, name)
			}
		}
		fields := []logx.Field{logx.String("name", name), logx.Alarm(uint8(id))}
		if def.Message != "" {
			fields = append(fields, logx.String("message", def.Message))
		}
		if !next.IsZero() {
			fields = append(fields, logx.Time("next", next))
		}
		rc.log.Info("alarm fired", fields...)
		rc.publish(eventbus.TypeAlarmFired, eventbus.AlarmData{
			Name:    name,
			ID:      uint8(id),
			Expr:    def.Schedule,
			OneShot: def.OneShot,
			Message: def.Message,
			Next:    next,
		})
	}
}

func (rc *reconciler) publish(typ string, d eventbus.AlarmData) {
	if rc.bus == nil {
		return
	}
	rc.bus.Publish(eventbus.Event{Type: typ, Data: d})
}

// lookup returns the slot currently holding name.
func (rc *reconciler) lookup(name string) (alarm.ID, bool) {
	e, ok := rc.entries[name]
	if !ok {
		return alarm.InvalidID, false
	}
	return e.id, true
}

// formatSlots renders a registry snapshot as "0:on@07:30:00 1:off@...".
func formatSlots(slots []alarm.SlotInfo) string {
	var b strings.Builder
	for i, s := range slots {
		if i > 0 {
			b.WriteByte(' ')
		}
		state := "on"
		if !s.Enabled {
			state = "off"
		}
		if s.OneShot {
			state += ",once"
		}
		fmt.Fprintf(&b, "%s:%s", s.ID, state)
		if !s.NextTrigger.IsZero() {
			b.WriteString("@" + s.NextTrigger.Format(time.DateTime))
		}
	}
	return b.String()
}
