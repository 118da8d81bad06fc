package host

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"cronalarms/internal/config"
	logx "cronalarms/pkg/logx"
)

// sdNotifier wraps sd_notify. Every method is a no-op when disabled or when
// not running under systemd (NOTIFY_SOCKET unset).
type sdNotifier struct {
	log logx.Logger

	notify   bool
	interval time.Duration // watchdog ping interval; 0 disables
	lastPing time.Time
}

func newSDNotifier(cfg config.SystemdConfig, log logx.Logger) *sdNotifier {
	n := &sdNotifier{log: log, notify: cfg.Notify}
	if cfg.Notify && cfg.Watchdog {
		usec, err := daemon.SdWatchdogEnabled(false)
		if err != nil {
			log.Warn("systemd watchdog check failed", logx.Err(err))
		} else if usec > 0 {
			// Ping at half the timeout, as systemd recommends.
			n.interval = usec / 2
			log.Info("systemd watchdog enabled", logx.Duration("interval", n.interval))
		}
	}
	return n
}

func (n *sdNotifier) send(state string) {
	if !n.notify {
		return
	}
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		n.log.Trace("sd_notify sent", logx.String("state", state))
	}
}

func (n *sdNotifier) Ready()     { n.send(daemon.SdNotifyReady) }
func (n *sdNotifier) Stopping()  { n.send(daemon.SdNotifyStopping) }
func (n *sdNotifier) Reloading() { n.send(daemon.SdNotifyReloading) }

// Watchdog pings systemd when the interval has elapsed since the last ping.
func (n *sdNotifier) Watchdog(now time.Time) {
	if n.interval <= 0 || now.Sub(n.lastPing) < n.interval {
		return
	}
	n.lastPing = now
	n.send(daemon.SdNotifyWatchdog)
}
