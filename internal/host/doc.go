// Package host is the composition root of cronalarmd.
//
// It owns the single alarm.Registry of the process and the one goroutine
// allowed to touch it. Config reloads, timezone changes and watchdog pings
// are all applied by that goroutine between BlockingServiceFor calls, so the
// registry never needs a lock.
package host
