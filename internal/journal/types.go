package journal

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("journal closed")

// Config selects the journal backend.
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry is one recorded alarm event.
// Keep it compact and schema-stable.
type Entry struct {
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	Name    string    `json:"name"`
	AlarmID uint8     `json:"alarm_id"`
	Expr    string    `json:"expr,omitempty"`
	Message string    `json:"message,omitempty"`
	Next    time.Time `json:"next,omitempty"`
	Error   string    `json:"err,omitempty"`
}

// Store is the append-only journal API.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// Recent returns up to n entries, newest first.
	Recent(ctx context.Context, n int) ([]Entry, error)
	Close() error
}
