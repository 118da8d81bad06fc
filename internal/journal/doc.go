// Package journal records alarm firings to an append-only log.
//
// It is write-only from the daemon's point of view: the registry never
// replays it, alarms are rebuilt from config on every start. Supported
// drivers:
//   - "file": JSON Lines file (<path>.jsonl)
//   - "sqlite": SQLite database via modernc.org/sqlite
package journal
