// Package cronexpr adapts github.com/robfig/cron/v3 to the two operations the
// alarm registry consumes: parse a recurrence text once, then ask the parsed
// expression for its next occurrence after a given instant.
//
// The registry never looks inside an Expression; any Parser implementation
// can be plugged in (tests use fixed-step fakes).
package cronexpr
