package cronexpr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrEmpty is returned for blank recurrence text.
var ErrEmpty = errors.New("cron expression required")

// Expression is a parsed recurrence.
//
// Next returns the first occurrence strictly after the given instant, or the
// zero time when the expression has no further occurrence.
type Expression interface {
	Next(after time.Time) time.Time
}

// Parser turns recurrence text into an Expression.
type Parser interface {
	Parse(text string) (Expression, error)
}

// ParserFunc adapts a plain function to Parser.
type ParserFunc func(text string) (Expression, error)

func (f ParserFunc) Parse(text string) (Expression, error) { return f(text) }

// Standard accepts 6-field specs with a leading seconds field, classic 5-field
// specs, descriptors like "@hourly" and "@every 90s", and the interval
// shorthands understood by Normalize.
var Standard Parser = NewParser()

type robfigParser struct {
	p cron.Parser
}

// NewParser returns the default robfig-backed parser.
func NewParser() Parser {
	return robfigParser{
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		p: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (r robfigParser) Parse(text string) (Expression, error) {
	spec, err := Normalize(text)
	if err != nil {
		return nil, err
	}
	sched, err := r.p.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", strings.TrimSpace(text), err)
	}
	return sched, nil
}

// Preview returns up to n upcoming occurrences of expr after from.
// It stops early when the expression runs out of occurrences.
func Preview(expr Expression, from time.Time, n int) []time.Time {
	if expr == nil || n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	t := from
	for i := 0; i < n; i++ {
		t = expr.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out
}

// FormatPreview renders Preview output as a short, human-friendly list.
func FormatPreview(times []time.Time) string {
	var b strings.Builder
	for i, t := range times {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
