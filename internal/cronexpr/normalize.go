package cronexpr

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// Normalize rewrites recurrence text into a robfig/cron spec.
//
// Supported forms:
//   - Cron with seconds: "*/10 * * * * *", "0 30 7 * * 1-5"
//   - Cron without seconds: "*/5 * * * *", "@hourly", "@every 55m"
//   - Interval duration: "55m", "2h30m"
//   - Interval HH:MM: "00:50" (50 minutes), "02:30" (2 hours 30 minutes)
//
// Optional prefixes:
//   - "cron:" forces cron parsing
//   - "interval:" or "every:" forces interval parsing
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmpty
	}

	low := strings.ToLower(s)
	if strings.HasPrefix(low, "cron:") {
		expr := strings.TrimSpace(s[len("cron:"):])
		if expr == "" {
			return "", fmt.Errorf("cron schedule required after 'cron:'")
		}
		return expr, nil
	}
	for _, prefix := range []string{"interval:", "every:"} {
		if strings.HasPrefix(low, prefix) {
			d, err := parseInterval(s[len(prefix):])
			if err != nil {
				return "", err
			}
			return every(d), nil
		}
	}

	// Any whitespace or leading '@' means cron.
	if strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@") {
		return s, nil
	}

	if reHHMM.MatchString(s) {
		d, err := parseHHMMDuration(s)
		if err != nil {
			return "", err
		}
		return every(d), nil
	}

	d, err := time.ParseDuration(s)
	if err == nil {
		if d < time.Second {
			return "", fmt.Errorf("interval must be >= 1s")
		}
		return every(d), nil
	}

	return "", fmt.Errorf(
		"invalid schedule %q (use cron like '*/5 * * * * *', HH:MM like '02:30', or duration like '55m')",
		raw,
	)
}

func every(d time.Duration) string { return "@every " + d.String() }

func parseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("interval required")
	}
	if reHHMM.MatchString(v) {
		return parseHHMMDuration(v)
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q (use HH:MM or Go duration like '55m'/'2h30m')", v)
	}
	if d < time.Second {
		return 0, fmt.Errorf("interval must be >= 1s")
	}
	return d, nil
}

func parseHHMMDuration(v string) (time.Duration, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, fmt.Errorf("invalid HH:MM %q", v)
	}
	// hours up to 999, minutes 0..59
	var hh int
	for i := 0; i < len(m[1]); i++ {
		hh = hh*10 + int(m[1][i]-'0')
	}
	mm := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if mm > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", v)
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}
