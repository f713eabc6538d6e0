package middleware

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Quota is a request budget over a time window, e.g. 100 requests a minute
type Quota struct {
	Requests int
	Window   time.Duration
}

// ParseQuota parses quota strings of the form "<count>/<unit>", such as
// "100/minute" or "10/second". This is the format rate limits are
// configured with.
func ParseQuota(s string) (Quota, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return Quota{}, fmt.Errorf("invalid quota %q: expected <count>/<unit>", s)
	}

	count, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || count <= 0 {
		return Quota{}, fmt.Errorf("invalid quota %q: count must be a positive integer", s)
	}

	var window time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[1])) {
	case "second":
		window = time.Second
	case "minute":
		window = time.Minute
	case "hour":
		window = time.Hour
	case "day":
		window = 24 * time.Hour
	default:
		return Quota{}, fmt.Errorf("invalid quota %q: unit must be second, minute, hour or day", s)
	}

	return Quota{Requests: count, Window: window}, nil
}

// MustParseQuota parses a quota string and panics on failure, for
// package-level defaults
func MustParseQuota(s string) Quota {
	q, err := ParseQuota(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quota) String() string {
	switch q.Window {
	case time.Second:
		return fmt.Sprintf("%d/second", q.Requests)
	case time.Minute:
		return fmt.Sprintf("%d/minute", q.Requests)
	case time.Hour:
		return fmt.Sprintf("%d/hour", q.Requests)
	case 24 * time.Hour:
		return fmt.Sprintf("%d/day", q.Requests)
	}
	return fmt.Sprintf("%d per %s", q.Requests, q.Window)
}
