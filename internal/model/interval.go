package model

import (
	"fmt"
	"strings"
	"time"
)

// Interval names a minimum spacing between scrub runs. The set is closed:
// adding a member means extending Duration as well.
type Interval string

const (
	IntervalDay      Interval = "day"
	IntervalWeek     Interval = "week"
	IntervalTwoWeeks Interval = "2weeks"
	IntervalMonth    Interval = "month"
)

// ParseInterval parses a named interval, case-insensitive. Empty input is
// rejected, callers treat "no interval" as the absence of a policy.
func ParseInterval(s string) (Interval, error) {
	switch Interval(strings.ToLower(strings.TrimSpace(s))) {
	case IntervalDay:
		return IntervalDay, nil
	case IntervalWeek:
		return IntervalWeek, nil
	case IntervalTwoWeeks:
		return IntervalTwoWeeks, nil
	case IntervalMonth:
		return IntervalMonth, nil
	default:
		return "", fmt.Errorf("unknown interval %q (want day, week, 2weeks or month)", s)
	}
}

// Duration maps the named interval to its fixed duration. A month is 30
// days.
func (i Interval) Duration() time.Duration {
	switch i {
	case IntervalDay:
		return 24 * time.Hour
	case IntervalWeek:
		return 7 * 24 * time.Hour
	case IntervalTwoWeeks:
		return 14 * 24 * time.Hour
	case IntervalMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}
