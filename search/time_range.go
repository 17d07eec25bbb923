package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeTimePattern = regexp.MustCompile(`^last\s+(\d+)\s*(s|sec|secs|second|seconds|min|mins|minute|minutes|h|hour|hours|d|day|days|w|week|weeks|m|month|months|y|year|years)$`)

// absoluteTimeFormats are tried in order. Layouts without a zone are read as UTC.
var absoluteTimeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TimeRangeParser parses time bounds given as absolute timestamps or as
// relative expressions like "last 7d".
type TimeRangeParser struct {
	clock Clock
}

// NewTimeRangeParser creates a parser that resolves relative expressions
// against clock. A nil clock means the wall clock.
func NewTimeRangeParser(clock Clock) *TimeRangeParser {
	if clock == nil {
		clock = SystemClock
	}
	return &TimeRangeParser{clock: clock}
}

// ParseRelativeTime parses expressions like "last 24h" or "last 7 days" into
// the instant that far before now. Months are 30 days and years 365.
func (trp *TimeRangeParser) ParseRelativeTime(expr string) (time.Time, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))

	matches := relativeTimePattern.FindStringSubmatch(expr)
	if len(matches) != 3 {
		return time.Time{}, fmt.Errorf("invalid relative time expression: %s (expected format: 'last 24h' or 'last 7d')", expr)
	}

	amount, err := strconv.Atoi(matches[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time amount: %s", matches[1])
	}

	var unit time.Duration
	switch matches[2] {
	case "s", "sec", "secs", "second", "seconds":
		unit = time.Second
	case "min", "mins", "minute", "minutes":
		unit = time.Minute
	case "h", "hour", "hours":
		unit = time.Hour
	case "d", "day", "days":
		unit = 24 * time.Hour
	case "w", "week", "weeks":
		unit = 7 * 24 * time.Hour
	case "m", "month", "months":
		unit = 30 * 24 * time.Hour
	case "y", "year", "years":
		unit = 365 * 24 * time.Hour
	default:
		return time.Time{}, fmt.Errorf("unsupported time unit: %s", matches[2])
	}

	return trp.clock.Now().Add(-time.Duration(amount) * unit), nil
}

// ParseAbsoluteTime parses RFC 3339 and a few common timestamp layouts. The
// zone offset given by the caller is kept.
func (trp *TimeRangeParser) ParseAbsoluteTime(expr string) (time.Time, error) {
	expr = strings.TrimSpace(expr)

	for _, format := range absoluteTimeFormats {
		if t, err := time.Parse(format, expr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid absolute time format: %s (expected RFC 3339)", expr)
}

// ParseTimeRange parses either form.
func (trp *TimeRangeParser) ParseTimeRange(expr string) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, fmt.Errorf("time expression cannot be empty")
	}

	if strings.HasPrefix(strings.ToLower(expr), "last") {
		return trp.ParseRelativeTime(expr)
	}

	return trp.ParseAbsoluteTime(expr)
}
