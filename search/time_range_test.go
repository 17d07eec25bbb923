package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// TestTimeRangeParser_RelativeTime tests "last N<unit>" expressions
func TestTimeRangeParser_RelativeTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	parser := NewTimeRangeParser(fixedClock(now))

	testCases := []struct {
		expr     string
		expected time.Time
	}{
		{"last 30s", now.Add(-30 * time.Second)},
		{"last 15 min", now.Add(-15 * time.Minute)},
		{"last 24h", now.Add(-24 * time.Hour)},
		{"last 7d", now.Add(-7 * 24 * time.Hour)},
		{"LAST 2 weeks", now.Add(-14 * 24 * time.Hour)},
		{"last 1 month", now.Add(-30 * 24 * time.Hour)},
		{"last 1y", now.Add(-365 * 24 * time.Hour)},
	}

	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := parser.ParseTimeRange(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

// TestTimeRangeParser_AbsoluteTime tests the accepted timestamp layouts
func TestTimeRangeParser_AbsoluteTime(t *testing.T) {
	parser := NewTimeRangeParser(nil)

	testCases := []struct {
		expr     string
		expected time.Time
	}{
		{"2024-01-01T00:00:00Z", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-01-01T02:00:00+02:00", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-01-01T00:00:00.5Z", time.Date(2024, 1, 1, 0, 0, 0, 500_000_000, time.UTC)},
		{"2024-01-01 10:30:00", time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-01-01 10:30:00 +0000", time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := parser.ParseTimeRange(tc.expr)
			require.NoError(t, err)
			assert.True(t, tc.expected.Equal(got), "expected %s, got %s", tc.expected, got)
		})
	}
}

// TestTimeRangeParser_KeepsZoneOffset tests that the caller's offset survives parsing
func TestTimeRangeParser_KeepsZoneOffset(t *testing.T) {
	got, err := NewTimeRangeParser(nil).ParseAbsoluteTime("2024-01-01T02:00:00+02:00")
	require.NoError(t, err)

	_, offset := got.Zone()
	assert.Equal(t, 2*60*60, offset)
}

// TestTimeRangeParser_Invalid tests rejected expressions
func TestTimeRangeParser_Invalid(t *testing.T) {
	parser := NewTimeRangeParser(nil)

	for _, expr := range []string{"", "   ", "last", "last week", "last 5 fortnights", "next 3d", "01/02/2024", "yesterday"} {
		t.Run(expr, func(t *testing.T) {
			_, err := parser.ParseTimeRange(expr)
			assert.Error(t, err)
		})
	}
}
