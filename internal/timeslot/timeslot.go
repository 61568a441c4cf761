package timeslot

import (
	"fmt"
	"strings"
	"time"
)

// JST is the fixed UTC+9 offset used for all user-facing times.
// The assistant operates in a single-office locale; events created through
// it always carry Asia/Tokyo wall-clock times.
var JST = time.FixedZone("JST", 9*60*60)

// Interval is a half-open time range [Start, End). It represents both
// provider-reported busy periods and computed free slots.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Equal reports whether two intervals have identical endpoints.
func (iv Interval) Equal(other Interval) bool {
	return iv.Start.Equal(other.Start) && iv.End.Equal(other.End)
}

// ParseDateTime parses a datetime string, assuming JST when no zone
// information is present.
//
// Supported formats:
//   - 2024-01-15T14:00:00+09:00 (RFC3339)
//   - 2024-01-15T14:00:00 (ISO without zone, assumes JST)
//   - 2024-01-15 14:00 and 2024-01-15 14:00:05 (simple formats, assume JST)
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	for _, layout := range []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, s, JST); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse datetime: %s", s)
}

// FormatRFC3339 renders a time in the RFC3339 form the calendar provider
// expects.
func FormatRFC3339(t time.Time) string {
	return t.Format(time.RFC3339)
}

// ResolveDateRange resolves a date token into a half-open day interval
// [00:00, next day 00:00) in JST. Relative tokens are resolved against the
// supplied now. Accepted tokens: "今日"/"today", "明日"/"tomorrow",
// "明後日"/"day after tomorrow", or an explicit YYYY-MM-DD date.
func ResolveDateRange(token string, now time.Time) (time.Time, time.Time, error) {
	today := now.In(JST)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, JST)

	var target time.Time
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "今日", "today":
		target = today
	case "明日", "tomorrow":
		target = today.AddDate(0, 0, 1)
	case "明後日", "day after tomorrow":
		target = today.AddDate(0, 0, 2)
	default:
		parsed, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(token), JST)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("unable to parse date: %s", token)
		}
		target = parsed
	}

	return target, target.AddDate(0, 0, 1), nil
}
