package calendar

import (
	"strings"
	"time"
)

// DayLayout is the format of day labels and bucket keys.
const DayLayout = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	DayLayout,
	"02/01/2006",
}

// ParseDate accepts ISO timestamps, YYYY-MM-DD and DD/MM/YYYY. Values
// without a zone are read in loc. The result is in UTC, the zone every
// stored timestamp uses.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// StartOfDay is midnight of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DayKey labels the day t falls on in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// LastDays returns the labels of the n days ending today in loc, oldest
// first.
func LastDays(now time.Time, n int, loc *time.Location) []string {
	today := StartOfDay(now, loc)
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		labels[i] = today.AddDate(0, 0, i-n+1).Format(DayLayout)
	}
	return labels
}
