package calendar

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	loc, _ := time.LoadLocation("Asia/Kolkata")
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, loc), true},
		{"01/03/2024", time.Date(2024, 3, 1, 0, 0, 0, 0, loc), true},
		{"2024-03-01T10:30:00Z", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), true},
		{"2024-03-01T10:30", time.Date(2024, 3, 1, 10, 30, 0, 0, loc), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in, loc)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, %v", tt.in, got, ok)
		}
	}
}

func TestDayKeyUsesZone(t *testing.T) {
	loc, _ := time.LoadLocation("Asia/Kolkata")
	// 20:00 UTC is already the next day in India
	ts := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	if got := DayKey(ts, loc); got != "2024-03-02" {
		t.Errorf("expected 2024-03-02, got %s", got)
	}
	if got := StartOfDay(ts, loc); !got.Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, loc)) {
		t.Errorf("unexpected start of day %v", got)
	}
}

func TestLastDays(t *testing.T) {
	now := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	got := LastDays(now, 3, time.UTC)
	want := []string{"2024-02-29", "2024-03-01", "2024-03-02"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("LastDays = %v, want %v", got, want)
		}
	}
}
