package scheduler

import (
	"testing"
	"time"
)

func TestNextFire(t *testing.T) {
	utc := time.UTC
	tests := []struct {
		name         string
		from         time.Time
		hour, minute int
		want         time.Time
	}{
		{"later today", time.Date(2024, 1, 1, 7, 59, 0, 0, utc), 8, 0, time.Date(2024, 1, 1, 8, 0, 0, 0, utc)},
		{"exactly now", time.Date(2024, 1, 1, 8, 0, 0, 0, utc), 8, 0, time.Date(2024, 1, 1, 8, 0, 0, 0, utc)},
		{"just passed", time.Date(2024, 1, 1, 8, 0, 1, 0, utc), 8, 0, time.Date(2024, 1, 2, 8, 0, 0, 0, utc)},
		{"midnight", time.Date(2024, 1, 1, 23, 59, 0, 0, utc), 0, 0, time.Date(2024, 1, 2, 0, 0, 0, 0, utc)},
		{"month rollover", time.Date(2024, 1, 31, 9, 0, 0, 0, utc), 8, 0, time.Date(2024, 2, 1, 8, 0, 0, 0, utc)},
		{"year rollover", time.Date(2024, 12, 31, 22, 0, 0, 0, utc), 21, 15, time.Date(2025, 1, 1, 21, 15, 0, 0, utc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextFire(tt.from, tt.hour, tt.minute, utc)
			if !got.Equal(tt.want) {
				t.Errorf("NextFire = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextFire_LocalWallClock(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Bratislava")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2024-03-31 is the spring DST change; 08:00 local is 06:00 UTC.
	from := time.Date(2024, 3, 30, 9, 0, 0, 0, loc)
	got := NextFire(from, 8, 0, loc)
	want := time.Date(2024, 3, 31, 6, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextFire = %v, want %v", got.UTC(), want)
	}
}

func TestLoadLocation_Fallback(t *testing.T) {
	if got := LoadLocation("", nil); got != time.Local {
		t.Errorf("empty tz = %v, want Local", got)
	}
	if got := LoadLocation("Not/AZone", nil); got != time.Local {
		t.Errorf("invalid tz = %v, want Local", got)
	}
}
