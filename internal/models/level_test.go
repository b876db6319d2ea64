package models

import (
	"testing"
	"time"
)

func TestLevelFor_Thresholds(t *testing.T) {
	cases := []struct {
		exp  int64
		want string
	}{
		{-5, "Nováčik"},
		{0, "Nováčik"},
		{1, "Nováčik"},
		{9, "Nováčik"},
		{10, "Zvedavec"},
		{29, "Prieskumník"},
		{30, "Mladý majster"},
		{59, "Dobrodruh"},
		{60, "Hľadač pokladov"},
		{80, "Mladý hrdina"},
		{119, "Majster kŕmenia"},
		{120, "Veterán"},
		{150, "Legendu zvieraťa"},
		{10000, "Legendu zvieraťa"},
	}
	for _, c := range cases {
		if got := LevelFor(c.exp); got != c.want {
			t.Errorf("LevelFor(%d) = %q, want %q", c.exp, got, c.want)
		}
	}
}

func TestLevelFor_Monotonic(t *testing.T) {
	rank := make(map[string]int, len(Levels))
	for i, l := range Levels {
		rank[l.Label] = i
	}
	prev := rank[LevelFor(0)]
	for e := int64(1); e <= 200; e++ {
		cur := rank[LevelFor(e)]
		if cur < prev {
			t.Fatalf("level decreased at experience %d", e)
		}
		prev = cur
	}
}

func TestNextLevel(t *testing.T) {
	label, remaining, ok := NextLevel(1)
	if !ok || label != "Zvedavec" || remaining != 9 {
		t.Errorf("NextLevel(1) = %q, %d, %v", label, remaining, ok)
	}
	if _, _, ok := NextLevel(150); ok {
		t.Error("top level should have no next level")
	}
}

func TestParsePeriod(t *testing.T) {
	for _, s := range []string{"day", "WEEK", " month ", "all"} {
		if _, err := ParsePeriod(s); err != nil {
			t.Errorf("ParsePeriod(%q): %v", s, err)
		}
	}
	if _, err := ParsePeriod("year"); err == nil {
		t.Error("expected error for unknown period")
	}
}

func TestPeriodSince(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if got := PeriodDay.Since(now); !got.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("day since = %v", got)
	}
	if got := PeriodMonth.Since(now); !got.Equal(now.AddDate(0, 0, -30)) {
		t.Errorf("month since = %v", got)
	}
	if got := PeriodAll.Since(now); !got.IsZero() {
		t.Errorf("all since = %v, want zero", got)
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("08:05")
	if err != nil || h != 8 || m != 5 {
		t.Fatalf("ParseClock = %d, %d, %v", h, m, err)
	}
	for _, bad := range []string{"24:00", "12:60", "8", "aa:bb", ""} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Errorf("ParseClock(%q) should fail", bad)
		}
	}
	if got := FormatClock(7, 3); got != "07:03" {
		t.Errorf("FormatClock = %q", got)
	}
}
