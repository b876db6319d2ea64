package models

import (
	"fmt"
	"strings"
	"time"
)

// Period selects the trailing window used by feed statistics.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod accepts day, week, month and all (case-insensitive).
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Window returns the trailing duration, or 0 for PeriodAll.
func (p Period) Window() time.Duration {
	switch p {
	case PeriodDay:
		return 24 * time.Hour
	case PeriodWeek:
		return 7 * 24 * time.Hour
	case PeriodMonth:
		return 30 * 24 * time.Hour
	}
	return 0
}

// Since returns the lower bound of the window ending at now. The zero time
// means unbounded.
func (p Period) Since(now time.Time) time.Time {
	w := p.Window()
	if w == 0 {
		return time.Time{}
	}
	return now.Add(-w)
}
