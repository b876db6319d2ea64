package scheduler

import (
	"log/slog"
	"strings"
	"time"
)

// NextFire returns the first instant at or after from whose wall-clock time
// in loc is hour:minute:00. If today's slot has already passed the slot of
// the following day is returned.
func NextFire(from time.Time, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := from.In(loc)
	y, m, d := local.Date()
	candidate := time.Date(y, m, d, hour, minute, 0, 0, loc)
	if candidate.Before(local) {
		candidate = time.Date(y, m, d+1, hour, minute, 0, 0, loc)
	}
	return candidate
}

// LoadLocation resolves an IANA timezone name, falling back to Local.
func LoadLocation(tz string, logger *slog.Logger) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		if logger != nil {
			logger.Warn("scheduler: invalid timezone, falling back to Local", slog.String("tz", tz), slog.String("error", err.Error()))
		}
		return time.Local
	}
	return loc
}
