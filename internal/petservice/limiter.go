package petservice

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// feedLimiter spaces manual feeds per pet. A nil limiter allows everything.
type feedLimiter struct {
	mu    sync.Mutex
	every rate.Limit
	burst int
	pets  map[int64]*rate.Limiter
}

func newFeedLimiter(interval time.Duration, burst int) *feedLimiter {
	if interval <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &feedLimiter{
		every: rate.Every(interval),
		burst: burst,
		pets:  make(map[int64]*rate.Limiter),
	}
}

func (l *feedLimiter) allow(petID int64) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.pets[petID]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.pets[petID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
