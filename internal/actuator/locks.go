package actuator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/semaphore"
)

// flockRetry is how often a held channel lock file is polled.
const flockRetry = 10 * time.Millisecond

// ChannelLocks is a channel-keyed lock table. A physical signal line can
// only hold one position at a time, so every actuation on a channel takes
// that channel's lock first.
//
// With a lock directory set, each channel lock is also held as an OS file
// lock in that directory, so processes sharing the directory (the daemon
// and the MCP server) serialise on the same channel too.
type ChannelLocks struct {
	dir   string
	mu    sync.Mutex
	locks map[int]*channelLock
}

type channelLock struct {
	sem  *semaphore.Weighted
	file *flock.Flock
}

// NewChannelLocks creates an empty lock table. An empty dir keeps the locks
// in-process only.
func NewChannelLocks(dir string) *ChannelLocks {
	return &ChannelLocks{dir: dir, locks: make(map[int]*channelLock)}
}

// lockPath returns the lock file used for channel, or "" without a lock dir.
func (l *ChannelLocks) lockPath(channel int) string {
	if l.dir == "" {
		return ""
	}
	return filepath.Join(l.dir, fmt.Sprintf("servo-ch%d.lock", channel))
}

func (l *ChannelLocks) get(channel int) *channelLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	cl, ok := l.locks[channel]
	if !ok {
		cl = &channelLock{sem: semaphore.NewWeighted(1)}
		if path := l.lockPath(channel); path != "" {
			cl.file = flock.New(path)
		}
		l.locks[channel] = cl
	}
	return cl
}

// Acquire blocks until the channel is free or ctx is done. The returned
// func releases the lock.
func (l *ChannelLocks) Acquire(ctx context.Context, channel int) (func(), error) {
	cl := l.get(channel)
	if err := cl.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if cl.file == nil {
		return func() { cl.sem.Release(1) }, nil
	}

	locked, err := cl.file.TryLockContext(ctx, flockRetry)
	if err == nil && !locked {
		err = ctx.Err()
	}
	if err != nil {
		cl.sem.Release(1)
		return nil, fmt.Errorf("lock %s: %w", cl.file.Path(), err)
	}
	return cl.release, nil
}

// TryAcquire takes the channel lock only if it is free right now.
func (l *ChannelLocks) TryAcquire(channel int) (func(), bool) {
	cl := l.get(channel)
	if !cl.sem.TryAcquire(1) {
		return nil, false
	}
	if cl.file == nil {
		return func() { cl.sem.Release(1) }, true
	}
	if locked, err := cl.file.TryLock(); err != nil || !locked {
		cl.sem.Release(1)
		return nil, false
	}
	return cl.release, true
}

func (cl *channelLock) release() {
	_ = cl.file.Unlock()
	cl.sem.Release(1)
}
