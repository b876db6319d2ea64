// Package scheduler fires daily feeding triggers at their wall-clock minute.
//
// Every trigger owns one one-shot timer. When it fires the pet is fed and
// the timer is armed again for the same time on the following day. A
// generation counter per arming discards callbacks of timers that were
// replaced or disarmed in the meantime.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/starford/petfeeder/internal/apperr"
	"github.com/starford/petfeeder/internal/models"
)

// State of an armed trigger.
type State string

const (
	StateArmed  State = "armed"
	StateFiring State = "firing"
)

// ErrStopped is returned when arming after Stop.
var ErrStopped = errors.New("scheduler stopped")

// Registry is the source of truth for which triggers exist.
type Registry interface {
	All(ctx context.Context) ([]models.Trigger, error)
	Get(ctx context.Context, id int64) (*models.Trigger, error)
}

// Dispenser feeds a pet once.
type Dispenser interface {
	Dispense(ctx context.Context, petID int64, source string) (*models.Pet, *models.FeedRecord, error)
}

// Armed describes one armed trigger.
type Armed struct {
	TriggerID int64     `json:"trigger_id"`
	PetID     int64     `json:"pet_id"`
	Hour      int       `json:"hour"`
	Minute    int       `json:"minute"`
	State     State     `json:"state"`
	Next      time.Time `json:"next"`
}

type entry struct {
	trigger models.Trigger
	gen     uint64
	timer   clockwork.Timer
	next    time.Time
	state   State
}

// Scheduler keeps one timer per registered trigger.
type Scheduler struct {
	reg   Registry
	disp  Dispenser
	clock clockwork.Clock
	loc   *time.Location
	log   *slog.Logger

	mu      sync.Mutex
	entries map[int64]*entry
	gen     uint64
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler. A nil clock means the real wall clock and a nil
// location means Local.
func New(reg Registry, disp Dispenser, clock clockwork.Clock, loc *time.Location, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		reg:     reg,
		disp:    disp,
		clock:   clock,
		loc:     loc,
		log:     logger,
		entries: make(map[int64]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start arms every trigger currently in the registry.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Sync(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	n := len(s.entries)
	s.mu.Unlock()
	s.log.Info("scheduler started", slog.Int("triggers", n), slog.String("tz", s.loc.String()))
	return nil
}

// Sync reconciles the armed set with the registry: new triggers are armed,
// triggers no longer registered are disarmed, unchanged ones keep their timer.
func (s *Scheduler) Sync(ctx context.Context) error {
	triggers, err := s.reg.All(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: load triggers: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}

	seen := make(map[int64]struct{}, len(triggers))
	for _, t := range triggers {
		seen[t.ID] = struct{}{}
		if e, ok := s.entries[t.ID]; ok && e.trigger.PetID == t.PetID && e.trigger.Hour == t.Hour && e.trigger.Minute == t.Minute {
			continue
		}
		s.armLocked(t, s.clock.Now())
	}
	for id := range s.entries {
		if _, ok := seen[id]; !ok {
			s.disarmLocked(id)
		}
	}
	return nil
}

// Arm (re)arms a trigger for its next occurrence.
func (s *Scheduler) Arm(t models.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.armLocked(t, s.clock.Now())
	return nil
}

// Disarm stops the trigger's timer. Once it returns the timer cannot fire;
// a firing that already started is allowed to finish but will not re-arm.
func (s *Scheduler) Disarm(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disarmLocked(id)
}

func (s *Scheduler) armLocked(t models.Trigger, from time.Time) {
	if e, ok := s.entries[t.ID]; ok {
		e.timer.Stop()
	}
	s.gen++
	gen := s.gen
	next := NextFire(from, t.Hour, t.Minute, s.loc)
	delay := next.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	id := t.ID
	timer := s.clock.AfterFunc(delay, func() { s.fire(id, gen, next) })
	s.entries[t.ID] = &entry{trigger: t, gen: gen, timer: timer, next: next, state: StateArmed}

	s.log.Debug("scheduler: trigger armed",
		slog.Int64("trigger_id", t.ID),
		slog.Int64("pet_id", t.PetID),
		slog.String("at", t.Clock()),
		slog.Time("next", next))
}

func (s *Scheduler) disarmLocked(id int64) bool {
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.entries, id)
	s.log.Debug("scheduler: trigger disarmed", slog.Int64("trigger_id", id))
	return true
}

// currentLocked returns the entry for id if it still belongs to gen.
func (s *Scheduler) currentLocked(id int64, gen uint64) (*entry, bool) {
	e, ok := s.entries[id]
	if !ok || e.gen != gen || s.stopped {
		return nil, false
	}
	return e, true
}

func (s *Scheduler) fire(id int64, gen uint64, at time.Time) {
	s.mu.Lock()
	e, ok := s.currentLocked(id, gen)
	if !ok {
		s.mu.Unlock()
		return
	}
	e.state = StateFiring
	trigger := e.trigger
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	// Another process may have deleted the trigger since it was armed.
	if s.removed(ctx, id, gen) {
		s.log.Info("scheduler: trigger no longer registered, not feeding", slog.Int64("trigger_id", id))
		return
	}

	_, _, err := s.disp.Dispense(ctx, trigger.PetID, models.SourceSchedule)
	if err != nil {
		s.log.Warn("scheduler: feeding failed, re-arming for next day",
			slog.Int64("trigger_id", id),
			slog.Int64("pet_id", trigger.PetID),
			slog.String("at", trigger.Clock()),
			slog.String("error", err.Error()))
	}

	// The trigger may have been removed while the pet was being fed.
	if s.removed(ctx, id, gen) {
		s.log.Info("scheduler: trigger removed during firing, not re-arming", slog.Int64("trigger_id", id))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.currentLocked(id, gen); !ok {
		return
	}
	from := at.Add(time.Minute)
	if now := s.clock.Now(); now.After(from) {
		from = now
	}
	s.armLocked(trigger, from)
}

// removed reports whether the trigger is gone from the registry, disarming
// it if so. A failed lookup counts as still registered.
func (s *Scheduler) removed(ctx context.Context, id int64, gen uint64) bool {
	_, err := s.reg.Get(ctx, id)
	if err == nil {
		return false
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		s.log.Warn("scheduler: registry check failed",
			slog.Int64("trigger_id", id),
			slog.String("error", err.Error()))
		return false
	}
	s.mu.Lock()
	if _, ok := s.currentLocked(id, gen); ok {
		s.disarmLocked(id)
	}
	s.mu.Unlock()
	return true
}

// Snapshot returns the armed triggers ordered by next fire time.
func (s *Scheduler) Snapshot() []Armed {
	s.mu.Lock()
	out := make([]Armed, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, Armed{
			TriggerID: e.trigger.ID,
			PetID:     e.trigger.PetID,
			Hour:      e.trigger.Hour,
			Minute:    e.trigger.Minute,
			State:     e.state,
			Next:      e.next,
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Next.Equal(out[j].Next) {
			return out[i].TriggerID < out[j].TriggerID
		}
		return out[i].Next.Before(out[j].Next)
	})
	return out
}

// Next returns the next fire instant of an armed trigger.
func (s *Scheduler) Next(id int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return time.Time{}, false
	}
	return e.next, true
}

// Stop disarms every trigger and waits for in-flight firings to finish or
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	for id := range s.entries {
		s.disarmLocked(id)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	defer s.cancel()

	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
