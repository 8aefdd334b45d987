// Package seatlock keeps one booking session's view of a schedule's seats
// coherent with the remote booking service while other clients lock and
// book the same inventory.  The service is the only arbiter of lock
// ownership; this package requests lock changes and re-derives its view
// from what the service reports.
package seatlock

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/venue-box-office/internal/logger"
	"github.com/iliyamo/venue-box-office/internal/remote"
)

// DefaultPollInterval bounds how stale the locked-by-others view may be.
const DefaultPollInterval = 10 * time.Second

// ErrNotLoaded is returned by Select before Load succeeded.
var ErrNotLoaded = errors.New("seat view not loaded")

// Remote is the subset of the booking service used for seat locks.
type Remote interface {
	GetBookedSeats(ctx context.Context, eventID, scheduleID string) ([]string, error)
	GetLockedSeats(ctx context.Context, scheduleID, holder string) ([]string, error)
	LockSeats(ctx context.Context, eventID, scheduleID, holder string, seats []string) (remote.LockOutcome, error)
	ReleaseLocks(ctx context.Context, scheduleID, holder string, seats []string) error
}

// LockResult reports what a selection change did.  Failed seats were
// requested but not locked and are not part of the selection.
type LockResult struct {
	Locked     []string `json:"locked"`
	Failed     []string `json:"failed"`
	Released   []string `json:"released"`
	ReleaseErr error    `json:"-"`
}

// Session tracks one holder's seats for one schedule.
type Session struct {
	remote     Remote
	eventID    string
	scheduleID string
	holder     string
	interval   time.Duration
	log        *zap.Logger
	now        func() time.Time

	// op serializes mutating operations so two selection changes never
	// interleave their network round trips.
	op sync.Mutex

	mu        sync.RWMutex
	loaded    bool
	booked    Set
	locked    Set
	order     []string // held seats in the order they were locked
	heldSince map[string]time.Time
	lastPoll  time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// NewSession returns an unloaded session for holder.
func NewSession(r Remote, eventID, scheduleID, holder string, opts ...Option) *Session {
	s := &Session{
		remote:     r,
		eventID:    eventID,
		scheduleID: scheduleID,
		holder:     holder,
		interval:   DefaultPollInterval,
		now:        time.Now,
		booked:     Set{},
		locked:     Set{},
		heldSince:  map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log).With(
		zap.String("schedule_id", scheduleID),
		zap.String("holder", holder),
	)
	return s
}

// EventID returns the event the session sells.
func (s *Session) EventID() string { return s.eventID }

// ScheduleID returns the schedule the session sells.
func (s *Session) ScheduleID() string { return s.scheduleID }

// Holder returns the lock holder identity.
func (s *Session) Holder() string { return s.holder }

// Load fetches the booked seats and a first locked-seat snapshot.  It is
// called on entry to seat selection and again after a booking conflict.
func (s *Session) Load(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	booked, err := s.remote.GetBookedSeats(ctx, s.eventID, s.scheduleID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.booked = NewSet(booked...)
	s.loaded = true
	// seats that became booked can no longer be ours
	s.dropHeldLocked(func(seat string) bool { return s.booked.Has(seat) })
	s.mu.Unlock()

	_, err = s.refresh(ctx)
	return err
}

// Refresh polls the locked seats once and returns held seats whose locks
// the service no longer reports.  Those seats are dropped from the
// selection.
func (s *Session) Refresh(ctx context.Context) ([]string, error) {
	return s.refresh(ctx)
}

func (s *Session) refresh(ctx context.Context) ([]string, error) {
	started := s.now()
	locked, err := s.remote.GetLockedSeats(ctx, s.scheduleID, s.holder)
	if err != nil {
		return nil, err
	}
	polled := NewSet(locked...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = polled
	s.lastPoll = started
	// A held seat missing from a poll that started after we locked it has
	// expired server-side.
	return s.dropHeldLocked(func(seat string) bool {
		return !polled.Has(seat) && s.heldSince[seat].Before(started)
	}), nil
}

// dropHeldLocked removes held seats matching pred.  Callers hold mu.
func (s *Session) dropHeldLocked(pred func(seat string) bool) []string {
	var dropped []string
	kept := s.order[:0]
	for _, seat := range s.order {
		if pred(seat) {
			dropped = append(dropped, seat)
			delete(s.heldSince, seat)
			continue
		}
		kept = append(kept, seat)
	}
	s.order = kept
	if len(dropped) > 0 {
		s.log.Info("held seats lost", zap.Strings("seats", dropped))
	}
	return dropped
}

// Run polls the locked seats every interval until ctx is done.  A failed
// poll keeps the previous snapshot; cross-client visibility is therefore
// stale by at most one interval plus the failed polls.
func (s *Session) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.refresh(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("locked seat poll failed", zap.Error(err))
			}
		}
	}
}

// Select makes seats the session's selection.  Newly added seats are
// locked, seats no longer wanted are released, and seats already held are
// left alone.  Seats the service refused, or that are already booked, are
// reported as failed and left out of the selection.  Nothing is retried.
func (s *Session) Select(ctx context.Context, seats []string) (LockResult, error) {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.RLock()
	loaded := s.loaded
	mine := NewSet(s.order...)
	booked := s.booked.clone()
	s.mu.RUnlock()
	if !loaded {
		return LockResult{}, ErrNotLoaded
	}

	desired := dedupe(seats)
	want := NewSet(desired...)

	var res LockResult
	for _, seat := range s.Selection() {
		if !want.Has(seat) {
			res.Released = append(res.Released, seat)
		}
	}
	var toLock []string
	for _, seat := range desired {
		switch {
		case mine.Has(seat):
		case booked.Has(seat):
			res.Failed = append(res.Failed, seat)
		default:
			toLock = append(toLock, seat)
		}
	}

	if len(res.Released) > 0 {
		res.ReleaseErr = s.release(ctx, res.Released)
	}
	if len(toLock) == 0 {
		return res, nil
	}

	out, err := s.remote.LockSeats(ctx, s.eventID, s.scheduleID, s.holder, toLock)
	if err != nil {
		res.Failed = append(res.Failed, toLock...)
		return res, err
	}
	acked := NewSet(out.Locked...)
	now := s.now()
	s.mu.Lock()
	for _, seat := range toLock {
		if !acked.Has(seat) {
			res.Failed = append(res.Failed, seat)
			continue
		}
		res.Locked = append(res.Locked, seat)
		s.order = append(s.order, seat)
		s.heldSince[seat] = now
		s.locked[seat] = struct{}{}
	}
	s.mu.Unlock()
	if len(res.Failed) > 0 {
		s.log.Info("seats could not be locked", zap.Strings("seats", res.Failed))
	}
	return res, nil
}

// Toggle adds seat to the selection, or removes it when already held.
func (s *Session) Toggle(ctx context.Context, seat string) (LockResult, error) {
	seat = Normalize(seat)
	cur := s.Selection()
	next := make([]string, 0, len(cur)+1)
	found := false
	for _, held := range cur {
		if held == seat {
			found = true
			continue
		}
		next = append(next, held)
	}
	if !found {
		next = append(next, seat)
	}
	return s.Select(ctx, next)
}

// Release gives up the given held seats.  The seats leave the selection
// whatever the outcome; a failed release is logged and returned but the
// service's lock TTL reclaims the seats regardless.
func (s *Session) Release(ctx context.Context, seats []string) error {
	s.op.Lock()
	defer s.op.Unlock()
	return s.release(ctx, dedupe(seats))
}

// ReleaseAll releases every held seat.
func (s *Session) ReleaseAll(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()
	return s.release(ctx, s.Selection())
}

func (s *Session) release(ctx context.Context, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	drop := NewSet(seats...)
	s.mu.Lock()
	s.dropHeldLocked(drop.Has)
	s.mu.Unlock()

	if err := s.remote.ReleaseLocks(ctx, s.scheduleID, s.holder, seats); err != nil {
		s.log.Warn("seat release failed", zap.Strings("seats", seats), zap.Error(err))
		return err
	}
	s.mu.Lock()
	for seat := range drop {
		delete(s.locked, seat)
	}
	s.mu.Unlock()
	return nil
}

// Forget drops seats from the selection without contacting the service.
// It is used when the service reported the seats as taken, so they are no
// longer ours to release.
func (s *Session) Forget(seats []string) {
	drop := NewSet(seats...)
	s.mu.Lock()
	s.dropHeldLocked(drop.Has)
	s.mu.Unlock()
}

// Selection returns the held seats in the order they were locked.
func (s *Session) Selection() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// View returns a snapshot of the seat sets.
func (s *Session) View() Availability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Availability{
		Booked: s.booked.clone(),
		Locked: s.locked.clone(),
		Mine:   NewSet(s.order...),
	}
}

// LastPoll returns when the most recent successful poll started.
func (s *Session) LastPoll() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPoll
}

func dedupe(seats []string) []string {
	out := make([]string, 0, len(seats))
	seen := make(map[string]struct{}, len(seats))
	for _, seat := range seats {
		n := Normalize(seat)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
