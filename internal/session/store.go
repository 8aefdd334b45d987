// Package session keeps the booking sessions of connected customers and
// reaps the ones that went idle.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/venue-box-office/internal/booking"
	"github.com/iliyamo/venue-box-office/internal/model"
	"github.com/iliyamo/venue-box-office/internal/pricing"
	"github.com/iliyamo/venue-box-office/internal/seatlock"
)

var (
	ErrSessionNotFound  = errors.New("booking session not found")
	ErrScheduleNotFound = errors.New("schedule not found for event")
)

// Remote is everything a booking session needs from the booking service.
type Remote interface {
	seatlock.Remote
	booking.Booker
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
}

type Config struct {
	PollInterval time.Duration
	IdleTimeout  time.Duration
	ReapInterval time.Duration
	Fee          pricing.FeePolicy
}

// Session is one customer's booking flow for one schedule.
type Session struct {
	ID      string
	Booking *booking.Orchestrator
	Seats   *seatlock.Session

	cancel   context.CancelFunc
	lastSeen atomic.Int64
}

func (s *Session) touch(t time.Time) { s.lastSeen.Store(t.UnixNano()) }

// LastSeen is the last time the session was used.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

type Store struct {
	remote Remote
	notify booking.Notifier
	cfg    Config
	log    *zap.Logger
	now    func() time.Time
	newID  func() string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore builds an empty store.  notify may be nil.
func NewStore(r Remote, notify booking.Notifier, cfg Config, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = seatlock.DefaultPollInterval
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = time.Minute
	}
	return &Store{
		remote:   r,
		notify:   notify,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
		sessions: map[string]*Session{},
	}
}

// Create opens a booking session for a schedule, loads its seat view and
// starts polling locks in the background.
func (st *Store) Create(ctx context.Context, eventID, scheduleID string) (*Session, error) {
	ev, err := st.remote.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	sched, ok := ev.Schedule(scheduleID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, scheduleID)
	}
	if !sched.IsOpen() {
		return nil, booking.ErrScheduleClosed
	}
	if err := pricing.ValidateRanges(sched.RowPricing); err != nil {
		st.log.Warn("schedule pricing is inconsistent",
			zap.String("schedule_id", sched.ID), zap.Error(err))
	}

	id := st.newID()
	log := st.log.With(zap.String("session_id", id), zap.String("schedule_id", sched.ID))
	seats := seatlock.NewSession(st.remote, ev.ID, sched.ID, id,
		seatlock.WithPollInterval(st.cfg.PollInterval),
		seatlock.WithLogger(log))
	if err := seats.Load(ctx); err != nil {
		return nil, err
	}

	opts := []booking.Option{booking.WithLogger(log)}
	if st.notify != nil {
		opts = append(opts, booking.WithNotifier(st.notify))
	}
	pollCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:      id,
		Booking: booking.New(seats, st.remote, ev, sched, st.cfg.Fee, opts...),
		Seats:   seats,
		cancel:  cancel,
	}
	s.touch(st.now())
	go seats.Run(pollCtx)

	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()
	log.Info("booking session opened")
	return s, nil
}

// Get returns a live session and marks it as used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(st.now())
	return s, nil
}

// Close ends a session, releasing its seats.  A session with a booking
// submission outstanding stays open and Close returns
// booking.ErrSubmitInFlight.
func (st *Store) Close(ctx context.Context, id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	err := s.Booking.Abandon(ctx)
	if errors.Is(err, booking.ErrSubmitInFlight) {
		return err
	}
	if err != nil {
		st.log.Warn("release seats on close failed", zap.String("session_id", s.ID), zap.Error(err))
	}
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
	s.cancel()
	return err
}

func (st *Store) end(ctx context.Context, s *Session) error {
	s.cancel()
	err := s.Booking.Abandon(ctx)
	if err != nil {
		st.log.Warn("release seats on close failed", zap.String("session_id", s.ID), zap.Error(err))
	}
	return err
}

// Reap closes sessions idle for longer than the idle timeout and returns
// how many were closed.  Lock release is best-effort; the booking service
// expires locks on its own.
func (st *Store) Reap(ctx context.Context) int {
	cutoff := st.now().Add(-st.cfg.IdleTimeout)
	var idle []*Session
	st.mu.Lock()
	for id, s := range st.sessions {
		if s.LastSeen().Before(cutoff) && s.Booking.State() != booking.Submitting {
			idle = append(idle, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range idle {
		_ = st.end(ctx, s)
	}
	if len(idle) > 0 {
		st.log.Info("reaped idle booking sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// RunReaper reaps idle sessions until ctx is cancelled.
func (st *Store) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(st.cfg.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Reap(ctx)
		}
	}
}

// Shutdown closes every session.
func (st *Store) Shutdown(ctx context.Context) {
	st.mu.Lock()
	all := make([]*Session, 0, len(st.sessions))
	for id, s := range st.sessions {
		all = append(all, s)
		delete(st.sessions, id)
	}
	st.mu.Unlock()
	for _, s := range all {
		_ = st.end(ctx, s)
	}
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
