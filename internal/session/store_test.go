package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-box-office/internal/booking"
	"github.com/iliyamo/venue-box-office/internal/model"
	"github.com/iliyamo/venue-box-office/internal/pricing"
	"github.com/iliyamo/venue-box-office/internal/remote"
)

type fakeRemote struct {
	mu       sync.Mutex
	event    model.Event
	locks    map[string]string
	polls    int
	released []string
	// entered and gate, when set, hold CreateBooking open.
	entered chan struct{}
	gate    chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		locks: map[string]string{},
		event: model.Event{ID: "EV-0001", Title: "Spring Gala", Schedules: []model.Schedule{
			{ID: "SCH-OPEN", EventID: "EV-0001", Status: model.ScheduleOpen,
				RowPricing: []model.RowPricing{{RowFrom: "A", RowTo: "F", Price: 400}}},
			{ID: "SCH-CLOSED", EventID: "EV-0001", Status: model.ScheduleClosed},
		}},
	}
}

func (f *fakeRemote) GetEvent(_ context.Context, id string) (model.Event, error) {
	if id != f.event.ID {
		return model.Event{}, remote.ErrNotFound
	}
	return f.event, nil
}

func (f *fakeRemote) GetBookedSeats(context.Context, string, string) ([]string, error) {
	return nil, nil
}

func (f *fakeRemote) GetLockedSeats(context.Context, string, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	out := make([]string, 0, len(f.locks))
	for s := range f.locks {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeRemote) LockSeats(_ context.Context, _, _, holder string, seats []string) (remote.LockOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range seats {
		f.locks[s] = holder
	}
	return remote.LockOutcome{Locked: seats}, nil
}

func (f *fakeRemote) ReleaseLocks(_ context.Context, _, _ string, seats []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range seats {
		delete(f.locks, s)
		f.released = append(f.released, s)
	}
	return nil
}

func (f *fakeRemote) CreateBooking(context.Context, remote.BookingRequest) (string, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return "BK-0001", nil
}

func (f *fakeRemote) releasedSeats() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

func (f *fakeRemote) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func newStore(r *fakeRemote) *Store {
	return NewStore(r, nil, Config{
		PollInterval: 10 * time.Millisecond,
		IdleTimeout:  time.Minute,
		Fee:          pricing.DefaultFeePolicy,
	}, nil)
}

func TestCreate_StartsPolling(t *testing.T) {
	r := newFakeRemote()
	st := newStore(r)
	defer st.Shutdown(context.Background())

	s, err := st.Create(context.Background(), "EV-0001", "SCH-OPEN")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, booking.SelectingSeats, s.Booking.State())
	assert.Equal(t, s.ID, s.Seats.Holder())
	assert.Equal(t, 1, st.Len())

	assert.Eventually(t, func() bool { return r.pollCount() >= 3 }, 2*time.Second, 5*time.Millisecond)

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestCreate_RejectsUnknownOrClosedSchedule(t *testing.T) {
	st := newStore(newFakeRemote())
	ctx := context.Background()

	_, err := st.Create(ctx, "EV-0001", "SCH-NOPE")
	assert.ErrorIs(t, err, ErrScheduleNotFound)
	_, err = st.Create(ctx, "EV-0001", "SCH-CLOSED")
	assert.ErrorIs(t, err, booking.ErrScheduleClosed)
	_, err = st.Create(ctx, "EV-9999", "SCH-OPEN")
	assert.ErrorIs(t, err, remote.ErrNotFound)
	assert.Zero(t, st.Len())
}

func TestClose_ReleasesSeats(t *testing.T) {
	r := newFakeRemote()
	st := newStore(r)
	ctx := context.Background()
	s, err := st.Create(ctx, "EV-0001", "SCH-OPEN")
	require.NoError(t, err)
	_, err = s.Booking.SelectSeats(ctx, []string{"A1", "A2"})
	require.NoError(t, err)

	require.NoError(t, st.Close(ctx, s.ID))
	assert.ElementsMatch(t, []string{"A1", "A2"}, r.released)
	_, err = st.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, st.Close(ctx, s.ID), ErrSessionNotFound)
}

func TestClose_RefusedWhileSubmitting(t *testing.T) {
	r := newFakeRemote()
	r.entered, r.gate = make(chan struct{}, 1), make(chan struct{})
	st := newStore(r)
	defer st.Shutdown(context.Background())
	ctx := context.Background()

	s, err := st.Create(ctx, "EV-0001", "SCH-OPEN")
	require.NoError(t, err)
	_, err = s.Booking.SelectSeats(ctx, []string{"C4"})
	require.NoError(t, err)
	_, err = s.Booking.Proceed()
	require.NoError(t, err)
	require.NoError(t, s.Booking.AcceptTerms())
	require.NoError(t, s.Booking.SetDetails(model.Customer{Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210"}))

	done := make(chan error, 1)
	go func() {
		_, err := s.Booking.Submit(ctx)
		done <- err
	}()
	<-r.entered

	assert.ErrorIs(t, st.Close(ctx, s.ID), booking.ErrSubmitInFlight)
	assert.Empty(t, r.releasedSeats())
	_, err = st.Get(s.ID)
	require.NoError(t, err)

	close(r.gate)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("submit did not return")
	}
	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "BK-0001", got.Booking.Snapshot().BookingID)
}

func TestReap_ClosesIdleSessions(t *testing.T) {
	r := newFakeRemote()
	st := newStore(r)
	clock := time.Date(2026, 11, 2, 18, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }
	ctx := context.Background()

	idle, err := st.Create(ctx, "EV-0001", "SCH-OPEN")
	require.NoError(t, err)
	_, err = idle.Booking.SelectSeats(ctx, []string{"B1"})
	require.NoError(t, err)

	clock = clock.Add(45 * time.Second)
	active, err := st.Create(ctx, "EV-0001", "SCH-OPEN")
	require.NoError(t, err)

	clock = clock.Add(30 * time.Second)
	assert.Equal(t, 1, st.Reap(ctx))
	assert.Equal(t, []string{"B1"}, r.released)

	_, err = st.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = st.Get(active.ID)
	assert.NoError(t, err)

	st.Shutdown(ctx)
	assert.Zero(t, st.Len())
}
