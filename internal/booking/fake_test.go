package booking

import (
	"context"
	"sync"

	"github.com/iliyamo/venue-box-office/internal/model"
	"github.com/iliyamo/venue-box-office/internal/queue"
	"github.com/iliyamo/venue-box-office/internal/remote"
	"github.com/iliyamo/venue-box-office/internal/seatlock"
)

var (
	testEvent = model.Event{ID: "EV-0001", Title: "Spring Gala", Venue: "Main Hall"}
	testShow  = model.Schedule{
		ID:      "SCH-0001",
		EventID: "EV-0001",
		Date:    "2026-11-02",
		Time:    "19:30:00",
		Status:  model.ScheduleOpen,
		RowPricing: []model.RowPricing{
			{RowFrom: "A", RowTo: "C", Price: 500},
			{RowFrom: "D", RowTo: "F", Price: 300},
		},
	}
)

// fakeSeats holds whatever it is asked to, except seats marked taken.
type fakeSeats struct {
	mu       sync.Mutex
	held     []string
	taken    map[string]bool
	loads    int
	released int
}

func newFakeSeats(taken ...string) *fakeSeats {
	f := &fakeSeats{taken: map[string]bool{}}
	for _, s := range taken {
		f.taken[s] = true
	}
	return f
}

func (f *fakeSeats) Load(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return nil
}

func (f *fakeSeats) Select(_ context.Context, seats []string) (seatlock.LockResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res seatlock.LockResult
	f.held = f.held[:0]
	for _, s := range seats {
		if f.taken[s] {
			res.Failed = append(res.Failed, s)
			continue
		}
		f.held = append(f.held, s)
		res.Locked = append(res.Locked, s)
	}
	return res, nil
}

func (f *fakeSeats) Toggle(ctx context.Context, seat string) (seatlock.LockResult, error) {
	next := f.Selection()
	for i, s := range next {
		if s == seat {
			return f.Select(ctx, append(next[:i], next[i+1:]...))
		}
	}
	return f.Select(ctx, append(next, seat))
}

func (f *fakeSeats) ReleaseAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	f.held = nil
	return nil
}

func (f *fakeSeats) Forget(seats []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := seatlock.NewSet(seats...)
	kept := f.held[:0]
	for _, s := range f.held {
		if !drop.Has(s) {
			kept = append(kept, s)
		}
	}
	f.held = kept
	for _, s := range seats {
		f.taken[s] = true
	}
}

func (f *fakeSeats) Selection() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.held...)
}

func (f *fakeSeats) View() seatlock.Availability {
	f.mu.Lock()
	defer f.mu.Unlock()
	taken := make([]string, 0, len(f.taken))
	for s := range f.taken {
		taken = append(taken, s)
	}
	return seatlock.Availability{
		Booked: seatlock.NewSet(taken...),
		Locked: seatlock.NewSet(f.held...),
		Mine:   seatlock.NewSet(f.held...),
	}
}

func (f *fakeSeats) Holder() string { return "sess-1" }

// fakeBooker records every create call.  When gate is set each call blocks
// until the gate is closed; entered receives a value as a call starts.
type fakeBooker struct {
	mu      sync.Mutex
	calls   []remote.BookingRequest
	err     error
	id      string
	entered chan struct{}
	gate    chan struct{}
	onCall  func()
}

func (b *fakeBooker) CreateBooking(_ context.Context, req remote.BookingRequest) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, req)
	err, id, onCall := b.err, b.id, b.onCall
	b.mu.Unlock()
	if onCall != nil {
		onCall()
	}
	if b.entered != nil {
		b.entered <- struct{}{}
	}
	if b.gate != nil {
		<-b.gate
	}
	if err != nil {
		return "", err
	}
	if id == "" {
		id = "BK-0001"
	}
	return id, nil
}

func (b *fakeBooker) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
	err    error
}

func (n *fakeNotifier) PublishBookingConfirmed(_ context.Context, evt queue.BookingConfirmedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return n.err
}
