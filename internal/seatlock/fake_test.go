package seatlock

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/venue-box-office/internal/remote"
)

// fakeService is an in-memory booking service enforcing one holder per
// seat.
type fakeService struct {
	mu      sync.Mutex
	booked  map[string]bool
	locks   map[string]string // seat -> holder
	lockErr error
	pollErr error
	relErr  error

	lockCalls    [][]string
	releaseCalls [][]string
}

func newFakeService(booked ...string) *fakeService {
	f := &fakeService{booked: map[string]bool{}, locks: map[string]string{}}
	for _, b := range booked {
		f.booked[b] = true
	}
	return f
}

func (f *fakeService) GetBookedSeats(_ context.Context, _, _ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.booked))
	for s := range f.booked {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeService) GetLockedSeats(_ context.Context, _, _ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	out := make([]string, 0, len(f.locks))
	for s := range f.locks {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeService) LockSeats(_ context.Context, _, _, holder string, seats []string) (remote.LockOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockCalls = append(f.lockCalls, append([]string(nil), seats...))
	if f.lockErr != nil {
		return remote.LockOutcome{}, f.lockErr
	}
	var out remote.LockOutcome
	for _, s := range seats {
		if f.booked[s] {
			out.Failed = append(out.Failed, s)
			continue
		}
		if h, ok := f.locks[s]; ok && h != holder {
			out.Failed = append(out.Failed, s)
			continue
		}
		f.locks[s] = holder
		out.Locked = append(out.Locked, s)
	}
	return out, nil
}

func (f *fakeService) ReleaseLocks(_ context.Context, _, holder string, seats []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls = append(f.releaseCalls, append([]string(nil), seats...))
	if f.relErr != nil {
		return f.relErr
	}
	for _, s := range seats {
		if f.locks[s] == holder {
			delete(f.locks, s)
		}
	}
	return nil
}

// expire drops a lock as if its TTL elapsed.
func (f *fakeService) expire(seat string) {
	f.mu.Lock()
	delete(f.locks, seat)
	f.mu.Unlock()
}
