package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-box-office/internal/model"
	"github.com/iliyamo/venue-box-office/internal/remote"
	"github.com/iliyamo/venue-box-office/internal/repository"
)

const testSecret = "handler-test-secret"

// fakeService stands in for the remote booking service.
type fakeService struct {
	mu       sync.Mutex
	event    model.Event
	locks    map[string]string
	taken    map[string]bool
	bookings map[string]model.Booking
	requests []remote.BookingRequest
	staff    map[string]bool
	verify   model.VerificationResult
	checks   int
}

func newFakeService() *fakeService {
	return &fakeService{
		event: model.Event{ID: "EV-0001", Title: "Spring Gala", Venue: "Main Hall", Schedules: []model.Schedule{
			{ID: "SCH-OPEN", EventID: "EV-0001", Date: "2026-11-20", Time: "19:30", Status: model.ScheduleOpen,
				RowPricing: []model.RowPricing{{RowFrom: "A", RowTo: "C", Price: 500}, {RowFrom: "D", RowTo: "F", Price: 300}}},
			{ID: "SCH-CLOSED", EventID: "EV-0001", Status: model.ScheduleClosed},
		}},
		locks:    map[string]string{},
		taken:    map[string]bool{},
		bookings: map[string]model.Booking{},
		staff:    map[string]bool{},
	}
}

func (f *fakeService) ListEvents(_ context.Context, search string) ([]model.Event, error) {
	if search != "" && !strings.Contains(strings.ToLower(f.event.Title), strings.ToLower(search)) {
		return nil, nil
	}
	return []model.Event{f.event}, nil
}

func (f *fakeService) GetEvent(_ context.Context, id string) (model.Event, error) {
	if id != f.event.ID {
		return model.Event{}, remote.ErrNotFound
	}
	return f.event, nil
}

func (f *fakeService) GetBookedSeats(context.Context, string, string) ([]string, error) {
	return nil, nil
}

func (f *fakeService) GetLockedSeats(context.Context, string, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.locks))
	for s := range f.locks {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeService) LockSeats(_ context.Context, _, _, holder string, seats []string) (remote.LockOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out remote.LockOutcome
	for _, s := range seats {
		if f.taken[s] {
			out.Failed = append(out.Failed, s)
			continue
		}
		f.locks[s] = holder
		out.Locked = append(out.Locked, s)
	}
	return out, nil
}

func (f *fakeService) ReleaseLocks(_ context.Context, _, _ string, seats []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range seats {
		delete(f.locks, s)
	}
	return nil
}

func (f *fakeService) CreateBooking(_ context.Context, req remote.BookingRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	id := "BK-0001"
	f.bookings[id] = model.Booking{ID: id, EventID: req.EventID, ScheduleID: req.ScheduleID, Seats: req.Seats}
	return id, nil
}

func (f *fakeService) GetBooking(_ context.Context, id string) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return model.Booking{}, remote.ErrNotFound
	}
	return b, nil
}

func (f *fakeService) CheckStaffAccess(_ context.Context, identity string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	return f.staff[identity], nil
}

func (f *fakeService) VerifyEntry(context.Context, string, string) (model.VerificationResult, error) {
	return f.verify, nil
}

// fakeUsers and fakeTokens back AuthHandler.
type fakeUsers struct {
	byID map[uint64]model.User
}

func (u *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, usr := range u.byID {
		if usr.Email == email {
			return usr, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (u *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	usr, ok := u.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return usr, nil
}

type fakeTokens struct {
	mu      sync.Mutex
	live    map[string]uint64
	revoked []uint64
}

func newFakeTokens() *fakeTokens { return &fakeTokens{live: map[string]uint64{}} }

func (t *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live[hash] = userID
	return nil
}

func (t *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.live[hash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

func (t *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.live, hash)
	return nil
}

func (t *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for h, id := range t.live {
		if id == userID {
			delete(t.live, h)
		}
	}
	t.revoked = append(t.revoked, userID)
	return nil
}

func doJSON(t *testing.T, e *echo.Echo, method, target, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
