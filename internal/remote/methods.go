package remote

import (
	"context"

	"github.com/iliyamo/venue-box-office/internal/model"
)

// ListEvents returns published events, optionally filtered by search text.
func (c *Client) ListEvents(ctx context.Context, search string) ([]model.Event, error) {
	var out []model.Event
	if err := c.call(ctx, methodListEvents, false, map[string]string{"search": search}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetEvent returns one event with its schedules.
func (c *Client) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	var out model.Event
	err := c.call(ctx, methodGetEvent, false, map[string]string{"event_id": eventID}, &out)
	return out, err
}

// GetBookedSeats returns the seats already converted into bookings.
func (c *Client) GetBookedSeats(ctx context.Context, eventID, scheduleID string) ([]string, error) {
	var out []string
	err := c.call(ctx, methodGetBookedSeats, false, map[string]string{
		"event_id":    eventID,
		"schedule_id": scheduleID,
	}, &out)
	return out, err
}

// GetLockedSeats returns the seats currently held by any client, the caller
// included.  The service treats the poll as a keep-alive for holder's own
// locks.
func (c *Client) GetLockedSeats(ctx context.Context, scheduleID, holder string) ([]string, error) {
	var out []string
	err := c.call(ctx, methodGetLockedSeats, false, map[string]string{
		"schedule_id": scheduleID,
		"holder":      holder,
	}, &out)
	return out, err
}

// LockOutcome reports, per seat, whether a lock was acquired.
type LockOutcome struct {
	Locked []string `json:"locked"`
	Failed []string `json:"failed"`
}

type lockRequest struct {
	EventID    string   `json:"event_id"`
	ScheduleID string   `json:"schedule_id"`
	Seats      []string `json:"seats"`
	Holder     string   `json:"holder"`
}

// LockSeats asks the service to hold the seats for holder.  Partial success
// is normal; seats the service did not acknowledge as locked are reported
// as failed even when the service omits them from its failed list.
func (c *Client) LockSeats(ctx context.Context, eventID, scheduleID, holder string, seats []string) (LockOutcome, error) {
	var out LockOutcome
	err := c.call(ctx, methodLockSeats, true, lockRequest{
		EventID:    eventID,
		ScheduleID: scheduleID,
		Seats:      seats,
		Holder:     holder,
	}, &out)
	if err != nil {
		return LockOutcome{}, err
	}
	locked := make(map[string]struct{}, len(out.Locked))
	for _, s := range out.Locked {
		locked[s] = struct{}{}
	}
	failed := make(map[string]struct{}, len(out.Failed))
	for _, s := range out.Failed {
		failed[s] = struct{}{}
	}
	for _, s := range seats {
		_, ok := locked[s]
		_, dup := failed[s]
		if !ok && !dup {
			out.Failed = append(out.Failed, s)
			failed[s] = struct{}{}
		}
	}
	return out, nil
}

type releaseRequest struct {
	ScheduleID string   `json:"schedule_id"`
	Seats      []string `json:"seats"`
	Holder     string   `json:"holder"`
}

// ReleaseLocks drops holder's locks on the seats.  The service's lock TTL
// cleans up when this call never arrives.
func (c *Client) ReleaseLocks(ctx context.Context, scheduleID, holder string, seats []string) error {
	var ack struct {
		Success bool `json:"success"`
	}
	if err := c.call(ctx, methodReleaseSeatLocks, true, releaseRequest{
		ScheduleID: scheduleID,
		Seats:      seats,
		Holder:     holder,
	}, &ack); err != nil {
		return err
	}
	if !ack.Success {
		return &Error{Op: methodReleaseSeatLocks, Err: ErrTransport, Msg: "release not acknowledged"}
	}
	return nil
}

// BookingRequest is the payload of create_booking.  ClientRef is unique per
// submission so the service can recognise a duplicate delivery.
type BookingRequest struct {
	EventID     string   `json:"event_id"`
	ScheduleID  string   `json:"schedule_id"`
	Holder      string   `json:"holder"`
	Name        string   `json:"customer_name"`
	Phone       string   `json:"phone"`
	Email       string   `json:"email"`
	Seats       []string `json:"seats"`
	TotalAmount int64    `json:"total_amount"`
	ClientRef   string   `json:"client_ref"`
}

type bookingResponse struct {
	Success       bool     `json:"success"`
	BookingID     string   `json:"booking_id"`
	Error         string   `json:"error"`
	ConflictSeats []string `json:"conflict_seats"`
}

// CreateBooking converts the holder's locks into a durable booking and
// returns its id.  Business rejections are returned as *Rejection.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (string, error) {
	var out bookingResponse
	if err := c.call(ctx, methodCreateBooking, true, req, &out); err != nil {
		return "", err
	}
	if !out.Success || out.BookingID == "" {
		return "", &Rejection{Message: out.Error, Seats: out.ConflictSeats}
	}
	return out.BookingID, nil
}

// GetBooking returns a booking record.
func (c *Client) GetBooking(ctx context.Context, bookingID string) (model.Booking, error) {
	var out model.Booking
	err := c.call(ctx, methodGetBooking, false, map[string]string{"booking_id": bookingID}, &out)
	return out, err
}

// CheckStaffAccess reports whether identity may use the entry scanner.
func (c *Client) CheckStaffAccess(ctx context.Context, identity string) (bool, error) {
	var allowed bool
	if err := c.call(ctx, methodCheckStaffAccess, false, map[string]string{"user": identity}, &allowed); err != nil {
		return false, err
	}
	return allowed, nil
}

// VerifyEntry forwards a scanned payload verbatim.  A denied ticket is a
// successful call whose result has Success false.
func (c *Client) VerifyEntry(ctx context.Context, identity, payload string) (model.VerificationResult, error) {
	var out model.VerificationResult
	err := c.call(ctx, methodVerifyEntry, true, map[string]string{
		"qr_data":     payload,
		"verified_by": identity,
	}, &out)
	return out, err
}
