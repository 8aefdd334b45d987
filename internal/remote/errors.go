package remote

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport covers every call that failed outright: network errors,
	// timeouts, 5xx responses and bodies that cannot be decoded.  Callers
	// surface it as a transient "could not complete request" error.
	ErrTransport = errors.New("could not complete request")
	// ErrUnauthorized is returned for 401/403 responses that are not CSRF
	// rejections.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrBookingRejected is returned when the booking service declines to
	// create a booking.
	ErrBookingRejected = errors.New("booking rejected")
	// ErrSeatsUnavailable marks a rejection caused by seats that were taken
	// between lock and submission.
	ErrSeatsUnavailable = errors.New("seats no longer available")
)

// Error describes a failed call to the booking service.
type Error struct {
	Op     string // RPC method name
	Status int    // HTTP status, 0 when no response was received
	Msg    string // server supplied message, if any
	Err    error  // one of the sentinel errors above
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Rejection is a business failure reported by create_booking.  Seats lists
// the seats the service reported as taken, if any.
type Rejection struct {
	Message string
	Seats   []string
}

func (r *Rejection) Error() string {
	if len(r.Seats) > 0 {
		return fmt.Sprintf("booking rejected: seats %s no longer available", strings.Join(r.Seats, ", "))
	}
	if r.Message != "" {
		return "booking rejected: " + r.Message
	}
	return "booking rejected"
}

// Is lets errors.Is match ErrBookingRejected always and ErrSeatsUnavailable
// when the rejection names seats.
func (r *Rejection) Is(target error) bool {
	switch target {
	case ErrBookingRejected:
		return true
	case ErrSeatsUnavailable:
		return len(r.Seats) > 0
	}
	return false
}
