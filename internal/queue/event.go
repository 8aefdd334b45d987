// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedQueue is the durable queue confirmed bookings are
// published to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when the booking service accepted a
// booking submitted through the box office.  It contains enough
// information for downstream consumers to log, notify, or trigger
// analytics without calling the booking service again.
type BookingConfirmedEvent struct {
	BookingID    string   `json:"booking_id"`
	SessionID    string   `json:"session_id"`
	EventID      string   `json:"event_id"`
	EventTitle   string   `json:"event_title"`
	Venue        string   `json:"venue"`
	ScheduleID   string   `json:"schedule_id"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	CustomerName string   `json:"customer_name"`
	Email        string   `json:"email"`
	Seats        []string `json:"seats"`
	Subtotal     int64    `json:"subtotal"`
	FeeName      string   `json:"fee_name"`
	Fee          int64    `json:"fee"`
	TotalAmount  int64    `json:"total_amount"`
	ConfirmedAt  string   `json:"confirmed_at"`
}
