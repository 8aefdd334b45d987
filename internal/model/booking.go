package model

// Booking statuses reported by the booking service.
const (
	BookingConfirmed = "Confirmed"
	BookingCancelled = "Cancelled"
)

// Customer holds the contact details collected before a booking is
// submitted.
type Customer struct {
	Name  string `json:"customer_name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Booking is a durable, confirmed purchase of one or more seats for a
// single schedule.  It is created by the booking service and never mutated
// by the box office.  The entry ticket and its QR payload derive from it.
//
// Fields:
//  ID          – booking identifier.
//  EventID     – event the seats belong to.
//  ScheduleID  – schedule the seats were sold against.
//  Customer    – contact details of the purchaser.
//  Seats       – finalized seat tokens.
//  TotalAmount – finalized payable amount in whole currency units.
//  Status      – booking status.
//  CreatedAt   – creation timestamp as formatted by the service.
type Booking struct {
	ID          string    `json:"name"`
	EventID     string    `json:"event"`
	ScheduleID  string    `json:"schedule"`
	Customer
	Seats       []string  `json:"seats"`
	TotalAmount int64     `json:"total_amount"`
	Status      string    `json:"status"`
	CreatedAt   string    `json:"creation"`
}
