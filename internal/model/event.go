package model

// Event is a listing offered by the venue.  Events are owned by the remote
// booking service; the box office only reads them.  An event carries one or
// more schedules, each sold independently.
//
// Fields:
//  ID          – event identifier assigned by the booking service.
//  Title       – display title.
//  Description – rich text description (HTML as delivered).
//  Image       – URL or path of the display image.
//  Venue       – venue name.
//  Capacity    – total capacity of the event.
//  Status      – publication status (e.g. Published, Cancelled).
//  Schedules   – dated performances of the event.
type Event struct {
	ID          string     `json:"name"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Venue       string     `json:"venue"`
	Capacity    int        `json:"capacity"`
	Status      string     `json:"status"`
	Schedules   []Schedule `json:"schedules"`
}

// Schedule returns the schedule with the given id and whether it was found.
func (e Event) Schedule(id string) (Schedule, bool) {
	for _, s := range e.Schedules {
		if s.ID == id {
			return s, true
		}
	}
	return Schedule{}, false
}

// Schedule statuses as reported by the booking service.
const (
	ScheduleOpen   = "open"
	ScheduleClosed = "closed"
)

// Schedule is a specific date/time instance of an event that seats are sold
// against.  RowPricing is ordered as delivered by the booking service.
type Schedule struct {
	ID         string       `json:"name"`
	EventID    string       `json:"event"`
	Date       string       `json:"date"`
	Time       string       `json:"time"`
	Capacity   int          `json:"capacity"`
	Status     string       `json:"status"`
	RowPricing []RowPricing `json:"row_pricing"`
}

// IsOpen reports whether the schedule accepts bookings.  An empty status is
// treated as open because older schedules were created without one.
func (s Schedule) IsOpen() bool {
	return s.Status == "" || s.Status == ScheduleOpen
}

// RowPricing prices a contiguous range of seat rows.  Price is expressed in
// whole currency units.
type RowPricing struct {
	RowFrom string `json:"row_from"`
	RowTo   string `json:"row_to"`
	Price   int64  `json:"price"`
}
