// Package booking drives a single customer's booking flow: seat selection,
// terms, customer details and submission to the booking service.
package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/venue-box-office/internal/model"
	"github.com/iliyamo/venue-box-office/internal/pricing"
	"github.com/iliyamo/venue-box-office/internal/queue"
	"github.com/iliyamo/venue-box-office/internal/remote"
	"github.com/iliyamo/venue-box-office/internal/seatlock"
)

var (
	ErrNoSeats        = errors.New("select at least one seat")
	ErrTermsRequired  = errors.New("terms must be accepted")
	ErrDetailsMissing = errors.New("customer details missing")
	ErrSubmitInFlight = errors.New("booking submission already in progress")
	ErrScheduleClosed = errors.New("schedule is not open for booking")
	ErrSeatsLost      = errors.New("held seats are no longer locked")
)

// SeatsLostError names quoted seats whose locks lapsed before submission.
type SeatsLostError struct {
	Seats []string
}

func (e *SeatsLostError) Error() string {
	return ErrSeatsLost.Error() + ": " + strings.Join(e.Seats, ", ")
}

func (e *SeatsLostError) Is(target error) bool { return target == ErrSeatsLost }

// Seats is the seat lock session backing a booking.
type Seats interface {
	Load(ctx context.Context) error
	Select(ctx context.Context, seats []string) (seatlock.LockResult, error)
	Toggle(ctx context.Context, seat string) (seatlock.LockResult, error)
	ReleaseAll(ctx context.Context) error
	Forget(seats []string)
	Selection() []string
	View() seatlock.Availability
	Holder() string
}

// Booker submits bookings to the booking service.
type Booker interface {
	CreateBooking(ctx context.Context, req remote.BookingRequest) (string, error)
}

// Notifier is told about confirmed bookings.
type Notifier interface {
	PublishBookingConfirmed(ctx context.Context, evt queue.BookingConfirmedEvent) error
}

// Snapshot is what the storefront renders for one step of the flow.
type Snapshot struct {
	State         State          `json:"state"`
	EventID       string         `json:"event_id"`
	ScheduleID    string         `json:"schedule_id"`
	Seats         []string       `json:"seats"`
	Unavailable   []string       `json:"unavailable"`
	Quote         *pricing.Quote `json:"quote,omitempty"`
	PricingError  string         `json:"pricing_error,omitempty"`
	TermsAccepted bool           `json:"terms_accepted"`
	Customer      model.Customer `json:"customer"`
	BookingID     string         `json:"booking_id,omitempty"`
	LastError     string         `json:"last_error,omitempty"`
}

type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notify = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithReference overrides how client references are generated.
func WithReference(f func() string) Option {
	return func(o *Orchestrator) { o.newRef = f }
}

// Orchestrator owns the booking state of one session.  Operations are
// serialized; the submission call runs without holding the operation lock
// so that a second submit observes Submitting and is refused.
type Orchestrator struct {
	seats    Seats
	booker   Booker
	notify   Notifier
	log      *zap.Logger
	event    model.Event
	schedule model.Schedule
	fee      pricing.FeePolicy
	newRef   func() string
	now      func() time.Time

	op sync.Mutex

	mu            sync.RWMutex
	state         State
	termsAccepted bool
	quoted        []string // seats priced when the customer proceeded
	customer      model.Customer
	hasDetails    bool
	bookingID     string
	lastErr       error
}

// New starts a booking flow in SelectingSeats for the schedule of event.
func New(seats Seats, booker Booker, event model.Event, schedule model.Schedule, fee pricing.FeePolicy, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		seats:    seats,
		booker:   booker,
		log:      zap.NewNop(),
		event:    event,
		schedule: schedule,
		fee:      fee,
		newRef:   func() string { return uuid.NewString() },
		now:      time.Now,
		state:    SelectingSeats,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) requireState(want State) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.state != want {
		if o.state == Submitting {
			return ErrSubmitInFlight
		}
		return ErrInvalidTransition
	}
	return nil
}

func (o *Orchestrator) fire(ev Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fireLocked(ev)
}

func (o *Orchestrator) fireLocked(ev Event) error {
	to, err := Next(o.state, ev)
	if err != nil {
		return err
	}
	o.state = to
	return nil
}

// SelectSeats makes seats the selection, locking new seats and releasing
// dropped ones.
func (o *Orchestrator) SelectSeats(ctx context.Context, seats []string) (seatlock.LockResult, error) {
	o.op.Lock()
	defer o.op.Unlock()
	if err := o.requireState(SelectingSeats); err != nil {
		return seatlock.LockResult{}, err
	}
	if !o.schedule.IsOpen() {
		return seatlock.LockResult{}, ErrScheduleClosed
	}
	return o.seats.Select(ctx, seats)
}

// ToggleSeat selects or deselects a single seat.
func (o *Orchestrator) ToggleSeat(ctx context.Context, seat string) (seatlock.LockResult, error) {
	o.op.Lock()
	defer o.op.Unlock()
	if err := o.requireState(SelectingSeats); err != nil {
		return seatlock.LockResult{}, err
	}
	if !o.schedule.IsOpen() {
		return seatlock.LockResult{}, ErrScheduleClosed
	}
	return o.seats.Toggle(ctx, seat)
}

// Quote prices the current selection.
func (o *Orchestrator) Quote() (pricing.Quote, error) {
	seats := o.seats.Selection()
	if len(seats) == 0 {
		return pricing.Quote{}, ErrNoSeats
	}
	return pricing.NewQuote(seats, o.schedule.RowPricing, o.fee)
}

// Proceed moves to the terms step once every selected seat has a price.
func (o *Orchestrator) Proceed() (pricing.Quote, error) {
	o.op.Lock()
	defer o.op.Unlock()
	if err := o.requireState(SelectingSeats); err != nil {
		return pricing.Quote{}, err
	}
	q, err := o.Quote()
	if err != nil {
		return pricing.Quote{}, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fireLocked(EvProceed); err != nil {
		return pricing.Quote{}, err
	}
	o.quoted = q.Seats()
	return q, nil
}

func (o *Orchestrator) AcceptTerms() error {
	o.op.Lock()
	defer o.op.Unlock()
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fireLocked(EvAcceptTerms); err != nil {
		return err
	}
	o.termsAccepted = true
	return nil
}

// DeclineTerms returns to seat selection.  Held seats stay locked.
func (o *Orchestrator) DeclineTerms() error {
	o.op.Lock()
	defer o.op.Unlock()
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fireLocked(EvDeclineTerms); err != nil {
		return err
	}
	o.termsAccepted = false
	return nil
}

// Back returns from the details step to seat selection.  Terms have to be
// accepted again before details can be submitted.
func (o *Orchestrator) Back() error {
	o.op.Lock()
	defer o.op.Unlock()
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fireLocked(EvBack); err != nil {
		return err
	}
	o.termsAccepted = false
	return nil
}

// SetDetails validates and stores the customer's contact details.
func (o *Orchestrator) SetDetails(c model.Customer) error {
	o.op.Lock()
	defer o.op.Unlock()
	if err := o.requireState(EnteringDetails); err != nil {
		return err
	}
	c, err := ValidateCustomer(c)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.customer = c
	o.hasDetails = true
	o.mu.Unlock()
	return nil
}

// Submit sends the booking.  It returns the booking id on success.  A call
// made while a submission is outstanding returns ErrSubmitInFlight and
// never reaches the booking service.
func (o *Orchestrator) Submit(ctx context.Context) (string, error) {
	o.op.Lock()
	req, q, err := o.beginSubmit()
	o.op.Unlock()
	if err != nil {
		return "", err
	}

	id, err := o.booker.CreateBooking(ctx, req)

	o.op.Lock()
	defer o.op.Unlock()
	if err != nil {
		o.failSubmit(ctx, err)
		return "", err
	}
	o.mu.Lock()
	_ = o.fireLocked(EvSucceed)
	o.bookingID = id
	o.lastErr = nil
	customer := o.customer
	o.mu.Unlock()

	o.log.Info("booking confirmed",
		zap.String("booking_id", id),
		zap.String("schedule_id", o.schedule.ID),
		zap.Strings("seats", req.Seats),
		zap.Int64("total", q.Total))
	o.publish(ctx, id, customer, q)
	return id, nil
}

func (o *Orchestrator) beginSubmit() (remote.BookingRequest, pricing.Quote, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.state == Submitting:
		return remote.BookingRequest{}, pricing.Quote{}, ErrSubmitInFlight
	case o.state != EnteringDetails:
		return remote.BookingRequest{}, pricing.Quote{}, ErrInvalidTransition
	case !o.termsAccepted:
		return remote.BookingRequest{}, pricing.Quote{}, ErrTermsRequired
	case !o.hasDetails:
		return remote.BookingRequest{}, pricing.Quote{}, ErrDetailsMissing
	}
	// Seats can be lost to expiry while the customer fills in details.
	// The booking must match what was quoted, so any loss sends the
	// customer back to seat selection.
	current := o.seats.Selection()
	if lost := missing(o.quoted, current); len(current) > 0 && (len(lost) > 0 || len(current) != len(o.quoted)) {
		err := &SeatsLostError{Seats: lost}
		o.state = SelectingSeats
		o.termsAccepted = false
		o.lastErr = err
		o.log.Warn("held seats lost before submission",
			zap.String("schedule_id", o.schedule.ID),
			zap.Strings("seats", lost))
		return remote.BookingRequest{}, pricing.Quote{}, err
	}
	q, err := o.Quote()
	if err != nil {
		if errors.Is(err, ErrNoSeats) {
			o.state = SelectingSeats
			o.termsAccepted = false
		}
		return remote.BookingRequest{}, pricing.Quote{}, err
	}
	if err := o.fireLocked(EvSubmit); err != nil {
		return remote.BookingRequest{}, pricing.Quote{}, err
	}
	req := remote.BookingRequest{
		EventID:     o.event.ID,
		ScheduleID:  o.schedule.ID,
		Holder:      o.seats.Holder(),
		Name:        o.customer.Name,
		Phone:       o.customer.Phone,
		Email:       o.customer.Email,
		Seats:       q.Seats(),
		TotalAmount: q.Total,
		ClientRef:   o.newRef(),
	}
	return req, q, nil
}

func (o *Orchestrator) failSubmit(ctx context.Context, cause error) {
	o.mu.Lock()
	_ = o.fireLocked(EvFail)
	o.lastErr = cause
	o.mu.Unlock()

	var rej *remote.Rejection
	if errors.As(cause, &rej) && len(rej.Seats) > 0 {
		o.log.Warn("booking rejected, seats taken",
			zap.String("schedule_id", o.schedule.ID),
			zap.Strings("seats", rej.Seats))
		o.seats.Forget(rej.Seats)
		if err := o.seats.Load(ctx); err != nil {
			o.log.Warn("reload seat view failed", zap.Error(err))
		}
		o.mu.Lock()
		_ = o.fireLocked(EvReselectSeats)
		o.termsAccepted = false
		o.mu.Unlock()
		return
	}
	o.log.Warn("booking submission failed",
		zap.String("schedule_id", o.schedule.ID),
		zap.Error(cause))
	o.mu.Lock()
	_ = o.fireLocked(EvRetryDetails)
	o.mu.Unlock()
}

func (o *Orchestrator) publish(ctx context.Context, id string, c model.Customer, q pricing.Quote) {
	if o.notify == nil {
		return
	}
	evt := queue.BookingConfirmedEvent{
		BookingID:    id,
		SessionID:    o.seats.Holder(),
		EventID:      o.event.ID,
		EventTitle:   o.event.Title,
		Venue:        o.event.Venue,
		ScheduleID:   o.schedule.ID,
		Date:         o.schedule.Date,
		Time:         o.schedule.Time,
		CustomerName: c.Name,
		Email:        c.Email,
		Seats:        q.Seats(),
		Subtotal:     q.Subtotal,
		FeeName:      q.FeeName,
		Fee:          q.Fee,
		TotalAmount:  q.Total,
		ConfirmedAt:  o.now().UTC().Format(time.RFC3339),
	}
	if err := o.notify.PublishBookingConfirmed(ctx, evt); err != nil {
		o.log.Warn("publish booking.confirmed failed",
			zap.String("booking_id", id),
			zap.Error(err))
	}
}

// Abandon releases every held seat.  Confirmed bookings hold no locks, and
// a flow with a submission outstanding returns ErrSubmitInFlight and keeps
// its seats.
func (o *Orchestrator) Abandon(ctx context.Context) error {
	o.op.Lock()
	defer o.op.Unlock()
	switch o.State() {
	case Confirmed:
		return nil
	case Submitting:
		return ErrSubmitInFlight
	}
	return o.seats.ReleaseAll(ctx)
}

// missing returns the seats of want that are not in have.
func missing(want, have []string) []string {
	held := seatlock.NewSet(have...)
	var out []string
	for _, s := range want {
		if !held.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// Snapshot returns the flow state for rendering.
func (o *Orchestrator) Snapshot() Snapshot {
	seats := o.seats.Selection()
	view := o.seats.View()

	o.mu.RLock()
	snap := Snapshot{
		State:         o.state,
		EventID:       o.event.ID,
		ScheduleID:    o.schedule.ID,
		Seats:         seats,
		Unavailable:   view.Unavailable(),
		TermsAccepted: o.termsAccepted,
		Customer:      o.customer,
		BookingID:     o.bookingID,
	}
	if o.lastErr != nil {
		snap.LastError = o.lastErr.Error()
	}
	o.mu.RUnlock()

	if len(seats) > 0 {
		q, err := pricing.NewQuote(seats, o.schedule.RowPricing, o.fee)
		if err != nil {
			snap.PricingError = err.Error()
		} else {
			snap.Quote = &q
		}
	}
	return snap
}

// LastError is the most recent submission failure, nil after success.
func (o *Orchestrator) LastError() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastErr
}

func (o *Orchestrator) Event() model.Event { return o.event }

func (o *Orchestrator) Schedule() model.Schedule { return o.schedule }
