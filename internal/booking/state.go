package booking

import (
	"errors"
	"fmt"
)

// State is a step of the booking flow.
type State string

const (
	SelectingSeats  State = "selecting_seats"
	ReviewingTerms  State = "reviewing_terms"
	EnteringDetails State = "entering_details"
	Submitting      State = "submitting"
	Confirmed       State = "confirmed"
	Failed          State = "failed"
)

// Event drives a transition between states.
type Event string

const (
	EvProceed       Event = "proceed"
	EvAcceptTerms   Event = "accept_terms"
	EvDeclineTerms  Event = "decline_terms"
	EvBack          Event = "back"
	EvSubmit        Event = "submit"
	EvSucceed       Event = "succeed"
	EvFail          Event = "fail"
	EvRetryDetails  Event = "retry_details"
	EvReselectSeats Event = "reselect_seats"
)

// ErrInvalidTransition is returned for events the current state does not
// accept.
var ErrInvalidTransition = errors.New("invalid booking step")

var transitions = map[State]map[Event]State{
	SelectingSeats: {
		EvProceed: ReviewingTerms,
	},
	ReviewingTerms: {
		EvAcceptTerms:  EnteringDetails,
		EvDeclineTerms: SelectingSeats,
	},
	EnteringDetails: {
		EvBack:   SelectingSeats,
		EvSubmit: Submitting,
	},
	Submitting: {
		EvSucceed: Confirmed,
		EvFail:    Failed,
	},
	Failed: {
		EvRetryDetails:  EnteringDetails,
		EvReselectSeats: SelectingSeats,
	},
}

// Next returns the state reached from `from` on ev.  Confirmed is terminal
// and the only way into it is through Submitting, which is only reachable
// from EnteringDetails, which is only reachable by accepting the terms.
func Next(from State, ev Event) (State, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ev, from)
}
