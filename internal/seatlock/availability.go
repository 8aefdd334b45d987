package seatlock

import (
	"sort"
	"strings"
)

// State is the client-visible status of a seat for one schedule.
type State string

const (
	Available      State = "available"
	LockedByOthers State = "locked-by-others"
	LockedByMe     State = "locked-by-me"
	Booked         State = "booked"
)

// Set is a set of seat tokens.
type Set map[string]struct{}

// NewSet builds a set from seat tokens, normalising each one.
func NewSet(seats ...string) Set {
	s := make(Set, len(seats))
	for _, seat := range seats {
		if n := Normalize(seat); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Has reports membership.
func (s Set) Has(seat string) bool {
	_, ok := s[Normalize(seat)]
	return ok
}

// Sorted returns the members in a stable order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s Set) clone() Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Normalize upper-cases and trims a seat token.
func Normalize(seat string) string {
	return strings.ToUpper(strings.TrimSpace(seat))
}

// Derive computes a seat's state from the server-reported booked and locked
// sets and the caller's own held seats.  Booked always wins: a booked seat
// is never reported as available or held.  The locked set includes the
// caller's own locks, so a held seat is distinguished by membership in mine.
func Derive(seat string, booked, locked, mine Set) State {
	switch {
	case booked.Has(seat):
		return Booked
	case mine.Has(seat):
		return LockedByMe
	case locked.Has(seat):
		return LockedByOthers
	default:
		return Available
	}
}

// Availability is an immutable snapshot of a schedule's seat sets.
type Availability struct {
	Booked Set
	Locked Set
	Mine   Set
}

// State derives the state of one seat from the snapshot.
func (a Availability) State(seat string) State {
	return Derive(seat, a.Booked, a.Locked, a.Mine)
}

// Unavailable lists every seat the caller cannot select right now.
func (a Availability) Unavailable() []string {
	out := make(Set, len(a.Booked)+len(a.Locked))
	for s := range a.Booked {
		out[s] = struct{}{}
	}
	for s := range a.Locked {
		if !a.Mine.Has(s) {
			out[s] = struct{}{}
		}
	}
	return out.Sorted()
}
