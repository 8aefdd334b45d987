package pricing

import (
	"fmt"
	"math"

	"github.com/iliyamo/venue-box-office/internal/model"
)

// FeePolicy describes the convenience fee added on top of the ticket
// subtotal.  Percent is applied to the subtotal and rounded to the nearest
// whole currency unit, halves away from zero.
type FeePolicy struct {
	Name    string
	Percent float64
}

// DefaultFeePolicy is the flat convenience fee charged in the booking flow.
var DefaultFeePolicy = FeePolicy{Name: "convenience", Percent: 12}

// Fee returns the fee for the given subtotal.
func (p FeePolicy) Fee(subtotal int64) int64 {
	if p.Percent <= 0 || subtotal <= 0 {
		return 0
	}
	return int64(math.Round(float64(subtotal) * p.Percent / 100))
}

// Validate rejects policies that cannot produce a sensible fee.
func (p FeePolicy) Validate() error {
	if math.IsNaN(p.Percent) || math.IsInf(p.Percent, 0) || p.Percent < 0 || p.Percent > 100 {
		return fmt.Errorf("fee policy %q: percent must be between 0 and 100, got %v", p.Name, p.Percent)
	}
	return nil
}

// Line is a priced seat.
type Line struct {
	Seat  string `json:"seat"`
	Price int64  `json:"price"`
}

// Quote is the payable breakdown for a set of seats.
type Quote struct {
	Lines    []Line `json:"lines"`
	Subtotal int64  `json:"subtotal"`
	FeeName  string `json:"fee_name"`
	Fee      int64  `json:"fee"`
	Total    int64  `json:"total"`
}

// NewQuote prices every seat and applies the fee policy.  It fails exactly
// when ComputeTotal would fail.
func NewQuote(seats []string, ranges []model.RowPricing, policy FeePolicy) (Quote, error) {
	q := Quote{Lines: make([]Line, 0, len(seats)), FeeName: policy.Name}
	for _, s := range seats {
		p, err := ResolvePrice(s, ranges)
		if err != nil {
			return Quote{}, err
		}
		q.Lines = append(q.Lines, Line{Seat: s, Price: p})
		q.Subtotal += p
	}
	q.Fee = policy.Fee(q.Subtotal)
	q.Total = q.Subtotal + q.Fee
	return q, nil
}

// Seats lists the quoted seats in quote order.
func (q Quote) Seats() []string {
	out := make([]string, len(q.Lines))
	for i, l := range q.Lines {
		out[i] = l.Seat
	}
	return out
}
