// Package pricing resolves seat prices from a schedule's row pricing table
// and builds the payable quote shown before a booking is submitted.  Every
// function here is pure: no network access and no shared state.
package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/venue-box-office/internal/model"
)

var (
	// ErrPricingUndefined is returned when a seat's row falls in no range.
	// A seat without a price must never be purchasable.
	ErrPricingUndefined = errors.New("pricing undefined")
	// ErrPricingConflict is returned when a seat's row falls in more than
	// one range, which means the schedule's table is misconfigured.
	ErrPricingConflict = errors.New("pricing ranges overlap")
	// ErrInvalidSeat is returned for tokens that are not <row><number>.
	ErrInvalidSeat = errors.New("invalid seat token")
)

// Row returns the upper-cased row label of a seat token such as "C7" or
// "aa12".  The token must be one or more letters followed by one or more
// digits.
func Row(seat string) (string, error) {
	s := strings.TrimSpace(seat)
	i := 0
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	if i == 0 || i == len(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeat, seat)
	}
	for j := i; j < len(s); j++ {
		if s[j] < '0' || s[j] > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidSeat, seat)
		}
	}
	return strings.ToUpper(s[:i]), nil
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// compareRows orders row labels the way halls are lettered: single letters
// first, then AA, AB and so on.
func compareRows(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func inRange(row string, r model.RowPricing) bool {
	from := strings.ToUpper(strings.TrimSpace(r.RowFrom))
	to := strings.ToUpper(strings.TrimSpace(r.RowTo))
	return compareRows(row, from) >= 0 && compareRows(row, to) <= 0
}

// ResolvePrice returns the price of the single range containing the seat's
// row.  All ranges are scanned so that overlapping tables are reported as
// ErrPricingConflict instead of silently taking the first match.
func ResolvePrice(seat string, ranges []model.RowPricing) (int64, error) {
	row, err := Row(seat)
	if err != nil {
		return 0, err
	}
	var (
		price   int64
		matches int
	)
	for _, r := range ranges {
		if inRange(row, r) {
			matches++
			price = r.Price
		}
	}
	switch matches {
	case 0:
		return 0, fmt.Errorf("%w: seat %s", ErrPricingUndefined, seat)
	case 1:
		return price, nil
	default:
		return 0, fmt.Errorf("%w: seat %s matches %d ranges", ErrPricingConflict, seat, matches)
	}
}

// ComputeTotal sums the price of every seat.  If any seat cannot be priced
// the whole computation fails; there are no partial totals.
func ComputeTotal(seats []string, ranges []model.RowPricing) (int64, error) {
	var total int64
	for _, s := range seats {
		p, err := ResolvePrice(s, ranges)
		if err != nil {
			return 0, err
		}
		total += p
	}
	return total, nil
}

// ValidateRanges checks that every range is well formed (row_from <= row_to,
// letters only) and that no two ranges overlap.
func ValidateRanges(ranges []model.RowPricing) error {
	type span struct{ from, to string }
	spans := make([]span, 0, len(ranges))
	for i, r := range ranges {
		from := strings.ToUpper(strings.TrimSpace(r.RowFrom))
		to := strings.ToUpper(strings.TrimSpace(r.RowTo))
		if !isRowLabel(from) || !isRowLabel(to) {
			return fmt.Errorf("range %d: invalid row label %q-%q", i, r.RowFrom, r.RowTo)
		}
		if compareRows(from, to) > 0 {
			return fmt.Errorf("range %d: row_from %s is after row_to %s", i, from, to)
		}
		if r.Price < 0 {
			return fmt.Errorf("range %d: negative price %d", i, r.Price)
		}
		spans = append(spans, span{from, to})
	}
	sort.Slice(spans, func(i, j int) bool { return compareRows(spans[i].from, spans[j].from) < 0 })
	for i := 1; i < len(spans); i++ {
		if compareRows(spans[i].from, spans[i-1].to) <= 0 {
			return fmt.Errorf("%w: %s-%s and %s-%s", ErrPricingConflict,
				spans[i-1].from, spans[i-1].to, spans[i].from, spans[i].to)
		}
	}
	return nil
}

func isRowLabel(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) {
			return false
		}
	}
	return true
}
