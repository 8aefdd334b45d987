package booking

import (
	"errors"
	"regexp"
	"strings"

	"github.com/iliyamo/venue-box-office/internal/model"
)

// MinPhoneDigits is the shortest phone number accepted.
const MinPhoneDigits = 10

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports an invalid customer field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ValidateCustomer trims the customer fields and checks them.  The first
// invalid field is reported.
func ValidateCustomer(c model.Customer) (model.Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Name == "" {
		return c, &ValidationError{Field: "name", Msg: "name is required"}
	}
	if !emailPattern.MatchString(c.Email) {
		return c, &ValidationError{Field: "email", Msg: "enter a valid email address"}
	}
	digits := 0
	for _, r := range c.Phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '+' || r == '(' || r == ')':
		default:
			return c, &ValidationError{Field: "phone", Msg: "phone may only contain digits"}
		}
	}
	if digits < MinPhoneDigits {
		return c, &ValidationError{Field: "phone", Msg: "enter a valid phone number"}
	}
	return c, nil
}
