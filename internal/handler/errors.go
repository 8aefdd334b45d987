package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-box-office/internal/booking"
	"github.com/iliyamo/venue-box-office/internal/entry"
	"github.com/iliyamo/venue-box-office/internal/pricing"
	"github.com/iliyamo/venue-box-office/internal/remote"
	"github.com/iliyamo/venue-box-office/internal/seatlock"
	"github.com/iliyamo/venue-box-office/internal/session"
)

// writeError maps domain errors to HTTP responses.  Transport failures are
// reported with a generic message; the details are in the logs.
func writeError(c echo.Context, err error) error {
	var verr *booking.ValidationError
	var rej *remote.Rejection
	var lost *booking.SeatsLostError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Msg, "field": verr.Field})
	case errors.As(err, &rej):
		body := echo.Map{"error": rej.Error(), "code": "BOOKING_REJECTED"}
		if len(rej.Seats) > 0 {
			body["code"] = "SEATS_UNAVAILABLE"
			body["seats"] = rej.Seats
		}
		return c.JSON(http.StatusConflict, body)
	case errors.As(err, &lost):
		return c.JSON(http.StatusConflict, echo.Map{"error": lost.Error(), "code": "SEATS_UNAVAILABLE", "seats": lost.Seats})
	case errors.Is(err, pricing.ErrPricingUndefined):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error(), "code": "PRICING_UNDEFINED"})
	case errors.Is(err, pricing.ErrPricingConflict):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error(), "code": "PRICING_CONFLICT"})
	case errors.Is(err, pricing.ErrInvalidSeat):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "field": "seats"})
	case errors.Is(err, booking.ErrSubmitInFlight):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "SUBMIT_IN_FLIGHT"})
	case errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrTermsRequired):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "INVALID_STEP"})
	case errors.Is(err, booking.ErrNoSeats),
		errors.Is(err, booking.ErrDetailsMissing):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrScheduleClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "SCHEDULE_CLOSED"})
	case errors.Is(err, entry.ErrScanDropped):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": err.Error()})
	case errors.Is(err, entry.ErrEmptyScan):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "field": "qr_data"})
	case errors.Is(err, entry.ErrAccessDenied):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "entry verification not permitted"})
	case errors.Is(err, session.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking session expired"})
	case errors.Is(err, session.ErrScheduleNotFound),
		errors.Is(err, remote.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, seatlock.ErrNotLoaded):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "seat map not loaded yet"})
	case errors.Is(err, remote.ErrTransport),
		errors.Is(err, remote.ErrUnauthorized):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": remote.ErrTransport.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
