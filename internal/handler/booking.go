package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/venue-box-office/internal/booking"
	"github.com/iliyamo/venue-box-office/internal/middleware"
	"github.com/iliyamo/venue-box-office/internal/model"
	"github.com/iliyamo/venue-box-office/internal/session"
	"github.com/iliyamo/venue-box-office/internal/utils"
)

// BookingLookup reads confirmed bookings.
type BookingLookup interface {
	GetBooking(ctx context.Context, bookingID string) (model.Booking, error)
}

// BookingHandler drives a customer's booking session.  Every method except
// CreateSession expects JWTAuth to have stored the session id as subject.
type BookingHandler struct {
	Store     *session.Store
	Bookings  BookingLookup
	JWTSecret string
	TokenTTL  time.Duration
	Log       *zap.Logger
}

type createSessionReq struct {
	EventID    string `json:"event_id"`
	ScheduleID string `json:"schedule_id"`
}

type seatsReq struct {
	Seats []string `json:"seats"`
}

type termsReq struct {
	Accept *bool `json:"accept"`
}

type detailsReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateSession handles POST /v1/booking/sessions.  It opens a session for
// the schedule and returns the token that identifies it.
func (h *BookingHandler) CreateSession(c echo.Context) error {
	var req createSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.EventID, req.ScheduleID = strings.TrimSpace(req.EventID), strings.TrimSpace(req.ScheduleID)
	if req.EventID == "" || req.ScheduleID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id and schedule_id required"})
	}
	s, err := h.Store.Create(c.Request().Context(), req.EventID, req.ScheduleID)
	if err != nil {
		return writeError(c, err)
	}
	tok, err := utils.NewAccessToken(h.JWTSecret, s.ID, model.RoleCustomer, "", h.TokenTTL)
	if err != nil {
		_ = h.Store.Close(context.WithoutCancel(c.Request().Context()), s.ID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session token failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"session_token": tok.Token,
		"expires":       tok.Exp,
		"session":       s.Booking.Snapshot(),
	})
}

func (h *BookingHandler) session(c echo.Context) (*session.Session, error) {
	return h.Store.Get(middleware.Subject(c))
}

// GetSession handles GET /v1/booking/session.
func (h *BookingHandler) GetSession(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.Booking.Snapshot())
}

// SetSeats handles PUT /v1/booking/session/seats.  The body is the full
// desired selection; seats that could not be locked are listed in
// result.failed and left out of the selection.
func (h *BookingHandler) SetSeats(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	var req seatsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res, err := s.Booking.SelectSeats(c.Request().Context(), req.Seats)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"result": res, "session": s.Booking.Snapshot()})
}

// Proceed handles POST /v1/booking/session/proceed.
func (h *BookingHandler) Proceed(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	q, err := s.Booking.Proceed()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"quote": q, "session": s.Booking.Snapshot()})
}

// Terms handles POST /v1/booking/session/terms with {"accept": bool}.
func (h *BookingHandler) Terms(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	var req termsReq
	if err := c.Bind(&req); err != nil || req.Accept == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "accept required", "field": "accept"})
	}
	if *req.Accept {
		err = s.Booking.AcceptTerms()
	} else {
		err = s.Booking.DeclineTerms()
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.Booking.Snapshot())
}

// Back handles POST /v1/booking/session/back.
func (h *BookingHandler) Back(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := s.Booking.Back(); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.Booking.Snapshot())
}

// SetDetails handles PUT /v1/booking/session/details.
func (h *BookingHandler) SetDetails(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	var req detailsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := s.Booking.SetDetails(model.Customer{Name: req.Name, Email: req.Email, Phone: req.Phone}); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.Booking.Snapshot())
}

// Submit handles POST /v1/booking/session/submit.
func (h *BookingHandler) Submit(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := s.Booking.Submit(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking_id": id, "session": s.Booking.Snapshot()})
}

// Abandon handles DELETE /v1/booking/session.  Held seats are released.  A
// session whose booking is being submitted cannot be abandoned (409).
func (h *BookingHandler) Abandon(c echo.Context) error {
	id := middleware.Subject(c)
	if err := h.Store.Close(c.Request().Context(), id); err != nil {
		if h.Log != nil {
			h.Log.Warn("abandon booking session", zap.String("session_id", id), zap.Error(err))
		}
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, booking.ErrSubmitInFlight) {
			return writeError(c, err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// GetBooking handles GET /v1/bookings/:id.  Only the booking made in the
// caller's session can be read.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	id := c.Param("id")
	if id == "" || s.Booking.Snapshot().BookingID != id {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	b, err := h.Bookings.GetBooking(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

