package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-box-office/internal/handler"
	"github.com/iliyamo/venue-box-office/internal/middleware"
	"github.com/iliyamo/venue-box-office/internal/model"
)

// RegisterBooking registers the booking flow.  Opening a session is
// anonymous and returns a CUSTOMER token bound to the session; every other
// route requires that token.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, mws ...echo.MiddlewareFunc) {
	e.POST("/v1/booking/sessions", h.CreateSession, mws...)

	guarded := append([]echo.MiddlewareFunc{}, mws...)
	guarded = append(guarded,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer),
	)
	g := e.Group("/v1", guarded...)
	g.GET("/booking/session", h.GetSession)
	g.DELETE("/booking/session", h.Abandon)
	g.PUT("/booking/session/seats", h.SetSeats)
	g.POST("/booking/session/proceed", h.Proceed)
	g.POST("/booking/session/terms", h.Terms)
	g.POST("/booking/session/back", h.Back)
	g.PUT("/booking/session/details", h.SetDetails)
	g.POST("/booking/session/submit", h.Submit)
	g.GET("/bookings/:id", h.GetBooking)
}
