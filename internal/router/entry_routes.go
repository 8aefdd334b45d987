package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-box-office/internal/handler"
	"github.com/iliyamo/venue-box-office/internal/middleware"
	"github.com/iliyamo/venue-box-office/internal/model"
)

// RegisterEntry registers the gate scanner routes for STAFF tokens.
func RegisterEntry(e *echo.Echo, h *handler.EntryHandler, jwtSecret string) {
	g := e.Group("/v1/entry",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff),
	)
	g.GET("/scanner", h.Scanner)
	g.POST("/verify", h.Verify)
}
