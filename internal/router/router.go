// Package router registers the box office HTTP routes.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/venue-box-office/internal/handler"
	"github.com/iliyamo/venue-box-office/internal/middleware"
	"github.com/iliyamo/venue-box-office/internal/model"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo, db *sql.DB, rdb *redis.Client) {
	e.GET("/healthz", handler.Health(db, rdb))
}

// RegisterAuth registers staff sign-in routes.  Token exchange lives under
// /v1/auth; /v1/me needs a STAFF access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, mws ...echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", mws...)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff))
}

// RegisterPublic registers the event catalogue.  mws typically carries the
// response cache.
func RegisterPublic(e *echo.Echo, h *handler.EventsHandler, mws ...echo.MiddlewareFunc) {
	g := e.Group("/v1/events", mws...)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}
