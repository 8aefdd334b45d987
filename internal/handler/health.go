package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health reports liveness plus the state of the optional backing stores.
// A missing Redis only degrades caching, so the status stays 200; an
// unreachable staff database returns 503.
func Health(db *sql.DB, rdb *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		checks := echo.Map{}
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				checks["mysql"] = "down"
				status, code = "degraded", http.StatusServiceUnavailable
			} else {
				checks["mysql"] = "up"
			}
		}
		switch {
		case rdb == nil:
			checks["redis"] = "disabled"
		case rdb.Ping(ctx).Err() != nil:
			checks["redis"] = "down"
		default:
			checks["redis"] = "up"
		}
		return c.JSON(code, echo.Map{"status": status, "checks": checks})
	}
}
