package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-box-office/internal/config"
	"github.com/iliyamo/venue-box-office/internal/utils"
)

func serve(e *echo.Echo, method, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	e.GET("/staff", func(c echo.Context) error {
		return c.String(http.StatusOK, Subject(c)+" "+Email(c))
	}, JWTAuth("secret"), RequireRole("STAFF"))

	rec := serve(e, http.MethodGet, "/staff", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/staff", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	customer, err := utils.NewAccessToken("secret", "sess-1", "CUSTOMER", "", time.Minute)
	require.NoError(t, err)
	rec = serve(e, http.MethodGet, "/staff", customer.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	staff, err := utils.NewAccessToken("secret", "7", "STAFF", "gate@venue.test", time.Minute)
	require.NoError(t, err)
	rec = serve(e, http.MethodGet, "/staff", staff.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7 gate@venue.test", rec.Body.String())
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func TestRedisCache_Hit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheConfig()
	e := echo.New()
	calls := 0
	e.GET("/v1/events", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"fresh": true})
	}, NewRedisCache(cfg, rdb, nil))

	req := httptest.NewRequest(http.MethodGet, "/v1/events?q=gala", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/events")
	key := cacheKey(cfg, c)

	payload, err := encodePayload(http.StatusOK,
		http.Header{echo.HeaderContentType: {echo.MIMEApplicationJSON}}, []byte(`{"cached":true}`))
	require.NoError(t, err)
	mock.ExpectGet(key).SetVal(string(payload))

	rec := serve(e, http.MethodGet, "/v1/events?q=gala", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"cached":true}`, rec.Body.String())
	assert.Zero(t, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_MissStores(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheConfig()
	e := echo.New()
	e.GET("/v1/events/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id")})
	}, NewRedisCache(cfg, rdb, nil))

	req := httptest.NewRequest(http.MethodGet, "/v1/events/EV-1", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/events/:id")
	c.SetParamNames("id")
	c.SetParamValues("EV-1")
	key := cacheKey(cfg, c)

	mock.ExpectGet(key).RedisNil()
	mock.CustomMatch(func(expected, actual []interface{}) error {
		if len(actual) < 2 || actual[0] != "setex" || actual[1] != key {
			return errors.New("unexpected setex")
		}
		return nil
	}).ExpectSetEx(key, "", time.Minute).SetVal("OK")

	rec := serve(e, http.MethodGet, "/v1/events/EV-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"id":"EV-1"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_DisabledPassesThrough(t *testing.T) {
	cfg := cacheConfig()
	cfg.Enabled = false
	e := echo.New()
	e.GET("/v1/events", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewRedisCache(cfg, nil, nil))
	rec := serve(e, http.MethodGet, "/v1/events", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestTokenBucket_FailsOpen(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
	e := echo.New()
	e.GET("/v1/events", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb, nil))

	rec := serve(e, http.MethodGet, "/v1/events", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/v1/booking/session/seats", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/booking/session/seats")
	c.Set(CtxSubject, "sess-1")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	assert.Equal(t, "rl:ip:10.0.0.9:sub:sess-1:route:PUT /v1/booking/session/seats", rateKey(cfg, c))
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.9", rateKey(cfg, c))
	cfg.KeyStrategy = "subject"
	assert.Equal(t, "rl:sub:sess-1", rateKey(cfg, c))
}
