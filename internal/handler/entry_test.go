package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-box-office/internal/entry"
	"github.com/iliyamo/venue-box-office/internal/middleware"
	"github.com/iliyamo/venue-box-office/internal/model"
	"github.com/iliyamo/venue-box-office/internal/utils"
)

func newEntryServer(t *testing.T) (*echo.Echo, *fakeService) {
	t.Helper()
	svc := newFakeService()
	h := &EntryHandler{Scanners: entry.NewRegistry(entry.NewGate(svc, nil)), LoginURL: "/login"}
	e := echo.New()
	g := e.Group("/v1/entry", middleware.JWTAuth(testSecret), middleware.RequireRole(model.RoleStaff))
	g.GET("/scanner", h.Scanner)
	g.POST("/verify", h.Verify)
	return e, svc
}

func staffToken(t *testing.T, email string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, "7", model.RoleStaff, email, time.Hour)
	require.NoError(t, err)
	return tok.Token
}

func TestEntryScanner_DeniedRedirectsToLogin(t *testing.T) {
	e, _ := newEntryServer(t)
	rec := doJSON(t, e, http.MethodGet, "/v1/entry/scanner", staffToken(t, "temp@venue.test"), nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestEntryVerify_GrantedAndCachedAccess(t *testing.T) {
	e, svc := newEntryServer(t)
	svc.staff["gate@venue.test"] = true
	svc.verify = model.VerificationResult{Success: true, Message: "Welcome", Seats: []string{"A1"}, EventName: "Spring Gala"}
	tok := staffToken(t, "gate@venue.test")

	rec := doJSON(t, e, http.MethodGet, "/v1/entry/scanner", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/v1/entry/verify", tok, echo.Map{"qr_data": `{"booking":"BK-0001"}`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["granted"])
	assert.Equal(t, 1, svc.checks)
}

func TestEntryVerify_DeniedTicketIsNotAnError(t *testing.T) {
	e, svc := newEntryServer(t)
	svc.staff["gate@venue.test"] = true
	svc.verify = model.VerificationResult{Success: false, Message: "Ticket already used"}

	rec := doJSON(t, e, http.MethodPost, "/v1/entry/verify", staffToken(t, "gate@venue.test"), echo.Map{"qr_data": "BK-0001"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["granted"])
	assert.Equal(t, "Ticket already used", body["reason"])
}

func TestEntryVerify_Errors(t *testing.T) {
	e, svc := newEntryServer(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/entry/verify", staffToken(t, "temp@venue.test"), echo.Map{"qr_data": "BK-0001"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "/login", decode(t, rec)["login_url"])

	svc.staff["gate@venue.test"] = true
	rec = doJSON(t, e, http.MethodPost, "/v1/entry/verify", staffToken(t, "gate@venue.test"), echo.Map{"qr_data": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	customer, err := utils.NewAccessToken(testSecret, "sess-1", model.RoleCustomer, "", time.Hour)
	require.NoError(t, err)
	rec = doJSON(t, e, http.MethodGet, "/v1/entry/scanner", customer.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
