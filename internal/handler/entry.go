package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-box-office/internal/entry"
	"github.com/iliyamo/venue-box-office/internal/middleware"
)

// EntryHandler serves the staff entry gate.  Routes require a STAFF token.
type EntryHandler struct {
	Scanners *entry.Registry
	LoginURL string
}

type verifyReq struct {
	QRData string `json:"qr_data"`
}

func staffIdentity(c echo.Context) string {
	if email := middleware.Email(c); email != "" {
		return email
	}
	return middleware.Subject(c)
}

// Scanner handles GET /v1/entry/scanner.  It runs the access check for the
// staff member; a denied operator is redirected to the login page and no
// scanner is created.
func (h *EntryHandler) Scanner(c echo.Context) error {
	identity := staffIdentity(c)
	toLogin := false
	nav := entry.NavigatorFunc(func() { toLogin = true })
	sc, err := h.Scanners.Open(c.Request().Context(), identity, nav)
	if toLogin {
		return c.Redirect(http.StatusFound, h.LoginURL)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"identity": sc.Identity(), "ready": true})
}

// Verify handles POST /v1/entry/verify.  The scanned payload is forwarded
// unchanged; denied tickets are a 200 with granted=false.
func (h *EntryHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.QRData) == "" {
		return writeError(c, entry.ErrEmptyScan)
	}
	sc, err := h.Scanners.Open(c.Request().Context(), staffIdentity(c), nil)
	if err != nil {
		if errors.Is(err, entry.ErrAccessDenied) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "entry verification not permitted", "login_url": h.LoginURL})
		}
		return writeError(c, err)
	}
	out, err := sc.Verify(c.Request().Context(), req.QRData)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
