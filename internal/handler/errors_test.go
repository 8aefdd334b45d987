package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-box-office/internal/booking"
	"github.com/iliyamo/venue-box-office/internal/remote"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"seats lost", fmt.Errorf("submit: %w", &booking.SeatsLostError{Seats: []string{"A2"}}), http.StatusConflict, "SEATS_UNAVAILABLE"},
		{"rejected seats", &remote.Rejection{Seats: []string{"B1"}}, http.StatusConflict, "SEATS_UNAVAILABLE"},
		{"in flight", booking.ErrSubmitInFlight, http.StatusConflict, "SUBMIT_IN_FLIGHT"},
		{"transport", &remote.Error{Op: "venue.get_event", Err: remote.ErrTransport}, http.StatusBadGateway, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, writeError(c, tc.err))
			assert.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			if tc.code != "" {
				assert.Equal(t, tc.code, body["code"])
			}
		})
	}

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, writeError(c, &booking.SeatsLostError{Seats: []string{"A2", "A3"}}))
	assert.Equal(t, []any{"A2", "A3"}, decode(t, rec)["seats"])
}
