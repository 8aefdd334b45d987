package handler

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents(t *testing.T) {
	svc := newFakeService()
	h := &EventsHandler{Catalog: svc}
	e := echo.New()
	e.GET("/v1/events", h.List)
	e.GET("/v1/events/:id", h.Get)

	rec := doJSON(t, e, http.MethodGet, "/v1/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	assert.Equal(t, "EV-0001", first["id"])
	assert.EqualValues(t, 1, first["open_schedules"])

	rec = doJSON(t, e, http.MethodGet, "/v1/events?q=opera", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["items"])

	rec = doJSON(t, e, http.MethodGet, "/v1/events/EV-0001", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Spring Gala", decode(t, rec)["title"])

	rec = doJSON(t, e, http.MethodGet, "/v1/events/EV-0404", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
