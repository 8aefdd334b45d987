package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-box-office/internal/model"
)

// Catalog is the read side of the booking service used for browsing.
type Catalog interface {
	ListEvents(ctx context.Context, search string) ([]model.Event, error)
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
}

// EventsHandler serves the public event catalogue.
type EventsHandler struct {
	Catalog Catalog
}

// PublicEvent is an event in list responses.
type PublicEvent struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Venue         string `json:"venue"`
	Image         string `json:"image,omitempty"`
	OpenSchedules int    `json:"open_schedules"`
}

// List returns published events, filtered by ?q= when given.
func (h *EventsHandler) List(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	events, err := h.Catalog.ListEvents(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]PublicEvent, 0, len(events))
	for _, ev := range events {
		open := 0
		for _, s := range ev.Schedules {
			if s.IsOpen() {
				open++
			}
		}
		out = append(out, PublicEvent{ID: ev.ID, Title: ev.Title, Venue: ev.Venue, Image: ev.Image, OpenSchedules: open})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get returns one event with its schedules and row pricing.
func (h *EventsHandler) Get(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ev, err := h.Catalog.GetEvent(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}
