package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/buttonboard/buttonboard/internal/queue"
	"github.com/buttonboard/buttonboard/internal/repository"
	queue_publisher "github.com/buttonboard/buttonboard/internal/service"
)

// Increment handles GET /buttons/:id/increment. This endpoint is
// deliberately unauthenticated: the physical hardware that triggers
// buttons carries no credentials. The repository serializes concurrent
// increments on the same button under a row lock, so every accepted
// request adds exactly one usage event and one to the counter. A retired
// button answers 403 and records nothing.
func (h *ButtonHandler) Increment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	// RealIP prefers the first X-Forwarded-For entry and falls back to
	// the direct peer address.
	var origin *string
	if ip := c.RealIP(); ip != "" {
		origin = &ip
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Usage.Increment(ctx, id, origin)
	if err != nil {
		switch {
		case err == sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "button not found"})
		case errors.Is(err, repository.ErrRetired):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "button is retired and cannot be incremented"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "increment failed"})
		}
	}

	// Fire-and-forget activity event; broker trouble never fails the
	// request.
	ev := queue.ButtonActivityEvent{
		Kind:       queue.KindUsed,
		ButtonID:   b.ID.String(),
		ButtonType: b.Type,
		Title:      b.Title,
		UsageCount: b.UsageCount,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if origin != nil {
		ev.Origin = *origin
	}
	go func() { _ = queue_publisher.PublishButtonActivity(context.Background(), ev) }()

	return c.JSON(http.StatusOK, b)
}

// GetUsage handles GET /buttons/:id/usage: the live usage count plus
// the ten most recent events, newest first. Ownership-gated like the
// other read endpoints.
func (h *ButtonHandler) GetUsage(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, ok := loadOwnedButton(ctx, c, h.Buttons, u, id); !ok {
		return nil
	}
	count, err := h.Usage.CountUses(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	recent, err := h.Usage.RecentUses(ctx, id, 10)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"usage_count": count, "recent_uses": recent})
}
