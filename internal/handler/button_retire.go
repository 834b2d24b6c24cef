package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/buttonboard/buttonboard/internal/model"
	"github.com/buttonboard/buttonboard/internal/queue"
	"github.com/buttonboard/buttonboard/internal/repository"
	queue_publisher "github.com/buttonboard/buttonboard/internal/service"
)

// retireReq carries the tri-state retirement intent. A pointer
// distinguishes "retire": false from an absent field; the absent case is
// itself an error.
type retireReq struct {
	Retire *bool `json:"retire"`
}

// Retire handles PUT /buttons/:id/retire. The body must carry
// retire=true (Active -> Retired) or retire=false (Retired -> Active);
// anything else is a 400. Both directions write the button marker and
// the retirement history row in one transaction, keeping the invariant
// that retired_at is set exactly when an open retirement row exists.
func (h *ButtonHandler) Retire(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req retireReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Retire == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "must specify retire=true or retire=false"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, ok := loadOwnedButton(ctx, c, h.Buttons, u, id); !ok {
		return nil
	}

	var b model.Button
	var kind string
	if *req.Retire {
		b, err = h.Retirements.Retire(ctx, id, u.ID)
		kind = queue.KindRetired
	} else {
		b, err = h.Retirements.Unretire(ctx, id)
		kind = queue.KindUnretired
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRetired):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "button is already retired"})
		case errors.Is(err, repository.ErrNotRetired):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "button is not currently retired"})
		case errors.Is(err, repository.ErrNoRetirementRecord):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no retirement record found for this button"})
		case err == sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "button not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "retirement update failed"})
		}
	}

	ev := queue.ButtonActivityEvent{
		Kind:       kind,
		ButtonID:   b.ID.String(),
		ButtonType: b.Type,
		Title:      b.Title,
		ActorID:    u.ID.String(),
		UsageCount: b.UsageCount,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() { _ = queue_publisher.PublishButtonActivity(context.Background(), ev) }()

	return c.JSON(http.StatusOK, b)
}

// ListRetirements handles GET /buttons/:id/retirements: the full
// retirement history of one button, ownership-gated.
func (h *ButtonHandler) ListRetirements(c echo.Context) error {
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
	recs, err := h.Retirements.ListForButton(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": recs, "count": len(recs)})
}

// ListAllRetirements handles GET /buttons/retirements/. Superusers see
// every record; everyone else only the records they personally created.
func (h *ButtonHandler) ListAllRetirements(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
	}
	skip, limit := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	creator := &u.ID
	if u.IsSuperuser {
		creator = nil
	}
	recs, count, err := h.Retirements.ListAll(ctx, creator, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": recs, "count": count})
}
