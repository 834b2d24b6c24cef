package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/buttonboard/buttonboard/internal/repository"
)

// ButtonHandler bundles the repositories behind the /buttons endpoints.
// Methods are spread over button.go (CRUD), button_usage.go (usage
// recording) and button_retire.go (the retirement state machine).
type ButtonHandler struct {
	Buttons     *repository.ButtonRepo
	Usage       *repository.UsageRepo
	Retirements *repository.RetirementRepo
}

func NewButtonHandler(b *repository.ButtonRepo, u *repository.UsageRepo, r *repository.RetirementRepo) *ButtonHandler {
	if b == nil || u == nil || r == nil {
		panic("nil repository passed to NewButtonHandler")
	}
	return &ButtonHandler{Buttons: b, Usage: u, Retirements: r}
}

type buttonCreateReq struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Duration    *float64 `json:"duration"`
	Source      *string  `json:"source"`
}

type buttonUpdateReq struct {
	Type        *string  `json:"type"`
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Duration    *float64 `json:"duration"`
	Source      *string  `json:"source"`
}

// List handles GET /buttons/. Superusers see every button; everyone
// else only their own. The response carries the page plus the total
// matching count.
func (h *ButtonHandler) List(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
	}
	skip, limit := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	owner := &u.ID
	if u.IsSuperuser {
		owner = nil
	}
	buttons, count, err := h.Buttons.List(ctx, owner, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": buttons, "count": count})
}

// Get handles GET /buttons/:id.
func (h *ButtonHandler) Get(c echo.Context) error {
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

	b, ok := loadOwnedButton(ctx, c, h.Buttons, u, id)
	if !ok {
		return nil
	}
	return c.JSON(http.StatusOK, b)
}

// Create handles POST /buttons/. created_by is always forced to the
// caller's id; usage_count starts at zero and retired_at null.
func (h *ButtonHandler) Create(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
	}
	var req buttonCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Type = strings.TrimSpace(req.Type)
	req.Title = strings.TrimSpace(req.Title)
	if req.Type == "" || req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type and title required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Buttons.Create(ctx, req.Type, req.Title, req.Description, req.Duration, req.Source, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create button failed"})
	}
	return c.JSON(http.StatusOK, b)
}

// Update handles PUT /buttons/:id. Only fields present in the body
// overwrite existing values; omitted fields are untouched.
func (h *ButtonHandler) Update(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req buttonUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, ok := loadOwnedButton(ctx, c, h.Buttons, u, id); !ok {
		return nil
	}
	b, err := h.Buttons.Update(ctx, id, repository.ButtonUpdate{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		Source:      req.Source,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, b)
}

// Delete handles DELETE /buttons/:id. An active button must be retired
// first unless force=true; a button with usage or retirement history is
// refused unless force=true, in which case the history rows are removed
// with the button in one transaction.
func (h *ButtonHandler) Delete(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	force := strings.EqualFold(c.QueryParam("force"), "true")

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, ok := loadOwnedButton(ctx, c, h.Buttons, u, id)
	if !ok {
		return nil
	}
	if b.RetiredAt == nil && !force {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "button must be retired before it can be deleted (override with force=true)",
		})
	}

	if err := h.Buttons.Delete(ctx, id, force); err != nil {
		switch {
		case errors.Is(err, repository.ErrHasHistory):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "button has usage history; use force=true to delete it along with its history",
			})
		case err == sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "button not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Button deleted successfully"})
}
