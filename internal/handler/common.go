package handler // handler defines http handlers

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/buttonboard/buttonboard/internal/middleware"
	"github.com/buttonboard/buttonboard/internal/model"
	"github.com/buttonboard/buttonboard/internal/repository"
)

// dbTimeout bounds every database call made from a handler.
const dbTimeout = 5 * time.Second

const (
	defaultLimit = 100
	maxLimit     = 500
)

// currentUser returns the identity resolved by the JWT middleware.
func currentUser(c echo.Context) (model.User, bool) {
	return middleware.CurrentUser(c)
}

// parseID parses the :id path parameter as a UUID.
func parseID(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

// pagination reads skip/limit query parameters. limit defaults to 100
// and is capped so a single request cannot pull an unbounded result set.
func pagination(c echo.Context) (skip, limit int) {
	skip = 0
	limit = defaultLimit
	if v := c.QueryParam("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit
}

// loadOwnedButton fetches a button and enforces the owner-or-superuser
// rule. The permission answer resolves before existence is disclosed: a
// non-superuser probing any id they do not own — including ids that do
// not exist — gets 400 insufficient permissions, and only superusers see
// 404 for missing rows. When ok is false a response has already been
// written.
func loadOwnedButton(ctx context.Context, c echo.Context, buttons *repository.ButtonRepo, u model.User, id uuid.UUID) (model.Button, bool) {
	b, err := buttons.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			if u.IsSuperuser {
				_ = c.JSON(http.StatusNotFound, echo.Map{"error": "button not found"})
			} else {
				_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient permissions"})
			}
			return model.Button{}, false
		}
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		return model.Button{}, false
	}
	if !u.IsSuperuser && b.CreatedBy != u.ID {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient permissions"})
		return model.Button{}, false
	}
	return b, true
}
