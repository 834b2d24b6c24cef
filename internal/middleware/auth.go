package middleware // middleware contains reusable HTTP middleware functions

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/buttonboard/buttonboard/internal/model"
	"github.com/buttonboard/buttonboard/internal/repository"
	"github.com/buttonboard/buttonboard/internal/utils"
)

// userContextKey is where the resolved identity is stored on the echo
// context. Handlers read it back through CurrentUser.
const userContextKey = "current_user"

// JWTAuth returns an echo middleware that validates a Bearer access
// token and resolves the full calling identity from the database. The
// subject must still exist and still be active; a token issued before a
// deactivation or deletion is useless afterwards. On success the user
// row is stored in the request context for handlers.
//
// Responses follow the API's error contract: 403 for missing, malformed,
// expired or mis-signed tokens; 404 when the subject no longer exists;
// 400 when the account has been deactivated.
func JWTAuth(secret string, users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			uid, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := users.GetByID(ctx, uid)
			if err != nil {
				if err == sql.ErrNoRows {
					return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
			}
			if !u.IsActive {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "inactive user"})
			}

			c.Set(userContextKey, u)
			return next(c)
		}
	}
}

// RequireSuperuser aborts with 403 unless the resolved identity is a
// superuser. It must run after JWTAuth.
func RequireSuperuser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok || !u.IsSuperuser {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient privileges"})
			}
			return next(c)
		}
	}
}

// CurrentUser returns the identity resolved by JWTAuth for this request.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userContextKey).(model.User)
	return u, ok
}
