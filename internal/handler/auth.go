package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/buttonboard/buttonboard/internal/config"
	"github.com/buttonboard/buttonboard/internal/repository"
	"github.com/buttonboard/buttonboard/internal/utils"
)

// AuthHandler bundles dependencies for login endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u}
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// LoginAccessToken handles POST /login/access-token. The request is
// OAuth2-password-flow compatible: form-encoded username/password, with
// the username carrying the email. On success it returns a bearer
// access token. Credential failures and inactive accounts both answer
// 400; the two cases carry distinct messages but the same status so a
// probing client cannot cheaply enumerate accounts versus passwords.
func (h *AuthHandler) LoginAccessToken(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("username")))
	password := c.FormValue("password")
	if email == "" || password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "incorrect email or password"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "incorrect email or password"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.HashedPassword, password) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "incorrect email or password"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "inactive user"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: access.Token, TokenType: "bearer"})
}

// TestToken handles POST /login/test-token: it simply echoes back the
// identity the middleware resolved, proving the token is valid and the
// account active.
func (h *AuthHandler) TestToken(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
	}
	return c.JSON(http.StatusOK, u)
}
