package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/buttonboard/buttonboard/internal/config"
	"github.com/buttonboard/buttonboard/internal/repository"
	"github.com/buttonboard/buttonboard/internal/utils"
)

// UserHandler implements account management endpoints. Administrative
// operations (list, create, update and delete arbitrary users) are
// mounted behind the superuser gate; the /users/me family operates on
// the caller's own account.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u}
}

type userCreateReq struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FullName    *string `json:"full_name"`
	IsSuperuser bool    `json:"is_superuser"`
}

type userSignupReq struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

type userUpdateReq struct {
	Email       *string `json:"email"`
	Password    *string `json:"password"`
	FullName    *string `json:"full_name"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

type updateMeReq struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
}

type updatePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func validPassword(p string) bool { return len(p) >= 8 && len(p) <= 40 }

// List handles GET /users/ (superuser only).
func (h *UserHandler) List(c echo.Context) error {
	skip, limit := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	users, count, err := h.Users.List(ctx, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": users, "count": count})
}

// Create handles POST /users/ (superuser only).
func (h *UserHandler) Create(c echo.Context) error {
	var req userCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !validPassword(req.Password) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password (8-40 chars) required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Email, req.Password, req.FullName, req.IsSuperuser, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "a user with this email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusOK, u)
}

// Signup handles POST /users/signup: open registration for regular
// accounts. Privilege flags are never taken from the request here.
func (h *UserHandler) Signup(c echo.Context) error {
	var req userSignupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !validPassword(req.Password) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password (8-40 chars) required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Email, req.Password, req.FullName, false, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "a user with this email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusOK, u)
}

// Me handles GET /users/me.
func (h *UserHandler) Me(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateMe handles PATCH /users/me: merge-updates the caller's own
// email and display name.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
	}
	var req updateMeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	updated, err := h.Users.Update(ctx, u.ID, repository.UserUpdate{
		Email:    req.Email,
		FullName: req.FullName,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "a user with this email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, updated)
}

// UpdateMyPassword handles PATCH /users/me/password. The current
// password must verify before the new one is stored.
func (h *UserHandler) UpdateMyPassword(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
	}
	var req updatePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !validPassword(req.NewPassword) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new password must be 8-40 chars"})
	}
	if !utils.VerifyPassword(u.HashedPassword, req.CurrentPassword) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "incorrect password"})
	}
	if req.CurrentPassword == req.NewPassword {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new password cannot be the same as the current one"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.UpdatePassword(ctx, u.ID, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated successfully"})
}

// Get handles GET /users/:id. A user may fetch themselves; anyone else
// requires superuser rights.
func (h *UserHandler) Get(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if id == u.ID {
		return c.JSON(http.StatusOK, u)
	}
	if !u.IsSuperuser {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient privileges"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, target)
}

// Update handles PATCH /users/:id (superuser only): partial update over
// any account field, including privilege flags and password.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req userUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Password != nil && !validPassword(*req.Password) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be 8-40 chars"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	updated, err := h.Users.Update(ctx, id, repository.UserUpdate{
		Email:       req.Email,
		FullName:    req.FullName,
		Password:    req.Password,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
	}, h.Cfg.BcryptCost)
	if err != nil {
		switch {
		case err == sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "a user with this email already exists"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /users/:id (superuser only). Self-deletion is
// refused; buttons created by the deleted account are re-parented to the
// sentinel deleted-user identity so their history survives.
func (h *UserHandler) Delete(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "could not validate credentials"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if id == u.ID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "superusers are not allowed to delete themselves"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}
