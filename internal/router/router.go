package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/buttonboard/buttonboard/internal/handler"
	"github.com/buttonboard/buttonboard/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the versioned API surface under /api/v1.
//
// Route order matters in one place: /buttons/retirements/ must be
// registered before /buttons/:id so the literal segment wins over the
// parameter.
func RegisterAPI(e *echo.Echo, a *handler.AuthHandler, u *handler.UserHandler, b *handler.ButtonHandler, auth echo.MiddlewareFunc, rateLimit echo.MiddlewareFunc) {
	api := e.Group("/api/v1")

	// Login endpoints. The token endpoint is unauthenticated; the test
	// endpoint requires a valid token by definition.
	api.POST("/login/access-token", a.LoginAccessToken)
	api.POST("/login/test-token", a.TestToken, auth)

	// Open registration.
	api.POST("/users/signup", u.Signup)

	// The anonymous increment endpoint. No bearer token by design —
	// physical hardware triggers it — so it is rate limited instead.
	api.GET("/buttons/:id/increment", b.Increment, rateLimit)

	// Everything below requires a resolved, active identity.
	authed := api.Group("", auth)

	authed.GET("/users/me", u.Me)
	authed.PATCH("/users/me", u.UpdateMe)
	authed.PATCH("/users/me/password", u.UpdateMyPassword)
	authed.GET("/users/:id", u.Get)

	// Administrative user management.
	su := api.Group("/users", auth, middleware.RequireSuperuser())
	su.GET("/", u.List)
	su.POST("/", u.Create)
	su.PATCH("/:id", u.Update)
	su.DELETE("/:id", u.Delete)

	// Buttons. Ownership scoping happens inside the handlers.
	authed.GET("/buttons/", b.List)
	authed.POST("/buttons/", b.Create)
	authed.GET("/buttons/retirements/", b.ListAllRetirements)
	authed.GET("/buttons/:id", b.Get)
	authed.PUT("/buttons/:id", b.Update)
	authed.DELETE("/buttons/:id", b.Delete)
	authed.GET("/buttons/:id/usage", b.GetUsage)
	authed.PUT("/buttons/:id/retire", b.Retire)
	authed.GET("/buttons/:id/retirements", b.ListRetirements)
}
