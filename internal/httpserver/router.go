package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/office_requests/internal/middleware/auth"
	"github.com/Skotchmaster/office_requests/internal/models"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	RequestHandler *RequestHTTP
	AuthMiddleware *authmw.Middleware

	// RateLimit guards the credential endpoints. Nil disables it.
	RateLimit echo.MiddlewareFunc
	// CSRF wraps every route when set.
	CSRF echo.MiddlewareFunc
	// Ready backs /health/ready. Nil always reports ready.
	Ready func(ctx context.Context) error
	// Metrics is served on /metrics when set.
	Metrics http.Handler
}

func Register(e *echo.Echo, d *Deps) {
	if d.CSRF != nil {
		e.Use(d.CSRF)
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	var guard []echo.MiddlewareFunc
	if d.RateLimit != nil {
		guard = append(guard, d.RateLimit)
	}
	e.POST("/register", d.AuthHandler.Register, guard...)
	e.POST("/login", d.AuthHandler.Login, guard...)
	e.POST("/logout", d.AuthHandler.LogOut)

	private := e.Group("", d.AuthMiddleware.RequireAuth)

	private.GET("/me", d.AuthHandler.Me)
	private.PUT("/api-key", d.AuthHandler.CreateAPIKey)
	private.GET("/api-key", d.AuthHandler.GetAPIKey)
	private.DELETE("/api-key", d.AuthHandler.DeleteAPIKey)

	private.GET("/credits", d.RequestHandler.Credits)
	private.POST("/requests", d.RequestHandler.Create)
	private.GET("/requests", d.RequestHandler.Mine)
	private.GET("/requests/search", d.RequestHandler.SearchRequests)
	private.GET("/requests/all", d.RequestHandler.All, authmw.RequireRole(models.RoleHR, models.RoleAdmin))
}
