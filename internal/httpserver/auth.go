package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/office_requests/internal/autherr"
	"github.com/Skotchmaster/office_requests/internal/logging"
	authmw "github.com/Skotchmaster/office_requests/internal/middleware/auth"
	"github.com/Skotchmaster/office_requests/internal/service"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieSecure bool
}

type registerRequest struct {
	Username  string `json:"username" form:"username"`
	Password  string `json:"password" form:"password"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Email     string `json:"email" form:"email"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Register(ctx, service.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":  "user registered",
		"id":       user.ID,
		"username": user.Username,
		"credits":  user.Credits,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}

	c.SetCookie(authmw.CreateCookie(authmw.AccessCookie, res.AccessToken, "/", res.ExpiresAt, h.CookieSecure))

	return c.JSON(http.StatusOK, echo.Map{
		"message":      "login successful",
		"access_token": res.AccessToken,
		"token_type":   "bearer",
		"expires_at":   res.ExpiresAt.Format(time.RFC3339),
	})
}

// LogOut accepts the token from the Authorization header or the access
// cookie and is safe to repeat.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()

	raw, fromCookie := authmw.SessionToken(c)
	if raw == "" {
		return autherr.ErrMissingCredential
	}

	err := h.Svc.InvalidateSessionToken(ctx, raw)
	if err == nil || fromCookie {
		c.SetCookie(authmw.DeleteCookie(authmw.AccessCookie, "/", h.CookieSecure))
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	user := authmw.UserFromContext(c)
	if user == nil {
		return autherr.ErrUnauthenticated
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHTTP) CreateAPIKey(c echo.Context) error {
	key, err := h.Svc.CreateAPIKey(c.Request().Context(), authmw.UserFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "API key created", "api_key": key})
}

func (h *AuthHTTP) GetAPIKey(c echo.Context) error {
	key, err := h.Svc.APIKey(c.Request().Context(), authmw.UserFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "API key retrieved", "api_key": key})
}

func (h *AuthHTTP) DeleteAPIKey(c echo.Context) error {
	if err := h.Svc.DeleteAPIKey(c.Request().Context(), authmw.UserFromContext(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "API key deleted"})
}
