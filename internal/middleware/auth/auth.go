package auth

import (
	"context"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/office_requests/internal/autherr"
	"github.com/Skotchmaster/office_requests/internal/logging"
	"github.com/Skotchmaster/office_requests/internal/models"
)

const (
	HeaderAPIKey = "X-API-Key"

	userKey = "user"
)

type Resolver interface {
	IdentityFromRequest(ctx context.Context, bearer, apiKey string) (*models.User, error)
}

type Middleware struct {
	Resolver     Resolver
	CookieSecure bool
}

// Credentials reads the bearer token from the Authorization header and the
// API key from X-API-Key. The access cookie is used only when neither header
// is sent.
func Credentials(c echo.Context) (bearer, apiKey string, fromCookie bool) {
	apiKey = c.Request().Header.Get(HeaderAPIKey)
	if apiKey != "" {
		return c.Request().Header.Get(echo.HeaderAuthorization), apiKey, false
	}
	bearer, fromCookie = SessionToken(c)
	return bearer, "", fromCookie
}

// SessionToken returns the Authorization header value, or the access cookie
// when the header is absent.
func SessionToken(c echo.Context) (token string, fromCookie bool) {
	if token = c.Request().Header.Get(echo.HeaderAuthorization); token != "" {
		return token, false
	}
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value, true
	}
	return "", false
}

// RequireAuth resolves the caller and binds it to the echo context.
func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		bearer, apiKey, fromCookie := Credentials(c)

		user, err := m.Resolver.IdentityFromRequest(c.Request().Context(), bearer, apiKey)
		if err != nil {
			if fromCookie {
				c.SetCookie(DeleteCookie(AccessCookie, "/", m.CookieSecure))
			}
			return err
		}

		SetUser(c, user)
		return next(c)
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := UserFromContext(c)
			if user == nil {
				return autherr.ErrUnauthenticated
			}
			if !slices.Contains(roles, user.Role) {
				logging.FromContext(c.Request().Context()).Warn("access_denied", "user_id", user.ID, "role", user.Role)
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return next(c)
		}
	}
}

func SetUser(c echo.Context, user *models.User) {
	c.Set(userKey, user)
	l := logging.FromContext(c.Request().Context()).With("user_id", user.ID)
	c.SetRequest(c.Request().WithContext(logging.IntoContext(c.Request().Context(), l)))
}

func UserFromContext(c echo.Context) *models.User {
	if u, ok := c.Get(userKey).(*models.User); ok {
		return u
	}
	return nil
}
