package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/office_requests/internal/autherr"
	"github.com/Skotchmaster/office_requests/internal/logging"
)

// HeaderExpired is set on responses rejecting an expired token.
const HeaderExpired = "expired"

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var categories = []struct {
	err    error
	status int
	code   string
}{
	{autherr.ErrMissingCredential, http.StatusUnauthorized, "missing_credential"},
	{autherr.ErrInvalidCredential, http.StatusUnauthorized, "invalid_credential"},
	{autherr.ErrMalformedCredential, http.StatusUnauthorized, "malformed_credential"},
	{autherr.ErrExpiredCredential, http.StatusUnauthorized, "expired_credential"},
	{autherr.ErrRevokedCredential, http.StatusUnauthorized, "revoked_credential"},
	{autherr.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{autherr.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{autherr.ErrAPIKeyNotFound, http.StatusNotFound, "api_key_not_found"},
	{autherr.ErrInsufficientCredit, http.StatusForbidden, "insufficient_credit"},
	{autherr.ErrDuplicateIdentity, http.StatusConflict, "duplicate_identity"},
	{autherr.ErrValidation, http.StatusBadRequest, "invalid_request"},
}

func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal_error"
	}
}

func classify(err error) (int, errorBody) {
	for _, cat := range categories {
		if errors.Is(err, cat.err) {
			return cat.status, errorBody{Code: cat.code, Message: cat.err.Error()}
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, errorBody{Code: statusCode(he.Code), Message: msg}
	}

	return http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "internal server error"}
}

// ErrorHandler renders every error returned by a handler or middleware as
// {"code", "message"} with the category's status.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := classify(err)
	if errors.Is(err, autherr.ErrExpiredCredential) {
		c.Response().Header().Set(HeaderExpired, "true")
	}
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "error", err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", werr)
	}
}
