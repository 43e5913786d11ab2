package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/office_requests/internal/autherr"
	"github.com/Skotchmaster/office_requests/internal/credit"
	"github.com/Skotchmaster/office_requests/internal/logging"
	authmw "github.com/Skotchmaster/office_requests/internal/middleware/auth"
	"github.com/Skotchmaster/office_requests/internal/models"
	"github.com/Skotchmaster/office_requests/internal/util"
)

type RequestStore interface {
	CreateRequest(ctx context.Context, req *models.Request) error
	RequestsByUser(ctx context.Context, userID uint) ([]models.Request, error)
	AllRequests(ctx context.Context, offset, limit int) ([]models.Request, int64, error)
}

type Searcher interface {
	IndexRequest(ctx context.Context, req models.Request) error
	SearchRequests(ctx context.Context, query string, userID uint, from, size int) (int64, []models.Request, error)
}

type RequestHTTP struct {
	Repo RequestStore
	Gate *credit.Gate
	// Search is optional.
	Search Searcher
}

type createRequest struct {
	Request     string `json:"request" form:"request"`
	RequestType string `json:"request_type" form:"request_type"`
	IsAnonymous bool   `json:"is_anonymous" form:"is_anonymous"`
}

func (r createRequest) validate() error {
	if strings.TrimSpace(r.Request) == "" {
		return fmt.Errorf("%w: request text is required", autherr.ErrValidation)
	}
	switch r.RequestType {
	case models.RequestTypeSupply, models.RequestTypeMaintenance:
		return nil
	default:
		return fmt.Errorf("%w: request_type must be %q or %q", autherr.ErrValidation, models.RequestTypeSupply, models.RequestTypeMaintenance)
	}
}

// Credits reports the caller's balance without spending it.
func (h *RequestHTTP) Credits(c echo.Context) error {
	user := authmw.UserFromContext(c)
	res, err := h.Gate.Enforce(c.Request().Context(), user, false, func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"username": user.Username}, nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Create files an office request and charges one credit for it.
func (h *RequestHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "request_create")

	var body createRequest
	if err := c.Bind(&body); err != nil {
		l.Warn("create_request_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if body.RequestType == "" {
		body.RequestType = models.RequestTypeSupply
	}
	if err := body.validate(); err != nil {
		return err
	}

	user := authmw.UserFromContext(c)
	var created models.Request
	res, err := h.Gate.Enforce(ctx, user, true, func(ctx context.Context) (map[string]any, error) {
		created = models.Request{
			UserID:      user.ID,
			Request:     strings.TrimSpace(body.Request),
			RequestType: body.RequestType,
			Status:      models.RequestStatusPending,
			IsAnonymous: body.IsAnonymous,
		}
		if !body.IsAnonymous {
			created.UserName = user.Username
		}
		if err := h.Repo.CreateRequest(ctx, &created); err != nil {
			return nil, err
		}
		return map[string]any{"message": "request created", "request": created}, nil
	})
	if err != nil {
		return err
	}

	if h.Search != nil {
		if err := h.Search.IndexRequest(ctx, created); err != nil {
			l.Warn("index_request_failed", "request_id", created.ID, "error", err)
		}
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *RequestHTTP) Mine(c echo.Context) error {
	user := authmw.UserFromContext(c)
	if user == nil {
		return autherr.ErrUnauthenticated
	}
	items, err := h.Repo.RequestsByUser(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"total": len(items), "requests": items})
}

func (h *RequestHTTP) All(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	items, total, err := h.Repo.AllRequests(c.Request().Context(), offset, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "requests": items})
}

// Search matches request text. Employees only see their own requests.
func (h *RequestHTTP) SearchRequests(c echo.Context) error {
	if h.Search == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query error")
	}

	user := authmw.UserFromContext(c)
	if user == nil {
		return autherr.ErrUnauthenticated
	}
	var owner uint
	if user.Role == models.RoleEmployee {
		owner = user.ID
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	total, items, err := h.Search.SearchRequests(c.Request().Context(), q, owner, from, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "requests": items})
}
