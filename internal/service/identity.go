package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Skotchmaster/office_requests/internal/autherr"
	"github.com/Skotchmaster/office_requests/internal/metrics"
	"github.com/Skotchmaster/office_requests/internal/models"
	"github.com/Skotchmaster/office_requests/internal/tokens"
)

// StripScheme drops a leading auth scheme ("Bearer x" -> "x"). Only the
// first field after the scheme is kept; a bare value is returned trimmed.
func StripScheme(raw string) string {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	default:
		return fields[1]
	}
}

// IdentityFromRequest resolves the caller from either credential. The
// bearer token wins when both are present.
func (s *AuthService) IdentityFromRequest(ctx context.Context, bearer, apiKey string) (*models.User, error) {
	bearer = strings.TrimSpace(bearer)
	apiKey = strings.TrimSpace(apiKey)

	switch {
	case bearer != "":
		user, err := s.userFromToken(ctx, bearer)
		s.Metrics.Auth(metrics.MethodToken, err)
		return user, err
	case apiKey != "":
		user, err := s.userFromAPIKey(ctx, apiKey)
		s.Metrics.Auth(metrics.MethodAPIKey, err)
		return user, err
	default:
		return nil, autherr.ErrMissingCredential
	}
}

func (s *AuthService) userFromToken(ctx context.Context, bearer string) (*models.User, error) {
	token := StripScheme(bearer)
	if token == "" {
		return nil, autherr.ErrMalformedCredential
	}

	blocked, err := s.Repo.IsBlocked(ctx, tokens.Identity(token))
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, autherr.ErrRevokedCredential
	}

	claims, err := s.Codec.Verify(token)
	if err != nil {
		return nil, err
	}

	return s.Repo.UserByID(ctx, claims.UserID)
}

func (s *AuthService) userFromAPIKey(ctx context.Context, value string) (*models.User, error) {
	key, err := s.Repo.APIKeyByValue(ctx, value)
	if err != nil {
		if errors.Is(err, autherr.ErrAPIKeyNotFound) {
			return nil, autherr.ErrInvalidCredential
		}
		return nil, err
	}
	return s.Repo.UserByID(ctx, key.UserID)
}
