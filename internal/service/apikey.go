package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/office_requests/internal/autherr"
	"github.com/Skotchmaster/office_requests/internal/logging"
	"github.com/Skotchmaster/office_requests/internal/models"
)

func newAPIKeyValue() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateAPIKey returns the user's existing key when one is already on file.
func (s *AuthService) CreateAPIKey(ctx context.Context, user *models.User) (string, error) {
	if user == nil {
		return "", autherr.ErrUnauthenticated
	}

	existing, err := s.Repo.APIKeyByUser(ctx, user.ID)
	switch {
	case err == nil:
		return existing.Key, nil
	case !errors.Is(err, autherr.ErrAPIKeyNotFound):
		return "", err
	}

	key, err := s.Repo.CreateAPIKey(ctx, user.ID, newAPIKeyValue())
	if err != nil {
		return "", err
	}
	logging.FromContext(ctx).Info("api_key_created", "svc", "auth.api_key", "user_id", user.ID)
	return key.Key, nil
}

func (s *AuthService) APIKey(ctx context.Context, user *models.User) (string, error) {
	if user == nil {
		return "", autherr.ErrUnauthenticated
	}
	key, err := s.Repo.APIKeyByUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	return key.Key, nil
}

func (s *AuthService) DeleteAPIKey(ctx context.Context, user *models.User) error {
	if user == nil {
		return autherr.ErrUnauthenticated
	}
	if err := s.Repo.DeleteAPIKeysByUser(ctx, user.ID); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("api_key_deleted", "svc", "auth.api_key", "user_id", user.ID)
	return nil
}
