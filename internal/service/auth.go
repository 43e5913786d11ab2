package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/office_requests/internal/autherr"
	"github.com/Skotchmaster/office_requests/internal/events"
	"github.com/Skotchmaster/office_requests/internal/hash"
	"github.com/Skotchmaster/office_requests/internal/logging"
	"github.com/Skotchmaster/office_requests/internal/metrics"
	"github.com/Skotchmaster/office_requests/internal/models"
	"github.com/Skotchmaster/office_requests/internal/tokens"
)

// Store is the persistence the auth service needs: the credential store
// plus the revocation registry.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uint, hash string) error

	CreateAPIKey(ctx context.Context, userID uint, value string) (*models.APIKey, error)
	APIKeyByValue(ctx context.Context, value string) (*models.APIKey, error)
	APIKeyByUser(ctx context.Context, userID uint) (*models.APIKey, error)
	DeleteAPIKeysByUser(ctx context.Context, userID uint) error

	IsBlocked(ctx context.Context, id models.TokenIdentity) (bool, error)
	MarkExpiredNow(ctx context.Context, id models.TokenIdentity, expiresAt time.Time) error
	Purge(ctx context.Context, id models.TokenIdentity) error
}

type AuthService struct {
	Repo    Store
	Codec   *tokens.Codec
	Hasher  *hash.Hasher
	Events  events.Publisher
	Metrics *metrics.Metrics

	DefaultCredits int
}

type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
	Role      string
}

type LoginResult struct {
	User        *models.User
	AccessToken string
	ExpiresAt   time.Time
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", autherr.ErrValidation)
	}
	if in.Role == "" {
		in.Role = models.RoleEmployee
	}
	if !models.ValidRole(in.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", autherr.ErrValidation, in.Role)
	}

	pwHash, err := s.Hasher.HashPassword(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: pwHash,
		Credits:      s.DefaultCredits,
		Role:         in.Role,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, autherr.ErrDuplicateIdentity) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
		} else {
			l.Error("register_error", "status", 500, "error", err)
		}
		return nil, err
	}

	l.Info("register_successful", "user_id", user.ID)
	s.publish(ctx, events.Event{Type: events.UserRegistered, UserID: user.ID, Username: user.Username})
	return user, nil
}

// Authenticate checks a username/password pair. Unknown usernames and wrong
// passwords both fail with ErrInvalidCredential after the same bcrypt work.
// A match against a legacy digest is upgraded to bcrypt in place.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.authenticate", "username", username)

	user, err := s.Repo.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, autherr.ErrUserNotFound) {
			s.Hasher.BurnCompare(password)
			s.Metrics.Auth(metrics.MethodPassword, autherr.ErrInvalidCredential)
			return nil, autherr.ErrInvalidCredential
		}
		return nil, err
	}

	ok, needsRehash := s.Hasher.CheckPassword(user.PasswordHash, password)
	if !ok {
		s.Metrics.Auth(metrics.MethodPassword, autherr.ErrInvalidCredential)
		return nil, autherr.ErrInvalidCredential
	}

	if needsRehash {
		if upgraded, err := s.Hasher.HashPassword(password); err != nil {
			l.Warn("rehash_failed", "user_id", user.ID, "error", err)
		} else if err := s.Repo.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
			l.Warn("rehash_failed", "user_id", user.ID, "error", err)
		} else {
			user.PasswordHash = upgraded
			l.Info("password_rehashed", "user_id", user.ID)
		}
	}

	s.Metrics.Auth(metrics.MethodPassword, nil)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if strings.TrimSpace(username) == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", autherr.ErrValidation)
	}

	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, autherr.ErrInvalidCredential) {
			l.Warn("login_failed", "status", 401, "reason", "invalid username or password")
		} else {
			l.Error("login_failed", "status", 500, "error", err)
		}
		return nil, err
	}

	token, exp, err := s.IssueSessionToken(ctx, user)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	l.Info("login_successful", "user_id", user.ID)
	s.publish(ctx, events.Event{Type: events.UserLoggedIn, UserID: user.ID, Username: user.Username})
	return &LoginResult{User: user, AccessToken: token, ExpiresAt: exp}, nil
}

// IssueSessionToken mints a token for user with the configured lifetime.
func (s *AuthService) IssueSessionToken(ctx context.Context, user *models.User) (string, time.Time, error) {
	claims := tokens.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Credits:  user.Credits,
		Role:     user.Role,
	}
	token, exp, err := s.Codec.Issue(ctx, claims, s.Codec.TTL())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue session token: %w", err)
	}
	s.Metrics.TokenIssued()
	return token, exp, nil
}

// InvalidateSessionToken logs a token out. An already expired token is
// purged from the registry and the call still succeeds; repeating the call
// on a live token leaves it blocked.
func (s *AuthService) InvalidateSessionToken(ctx context.Context, raw string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	token := StripScheme(raw)
	if token == "" {
		return autherr.ErrMissingCredential
	}
	id := tokens.Identity(token)

	claims, err := s.Codec.Verify(token)
	switch {
	case errors.Is(err, autherr.ErrExpiredCredential):
		if err := s.Repo.Purge(ctx, id); err != nil {
			l.Error("logout_failed", "status", 500, "error", err)
			return err
		}
		l.Info("logout_successful", "reason", "token already expired")
		return nil
	case err != nil:
		l.Warn("logout_failed", "status", 401, "error", err)
		return err
	}

	if err := s.Repo.MarkExpiredNow(ctx, id, claims.ExpiresAt.Time); err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		return err
	}

	s.Metrics.TokenRevoked()
	l.Info("logout_successful", "user_id", claims.UserID)
	s.publish(ctx, events.Event{Type: events.UserLoggedOut, UserID: claims.UserID, Username: claims.Username})
	return nil
}

func (s *AuthService) publish(ctx context.Context, ev events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", ev.Type, "error", err)
	}
}
