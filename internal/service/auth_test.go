package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/office_requests/internal/autherr"
	"github.com/Skotchmaster/office_requests/internal/db"
	"github.com/Skotchmaster/office_requests/internal/events"
	"github.com/Skotchmaster/office_requests/internal/hash"
	"github.com/Skotchmaster/office_requests/internal/metrics"
	"github.com/Skotchmaster/office_requests/internal/models"
	"github.com/Skotchmaster/office_requests/internal/repo"
	"github.com/Skotchmaster/office_requests/internal/tokens"
)

type capturedEvents struct {
	mu  sync.Mutex
	evs []events.Event
}

func (c *capturedEvents) Publish(_ context.Context, ev events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evs = append(c.evs, ev)
	return nil
}

func (c *capturedEvents) Close() error { return nil }

func (c *capturedEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.evs))
	for _, ev := range c.evs {
		out = append(out, ev.Type)
	}
	return out
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	svc    *AuthService
	repo   *repo.GormRepo
	clock  *testClock
	events *capturedEvents
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := db.Open(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	clk := &testClock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	r := repo.New(gdb)
	r.Now = clk.Now

	codec, err := tokens.NewCodec(tokens.Config{Secret: []byte("test-jwt-secret"), TTL: 2 * time.Hour, Now: clk.Now}, r)
	require.NoError(t, err)

	ev := &capturedEvents{}
	svc := &AuthService{
		Repo:           r,
		Codec:          codec,
		Hasher:         hash.New(bcrypt.MinCost),
		Events:         ev,
		Metrics:        metrics.NewWithRegisterer(prometheus.NewRegistry()),
		DefaultCredits: 1,
	}
	return &testEnv{svc: svc, repo: r, clock: clk, events: ev}
}

func (env *testEnv) register(t *testing.T, username, password string) *models.User {
	t.Helper()

	u, err := env.svc.Register(context.Background(), RegisterInput{Username: username, Password: password, Email: username + "@example.com"})
	require.NoError(t, err)
	return u
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "empty username", in: RegisterInput{Password: "secret"}},
		{name: "blank username", in: RegisterInput{Username: "   ", Password: "secret"}},
		{name: "empty password", in: RegisterInput{Username: "user"}},
		{name: "unknown role", in: RegisterInput{Username: "user", Password: "secret", Role: "boss"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, autherr.ErrValidation)
		})
	}
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	u := env.register(t, "alice", "pw123")

	assert.NotZero(t, u.ID)
	assert.Equal(t, 1, u.Credits)
	assert.Equal(t, models.RoleEmployee, u.Role)
	assert.NotEqual(t, "pw123", u.PasswordHash)
	assert.False(t, hash.IsLegacy(u.PasswordHash))
	assert.Equal(t, []string{events.UserRegistered}, env.events.types())

	_, err := env.svc.Register(context.Background(), RegisterInput{Username: "alice", Password: "other"})
	assert.ErrorIs(t, err, autherr.ErrDuplicateIdentity)
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "pw123")

	u, err := env.svc.Authenticate(ctx, "alice", "pw123")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = env.svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, autherr.ErrInvalidCredential)

	_, err = env.svc.Authenticate(ctx, "nobody", "pw123")
	assert.ErrorIs(t, err, autherr.ErrInvalidCredential)
}

func TestAuthService_Authenticate_UpgradesLegacyHash(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	legacy := &models.User{Username: "old", PasswordHash: hash.LegacyDigest("pw"), Credits: 1, Role: models.RoleEmployee}
	require.NoError(t, env.repo.CreateUser(ctx, legacy))

	_, err := env.svc.Authenticate(ctx, "old", "nope")
	assert.ErrorIs(t, err, autherr.ErrInvalidCredential)

	u, err := env.svc.Authenticate(ctx, "old", "pw")
	require.NoError(t, err)
	assert.False(t, hash.IsLegacy(u.PasswordHash))

	stored, err := env.repo.UserByID(ctx, legacy.ID)
	require.NoError(t, err)
	assert.False(t, hash.IsLegacy(stored.PasswordHash))

	_, err = env.svc.Authenticate(ctx, "old", "pw")
	assert.NoError(t, err)
}

func TestAuthService_Login_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: "", password: "secret"},
		{name: "empty password", username: "user", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.svc.Login(context.Background(), tt.username, tt.password)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, autherr.ErrValidation)
		})
	}
}

func TestAuthService_LoginLogoutScenario(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "pw123")

	res, err := env.svc.Login(ctx, "alice", "pw123")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	assert.True(t, res.ExpiresAt.Equal(env.clock.Now().Add(2*time.Hour)))

	u, err := env.svc.IdentityFromRequest(ctx, "Bearer "+res.AccessToken, "")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	u, err = env.svc.IdentityFromRequest(ctx, res.AccessToken, "")
	require.NoError(t, err, "bare token without a scheme is accepted")
	assert.Equal(t, alice.ID, u.ID)

	require.NoError(t, env.svc.InvalidateSessionToken(ctx, "Bearer "+res.AccessToken))

	_, err = env.svc.IdentityFromRequest(ctx, "Bearer "+res.AccessToken, "")
	assert.ErrorIs(t, err, autherr.ErrRevokedCredential)

	require.NoError(t, env.svc.InvalidateSessionToken(ctx, res.AccessToken), "logout is idempotent")
	_, err = env.svc.IdentityFromRequest(ctx, res.AccessToken, "")
	assert.ErrorIs(t, err, autherr.ErrRevokedCredential)

	assert.Equal(t, []string{events.UserRegistered, events.UserLoggedIn, events.UserLoggedOut, events.UserLoggedOut}, env.events.types())
}

func TestAuthService_ExpiredTokens(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "bob", "pw")

	live, err := env.svc.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	revoked, err := env.svc.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	if live.AccessToken == revoked.AccessToken {
		env.clock.Advance(time.Second)
		revoked, err = env.svc.Login(ctx, "bob", "pw")
		require.NoError(t, err)
	}
	require.NoError(t, env.svc.InvalidateSessionToken(ctx, revoked.AccessToken))

	env.clock.Advance(3 * time.Hour)

	_, err = env.svc.IdentityFromRequest(ctx, live.AccessToken, "")
	assert.ErrorIs(t, err, autherr.ErrExpiredCredential)

	_, err = env.svc.IdentityFromRequest(ctx, revoked.AccessToken, "")
	assert.ErrorIs(t, err, autherr.ErrExpiredCredential, "a revocation past its expiry no longer answers blocked")

	require.NoError(t, env.svc.InvalidateSessionToken(ctx, live.AccessToken))
	_, err = env.repo.RegistryEntry(ctx, tokens.Identity(live.AccessToken))
	assert.Error(t, err, "logout of an expired token purges its entry")
}

func TestAuthService_InvalidateSessionToken_Errors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, env.svc.InvalidateSessionToken(ctx, ""), autherr.ErrMissingCredential)
	assert.ErrorIs(t, env.svc.InvalidateSessionToken(ctx, "Bearer garbage"), autherr.ErrMalformedCredential)
}

func TestAuthService_IdentityFromRequest(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "pw")
	bob := env.register(t, "bob", "pw")

	bobKey, err := env.svc.CreateAPIKey(ctx, bob)
	require.NoError(t, err)

	res, err := env.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := env.svc.IdentityFromRequest(ctx, "", "  ")
		assert.ErrorIs(t, err, autherr.ErrMissingCredential)
	})

	t.Run("api key", func(t *testing.T) {
		u, err := env.svc.IdentityFromRequest(ctx, "", bobKey)
		require.NoError(t, err)
		assert.Equal(t, bob.ID, u.ID)
	})

	t.Run("unknown api key", func(t *testing.T) {
		_, err := env.svc.IdentityFromRequest(ctx, "", "no-such-key")
		assert.ErrorIs(t, err, autherr.ErrInvalidCredential)
	})

	t.Run("bearer wins over api key", func(t *testing.T) {
		u, err := env.svc.IdentityFromRequest(ctx, "Bearer "+res.AccessToken, bobKey)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, u.ID)
	})

	t.Run("malformed bearer", func(t *testing.T) {
		_, err := env.svc.IdentityFromRequest(ctx, "Bearer not-a-jwt", "")
		assert.ErrorIs(t, err, autherr.ErrMalformedCredential)
	})

	t.Run("scheme only", func(t *testing.T) {
		_, err := env.svc.IdentityFromRequest(ctx, "Bearer ", "")
		assert.ErrorIs(t, err, autherr.ErrMalformedCredential)
	})
}

func TestAuthService_IdentityFromRequest_DeletedUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	carol := env.register(t, "carol", "pw")

	res, err := env.svc.Login(ctx, "carol", "pw")
	require.NoError(t, err)

	require.NoError(t, env.repo.DB.Delete(&models.User{}, carol.ID).Error)

	_, err = env.svc.IdentityFromRequest(ctx, res.AccessToken, "")
	assert.ErrorIs(t, err, autherr.ErrUserNotFound)
}

func TestAuthService_APIKeys(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	dave := env.register(t, "dave", "pw")

	_, err := env.svc.APIKey(ctx, dave)
	assert.ErrorIs(t, err, autherr.ErrAPIKeyNotFound)

	key, err := env.svc.CreateAPIKey(ctx, dave)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	again, err := env.svc.CreateAPIKey(ctx, dave)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	got, err := env.svc.APIKey(ctx, dave)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	require.NoError(t, env.svc.DeleteAPIKey(ctx, dave))
	assert.ErrorIs(t, env.svc.DeleteAPIKey(ctx, dave), autherr.ErrAPIKeyNotFound)

	_, err = env.svc.IdentityFromRequest(ctx, "", key)
	assert.ErrorIs(t, err, autherr.ErrInvalidCredential)

	_, err = env.svc.CreateAPIKey(ctx, nil)
	assert.ErrorIs(t, err, autherr.ErrUnauthenticated)
}

func TestStripScheme(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"abc", "abc"},
		{"  abc  ", "abc"},
		{"Token  abc", "abc"},
		{"Bearer a b", "a"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripScheme(tt.in), tt.in)
	}
}
