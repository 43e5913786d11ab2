// Package tokens issues and verifies the signed session tokens handed out
// at login. Tokens are HS256 JWTs; every issued token is also registered
// with the revocation registry under its TokenIdentity.
package tokens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Skotchmaster/office_requests/internal/autherr"
	"github.com/Skotchmaster/office_requests/internal/models"
)

type Claims struct {
	UserID   uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Credits  int    `json:"credits"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Config is fixed at construction.
type Config struct {
	Secret []byte
	TTL    time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type Registry interface {
	Register(ctx context.Context, id models.TokenIdentity, expiresAt time.Time) error
}

type Codec struct {
	cfg      Config
	registry Registry
}

var ErrEmptySecret = errors.New("token secret is empty")

func NewCodec(cfg Config, registry Registry) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrEmptySecret
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{cfg: cfg, registry: registry}, nil
}

func (c *Codec) TTL() time.Duration { return c.cfg.TTL }

func (c *Codec) now() time.Time { return c.cfg.Now().UTC() }

// Identity derives the registry key of an encoded token.
func Identity(token string) models.TokenIdentity {
	sum := sha256.Sum256([]byte(token))
	return models.TokenIdentity(hex.EncodeToString(sum[:]))
}

// Issue signs claims with an expiry of now+ttl (ttl <= 0 uses the configured
// TTL) and registers the token before handing it out. Each token gets a
// fresh jti, so two logins in the same second never share a registry row.
func (c *Codec) Issue(ctx context.Context, claims Claims, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = c.cfg.TTL
	}
	now := c.now()
	exp := now.Add(ttl)
	claims.ID = uuid.NewString()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(exp)
	exp = claims.ExpiresAt.Time

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	if c.registry != nil {
		if err := c.registry.Register(ctx, Identity(signed), exp); err != nil {
			return "", time.Time{}, err
		}
	}
	return signed, exp, nil
}

// Verify checks the signature and the embedded expiry. The expiry is an
// exclusive bound: a token checked at exactly its exp instant is expired.
// Revocation is not consulted here. On ErrExpiredCredential the decoded
// claims are returned alongside the error.
func (c *Codec) Verify(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", autherr.ErrMalformedCredential, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", autherr.ErrMalformedCredential)
	}
	if !c.now().Before(claims.ExpiresAt.Time) {
		return &claims, autherr.ErrExpiredCredential
	}
	return &claims, nil
}
