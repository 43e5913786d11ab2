package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)
	hashed, err := h.HashPassword("pw1")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", hashed)

	ok, rehash := h.CheckPassword(hashed, "pw1")
	assert.True(t, ok)
	assert.False(t, rehash)

	ok, _ = h.CheckPassword(hashed, "pw2")
	assert.False(t, ok)
}

func TestHasher_SaltsEveryHash(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)
	a, err := h.HashPassword("same")
	require.NoError(t, err)
	b, err := h.HashPassword("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHasher_LegacyDigest(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)
	legacy := LegacyDigest("pw1")
	require.True(t, IsLegacy(legacy))

	ok, rehash := h.CheckPassword(legacy, "pw1")
	assert.True(t, ok)
	assert.True(t, rehash)

	ok, _ = h.CheckPassword(legacy, "nope")
	assert.False(t, ok)
}

func TestNew_ClampsCost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, New(0).Cost)
	assert.Equal(t, bcrypt.DefaultCost, New(99).Cost)
}
