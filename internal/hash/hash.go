package hash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var legacyDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

type Hasher struct {
	Cost int

	// dummy is compared against when the user does not exist so both
	// branches of a login spend the same bcrypt work.
	dummy []byte
}

func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("office-requests-dummy"), cost)
	return &Hasher{Cost: cost, dummy: dummy}
}

func (h *Hasher) HashPassword(password string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}

	return string(hashbytes), nil
}

// CheckPassword reports whether password matches hash. needsRehash is set
// when hash is an unsalted sha256 hex digest from the previous scheme and
// should be replaced by a bcrypt hash.
func (h *Hasher) CheckPassword(hash, password string) (ok, needsRehash bool) {
	if IsLegacy(hash) {
		sum := sha256.Sum256([]byte(password))
		got := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1, true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, false
}

func (h *Hasher) BurnCompare(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}

func IsLegacy(hash string) bool {
	return legacyDigest.MatchString(hash)
}

func LegacyDigest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
