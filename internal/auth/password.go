// ABOUTME: bcrypt password hashing with a fixed dummy hash for unknown accounts
// ABOUTME: Keeps login timing the same whether or not the email exists

package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 12

// Hasher hashes and verifies passwords at a fixed bcrypt cost.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewHasher returns a Hasher. Costs outside bcrypt's range fall back to
// DefaultBcryptCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", &ValidationError{Field: "password", Message: "password must be at most 72 bytes"}
		}
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Matches reports whether password matches hash.
func (h *Hasher) Matches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Burn performs a comparison against a dummy hash of the same cost so that
// failed lookups take as long as real password checks.
func (h *Hasher) Burn(password string) {
	h.dummyOnce.Do(func() {
		h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("retinal-dummy-password"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
}
