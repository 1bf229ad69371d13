package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PlaceholderPasswordHash is stored for users created from an external
// identity. It is not a valid bcrypt hash, so password verification against
// it always fails; external users cannot log in with a password.
const PlaceholderPasswordHash = "-"

// defaultCost is the bcrypt work factor. Cost 10 takes ~60ms on current
// server hardware; raise it if logins stay comfortably under ~300ms.
const defaultCost = 10

// PasswordService provides bcrypt hashing and verification.
//
// It is a struct rather than free functions so tests can inject a lower
// cost: cost 4 (the bcrypt minimum) makes test suites fast without
// changing the logic under test.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost.
// Use bcrypt.MinCost in tests; never in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the plaintext with bcrypt. The output embeds the salt and
// cost, so it can be stored as a single column and verified later without
// any extra bookkeeping.
//
// bcrypt silently truncates inputs over 72 bytes; we reject them instead
// so callers are not surprised.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks a plaintext password against a stored bcrypt hash.
// Returns nil on match. The comparison is constant-time inside bcrypt.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		// A malformed stored hash (e.g. the external-user placeholder)
		// lands here; it is still just a failed verification to callers.
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
