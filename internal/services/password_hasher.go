package services

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches digest. A malformed digest is
	// a mismatch, never an error.
	Verify(password, digest string) bool
	// DummyHash is compared against when no real digest exists so a missing
	// account costs as much as a wrong password.
	DummyHash() string
}

type bcryptHasher struct {
	cost  int
	dummy string
}

func NewPasswordHasher(cost int) (PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("authcore-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	return &bcryptHasher{cost: cost, dummy: string(dummy)}, nil
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is required", ErrValidation)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password must be at most 72 bytes", ErrValidation)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (h *bcryptHasher) Verify(password, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

func (h *bcryptHasher) DummyHash() string { return h.dummy }
