package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"authcore/internal/models"
	"authcore/internal/repositories"
	"authcore/internal/utils"
)

// ValueGenerator produces the raw secret for a new proof.
type ValueGenerator func() (string, error)

func NumericCode(digits int) ValueGenerator {
	return func() (string, error) { return utils.NewNumericCode(digits) }
}

func OpaqueToken(nBytes int) ValueGenerator {
	return func() (string, error) { return utils.NewOpaqueToken(nBytes) }
}

// ProofStore issues and consumes one-time proofs. Only the newest active
// proof for a subject is consumable and each proof succeeds at most once.
type ProofStore struct {
	repo repositories.OneTimeProofRepository
	now  Clock
}

func NewProofStore(repo repositories.OneTimeProofRepository, now Clock) *ProofStore {
	return &ProofStore{repo: repo, now: orSystem(now)}
}

// WithTx binds the store to tx so consumption commits or rolls back with the
// caller's other writes.
func (s *ProofStore) WithTx(tx *sql.Tx) *ProofStore {
	return &ProofStore{repo: s.repo.WithTx(tx), now: s.now}
}

// Issue stores a new proof and returns the raw value. The raw value is
// never persisted.
func (s *ProofStore) Issue(ctx context.Context, kind models.ProofKind, subject string, ttl time.Duration, gen ValueGenerator) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("%w: proof subject is required", ErrValidation)
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("proof ttl must be positive")
	}
	value, err := gen()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate proof value: %w", err)
	}
	now := s.now()
	p := &models.OneTimeProof{
		Kind:      kind,
		Subject:   subject,
		ValueHash: utils.HashValue(value),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return "", time.Time{}, err
	}
	return value, p.ExpiresAt, nil
}

// Consume checks value against the newest active proof of kind for subject
// and marks it consumed. An empty subject means the value identifies itself
// (reset tokens); the resolved subject is returned.
//
// Every mismatch, expiry, supersession or lost race is
// ErrExpiredOrInvalidProof.
func (s *ProofStore) Consume(ctx context.Context, kind models.ProofKind, subject, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrExpiredOrInvalidProof
	}
	now := s.now()
	hash := utils.HashValue(value)

	if subject == "" {
		p, err := s.repo.LatestActiveByHash(ctx, kind, hash, now)
		if err != nil {
			return "", s.lookupErr(err)
		}
		subject = p.Subject
	}

	latest, err := s.repo.LatestActiveBySubject(ctx, kind, subject, now)
	if err != nil {
		return "", s.lookupErr(err)
	}
	if !latest.ActiveAt(now) {
		return "", ErrExpiredOrInvalidProof
	}
	if subtle.ConstantTimeCompare([]byte(latest.ValueHash), []byte(hash)) != 1 {
		return "", ErrExpiredOrInvalidProof
	}
	won, err := s.repo.MarkConsumed(ctx, latest.ID, now)
	if err != nil {
		return "", err
	}
	if !won {
		return "", ErrExpiredOrInvalidProof
	}
	return subject, nil
}

func (s *ProofStore) lookupErr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrExpiredOrInvalidProof
	}
	return err
}
