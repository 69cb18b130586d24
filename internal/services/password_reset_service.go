package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"authcore/internal/models"
	"authcore/internal/repositories"
)

const resetTokenBytes = 32

type PasswordResetService interface {
	// RequestReset behaves identically whether or not email is registered.
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type passwordResetService struct {
	db       *sql.DB
	users    repositories.UserRepository
	proofs   *ProofStore
	hasher   PasswordHasher
	policy   PasswordPolicy
	notifier Notifier
	ttl      time.Duration
	log      *zap.Logger
	now      Clock
}

func NewPasswordResetService(db *sql.DB, users repositories.UserRepository, proofs *ProofStore, hasher PasswordHasher, policy PasswordPolicy, notifier Notifier, ttl time.Duration, log *zap.Logger, now Clock) PasswordResetService {
	if log == nil {
		log = zap.NewNop()
	}
	return &passwordResetService{
		db:       db,
		users:    users,
		proofs:   proofs,
		hasher:   hasher,
		policy:   policy,
		notifier: notifier,
		ttl:      ttl,
		log:      log,
		now:      orSystem(now),
	}
}

func (s *passwordResetService) RequestReset(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// don't leak existence
			s.log.Debug("[password-reset] request for unknown email")
			return nil
		}
		return err
	}

	token, expiresAt, err := s.proofs.Issue(ctx, models.ProofResetToken, user.EmailValue(), s.ttl, OpaqueToken(resetTokenBytes))
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	if s.notifier != nil {
		if err := s.notifier.SendPasswordReset(ctx, user.EmailValue(), token, expiresAt); err != nil {
			s.log.Error("[password-reset] delivery failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	s.log.Info("[password-reset] token issued", zap.String("user_id", user.ID))
	return nil
}

func (s *passwordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrValidation)
	}
	if err := s.policy.Check(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	now := s.now()
	var userID string
	err = repositories.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		email, err := s.proofs.WithTx(tx).Consume(ctx, models.ProofResetToken, "", token)
		if err != nil {
			return err
		}
		users := s.users.WithTx(tx)
		user, err := users.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrExpiredOrInvalidProof
			}
			return err
		}
		userID = user.ID
		return users.UpdatePassword(ctx, user.ID, hash, now)
	})
	if err != nil {
		if errors.Is(err, ErrExpiredOrInvalidProof) {
			s.log.Info("[password-reset] token rejected")
		}
		return err
	}
	s.log.Info("[password-reset] password updated", zap.String("user_id", userID))
	return nil
}
