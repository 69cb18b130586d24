package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"authcore/internal/models"
	"authcore/internal/repositories"
)

// SecondFactorService manages the TOTP secret checked by Login.
type SecondFactorService interface {
	// Enroll stores a pending secret. It is not enforced until Confirm.
	Enroll(ctx context.Context, userID string) (*models.TwoFactorEnrollment, error)
	Confirm(ctx context.Context, userID, code string) error
	Disable(ctx context.Context, userID, code string) error
}

type secondFactorService struct {
	users repositories.UserRepository
	totp  *TOTPVerifier
	log   *zap.Logger
	now   Clock
}

func NewSecondFactorService(users repositories.UserRepository, totp *TOTPVerifier, log *zap.Logger, now Clock) SecondFactorService {
	if log == nil {
		log = zap.NewNop()
	}
	return &secondFactorService{users: users, totp: totp, log: log, now: orSystem(now)}
}

func (s *secondFactorService) Enroll(ctx context.Context, userID string) (*models.TwoFactorEnrollment, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, fmt.Errorf("%w: second factor already enabled", ErrValidation)
	}
	account := user.EmailValue()
	if account == "" {
		account = user.PhoneValue()
	}
	if account == "" {
		account = user.ID
	}
	secret, url, err := s.totp.NewSecret(account)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetTwoFactor(ctx, user.ID, &secret, false, s.now()); err != nil {
		return nil, err
	}
	s.log.Info("[auth][2fa] enrollment started", zap.String("user_id", user.ID))
	return &models.TwoFactorEnrollment{Secret: secret, OTPAuthURL: url}, nil
}

func (s *secondFactorService) Confirm(ctx context.Context, userID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return fmt.Errorf("%w: no pending enrollment", ErrValidation)
	}
	now := s.now()
	if !s.totp.Verify(*user.TwoFactorSecret, code, now) {
		return ErrInvalidSecondFactor
	}
	if err := s.users.SetTwoFactor(ctx, user.ID, user.TwoFactorSecret, true, now); err != nil {
		return err
	}
	s.log.Info("[auth][2fa] enabled", zap.String("user_id", user.ID))
	return nil
}

func (s *secondFactorService) Disable(ctx context.Context, userID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return fmt.Errorf("%w: second factor is not enabled", ErrValidation)
	}
	now := s.now()
	if !s.totp.Verify(*user.TwoFactorSecret, code, now) {
		return ErrInvalidSecondFactor
	}
	if err := s.users.SetTwoFactor(ctx, user.ID, nil, false, now); err != nil {
		return err
	}
	s.log.Info("[auth][2fa] disabled", zap.String("user_id", user.ID))
	return nil
}
