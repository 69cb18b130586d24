package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"authcore/internal/models"
	"authcore/internal/repositories"
)

type LoginService interface {
	// Login authenticates by email and password, plus a TOTP code when the
	// account has a second factor enabled.
	Login(ctx context.Context, email, password, secondFactorCode string) (*models.AuthResult, error)
	// Refresh exchanges a valid refresh token for a new pair.
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error)
}

type loginService struct {
	users  repositories.UserRepository
	hasher PasswordHasher
	totp   *TOTPVerifier
	tokens TokenService
	log    *zap.Logger
	now    Clock
}

func NewLoginService(users repositories.UserRepository, hasher PasswordHasher, totp *TOTPVerifier, tokens TokenService, log *zap.Logger, now Clock) LoginService {
	if log == nil {
		log = zap.NewNop()
	}
	return &loginService{users: users, hasher: hasher, totp: totp, tokens: tokens, log: log, now: orSystem(now)}
}

func (s *loginService) Login(ctx context.Context, email, password, secondFactorCode string) (*models.AuthResult, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	// unknown accounts and passwordless accounts still pay for a bcrypt
	// comparison
	digest := s.hasher.DummyHash()
	if user != nil && user.HasPassword() {
		digest = *user.PasswordHash
	}
	matched := s.hasher.Verify(password, digest)
	if user == nil || !user.HasPassword() || !matched {
		s.log.Info("[auth][login] rejected", zap.Bool("known", user != nil))
		return nil, ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		code := strings.TrimSpace(secondFactorCode)
		if code == "" {
			return nil, ErrSecondFactorRequired
		}
		if user.TwoFactorSecret == nil || !s.totp.Verify(*user.TwoFactorSecret, code, s.now()) {
			s.log.Info("[auth][login] second factor rejected", zap.String("user_id", user.ID))
			return nil, ErrInvalidSecondFactor
		}
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, err
	}
	s.log.Info("[auth][login] ok", zap.String("user_id", user.ID))
	return &models.AuthResult{User: user, Tokens: pair}, nil
}

func (s *loginService) Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error) {
	claims, err := s.tokens.VerifyRefresh(strings.TrimSpace(refreshToken))
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidSignature
		}
		return nil, err
	}
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{User: user, Tokens: pair}, nil
}
