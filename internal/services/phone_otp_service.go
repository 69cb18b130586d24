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

const phoneCodeDigits = 6

type PhoneOTPService interface {
	// RequestCode issues a fresh code for phone and hands it to the
	// notifier. Any earlier code for the phone stops being consumable.
	RequestCode(ctx context.Context, phone string) error
	// VerifyCode consumes the code and returns tokens for the account
	// owning the phone, creating it on first login.
	VerifyCode(ctx context.Context, phone, code string) (*models.AuthResult, error)
}

type phoneOTPService struct {
	db       *sql.DB
	users    repositories.UserRepository
	proofs   *ProofStore
	tokens   TokenService
	notifier Notifier
	ttl      time.Duration
	log      *zap.Logger
	now      Clock
}

func NewPhoneOTPService(db *sql.DB, users repositories.UserRepository, proofs *ProofStore, tokens TokenService, notifier Notifier, ttl time.Duration, log *zap.Logger, now Clock) PhoneOTPService {
	if log == nil {
		log = zap.NewNop()
	}
	return &phoneOTPService{
		db:       db,
		users:    users,
		proofs:   proofs,
		tokens:   tokens,
		notifier: notifier,
		ttl:      ttl,
		log:      log,
		now:      orSystem(now),
	}
}

func (s *phoneOTPService) RequestCode(ctx context.Context, phone string) error {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return err
	}
	code, expiresAt, err := s.proofs.Issue(ctx, models.ProofPhoneOTP, phone, s.ttl, NumericCode(phoneCodeDigits))
	if err != nil {
		return fmt.Errorf("issue phone code: %w", err)
	}
	if s.notifier != nil {
		if err := s.notifier.SendPhoneCode(ctx, phone, code, expiresAt); err != nil {
			s.log.Error("[auth][otp] delivery failed", zap.String("phone", phone), zap.Error(err))
		}
	}
	s.log.Info("[auth][otp] code issued", zap.String("phone", phone), zap.Time("expires_at", expiresAt))
	return nil
}

func (s *phoneOTPService) VerifyCode(ctx context.Context, phone, code string) (*models.AuthResult, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if !codePattern.MatchString(code) {
		return nil, ErrInvalidOrExpiredCode
	}

	now := s.now()
	var user *models.User
	err = repositories.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.proofs.WithTx(tx).Consume(ctx, models.ProofPhoneOTP, phone, code); err != nil {
			return err
		}
		users := s.users.WithTx(tx)
		u, err := users.GetByPhone(ctx, phone)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			u = &models.User{
				Name:            "Guest",
				Phone:           &phone,
				PhoneVerifiedAt: &now,
				CreatedAt:       now,
			}
			if err := users.Create(ctx, u); err != nil {
				return err
			}
			s.log.Info("[auth][otp] account created", zap.String("user_id", u.ID))
		case err != nil:
			return err
		case u.PhoneVerifiedAt == nil:
			if err := users.MarkPhoneVerified(ctx, u.ID, now); err != nil {
				return err
			}
			u.PhoneVerifiedAt = &now
		}
		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrExpiredOrInvalidProof) {
			s.log.Info("[auth][otp] code rejected", zap.String("phone", phone))
			return nil, ErrInvalidOrExpiredCode
		}
		return nil, err
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{User: user, Tokens: pair}, nil
}
