package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"authcore/internal/models"
	"authcore/internal/repositories"
)

type RegistrationService interface {
	// Register creates an email+password account and signs it in.
	Register(ctx context.Context, name, email, phone, password string) (*models.AuthResult, error)
}

type registrationService struct {
	db       *sql.DB
	users    repositories.UserRepository
	hasher   PasswordHasher
	policy   PasswordPolicy
	tokens   TokenService
	notifier Notifier
	log      *zap.Logger
	now      Clock
}

func NewRegistrationService(db *sql.DB, users repositories.UserRepository, hasher PasswordHasher, policy PasswordPolicy, tokens TokenService, notifier Notifier, log *zap.Logger, now Clock) RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &registrationService{
		db:       db,
		users:    users,
		hasher:   hasher,
		policy:   policy,
		tokens:   tokens,
		notifier: notifier,
		log:      log,
		now:      orSystem(now),
	}
}

func (s *registrationService) Register(ctx context.Context, name, email, phone, password string) (*models.AuthResult, error) {
	name, err := validName(name)
	if err != nil {
		return nil, err
	}
	if email, err = NormalizeEmail(email); err != nil {
		return nil, err
	}
	if phone, err = NormalizePhone(phone); err != nil {
		return nil, err
	}
	if err := s.policy.Check(password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        &email,
		Phone:        &phone,
		PasswordHash: &hash,
		CreatedAt:    s.now(),
	}
	err = repositories.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		users := s.users.WithTx(tx)
		if taken, err := exists(users.GetByEmail(ctx, email)); err != nil {
			return err
		} else if taken {
			return fmt.Errorf("%w: email", ErrDuplicateIdentity)
		}
		if taken, err := exists(users.GetByPhone(ctx, phone)); err != nil {
			return err
		} else if taken {
			return fmt.Errorf("%w: phone", ErrDuplicateIdentity)
		}
		return users.Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}
	s.log.Info("[auth][register] account created", zap.String("user_id", user.ID))

	if s.notifier != nil {
		if err := s.notifier.SendWelcome(ctx, email, name); err != nil {
			s.log.Warn("[auth][register] welcome email failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{User: user, Tokens: pair}, nil
}

func exists(_ *models.User, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repositories.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
