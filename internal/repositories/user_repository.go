package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"authcore/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail expects an already lowercased email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)

	UpdatePassword(ctx context.Context, userID, passwordHash string, at time.Time) error
	MarkPhoneVerified(ctx context.Context, userID string, at time.Time) error
	SetTwoFactor(ctx context.Context, userID string, secret *string, enabled bool, at time.Time) error

	WithTx(tx *sql.Tx) UserRepository
}

type userRepository struct {
	DB DBTX
}

func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) WithTx(tx *sql.Tx) UserRepository {
	return &userRepository{DB: tx}
}

const userColumns = `
	id, name, email, phone, password_hash,
	two_factor_secret, two_factor_enabled, phone_verified_at,
	created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = user.CreatedAt

	const q = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`
	_, err := r.DB.ExecContext(ctx, q,
		user.ID,
		user.Name,
		nullString(user.Email),
		nullString(user.Phone),
		nullString(user.PasswordHash),
		nullString(user.TwoFactorSecret),
		user.TwoFactorEnabled,
		nullMillis(user.PhoneVerifiedAt),
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT`+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.getOne(ctx, `SELECT`+userColumns+` FROM users WHERE phone = $1`, phone)
}

func (r *userRepository) getOne(ctx context.Context, q string, arg any) (*models.User, error) {
	u := &models.User{}
	var (
		email           sql.NullString
		phone           sql.NullString
		passwordHash    sql.NullString
		twoFactorSecret sql.NullString
		phoneVerifiedAt sql.NullInt64
		createdAt       int64
		updatedAt       int64
	)
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Name, &email, &phone, &passwordHash,
		&twoFactorSecret, &u.TwoFactorEnabled, &phoneVerifiedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Email = stringPtr(email)
	u.Phone = stringPtr(phone)
	u.PasswordHash = stringPtr(passwordHash)
	u.TwoFactorSecret = stringPtr(twoFactorSecret)
	u.PhoneVerifiedAt = timePtr(phoneVerifiedAt)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, at time.Time) error {
	const q = `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	return r.execOne(ctx, "update password", q, passwordHash, toMillis(at), userID)
}

// MarkPhoneVerified only sets the timestamp the first time.
func (r *userRepository) MarkPhoneVerified(ctx context.Context, userID string, at time.Time) error {
	const q = `
		UPDATE users
		SET phone_verified_at = COALESCE(phone_verified_at, $1), updated_at = $1
		WHERE id = $2
	`
	return r.execOne(ctx, "mark phone verified", q, toMillis(at), userID)
}

func (r *userRepository) SetTwoFactor(ctx context.Context, userID string, secret *string, enabled bool, at time.Time) error {
	const q = `
		UPDATE users
		SET two_factor_secret = $1, two_factor_enabled = $2, updated_at = $3
		WHERE id = $4
	`
	return r.execOne(ctx, "set two factor", q, nullString(secret), enabled, toMillis(at), userID)
}

func (r *userRepository) execOne(ctx context.Context, op, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
