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

// OneTimeProofRepository persists phone codes and reset tokens in one table.
// Rows are only ever inserted or stamped consumed; nothing here deletes.
type OneTimeProofRepository interface {
	Create(ctx context.Context, proof *models.OneTimeProof) error
	// LatestActiveBySubject returns the newest unconsumed, unexpired proof of
	// kind for subject, or ErrNotFound.
	LatestActiveBySubject(ctx context.Context, kind models.ProofKind, subject string, at time.Time) (*models.OneTimeProof, error)
	// LatestActiveByHash is the lookup for self-identifying reset tokens.
	LatestActiveByHash(ctx context.Context, kind models.ProofKind, valueHash string, at time.Time) (*models.OneTimeProof, error)
	// MarkConsumed stamps consumed_at only if it is still NULL and the proof
	// has not expired. It reports whether this call won.
	MarkConsumed(ctx context.Context, id string, at time.Time) (bool, error)

	WithTx(tx *sql.Tx) OneTimeProofRepository
}

type oneTimeProofRepository struct {
	DB DBTX
}

func NewOneTimeProofRepository(db DBTX) OneTimeProofRepository {
	return &oneTimeProofRepository{DB: db}
}

func (r *oneTimeProofRepository) WithTx(tx *sql.Tx) OneTimeProofRepository {
	return &oneTimeProofRepository{DB: tx}
}

func (r *oneTimeProofRepository) Create(ctx context.Context, p *models.OneTimeProof) error {
	if !p.Kind.Valid() {
		return fmt.Errorf("create proof: unknown kind %q", p.Kind)
	}
	if p.ID == "" {
		// v7 keeps ids ordered when created_at collides
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("create proof: %w", err)
		}
		p.ID = id.String()
	}
	const q = `
		INSERT INTO one_time_proofs (id, kind, subject, value_hash, created_at, expires_at, consumed_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL)
	`
	if _, err := r.DB.ExecContext(ctx, q,
		p.ID, string(p.Kind), p.Subject, p.ValueHash, toMillis(p.CreatedAt), toMillis(p.ExpiresAt),
	); err != nil {
		return fmt.Errorf("create proof: %w", err)
	}
	return nil
}

const proofColumns = `id, kind, subject, value_hash, created_at, expires_at, consumed_at`

func (r *oneTimeProofRepository) LatestActiveBySubject(ctx context.Context, kind models.ProofKind, subject string, at time.Time) (*models.OneTimeProof, error) {
	const q = `
		SELECT ` + proofColumns + `
		FROM one_time_proofs
		WHERE kind = $1 AND subject = $2 AND consumed_at IS NULL AND expires_at > $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return r.getOne(ctx, q, string(kind), subject, toMillis(at))
}

func (r *oneTimeProofRepository) LatestActiveByHash(ctx context.Context, kind models.ProofKind, valueHash string, at time.Time) (*models.OneTimeProof, error) {
	const q = `
		SELECT ` + proofColumns + `
		FROM one_time_proofs
		WHERE kind = $1 AND value_hash = $2 AND consumed_at IS NULL AND expires_at > $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return r.getOne(ctx, q, string(kind), valueHash, toMillis(at))
}

func (r *oneTimeProofRepository) getOne(ctx context.Context, q string, args ...any) (*models.OneTimeProof, error) {
	var (
		p          models.OneTimeProof
		kind       string
		createdAt  int64
		expiresAt  int64
		consumedAt sql.NullInt64
	)
	err := r.DB.QueryRowContext(ctx, q, args...).Scan(
		&p.ID, &kind, &p.Subject, &p.ValueHash, &createdAt, &expiresAt, &consumedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get proof: %w", err)
	}
	p.Kind = models.ProofKind(kind)
	p.CreatedAt = fromMillis(createdAt)
	p.ExpiresAt = fromMillis(expiresAt)
	p.ConsumedAt = timePtr(consumedAt)
	return &p, nil
}

func (r *oneTimeProofRepository) MarkConsumed(ctx context.Context, id string, at time.Time) (bool, error) {
	const q = `
		UPDATE one_time_proofs
		SET consumed_at = $1
		WHERE id = $2 AND consumed_at IS NULL AND expires_at > $1
	`
	res, err := r.DB.ExecContext(ctx, q, toMillis(at), id)
	if err != nil {
		return false, fmt.Errorf("mark proof consumed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark proof consumed: %w", err)
	}
	return n == 1, nil
}
