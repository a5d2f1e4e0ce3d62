package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bioclub/refledger/internal/apperrors"
	"github.com/bioclub/refledger/internal/models"
)

type ReferralRepo struct {
	DB DBTX
}

const createReferral = `-- name: CreateReferral
INSERT INTO referrals (id, referrer_id, referred_user_id, status)
VALUES ($1, $2, $3, 'pending')
RETURNING id, referrer_id, referred_user_id, status, created_at
`

// Insert the referral edge
// The (referrer, referred) pair uniqueness is enforced by the database, so
// concurrent duplicate attempts fail deterministically instead of racing
func (r *ReferralRepo) CreateReferral(ctx context.Context, referrerID uuid.UUID, referredUserID uuid.UUID) (models.Referral, error) {
	rows, _ := r.DB.Query(ctx, createReferral, uuid.New(), referrerID, referredUserID)
	referral, err := pgx.CollectOneRow(rows, rowToReferral)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return referral, apperrors.ErrDuplicateReferral
			case pgerrcode.CheckViolation:
				return referral, apperrors.ErrSelfReferral
			case pgerrcode.ForeignKeyViolation:
				return referral, apperrors.ErrUserNotFound
			}
		}

		return referral, fmt.Errorf("db error: %w", err)
	}

	return referral, nil
}

const listByReferrer = `-- name: ListReferralsByReferrer
SELECT id, referrer_id, referred_user_id, status, created_at
FROM referrals
WHERE referrer_id = $1
ORDER BY created_at DESC, id
`

func (r *ReferralRepo) ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]models.Referral, error) {
	rows, _ := r.DB.Query(ctx, listByReferrer, referrerID)
	referrals, err := pgx.CollectRows(rows, rowToReferral)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return referrals, nil
}

func rowToReferral(row pgx.CollectableRow) (models.Referral, error) {
	var ref models.Referral
	err := row.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredUserID, &ref.Status, &ref.CreatedAt)
	return ref, err
}
