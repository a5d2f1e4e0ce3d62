package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bioclub/refledger/internal/apperrors"
	"github.com/bioclub/refledger/internal/models"
	"github.com/bioclub/refledger/internal/repository"
)

type CommissionRepo struct {
	DB DBTX
}

const commissionColumns = `id, seq, user_id, referral_id, amount, status, withdrawal_id, created_at, paid_at`

const createCommission = `-- name: CreateCommission
INSERT INTO commissions (id, user_id, referral_id, amount, status, withdrawal_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + commissionColumns

func (r *CommissionRepo) CreateCommission(ctx context.Context, arg repository.CreateCommissionParams) (models.Commission, error) {
	status := arg.Status
	if status == "" {
		status = models.CommissionStatusPending
	}

	rows, _ := r.DB.Query(ctx, createCommission, uuid.New(), arg.UserID, arg.ReferralID, arg.Amount, status, arg.WithdrawalID)
	commission, err := pgx.CollectOneRow(rows, rowToCommission)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			return commission, apperrors.ErrInvalidAmount
		}

		return commission, fmt.Errorf("db error: %w", err)
	}

	return commission, nil
}

const getCommission = `-- name: GetCommission
SELECT ` + commissionColumns + `
FROM commissions
WHERE id = $1
`

func (r *CommissionRepo) GetCommission(ctx context.Context, id uuid.UUID) (models.Commission, error) {
	rows, _ := r.DB.Query(ctx, getCommission, id)
	commission, err := pgx.CollectOneRow(rows, rowToCommission)

	switch {
	case err == nil:
		return commission, nil
	case errors.Is(err, pgx.ErrNoRows):
		return commission, apperrors.ErrCommissionNotFound
	default:
		return commission, fmt.Errorf("db error: %w", err)
	}
}

const listByUserAndStatus = `-- name: ListCommissionsByUserAndStatus
SELECT ` + commissionColumns + `
FROM commissions
WHERE user_id = $1 AND status = $2
ORDER BY created_at, seq
`

// Records in creation order, the order settlement consumes them in.
// With lock the rows are taken FOR UPDATE so no concurrent settlement may
// consume or split them until the transaction ends
func (r *CommissionRepo) ListByUserAndStatus(ctx context.Context, userID uuid.UUID, status string, lock bool) ([]models.Commission, error) {
	query := listByUserAndStatus
	if lock {
		query += "FOR UPDATE\n"
	}

	rows, _ := r.DB.Query(ctx, query, userID, status)
	commissions, err := pgx.CollectRows(rows, rowToCommission)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return commissions, nil
}

const listByUser = `-- name: ListCommissionsByUser
SELECT ` + commissionColumns + `
FROM commissions
WHERE user_id = $1
ORDER BY created_at DESC, seq DESC
`

func (r *CommissionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Commission, error) {
	rows, _ := r.DB.Query(ctx, listByUser, userID)
	commissions, err := pgx.CollectRows(rows, rowToCommission)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return commissions, nil
}

const sumByUserAndStatus = `-- name: SumCommissionsByUserAndStatus
SELECT COALESCE(SUM(amount), 0)::bigint
FROM commissions
WHERE user_id = $1 AND status = $2
`

func (r *CommissionRepo) SumByUserAndStatus(ctx context.Context, userID uuid.UUID, status string) (int64, error) {
	rows, _ := r.DB.Query(ctx, sumByUserAndStatus, userID, status)
	sum, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return sum, nil
}

const markProcessing = `-- name: MarkCommissionProcessing
UPDATE commissions
SET status = 'processing', withdrawal_id = $2
WHERE id = $1 AND status = 'available'
RETURNING id
`

// Consume the whole record
// Only available records may transition, processing and paid are final for settlement
func (r *CommissionRepo) MarkProcessing(ctx context.Context, id uuid.UUID, withdrawalID uuid.UUID) error {
	rows, _ := r.DB.Query(ctx, markProcessing, id, withdrawalID)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrCommissionNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const reduceAmount = `-- name: ReduceCommissionAmount
UPDATE commissions
SET amount = amount - $2
WHERE id = $1 AND status = 'available' AND amount > $2 AND $2 > 0
RETURNING ` + commissionColumns

// Subtract the consumed part from an available record
// The residual stays available, so the condition amount > by keeps the
// amount > 0 invariant without relying on the check constraint
func (r *CommissionRepo) ReduceAmount(ctx context.Context, id uuid.UUID, by int64) (models.Commission, error) {
	rows, _ := r.DB.Query(ctx, reduceAmount, id, by)
	commission, err := pgx.CollectOneRow(rows, rowToCommission)

	switch {
	case err == nil:
		return commission, nil
	case errors.Is(err, pgx.ErrNoRows):
		return commission, apperrors.ErrCommissionNotFound
	default:
		return commission, fmt.Errorf("db error: %w", err)
	}
}

const releaseCommission = `-- name: ReleaseCommission
UPDATE commissions
SET status = 'available'
WHERE id = $1 AND status = 'pending'
RETURNING id
`

func (r *CommissionRepo) Release(ctx context.Context, id uuid.UUID) error {
	rows, _ := r.DB.Query(ctx, releaseCommission, id)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrCommissionNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const markPaid = `-- name: MarkCommissionsPaid
UPDATE commissions
SET status = 'paid', paid_at = $2
WHERE withdrawal_id = $1 AND status = 'processing'
`

func (r *CommissionRepo) MarkPaid(ctx context.Context, withdrawalID uuid.UUID, paidAt time.Time) error {
	_, err := r.DB.Exec(ctx, markPaid, withdrawalID, paidAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func rowToCommission(row pgx.CollectableRow) (models.Commission, error) {
	var c models.Commission
	err := row.Scan(&c.ID, &c.Seq, &c.UserID, &c.ReferralID, &c.Amount, &c.Status, &c.WithdrawalID, &c.CreatedAt, &c.PaidAt)
	return c, err
}
