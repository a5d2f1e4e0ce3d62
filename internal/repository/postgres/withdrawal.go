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

type WithdrawalRepo struct {
	DB DBTX
}

const createWithdrawal = `-- name: CreateWithdrawal
INSERT INTO withdrawals (id, user_id, amount, bank_name, account_type, account_number, branch_number, holder_name, holder_document, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending')
RETURNING id, user_id, amount, bank_name, account_type, account_number, branch_number, holder_name, holder_document, status, created_at
`

func (r *WithdrawalRepo) CreateWithdrawal(ctx context.Context, userID uuid.UUID, amount int64, details models.PayoutDetails) (models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, createWithdrawal,
		uuid.New(), userID, amount,
		details.BankName, details.AccountType, details.AccountNumber,
		details.BranchNumber, details.HolderName, details.HolderDocument,
	)
	withdrawal, err := pgx.CollectOneRow(rows, rowToWithdrawal)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.CheckViolation:
				return withdrawal, apperrors.ErrInvalidAmount
			case pgerrcode.ForeignKeyViolation:
				return withdrawal, apperrors.ErrUserNotFound
			}
		}

		return withdrawal, fmt.Errorf("db error: %w", err)
	}

	return withdrawal, nil
}

const listWithdrawalsByUser = `-- name: ListWithdrawalsByUser
SELECT id, user_id, amount, bank_name, account_type, account_number, branch_number, holder_name, holder_document, status, created_at
FROM withdrawals
WHERE user_id = $1
ORDER BY created_at DESC, id
`

func (r *WithdrawalRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, listWithdrawalsByUser, userID)
	withdrawals, err := pgx.CollectRows(rows, rowToWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return withdrawals, nil
}

func rowToWithdrawal(row pgx.CollectableRow) (models.Withdrawal, error) {
	var w models.Withdrawal
	err := row.Scan(
		&w.ID, &w.UserID, &w.Amount,
		&w.PayoutDetails.BankName, &w.PayoutDetails.AccountType, &w.PayoutDetails.AccountNumber,
		&w.PayoutDetails.BranchNumber, &w.PayoutDetails.HolderName, &w.PayoutDetails.HolderDocument,
		&w.Status, &w.CreatedAt,
	)
	return w, err
}
