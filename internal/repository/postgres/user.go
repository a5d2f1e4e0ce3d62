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

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, created_at, email, display_name, COALESCE(referral_code, ''), total_referrals, balance`

const createUser = `-- name: CreateUser
INSERT INTO users (id, email, display_name)
VALUES ($1, $2, $3)
RETURNING id, created_at, email, display_name, COALESCE(referral_code, ''), total_referrals, balance
`

func (r *UserRepo) CreateUser(ctx context.Context, email string, displayName string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), email, displayName)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, userID)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUserByReferralCode = `-- name: GetUserByReferralCode
SELECT ` + userColumns + ` FROM users
WHERE referral_code = $1
`

func (r *UserRepo) GetUserByReferralCode(ctx context.Context, code string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByReferralCode, code)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const lockUser = `-- name: LockUser
SELECT ` + userColumns + ` FROM users
WHERE id = $1
FOR UPDATE
`

// Read the user with a row lock
// Concurrent settlements for the same user block here until the first one commits
func (r *UserRepo) LockUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, lockUser, userID)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const setReferralCode = `-- name: SetReferralCode
UPDATE users
SET referral_code = $2
WHERE id = $1 AND referral_code IS NULL
RETURNING referral_code
`

// Assign the code only when the user has none yet
// Exactly one write to the code field happens over the user's lifetime
func (r *UserRepo) SetReferralCode(ctx context.Context, userID uuid.UUID, code string) (string, error) {
	rows, _ := r.DB.Query(ctx, setReferralCode, userID, code)
	stored, err := pgx.CollectOneRow(rows, pgx.RowTo[string])

	switch {
	case err == nil:
		return stored, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Code is set already (possibly by a concurrent call), return it as is
		user, err := r.GetUserByID(ctx, userID)
		if err != nil {
			return "", err
		}
		return user.ReferralCode, nil
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", apperrors.ErrReferralCodeTaken
		}

		return "", fmt.Errorf("db error: %w", err)
	}
}

const incrementReferralCount = `-- name: IncrementReferralCount
UPDATE users
SET total_referrals = total_referrals + 1
WHERE id = $1
RETURNING total_referrals
`

func (r *UserRepo) IncrementReferralCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	rows, _ := r.DB.Query(ctx, incrementReferralCount, userID)
	total, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])

	switch {
	case err == nil:
		return total, nil
	case errors.Is(err, pgx.ErrNoRows):
		return 0, apperrors.ErrUserNotFound
	default:
		return 0, fmt.Errorf("db error: %w", err)
	}
}

const adjustBalance = `-- name: AdjustBalance
UPDATE users
SET balance = balance + $2
WHERE id = $1
RETURNING balance
`

// Apply delta to the cached balance in a single statement
// The check constraint keeps the balance from going below zero
func (r *UserRepo) AdjustBalance(ctx context.Context, userID uuid.UUID, delta int64) (int64, error) {
	rows, _ := r.DB.Query(ctx, adjustBalance, userID, delta)
	balance, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		return 0, apperrors.ErrUserNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			return 0, apperrors.ErrInsufficientBalance
		}

		return 0, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Email, &u.DisplayName, &u.ReferralCode, &u.TotalReferrals, &u.Balance)
	return u, err
}
