package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bioclub/refledger/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the email exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, email string, displayName string) (models.User, error)

	// Get user by id or referral code
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (models.User, error)

	// Read the user with a row lock. Meaningful inside InTx only: every
	// flow that locks the same user serializes on this call
	LockUser(ctx context.Context, userID uuid.UUID) (models.User, error)

	// Assign referral code if the user has none yet and return the stored code.
	// If another call won the race the winner's code is returned unchanged.
	// If the code belongs to a different user must return apperrors.ErrReferralCodeTaken
	SetReferralCode(ctx context.Context, userID uuid.UUID, code string) (string, error)

	// Atomic counter and balance updates (single UPDATE, no read-modify-write)
	IncrementReferralCount(ctx context.Context, userID uuid.UUID) (int64, error)

	// AdjustBalance applies delta and returns the new balance.
	// Must return apperrors.ErrInsufficientBalance if balance would go below zero
	AdjustBalance(ctx context.Context, userID uuid.UUID, delta int64) (int64, error)
}

// Referral edge repository interface
type ReferralRepo interface {
	// Create referral edge with 'pending' status.
	// Pair uniqueness is enforced by the storage layer, concurrent duplicate
	// attempts must fail with apperrors.ErrDuplicateReferral deterministically
	CreateReferral(ctx context.Context, referrerID uuid.UUID, referredUserID uuid.UUID) (models.Referral, error)

	// Referrals made by the user, newest first
	ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]models.Referral, error)
}

type CreateCommissionParams struct {
	UserID       uuid.UUID
	ReferralID   uuid.UUID
	Amount       int64
	Status       string // defaults to 'pending' when empty
	WithdrawalID *uuid.UUID
}

// Commission ledger repository interface
type CommissionRepo interface {
	CreateCommission(ctx context.Context, arg CreateCommissionParams) (models.Commission, error)

	// Get record by id
	// If not found must return apperrors.ErrCommissionNotFound
	GetCommission(ctx context.Context, id uuid.UUID) (models.Commission, error)

	// Records in creation order (created_at, seq ascending), the order
	// settlement consumes them in. With lock the rows are taken FOR UPDATE
	ListByUserAndStatus(ctx context.Context, userID uuid.UUID, status string, lock bool) ([]models.Commission, error)

	// All records of the user, newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Commission, error)

	SumByUserAndStatus(ctx context.Context, userID uuid.UUID, status string) (int64, error)

	// Consume the whole record: available -> processing, attach withdrawal
	MarkProcessing(ctx context.Context, id uuid.UUID, withdrawalID uuid.UUID) error

	// Subtract from an available record, the residual stays available.
	// Must fail unless 0 < by < amount
	ReduceAmount(ctx context.Context, id uuid.UUID, by int64) (models.Commission, error)

	// External trigger entry points. Release moves pending -> available,
	// MarkPaid closes all processing records of a confirmed withdrawal
	Release(ctx context.Context, id uuid.UUID) error
	MarkPaid(ctx context.Context, withdrawalID uuid.UUID, paidAt time.Time) error
}

// Withdrawal request repository interface
type WithdrawalRepo interface {
	CreateWithdrawal(ctx context.Context, userID uuid.UUID, amount int64, details models.PayoutDetails) (models.Withdrawal, error)

	// Requests of the user, newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error)
}

type Storage interface {
	User() UserRepo
	Referral() ReferralRepo
	Commission() CommissionRepo
	Withdrawal() WithdrawalRepo

	// Run fn in a single database transaction.
	// Either every write commits or none do
	InTx(ctx context.Context, fn func(Storage) error) error
}
