package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bioclub/refledger/internal/apperrors"
	"github.com/bioclub/refledger/internal/logger"
	"github.com/bioclub/refledger/internal/models"
	"github.com/bioclub/refledger/internal/repository"
)

// SettlementService matches withdrawal requests to commission records,
// consuming them fully or splitting the last one. All money values are
// minor currency units, splits conserve totals exactly.
type SettlementService struct {
	storage repository.Storage
	logger  logger.Logger
}

func NewService(storage repository.Storage, l logger.Logger) *SettlementService {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &SettlementService{
		storage: storage,
		logger:  l,
	}
}

// AvailableBalance is the sum of the user's available commission records
func (s *SettlementService) AvailableBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if _, err := s.storage.User().GetUserByID(ctx, userID); err != nil {
		return 0, fmt.Errorf("can't get user. Err: %w", err)
	}

	return s.storage.Commission().SumByUserAndStatus(ctx, userID, models.CommissionStatusAvailable)
}

// Withdraw creates a pending withdrawal request and consumes available
// commission records to cover it, oldest first.
//
// The whole flow runs in one database transaction with the user row
// locked, so concurrent withdrawals for the same user serialize and
// either every write commits or none do.
func (s *SettlementService) Withdraw(ctx context.Context, userID uuid.UUID, amount int64, details models.PayoutDetails) (models.Withdrawal, error) {
	var withdrawal models.Withdrawal

	if amount <= 0 {
		return withdrawal, apperrors.ErrInvalidAmount
	}
	if !details.Complete() {
		return withdrawal, apperrors.ErrInvalidPayoutDetails
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		if _, err := storage.User().LockUser(ctx, userID); err != nil {
			return err
		}

		// The same locked rows back both the balance check and the
		// allocation, so the check never passes against stale data
		available, err := storage.Commission().ListByUserAndStatus(ctx, userID, models.CommissionStatusAvailable, true)
		if err != nil {
			return err
		}

		var balance int64
		for _, c := range available {
			balance += c.Amount
		}
		if amount > balance {
			return apperrors.ErrInsufficientBalance
		}

		withdrawal, err = storage.Withdrawal().CreateWithdrawal(ctx, userID, amount, details)
		if err != nil {
			return err
		}

		remaining := amount
		for _, c := range available {
			if remaining <= 0 {
				break
			}

			if c.Amount <= remaining {
				// Consume the whole record
				if err := storage.Commission().MarkProcessing(ctx, c.ID, withdrawal.ID); err != nil {
					return err
				}
				remaining -= c.Amount
				continue
			}

			// Split: the residual stays available on the original record,
			// the consumed part becomes a new processing record
			if _, err := storage.Commission().ReduceAmount(ctx, c.ID, remaining); err != nil {
				return err
			}

			_, err := storage.Commission().CreateCommission(ctx, repository.CreateCommissionParams{
				UserID:       c.UserID,
				ReferralID:   c.ReferralID,
				Amount:       remaining,
				Status:       models.CommissionStatusProcessing,
				WithdrawalID: &withdrawal.ID,
			})
			if err != nil {
				return err
			}

			remaining = 0
		}

		// The balance check guaranteed full coverage, a non zero remainder
		// here is a bug. Returning the error rolls the transaction back.
		if remaining != 0 {
			s.logger.Error("allocation remainder is not zero after settlement",
				"user_id", userID,
				"withdrawal_id", withdrawal.ID,
				"amount", amount,
				"remaining", remaining,
			)
			return apperrors.ErrLedgerInconsistent
		}

		// Decrement the cached balance by exactly the requested amount
		if _, err := storage.User().AdjustBalance(ctx, userID, -amount); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return models.Withdrawal{}, err
	}

	return withdrawal, nil
}

// ReleaseCommission moves a pending record to available and credits the
// user's cached balance by its amount. Entry point for the external
// release trigger, the cadence of that trigger is not modeled here.
func (s *SettlementService) ReleaseCommission(ctx context.Context, id uuid.UUID) error {
	return s.storage.InTx(ctx, func(storage repository.Storage) error {
		c, err := storage.Commission().GetCommission(ctx, id)
		if err != nil {
			return err
		}

		// Same lock order as Withdraw: user row first, then the record
		if _, err := storage.User().LockUser(ctx, c.UserID); err != nil {
			return err
		}

		if err := storage.Commission().Release(ctx, id); err != nil {
			return err
		}

		_, err = storage.User().AdjustBalance(ctx, c.UserID, c.Amount)
		return err
	})
}

// ListCommissions returns the user's commission records, newest first
func (s *SettlementService) ListCommissions(ctx context.Context, userID uuid.UUID) ([]models.Commission, error) {
	return s.storage.Commission().ListByUser(ctx, userID)
}

// ListWithdrawals returns the user's withdrawal requests, newest first
func (s *SettlementService) ListWithdrawals(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error) {
	return s.storage.Withdrawal().ListByUser(ctx, userID)
}
