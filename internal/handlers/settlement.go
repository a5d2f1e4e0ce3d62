package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bioclub/refledger/internal/apperrors"
	"github.com/bioclub/refledger/internal/handlers/render"
	"github.com/bioclub/refledger/internal/logger"
	"github.com/bioclub/refledger/internal/models"
)

// The ledger counts minor units (cents), the API speaks currency units.
// Conversion must be exact: sub-cent amounts are a caller error.
func toMinorUnits(d decimal.Decimal) (int64, bool) {
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, false
	}

	return cents.IntPart(), true
}

func toCurrency(minor int64) float64 {
	f, _ := decimal.New(minor, -2).Float64()
	return f
}

func handleBalance(settlementService settlementService, l logger.Logger) http.Handler {
	type response struct {
		Available float64 `json:"available"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		balance, err := settlementService.AvailableBalance(r.Context(), userID)

		switch {
		case err == nil:
			render.JSON(w, response{Available: toCurrency(balance)})
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		default:
			l.Error("Failed to get balance", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleWithdraw(settlementService settlementService, l logger.Logger) http.Handler {
	type request struct {
		Amount         decimal.Decimal `json:"amount" validate:"required"`
		BankName       string          `json:"bank_name" validate:"required"`
		AccountType    string          `json:"account_type" validate:"required"`
		AccountNumber  string          `json:"account_number" validate:"required"`
		BranchNumber   string          `json:"branch_number" validate:"required"`
		HolderName     string          `json:"holder_name" validate:"required"`
		HolderDocument string          `json:"holder_document" validate:"required"`
	}
	type response struct {
		WithdrawalID uuid.UUID `json:"withdrawal_id"`
		Consumed     float64   `json:"consumed"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		amount, exact := toMinorUnits(data.Amount)
		if !exact {
			render.ServiceError(w, "Amount must not be finer than one cent", http.StatusUnprocessableEntity)
			return
		}

		withdrawal, err := settlementService.Withdraw(r.Context(), userID, amount, models.PayoutDetails{
			BankName:       data.BankName,
			AccountType:    data.AccountType,
			AccountNumber:  data.AccountNumber,
			BranchNumber:   data.BranchNumber,
			HolderName:     data.HolderName,
			HolderDocument: data.HolderDocument,
		})

		switch {
		case err == nil:
			render.JSON(w, response{WithdrawalID: withdrawal.ID, Consumed: toCurrency(withdrawal.Amount)})
		case errors.Is(err, apperrors.ErrInvalidAmount):
			render.ServiceError(w, "Amount must be positive", http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrInvalidPayoutDetails):
			render.ServiceError(w, "Payout details are incomplete", http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrInsufficientBalance):
			render.ServiceError(w, "Insufficient balance", http.StatusPaymentRequired)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		default:
			l.Error("Failed to withdraw", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListCommissions(settlementService settlementService, l logger.Logger) http.Handler {
	type commission struct {
		ID        uuid.UUID  `json:"id"`
		Amount    float64    `json:"amount"`
		Status    string     `json:"status"`
		CreatedAt time.Time  `json:"created_at"`
		PaidAt    *time.Time `json:"paid_at,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		records, err := settlementService.ListCommissions(r.Context(), userID)

		switch err {
		case nil:
			commissions := make([]commission, 0, len(records))
			for _, c := range records {
				commissions = append(commissions, commission{
					ID:        c.ID,
					Amount:    toCurrency(c.Amount),
					Status:    c.Status,
					CreatedAt: c.CreatedAt,
					PaidAt:    c.PaidAt,
				})
			}
			render.JSON(w, commissions)
		default:
			l.Error("Failed to list commissions", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListWithdrawals(settlementService settlementService, l logger.Logger) http.Handler {
	type withdrawal struct {
		ID        uuid.UUID `json:"id"`
		Amount    float64   `json:"amount"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		records, err := settlementService.ListWithdrawals(r.Context(), userID)

		switch err {
		case nil:
			withdrawals := make([]withdrawal, 0, len(records))
			for _, wd := range records {
				withdrawals = append(withdrawals, withdrawal{
					ID:        wd.ID,
					Amount:    toCurrency(wd.Amount),
					Status:    wd.Status,
					CreatedAt: wd.CreatedAt,
				})
			}
			render.JSON(w, withdrawals)
		default:
			l.Error("Failed to list withdrawals", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
