package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/bioclub/refledger/internal/handlers/middleware"
	"github.com/bioclub/refledger/internal/handlers/render"
	"github.com/bioclub/refledger/internal/logger"
	"github.com/bioclub/refledger/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	userService userService,
	referralService referralService,
	settlementService settlementService,
	logger logger.Logger,
) http.Handler {
	api := http.NewServeMux()

	api.Handle("POST /users", handleCreateUser(userService, logger))
	api.Handle("GET /users/{userID}", handleGetUser(userService, logger))

	api.Handle("GET /users/{userID}/referral-code", handleReferralCode(referralService, logger))
	api.Handle("GET /users/{userID}/referral-link", handleReferralLink(referralService, logger))
	api.Handle("POST /referrals", handleRegisterReferral(referralService, logger))
	api.Handle("GET /users/{userID}/referrals", handleListReferrals(referralService, logger))

	api.Handle("GET /users/{userID}/balance", handleBalance(settlementService, logger))
	api.Handle("GET /users/{userID}/commissions", handleListCommissions(settlementService, logger))
	api.Handle("POST /users/{userID}/withdrawals", handleWithdraw(settlementService, logger))
	api.Handle("GET /users/{userID}/withdrawals", handleListWithdrawals(settlementService, logger))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type userService interface {
	// Has to return apperrors.ErrUserAlreadyExists if the email is taken
	CreateUser(ctx context.Context, email string, displayName string) (models.User, error)

	// Has to return apperrors.ErrUserNotFound if user not found
	GetUser(ctx context.Context, userID uuid.UUID) (models.User, error)
}

type referralService interface {
	// Return existing code or assign a new one.
	// Has to return apperrors.ErrCodeGenerationExhausted if no unique code found
	EnsureCode(ctx context.Context, userID uuid.UUID) (string, error)

	// Shareable URL with the code embedded
	Link(ctx context.Context, userID uuid.UUID) (string, error)

	// Register referral edge by code.
	// Well known errors: ErrInvalidReferralCode, ErrSelfReferral, ErrDuplicateReferral
	Register(ctx context.Context, referrerCode string, referredUserID uuid.UUID) (models.Referral, error)

	ListReferrals(ctx context.Context, userID uuid.UUID) ([]models.Referral, error)
}

type settlementService interface {
	AvailableBalance(ctx context.Context, userID uuid.UUID) (int64, error)

	// Settle a withdrawal request against available commission records.
	// Well known errors: ErrInvalidAmount, ErrInvalidPayoutDetails, ErrInsufficientBalance
	Withdraw(ctx context.Context, userID uuid.UUID, amount int64, details models.PayoutDetails) (models.Withdrawal, error)

	ListCommissions(ctx context.Context, userID uuid.UUID) ([]models.Commission, error)
	ListWithdrawals(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error)
}

// pathUserID parses the {userID} path segment, rendering 400 on garbage
func pathUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
		return uuid.Nil, false
	}

	return userID, true
}
