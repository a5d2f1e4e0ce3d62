package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bioclub/refledger/internal/apperrors"
	"github.com/bioclub/refledger/internal/handlers/render"
	"github.com/bioclub/refledger/internal/logger"
)

func handleReferralCode(referralService referralService, l logger.Logger) http.Handler {
	type response struct {
		Code string `json:"code"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		code, err := referralService.EnsureCode(r.Context(), userID)

		switch {
		case err == nil:
			render.JSON(w, response{Code: code})
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrCodeGenerationExhausted):
			render.ServiceError(w, "Can't generate unique code, retry later", http.StatusServiceUnavailable)
		default:
			l.Error("Failed to ensure referral code", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleReferralLink(referralService referralService, l logger.Logger) http.Handler {
	type response struct {
		Link string `json:"link"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		link, err := referralService.Link(r.Context(), userID)

		switch {
		case err == nil:
			render.JSON(w, response{Link: link})
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrCodeGenerationExhausted):
			render.ServiceError(w, "Can't generate unique code, retry later", http.StatusServiceUnavailable)
		default:
			l.Error("Failed to generate referral link", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleRegisterReferral(referralService referralService, l logger.Logger) http.Handler {
	type request struct {
		ReferralCode   string    `json:"referral_code" validate:"required,refcode"`
		ReferredUserID uuid.UUID `json:"referred_user_id" validate:"required"`
	}
	type response struct {
		ID        uuid.UUID `json:"id"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		referral, err := referralService.Register(r.Context(), data.ReferralCode, data.ReferredUserID)

		switch {
		case err == nil:
			render.JSON(w, response{ID: referral.ID, Status: referral.Status, CreatedAt: referral.CreatedAt})
		case errors.Is(err, apperrors.ErrInvalidReferralCode):
			render.ServiceError(w, "Invalid referral code", http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrSelfReferral):
			render.ServiceError(w, "Self referral is not allowed", http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrDuplicateReferral):
			render.ServiceError(w, "Referral already registered", http.StatusConflict)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Referred user not found", http.StatusNotFound)
		default:
			l.Error("Failed to register referral", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListReferrals(referralService referralService, l logger.Logger) http.Handler {
	type referral struct {
		ID             uuid.UUID `json:"id"`
		ReferredUserID uuid.UUID `json:"referred_user_id"`
		Status         string    `json:"status"`
		CreatedAt      time.Time `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		refs, err := referralService.ListReferrals(r.Context(), userID)

		switch err {
		case nil:
			referrals := make([]referral, 0, len(refs))
			for _, ref := range refs {
				referrals = append(referrals, referral{
					ID:             ref.ID,
					ReferredUserID: ref.ReferredUserID,
					Status:         ref.Status,
					CreatedAt:      ref.CreatedAt,
				})
			}
			render.JSON(w, referrals)
		default:
			l.Error("Failed to list referrals", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
