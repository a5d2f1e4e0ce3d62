package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/bioclub/refledger/internal/apperrors"
	"github.com/bioclub/refledger/internal/handlers/render"
	"github.com/bioclub/refledger/internal/logger"
)

func handleCreateUser(userService userService, l logger.Logger) http.Handler {
	type request struct {
		Email       string `json:"email" validate:"required,email"`
		DisplayName string `json:"display_name" validate:"required,min=2,max=100"`
	}
	type response struct {
		ID          uuid.UUID `json:"id"`
		Email       string    `json:"email"`
		DisplayName string    `json:"display_name"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, err := userService.CreateUser(r.Context(), data.Email, data.DisplayName)

		switch {
		case err == nil:
			render.JSON(w, response{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName})
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		default:
			l.Error("Failed to create user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleGetUser(userService userService, l logger.Logger) http.Handler {
	type response struct {
		ID             uuid.UUID `json:"id"`
		Email          string    `json:"email"`
		DisplayName    string    `json:"display_name"`
		ReferralCode   string    `json:"referral_code,omitempty"`
		TotalReferrals int64     `json:"total_referrals"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		user, err := userService.GetUser(r.Context(), userID)

		switch {
		case err == nil:
			render.JSON(w, response{
				ID:             user.ID,
				Email:          user.Email,
				DisplayName:    user.DisplayName,
				ReferralCode:   user.ReferralCode,
				TotalReferrals: user.TotalReferrals,
			})
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		default:
			l.Error("Failed to get user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
