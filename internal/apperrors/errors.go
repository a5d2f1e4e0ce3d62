package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrInvalidReferralCode     = errors.New("referral code is invalid")
	ErrSelfReferral            = errors.New("user can't refer themselves")
	ErrDuplicateReferral       = errors.New("referral already registered for this pair")
	ErrReferralCodeTaken       = errors.New("referral code already taken by another user")
	ErrCodeGenerationExhausted = errors.New("can't generate unique referral code, retry later")

	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidPayoutDetails = errors.New("payout details are incomplete")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrCommissionNotFound   = errors.New("commission not found")

	// Post allocation remainder wasn't zero. Never expected if the balance
	// check and the allocation observe the same snapshot, so it means a bug.
	ErrLedgerInconsistent = errors.New("ledger allocation remainder is not zero")
)
