package referral

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bioclub/refledger/internal/apperrors"
	"github.com/bioclub/refledger/internal/models"
	"github.com/bioclub/refledger/internal/repository"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8

	// Collision probability over 36^8 codes is astronomically low, the retry
	// bound is a safety net, not a normal outcome
	maxCodeAttempts = 3
)

type ReferralService struct {
	storage repository.Storage

	// Base for shareable links, e.g. https://bioclub.app/referral
	linkBase string

	// Swap point for tests
	generateCode func() (string, error)
}

func NewService(storage repository.Storage, linkBase string) *ReferralService {
	return &ReferralService{
		storage:      storage,
		linkBase:     strings.TrimSuffix(linkBase, "/"),
		generateCode: randomCode,
	}
}

// EnsureCode returns the user's referral code, assigning one on first call.
// Idempotent: repeated calls return the same code and write nothing.
func (s *ReferralService) EnsureCode(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("can't get user. Err: %w", err)
	}

	if user.ReferralCode != "" {
		return user.ReferralCode, nil
	}

	for range maxCodeAttempts {
		code, err := s.generateCode()
		if err != nil {
			return "", fmt.Errorf("can't generate referral code. Err: %w", err)
		}

		stored, err := s.storage.User().SetReferralCode(ctx, userID, code)
		switch {
		case err == nil:
			// Either our code or the one a concurrent call assigned first
			return stored, nil
		case errors.Is(err, apperrors.ErrReferralCodeTaken):
			continue
		default:
			return "", fmt.Errorf("can't store referral code. Err: %w", err)
		}
	}

	return "", apperrors.ErrCodeGenerationExhausted
}

// Link returns the shareable referral URL, issuing a code if needed
func (s *ReferralService) Link(ctx context.Context, userID uuid.UUID) (string, error) {
	code, err := s.EnsureCode(ctx, userID)
	if err != nil {
		return "", err
	}

	return s.linkBase + "/" + code, nil
}

// Register links the referred user to the owner of the referral code.
// The new edge starts pending, subscription activation flips it later.
func (s *ReferralService) Register(ctx context.Context, referrerCode string, referredUserID uuid.UUID) (models.Referral, error) {
	var referral models.Referral

	referrer, err := s.storage.User().GetUserByReferralCode(ctx, referrerCode)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return referral, apperrors.ErrInvalidReferralCode
	case err != nil:
		return referral, fmt.Errorf("can't resolve referral code. Err: %w", err)
	}

	if referrer.ID == referredUserID {
		return referral, apperrors.ErrSelfReferral
	}

	if _, err := s.storage.User().GetUserByID(ctx, referredUserID); err != nil {
		return referral, fmt.Errorf("can't get referred user. Err: %w", err)
	}

	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		referral, err = storage.Referral().CreateReferral(ctx, referrer.ID, referredUserID)
		if err != nil {
			return err
		}

		_, err = storage.User().IncrementReferralCount(ctx, referrer.ID)
		return err
	})
	if err != nil {
		return models.Referral{}, err
	}

	return referral, nil
}

// ListReferrals returns referrals made by the user, newest first
func (s *ReferralService) ListReferrals(ctx context.Context, userID uuid.UUID) ([]models.Referral, error) {
	return s.storage.Referral().ListByReferrer(ctx, userID)
}

func randomCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}

	return string(b), nil
}
