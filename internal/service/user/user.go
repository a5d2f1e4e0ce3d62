package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bioclub/refledger/internal/models"
	"github.com/bioclub/refledger/internal/repository"
)

// UserService is the minimal user directory the ledger needs: creating
// and fetching the records that carry the referral code, counters and
// the cached balance. Credentials and sessions live elsewhere.
type UserService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *UserService {
	return &UserService{
		storage: storage,
	}
}

func (s *UserService) CreateUser(ctx context.Context, email string, displayName string) (models.User, error) {
	user, err := s.storage.User().CreateUser(ctx, email, displayName)
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}
