package postgres

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bioclub/refledger/internal/models"
	"github.com/bioclub/refledger/internal/repository"
)

var emailSeq int

var testPayoutDetails = models.PayoutDetails{
	BankName:       "Banco Azul",
	AccountType:    "checking",
	AccountNumber:  "12345-6",
	BranchNumber:   "0001",
	HolderName:     "Maria Silva",
	HolderDocument: "123.456.789-00",
}

// Create user with unique email
func createTestUser(t *testing.T, storage repository.Storage) models.User {
	t.Helper()

	emailSeq++
	user, err := storage.User().CreateUser(t.Context(), fmt.Sprintf("user-%d@example.com", emailSeq), "Test User")
	require.NoError(t, err, "fixture user should be created ok")

	return user
}

// Create referrer, referred user and the edge between them
func createTestReferral(t *testing.T, storage repository.Storage) (referrer models.User, referred models.User, referral models.Referral) {
	t.Helper()

	referrer = createTestUser(t, storage)
	referred = createTestUser(t, storage)

	referral, err := storage.Referral().CreateReferral(t.Context(), referrer.ID, referred.ID)
	require.NoError(t, err, "fixture referral should be created ok")

	return referrer, referred, referral
}
