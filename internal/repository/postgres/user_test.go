package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioclub/refledger/internal/apperrors"
	"github.com/bioclub/refledger/internal/testutil"
)

func Test_UserRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create user ok", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			user, err := r.CreateUser(t.Context(), "maria@example.com", "Maria")

			require.NoError(t, err)
			assert.Equal(t, "maria@example.com", user.Email)
			assert.Equal(t, "Maria", user.DisplayName)
			assert.Empty(t, user.ReferralCode, "new user should have no referral code")
			assert.Zero(t, user.TotalReferrals)
			assert.Zero(t, user.Balance)
			assert.WithinDuration(t, time.Now(), user.CreatedAt, time.Second, "CreatedAt should be recent")
		})
	})

	t.Run("create duplicate email fail", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			_, err := r.CreateUser(t.Context(), "maria@example.com", "Maria")
			require.NoError(t, err)

			_, err = r.CreateUser(t.Context(), "maria@example.com", "Other Maria")

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("get user by id ok", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			created, err := r.CreateUser(t.Context(), "maria@example.com", "Maria")
			require.NoError(t, err)

			got, err := r.GetUserByID(t.Context(), created.ID)

			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, created.Email, got.Email)
			assert.Equal(t, created.CreatedAt, got.CreatedAt)
		})
	})

	t.Run("get user by id not found", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			_, err := r.GetUserByID(t.Context(), uuid.New())

			assert.Error(t, err, "Should return error for non-existent user")
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "should return well known error")
		})
	})

	t.Run("SetReferralCode", func(t *testing.T) {
		t.Run("first assignment ok", func(t *testing.T) {
			testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
				r := UserRepo{DB: tx}
				user, err := r.CreateUser(t.Context(), "maria@example.com", "Maria")
				require.NoError(t, err)

				stored, err := r.SetReferralCode(t.Context(), user.ID, "CODE1234")

				require.NoError(t, err)
				require.Equal(t, "CODE1234", stored)

				got, err := r.GetUserByID(t.Context(), user.ID)
				require.NoError(t, err)
				require.Equal(t, "CODE1234", got.ReferralCode)
			})
		})

		t.Run("second assignment keeps existing code", func(t *testing.T) {
			testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
				r := UserRepo{DB: tx}
				user, err := r.CreateUser(t.Context(), "maria@example.com", "Maria")
				require.NoError(t, err)

				_, err = r.SetReferralCode(t.Context(), user.ID, "CODE1234")
				require.NoError(t, err)

				stored, err := r.SetReferralCode(t.Context(), user.ID, "OTHER567")

				require.NoError(t, err, "losing the assignment race is not an error")
				require.Equal(t, "CODE1234", stored, "existing code must not be overwritten")
			})
		})

		t.Run("code of another user fail", func(t *testing.T) {
			testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
				r := UserRepo{DB: tx}
				first, err := r.CreateUser(t.Context(), "maria@example.com", "Maria")
				require.NoError(t, err)
				second, err := r.CreateUser(t.Context(), "joao@example.com", "Joao")
				require.NoError(t, err)

				_, err = r.SetReferralCode(t.Context(), first.ID, "CODE1234")
				require.NoError(t, err)

				_, err = r.SetReferralCode(t.Context(), second.ID, "CODE1234")

				require.Error(t, err)
				require.ErrorIs(t, err, apperrors.ErrReferralCodeTaken)
			})
		})

		t.Run("get user by referral code", func(t *testing.T) {
			testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
				r := UserRepo{DB: tx}
				user, err := r.CreateUser(t.Context(), "maria@example.com", "Maria")
				require.NoError(t, err)
				_, err = r.SetReferralCode(t.Context(), user.ID, "CODE1234")
				require.NoError(t, err)

				got, err := r.GetUserByReferralCode(t.Context(), "CODE1234")

				require.NoError(t, err)
				require.Equal(t, user.ID, got.ID)

				_, err = r.GetUserByReferralCode(t.Context(), "MISSING1")
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("IncrementReferralCount", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			user, err := r.CreateUser(t.Context(), "maria@example.com", "Maria")
			require.NoError(t, err)

			total, err := r.IncrementReferralCount(t.Context(), user.ID)
			require.NoError(t, err)
			require.EqualValues(t, 1, total)

			total, err = r.IncrementReferralCount(t.Context(), user.ID)
			require.NoError(t, err)
			require.EqualValues(t, 2, total)

			_, err = r.IncrementReferralCount(t.Context(), uuid.New())
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("AdjustBalance", func(t *testing.T) {
		t.Run("credit and debit ok", func(t *testing.T) {
			testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
				r := UserRepo{DB: tx}
				user, err := r.CreateUser(t.Context(), "maria@example.com", "Maria")
				require.NoError(t, err)

				balance, err := r.AdjustBalance(t.Context(), user.ID, 2500)
				require.NoError(t, err)
				require.EqualValues(t, 2500, balance)

				balance, err = r.AdjustBalance(t.Context(), user.ID, -1000)
				require.NoError(t, err)
				require.EqualValues(t, 1500, balance)
			})
		})

		t.Run("below zero fail", func(t *testing.T) {
			testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
				r := UserRepo{DB: tx}
				user, err := r.CreateUser(t.Context(), "maria@example.com", "Maria")
				require.NoError(t, err)

				_, err = r.AdjustBalance(t.Context(), user.ID, 100)
				require.NoError(t, err)

				_, err = r.AdjustBalance(t.Context(), user.ID, -101)

				require.Error(t, err)
				require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

				got, err := r.GetUserByID(t.Context(), user.ID)
				require.NoError(t, err)
				require.EqualValues(t, 100, got.Balance, "failed debit must not change balance")
			})
		})

		t.Run("unknown user fail", func(t *testing.T) {
			testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
				r := UserRepo{DB: tx}

				_, err := r.AdjustBalance(t.Context(), uuid.New(), 100)

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})
}
