package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/bioclub/refledger/internal/logger"
	"github.com/bioclub/refledger/internal/repository"
	"github.com/bioclub/refledger/internal/repository/postgres"
	"github.com/bioclub/refledger/internal/service/referral"
	"github.com/bioclub/refledger/internal/service/settlement"
	"github.com/bioclub/refledger/internal/service/user"
	"github.com/bioclub/refledger/internal/testutil"
)

type testEnv struct {
	url        string
	storage    repository.Storage
	users      *user.UserService
	referrals  *referral.ReferralService
	settlement *settlement.SettlementService
}

func Test_Router(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Run http server with production services over a tx backed storage
	withServer := func(dbpool *pgxpool.Pool, t *testing.T, fn func(env testEnv)) {
		testutil.InTx(dbpool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)

			users := user.NewService(storage)
			referrals := referral.NewService(storage, "https://bioclub.app/referral")
			settlements := settlement.NewService(storage, nil)

			h := NewRouter(users, referrals, settlements, logger.NewNoOpLogger())
			srv := httptest.NewServer(h)
			defer srv.Close()

			fn(testEnv{
				url:        srv.URL,
				storage:    storage,
				users:      users,
				referrals:  referrals,
				settlement: settlements,
			})
		})
	}

	get := func(t *testing.T, url string) (int, string) {
		t.Helper()
		resp, err := http.Get(url)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode, string(body)
	}

	post := func(t *testing.T, url string, data string) (int, string) {
		t.Helper()
		resp, err := http.Post(url, "application/json", strings.NewReader(data))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode, string(body)
	}

	t.Run("create user ok", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			data := `{"email": "maria@example.com", "display_name": "Maria"}`

			code, body := post(t, env.url+"/api/users", data)

			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
			require.Contains(t, body, "maria@example.com")
			require.Contains(t, body, `"id"`)
		})
	})

	t.Run("create user duplicate email", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			data := `{"email": "maria@example.com", "display_name": "Maria"}`

			code, body := post(t, env.url+"/api/users", data)
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)

			code, body = post(t, env.url+"/api/users", data)

			require.Equalf(t, http.StatusConflict, code, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "User already exists"
				}`, body)
		})
	})

	t.Run("create user invalid payload", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			code, body := post(t, env.url+"/api/users", `{"email": "not-an-email", "display_name": "M"}`)

			require.Equalf(t, http.StatusBadRequest, code, "not expected code. Body: %s", body)
			require.Contains(t, body, "validation_failed")
			require.Contains(t, body, "email")
			require.Contains(t, body, "display_name")
		})
	})

	t.Run("get user not found", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			code, body := get(t, env.url+"/api/users/7b15a4d3-9c3f-4a4b-bb59-d46fcf4e57a1")

			require.Equalf(t, http.StatusNotFound, code, "not expected code. Body: %s", body)
		})
	})

	t.Run("get user bad id", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			code, body := get(t, env.url+"/api/users/not-a-uuid")

			require.Equalf(t, http.StatusBadRequest, code, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Invalid user id"
				}`, body)
		})
	})

	t.Run("referral code and link", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			u, err := env.users.CreateUser(t.Context(), "maria@example.com", "Maria")
			require.NoError(t, err)

			code, body := get(t, fmt.Sprintf("%s/api/users/%s/referral-code", env.url, u.ID))
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
			require.Regexp(t, `"code":"[A-Z0-9]{8}"`, body)

			refCode, err := env.referrals.EnsureCode(t.Context(), u.ID)
			require.NoError(t, err)

			code, body = get(t, fmt.Sprintf("%s/api/users/%s/referral-link", env.url, u.ID))
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
			require.JSONEq(t, fmt.Sprintf(`{"link": "https://bioclub.app/referral/%s"}`, refCode), body)
		})
	})

	t.Run("register referral", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			referrer, err := env.users.CreateUser(t.Context(), "maria@example.com", "Maria")
			require.NoError(t, err)
			referred, err := env.users.CreateUser(t.Context(), "joao@example.com", "Joao")
			require.NoError(t, err)
			refCode, err := env.referrals.EnsureCode(t.Context(), referrer.ID)
			require.NoError(t, err)

			data := fmt.Sprintf(`{"referral_code": %q, "referred_user_id": %q}`, refCode, referred.ID)
			code, body := post(t, env.url+"/api/referrals", data)

			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
			require.Contains(t, body, `"status":"pending"`)

			// Same pair again conflicts
			code, body = post(t, env.url+"/api/referrals", data)
			require.Equalf(t, http.StatusConflict, code, "not expected code. Body: %s", body)

			// Self referral is unprocessable
			data = fmt.Sprintf(`{"referral_code": %q, "referred_user_id": %q}`, refCode, referrer.ID)
			code, body = post(t, env.url+"/api/referrals", data)
			require.Equalf(t, http.StatusUnprocessableEntity, code, "not expected code. Body: %s", body)

			// Unknown code is unprocessable too
			data = fmt.Sprintf(`{"referral_code": "NOSUCH00", "referred_user_id": %q}`, referred.ID)
			code, body = post(t, env.url+"/api/referrals", data)
			require.Equalf(t, http.StatusUnprocessableEntity, code, "not expected code. Body: %s", body)
		})
	})

	t.Run("balance and withdraw", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			referrer, err := env.users.CreateUser(t.Context(), "maria@example.com", "Maria")
			require.NoError(t, err)
			referred, err := env.users.CreateUser(t.Context(), "joao@example.com", "Joao")
			require.NoError(t, err)
			refCode, err := env.referrals.EnsureCode(t.Context(), referrer.ID)
			require.NoError(t, err)
			ref, err := env.referrals.Register(t.Context(), refCode, referred.ID)
			require.NoError(t, err)

			// Credit 50.00 through the commission ledger
			c, err := env.storage.Commission().CreateCommission(t.Context(), repository.CreateCommissionParams{
				UserID:     referrer.ID,
				ReferralID: ref.ID,
				Amount:     5000,
			})
			require.NoError(t, err)
			require.NoError(t, env.settlement.ReleaseCommission(t.Context(), c.ID))

			code, body := get(t, fmt.Sprintf("%s/api/users/%s/balance", env.url, referrer.ID))
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
			require.JSONEq(t, `{"available": 50}`, body)

			payout := `"bank_name": "Banco Azul", "account_type": "checking", "account_number": "12345-6",
				"branch_number": "0001", "holder_name": "Maria Silva", "holder_document": "123.456.789-00"`

			// Sub-cent amount is rejected before touching the ledger
			data := fmt.Sprintf(`{"amount": 10.005, %s}`, payout)
			code, body = post(t, fmt.Sprintf("%s/api/users/%s/withdrawals", env.url, referrer.ID), data)
			require.Equalf(t, http.StatusUnprocessableEntity, code, "not expected code. Body: %s", body)

			// More than the balance
			data = fmt.Sprintf(`{"amount": 50.01, %s}`, payout)
			code, body = post(t, fmt.Sprintf("%s/api/users/%s/withdrawals", env.url, referrer.ID), data)
			require.Equalf(t, http.StatusPaymentRequired, code, "not expected code. Body: %s", body)

			// Valid withdrawal
			data = fmt.Sprintf(`{"amount": 20.00, %s}`, payout)
			code, body = post(t, fmt.Sprintf("%s/api/users/%s/withdrawals", env.url, referrer.ID), data)
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
			require.Contains(t, body, `"withdrawal_id"`)
			require.Contains(t, body, `"consumed":20`)

			code, body = get(t, fmt.Sprintf("%s/api/users/%s/balance", env.url, referrer.ID))
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
			require.JSONEq(t, `{"available": 30}`, body)

			// Both ledger sides are visible in the lists
			code, body = get(t, fmt.Sprintf("%s/api/users/%s/commissions", env.url, referrer.ID))
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
			require.Contains(t, body, `"processing"`)
			require.Contains(t, body, `"available"`)

			code, body = get(t, fmt.Sprintf("%s/api/users/%s/withdrawals", env.url, referrer.ID))
			require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
			require.Contains(t, body, `"pending"`)
		})
	})

	t.Run("withdraw incomplete payout details", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			u, err := env.users.CreateUser(t.Context(), "maria@example.com", "Maria")
			require.NoError(t, err)

			data := `{"amount": 10.00, "bank_name": "Banco Azul"}`
			code, body := post(t, fmt.Sprintf("%s/api/users/%s/withdrawals", env.url, u.ID), data)

			require.Equalf(t, http.StatusBadRequest, code, "not expected code. Body: %s", body)
			require.Contains(t, body, "validation_failed")
		})
	})
}
