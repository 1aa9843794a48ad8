package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminHandler_TopUp(t *testing.T) {
	t.Run("credits the account", func(t *testing.T) {
		env := newTestEnv(t)
		h := NewAdminHandler(env.admin)

		env.mock.ExpectBegin()
		expectEnsureExists(env.mock, "user-1")
		expectLock(env.mock, "user-1", acctRow("user-1", 3))
		expectSetBalance(env.mock, "user-1", 13)
		expectEntryInsert(env.mock, "user-1", 10, "adjustment", 13)
		env.mock.ExpectCommit()

		req := httptest.NewRequest(http.MethodPost, "/credits/topup",
			strings.NewReader(`{"userId":"user-1","amount":10,"note":"support comp"}`))
		rec := doRequest(h.Routes(), req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, float64(13), body["newBalance"])
		assert.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("rejects a zero amount", func(t *testing.T) {
		env := newTestEnv(t)
		h := NewAdminHandler(env.admin)

		req := httptest.NewRequest(http.MethodPost, "/credits/topup",
			strings.NewReader(`{"userId":"user-1","amount":0}`))
		rec := doRequest(h.Routes(), req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("rejects a missing userId", func(t *testing.T) {
		env := newTestEnv(t)
		h := NewAdminHandler(env.admin)

		req := httptest.NewRequest(http.MethodPost, "/credits/topup",
			strings.NewReader(`{"amount":5}`))
		rec := doRequest(h.Routes(), req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminHandler_SetQuota(t *testing.T) {
	t.Run("sets a daily quota and schedules the first reset", func(t *testing.T) {
		env := newTestEnv(t)
		h := NewAdminHandler(env.admin)

		env.mock.ExpectBegin()
		expectEnsureExists(env.mock, "user-1")
		expectLock(env.mock, "user-1", acctRow("user-1", 0))
		env.mock.ExpectQuery(`UPDATE credit_accounts SET`).
			WillReturnRows(sqlmockRowsWithQuota("user-1", 0, 10))
		env.mock.ExpectExec(`UPDATE credit_accounts SET next_reset_at`).
			WillReturnResult(sqlmockResult(1))
		env.mock.ExpectCommit()

		req := httptest.NewRequest(http.MethodPatch, "/credits/quota",
			strings.NewReader(`{"userId":"user-1","dailyQuota":10}`))
		rec := doRequest(h.Routes(), req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, float64(10), body["dailyQuota"])
		assert.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("rejects a negative quota", func(t *testing.T) {
		env := newTestEnv(t)
		h := NewAdminHandler(env.admin)

		req := httptest.NewRequest(http.MethodPatch, "/credits/quota",
			strings.NewReader(`{"userId":"user-1","dailyQuota":-1}`))
		rec := doRequest(h.Routes(), req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a missing userId", func(t *testing.T) {
		env := newTestEnv(t)
		h := NewAdminHandler(env.admin)

		req := httptest.NewRequest(http.MethodPatch, "/credits/quota",
			strings.NewReader(`{"dailyQuota":10}`))
		rec := doRequest(h.Routes(), req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminHandler_ListTransactions(t *testing.T) {
	t.Run("lists the audit trail newest first", func(t *testing.T) {
		env := newTestEnv(t)
		h := NewAdminHandler(env.admin)

		env.mock.ExpectQuery(`SELECT \* FROM ledger_transactions`).
			WithArgs("user-1", 20, 0).
			WillReturnRows(entryRow("user-1", -1, "debit", 4))

		req := httptest.NewRequest(http.MethodGet, "/credits/transactions?userId=user-1", nil)
		rec := doRequest(h.Routes(), req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Transactions []map[string]any `json:"transactions"`
			Limit        int              `json:"limit"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Transactions, 1)
		assert.Equal(t, float64(-1), body.Transactions[0]["delta"])
		assert.Equal(t, 20, body.Limit)
	})

	t.Run("clamps an oversized limit", func(t *testing.T) {
		env := newTestEnv(t)
		h := NewAdminHandler(env.admin)

		env.mock.ExpectQuery(`SELECT \* FROM ledger_transactions`).
			WithArgs("user-1", 20, 0).
			WillReturnRows(entryRow("user-1", -1, "debit", 4))

		req := httptest.NewRequest(http.MethodGet, "/credits/transactions?userId=user-1&limit=9999", nil)
		rec := doRequest(h.Routes(), req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("rejects a missing userId", func(t *testing.T) {
		env := newTestEnv(t)
		h := NewAdminHandler(env.admin)

		req := httptest.NewRequest(http.MethodGet, "/credits/transactions", nil)
		rec := doRequest(h.Routes(), req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
