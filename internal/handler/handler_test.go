package handler

import (
	"context"
	"database/sql/driver"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/arcana-app/credits-server-go/internal/config"
	"github.com/arcana-app/credits-server-go/internal/database"
	"github.com/arcana-app/credits-server-go/internal/middleware"
	"github.com/arcana-app/credits-server-go/internal/repository"
	"github.com/arcana-app/credits-server-go/internal/service"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

// testEnv wires the real services over a sqlmock-backed database, so the
// handlers are exercised end to end minus Postgres.
type testEnv struct {
	db       *database.DB
	mock     sqlmock.Sqlmock
	ledger   *service.Ledger
	balances *service.BalanceService
	admin    *service.AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	db := &database.DB{DB: sqlxDB}

	accounts := repository.NewAccountRepository(sqlxDB)
	entries := repository.NewLedgerRepository(sqlxDB)
	legacy := repository.NewLegacyBalanceRepository(sqlxDB)

	costs := service.NewCostResolver(&config.Config{
		CostSingleCard: 1,
		CostThreeCard:  1,
		CostClassic10:  5,
	})
	ledger := service.NewLedger(db, accounts, entries, legacy, costs)

	return &testEnv{
		db:       db,
		mock:     mock,
		ledger:   ledger,
		balances: service.NewBalanceService(accounts, legacy),
		admin:    service.NewAdminService(db, ledger, accounts, entries),
	}
}

func withUser(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserIDContextKey, userID)
	return req.WithContext(ctx)
}

func acctColumns() []string {
	return []string{
		"user_id", "carry_balance", "daily_quota", "monthly_quota",
		"next_reset_at", "plan", "created_at", "updated_at",
	}
}

func acctRow(userID string, balance int64) *sqlmock.Rows {
	return sqlmock.NewRows(acctColumns()).
		AddRow(userID, balance, nil, nil, nil, "free", testNow, testNow)
}

func sqlmockRowsWithQuota(userID string, balance, daily int64) *sqlmock.Rows {
	return sqlmock.NewRows(acctColumns()).
		AddRow(userID, balance, daily, nil, nil, "free", testNow, testNow)
}

func sqlmockResult(rows int64) driver.Result {
	return sqlmock.NewResult(0, rows)
}

func entryColumns() []string {
	return []string{"id", "user_id", "delta", "kind", "feature_key", "note", "resulting_balance", "created_at"}
}

func entryRow(userID string, delta int64, kind string, resulting int64) *sqlmock.Rows {
	return sqlmock.NewRows(entryColumns()).
		AddRow("11111111-1111-1111-1111-111111111111", userID, delta, kind, nil, nil, resulting, testNow)
}

func expectEnsureExists(mock sqlmock.Sqlmock, userID string) {
	mock.ExpectExec(`INSERT INTO credit_accounts`).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectLock(mock sqlmock.Sqlmock, userID string, rows *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT \* FROM credit_accounts WHERE user_id = \$1 FOR UPDATE`).
		WithArgs(userID).
		WillReturnRows(rows)
}

func expectSetBalance(mock sqlmock.Sqlmock, userID string, balance int64) {
	mock.ExpectExec(`UPDATE credit_accounts SET carry_balance = \$2, updated_at = \$3 WHERE user_id = \$1`).
		WithArgs(userID, balance, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func expectEntryInsert(mock sqlmock.Sqlmock, userID string, delta int64, kind string, resulting int64) {
	mock.ExpectQuery(`INSERT INTO ledger_transactions`).
		WillReturnRows(entryRow(userID, delta, kind, resulting))
}

func expectDebit(mock sqlmock.Sqlmock, userID string, balance, cost int64) {
	mock.ExpectBegin()
	expectEnsureExists(mock, userID)
	expectLock(mock, userID, acctRow(userID, balance))
	expectSetBalance(mock, userID, balance-cost)
	expectEntryInsert(mock, userID, -cost, "debit", balance-cost)
	mock.ExpectCommit()
}

func doRequest(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
