package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcana-app/credits-server-go/internal/model"
	"github.com/arcana-app/credits-server-go/internal/repository"
)

func newTestBalanceService(t *testing.T) (*BalanceService, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	svc := NewBalanceService(
		repository.NewAccountRepository(sqlxDB),
		repository.NewLegacyBalanceRepository(sqlxDB),
	)
	svc.now = func() time.Time { return testNow }
	return svc, mock
}

func expectFind(mock sqlmock.Sqlmock, userID string, rows *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT \* FROM credit_accounts WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(rows)
}

func TestBalanceService_GetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("prefers the primary ledger row", func(t *testing.T) {
		svc, mock := newTestBalanceService(t)

		expectEnsureExists(mock, "user-1")
		expectFind(mock, "user-1", acctRow("user-1", 7, nil, nil))

		balance := svc.GetBalance(ctx, "user-1")
		assert.Equal(t, int64(7), balance.Amount)
		assert.Equal(t, model.SourcePrimary, balance.Source)
	})

	t.Run("previews a due replenishment for display", func(t *testing.T) {
		svc, mock := newTestBalanceService(t)

		past := testNow.Add(-time.Hour)
		expectEnsureExists(mock, "user-1")
		expectFind(mock, "user-1", acctRow("user-1", 0, int64(10), past))

		balance := svc.GetBalance(ctx, "user-1")
		assert.Equal(t, int64(10), balance.Amount)
	})

	t.Run("falls back to the balance view", func(t *testing.T) {
		svc, mock := newTestBalanceService(t)

		expectEnsureExists(mock, "user-2")
		mock.ExpectQuery(`SELECT \* FROM credit_accounts WHERE user_id = \$1`).
			WithArgs("user-2").
			WillReturnError(errors.New("primary read failed"))
		mock.ExpectQuery(`SELECT balance FROM account_balances WHERE user_id = \$1`).
			WithArgs("user-2").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(4)))

		balance := svc.GetBalance(ctx, "user-2")
		assert.Equal(t, int64(4), balance.Amount)
		assert.Equal(t, model.SourceView, balance.Source)
	})

	t.Run("falls back to the legacy table", func(t *testing.T) {
		svc, mock := newTestBalanceService(t)

		expectEnsureExists(mock, "user-3")
		expectFind(mock, "user-3", sqlmock.NewRows(acctColumns()))
		mock.ExpectQuery(`SELECT balance FROM account_balances WHERE user_id = \$1`).
			WithArgs("user-3").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery(`SELECT balance, credit, carry_balance FROM profiles`).
			WithArgs("user-3").
			WillReturnRows(sqlmock.NewRows([]string{"balance", "credit", "carry_balance"}).
				AddRow(nil, int64(2), nil))

		balance := svc.GetBalance(ctx, "user-3")
		assert.Equal(t, int64(2), balance.Amount)
		assert.Equal(t, model.SourceLegacy, balance.Source)
	})

	t.Run("absence resolves to zero, not an error", func(t *testing.T) {
		svc, mock := newTestBalanceService(t)

		expectEnsureExists(mock, "nobody")
		expectFind(mock, "nobody", sqlmock.NewRows(acctColumns()))
		mock.ExpectQuery(`SELECT balance FROM account_balances WHERE user_id = \$1`).
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery(`SELECT balance, credit, carry_balance FROM profiles`).
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"balance", "credit", "carry_balance"}))

		balance := svc.GetBalance(ctx, "nobody")
		assert.Equal(t, int64(0), balance.Amount)
		assert.Equal(t, model.SourceNone, balance.Source)
	})

	t.Run("degrades to zero when every path fails", func(t *testing.T) {
		svc, mock := newTestBalanceService(t)

		mock.ExpectExec(`INSERT INTO credit_accounts`).
			WithArgs("user-4").
			WillReturnError(errors.New("db down"))
		expectFind(mock, "user-4", sqlmock.NewRows(acctColumns()).RowError(0, errors.New("db down")))
		mock.ExpectQuery(`SELECT balance FROM account_balances WHERE user_id = \$1`).
			WithArgs("user-4").
			WillReturnError(errors.New("db down"))
		mock.ExpectQuery(`SELECT balance, credit, carry_balance FROM profiles`).
			WithArgs("user-4").
			WillReturnError(errors.New("db down"))

		balance := svc.GetBalance(ctx, "user-4")
		assert.Equal(t, int64(0), balance.Amount, "read path never crashes the caller")
	})
}
