package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/arcana-app/credits-server-go/internal/model"
)

// LegacyBalanceRepository reads the old profiles table, where the balance
// survives under several drifted column names. The "try every field name"
// normalization is confined here; callers only ever see a typed Balance.
type LegacyBalanceRepository interface {
	// FindBalance returns the most recent row's balance, or nil if the user
	// has no legacy row with a numeric balance.
	FindBalance(ctx context.Context, userID string) (*model.Balance, error)
	// DebitBestEffort re-verifies the freshly read balance and writes the
	// decremented value back. This is NOT linearizable: two concurrent
	// callers can interleave between the read and the write. It exists only
	// as a fallback for when the primary transactional path is unavailable.
	DebitBestEffort(ctx context.Context, userID string, cost int64) (newBalance int64, granted bool, err error)
}

type legacyRepo struct {
	db sqlxDB
}

func NewLegacyBalanceRepository(db *sqlx.DB) LegacyBalanceRepository {
	return &legacyRepo{db: db}
}

type legacyRow struct {
	Balance *int64 `db:"balance"`
	Credit  *int64 `db:"credit"`
	Carry   *int64 `db:"carry_balance"`
}

// resolve picks the first numeric column, in drift order.
func (row *legacyRow) resolve() (int64, string, bool) {
	switch {
	case row.Balance != nil:
		return *row.Balance, "balance", true
	case row.Credit != nil:
		return *row.Credit, "credit", true
	case row.Carry != nil:
		return *row.Carry, "carry_balance", true
	default:
		return 0, "", false
	}
}

func (r *legacyRepo) fetch(ctx context.Context, userID string) (*legacyRow, error) {
	var row legacyRow
	err := r.db.GetContext(ctx, &row, `
		SELECT balance, credit, carry_balance FROM profiles
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`, userID)
	return HandleNotFound(&row, err)
}

func (r *legacyRepo) FindBalance(ctx context.Context, userID string) (*model.Balance, error) {
	row, err := r.fetch(ctx, userID)
	if err != nil || row == nil {
		return nil, err
	}

	amount, _, ok := row.resolve()
	if !ok {
		return nil, nil
	}
	return &model.Balance{Amount: amount, Source: model.SourceLegacy}, nil
}

func (r *legacyRepo) DebitBestEffort(ctx context.Context, userID string, cost int64) (int64, bool, error) {
	row, err := r.fetch(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	if row == nil {
		return 0, false, nil
	}

	amount, column, ok := row.resolve()
	if !ok || amount < cost {
		return amount, false, nil
	}

	// column comes from the fixed whitelist in resolve, never from input.
	query := fmt.Sprintf(`
		UPDATE profiles SET %s = $2, updated_at = $3 WHERE user_id = $1
	`, column)
	result, err := r.db.ExecContext(ctx, query, userID, amount-cost, time.Now())
	if err != nil {
		return amount, false, err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return amount, false, errors.New("legacy row disappeared during debit")
	}
	return amount - cost, true, nil
}
