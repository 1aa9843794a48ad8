package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/arcana-app/credits-server-go/internal/model"
)

type AccountRepository interface {
	FindByID(ctx context.Context, userID string) (*model.Account, error)
	// EnsureExists lazily creates a zero-balance account row. Safe to call
	// concurrently; an existing row is left untouched.
	EnsureExists(ctx context.Context, userID string) error
	// LockByID reads the account row under FOR UPDATE. Only meaningful
	// inside a transaction obtained via WithTx.
	LockByID(ctx context.Context, userID string) (*model.Account, error)
	SetBalance(ctx context.Context, userID string, balance int64) error
	ApplyReset(ctx context.Context, userID string, balance int64, nextResetAt time.Time) error
	UpdateQuota(ctx context.Context, userID string, params model.QuotaUpdateParams) (*model.Account, error)
	// SetNextReset sets or clears the reset boundary. Nil clears it.
	SetNextReset(ctx context.Context, userID string, nextResetAt *time.Time) error
	// ViewBalance reads the materialized balance view; nil when no row.
	ViewBalance(ctx context.Context, userID string) (*int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) AccountRepository
}

type accountRepo struct {
	db sqlxDB
}

// sqlxDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sqlxDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) WithTx(tx *sqlx.Tx) AccountRepository {
	return &accountRepo{db: tx}
}

func (r *accountRepo) FindByID(ctx context.Context, userID string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM credit_accounts WHERE user_id = $1
	`, userID)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) EnsureExists(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credit_accounts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (r *accountRepo) LockByID(ctx context.Context, userID string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM credit_accounts WHERE user_id = $1 FOR UPDATE
	`, userID)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) SetBalance(ctx context.Context, userID string, balance int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE credit_accounts SET
			carry_balance = $2,
			updated_at = $3
		WHERE user_id = $1
	`, userID, balance, time.Now())
	return err
}

func (r *accountRepo) ApplyReset(ctx context.Context, userID string, balance int64, nextResetAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE credit_accounts SET
			carry_balance = $2,
			next_reset_at = $3,
			updated_at = $4
		WHERE user_id = $1
	`, userID, balance, nextResetAt, time.Now())
	return err
}

func (r *accountRepo) UpdateQuota(ctx context.Context, userID string, params model.QuotaUpdateParams) (*model.Account, error) {
	var daily, monthly *int64
	if !params.ClearDaily {
		daily = params.DailyQuota
	}
	if !params.ClearMonthly {
		monthly = params.MonthlyQuota
	}

	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		UPDATE credit_accounts SET
			daily_quota = CASE WHEN $2 THEN NULL ELSE COALESCE($3, daily_quota) END,
			monthly_quota = CASE WHEN $4 THEN NULL ELSE COALESCE($5, monthly_quota) END,
			updated_at = $6
		WHERE user_id = $1
		RETURNING *
	`, userID, params.ClearDaily, daily, params.ClearMonthly, monthly, time.Now())
	return HandleNotFound(&account, err)
}

func (r *accountRepo) SetNextReset(ctx context.Context, userID string, nextResetAt *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE credit_accounts SET
			next_reset_at = $2,
			updated_at = $3
		WHERE user_id = $1
	`, userID, nextResetAt, time.Now())
	return err
}

func (r *accountRepo) ViewBalance(ctx context.Context, userID string) (*int64, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance, `
		SELECT balance FROM account_balances WHERE user_id = $1
	`, userID)
	return HandleNotFound(&balance, err)
}
