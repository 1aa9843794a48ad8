package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arcana-app/credits-server-go/internal/model"
)

type LedgerRepository interface {
	Insert(ctx context.Context, params model.CreateTransactionParams) (*model.LedgerTransaction, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.LedgerTransaction, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) LedgerRepository
}

type ledgerRepo struct {
	db sqlxDB
}

func NewLedgerRepository(db *sqlx.DB) LedgerRepository {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) WithTx(tx *sqlx.Tx) LedgerRepository {
	return &ledgerRepo{db: tx}
}

func (r *ledgerRepo) Insert(ctx context.Context, params model.CreateTransactionParams) (*model.LedgerTransaction, error) {
	var txn model.LedgerTransaction
	err := r.db.GetContext(ctx, &txn, `
		INSERT INTO ledger_transactions (id, user_id, delta, kind, feature_key, note, resulting_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, uuid.New().String(), params.UserID, params.Delta, params.Kind, params.FeatureKey, params.Note, params.ResultingBalance)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *ledgerRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.LedgerTransaction, error) {
	var txns []model.LedgerTransaction
	err := r.db.SelectContext(ctx, &txns, `
		SELECT * FROM ledger_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *ledgerRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM ledger_transactions WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
