package database

import (
	"context"
	"fmt"
)

// Migrate creates the ledger schema if it does not exist. The legacy
// profiles table is only read by this service but is created here too so
// fresh environments can exercise the fallback path.
func (db *DB) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS credit_accounts (
		user_id        TEXT PRIMARY KEY,
		carry_balance  BIGINT NOT NULL DEFAULT 0 CHECK (carry_balance >= 0),
		daily_quota    BIGINT,
		monthly_quota  BIGINT,
		next_reset_at  TIMESTAMPTZ,
		plan           TEXT NOT NULL DEFAULT 'free',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS ledger_transactions (
		id                 UUID PRIMARY KEY,
		user_id            TEXT NOT NULL,
		delta              BIGINT NOT NULL,
		kind               TEXT NOT NULL,
		feature_key        TEXT,
		note               TEXT,
		resulting_balance  BIGINT NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_ledger_transactions_user
		ON ledger_transactions (user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_ledger_transactions_created
		ON ledger_transactions (created_at);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id        TEXT NOT NULL,
		balance        BIGINT,
		credit         BIGINT,
		carry_balance  BIGINT,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_user
		ON profiles (user_id, updated_at DESC);

	CREATE OR REPLACE VIEW account_balances AS
		SELECT user_id, carry_balance AS balance FROM credit_accounts;
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
