package model

import (
	"time"
)

type TransactionKind string

const (
	KindDebit      TransactionKind = "debit"
	KindCredit     TransactionKind = "credit"
	KindAdjustment TransactionKind = "adjustment"
	KindReset      TransactionKind = "reset"
)

// LedgerTransaction is one recorded state change on an account's balance.
// Kept for audit/debug; the balance itself lives on the Account row.
type LedgerTransaction struct {
	ID               string          `db:"id" json:"id"`
	UserID           string          `db:"user_id" json:"userId"`
	Delta            int64           `db:"delta" json:"delta"`
	Kind             TransactionKind `db:"kind" json:"kind"`
	FeatureKey       *string         `db:"feature_key" json:"featureKey,omitempty"`
	Note             *string         `db:"note" json:"note,omitempty"`
	ResultingBalance int64           `db:"resulting_balance" json:"resultingBalance"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
}

type CreateTransactionParams struct {
	UserID           string
	Delta            int64
	Kind             TransactionKind
	FeatureKey       *string
	Note             *string
	ResultingBalance int64
}
