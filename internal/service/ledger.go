package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/arcana-app/credits-server-go/internal/audit"
	"github.com/arcana-app/credits-server-go/internal/database"
	apperrors "github.com/arcana-app/credits-server-go/internal/errors"
	"github.com/arcana-app/credits-server-go/internal/model"
	"github.com/arcana-app/credits-server-go/internal/repository"
)

// DebitResult is the outcome of one debit attempt. Granted=false with a nil
// error is the ordinary insufficient-funds answer, not a failure.
type DebitResult struct {
	Granted    bool  `json:"granted"`
	NewBalance int64 `json:"newBalance"`
	Cost       int64 `json:"cost"`
	// BestEffort marks a debit granted through the legacy fallback path,
	// which admits a narrow race under concurrent access to one account.
	BestEffort bool `json:"bestEffort,omitempty"`
}

// Ledger owns every mutation of carry_balance. No other component performs a
// read-modify-write on it.
type Ledger struct {
	db       *database.DB
	accounts repository.AccountRepository
	entries  repository.LedgerRepository
	legacy   repository.LegacyBalanceRepository
	costs    *CostResolver
	now      func() time.Time
}

func NewLedger(
	db *database.DB,
	accounts repository.AccountRepository,
	entries repository.LedgerRepository,
	legacy repository.LegacyBalanceRepository,
	costs *CostResolver,
) *Ledger {
	return &Ledger{
		db:       db,
		accounts: accounts,
		entries:  entries,
		legacy:   legacy,
		costs:    costs,
		now:      time.Now,
	}
}

// TryDebit atomically checks and decrements the account's balance by the
// cost of featureKey. A due quota reset is applied first, inside the same
// transaction. When the transactional path is unavailable for reasons
// unrelated to balance, the debit falls through to the legacy best-effort
// path rather than silently granting.
func (l *Ledger) TryDebit(ctx context.Context, userID string, featureKey model.FeatureKey) (*DebitResult, error) {
	cost, err := l.costs.CostOf(featureKey)
	if err != nil {
		return nil, err
	}

	result, txErr := l.debitPrimary(ctx, userID, featureKey, cost)
	if txErr == nil {
		return result, nil
	}

	log.Warn().Err(txErr).Str("userId", userID).Str("feature", string(featureKey)).
		Msg("primary debit path failed, trying legacy fallback")
	return l.debitFallback(ctx, userID, featureKey, cost, txErr)
}

func (l *Ledger) debitPrimary(ctx context.Context, userID string, featureKey model.FeatureKey, cost int64) (*DebitResult, error) {
	var result *DebitResult

	err := l.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		accounts := l.accounts.WithTx(tx)
		entries := l.entries.WithTx(tx)

		if err := accounts.EnsureExists(ctx, userID); err != nil {
			return err
		}

		account, err := accounts.LockByID(ctx, userID)
		if err != nil {
			return err
		}

		balance, err := l.applyResetLocked(ctx, accounts, entries, account)
		if err != nil {
			return err
		}

		if balance < cost {
			result = &DebitResult{Granted: false, NewBalance: balance, Cost: cost}
			return nil
		}

		newBalance := balance - cost
		if err := accounts.SetBalance(ctx, userID, newBalance); err != nil {
			return err
		}

		feature := string(featureKey)
		if _, err := entries.Insert(ctx, model.CreateTransactionParams{
			UserID:           userID,
			Delta:            -cost,
			Kind:             model.KindDebit,
			FeatureKey:       &feature,
			ResultingBalance: newBalance,
		}); err != nil {
			return err
		}

		result = &DebitResult{Granted: true, NewBalance: newBalance, Cost: cost}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// debitFallback is the documented weaker path: a freshly re-verified
// read-then-write against the legacy table. Not linearizable.
func (l *Ledger) debitFallback(ctx context.Context, userID string, featureKey model.FeatureKey, cost int64, primaryErr error) (*DebitResult, error) {
	newBalance, granted, err := l.legacy.DebitBestEffort(ctx, userID, cost)
	if err != nil {
		// Neither path could prove the debit; report rather than grant.
		return nil, apperrors.Database(err).WithDetails(map[string]string{
			"primaryError": primaryErr.Error(),
		})
	}

	if !granted {
		return &DebitResult{Granted: false, NewBalance: newBalance, Cost: cost, BestEffort: true}, nil
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventDebitFallback,
		UserID: userID,
		Details: map[string]interface{}{
			"feature": string(featureKey),
			"cost":    cost,
		},
	})

	feature := string(featureKey)
	note := "legacy fallback debit"
	if _, err := l.entries.Insert(ctx, model.CreateTransactionParams{
		UserID:           userID,
		Delta:            -cost,
		Kind:             model.KindDebit,
		FeatureKey:       &feature,
		Note:             &note,
		ResultingBalance: newBalance,
	}); err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("failed to record fallback debit")
	}

	return &DebitResult{Granted: true, NewBalance: newBalance, Cost: cost, BestEffort: true}, nil
}

// Credit unconditionally adds amount to the account's balance, clamped so
// the result never goes below zero. Used by admin adjustments and by
// compensating refunds after a failed downstream generation.
func (l *Ledger) Credit(ctx context.Context, userID string, amount int64, kind model.TransactionKind, featureKey *string, note string) (int64, error) {
	var newBalance int64

	err := l.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		accounts := l.accounts.WithTx(tx)
		entries := l.entries.WithTx(tx)

		if err := accounts.EnsureExists(ctx, userID); err != nil {
			return err
		}

		account, err := accounts.LockByID(ctx, userID)
		if err != nil {
			return err
		}

		balance, err := l.applyResetLocked(ctx, accounts, entries, account)
		if err != nil {
			return err
		}

		newBalance = balance + amount
		if newBalance < 0 {
			newBalance = 0
		}

		if err := accounts.SetBalance(ctx, userID, newBalance); err != nil {
			return err
		}

		var notePtr *string
		if note != "" {
			notePtr = &note
		}
		_, err = entries.Insert(ctx, model.CreateTransactionParams{
			UserID:           userID,
			Delta:            newBalance - balance,
			Kind:             kind,
			FeatureKey:       featureKey,
			Note:             notePtr,
			ResultingBalance: newBalance,
		})
		return err
	})
	if err != nil {
		return 0, apperrors.Database(err)
	}
	return newBalance, nil
}

// applyResetLocked persists a due quota replenishment for a row-locked
// account and returns the post-reset balance.
func (l *Ledger) applyResetLocked(
	ctx context.Context,
	accounts repository.AccountRepository,
	entries repository.LedgerRepository,
	account *model.Account,
) (int64, error) {
	outcome := applyResetIfDue(account, l.now())
	if outcome == nil {
		return account.CarryBalance, nil
	}

	if err := accounts.ApplyReset(ctx, account.UserID, outcome.NewBalance, outcome.NextResetAt); err != nil {
		return 0, err
	}

	if outcome.NewBalance != account.CarryBalance {
		note := outcome.Period + " quota reset"
		if _, err := entries.Insert(ctx, model.CreateTransactionParams{
			UserID:           account.UserID,
			Delta:            outcome.NewBalance - account.CarryBalance,
			Kind:             model.KindReset,
			Note:             &note,
			ResultingBalance: outcome.NewBalance,
		}); err != nil {
			return 0, err
		}
	}

	account.CarryBalance = outcome.NewBalance
	account.NextResetAt = &outcome.NextResetAt
	return outcome.NewBalance, nil
}
