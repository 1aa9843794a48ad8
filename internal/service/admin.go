package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/arcana-app/credits-server-go/internal/audit"
	"github.com/arcana-app/credits-server-go/internal/database"
	apperrors "github.com/arcana-app/credits-server-go/internal/errors"
	"github.com/arcana-app/credits-server-go/internal/model"
	"github.com/arcana-app/credits-server-go/internal/repository"
)

// AdminService holds the privileged ledger operations. Authorization has
// already happened by the time these are called.
type AdminService struct {
	db       *database.DB
	ledger   *Ledger
	accounts repository.AccountRepository
	entries  repository.LedgerRepository
	now      func() time.Time
}

func NewAdminService(
	db *database.DB,
	ledger *Ledger,
	accounts repository.AccountRepository,
	entries repository.LedgerRepository,
) *AdminService {
	return &AdminService{
		db:       db,
		ledger:   ledger,
		accounts: accounts,
		entries:  entries,
		now:      time.Now,
	}
}

// TopUp credits (or, for a negative amount, deducts) the account. It goes
// through the same atomic Credit primitive as every other balance mutation,
// so the result is visible to the very next debit.
func (s *AdminService) TopUp(ctx context.Context, userID string, amount int64, note string) (int64, error) {
	if amount == 0 {
		return 0, apperrors.InvalidInput("amount", "must be non-zero")
	}

	newBalance, err := s.ledger.Credit(ctx, userID, amount, model.KindAdjustment, nil, note)
	if err != nil {
		return 0, err
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventTopUp,
		UserID: userID,
		Details: map[string]interface{}{
			"amount":     amount,
			"newBalance": newBalance,
			"note":       note,
		},
	})
	return newBalance, nil
}

// SetQuota edits the periodic quota fields under the same row lock the
// transactor uses, so a concurrent reset never computes off stale values.
// Configuring a quota on an account with no reset boundary makes the first
// replenishment due immediately; clearing both quotas removes the boundary.
func (s *AdminService) SetQuota(ctx context.Context, userID string, params model.QuotaUpdateParams) (*model.Account, error) {
	var updated *model.Account

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		accounts := s.accounts.WithTx(tx)

		if err := accounts.EnsureExists(ctx, userID); err != nil {
			return err
		}
		if _, err := accounts.LockByID(ctx, userID); err != nil {
			return err
		}

		account, err := accounts.UpdateQuota(ctx, userID, params)
		if err != nil {
			return err
		}
		if account == nil {
			return apperrors.NotFound("Account")
		}

		switch {
		case !account.HasQuota() && account.NextResetAt != nil:
			if err := accounts.SetNextReset(ctx, userID, nil); err != nil {
				return err
			}
			account.NextResetAt = nil
		case account.HasQuota() && account.NextResetAt == nil:
			due := s.now()
			if err := accounts.SetNextReset(ctx, userID, &due); err != nil {
				return err
			}
			account.NextResetAt = &due
		}

		updated = account
		return nil
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventQuotaChange,
		UserID: userID,
		Details: map[string]interface{}{
			"dailyQuota":   updated.DailyQuota,
			"monthlyQuota": updated.MonthlyQuota,
		},
	})
	return updated, nil
}

// ListTransactions pages through the account's audit trail, newest first.
func (s *AdminService) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]model.LedgerTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	txns, err := s.entries.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return txns, nil
}
