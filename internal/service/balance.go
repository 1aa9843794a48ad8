package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arcana-app/credits-server-go/internal/model"
	"github.com/arcana-app/credits-server-go/internal/repository"
)

// BalanceService resolves the current usable balance across the storage
// shapes the app has accumulated: the primary ledger row, the balance view,
// and the legacy profiles table. Absence is zero, never an error; transport
// failures degrade to zero so a balance display never breaks the caller.
type BalanceService struct {
	accounts repository.AccountRepository
	legacy   repository.LegacyBalanceRepository
	now      func() time.Time
}

func NewBalanceService(accounts repository.AccountRepository, legacy repository.LegacyBalanceRepository) *BalanceService {
	return &BalanceService{
		accounts: accounts,
		legacy:   legacy,
		now:      time.Now,
	}
}

func (s *BalanceService) GetBalance(ctx context.Context, userID string) model.Balance {
	// Lazy bookkeeping so the transactor finds a row on the first debit.
	if err := s.accounts.EnsureExists(ctx, userID); err != nil {
		log.Debug().Err(err).Str("userId", userID).Msg("lazy account create failed")
	}

	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("primary balance read failed")
	} else if account != nil {
		balance := account.CarryBalance
		// Preview a due replenishment for display; the transactor persists
		// it on the next debit.
		if outcome := applyResetIfDue(account, s.now()); outcome != nil {
			balance = outcome.NewBalance
		}
		return model.Balance{Amount: balance, Source: model.SourcePrimary}
	}

	viewBalance, err := s.accounts.ViewBalance(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("balance view read failed")
	} else if viewBalance != nil {
		return model.Balance{Amount: *viewBalance, Source: model.SourceView}
	}

	legacyBalance, err := s.legacy.FindBalance(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("legacy balance read failed")
	} else if legacyBalance != nil {
		return *legacyBalance
	}

	return model.Balance{Amount: 0, Source: model.SourceNone}
}
