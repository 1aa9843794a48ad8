package service

import (
	"time"

	"github.com/arcana-app/credits-server-go/internal/model"
)

// resetOutcome describes one due quota replenishment.
type resetOutcome struct {
	NewBalance  int64
	NextResetAt time.Time
	Quota       int64
	Period      string
}

// applyResetIfDue computes the effect of the quota reset policy on an
// account at the given instant. It is pure; the caller persists the outcome
// inside the same transaction that holds the row lock, so two concurrent
// callers can never both apply the same boundary.
//
// Replenishment policy: top up to quota. The carry balance is raised to the
// quota amount if below it, never accumulated past it. The daily quota takes
// precedence when both are set. The boundary advances by whole periods until
// it lies in the future, so a long-idle account replenishes exactly once.
func applyResetIfDue(account *model.Account, now time.Time) *resetOutcome {
	if account.NextResetAt == nil || account.NextResetAt.After(now) {
		return nil
	}
	if !account.HasQuota() {
		return nil
	}

	var quota int64
	var period string
	var advance func(time.Time) time.Time
	if account.DailyQuota != nil {
		quota = *account.DailyQuota
		period = "daily"
		advance = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	} else {
		quota = *account.MonthlyQuota
		period = "monthly"
		advance = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	}

	next := *account.NextResetAt
	for !next.After(now) {
		next = advance(next)
	}

	balance := account.CarryBalance
	if balance < quota {
		balance = quota
	}

	return &resetOutcome{
		NewBalance:  balance,
		NextResetAt: next,
		Quota:       quota,
		Period:      period,
	}
}
