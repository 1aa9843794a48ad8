package model

import (
	"time"
)

// Account is the primary ledger row, one per user. Rows are created lazily
// on first balance query or admin action; carry_balance never goes negative.
type Account struct {
	UserID       string     `db:"user_id" json:"userId"`
	CarryBalance int64      `db:"carry_balance" json:"carryBalance"`
	DailyQuota   *int64     `db:"daily_quota" json:"dailyQuota,omitempty"`
	MonthlyQuota *int64     `db:"monthly_quota" json:"monthlyQuota,omitempty"`
	NextResetAt  *time.Time `db:"next_reset_at" json:"nextResetAt,omitempty"`
	Plan         string     `db:"plan" json:"plan"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// HasQuota reports whether any periodic quota is configured.
func (a *Account) HasQuota() bool {
	return a.DailyQuota != nil || a.MonthlyQuota != nil
}

// QuotaUpdateParams carries a partial quota edit. Nil fields are left
// untouched; Clear* removes the corresponding quota (unlimited).
type QuotaUpdateParams struct {
	DailyQuota   *int64
	MonthlyQuota *int64
	ClearDaily   bool
	ClearMonthly bool
}
