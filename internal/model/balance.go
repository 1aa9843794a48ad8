package model

// BalanceSource identifies which storage shape a balance was resolved from.
type BalanceSource string

const (
	SourcePrimary BalanceSource = "primary"
	SourceView    BalanceSource = "view"
	SourceLegacy  BalanceSource = "legacy"
	SourceNone    BalanceSource = "none"
)

// Balance is the single typed result produced at the storage boundary.
// The legacy schema carries the value under several column names; that
// normalization happens in the legacy adapter, never in business logic.
type Balance struct {
	Amount int64         `json:"amount"`
	Source BalanceSource `json:"source"`
}
