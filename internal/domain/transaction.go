package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecentTransaction is a read-only display record derived from an event.
// It is produced for presentation and never persisted.
type RecentTransaction struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"ts"`
}

// ToRecentTransaction maps an event to its display shape.
func ToRecentTransaction(evt Event) RecentTransaction {
	return RecentTransaction{
		Method:    evt.Method(),
		Amount:    evt.Amount,
		Timestamp: evt.Timestamp,
	}
}
