package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind discriminates the closed set of account event variants.
type Kind string

const (
	// KindCredit increases the account balance.
	KindCredit Kind = "credit"
	// KindDebit decreases the account balance.
	KindDebit Kind = "debit"
)

// Event is an immutable fact recorded in an account's log.
// Amount is always non-negative; the Kind decides the sign of its effect.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Kind      Kind            `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"ts"`
}

// NewCredit builds a credit event stamped with the current UTC time.
func NewCredit(amount decimal.Decimal) Event {
	return Event{
		ID:        uuid.New(),
		Kind:      KindCredit,
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	}
}

// NewDebit builds a debit event stamped with the current UTC time.
func NewDebit(amount decimal.Decimal) Event {
	return Event{
		ID:        uuid.New(),
		Kind:      KindDebit,
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	}
}

// Method returns the display name for the event kind ("deposit" or
// "withdrawal"). It carries no business behavior.
func (e Event) Method() string {
	if e.Kind == KindDebit {
		return "withdrawal"
	}
	return "deposit"
}
