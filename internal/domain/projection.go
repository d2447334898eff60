package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrUnknownEventKind is a defect-class error: the projector met an event
// variant it has no rule for. The fold aborts, nothing is skipped.
var ErrUnknownEventKind = errors.New("unknown event kind")

// Replay folds an ordered event sequence onto a baseline balance.
// It is a pure function: same input, same output, no hidden state.
func Replay(baseline decimal.Decimal, events []Event) (decimal.Decimal, error) {
	balance := baseline
	for _, evt := range events {
		switch evt.Kind {
		case KindCredit:
			balance = balance.Add(evt.Amount)
		case KindDebit:
			balance = balance.Sub(evt.Amount)
		default:
			return decimal.Decimal{}, errors.Wrapf(ErrUnknownEventKind, "kind %q", evt.Kind)
		}
	}
	return balance, nil
}
