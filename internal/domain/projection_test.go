package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay_CreditsAndDebits(t *testing.T) {
	events := []Event{
		NewCredit(decimal.NewFromInt(100)),
		NewCredit(decimal.NewFromInt(50)),
		NewDebit(decimal.NewFromInt(30)),
	}

	balance, err := Replay(decimal.Zero, events)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(120)), "expected 120, got %s", balance)
}

func TestReplay_Deterministic(t *testing.T) {
	events := []Event{
		NewCredit(decimal.NewFromFloat(10.55)),
		NewDebit(decimal.NewFromFloat(3.05)),
		NewCredit(decimal.NewFromInt(7)),
	}

	first, err := Replay(decimal.Zero, events)
	require.NoError(t, err)
	second, err := Replay(decimal.Zero, events)
	require.NoError(t, err)

	assert.True(t, first.Equal(second), "replay must be deterministic")
}

func TestReplay_EmptyLog(t *testing.T) {
	balance, err := Replay(decimal.Zero, nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestReplay_NegativeBalanceAllowed(t *testing.T) {
	events := []Event{
		NewCredit(decimal.NewFromInt(10)),
		NewDebit(decimal.NewFromInt(25)),
	}

	balance, err := Replay(decimal.Zero, events)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(-15)), "debits may drive the balance negative")
}

func TestReplay_UnknownKind(t *testing.T) {
	events := []Event{
		NewCredit(decimal.NewFromInt(10)),
		{Kind: Kind("transfer"), Amount: decimal.NewFromInt(5)},
	}

	_, err := Replay(decimal.Zero, events)
	assert.ErrorIs(t, err, ErrUnknownEventKind)
}

func TestEvent_Method(t *testing.T) {
	assert.Equal(t, "deposit", NewCredit(decimal.NewFromInt(1)).Method())
	assert.Equal(t, "withdrawal", NewDebit(decimal.NewFromInt(1)).Method())
}
