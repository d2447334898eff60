// Package account implements the event-sourced account engine: appends
// confirmed events to a durable log and derives balances by replay.
package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/finwald/ledgerd/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// recentWindow bounds the Recent view to the newest events.
const recentWindow = 10

// EventLog is the durable append/read store the engine writes through.
// Append must not return until the events are durably persisted, and must
// fail with domain.ErrConcurrencyConflict when expectedVersion does not
// match the log's current version.
type EventLog interface {
	Append(ctx context.Context, identity string, events []domain.Event, expectedVersion uint64) (uint64, error)
	Read(ctx context.Context, identity string, from, to uint64) ([]domain.Event, error)
	Version(ctx context.Context, identity string) (uint64, error)
}

// account is the per-identity serialization point: the only shared mutable
// state for one identity is this version/cached-balance pair guarded by its
// lock. Entries are created lazily and live for the process lifetime.
type account struct {
	mu      sync.RWMutex
	version uint64
	balance decimal.Decimal
	warm    bool
}

// Engine orchestrates writes and replays for account aggregates. Identities
// are fully independent: operations on different accounts never contend.
type Engine struct {
	log    EventLog
	logger *zap.Logger

	mu       sync.Mutex
	accounts map[string]*account
}

// NewEngine creates an engine over the given event log.
func NewEngine(log EventLog, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		log:      log,
		logger:   logger,
		accounts: make(map[string]*account),
	}
}

// Deposit records a credit event for identity. It returns only after the
// event is durably confirmed by the log store.
func (e *Engine) Deposit(ctx context.Context, identity string, amount decimal.Decimal) error {
	return e.write(ctx, identity, amount, domain.NewCredit)
}

// Withdraw records a debit event for identity. Withdrawals are not checked
// against the balance: debits may drive it negative.
func (e *Engine) Withdraw(ctx context.Context, identity string, amount decimal.Decimal) error {
	return e.write(ctx, identity, amount, domain.NewDebit)
}

func (e *Engine) write(ctx context.Context, identity string, amount decimal.Decimal, build func(decimal.Decimal) domain.Event) error {
	if err := validateIdentity(identity); err != nil {
		return err
	}
	if amount.IsNegative() {
		return errors.Wrapf(domain.ErrNegativeAmount, "amount %s", amount)
	}

	acc := e.account(identity)

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if err := e.hydrate(ctx, identity, acc); err != nil {
		return err
	}

	evt := build(amount)
	confirmed, err := e.log.Append(ctx, identity, []domain.Event{evt}, acc.version)
	if err != nil {
		return errors.Wrapf(err, "append %s for %q", evt.Kind, identity)
	}

	// The version and cached balance advance only after the durable
	// confirmation above; a cancelled or failed append changes nothing.
	acc.version = confirmed
	acc.balance, err = domain.Replay(acc.balance, []domain.Event{evt})
	if err != nil {
		return err
	}

	e.logger.Debug("event confirmed",
		zap.String("account", identity),
		zap.String("kind", string(evt.Kind)),
		zap.String("amount", amount.String()),
		zap.Uint64("version", confirmed))

	return nil
}

// Balance returns the current balance for identity: the cached projection
// when warm, otherwise a full replay of the log.
func (e *Engine) Balance(ctx context.Context, identity string) (decimal.Decimal, error) {
	if err := validateIdentity(identity); err != nil {
		return decimal.Decimal{}, err
	}

	acc := e.account(identity)

	acc.mu.RLock()
	if acc.warm {
		balance := acc.balance
		acc.mu.RUnlock()
		return balance, nil
	}
	acc.mu.RUnlock()

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if err := e.hydrate(ctx, identity, acc); err != nil {
		return decimal.Decimal{}, err
	}
	return acc.balance, nil
}

// BalanceAt returns the balance as of the given instant: the fold of all
// events with timestamp strictly before asOf. The log is not guaranteed
// strictly timestamp-ordered, so the whole range is scanned and filtered
// rather than cut by binary search.
func (e *Engine) BalanceAt(ctx context.Context, identity string, asOf time.Time) (decimal.Decimal, error) {
	if err := validateIdentity(identity); err != nil {
		return decimal.Decimal{}, err
	}

	version, err := e.snapshotVersion(ctx, identity)
	if err != nil {
		return decimal.Decimal{}, err
	}

	events, err := e.log.Read(ctx, identity, 1, version)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "read log for %q", identity)
	}

	filtered := make([]domain.Event, 0, len(events))
	for _, evt := range events {
		if evt.Timestamp.Before(asOf) {
			filtered = append(filtered, evt)
		}
	}

	return domain.Replay(decimal.Zero, filtered)
}

// Recent returns up to the 10 newest transactions for identity, oldest
// first, as a materialized list.
func (e *Engine) Recent(ctx context.Context, identity string) ([]domain.RecentTransaction, error) {
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}

	version, err := e.snapshotVersion(ctx, identity)
	if err != nil {
		return nil, err
	}

	if version == 0 {
		return []domain.RecentTransaction{}, nil
	}

	from := uint64(1)
	if version > recentWindow {
		from = version - recentWindow + 1
	}

	events, err := e.log.Read(ctx, identity, from, version)
	if err != nil {
		return nil, errors.Wrapf(err, "read log for %q", identity)
	}

	recent := make([]domain.RecentTransaction, 0, len(events))
	for _, evt := range events {
		recent = append(recent, domain.ToRecentTransaction(evt))
	}

	return recent, nil
}

// account returns the serialization point for identity, creating it lazily.
func (e *Engine) account(identity string) *account {
	e.mu.Lock()
	defer e.mu.Unlock()

	acc, ok := e.accounts[identity]
	if !ok {
		acc = &account{}
		e.accounts[identity] = acc
	}
	return acc
}

// hydrate loads version and balance from the log on first touch. The caller
// must hold the account write lock.
func (e *Engine) hydrate(ctx context.Context, identity string, acc *account) error {
	if acc.warm {
		return nil
	}

	version, err := e.log.Version(ctx, identity)
	if err != nil {
		return errors.Wrapf(err, "load version for %q", identity)
	}

	events, err := e.log.Read(ctx, identity, 1, version)
	if err != nil {
		return errors.Wrapf(err, "replay log for %q", identity)
	}

	balance, err := domain.Replay(decimal.Zero, events)
	if err != nil {
		return err
	}

	acc.version = version
	acc.balance = balance
	acc.warm = true

	e.logger.Debug("account hydrated",
		zap.String("account", identity),
		zap.Uint64("version", version),
		zap.String("balance", balance.String()))

	return nil
}

// snapshotVersion returns a confirmed version for identity. Events up to a
// confirmed version are immutable, so reads of 1..version need no lock.
func (e *Engine) snapshotVersion(ctx context.Context, identity string) (uint64, error) {
	acc := e.account(identity)

	acc.mu.RLock()
	if acc.warm {
		version := acc.version
		acc.mu.RUnlock()
		return version, nil
	}
	acc.mu.RUnlock()

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if err := e.hydrate(ctx, identity, acc); err != nil {
		return 0, err
	}
	return acc.version, nil
}

// validateIdentity rejects identities that are empty or unusable as log
// directory names.
func validateIdentity(identity string) error {
	if strings.TrimSpace(identity) == "" {
		return domain.ErrInvalidIdentity
	}
	if strings.ContainsAny(identity, `/\`) || identity == "." || identity == ".." {
		return errors.Wrapf(domain.ErrInvalidIdentity, "identity %q", identity)
	}
	return nil
}
