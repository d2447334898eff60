package eventlog

import (
	"context"
	"testing"

	"github.com/finwald/ledgerd/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := New(Config{Dir: t.TempDir(), NoSync: true})
	t.Cleanup(func() {
		assert.NoError(t, store.Close(), "failed to close store")
	})
	return store
}

func TestStore_AppendAndRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	events := []domain.Event{
		domain.NewCredit(decimal.NewFromInt(100)),
		domain.NewDebit(decimal.NewFromInt(40)),
	}

	version, err := store.Append(ctx, "acct-1", events, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version)

	got, err := store.Read(ctx, "acct-1", 1, version)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, events[0].ID, got[0].ID)
	assert.Equal(t, domain.KindCredit, got[0].Kind)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, domain.KindDebit, got[1].Kind)
	assert.True(t, got[1].Amount.Equal(decimal.NewFromInt(40)))
}

func TestStore_VersionStartsAtZero(t *testing.T) {
	store := newTestStore(t)

	version, err := store.Version(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), version)
}

func TestStore_AppendConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, "acct-1", []domain.Event{domain.NewCredit(decimal.NewFromInt(1))}, 0)
	require.NoError(t, err)

	// stale expected version: the log already advanced to 1
	_, err = store.Append(ctx, "acct-1", []domain.Event{domain.NewCredit(decimal.NewFromInt(1))}, 0)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	version, err := store.Version(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version, "rejected append must not advance the log")
}

func TestStore_BatchConflictWritesNothing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := domain.NewCredit(decimal.NewFromInt(7))
	_, err := store.Append(ctx, "acct-1", []domain.Event{first}, 0)
	require.NoError(t, err)

	// a stale multi-event batch must be rejected as a whole
	batch := []domain.Event{
		domain.NewCredit(decimal.NewFromInt(1)),
		domain.NewDebit(decimal.NewFromInt(2)),
		domain.NewCredit(decimal.NewFromInt(3)),
	}
	_, err = store.Append(ctx, "acct-1", batch, 0)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	version, err := store.Version(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)

	events, err := store.Read(ctx, "acct-1", 1, version)
	require.NoError(t, err)
	require.Len(t, events, 1, "no event of the rejected batch may be visible")
	assert.Equal(t, first.ID, events[0].ID)
}

func TestStore_ReadRotatedOutEntry(t *testing.T) {
	// tiny segments so old entries are rotated out with their segment
	store := New(Config{Dir: t.TempDir(), NoSync: true, SegmentThreshold: 2, MaxSegments: 1})
	defer func() {
		assert.NoError(t, store.Close())
	}()
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := store.Append(ctx, "acct-1", []domain.Event{domain.NewCredit(decimal.NewFromInt(1))}, uint64(i))
		require.NoError(t, err)
	}

	version, err := store.Version(ctx, "acct-1")
	require.NoError(t, err)
	require.Equal(t, uint64(6), version)

	// the newest entries are still readable
	tail, err := store.Read(ctx, "acct-1", version, version)
	require.NoError(t, err)
	assert.Len(t, tail, 1)

	// entries dropped with their segment surface as ErrLogUnavailable,
	// not as a decode failure on nil bytes
	_, err = store.Read(ctx, "acct-1", 1, version)
	assert.ErrorIs(t, err, domain.ErrLogUnavailable)
}

func TestStore_ReadBounds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var events []domain.Event
	for i := 1; i <= 5; i++ {
		events = append(events, domain.NewCredit(decimal.NewFromInt(int64(i))))
	}
	_, err := store.Append(ctx, "acct-1", events, 0)
	require.NoError(t, err)

	got, err := store.Read(ctx, "acct-1", 2, 4)
	require.NoError(t, err)
	require.Len(t, got, 3, "read is inclusive of both bounds")
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(2)))
	assert.True(t, got[2].Amount.Equal(decimal.NewFromInt(4)))

	empty, err := store.Read(ctx, "acct-1", 1, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	clamped, err := store.Read(ctx, "acct-1", 4, 99)
	require.NoError(t, err)
	assert.Len(t, clamped, 2, "read clamps to the confirmed version")
}

func TestStore_IdentitiesAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, "alice", []domain.Event{domain.NewCredit(decimal.NewFromInt(10))}, 0)
	require.NoError(t, err)

	version, err := store.Version(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), version, "appends to one identity must not touch another")
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := New(Config{Dir: dir, NoSync: true})
	_, err := store.Append(ctx, "acct-1", []domain.Event{
		domain.NewCredit(decimal.NewFromInt(100)),
		domain.NewDebit(decimal.NewFromInt(30)),
	}, 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := New(Config{Dir: dir, NoSync: true})
	defer func() {
		assert.NoError(t, reopened.Close())
	}()

	version, err := reopened.Version(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version)

	events, err := reopened.Read(ctx, "acct-1", 1, version)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.KindCredit, events[0].Kind)
	assert.Equal(t, domain.KindDebit, events[1].Kind)
}

func TestStore_CancelledContext(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Append(ctx, "acct-1", []domain.Event{domain.NewCredit(decimal.NewFromInt(1))}, 0)
	assert.ErrorIs(t, err, context.Canceled)

	version, err := store.Version(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), version, "cancelled append must write nothing")
}
