// Package eventlog persists per-account event streams in write-ahead logs.
// Each account identity owns its own WAL directory; the WAL index is the
// account version (index 0 means no events recorded).
package eventlog

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"

	"github.com/finwald/ledgerd/internal/domain"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
)

const (
	defaultDir              = "./wal/accounts"
	defaultSegmentThreshold = 1000
	defaultMaxSegments      = 100
	walPrefix               = "events_"
)

// Config tunes the underlying WAL segments. Zero values fall back to
// package defaults; SyncWrites defaults to true because a returned append
// must mean the event is on disk.
type Config struct {
	Dir              string
	SegmentThreshold int
	MaxSegments      int
	NoSync           bool
}

// Store is a durable, append-only event log keyed by account identity.
// Logs are opened lazily on first access and kept open for the process
// lifetime.
type Store struct {
	cfg  Config
	mu   sync.Mutex
	logs map[string]*accountLog
}

type accountLog struct {
	mu  sync.Mutex
	wal *gowal.Wal
}

// New creates a store rooted at cfg.Dir.
func New(cfg Config) *Store {
	if cfg.Dir == "" {
		cfg.Dir = defaultDir
	}
	if cfg.SegmentThreshold <= 0 {
		cfg.SegmentThreshold = defaultSegmentThreshold
	}
	if cfg.MaxSegments <= 0 {
		cfg.MaxSegments = defaultMaxSegments
	}
	return &Store{cfg: cfg, logs: make(map[string]*accountLog)}
}

// log returns the WAL for identity, opening it on first use.
func (s *Store) log(identity string) (*accountLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.logs[identity]; ok {
		return l, nil
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              filepath.Join(s.cfg.Dir, identity),
		Prefix:           walPrefix,
		SegmentThreshold: s.cfg.SegmentThreshold,
		MaxSegments:      s.cfg.MaxSegments,
		IsInSyncDiskMode: !s.cfg.NoSync,
	})
	if err != nil {
		return nil, errors.Wrapf(domain.ErrLogUnavailable, "open event log for %q: %v", identity, err)
	}

	l := &accountLog{wal: wal}
	s.logs[identity] = l
	return l, nil
}

// Append durably writes events after checking that the log's current
// version matches expectedVersion. On mismatch it fails with
// ErrConcurrencyConflict and writes nothing. The events go down as one
// batch: either every event is durable on return or none is. The returned
// version counts all confirmed events.
func (s *Store) Append(ctx context.Context, identity string, events []domain.Event, expectedVersion uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l, err := s.log(identity)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.wal.CurrentIndex()
	if current != expectedVersion {
		return 0, errors.Wrapf(domain.ErrConcurrencyConflict,
			"append to %q: expected version %d, log at %d", identity, expectedVersion, current)
	}

	// marshal everything before touching the WAL so a bad payload
	// cannot leave a partial batch behind
	records := make([]gowal.Record, 0, len(events))
	for i, evt := range events {
		payload, err := json.Marshal(evt)
		if err != nil {
			return 0, errors.Wrapf(err, "marshal event %d for %q", i, identity)
		}
		records = append(records, gowal.Record{
			Index: current + uint64(i) + 1,
			Key:   string(evt.Kind),
			Value: payload,
		})
	}

	batch, err := gowal.NewBatch(records...)
	if err != nil {
		return 0, errors.Wrapf(domain.ErrLogUnavailable, "build batch for %q: %v", identity, err)
	}
	if err := l.wal.WriteBatch(batch); err != nil {
		return 0, errors.Wrapf(domain.ErrLogUnavailable, "append %d events to %q: %v", len(events), identity, err)
	}

	return current + uint64(len(events)), nil
}

// Read returns events from..to in log order, both bounds inclusive.
// Versions are 1-based; a to of 0 yields an empty slice.
func (s *Store) Read(ctx context.Context, identity string, from, to uint64) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l, err := s.log(identity)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if from < 1 {
		from = 1
	}
	if to > l.wal.CurrentIndex() {
		to = l.wal.CurrentIndex()
	}
	if from > to {
		return nil, nil
	}

	events := make([]domain.Event, 0, to-from+1)
	for idx := from; idx <= to; idx++ {
		_, payload, err := l.wal.Get(idx)
		if err != nil {
			return nil, errors.Wrapf(domain.ErrLogUnavailable, "read %q at %d: %v", identity, idx, err)
		}
		// nil payload with nil error is gowal's not-found result: the
		// entry was rotated out with its segment
		if payload == nil {
			return nil, errors.Wrapf(domain.ErrLogUnavailable, "read %q: missing log entry at %d", identity, idx)
		}
		var evt domain.Event
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, errors.Wrapf(err, "decode event at %d for %q", idx, identity)
		}
		events = append(events, evt)
	}

	return events, nil
}

// Version reports the number of confirmed events for identity.
func (s *Store) Version(ctx context.Context, identity string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l, err := s.log(identity)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.wal.CurrentIndex(), nil
}

// Close closes every open WAL.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for identity, l := range s.logs {
		l.mu.Lock()
		if err := l.wal.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "close event log for %q", identity)
		}
		l.mu.Unlock()
	}
	s.logs = make(map[string]*accountLog)

	return firstErr
}
