package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// Compile-time interface satisfaction check.
var _ Store = (*PebbleStore)(nil)

// PebbleStore implements Store on a Pebble LSM. Each transaction is an indexed
// batch, so reads see the transaction's own writes and commit is atomic.
type PebbleStore struct {
	db     *pebble.DB
	gate   gate
	closed atomic.Bool
}

// NewPebbleStore opens (or creates) a Pebble database in dir.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	return openPebble(dir, &pebble.Options{})
}

// NewMemPebbleStore opens a Pebble database backed by an in-memory filesystem.
func NewMemPebbleStore() (*PebbleStore, error) {
	return openPebble("", &pebble.Options{FS: vfs.NewMem()})
}

func openPebble(dir string, opts *pebble.Options) (*PebbleStore, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &PebbleStore{db: db, gate: newGate()}, nil
}

// Close flushes and closes the database.
func (s *PebbleStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Begin waits for exclusive access and opens an indexed batch.
func (s *PebbleStore) Begin(ctx context.Context) (Tx, error) {
	if err := s.gate.acquire(ctx); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		s.gate.release()
		return nil, ErrClosed
	}
	return &pebbleTx{s: s, batch: s.db.NewIndexedBatch()}, nil
}

type pebbleTx struct {
	s     *PebbleStore
	batch *pebble.Batch
	done  bool
}

func (t *pebbleTx) Get(key []byte) ([]byte, error) {
	if t.done {
		return nil, ErrTxDone
	}
	v, closer, err := t.batch.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}
	defer closer.Close()
	return clone(v), nil
}

func (t *pebbleTx) Insert(key, value []byte) error {
	if t.done {
		return ErrTxDone
	}
	if err := t.batch.Set(key, value, nil); err != nil {
		return fmt.Errorf("insert key: %w", err)
	}
	return nil
}

func (t *pebbleTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.s.gate.release()
	defer t.batch.Close()
	if err := t.batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *pebbleTx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.s.gate.release()
	return t.batch.Close()
}
