package store

import (
	"context"
	"sync"
)

// Compile-time interface satisfaction check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps entities in a map. Writes are staged per transaction and
// applied on commit.
type MemoryStore struct {
	gate gate

	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		gate: newGate(),
		data: make(map[string][]byte),
	}
}

// Begin waits for exclusive access and opens a transaction.
func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := s.gate.acquire(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		s.gate.release()
		return nil, ErrClosed
	}
	return &memoryTx{s: s, writes: make(map[string][]byte)}, nil
}

// Close discards all data. Later Begin calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

type memoryTx struct {
	s      *MemoryStore
	writes map[string][]byte
	done   bool
}

func (t *memoryTx) Get(key []byte) ([]byte, error) {
	if t.done {
		return nil, ErrTxDone
	}
	if v, ok := t.writes[string(key)]; ok {
		return clone(v), nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	v, ok := t.s.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

func (t *memoryTx) Insert(key, value []byte) error {
	if t.done {
		return ErrTxDone
	}
	t.writes[string(key)] = clone(value)
	return nil
}

func (t *memoryTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.s.gate.release()

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.closed {
		return ErrClosed
	}
	for k, v := range t.writes {
		t.s.data[k] = v
	}
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.writes = nil
	t.s.gate.release()
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
