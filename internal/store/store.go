// Package store is the entity persistence layer. A Store hands out serialized
// read-write transactions over an opaque key-value space; typed access to jobs,
// provers and balances is layered on top with Collection.
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a key is absent.
	ErrNotFound = errors.New("key not found")
	// ErrClosed is returned by Begin after Close.
	ErrClosed = errors.New("store closed")
	// ErrTxDone is returned when a finished transaction is used again.
	ErrTxDone = errors.New("transaction already finished")
)

// Store opens units of work. Only one transaction is live at a time: Begin
// blocks until the previous one commits or rolls back, or ctx is done.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is a unit of work. Writes become visible to later transactions only
// after Commit; Rollback discards them. There is no delete.
type Tx interface {
	Get(key []byte) ([]byte, error)
	Insert(key, value []byte) error
	Commit() error
	Rollback() error
}

// Update runs fn inside a transaction and commits it if fn returns nil.
// Any error or panic from fn rolls back every write fn made.
func Update(ctx context.Context, s Store, fn func(tx Tx) error) (err error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// View runs fn inside a transaction that is always rolled back.
func View(ctx context.Context, s Store, fn func(tx Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	return fn(tx)
}

// gate serializes transactions. Acquiring honours context cancellation, which
// a plain mutex cannot.
type gate chan struct{}

func newGate() gate {
	return make(gate, 1)
}

func (g gate) acquire(ctx context.Context) error {
	select {
	case g <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g gate) release() {
	<-g
}
