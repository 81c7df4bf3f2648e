package registry

import (
	"errors"
	"fmt"

	"github.com/seantiz/proofmarket/internal/model"
	"github.com/seantiz/proofmarket/internal/store"
)

const proverCountKey = "prover_count"

// Provers is the prover registry. Registration order is kept in an index so
// All can enumerate provers with point reads only.
type Provers struct {
	provers  store.Collection[model.AccountID, model.Prover]
	order    store.Collection[uint64, model.AccountID]
	counters store.Collection[string, uint64]
}

// NewProvers returns a prover registry.
func NewProvers() Provers {
	return Provers{
		provers: store.NewCollection[model.AccountID, model.Prover]("prover", func(id model.AccountID) []byte {
			return store.StringKey(string(id))
		}),
		order:    store.NewCollection[uint64, model.AccountID]("prover_order", store.Uint64Key),
		counters: store.NewCollection[string, uint64]("meta", store.StringKey),
	}
}

// Register inserts or replaces the prover record for account with reputation 0.
// A replaced prover keeps its original registration position.
func (r Provers) Register(tx store.Tx, account model.AccountID, rating uint64, caps model.Capability) error {
	existed, err := r.provers.Has(tx, account)
	if err != nil {
		return fmt.Errorf("lookup prover %s: %w", account, err)
	}
	if !existed {
		n, err := r.Count(tx)
		if err != nil {
			return err
		}
		if err := r.order.Insert(tx, n, account); err != nil {
			return fmt.Errorf("index prover %s: %w", account, err)
		}
		if err := r.counters.Insert(tx, proverCountKey, n+1); err != nil {
			return fmt.Errorf("advance prover counter: %w", err)
		}
	}

	p := model.Prover{
		AccountID:         account,
		Reputation:        0,
		PerformanceRating: rating,
		Capabilities:      caps,
	}
	if err := r.provers.Insert(tx, account, p); err != nil {
		return fmt.Errorf("insert prover %s: %w", account, err)
	}
	return nil
}

// Get returns the prover registered under account or an error wrapping model.ErrNotFound.
func (r Provers) Get(tx store.Tx, account model.AccountID) (*model.Prover, error) {
	p, err := r.provers.Get(tx, account)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("prover %s: %w", account, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get prover %s: %w", account, err)
	}
	return &p, nil
}

// UpdateReputation overwrites the reputation of a registered prover.
func (r Provers) UpdateReputation(tx store.Tx, account model.AccountID, reputation uint64) error {
	p, err := r.Get(tx, account)
	if err != nil {
		return err
	}
	p.Reputation = reputation
	if err := r.provers.Insert(tx, account, *p); err != nil {
		return fmt.Errorf("update prover %s: %w", account, err)
	}
	return nil
}

// Count returns the number of distinct accounts ever registered.
func (r Provers) Count(tx store.Tx) (uint64, error) {
	n, err := r.counters.Get(tx, proverCountKey)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read prover counter: %w", err)
	}
	return n, nil
}

// All returns a snapshot of every registered prover in first-registration order.
func (r Provers) All(tx store.Tx) ([]model.Prover, error) {
	n, err := r.Count(tx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Prover, 0, n)
	for i := uint64(0); i < n; i++ {
		account, err := r.order.Get(tx, i)
		if err != nil {
			return nil, fmt.Errorf("read prover index %d: %w", i, err)
		}
		p, err := r.Get(tx, account)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}
