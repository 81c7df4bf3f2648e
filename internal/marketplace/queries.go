package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/seantiz/proofmarket/internal/model"
	"github.com/seantiz/proofmarket/internal/store"
)

// Stats holds aggregate marketplace statistics.
type Stats struct {
	TotalJobs        int                     `json:"total_jobs"`
	CountByStatus    map[model.JobStatus]int `json:"count_by_status"`
	CountByProofType map[model.ProofType]int `json:"count_by_proof_type"`
	Provers          int                     `json:"provers"`
	TotalSettled     uint64                  `json:"total_settled"`
}

// Ping opens a read unit against the store and reads the job counter. It
// fails when the store is closed or unreadable.
func (m *Marketplace) Ping(ctx context.Context) error {
	err := store.View(ctx, m.store, func(tx store.Tx) error {
		_, err := m.jobs.NextID(tx)
		return err
	})
	if err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}

// Job returns the job with the given id.
func (m *Marketplace) Job(ctx context.Context, id model.JobID) (*model.Job, error) {
	var job *model.Job
	err := store.View(ctx, m.store, func(tx store.Tx) error {
		var err error
		job, err = m.jobs.Get(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Jobs returns a page of jobs in id order along with the total number of jobs.
func (m *Marketplace) Jobs(ctx context.Context, offset, limit int) ([]*model.Job, int, error) {
	var jobs []*model.Job
	var total model.JobID
	err := store.View(ctx, m.store, func(tx store.Tx) error {
		var err error
		if total, err = m.jobs.NextID(tx); err != nil {
			return err
		}
		jobs, err = m.jobs.List(tx, offset, limit)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, int(total), nil
}

// Prover returns the prover registered under account.
func (m *Marketplace) Prover(ctx context.Context, account model.AccountID) (*model.Prover, error) {
	var p *model.Prover
	err := store.View(ctx, m.store, func(tx store.Tx) error {
		var err error
		p, err = m.provers.Get(tx, account)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Provers returns every registered prover in registration order.
func (m *Marketplace) Provers(ctx context.Context) ([]model.Prover, error) {
	var provers []model.Prover
	err := store.View(ctx, m.store, func(tx store.Tx) error {
		var err error
		provers, err = m.provers.All(tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list provers: %w", err)
	}
	return provers, nil
}

// Settlement returns the payment receipt of a completed job.
func (m *Marketplace) Settlement(ctx context.Context, id model.JobID) (*model.Settlement, error) {
	var s model.Settlement
	err := store.View(ctx, m.store, func(tx store.Tx) error {
		var err error
		s, err = m.settlements.Get(tx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("settlement for job %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get settlement for job %d: %w", id, err)
	}
	return &s, nil
}

// Stats walks every job and aggregates counts.
func (m *Marketplace) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		CountByStatus:    make(map[model.JobStatus]int),
		CountByProofType: make(map[model.ProofType]int),
	}
	err := store.View(ctx, m.store, func(tx store.Tx) error {
		next, err := m.jobs.NextID(tx)
		if err != nil {
			return err
		}
		for id := model.JobID(0); id < next; id++ {
			job, err := m.jobs.Get(tx, id)
			if err != nil {
				return err
			}
			stats.TotalJobs++
			stats.CountByStatus[job.Status]++
			stats.CountByProofType[job.ProofType]++
			if job.Status == model.StatusCompleted {
				stats.TotalSettled += job.Price
			}
		}
		n, err := m.provers.Count(tx)
		if err != nil {
			return err
		}
		stats.Provers = int(n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

// EscrowBalance reports the escrow account and its balance, if the ledger exposes them.
func (m *Marketplace) EscrowBalance(ctx context.Context) (model.AccountID, *uint256.Int, error) {
	r, ok := m.ledger.(escrowReader)
	if !ok {
		return "", nil, errors.New("ledger does not expose balances")
	}
	var bal *uint256.Int
	err := store.View(ctx, m.store, func(tx store.Tx) error {
		var err error
		bal, err = r.Balance(tx, r.Escrow())
		return err
	})
	if err != nil {
		return "", nil, fmt.Errorf("read escrow balance: %w", err)
	}
	return r.Escrow(), bal, nil
}
