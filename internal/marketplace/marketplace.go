package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/holiman/uint256"

	"github.com/seantiz/proofmarket/internal/ledger"
	"github.com/seantiz/proofmarket/internal/matchmaker"
	"github.com/seantiz/proofmarket/internal/model"
	"github.com/seantiz/proofmarket/internal/registry"
	"github.com/seantiz/proofmarket/internal/store"
	"github.com/seantiz/proofmarket/internal/verifier"
)

// Options tunes a Marketplace. The zero value reproduces the minimal market:
// performance ranking, no proof verification, anyone may settle an
// in-progress job.
type Options struct {
	// Strategy ranks provers. Nil means matchmaker.Performance.
	Strategy matchmaker.Strategy

	// Verifier, when set, must accept the proof before a job is settled.
	Verifier verifier.Verifier

	// EnforceMatchedProver restricts completion to the prover the job was matched to.
	EnforceMatchedProver bool

	// Now supplies timestamps. Nil means time.Now.
	Now func() time.Time
}

// escrowReader is implemented by ledgers that can report the escrow balance.
type escrowReader interface {
	Escrow() model.AccountID
	Balance(tx store.Tx, account model.AccountID) (*uint256.Int, error)
}

// Marketplace owns the job and prover registries and runs every externally
// visible operation as a single atomic unit against the store.
type Marketplace struct {
	store       store.Store
	ledger      ledger.Ledger
	jobs        registry.Jobs
	provers     registry.Provers
	settlements store.Collection[model.JobID, model.Settlement]
	strategy    matchmaker.Strategy
	verifier    verifier.Verifier
	enforce     bool
	now         func() time.Time
	logger      *slog.Logger
	broker      *EventBroker
}

// New creates a marketplace persisting to s and paying out through l.
func New(s store.Store, l ledger.Ledger, logger *slog.Logger, opts Options) *Marketplace {
	m := &Marketplace{
		store:   s,
		ledger:  l,
		jobs:    registry.NewJobs(),
		provers: registry.NewProvers(),
		settlements: store.NewCollection[model.JobID, model.Settlement]("settlement", func(id model.JobID) []byte {
			return store.Uint64Key(uint64(id))
		}),
		strategy: opts.Strategy,
		verifier: opts.Verifier,
		enforce:  opts.EnforceMatchedProver,
		now:      opts.Now,
		logger:   logger,
		broker:   NewEventBroker(),
	}
	if m.strategy == nil {
		m.strategy = matchmaker.Performance{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Broker returns the lifecycle event broker for streaming subscriptions.
func (m *Marketplace) Broker() *EventBroker {
	return m.broker
}

// Strategy returns the active ranking strategy.
func (m *Marketplace) Strategy() matchmaker.Strategy {
	return m.strategy
}

func (m *Marketplace) timestamp() time.Time {
	return m.now().UTC()
}

// SubmitJob records a new open job requested by the caller.
func (m *Marketplace) SubmitJob(ctx context.Context, proofType model.ProofType, price uint64) (model.JobID, error) {
	caller, err := m.ledger.Caller(ctx)
	if err != nil {
		return 0, fmt.Errorf("submit job: %w", err)
	}

	now := m.timestamp()
	var id model.JobID
	err = store.Update(ctx, m.store, func(tx store.Tx) error {
		var err error
		id, err = m.jobs.Create(tx, caller, price, proofType, now)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("submit job: %w", err)
	}

	jobsSubmitted.WithLabelValues(string(proofType)).Inc()
	m.logger.Info("job submitted", "job_id", id, "requester", caller, "proof_type", proofType, "price", price)
	m.broker.Publish(Event{Type: EventSubmitted, JobID: id, Status: model.StatusOpen, At: now})
	return id, nil
}

// RegisterProver registers the caller as a prover with the given performance
// rating. Without proof types the prover accepts every proof type. Registering
// again replaces the record and resets reputation to zero.
func (m *Marketplace) RegisterProver(ctx context.Context, rating uint64, proofTypes ...model.ProofType) (bool, error) {
	caller, err := m.ledger.Caller(ctx)
	if err != nil {
		return false, fmt.Errorf("register prover: %w", err)
	}

	caps := model.CapabilitiesFor(proofTypes...)
	err = store.Update(ctx, m.store, func(tx store.Tx) error {
		return m.provers.Register(tx, caller, rating, caps)
	})
	if err != nil {
		return false, fmt.Errorf("register prover: %w", err)
	}

	proversRegistered.Inc()
	m.logger.Info("prover registered", "prover", caller, "performance_rating", rating, "capabilities", caps)
	return true, nil
}

// MatchAndStartJob picks a prover for an open job and moves it to in_progress.
// It returns false, and leaves the job open, when no prover is eligible. A job
// that is not open is rejected with model.ErrInvalidTransition.
func (m *Marketplace) MatchAndStartJob(ctx context.Context, id model.JobID) (model.AccountID, bool, error) {
	now := m.timestamp()
	var matched model.Prover
	var found bool

	err := store.Update(ctx, m.store, func(tx store.Tx) error {
		job, err := m.jobs.Get(tx, id)
		if err != nil {
			return err
		}
		if !model.ValidTransition(job.Status, model.StatusInProgress) {
			return fmt.Errorf("job %d is %s: %w", id, job.Status, model.ErrInvalidTransition)
		}

		snapshot, err := m.provers.All(tx)
		if err != nil {
			return err
		}
		matched, found = matchmaker.Match(job, snapshot, m.strategy)
		if !found {
			return nil
		}

		job.Status = model.StatusInProgress
		job.MatchedProver = matched.AccountID
		job.StartedAt = &now
		return m.jobs.Put(tx, job)
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			matchAttempts.WithLabelValues(outcomeRejected).Inc()
		}
		m.logger.Warn("match aborted", "job_id", id, "error", err)
		return "", false, fmt.Errorf("match job: %w", err)
	}

	if !found {
		matchAttempts.WithLabelValues(outcomeNoProver).Inc()
		m.logger.Info("no prover available", "job_id", id, "strategy", m.strategy.Name())
		return "", false, nil
	}

	matchAttempts.WithLabelValues(outcomeMatched).Inc()
	m.logger.Info("job matched", "job_id", id, "prover", matched.AccountID, "strategy", m.strategy.Name())
	m.broker.Publish(Event{Type: EventMatched, JobID: id, Status: model.StatusInProgress, Prover: matched.AccountID, At: now})
	return matched.AccountID, true, nil
}

// CompleteJob settles an in-progress job: it pays the job's price from escrow
// to the caller and marks the job completed. Any failure, including a rejected
// transfer, aborts the whole operation and leaves the job in_progress with
// escrow untouched. The escrow account itself may not settle a job.
func (m *Marketplace) CompleteJob(ctx context.Context, id model.JobID, proof []byte) (*model.Settlement, error) {
	var settlement model.Settlement
	var proofType model.ProofType

	err := m.completeJob(ctx, id, proof, &settlement, &proofType)
	if err != nil {
		settlementFailures.WithLabelValues(failureReason(err)).Inc()
		m.logger.Warn("completion aborted", "job_id", id, "error", err)
		return nil, fmt.Errorf("complete job: %w", err)
	}

	jobsCompleted.WithLabelValues(string(proofType)).Inc()
	settledAmount.Observe(float64(settlement.Amount))
	m.logger.Info("job completed", "job_id", id, "prover", settlement.Prover, "price", settlement.Amount, "settlement_id", settlement.ID)
	m.broker.Publish(Event{Type: EventCompleted, JobID: id, Status: model.StatusCompleted, Prover: settlement.Prover, At: settlement.SettledAt})
	m.broker.Close(id)
	return &settlement, nil
}

func (m *Marketplace) completeJob(ctx context.Context, id model.JobID, proof []byte, settlement *model.Settlement, proofType *model.ProofType) error {
	caller, err := m.ledger.Caller(ctx)
	if err != nil {
		return err
	}
	now := m.timestamp()

	return store.Update(ctx, m.store, func(tx store.Tx) error {
		job, err := m.jobs.Get(tx, id)
		if err != nil {
			return err
		}
		if !model.ValidTransition(job.Status, model.StatusCompleted) {
			return fmt.Errorf("job %d is %s: %w", id, job.Status, model.ErrInvalidTransition)
		}
		if r, ok := m.ledger.(escrowReader); ok && caller == r.Escrow() {
			return fmt.Errorf("job %d: escrow account %s cannot settle jobs: %w", id, caller, model.ErrUnauthorized)
		}
		if m.enforce && caller != job.MatchedProver {
			return fmt.Errorf("job %d is assigned to %s, not %s: %w", id, job.MatchedProver, caller, model.ErrUnauthorized)
		}
		if m.verifier != nil {
			ok, err := m.verifier.Verify(ctx, job.ProofType, proof)
			if err != nil {
				return fmt.Errorf("verify proof for job %d: %w", id, err)
			}
			if !ok {
				return fmt.Errorf("job %d: %w", id, model.ErrProofRejected)
			}
		}

		if err := m.ledger.Transfer(ctx, tx, caller, job.Price); err != nil {
			return fmt.Errorf("pay %d to %s for job %d: %w: %w", job.Price, caller, id, model.ErrTransferFailed, err)
		}

		job.Status = model.StatusCompleted
		job.FinishedAt = &now
		if err := m.jobs.Put(tx, job); err != nil {
			return err
		}

		*settlement = model.Settlement{
			ID:        model.NewID(),
			JobID:     id,
			Prover:    caller,
			Amount:    job.Price,
			SettledAt: now,
		}
		*proofType = job.ProofType
		if err := m.settlements.Insert(tx, id, *settlement); err != nil {
			return fmt.Errorf("record settlement for job %d: %w", id, err)
		}
		return nil
	})
}

// CancelJob withdraws an open job. Only its requester may cancel it.
func (m *Marketplace) CancelJob(ctx context.Context, id model.JobID) error {
	caller, err := m.ledger.Caller(ctx)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}

	now := m.timestamp()
	err = store.Update(ctx, m.store, func(tx store.Tx) error {
		job, err := m.jobs.Get(tx, id)
		if err != nil {
			return err
		}
		if !model.ValidTransition(job.Status, model.StatusCancelled) {
			return fmt.Errorf("job %d is %s: %w", id, job.Status, model.ErrInvalidTransition)
		}
		if job.Requester != caller {
			return fmt.Errorf("job %d belongs to %s: %w", id, job.Requester, model.ErrUnauthorized)
		}
		_, err = m.jobs.SetStatus(tx, id, model.StatusCancelled, now)
		return err
	})
	if err != nil {
		m.logger.Warn("cancel aborted", "job_id", id, "caller", caller, "error", err)
		return fmt.Errorf("cancel job: %w", err)
	}

	jobsCancelled.Inc()
	m.logger.Info("job cancelled", "job_id", id, "requester", caller)
	m.broker.Publish(Event{Type: EventCancelled, JobID: id, Status: model.StatusCancelled, At: now})
	m.broker.Close(id)
	return nil
}

// UpdateProverReputation overwrites the reputation of a registered prover.
func (m *Marketplace) UpdateProverReputation(ctx context.Context, prover model.AccountID, reputation uint64) error {
	err := store.Update(ctx, m.store, func(tx store.Tx) error {
		return m.provers.UpdateReputation(tx, prover, reputation)
	})
	if err != nil {
		return fmt.Errorf("update reputation: %w", err)
	}
	m.logger.Info("prover reputation updated", "prover", prover, "reputation", reputation)
	return nil
}
