package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seantiz/proofmarket/internal/model"
)

// DefaultMatchTimeout bounds a single background match attempt.
const DefaultMatchTimeout = 30 * time.Second

// sweepPageSize is the number of jobs read per page during a sweep.
const sweepPageSize = 100

// Market is the subset of the marketplace the engine drives.
type Market interface {
	SubmitJob(ctx context.Context, proofType model.ProofType, price uint64) (model.JobID, error)
	MatchAndStartJob(ctx context.Context, id model.JobID) (model.AccountID, bool, error)
	Jobs(ctx context.Context, offset, limit int) ([]*model.Job, int, error)
}

// Engine dispatches match attempts onto background goroutines.
type Engine struct {
	market  Market
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewEngine creates a new matching engine.
func NewEngine(m Market, logger *slog.Logger) *Engine {
	return &Engine{
		market:  m,
		logger:  logger,
		timeout: DefaultMatchTimeout,
	}
}

// Submit records the job synchronously, so the caller identity on ctx is
// honored, and then matches it in a goroutine. The job is open when Submit
// returns.
func (e *Engine) Submit(ctx context.Context, proofType model.ProofType, price uint64) (model.JobID, error) {
	id, err := e.market.SubmitJob(ctx, proofType, price)
	if err != nil {
		return 0, fmt.Errorf("submit job: %w", err)
	}

	e.wg.Go(func() {
		e.match(id)
	})

	return id, nil
}

// Sweep tries to match every open job, oldest first, in a single goroutine.
func (e *Engine) Sweep() {
	e.wg.Go(e.sweep)
}

// Wait blocks until all in-flight match goroutines complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// match runs one attempt and reports whether the job was started.
func (e *Engine) match(id model.JobID) bool {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	prover, ok, err := e.market.MatchAndStartJob(ctx, id)
	if errors.Is(err, model.ErrInvalidTransition) {
		// Another match or a cancel got there first.
		e.logger.Debug("job no longer open", "job_id", id, "error", err)
		return false
	}
	if err != nil {
		e.logger.Error("background match failed", "job_id", id, "error", err)
		return false
	}
	if ok {
		e.logger.Debug("background match", "job_id", id, "prover", prover)
	}
	return ok
}

func (e *Engine) sweep() {
	var open []model.JobID
	for offset := 0; ; offset += sweepPageSize {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		jobs, total, err := e.market.Jobs(ctx, offset, sweepPageSize)
		cancel()
		if err != nil {
			e.logger.Error("sweep list jobs", "offset", offset, "error", err)
			return
		}
		for _, j := range jobs {
			if j.Status == model.StatusOpen {
				open = append(open, j.ID)
			}
		}
		if offset+sweepPageSize >= total {
			break
		}
	}

	matched := 0
	for _, id := range open {
		if e.match(id) {
			matched++
		}
	}
	e.logger.Info("sweep finished", "open", len(open), "matched", matched)
}
