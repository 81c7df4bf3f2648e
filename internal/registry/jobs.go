package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/seantiz/proofmarket/internal/model"
	"github.com/seantiz/proofmarket/internal/store"
)

const nextJobIDKey = "next_job_id"

// Jobs is the job registry.
type Jobs struct {
	jobs     store.Collection[model.JobID, model.Job]
	counters store.Collection[string, uint64]
}

// NewJobs returns a job registry.
func NewJobs() Jobs {
	return Jobs{
		jobs: store.NewCollection[model.JobID, model.Job]("job", func(id model.JobID) []byte {
			return store.Uint64Key(uint64(id))
		}),
		counters: store.NewCollection[string, uint64]("meta", store.StringKey),
	}
}

// NextID returns the id the next Create will allocate. It equals the number
// of jobs ever created.
func (r Jobs) NextID(tx store.Tx) (model.JobID, error) {
	n, err := r.counters.Get(tx, nextJobIDKey)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read job counter: %w", err)
	}
	return model.JobID(n), nil
}

// Create stores a new open job under the next sequential id and advances the counter.
func (r Jobs) Create(tx store.Tx, requester model.AccountID, price uint64, proofType model.ProofType, now time.Time) (model.JobID, error) {
	id, err := r.NextID(tx)
	if err != nil {
		return 0, err
	}

	job := model.Job{
		ID:        id,
		Requester: requester,
		Price:     price,
		ProofType: proofType,
		Status:    model.StatusOpen,
		CreatedAt: now,
	}
	if err := r.jobs.Insert(tx, id, job); err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	if err := r.counters.Insert(tx, nextJobIDKey, uint64(id)+1); err != nil {
		return 0, fmt.Errorf("advance job counter: %w", err)
	}
	return id, nil
}

// Get returns the job with the given id or an error wrapping model.ErrNotFound.
func (r Jobs) Get(tx store.Tx, id model.JobID) (*model.Job, error) {
	job, err := r.jobs.Get(tx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("job %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return &job, nil
}

// SetStatus overwrites the status of an existing job and stamps the matching
// lifecycle time: StartedAt for in_progress, FinishedAt for terminal states.
// It does not check the transition; callers do that against the current job.
func (r Jobs) SetStatus(tx store.Tx, id model.JobID, status model.JobStatus, at time.Time) (*model.Job, error) {
	job, err := r.Get(tx, id)
	if err != nil {
		return nil, err
	}
	job.Status = status
	switch {
	case status == model.StatusInProgress:
		job.StartedAt = &at
	case status.Terminal():
		job.FinishedAt = &at
	}
	if err := r.Put(tx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Put overwrites an existing job record.
func (r Jobs) Put(tx store.Tx, job *model.Job) error {
	if err := r.jobs.Insert(tx, job.ID, *job); err != nil {
		return fmt.Errorf("update job %d: %w", job.ID, err)
	}
	return nil
}

// List returns up to limit jobs starting at id offset, in id order.
func (r Jobs) List(tx store.Tx, offset, limit int) ([]*model.Job, error) {
	next, err := r.NextID(tx)
	if err != nil {
		return nil, err
	}
	var out []*model.Job
	for id := uint64(offset); id < uint64(next) && len(out) < limit; id++ {
		job, err := r.Get(tx, model.JobID(id))
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}
