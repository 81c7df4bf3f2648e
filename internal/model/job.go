package model

import (
	"strconv"
	"time"
)

// JobID identifies a job. Ids are allocated sequentially from zero and never reused.
type JobID uint64

func (id JobID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseJobID parses the decimal form produced by JobID.String.
func ParseJobID(s string) (JobID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return JobID(v), nil
}

// AccountID is an opaque account identifier issued by the ledger.
type AccountID string

// JobStatus is the lifecycle state of a job.
type JobStatus string

// Job status constants.
const (
	StatusOpen       JobStatus = "open"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
	StatusCancelled  JobStatus = "cancelled"
)

// validTransitions maps each status to the set of statuses it may transition to.
// Completed and Cancelled are terminal and have no entry.
var validTransitions = map[JobStatus]map[JobStatus]bool{
	StatusOpen: {
		StatusInProgress: true,
		StatusCancelled:  true,
	},
	StatusInProgress: {
		StatusCompleted: true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to JobStatus) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Terminal reports whether no transition leaves s.
func (s JobStatus) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// Job is a unit of requested proof-generation work.
type Job struct {
	ID            JobID      `json:"job_id"`
	Requester     AccountID  `json:"requester"`
	Price         uint64     `json:"price"`
	ProofType     ProofType  `json:"proof_type"`
	Status        JobStatus  `json:"status"`
	MatchedProver AccountID  `json:"matched_prover,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Settlement records the payment released to a prover when a job completed.
type Settlement struct {
	ID        string    `json:"id"`
	JobID     JobID     `json:"job_id"`
	Prover    AccountID `json:"prover"`
	Amount    uint64    `json:"amount"`
	SettledAt time.Time `json:"settled_at"`
}
