// Package matchmaker selects the prover that should run a job. Matching is a
// pure function of the job, a prover snapshot and a ranking Strategy; it keeps
// no state and never mutates its input.
package matchmaker
