// Package marketplace is the top-level entry point of the proof market. It
// drives the job state machine (open → in_progress → completed, or
// open → cancelled) by coordinating the job and prover registries, the
// matchmaker and the ledger. Every operation runs as one store transaction:
// either all of its registry, counter and balance writes commit, or none do.
package marketplace
