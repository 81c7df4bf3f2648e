// Package registry owns the job and prover records. Every method runs inside
// a caller-supplied store transaction; the registries hold no state of their
// own and never validate status transitions, which is the marketplace's job.
package registry
