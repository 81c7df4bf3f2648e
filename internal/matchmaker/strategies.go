package matchmaker

import (
	"cmp"

	"github.com/seantiz/proofmarket/internal/model"
)

// Built-in strategy names.
const (
	StrategyPerformance = "performance"
	StrategyReputation  = "reputation"
	StrategyCapability  = "capability"
)

// byRatingDesc ranks higher performance ratings first.
func byRatingDesc(a, b *model.Prover) int {
	return cmp.Compare(b.PerformanceRating, a.PerformanceRating)
}

// Performance considers every prover and ranks by performance rating, highest first.
type Performance struct{}

func (Performance) Name() string { return StrategyPerformance }

func (Performance) Eligible(*model.Job, *model.Prover) bool { return true }

func (Performance) Compare(a, b *model.Prover) int { return byRatingDesc(a, b) }

// Reputation ranks by reputation, then performance rating, highest first.
type Reputation struct{}

func (Reputation) Name() string { return StrategyReputation }

func (Reputation) Eligible(*model.Job, *model.Prover) bool { return true }

func (Reputation) Compare(a, b *model.Prover) int {
	if c := cmp.Compare(b.Reputation, a.Reputation); c != 0 {
		return c
	}
	return byRatingDesc(a, b)
}

// Capability only considers provers able to produce the job's proof type and
// ranks them by performance rating.
type Capability struct{}

func (Capability) Name() string { return StrategyCapability }

func (Capability) Eligible(job *model.Job, p *model.Prover) bool {
	return p.Capabilities.Supports(job.ProofType)
}

func (Capability) Compare(a, b *model.Prover) int { return byRatingDesc(a, b) }
