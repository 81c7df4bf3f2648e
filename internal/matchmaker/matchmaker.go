package matchmaker

import (
	"slices"

	"github.com/seantiz/proofmarket/internal/model"
)

// Strategy ranks provers for a job.
type Strategy interface {
	// Name identifies the strategy in configuration and listings.
	Name() string

	// Eligible reports whether p may be considered for job at all.
	Eligible(job *model.Job, p *model.Prover) bool

	// Compare orders candidates: negative when a ranks ahead of b, positive
	// when b ranks ahead of a, zero when they tie. Ties keep snapshot order.
	Compare(a, b *model.Prover) int
}

// Match returns the best eligible prover in provers according to s, or false
// when no prover is eligible. Among equally ranked provers the one earliest
// in the snapshot wins.
func Match(job *model.Job, provers []model.Prover, s Strategy) (model.Prover, bool) {
	candidates := make([]model.Prover, 0, len(provers))
	for i := range provers {
		if s.Eligible(job, &provers[i]) {
			candidates = append(candidates, provers[i])
		}
	}
	if len(candidates) == 0 {
		return model.Prover{}, false
	}

	slices.SortStableFunc(candidates, func(a, b model.Prover) int {
		return s.Compare(&a, &b)
	})
	return candidates[0], true
}
