// Package audience estimates how many customers a set of rules would reach.
//
// Estimator isolates the estimation strategy from its callers. The default
// RandomEstimator is a placeholder kept for client development; the
// DatasetEstimator evaluates rules against the stored customer population.
package audience

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/solatis/segmentkeeper/internal/types"
)

// Reach multipliers applied to an estimate to build the displayed range.
const (
	LowerReachFactor = 0.7
	UpperReachFactor = 1.3
)

// Placeholder range for RandomEstimator: [MinRandomAudience, MinRandomAudience+RandomAudienceSpan).
const (
	MinRandomAudience  = 100
	RandomAudienceSpan = 1000
)

// Estimate is an estimated audience size with its displayed reach range.
type Estimate struct {
	AudienceSize int
	Lower        int
	Upper        int
}

// EstimatedReach formats the reach range as "lower-upper".
func (e Estimate) EstimatedReach() string {
	return fmt.Sprintf("%d-%d", e.Lower, e.Upper)
}

// NewEstimate builds an Estimate with floor(0.7n)..floor(1.3n) bounds.
func NewEstimate(size int) Estimate {
	return Estimate{
		AudienceSize: size,
		Lower:        int(float64(size) * LowerReachFactor),
		Upper:        int(float64(size) * UpperReachFactor),
	}
}

// Estimator returns the estimated audience for rules.
// Implementations must not mutate the rules.
type Estimator interface {
	Estimate(ctx context.Context, rules []types.Rule) (Estimate, error)
}

// RandomEstimator returns a uniformly random size in [100, 1099].
// It ignores the rules entirely.
type RandomEstimator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomEstimator creates a placeholder estimator.
// A nil source uses a randomly seeded PCG generator.
func NewRandomEstimator(src rand.Source) *RandomEstimator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &RandomEstimator{rng: rand.New(src)}
}

// Estimate implements Estimator.
func (e *RandomEstimator) Estimate(ctx context.Context, rules []types.Rule) (Estimate, error) {
	e.mu.Lock()
	n := e.rng.IntN(RandomAudienceSpan) + MinRandomAudience
	e.mu.Unlock()
	return NewEstimate(n), nil
}
