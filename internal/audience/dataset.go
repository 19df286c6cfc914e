package audience

import (
	"context"
	"fmt"

	"github.com/solatis/segmentkeeper/internal/rules"
	"github.com/solatis/segmentkeeper/internal/types"
)

// CustomerSource streams the customer population.
// Implemented by the segment stores.
type CustomerSource interface {
	ForEachCustomer(ctx context.Context, fn func(*types.Customer) error) error
}

// DatasetEstimator counts customers matching all rules.
type DatasetEstimator struct {
	source CustomerSource
}

// NewDatasetEstimator creates an estimator over source.
func NewDatasetEstimator(source CustomerSource) *DatasetEstimator {
	return &DatasetEstimator{source: source}
}

// Estimate implements Estimator with an exact count.
func (e *DatasetEstimator) Estimate(ctx context.Context, rs []types.Rule) (Estimate, error) {
	compiled, err := rules.Compile(rs)
	if err != nil {
		return Estimate{}, err
	}

	count := 0
	err = e.source.ForEachCustomer(ctx, func(c *types.Customer) error {
		if compiled.Matches(c) {
			count++
		}
		return nil
	})
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: failed to scan customers: %w", types.ErrStoreFailure, err)
	}

	return NewEstimate(count), nil
}
