package audience

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/segmentkeeper/internal/types"
)

func TestNewEstimate(t *testing.T) {
	tests := []struct {
		size  int
		lower int
		upper int
		reach string
	}{
		{100, 70, 130, "70-130"},
		{101, 70, 131, "70-131"},
		{1099, 769, 1428, "769-1428"},
		{0, 0, 0, "0-0"},
	}
	for _, tt := range tests {
		e := NewEstimate(tt.size)
		if e.Lower != tt.lower || e.Upper != tt.upper {
			t.Errorf("NewEstimate(%d) = %d-%d, want %d-%d", tt.size, e.Lower, e.Upper, tt.lower, tt.upper)
		}
		if e.EstimatedReach() != tt.reach {
			t.Errorf("EstimatedReach() = %q, want %q", e.EstimatedReach(), tt.reach)
		}
	}
}

func TestRandomEstimator_Range(t *testing.T) {
	est := NewRandomEstimator(rand.NewPCG(1, 2))
	rules := []types.Rule{{Field: types.FieldTotalSpend, Operator: types.OpGreaterThan, Value: "1"}}
	for i := 0; i < 1000; i++ {
		e, err := est.Estimate(context.Background(), rules)
		if err != nil {
			t.Fatalf("Estimate() error = %v", err)
		}
		if e.AudienceSize < 100 || e.AudienceSize > 1099 {
			t.Fatalf("AudienceSize = %d, want [100, 1099]", e.AudienceSize)
		}
	}
}

func TestRandomEstimator_Seeded(t *testing.T) {
	a := NewRandomEstimator(rand.NewPCG(7, 7))
	b := NewRandomEstimator(rand.NewPCG(7, 7))
	for i := 0; i < 10; i++ {
		ea, _ := a.Estimate(context.Background(), nil)
		eb, _ := b.Estimate(context.Background(), nil)
		if ea != eb {
			t.Fatalf("same seed produced %v and %v", ea, eb)
		}
	}
}

// Property-based test: reach bounds always bracket the estimate
func TestEstimate_PropertyBoundsBracketSize(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("lower <= audienceSize <= upper", prop.ForAll(
		func(size int) bool {
			e := NewEstimate(size)
			return e.Lower <= e.AudienceSize && e.AudienceSize <= e.Upper
		},
		gen.IntRange(0, 10_000_000),
	))

	properties.Property("random estimates are bracketed", prop.ForAll(
		func(seed uint64) bool {
			e, err := NewRandomEstimator(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Estimate(context.Background(), nil)
			return err == nil && e.Lower <= e.AudienceSize && e.AudienceSize <= e.Upper
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

type sliceSource struct {
	customers []types.Customer
	err       error
}

func (s *sliceSource) ForEachCustomer(ctx context.Context, fn func(*types.Customer) error) error {
	if s.err != nil {
		return s.err
	}
	for i := range s.customers {
		if err := fn(&s.customers[i]); err != nil {
			return err
		}
	}
	return nil
}

func TestDatasetEstimator(t *testing.T) {
	src := &sliceSource{customers: []types.Customer{
		{ID: "a", TotalSpend: 1500, VisitCount: 10, LastPurchaseDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "b", TotalSpend: 1200, VisitCount: 2},
		{ID: "c", TotalSpend: 200, VisitCount: 12},
		{ID: "d", TotalSpend: 5000, VisitCount: 6},
	}}
	est := NewDatasetEstimator(src)

	rules := []types.Rule{
		{Field: types.FieldTotalSpend, Operator: types.OpGreaterThan, Value: "1000"},
		{Field: types.FieldVisitCount, Operator: types.OpGreaterThan, Value: "5"},
	}
	e, err := est.Estimate(context.Background(), rules)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if e.AudienceSize != 2 {
		t.Errorf("AudienceSize = %d, want 2", e.AudienceSize)
	}
	if e.EstimatedReach() != "1-2" {
		t.Errorf("EstimatedReach() = %q, want 1-2", e.EstimatedReach())
	}
	if rules[0].Value != "1000" {
		t.Error("Estimate() mutated rules")
	}
}

func TestDatasetEstimator_Errors(t *testing.T) {
	est := NewDatasetEstimator(&sliceSource{err: errors.New("disk on fire")})
	rules := []types.Rule{{Field: types.FieldVisitCount, Operator: types.OpEqual, Value: "1"}}
	if _, err := est.Estimate(context.Background(), rules); !errors.Is(err, types.ErrStoreFailure) {
		t.Errorf("Estimate() error = %v, want ErrStoreFailure", err)
	}

	if _, err := est.Estimate(context.Background(), nil); !errors.Is(err, types.ErrInvalidRules) {
		t.Errorf("Estimate() error = %v, want ErrInvalidRules", err)
	}
}
