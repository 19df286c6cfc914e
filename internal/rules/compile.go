// internal/rules/compile.go
package rules

import (
	"sort"

	"github.com/solatis/segmentkeeper/internal/types"
)

/*
 * Rule compilation.
 *
 * Compiles a validated rule list into a CompiledSegment with pre-coerced
 * targets so evaluating many customers never re-parses rule values.
 *
 * Compilation workflow:
 *   1. Validate rules (enumerations and typed values)
 *   2. Coerce each value once to its comparand
 *   3. Order conditions by ascending cost (stable sort for determinism)
 *
 * Costs come from cost.go.
 */

// CompiledCondition is a pre-processed rule ready for evaluation.
type CompiledCondition struct {
	Field    types.Field
	Operator types.Operator
	Target   any // float64 or time.Time
	Cost     int
}

// CompiledSegment is a conjunction of compiled conditions.
type CompiledSegment struct {
	Conditions []CompiledCondition // ordered by ascending cost
}

// Compile validates and pre-processes rules for efficient evaluation.
func Compile(rules []types.Rule) (*CompiledSegment, error) {
	if err := Validate(rules); err != nil {
		return nil, err
	}

	compiled := &CompiledSegment{
		Conditions: make([]CompiledCondition, 0, len(rules)),
	}
	for _, r := range rules {
		kind := r.Field.Kind()
		target, err := Coerce(r.Value, kind)
		if err != nil {
			return nil, err
		}
		compiled.Conditions = append(compiled.Conditions, CompiledCondition{
			Field:    r.Field,
			Operator: r.Operator,
			Target:   target,
			Cost:     CalculateConditionCost(r.Field, r.Operator),
		})
	}

	// Stable sort: equal-cost conditions keep submission order
	sort.SliceStable(compiled.Conditions, func(i, j int) bool {
		return compiled.Conditions[i].Cost < compiled.Conditions[j].Cost
	})

	return compiled, nil
}
