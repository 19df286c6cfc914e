// internal/rules/cost.go
package rules

import "github.com/solatis/segmentkeeper/internal/types"

/*
 * Cost model for condition evaluation.
 *
 * Conditions in a segment are conjunctive, so the first false condition ends
 * evaluation for a customer. Ordering cheap conditions first means most
 * non-matching customers are rejected by a float comparison before any date
 * arithmetic runs.
 *
 * Cost formula: operator_cost * type_multiplier
 *
 * Equality on dates truncates both sides to a UTC day, which makes it the
 * most expensive condition.
 */

// Operator base costs
const (
	CostOrdered = 1 // > and <
	CostEqual   = 2 // = (day truncation for dates)
)

// Type multipliers
const (
	MultiplierNumeric = 1
	MultiplierDate    = 4
)

// Convenience costs for the common shapes.
const (
	CostNumeric = CostOrdered * MultiplierNumeric
	CostDate    = CostOrdered * MultiplierDate
)

// CalculateConditionCost returns the relative evaluation cost of one rule.
func CalculateConditionCost(field types.Field, op types.Operator) int {
	return operatorCost(op) * typeMultiplier(field.Kind())
}

func operatorCost(op types.Operator) int {
	if op == types.OpEqual {
		return CostEqual
	}
	return CostOrdered
}

func typeMultiplier(kind types.FieldKind) int {
	if kind == types.KindDate {
		return MultiplierDate
	}
	return MultiplierNumeric
}
