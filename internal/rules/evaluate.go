// internal/rules/evaluate.go
package rules

import (
	"github.com/solatis/segmentkeeper/internal/types"
)

/*
 * Rule evaluation.
 *
 * Evaluates a CompiledSegment against one customer with AND semantics:
 * the first non-matching condition stops evaluation. Cost ordering from
 * compilation maximizes the short-circuit benefit.
 *
 * Missing attributes (a customer who never purchased has no
 * last_purchase_date) never match, whatever the operator.
 */

// Matches reports whether customer satisfies every condition.
func (s *CompiledSegment) Matches(customer *types.Customer) bool {
	for _, cond := range s.Conditions {
		value, found := attribute(customer, cond.Field)
		if !found {
			return false
		}
		if !Compare(cond.Operator, value, cond.Target) {
			return false
		}
	}
	return true
}

// attribute resolves a field on a customer to its comparable value.
func attribute(c *types.Customer, field types.Field) (any, bool) {
	switch field {
	case types.FieldTotalSpend:
		return c.TotalSpend, true
	case types.FieldVisitCount:
		return float64(c.VisitCount), true
	case types.FieldLastPurchaseDate:
		if c.LastPurchaseDate.IsZero() {
			return nil, false
		}
		return c.LastPurchaseDate.UTC(), true
	default:
		return nil, false
	}
}
