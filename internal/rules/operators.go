// internal/rules/operators.go
package rules

import (
	"time"

	"github.com/solatis/segmentkeeper/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Implements the three rule operators with kind-aware comparison.
 * Values should already be coerced via Coerce() before reaching Compare().
 *
 * Operators:
 *   - ">" / "<": numeric ordering, or chronological ordering for dates
 *   - "=": numeric equality, or same calendar day (UTC) for dates
 *
 * Mixed kinds never match; Compare returns false rather than guessing.
 */

// Compare applies op to the customer attribute value and the rule target.
func Compare(op types.Operator, value, target any) bool {
	switch op {
	case types.OpGreaterThan:
		c, ok := compareOrdered(value, target)
		return ok && c > 0
	case types.OpLessThan:
		c, ok := compareOrdered(value, target)
		return ok && c < 0
	case types.OpEqual:
		return compareEqual(value, target)
	default:
		return false
	}
}

// compareOrdered performs three-way comparison (-1/0/1) of two values of the same kind.
func compareOrdered(a, b any) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	default:
		return 0, false
	}
}

// compareEqual compares numbers exactly and dates by calendar day.
func compareEqual(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return false
		}
		ay, am, ad := av.UTC().Date()
		by, bm, bd := bv.UTC().Date()
		return ay == by && am == bm && ad == bd
	default:
		return false
	}
}
