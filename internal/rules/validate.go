// internal/rules/validate.go
package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/segmentkeeper/internal/types"
)

/*
 * Rule validation and normalization.
 *
 * Turns client-submitted RawRule values into validated types.Rule values
 * before a segment is created or previewed.
 *
 * Normalization policy:
 *   - missing field defaults to total_spend
 *   - missing operator defaults to ">"
 *   - value is coerced to its trimmed string form (JSON numbers are
 *     formatted without exponent so "1000" round-trips as "1000")
 *
 * Rejection policy (all wrap types.ErrInvalidRules):
 *   - empty sequence
 *   - missing or blank value
 *   - unknown field or operator
 *   - value that does not parse for the field kind (numeric or date)
 *
 * Typed checks run server-side because client-side checks are bypassable.
 */

// Normalize validates raw rules and returns their normalized form.
// The input slice is not modified.
func Normalize(raw []types.RawRule) ([]types.Rule, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: at least one rule required", types.ErrInvalidRules)
	}

	normalized := make([]types.Rule, 0, len(raw))
	for i, r := range raw {
		rule, err := normalizeRule(r)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d: %v", types.ErrInvalidRules, i+1, err)
		}
		normalized = append(normalized, rule)
	}
	return normalized, nil
}

// Validate checks already-normalized rules, e.g. rules loaded from a store.
func Validate(rules []types.Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("%w: at least one rule required", types.ErrInvalidRules)
	}
	for i, r := range rules {
		if err := checkRule(r); err != nil {
			return fmt.Errorf("%w: rule %d: %v", types.ErrInvalidRules, i+1, err)
		}
	}
	return nil
}

func normalizeRule(r types.RawRule) (types.Rule, error) {
	field := types.Field(strings.TrimSpace(r.Field))
	if field == "" {
		field = types.DefaultField
	}
	op := types.Operator(strings.TrimSpace(r.Operator))
	if op == "" {
		op = types.DefaultOperator
	}

	value, err := stringifyValue(r.Value)
	if err != nil {
		return types.Rule{}, err
	}

	rule := types.Rule{Field: field, Operator: op, Value: value}
	if err := checkRule(rule); err != nil {
		return types.Rule{}, err
	}
	return rule, nil
}

// checkRule enforces enumeration membership and typed parseability.
func checkRule(r types.Rule) error {
	kind := r.Field.Kind()
	if kind == types.KindUnknown {
		return fmt.Errorf("unknown field %q (supported: %v)", r.Field, types.Fields())
	}
	if !r.Operator.Valid() {
		return fmt.Errorf("unknown operator %q", r.Operator)
	}
	if strings.TrimSpace(r.Value) == "" {
		return fmt.Errorf("value required")
	}
	if _, err := Coerce(r.Value, kind); err != nil {
		return fmt.Errorf("value %q is not valid for field %s", r.Value, r.Field)
	}
	return nil
}

// stringifyValue coerces a decoded JSON value to its trimmed string form.
func stringifyValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", fmt.Errorf("value required")
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return "", fmt.Errorf("value required")
		}
		return s, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case json.Number:
		s := strings.TrimSpace(val.String())
		if !strings.ContainsAny(s, "eE") {
			return s, nil
		}
		f, err := val.Float64()
		if err != nil {
			return "", fmt.Errorf("value %q is out of range", s)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("value must be a string or number")
	}
}
