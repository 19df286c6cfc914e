// internal/rules/coercion.go
package rules

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/segmentkeeper/internal/types"
)

/*
 * Type coercion for rule values.
 *
 * Rule values are stored as strings. Before comparison they are coerced to
 * the kind of the field they target:
 *   - NUMERIC: plain decimal text (optional sign, fraction, exponent) parsed
 *     as a finite float64; hex, underscores, NaN and Inf are invalid
 *   - DATE: YYYY-MM-DD or RFC 3339, normalized to UTC
 *
 * Coercion failure is reported as types.ErrInvalidRules by the validator and
 * as ErrCoercionFailed here, so evaluation code never sees unparsed values.
 */

// ErrCoercionFailed indicates a rule value could not be parsed for its field kind.
var ErrCoercionFailed = errors.New("type coercion failed")

// decimalPattern matches the plain decimal forms accepted for numeric values.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// DateLayout is the calendar-date form accepted for date fields.
const DateLayout = "2006-01-02"

// Coerce converts a rule value to the comparand for the given field kind.
// Returns float64 for numeric kinds and time.Time for date kinds.
func Coerce(value string, kind types.FieldKind) (any, error) {
	switch kind {
	case types.KindNumeric:
		return coerceNumeric(value)
	case types.KindDate:
		return coerceDate(value)
	default:
		return nil, ErrCoercionFailed
	}
}

// coerceNumeric parses value as a finite float64.
// ParseFloat alone also accepts hex floats, underscores and NaN/Inf.
func coerceNumeric(value string) (float64, error) {
	v := strings.TrimSpace(value)
	if !decimalPattern.MatchString(v) {
		return 0, ErrCoercionFailed
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrCoercionFailed
	}
	return f, nil
}

// coerceDate parses value as a calendar date or an RFC 3339 timestamp.
func coerceDate(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if t, err := time.Parse(DateLayout, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, ErrCoercionFailed
}
