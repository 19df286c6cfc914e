// internal/types/rules.go
package types

/*
 * Domain types for segment rules.
 *
 * A Rule is a single comparison against one customer attribute. Segments hold
 * an ordered list of rules that are combined conjunctively (all must match).
 * Values travel as strings; the rules package coerces them per field kind.
 *
 * Key types:
 *   - Field: enumerated customer attribute
 *   - Operator: enumerated comparison
 *   - Rule: validated (field, operator, value) triple
 *   - RawRule: client input before normalization
 */

// Field names a customer attribute that rules can compare against.
type Field string

const (
	FieldTotalSpend       Field = "total_spend"
	FieldVisitCount       Field = "visit_count"
	FieldLastPurchaseDate Field = "last_purchase_date"
)

// FieldKind determines how a field's comparand is parsed.
type FieldKind int

const (
	KindUnknown FieldKind = iota
	KindNumeric
	KindDate
)

// Kind returns the value kind for a field, KindUnknown for unsupported fields.
func (f Field) Kind() FieldKind {
	switch f {
	case FieldTotalSpend, FieldVisitCount:
		return KindNumeric
	case FieldLastPurchaseDate:
		return KindDate
	default:
		return KindUnknown
	}
}

// Fields lists the supported fields in display order.
func Fields() []Field {
	return []Field{FieldTotalSpend, FieldVisitCount, FieldLastPurchaseDate}
}

// Operator names a comparison between a customer attribute and a rule value.
type Operator string

const (
	OpGreaterThan Operator = ">"
	OpLessThan    Operator = "<"
	OpEqual       Operator = "="
)

// Valid reports whether op is a supported comparison.
func (op Operator) Valid() bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpEqual:
		return true
	}
	return false
}

// Defaults applied to rule elements that omit field or operator.
const (
	DefaultField    = FieldTotalSpend
	DefaultOperator = OpGreaterThan
)

// Rule is a validated comparison predicate.
type Rule struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// RawRule is an unvalidated rule as submitted by a client.
// Value is untyped because clients send both strings and JSON numbers.
type RawRule struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// NamePlaceholder is the token outreach messages use for the recipient name.
const NamePlaceholder = "[Name]"

// MinSegmentNameLength is the minimum trimmed length of a segment name.
const MinSegmentNameLength = 3
