package query

import (
	"fmt"

	"github.com/dot5enko/simple-object-db/ops"
	"github.com/dot5enko/simple-object-db/schema"
)

// FilterCondition is a single, type checked leaf condition bound to a schema column.
type FilterCondition struct {
	Field   string
	Column  int
	Type    schema.FieldType
	Operand CondOperand

	// Bounds holds the accepted range for EQ, GT, LT and RANGE.
	Bounds schema.Bounds

	// Text is the operand of the string operators.
	Text          string
	CaseSensitive bool

	pattern *ops.Wildcard
}

// Test evaluates the condition against a property value. Defined for every value including null.
func (fc *FilterCondition) Test(v schema.Value) bool {

	switch fc.Operand {
	case IS_NULL:
		return v.IsNull()

	case EQ, GT, LT, RANGE:
		if fc.folds() && v.Kind() == schema.StringKind {
			return fc.containsFold(v)
		}
		return fc.Bounds.Contains(v)
	}

	if v.Kind() != schema.StringKind {
		return false
	}

	s := v.Str()

	switch fc.Operand {
	case STARTS_WITH:
		return ops.StartsWith(s, fc.Text, fc.CaseSensitive)
	case CONTAINS:
		return ops.Contains(s, fc.Text, fc.CaseSensitive)
	case ENDS_WITH:
		return ops.EndsWith(s, fc.Text, fc.CaseSensitive)
	case MATCHES:
		return fc.pattern.Match(s)
	}

	return false
}

func (fc *FilterCondition) folds() bool {
	return !fc.CaseSensitive && fc.Type == schema.StringFieldType
}

func (fc *FilterCondition) containsFold(v schema.Value) bool {
	b := fc.Bounds

	if fc.Operand == EQ {
		return ops.Equal(v.Str(), b.Lower.Str(), false)
	}

	if b.HasLower {
		c := v.CompareFold(b.Lower)
		if c < 0 || (c == 0 && !b.IncludeLower) {
			return false
		}
	}
	if b.HasUpper {
		c := v.CompareFold(b.Upper)
		if c > 0 || (c == 0 && !b.IncludeUpper) {
			return false
		}
	}
	return true
}

// Absorbable reports whether an ordered index over the field can replace the condition.
func (fc *FilterCondition) Absorbable() bool {
	return fc.Operand.Absorbable() && !fc.folds()
}

// IsPoint reports a single key lookup.
func (fc *FilterCondition) IsPoint() bool {
	return fc.Operand == IS_NULL || fc.Operand == EQ
}

// KeyBounds is the index key range matching the condition.
func (fc *FilterCondition) KeyBounds() schema.Bounds {
	if fc.Operand == IS_NULL {
		return schema.Point(schema.Null())
	}
	return fc.Bounds
}

func (fc *FilterCondition) String() string {
	ci := ""
	if fc.folds() || (fc.Operand.IsStringOnly() && !fc.CaseSensitive) {
		ci = " ci"
	}

	switch fc.Operand {
	case IS_NULL:
		return fmt.Sprintf("%s IS NULL", fc.Field)
	case EQ:
		return fmt.Sprintf("%s = %s%s", fc.Field, fc.Bounds.Lower.String(), ci)
	case GT, LT, RANGE:
		return fmt.Sprintf("%s IN %s%s", fc.Field, fc.Bounds.String(), ci)
	default:
		return fmt.Sprintf("%s %s %q%s", fc.Field, fc.Operand.String(), fc.Text, ci)
	}
}
