package query

import "fmt"

type CondOperand byte

const (
	EQ CondOperand = iota
	GT
	LT
	RANGE
	IS_NULL

	STARTS_WITH
	CONTAINS
	ENDS_WITH
	MATCHES
)

func (c CondOperand) String() string {
	switch c {
	case EQ:
		return "EQ"
	case GT:
		return "GT"
	case LT:
		return "LT"
	case RANGE:
		return "RANGE"
	case IS_NULL:
		return "IS_NULL"
	case STARTS_WITH:
		return "STARTS_WITH"
	case CONTAINS:
		return "CONTAINS"
	case ENDS_WITH:
		return "ENDS_WITH"
	case MATCHES:
		return "MATCHES"
	default:
		panic(fmt.Sprintf("unknown operand %d", c))
	}
}

// IsStringOnly reports operands defined for string fields only.
func (c CondOperand) IsStringOnly() bool {
	return c >= STARTS_WITH
}

// Absorbable reports operands an ordered index can answer by itself.
func (c CondOperand) Absorbable() bool {
	return c <= IS_NULL
}
