package schema

import (
	"fmt"
	"math"
	"strings"
)

type FieldType uint8

const (
	Int8FieldType FieldType = iota
	Int16FieldType
	Int32FieldType
	Int64FieldType

	Float64FieldType
	Float32FieldType

	Uint64FieldType
	Uint8FieldType
	Uint32FieldType
	Uint16FieldType

	StringFieldType
	BoolFieldType
)

func (f FieldType) String() string {
	switch f {
	case Int8FieldType:
		return "Int8"
	case Int16FieldType:
		return "Int16"
	case Int32FieldType:
		return "Int32"
	case Int64FieldType:
		return "Int64"
	case Float64FieldType:
		return "Float64"
	case Float32FieldType:
		return "Float32"
	case Uint64FieldType:
		return "Uint64"
	case Uint8FieldType:
		return "Uint8"
	case Uint32FieldType:
		return "Uint32"
	case Uint16FieldType:
		return "Uint16"
	case StringFieldType:
		return "String"
	case BoolFieldType:
		return "Bool"
	default:
		return ""

	}
}

// ParseFieldType accepts the names printed by String, in any case.
func ParseFieldType(name string) (FieldType, error) {
	for f := Int8FieldType; f <= BoolFieldType; f++ {
		if strings.EqualFold(f.String(), name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown field type `%s`", ErrInvalidSchema, name)
}

func (f FieldType) MarshalText() ([]byte, error) {
	name := f.String()
	if name == "" {
		return nil, fmt.Errorf("%w: unknown field type %d", ErrInvalidSchema, uint8(f))
	}
	return []byte(name), nil
}

func (f *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Size is the encoded width of a non-null value, 0 for variable sized types.
func (f FieldType) Size() int {
	switch f {

	case Int8FieldType, Uint8FieldType, BoolFieldType:
		return 1
	case Int16FieldType, Uint16FieldType:
		return 2
	case Int32FieldType, Float32FieldType, Uint32FieldType:
		return 4
	case Int64FieldType, Float64FieldType, Uint64FieldType:
		return 8
	case StringFieldType:
		return 0

	default:
		panic("unknown field type " + f.String())
	}
}

func (f FieldType) IsInteger() bool {
	switch f {
	case Int8FieldType, Int16FieldType, Int32FieldType, Int64FieldType,
		Uint8FieldType, Uint16FieldType, Uint32FieldType, Uint64FieldType:
		return true
	}
	return false
}

func (f FieldType) IsFloat() bool {
	return f == Float32FieldType || f == Float64FieldType
}

func (f FieldType) IsNumeric() bool {
	return f.IsInteger() || f.IsFloat()
}

// Accepts reports whether an operand of the given kind can be compared with values of this type.
func (f FieldType) Accepts(kind ValueKind) bool {
	switch kind {
	case NullKind:
		return true
	case IntKind, FloatKind:
		return f.IsNumeric()
	case StringKind:
		return f == StringFieldType
	case BoolKind:
		return f == BoolFieldType
	}
	return false
}

func (f FieldType) integerRange() (int64, int64) {
	switch f {
	case Int8FieldType:
		return math.MinInt8, math.MaxInt8
	case Int16FieldType:
		return math.MinInt16, math.MaxInt16
	case Int32FieldType:
		return math.MinInt32, math.MaxInt32
	case Uint8FieldType:
		return 0, math.MaxUint8
	case Uint16FieldType:
		return 0, math.MaxUint16
	case Uint32FieldType:
		return 0, math.MaxUint32
	case Uint64FieldType:
		return 0, math.MaxInt64
	default:
		return math.MinInt64, math.MaxInt64
	}
}

// Coerce converts a stored value into the canonical kind of the field type.
func (f FieldType) Coerce(v Value) (Value, error) {

	if v.IsNull() {
		return v, nil
	}

	switch {
	case f.IsInteger():
		var i int64
		switch v.Kind() {
		case IntKind:
			i = v.Int()
		case FloatKind:
			fv := v.Float()
			if fv != math.Trunc(fv) || math.IsInf(fv, 0) || math.IsNaN(fv) {
				return Value{}, fmt.Errorf("%w: %v is not an integer", ErrValueType, fv)
			}
			i = int64(fv)
		default:
			return Value{}, fmt.Errorf("%w: %s value for %s field", ErrValueType, v.Kind().String(), f.String())
		}

		lo, hi := f.integerRange()
		if i < lo || i > hi {
			return Value{}, fmt.Errorf("%w: %d overflows %s", ErrValueType, i, f.String())
		}
		return Int(i), nil

	case f.IsFloat():
		n, ok := v.Number()
		if !ok {
			return Value{}, fmt.Errorf("%w: %s value for %s field", ErrValueType, v.Kind().String(), f.String())
		}
		if f == Float32FieldType {
			// stored as float32, keys and operands round the same way
			n = float64(float32(n))
		}
		return Float(n), nil

	case f == StringFieldType:
		if v.Kind() != StringKind {
			return Value{}, fmt.Errorf("%w: %s value for String field", ErrValueType, v.Kind().String())
		}
		return v, nil

	case f == BoolFieldType:
		if v.Kind() != BoolKind {
			return Value{}, fmt.Errorf("%w: %s value for Bool field", ErrValueType, v.Kind().String())
		}
		return v, nil
	}

	return Value{}, fmt.Errorf("%w: unknown field type %d", ErrValueType, f)
}
