package schema

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dot5enko/simple-object-db/ops"
)

var (
	ErrValueType = errors.New("value type mismatch")
)

type ValueKind uint8

const (
	NullKind ValueKind = iota
	BoolKind
	IntKind
	FloatKind
	StringKind
)

func (k ValueKind) String() string {
	switch k {
	case NullKind:
		return "Null"
	case BoolKind:
		return "Bool"
	case IntKind:
		return "Int"
	case FloatKind:
		return "Float"
	case StringKind:
		return "String"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// Value is a typed property value. The zero Value is null.
type Value struct {
	kind ValueKind

	i int64
	f float64
	s string
}

func Null() Value {
	return Value{}
}

func Int(v int64) Value {
	return Value{kind: IntKind, i: v}
}

func Float(v float64) Value {
	return Value{kind: FloatKind, f: v}
}

func String(v string) Value {
	return Value{kind: StringKind, s: v}
}

func Bool(v bool) Value {
	if v {
		return Value{kind: BoolKind, i: 1}
	}
	return Value{kind: BoolKind}
}

// ValueOf wraps a plain go value.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %d overflows int64", ErrValueType, v)
		}
		return Int(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %d overflows int64", ErrValueType, v)
		}
		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported go type %T", ErrValueType, x)
	}
}

// MustValueOf is ValueOf for literals known to be valid.
func MustValueOf(x any) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == NullKind
}

func (v Value) Int() int64 {
	if v.kind == FloatKind {
		return int64(v.f)
	}
	return v.i
}

func (v Value) Float() float64 {
	if v.kind == IntKind {
		return float64(v.i)
	}
	return v.f
}

func (v Value) Str() string {
	return v.s
}

func (v Value) Bool() bool {
	return v.kind == BoolKind && v.i == 1
}

// Number returns the numeric value as float64 for Int and Float kinds.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case IntKind:
		return float64(v.i), true
	case FloatKind:
		return v.f, true
	}
	return 0, false
}

func (v Value) isNumeric() bool {
	return v.kind == IntKind || v.kind == FloatKind
}

// Compare orders values with null before everything else. Int and Float compare numerically,
// other kind combinations fall back to kind order.
func (v Value) Compare(o Value) int {

	if v.kind == NullKind || o.kind == NullKind {
		return cmp.Compare(b2i(o.kind == NullKind), b2i(v.kind == NullKind))
	}

	if v.isNumeric() && o.isNumeric() {
		if v.kind == IntKind && o.kind == IntKind {
			return cmp.Compare(v.i, o.i)
		}
		return cmp.Compare(v.Float(), o.Float())
	}

	if v.kind != o.kind {
		return cmp.Compare(v.kind, o.kind)
	}

	switch v.kind {
	case StringKind:
		return strings.Compare(v.s, o.s)
	case BoolKind:
		return cmp.Compare(v.i, o.i)
	}

	return 0
}

func (v Value) Equal(o Value) bool {
	return v.Compare(o) == 0
}

// CompareFold is Compare with strings compared case-insensitively.
func (v Value) CompareFold(o Value) int {
	if v.kind == StringKind && o.kind == StringKind {
		return strings.Compare(ops.Fold(v.s), ops.Fold(o.s))
	}
	return v.Compare(o)
}

// Key is a hashable representation used for value-equality grouping.
func (v Value) Key(caseInsensitive bool) string {
	switch v.kind {
	case NullKind:
		return "n"
	case BoolKind:
		return "b" + strconv.FormatInt(v.i, 10)
	case IntKind:
		return "i" + strconv.FormatInt(v.i, 10)
	case FloatKind:
		if v.f == math.Trunc(v.f) && math.Abs(v.f) < 1<<53 {
			return "i" + strconv.FormatInt(int64(v.f), 10)
		}
		return "f" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case StringKind:
		if caseInsensitive {
			return "s" + ops.Fold(v.s)
		}
		return "s" + v.s
	}
	return "?"
}

// Any unwraps into a plain go value.
func (v Value) Any() any {
	switch v.kind {
	case BoolKind:
		return v.Bool()
	case IntKind:
		return v.i
	case FloatKind:
		return v.f
	case StringKind:
		return v.s
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case NullKind:
		return "null"
	case BoolKind:
		return strconv.FormatBool(v.Bool())
	case IntKind:
		return strconv.FormatInt(v.i, 10)
	case FloatKind:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case StringKind:
		return strconv.Quote(v.s)
	}
	return "?"
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
