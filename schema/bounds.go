package schema

import "strings"

// Bounds is a range over one property. A missing side is unbounded, so an open
// lower side also covers null.
type Bounds struct {
	Lower Value
	Upper Value

	HasLower bool
	HasUpper bool

	IncludeLower bool
	IncludeUpper bool
}

func Unbounded() Bounds {
	return Bounds{}
}

func Point(v Value) Bounds {
	return Bounds{
		Lower: v, Upper: v,
		HasLower: true, HasUpper: true,
		IncludeLower: true, IncludeUpper: true,
	}
}

func (b Bounds) IsPoint() bool {
	return b.HasLower && b.HasUpper && b.IncludeLower && b.IncludeUpper && b.Lower.Equal(b.Upper)
}

// IsEmpty reports whether no value can fall inside the bounds.
func (b Bounds) IsEmpty() bool {
	if !b.HasLower || !b.HasUpper {
		return false
	}

	c := b.Lower.Compare(b.Upper)
	if c > 0 {
		return true
	}
	if c == 0 {
		return !(b.IncludeLower && b.IncludeUpper)
	}
	return false
}

func (b Bounds) AboveLower(v Value) bool {
	if !b.HasLower {
		return true
	}
	c := v.Compare(b.Lower)
	return c > 0 || (c == 0 && b.IncludeLower)
}

func (b Bounds) BelowUpper(v Value) bool {
	if !b.HasUpper {
		return true
	}
	c := v.Compare(b.Upper)
	return c < 0 || (c == 0 && b.IncludeUpper)
}

func (b Bounds) Contains(v Value) bool {
	return b.AboveLower(v) && b.BelowUpper(v)
}

// Morph narrows b to the intersection with other. Returns true if b changed.
func (b *Bounds) Morph(other Bounds) bool {

	changes := 0

	if other.HasLower {
		c := 1
		if b.HasLower {
			c = other.Lower.Compare(b.Lower)
		}
		if c > 0 || (c == 0 && b.IncludeLower && !other.IncludeLower) {
			b.Lower = other.Lower
			b.IncludeLower = other.IncludeLower
			b.HasLower = true
			changes += 1
		}
	}

	if other.HasUpper {
		c := -1
		if b.HasUpper {
			c = other.Upper.Compare(b.Upper)
		}
		if c < 0 || (c == 0 && b.IncludeUpper && !other.IncludeUpper) {
			b.Upper = other.Upper
			b.IncludeUpper = other.IncludeUpper
			b.HasUpper = true
			changes += 1
		}
	}

	return changes != 0
}

func (b Bounds) String() string {
	var sb strings.Builder

	if b.HasLower {
		if b.IncludeLower {
			sb.WriteString("[")
		} else {
			sb.WriteString("(")
		}
		sb.WriteString(b.Lower.String())
	} else {
		sb.WriteString("(-inf")
	}

	sb.WriteString(", ")

	if b.HasUpper {
		sb.WriteString(b.Upper.String())
		if b.IncludeUpper {
			sb.WriteString("]")
		} else {
			sb.WriteString(")")
		}
	} else {
		sb.WriteString("+inf)")
	}

	return sb.String()
}
