package lists

import (
	"slices"

	"golang.org/x/exp/constraints"
)

// All functions expect ascending, duplicate free input and produce the same.

func Intersect[T constraints.Integer](a, b []T) []T {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	out := make([]T, 0, min(len(a), len(b)))

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}

	return out
}

func Union[T constraints.Integer](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}

	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// Difference returns the items of a missing from b.
func Difference[T constraints.Integer](a, b []T) []T {
	out := make([]T, 0, len(a))

	j := 0
	for _, v := range a {
		for j < len(b) && b[j] < v {
			j++
		}
		if j < len(b) && b[j] == v {
			continue
		}
		out = append(out, v)
	}

	return out
}

// FromUnsorted sorts and deduplicates a copy of ids.
func FromUnsorted[T constraints.Integer](ids []T) []T {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
