package ops

import (
	"math"

	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Integer | constraints.Float
}

// Accumulator folds a stream of numbers into min, max, sum and count.
type Accumulator[T Number] struct {
	Min T
	Max T
	Sum T

	Count int
}

func (a *Accumulator[T]) Add(v T) {
	if a.Count == 0 {
		a.Min = v
		a.Max = v
	} else {
		if v < a.Min {
			a.Min = v
		}
		if v > a.Max {
			a.Max = v
		}
	}

	a.Sum += v
	a.Count += 1
}

// Mean is NaN when nothing was added.
func (a *Accumulator[T]) Mean() float64 {
	if a.Count == 0 {
		return math.NaN()
	}
	return float64(a.Sum) / float64(a.Count)
}

func (a *Accumulator[T]) Empty() bool {
	return a.Count == 0
}
