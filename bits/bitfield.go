package bits

import "math/bits"

// Bitset is a growable set of small non-negative integers.
type Bitset []uint64

func NewBitset(size int) Bitset {
	return make(Bitset, (size+63)>>6)
}

func (b *Bitset) ensure(bit int) {
	word := bit >> 6
	if word >= len(*b) {
		grown := make(Bitset, word+1)
		copy(grown, *b)
		*b = grown
	}
}

func (b *Bitset) Set(bit int) {
	b.ensure(bit)
	word := bit >> 6 // bit / 64
	mask := uint64(1) << (bit & 63)
	(*b)[word] |= mask
}

func (b Bitset) Has(bit int) bool {
	word := bit >> 6
	if word >= len(b) {
		return false
	}
	return (b[word]>>(bit&63))&1 == 1
}

// Reset clears all bits keeping the capacity.
func (b Bitset) Reset() {
	clear(b)
}

func (b Bitset) Any() bool {
	for _, w := range b {
		if w != 0 {
			return true
		}
	}
	return false
}

func (b Bitset) Count() int {
	c := 0
	for _, w := range b {
		c += bits.OnesCount64(w)
	}
	return c
}

// Each calls fn for every set bit in ascending order.
func (b Bitset) Each(fn func(bit int)) {
	for wi, w := range b {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			fn(wi*64 + tz)
			w &= w - 1 // clear lowest set bit
		}
	}
}
