package bits

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitsetGrowsOnSet(t *testing.T) {
	var b Bitset

	b.Set(3)
	b.Set(130)

	assert.True(t, b.Has(3))
	assert.True(t, b.Has(130))
	assert.False(t, b.Has(4))
	assert.False(t, b.Has(1000))
	assert.Equal(t, 2, b.Count())

	var set []int
	b.Each(func(bit int) {
		set = append(set, bit)
	})
	assert.Equal(t, []int{3, 130}, set)

	b.Reset()
	assert.False(t, b.Any())
	assert.Len(t, b, 3)
}

func TestWriterReaderRoundtrip(t *testing.T) {
	w := NewEncodeBuffer(make([]byte, 4), binary.LittleEndian)
	w.EnableGrowing()

	at := w.EmptyBytes(4)
	w.WriteByte(7)
	w.PutInt64(-42)
	w.PutFloat64(3.5)
	w.PutString("sneaker")
	w.PutUint32At(at, uint32(w.Position()))

	r := NewReader(w.Bytes(), binary.LittleEndian)

	total, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(len(w.Bytes())), total)

	b, _ := r.ReadU8()
	i, _ := r.ReadI64()
	f, _ := r.ReadF64()
	s, err := r.ReadString()
	require.NoError(t, err)

	assert.Equal(t, uint8(7), b)
	assert.Equal(t, int64(-42), i)
	assert.Equal(t, 3.5, f)
	assert.Equal(t, "sneaker", s)

	_, err = r.ReadU8()
	assert.ErrorIs(t, err, ErrEOF)
}

func TestWriterPanicsWithoutGrowing(t *testing.T) {
	w := NewEncodeBuffer(make([]byte, 2), binary.LittleEndian)
	assert.Panics(t, func() { w.PutUint64(1) })
}
