package bits

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrEOF          = errors.New("end of buffer")
	ErrReadMismatch = errors.New("read size mismatch")
)

// BitsReader reads fixed width values from an in-memory buffer.
type BitsReader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

func NewReader(data []byte, order binary.ByteOrder) *BitsReader {
	return &BitsReader{data: data, order: order}
}

func (r *BitsReader) Position() int {
	return r.pos
}

func (r *BitsReader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return ErrEOF
	}
	r.pos = pos
	return nil
}

func (r *BitsReader) Skip(n int) error {
	return r.Seek(r.pos + n)
}

func (r *BitsReader) next(size int) ([]byte, error) {
	if r.pos+size > len(r.data) {
		return nil, ErrEOF
	}
	out := r.data[r.pos : r.pos+size]
	r.pos += size
	return out, nil
}

func (r *BitsReader) ReadU8() (uint8, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *BitsReader) ReadI8() (int8, error) {
	u, err := r.ReadU8()
	return int8(u), err
}

func (r *BitsReader) ReadU16() (uint16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r *BitsReader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *BitsReader) ReadU32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *BitsReader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *BitsReader) ReadU64() (uint64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

func (r *BitsReader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *BitsReader) ReadF32() (float32, error) {
	u, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

func (r *BitsReader) ReadF64() (float64, error) {
	u, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

func (r *BitsReader) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		return 0, ErrReadMismatch
	}
	r.pos += n
	return v, nil
}

func (r *BitsReader) ReadString() (string, error) {
	size, err := r.ReadUvarint()
	if err != nil {
		return "", err
	}
	b, err := r.next(int(size))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
