package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dot5enko/simple-object-db/bits"
	"github.com/dot5enko/simple-object-db/compression"
	"github.com/dot5enko/simple-object-db/schema"
)

// Encoded record layout, little endian:
//
//	flags    u8          bit 0 set when the payload is lz4 compressed
//	payload:
//	  count  u16         number of columns
//	  offset u32 * count start of each column value, relative to payload
//	  values             u8 presence followed by the typed body
//
// Offsets let a single property be read without walking the whole record.

const (
	flagCompressed = 1 << 0

	headerSize = 1
)

var (
	ErrCorrupted      = errors.New("corrupted record")
	ErrSchemaMismatch = errors.New("record does not match schema")
)

var order = binary.LittleEndian

type Codec struct {
	// CompressThreshold is the payload size above which records are compressed. 0 disables compression.
	CompressThreshold int
}

func (c Codec) Encode(s *schema.Schema, values []schema.Value) ([]byte, error) {

	if len(values) != len(s.Columns) {
		return nil, fmt.Errorf("%w: %d values for %d columns", ErrSchemaMismatch, len(values), len(s.Columns))
	}

	w := bits.NewEncodeBuffer(make([]byte, 64), order)
	w.EnableGrowing()

	w.PutUint16(uint16(len(values)))
	offsetsAt := w.EmptyBytes(4 * len(values))

	for idx, col := range s.Columns {

		w.PutUint32At(offsetsAt+4*idx, uint32(w.Position()))

		if err := putValue(&w, col.Type, values[idx]); err != nil {
			return nil, fmt.Errorf("column `%s`: %w", col.Name, err)
		}
	}

	payload := w.Bytes()

	if c.CompressThreshold > 0 && len(payload) > c.CompressThreshold {
		var packed bytes.Buffer
		packed.WriteByte(flagCompressed)

		if err := compression.CompressLz4(payload, &packed); err != nil {
			return nil, err
		}
		return packed.Bytes(), nil
	}

	out := make([]byte, headerSize+len(payload))
	copy(out[headerSize:], payload)

	return out, nil
}

func putValue(w *bits.BitWriter, typ schema.FieldType, v schema.Value) error {

	if v.IsNull() {
		return w.WriteByte(0)
	}

	v, err := typ.Coerce(v)
	if err != nil {
		return err
	}

	w.WriteByte(1)

	switch typ {
	case schema.Int8FieldType, schema.Uint8FieldType:
		w.WriteByte(uint8(v.Int()))
	case schema.Int16FieldType, schema.Uint16FieldType:
		w.PutUint16(uint16(v.Int()))
	case schema.Int32FieldType, schema.Uint32FieldType:
		w.PutUint32(uint32(v.Int()))
	case schema.Int64FieldType, schema.Uint64FieldType:
		w.PutInt64(v.Int())
	case schema.Float32FieldType:
		w.PutFloat32(float32(v.Float()))
	case schema.Float64FieldType:
		w.PutFloat64(v.Float())
	case schema.BoolFieldType:
		if v.Bool() {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
	case schema.StringFieldType:
		w.PutString(v.Str())
	default:
		return fmt.Errorf("unsupported field type %s", typ.String())
	}

	return nil
}

func payloadOf(data []byte) ([]byte, error) {

	if len(data) < headerSize {
		return nil, ErrCorrupted
	}

	if data[0]&flagCompressed == 0 {
		return data[headerSize:], nil
	}

	var out bytes.Buffer
	if err := compression.DecompressLz4(data[headerSize:], &out); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorrupted, err.Error())
	}

	return out.Bytes(), nil
}

// IsCompressed reports whether the encoded record carries an lz4 payload.
func IsCompressed(data []byte) bool {
	return len(data) >= headerSize && data[0]&flagCompressed != 0
}

// Decode materializes every column of an encoded record.
func Decode(s *schema.Schema, id uint64, data []byte) (*schema.Record, error) {

	payload, err := payloadOf(data)
	if err != nil {
		return nil, err
	}

	r := bits.NewReader(payload, order)
	if err := checkCount(s, r); err != nil {
		return nil, err
	}

	if err := r.Skip(4 * len(s.Columns)); err != nil {
		return nil, ErrCorrupted
	}

	values := make([]schema.Value, len(s.Columns))
	for idx, col := range s.Columns {
		values[idx], err = readValue(r, col.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: column `%s`: %s", ErrCorrupted, col.Name, err.Error())
		}
	}

	return &schema.Record{Id: id, Schema: s, Values: values}, nil
}

// DecodeField reads the value of a single column.
func DecodeField(s *schema.Schema, data []byte, col int) (schema.Value, error) {

	if col < 0 || col >= len(s.Columns) {
		return schema.Null(), fmt.Errorf("%w: column %d out of range", ErrSchemaMismatch, col)
	}

	payload, err := payloadOf(data)
	if err != nil {
		return schema.Null(), err
	}

	r := bits.NewReader(payload, order)
	if err := checkCount(s, r); err != nil {
		return schema.Null(), err
	}

	if err := r.Skip(4 * col); err != nil {
		return schema.Null(), ErrCorrupted
	}

	offset, err := r.ReadU32()
	if err != nil {
		return schema.Null(), ErrCorrupted
	}

	if err := r.Seek(int(offset)); err != nil {
		return schema.Null(), ErrCorrupted
	}

	v, err := readValue(r, s.Columns[col].Type)
	if err != nil {
		return schema.Null(), fmt.Errorf("%w: column `%s`: %s", ErrCorrupted, s.Columns[col].Name, err.Error())
	}

	return v, nil
}

func checkCount(s *schema.Schema, r *bits.BitsReader) error {
	count, err := r.ReadU16()
	if err != nil {
		return ErrCorrupted
	}
	if int(count) != len(s.Columns) {
		return fmt.Errorf("%w: %d encoded columns, schema `%s` has %d", ErrSchemaMismatch, count, s.Name, len(s.Columns))
	}
	return nil
}

func readValue(r *bits.BitsReader, typ schema.FieldType) (schema.Value, error) {

	present, err := r.ReadU8()
	if err != nil {
		return schema.Null(), err
	}

	if present == 0 {
		return schema.Null(), nil
	}

	switch typ {
	case schema.Int8FieldType:
		v, err := r.ReadI8()
		return schema.Int(int64(v)), err
	case schema.Uint8FieldType:
		v, err := r.ReadU8()
		return schema.Int(int64(v)), err
	case schema.Int16FieldType:
		v, err := r.ReadI16()
		return schema.Int(int64(v)), err
	case schema.Uint16FieldType:
		v, err := r.ReadU16()
		return schema.Int(int64(v)), err
	case schema.Int32FieldType:
		v, err := r.ReadI32()
		return schema.Int(int64(v)), err
	case schema.Uint32FieldType:
		v, err := r.ReadU32()
		return schema.Int(int64(v)), err
	case schema.Int64FieldType, schema.Uint64FieldType:
		v, err := r.ReadI64()
		return schema.Int(v), err
	case schema.Float32FieldType:
		v, err := r.ReadF32()
		return schema.Float(float64(v)), err
	case schema.Float64FieldType:
		v, err := r.ReadF64()
		return schema.Float(v), err
	case schema.BoolFieldType:
		v, err := r.ReadU8()
		return schema.Bool(v == 1), err
	case schema.StringFieldType:
		v, err := r.ReadString()
		return schema.String(v), err
	}

	return schema.Null(), fmt.Errorf("unsupported field type %s", typ.String())
}
