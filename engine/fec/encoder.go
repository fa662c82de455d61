package fec

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	// encoding is the byte order used for every multi-byte frame field.
	encoding = binary.BigEndian

	errInvalidByteSliceLength = errors.New("invalid byteslice length")
	errInsufficientData       = errors.New("insufficient data to decode")
)

// packetEncoder is used to serialize an object.
type packetEncoder interface {
	PutInt8(in int8)
	PutInt32(in int32)
	PutInt64(in int64)
	PutRawBytes(in []byte) error
	Push(pe pushEncoder)
	Pop()
}

// pushEncoder is used to push an operation onto the stack to perform later
// once serialized bytes are filled.
type pushEncoder interface {
	SaveOffset(in int)
	ReserveSize() int
	Fill(curOffset int, buf []byte) error
}

// encoder is a struct that can be serialized.
type encoder interface {
	Encode(e packetEncoder) error
}

// encode serializes the struct to bytes.
func encode(e encoder) ([]byte, error) {
	lenEnc := new(lenEncoder)
	err := e.Encode(lenEnc)
	if err != nil {
		return nil, err
	}

	b := make([]byte, lenEnc.Length)
	byteEnc := newByteEncoder(b)
	err = e.Encode(byteEnc)
	if err != nil {
		return nil, err
	}
	if byteEnc.err != nil {
		return nil, byteEnc.err
	}

	return b, nil
}

// lenEncoder is a packetEncoder that tracks the running length of serialized
// bytes.
type lenEncoder struct {
	Length int
}

// PutInt8 increments length for an int8.
func (e *lenEncoder) PutInt8(in int8) {
	e.Length++
}

// PutInt32 increments length for an int32.
func (e *lenEncoder) PutInt32(in int32) {
	e.Length += 4
}

// PutInt64 increments length for an int64.
func (e *lenEncoder) PutInt64(in int64) {
	e.Length += 8
}

// PutRawBytes increments length for a raw byte array.
func (e *lenEncoder) PutRawBytes(in []byte) error {
	if len(in) > math.MaxInt32 {
		return errInvalidByteSliceLength
	}
	e.Length += len(in)
	return nil
}

// Push increments length based on the pushEncoder's reserved size.
func (e *lenEncoder) Push(pe pushEncoder) {
	e.Length += pe.ReserveSize()
}

// Pop is a no-op.
func (e *lenEncoder) Pop() {}

// byteEncoder is a packetEncoder that serializes data into a byte slice.
type byteEncoder struct {
	b     []byte
	off   int
	stack []pushEncoder
	err   error
}

func newByteEncoder(b []byte) *byteEncoder {
	return &byteEncoder{b: b}
}

// PutInt8 serializes an int8.
func (e *byteEncoder) PutInt8(in int8) {
	e.b[e.off] = byte(in)
	e.off++
}

// PutInt32 serializes an int32.
func (e *byteEncoder) PutInt32(in int32) {
	encoding.PutUint32(e.b[e.off:], uint32(in))
	e.off += 4
}

// PutInt64 serializes an int64.
func (e *byteEncoder) PutInt64(in int64) {
	encoding.PutUint64(e.b[e.off:], uint64(in))
	e.off += 8
}

// PutRawBytes serializes a byte slice.
func (e *byteEncoder) PutRawBytes(in []byte) error {
	copy(e.b[e.off:], in)
	e.off += len(in)
	return nil
}

// Push adds the given pushEncoder to the stack and saves the current offset
// position.
func (e *byteEncoder) Push(pe pushEncoder) {
	pe.SaveOffset(e.off)
	e.off += pe.ReserveSize()
	e.stack = append(e.stack, pe)
}

// Pop the stack and run the popped pushEncoder on the serialized data.
func (e *byteEncoder) Pop() {
	pe := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	if err := pe.Fill(e.off, e.b); err != nil && e.err == nil {
		e.err = err
	}
}

// pushDecoder verifies a region of decoded bytes once it has been consumed.
type pushDecoder interface {
	SaveOffset(in int)
	ReserveSize() int
	Check(curOffset int, buf []byte) error
}

// byteDecoder reads fields back out of a byte slice in the order they were
// written by byteEncoder.
type byteDecoder struct {
	b     []byte
	off   int
	stack []pushDecoder
}

func newByteDecoder(b []byte) *byteDecoder {
	return &byteDecoder{b: b}
}

func (d *byteDecoder) remaining() int {
	return len(d.b) - d.off
}

// Int8 decodes an int8.
func (d *byteDecoder) Int8() (int8, error) {
	if d.remaining() < 1 {
		return 0, errInsufficientData
	}
	v := int8(d.b[d.off])
	d.off++
	return v, nil
}

// Int32 decodes an int32.
func (d *byteDecoder) Int32() (int32, error) {
	if d.remaining() < 4 {
		return 0, errInsufficientData
	}
	v := int32(encoding.Uint32(d.b[d.off:]))
	d.off += 4
	return v, nil
}

// Int64 decodes an int64.
func (d *byteDecoder) Int64() (int64, error) {
	if d.remaining() < 8 {
		return 0, errInsufficientData
	}
	v := int64(encoding.Uint64(d.b[d.off:]))
	d.off += 8
	return v, nil
}

// RawBytes returns the next n bytes without copying.
func (d *byteDecoder) RawBytes(n int) ([]byte, error) {
	if n < 0 || d.remaining() < n {
		return nil, errInsufficientData
	}
	v := d.b[d.off : d.off+n]
	d.off += n
	return v, nil
}

// Push saves the current offset on the given pushDecoder and skips over its
// reserved bytes.
func (d *byteDecoder) Push(pd pushDecoder) error {
	if d.remaining() < pd.ReserveSize() {
		return errInsufficientData
	}
	pd.SaveOffset(d.off)
	d.off += pd.ReserveSize()
	d.stack = append(d.stack, pd)
	return nil
}

// Pop the stack and verify the bytes consumed since the matching Push.
func (d *byteDecoder) Pop() error {
	pd := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	return pd.Check(d.off, d.b)
}
