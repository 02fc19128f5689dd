package protocol

import (
	"encoding/binary"
	"math"
)

// Reader walks a frame buffer field by field. Multi-byte integers are
// little-endian. Every accessor fails with a TruncatedError naming the field
// when fewer bytes remain than it needs.
type Reader struct {
	buf []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf) - r.off
}

func (r *Reader) Offset() int {
	return r.off
}

func (r *Reader) take(field string, n int) ([]byte, error) {
	if r.Len() < n {
		return nil, TruncatedError{Field: field, Need: r.off + n, Have: len(r.buf)}
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) Uint8(field string) (uint8, error) {
	b, err := r.take(field, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Uint16(field string) (uint16, error) {
	b, err := r.take(field, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) Uint32(field string) (uint32, error) {
	b, err := r.take(field, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Flag reads one byte; any nonzero value is true.
func (r *Reader) Flag(field string) (bool, error) {
	v, err := r.Uint8(field)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Nibbles splits one byte into its high and low 4-bit halves.
func (r *Reader) Nibbles(field string) (hi, lo uint8, err error) {
	v, err := r.Uint8(field)
	if err != nil {
		return 0, 0, err
	}
	return v >> 4, v & 0x0F, nil
}

// Rest returns a copy of every unread byte and advances to the end.
func (r *Reader) Rest() []byte {
	out := make([]byte, r.Len())
	copy(out, r.buf[r.off:])
	r.off = len(r.buf)
	return out
}

// Writer accumulates an encoded frame.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) PutUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) PutUint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) PutUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) PutFlag(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

// PutNibbles packs hi into the upper and lo into the lower half of one byte.
func (w *Writer) PutNibbles(field string, hi, lo uint8) error {
	if hi > 0x0F {
		return RangeError{Field: field + ".high", Value: int64(hi), Min: 0, Max: 0x0F}
	}
	if lo > 0x0F {
		return RangeError{Field: field + ".low", Value: int64(lo), Min: 0, Max: 0x0F}
	}
	w.buf = append(w.buf, hi<<4|lo)
	return nil
}

func (w *Writer) PutBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Uint8Value narrows a caller-supplied integer to a u8 field.
func Uint8Value(field string, v int) (uint8, error) {
	if v < 0 || v > math.MaxUint8 {
		return 0, RangeError{Field: field, Value: int64(v), Min: 0, Max: math.MaxUint8}
	}
	return uint8(v), nil
}

// Uint32Value narrows a caller-supplied integer to a u32 field.
func Uint32Value(field string, v int64) (uint32, error) {
	if v < 0 || v > math.MaxUint32 {
		return 0, RangeError{Field: field, Value: v, Min: 0, Max: math.MaxUint32}
	}
	return uint32(v), nil
}
