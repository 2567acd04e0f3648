// Package wire implements the fixed little-endian byte layout shared by
// packets, commands, and orders.
//
// Primitive widths: u8 = 1, i16/u16 = 2, i32/u32 = 4, i64/u64 = 8.
// A Vector is 3×f32, a Color is an rgba u32, and strings are a u16 length
// prefix followed by UTF-8 bytes. Fields serialize in declaration order.
package wire

import (
	"encoding/binary"
	"math"

	"ravaged-planets/internal/errs"
	"ravaged-planets/internal/vector"
)

// Writer appends primitives to a growing byte buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with a small preallocated buffer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// PutU8 appends a single byte.
func (w *Writer) PutU8(v uint8) { w.buf = append(w.buf, v) }

// PutBool appends a bool as one byte (0 or 1).
func (w *Writer) PutBool(v bool) {
	if v {
		w.PutU8(1)
	} else {
		w.PutU8(0)
	}
}

// PutU16 appends a little-endian u16.
func (w *Writer) PutU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// PutU32 appends a little-endian u32.
func (w *Writer) PutU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// PutU64 appends a little-endian u64.
func (w *Writer) PutU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// PutI16 appends a little-endian i16.
func (w *Writer) PutI16(v int16) { w.PutU16(uint16(v)) }

// PutI32 appends a little-endian i32.
func (w *Writer) PutI32(v int32) { w.PutU32(uint32(v)) }

// PutI64 appends a little-endian i64.
func (w *Writer) PutI64(v int64) { w.PutU64(uint64(v)) }

// PutF32 appends an IEEE-754 float32.
func (w *Writer) PutF32(v float32) { w.PutU32(math.Float32bits(v)) }

// PutString appends a u16 length prefix followed by UTF-8 bytes.
// Strings longer than 65535 bytes are truncated.
func (w *Writer) PutString(s string) {
	if len(s) > math.MaxUint16 {
		s = s[:math.MaxUint16]
	}
	w.PutU16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// PutVector appends a Vec3 as 3×f32.
func (w *Writer) PutVector(v vector.Vec3) {
	w.PutF32(v.X)
	w.PutF32(v.Y)
	w.PutF32(v.Z)
}

// PutColor appends a Color as an rgba u32.
func (w *Writer) PutColor(c vector.Color) { w.PutU32(uint32(c)) }

// PutBytes appends raw bytes with a u16 length prefix.
func (w *Writer) PutBytes(b []byte) {
	if len(b) > math.MaxUint16 {
		b = b[:math.MaxUint16]
	}
	w.PutU16(uint16(len(b)))
	w.buf = append(w.buf, b...)
}

// Reader consumes primitives from a byte buffer. The first short read makes
// the reader sticky-failed; callers check Err once after decoding a whole
// structure rather than after every field.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader wraps a byte buffer for reading.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Err returns the first decode error, if any.
func (r *Reader) Err() error { return r.err }

// Remaining reports how many bytes are left unread.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = errs.New(errs.KindParse, "short buffer: need %d bytes at offset %d of %d", n, r.off, len(r.buf))
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// U8 reads a single byte.
func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Bool reads one byte as a bool.
func (r *Reader) Bool() bool { return r.U8() != 0 }

// U16 reads a little-endian u16.
func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// U32 reads a little-endian u32.
func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// U64 reads a little-endian u64.
func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// I16 reads a little-endian i16.
func (r *Reader) I16() int16 { return int16(r.U16()) }

// I32 reads a little-endian i32.
func (r *Reader) I32() int32 { return int32(r.U32()) }

// I64 reads a little-endian i64.
func (r *Reader) I64() int64 { return int64(r.U64()) }

// F32 reads an IEEE-754 float32.
func (r *Reader) F32() float32 { return math.Float32frombits(r.U32()) }

// String reads a u16 length-prefixed UTF-8 string.
func (r *Reader) String() string {
	n := int(r.U16())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

// Vector reads a Vec3 as 3×f32.
func (r *Reader) Vector() vector.Vec3 {
	return vector.Vec3{X: r.F32(), Y: r.F32(), Z: r.F32()}
}

// Color reads an rgba u32.
func (r *Reader) Color() vector.Color { return vector.Color(r.U32()) }

// Bytes reads a u16 length-prefixed byte slice. The returned slice aliases
// the underlying buffer.
func (r *Reader) Bytes() []byte {
	n := int(r.U16())
	return r.take(n)
}
