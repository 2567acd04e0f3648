package wire

import (
	"bytes"
	"testing"

	"ravaged-planets/internal/vector"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	w := NewWriter()
	w.PutU8(0xfe)
	w.PutBool(true)
	w.PutU16(0xbeef)
	w.PutU32(0xdeadbeef)
	w.PutU64(0x0102030405060708)
	w.PutI16(-12345)
	w.PutI32(-7)
	w.PutI64(-1 << 40)
	w.PutF32(3.5)
	w.PutString("hellö")
	w.PutVector(vector.V3(1, -2, 3.25))
	w.PutColor(vector.RGBA(1, 2, 3, 4))
	w.PutBytes([]byte{9, 8, 7})

	r := NewReader(w.Bytes())
	if got := r.U8(); got != 0xfe {
		t.Errorf("U8 = %#x", got)
	}
	if !r.Bool() {
		t.Error("Bool = false")
	}
	if got := r.U16(); got != 0xbeef {
		t.Errorf("U16 = %#x", got)
	}
	if got := r.U32(); got != 0xdeadbeef {
		t.Errorf("U32 = %#x", got)
	}
	if got := r.U64(); got != 0x0102030405060708 {
		t.Errorf("U64 = %#x", got)
	}
	if got := r.I16(); got != -12345 {
		t.Errorf("I16 = %d", got)
	}
	if got := r.I32(); got != -7 {
		t.Errorf("I32 = %d", got)
	}
	if got := r.I64(); got != -1<<40 {
		t.Errorf("I64 = %d", got)
	}
	if got := r.F32(); got != 3.5 {
		t.Errorf("F32 = %g", got)
	}
	if got := r.String(); got != "hellö" {
		t.Errorf("String = %q", got)
	}
	if got := r.Vector(); got != vector.V3(1, -2, 3.25) {
		t.Errorf("Vector = %v", got)
	}
	if got := r.Color(); got != vector.RGBA(1, 2, 3, 4) {
		t.Errorf("Color = %v", got)
	}
	if got := r.Bytes(); !bytes.Equal(got, []byte{9, 8, 7}) {
		t.Errorf("Bytes = %v", got)
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", r.Remaining())
	}
}

func TestLittleEndianLayout(t *testing.T) {
	w := NewWriter()
	w.PutU16(0x0102)
	w.PutU32(0x03040506)
	want := []byte{0x02, 0x01, 0x06, 0x05, 0x04, 0x03}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("layout = %v, want %v", w.Bytes(), want)
	}
}

func TestStringLengthPrefix(t *testing.T) {
	w := NewWriter()
	w.PutString("ab")
	want := []byte{0x02, 0x00, 'a', 'b'}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("string layout = %v, want %v", w.Bytes(), want)
	}
}

func TestShortBufferIsSticky(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_ = r.U32()
	if r.Err() == nil {
		t.Fatal("short read should set the error")
	}
	// Every later read keeps failing without panicking.
	_ = r.U64()
	_ = r.String()
	if r.Err() == nil {
		t.Fatal("error must stay sticky")
	}
}

func TestTruncatedString(t *testing.T) {
	w := NewWriter()
	w.PutU16(10) // declares 10 bytes, provides none
	r := NewReader(w.Bytes())
	_ = r.String()
	if r.Err() == nil {
		t.Fatal("truncated string should error")
	}
}
