package stream

import (
	"bytes"
	"errors"
	"testing"
)

func TestReaderScalars(t *testing.T) {
	r := NewReader([]byte{
		0x12,
		0x34, 0x56,
		0x01, 0x02, 0x03, 0x04,
		0xFF, 0xFE, 0xFD, 0xFC, 0xFB, 0xFA, 0xF9, 0xF8,
	})

	u8, err := r.ReadU8()
	if err != nil || u8 != 0x12 {
		t.Fatalf("ReadU8 = %#x, %v", u8, err)
	}
	u16, err := r.ReadU16()
	if err != nil || u16 != 0x3456 {
		t.Fatalf("ReadU16 = %#x, %v", u16, err)
	}
	u32, err := r.ReadU32()
	if err != nil || u32 != 0x01020304 {
		t.Fatalf("ReadU32 = %#x, %v", u32, err)
	}
	u64, err := r.ReadU64()
	if err != nil || u64 != 0xFFFEFDFCFBFAF9F8 {
		t.Fatalf("ReadU64 = %#x, %v", u64, err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("Remaining = %d, want 0", r.Remaining())
	}
	if _, err := r.ReadU8(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("read past end = %v, want ErrUnexpectedEOF", err)
	}
}

func TestReaderSigned(t *testing.T) {
	r := NewReader([]byte{0xFF, 0xFF, 0xFE, 0xFF, 0xFF, 0xFF, 0xFD})
	i8, _ := r.ReadI8()
	if i8 != -1 {
		t.Fatalf("ReadI8 = %d, want -1", i8)
	}
	i16, _ := r.ReadI16()
	if i16 != -2 {
		t.Fatalf("ReadI16 = %d, want -2", i16)
	}
	i32, _ := r.ReadI32()
	if i32 != -3 {
		t.Fatalf("ReadI32 = %d, want -3", i32)
	}
}

func TestReaderAlign(t *testing.T) {
	r := NewReader(make([]byte, 16))
	if err := r.Skip(3); err != nil {
		t.Fatal(err)
	}
	r.Align(4)
	if r.Offset() != 4 {
		t.Fatalf("aligned offset = %d, want 4", r.Offset())
	}
	r.Align(4)
	if r.Offset() != 4 {
		t.Fatalf("re-align moved offset to %d", r.Offset())
	}
}

func TestReaderPStr(t *testing.T) {
	r := NewReader([]byte{5, 'h', 'e', 'l', 'l', 'o', 0})
	s, err := r.ReadPStr()
	if err != nil {
		t.Fatal(err)
	}
	if string(s) != "hello" {
		t.Fatalf("ReadPStr = %q", s)
	}

	r = NewReader([]byte{9, 'x'})
	if _, err := r.ReadPStr(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("truncated pstr = %v, want ErrUnexpectedEOF", err)
	}
}

func TestU2p2RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 0x7FFF, 0x8000, 0x12345, 0x7FFFFFFF} {
		w := NewWriter()
		w.WriteU2p2(v)
		want := 2
		if v > 0x7FFF {
			want = 4
		}
		if w.Len() != want {
			t.Fatalf("WriteU2p2(%#x) wrote %d bytes, want %d", v, w.Len(), want)
		}
		if U2p2Size(v) != want {
			t.Fatalf("U2p2Size(%#x) = %d, want %d", v, U2p2Size(v), want)
		}
		got, err := NewReader(w.Bytes()).ReadU2p2()
		if err != nil {
			t.Fatal(err)
		}
		if got != v {
			t.Fatalf("round trip %#x -> %#x", v, got)
		}
	}
}

func TestWriterPad(t *testing.T) {
	w := NewWriter()
	w.WriteBytes([]byte{1, 2, 3})
	w.Pad(4)
	if !bytes.Equal(w.Bytes(), []byte{1, 2, 3, 0}) {
		t.Fatalf("Pad produced %v", w.Bytes())
	}
	w.Pad(4)
	if w.Len() != 4 {
		t.Fatalf("Pad on aligned buffer grew to %d", w.Len())
	}
}

func TestWriterPatchU32(t *testing.T) {
	w := NewWriter()
	w.WriteU32(0)
	w.WriteBytes([]byte("body"))
	w.PatchU32(0, 4)
	r := NewReader(w.Bytes())
	size, _ := r.ReadU32()
	if size != 4 {
		t.Fatalf("patched size = %d", size)
	}
}

func TestSubReader(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5})
	sub, err := r.SubReader(3)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Remaining() != 3 || r.Offset() != 3 {
		t.Fatalf("SubReader remaining=%d parent offset=%d", sub.Remaining(), r.Offset())
	}
	if _, err := r.SubReader(5); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("oversized SubReader = %v", err)
	}
}
