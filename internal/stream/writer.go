package stream

import (
	"encoding/binary"
	"math"
)

// Writer accumulates binary data for RSRC resources.
// All multi-byte values are written in big-endian order.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteU8 writes an unsigned 8-bit integer.
func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteU16 writes an unsigned 16-bit integer.
func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// WriteU32 writes an unsigned 32-bit integer.
func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// WriteU64 writes an unsigned 64-bit integer.
func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// WriteI32 writes a signed 32-bit integer.
func (w *Writer) WriteI32(v int32) {
	w.WriteU32(uint32(v))
}

// WriteFloat64 writes a 64-bit float.
func (w *Writer) WriteFloat64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WritePStr writes a Pascal string: 1-byte length followed by the bytes.
// Content longer than 255 bytes is truncated.
func (w *Writer) WritePStr(b []byte) {
	if len(b) > 255 {
		b = b[:255]
	}
	w.WriteU8(uint8(len(b)))
	w.WriteBytes(b)
}

// WriteU2p2 writes a variable-size unsigned field: plain 16 bits for values
// up to 0x7FFF, otherwise 32 bits with the high bit set.
func (w *Writer) WriteU2p2(v uint32) {
	if v <= 0x7FFF {
		w.WriteU16(uint16(v))
		return
	}
	w.WriteU32(v | 0x80000000)
}

// U2p2Size returns the encoded size of a variable-size unsigned field.
func U2p2Size(v uint32) int {
	if v <= 0x7FFF {
		return 2
	}
	return 4
}

// Pad appends zero bytes until the length is a multiple of alignment.
func (w *Writer) Pad(alignment int) {
	if alignment <= 1 {
		return
	}
	for len(w.buf)%alignment != 0 {
		w.buf = append(w.buf, 0)
	}
}

// PatchU32 overwrites a previously written 32-bit integer at the given offset.
func (w *Writer) PatchU32(offset int, v uint32) {
	binary.BigEndian.PutUint32(w.buf[offset:], v)
}
