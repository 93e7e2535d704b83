package rsrc

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/mefistotelis/lvrsrc-go/internal/stream"
)

// Coding identifies how a section's payload bytes are transformed between
// the file and their usable form. The coding is chosen per block identifier,
// it is not recorded in the file.
type Coding int

const (
	CodingNone Coding = iota
	CodingZlib
	CodingXor
)

func (c Coding) String() string {
	switch c {
	case CodingNone:
		return "none"
	case CodingZlib:
		return "zlib"
	case CodingXor:
		return "xor"
	default:
		return fmt.Sprintf("coding(%d)", int(c))
	}
}

// Valid reports whether the coding is a known value.
func (c Coding) Valid() bool {
	return c >= CodingNone && c <= CodingXor
}

// ErrDecompressSizeMismatch reports a zlib size prefix inconsistent with the
// compressed payload.
var ErrDecompressSizeMismatch = errors.New("rsrc: decompressed size mismatch")

// Decode transforms stored section bytes into their usable form.
func (c Coding) Decode(data []byte) ([]byte, error) {
	switch c {
	case CodingNone:
		return data, nil
	case CodingZlib:
		return zlibDecode(data)
	case CodingXor:
		return xorApply(data), nil
	default:
		return nil, fmt.Errorf("rsrc: unknown coding %d", int(c))
	}
}

// Encode transforms usable bytes into their stored form.
func (c Coding) Encode(data []byte) ([]byte, error) {
	switch c {
	case CodingNone:
		return data, nil
	case CodingZlib:
		return zlibEncode(data)
	case CodingXor:
		return xorApply(data), nil
	default:
		return nil, fmt.Errorf("rsrc: unknown coding %d", int(c))
	}
}

// zlibDecode reads a 4-byte big-endian uncompressed size followed by a zlib
// stream. The size bounds below guard against corrupt length fields, not
// format rules: DEFLATE expands at most 1032x.
func zlibDecode(data []byte) ([]byte, error) {
	r := stream.NewReader(data)
	usize, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("%w: zlib size prefix: %w", ErrTruncatedRead, err)
	}
	csize := uint32(r.Remaining())
	if csize < 2 {
		return nil, fmt.Errorf("%w: compressed size %d too small", ErrDecompressSizeMismatch, csize)
	}
	if (csize > 32 && usize < csize*9/10) || usize > csize*1032 {
		return nil, fmt.Errorf("%w: size %d does not match compressed size %d",
			ErrDecompressSizeMismatch, usize, csize)
	}
	zr, err := zlib.NewReader(bytes.NewReader(r.RemainingData()))
	if err != nil {
		return nil, fmt.Errorf("rsrc: zlib stream: %w", err)
	}
	defer zr.Close()
	out := make([]byte, usize)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("%w: zlib stream ended early: %w", ErrDecompressSizeMismatch, err)
	}
	return out, nil
}

func zlibEncode(data []byte) ([]byte, error) {
	w := stream.NewWriter()
	w.WriteU32(uint32(len(data)))
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	w.WriteBytes(buf.Bytes())
	return w.Bytes(), nil
}

// xorKeyInit seeds the self-mutating XOR stream.
const xorKeyInit = 0xEDB88320

// xorApply runs the keyed XOR stream over data. The same transform serves
// both directions; applying it twice restores the input only because encode
// and decode are the identical function, the key schedule itself is not an
// invertible cipher pair.
func xorApply(data []byte) []byte {
	out := make([]byte, len(data))
	key := uint32(xorKeyInit)
	for i, b := range data {
		v := byte(key^uint32(b)) & 0xFF
		out[i] = v
		key = uint32(v) ^ bits.RotateLeft32(key, 1)
	}
	return out
}
