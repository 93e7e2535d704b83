package rsrc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mefistotelis/lvrsrc-go/internal/stream"
)

// HeaderSize is the fixed size of an RSRC header record.
const HeaderSize = 32

// Fixed identification bytes of an RSRC header.
var (
	headerMagic  = []byte("RSRC\r\n")
	vendorTag    = []byte("LBVW")
	headerFormat = uint16(3)
)

// Container-level errors.
var (
	ErrMalformedContainer    = errors.New("rsrc: malformed container")
	ErrTruncatedRead         = errors.New("rsrc: truncated read")
	ErrDuplicateSectionIndex = errors.New("rsrc: duplicate section index")
)

// Header is one RSRC header record. A file carries two: the first at offset
// zero, the second at the start of the Info resource. The second header's
// InfoOffset points at itself, which terminates the chain.
type Header struct {
	FileType   Ident
	InfoOffset uint32
	InfoSize   uint32
	DataOffset uint32
	DataSize   uint32
}

// ParseHeader reads and validates one header record.
func ParseHeader(r *stream.Reader) (*Header, error) {
	magic, err := r.ReadBytes(6)
	if err != nil {
		return nil, fmt.Errorf("%w: header magic: %w", ErrTruncatedRead, err)
	}
	if !bytes.Equal(magic, headerMagic) {
		return nil, fmt.Errorf("%w: bad header magic %q", ErrMalformedContainer, magic)
	}
	format, err := r.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("%w: header format: %w", ErrTruncatedRead, err)
	}
	if format != headerFormat {
		return nil, fmt.Errorf("%w: unexpected header format %d", ErrMalformedContainer, format)
	}

	var h Header
	ftype, err := r.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("%w: file type: %w", ErrTruncatedRead, err)
	}
	copy(h.FileType[:], ftype)

	vendor, err := r.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("%w: vendor tag: %w", ErrTruncatedRead, err)
	}
	if !bytes.Equal(vendor, vendorTag) {
		return nil, fmt.Errorf("%w: bad vendor tag %q", ErrMalformedContainer, vendor)
	}

	if h.InfoOffset, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: info offset: %w", ErrTruncatedRead, err)
	}
	if h.InfoSize, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: info size: %w", ErrTruncatedRead, err)
	}
	if h.DataOffset, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: data offset: %w", ErrTruncatedRead, err)
	}
	if h.DataSize, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: data size: %w", ErrTruncatedRead, err)
	}
	if h.DataOffset < HeaderSize {
		return nil, fmt.Errorf("%w: data offset %d inside header", ErrMalformedContainer, h.DataOffset)
	}
	return &h, nil
}

func (h *Header) write(w *stream.Writer) {
	w.WriteBytes(headerMagic)
	w.WriteU16(headerFormat)
	w.WriteBytes(h.FileType[:])
	w.WriteBytes(vendorTag)
	w.WriteU32(h.InfoOffset)
	w.WriteU32(h.InfoSize)
	w.WriteU32(h.DataOffset)
	w.WriteU32(h.DataSize)
}

// infoListHeaderSize is the fixed size of the InfoListHeader record.
const infoListHeaderSize = 20

// InfoListHeader follows the second RSRC header and locates the block info
// array within the Info resource.
type InfoListHeader struct {
	Int1            uint32
	Int2            uint32
	Int3            uint32 // always HeaderSize in valid files
	BlockInfoOffset uint32 // relative to the Info resource start
	BlockInfoSize   uint32
}

func parseInfoListHeader(r *stream.Reader) (*InfoListHeader, error) {
	var lh InfoListHeader
	var err error
	if lh.Int1, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: info list header: %w", ErrTruncatedRead, err)
	}
	if lh.Int2, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: info list header: %w", ErrTruncatedRead, err)
	}
	if lh.Int3, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: info list header: %w", ErrTruncatedRead, err)
	}
	if lh.BlockInfoOffset, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: info list header: %w", ErrTruncatedRead, err)
	}
	if lh.BlockInfoSize, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: info list header: %w", ErrTruncatedRead, err)
	}
	if lh.Int3 != HeaderSize {
		return nil, fmt.Errorf("%w: info list header int3 = %d", ErrMalformedContainer, lh.Int3)
	}
	if lh.BlockInfoOffset != HeaderSize+infoListHeaderSize {
		return nil, fmt.Errorf("%w: block info offset = %d", ErrMalformedContainer, lh.BlockInfoOffset)
	}
	return &lh, nil
}

func (lh *InfoListHeader) write(w *stream.Writer) {
	w.WriteU32(lh.Int1)
	w.WriteU32(lh.Int2)
	w.WriteU32(lh.Int3)
	w.WriteU32(lh.BlockInfoOffset)
	w.WriteU32(lh.BlockInfoSize)
}

// maxBlockCount bounds the declared block count; real files carry dozens.
const maxBlockCount = 4096

// blockHeaderSize / sectionStartSize are the fixed record sizes within the
// Info resource.
const (
	blockHeaderSize  = 12
	sectionStartSize = 20
)

// NoName marks a SectionStart without a name string.
const NoName = 0xFFFFFFFF

// blockHeader is the on-disk per-block record: ident, section count minus
// one, and the offset (relative to block info start) of the SectionStart
// array.
type blockHeader struct {
	Ident  Ident
	Count  uint32
	Offset uint32
}

func parseBlockHeader(r *stream.Reader) (*blockHeader, error) {
	var bh blockHeader
	ident, err := r.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("%w: block header: %w", ErrTruncatedRead, err)
	}
	copy(bh.Ident[:], ident)
	if bh.Count, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: block header: %w", ErrTruncatedRead, err)
	}
	if bh.Offset, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: block header: %w", ErrTruncatedRead, err)
	}
	return &bh, nil
}

// SectionStart is the on-disk per-section record within the Info resource.
type SectionStart struct {
	SectionIdx int32
	NameOffset uint32 // relative to the section names region; NoName if absent
	Int3       uint32
	DataOffset uint32 // relative to the first header's DataOffset
	Int5       uint32
}

func parseSectionStart(r *stream.Reader) (*SectionStart, error) {
	var ss SectionStart
	var err error
	if ss.SectionIdx, err = r.ReadI32(); err != nil {
		return nil, fmt.Errorf("%w: section start: %w", ErrTruncatedRead, err)
	}
	if ss.NameOffset, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: section start: %w", ErrTruncatedRead, err)
	}
	if ss.Int3, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: section start: %w", ErrTruncatedRead, err)
	}
	if ss.DataOffset, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: section start: %w", ErrTruncatedRead, err)
	}
	if ss.Int5, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("%w: section start: %w", ErrTruncatedRead, err)
	}
	return &ss, nil
}
