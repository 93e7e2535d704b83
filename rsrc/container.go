package rsrc

import (
	"fmt"

	"github.com/mefistotelis/lvrsrc-go/internal/stream"
)

// Section is one indexed byte-range instance within a block. Data holds the
// coded payload exactly as stored in the Data resource, after the 4-byte
// size prefix; decoding it is the caller's concern (see Coding).
type Section struct {
	Index int32
	Name  []byte // nil when the section has no name
	Data  []byte
	start SectionStart
}

// BlockEntry groups the sections of one block identifier. Sections keep
// their file order; Index uniqueness is enforced at parse time.
type BlockEntry struct {
	Ident    Ident
	Sections []*Section
}

// Section returns the section with the given index, or nil.
func (b *BlockEntry) Section(idx int32) *Section {
	for _, s := range b.Sections {
		if s.Index == idx {
			return s
		}
	}
	return nil
}

// DefaultSection returns the section whose index has the smallest absolute
// value, which is the one LabVIEW presents by default.
func (b *BlockEntry) DefaultSection() *Section {
	var best *Section
	for _, s := range b.Sections {
		if best == nil || abs32(s.Index) < abs32(best.Index) {
			best = s
		}
	}
	return best
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Container is a fully read RSRC file: both headers, the info list header,
// and every block with its section payloads.
type Container struct {
	FileType Ident
	Headers  [2]Header
	ListHdr  InfoListHeader
	Blocks   []*BlockEntry
}

// Block returns the entry for the given identifier, or nil.
func (c *Container) Block(id Ident) *BlockEntry {
	for _, b := range c.Blocks {
		if b.Ident == id {
			return b
		}
	}
	return nil
}

// Parse reads a complete RSRC container from a byte buffer.
func Parse(data []byte) (*Container, error) {
	c := &Container{}

	// Follow the header chain; the second header points at itself.
	var headers []*Header
	currPos, nextPos := -1, 0
	for currPos != nextPos {
		currPos = nextPos
		r := stream.NewReader(data)
		if err := r.SetOffset(currPos); err != nil {
			return nil, err
		}
		h, err := ParseHeader(r)
		if err != nil {
			return nil, fmt.Errorf("header %d: %w", len(headers), err)
		}
		if int(h.InfoOffset) < currPos {
			return nil, fmt.Errorf("%w: header %d chains backward to %d",
				ErrMalformedContainer, len(headers), h.InfoOffset)
		}
		nextPos = int(h.InfoOffset)
		headers = append(headers, h)
	}
	if len(headers) != 2 {
		return nil, fmt.Errorf("%w: expected 2 headers, found %d", ErrMalformedContainer, len(headers))
	}
	c.Headers[0], c.Headers[1] = *headers[0], *headers[1]
	c.FileType = c.Headers[1].FileType

	infoStart := int(c.Headers[1].InfoOffset)

	// Info list header sits right after the second RSRC header.
	r := stream.NewReader(data)
	if err := r.SetOffset(infoStart + HeaderSize); err != nil {
		return nil, err
	}
	lh, err := parseInfoListHeader(r)
	if err != nil {
		return nil, err
	}
	c.ListHdr = *lh

	blockInfoStart := infoStart + int(lh.BlockInfoOffset)
	if err := r.SetOffset(blockInfoStart); err != nil {
		return nil, err
	}
	countMinusOne, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("%w: block info header: %w", ErrTruncatedRead, err)
	}
	blockCount := int(countMinusOne) + 1
	if blockCount > maxBlockCount {
		return nil, fmt.Errorf("%w: block count %d", ErrMalformedContainer, blockCount)
	}

	bheads := make([]*blockHeader, blockCount)
	for i := range bheads {
		if bheads[i], err = parseBlockHeader(r); err != nil {
			return nil, fmt.Errorf("block header %d: %w", i, err)
		}
	}

	// Section names follow the SectionStart arrays.
	namesStart := blockInfoStart + 4 + blockCount*blockHeaderSize
	for _, bh := range bheads {
		namesStart += (int(bh.Count) + 1) * sectionStartSize
	}
	infoEnd := infoStart + int(c.Headers[1].InfoSize)

	dataStart := int(c.Headers[0].DataOffset)
	for _, bh := range bheads {
		entry := &BlockEntry{Ident: bh.Ident}
		if err := r.SetOffset(blockInfoStart + int(bh.Offset)); err != nil {
			return nil, err
		}
		seen := make(map[int32]bool)
		for i := 0; i <= int(bh.Count); i++ {
			ss, err := parseSectionStart(r)
			if err != nil {
				return nil, fmt.Errorf("block %s section %d: %w", bh.Ident, i, err)
			}
			if seen[ss.SectionIdx] {
				return nil, fmt.Errorf("%w: block %s index %d",
					ErrDuplicateSectionIndex, bh.Ident, ss.SectionIdx)
			}
			seen[ss.SectionIdx] = true

			sect := &Section{Index: ss.SectionIdx, start: *ss}
			if ss.NameOffset != NoName {
				nameOff := namesStart + int(ss.NameOffset)
				if nameOff >= infoEnd || nameOff >= len(data) {
					return nil, fmt.Errorf("%w: section name offset %d outside info resource",
						ErrMalformedContainer, ss.NameOffset)
				}
				nr := stream.NewReader(data)
				if err := nr.SetOffset(nameOff); err != nil {
					return nil, err
				}
				if sect.Name, err = nr.ReadPStr(); err != nil {
					return nil, fmt.Errorf("%w: section name: %w", ErrTruncatedRead, err)
				}
			}

			sect.Data, err = readSectionData(data, dataStart+int(ss.DataOffset))
			if err != nil {
				return nil, fmt.Errorf("block %s section %d: %w", bh.Ident, ss.SectionIdx, err)
			}
			entry.Sections = append(entry.Sections, sect)
		}
		c.Blocks = append(c.Blocks, entry)
	}

	return c, nil
}

// readSectionData reads one u32-size-prefixed section payload from the Data
// resource.
func readSectionData(data []byte, pos int) ([]byte, error) {
	r := stream.NewReader(data)
	if err := r.SetOffset(pos); err != nil {
		return nil, err
	}
	size, err := r.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("%w: section size: %w", ErrTruncatedRead, err)
	}
	payload, err := r.ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: section payload of %d bytes: %w", ErrTruncatedRead, size, err)
	}
	return payload, nil
}
