package rsrc

import "github.com/mefistotelis/lvrsrc-go/internal/stream"

// Serialize writes the container back to bytes.
//
// The order is load-bearing: section data is written first, computing offsets
// as it goes; the Info resource follows once all offsets are known; finally
// both headers are rewritten in place with the now-final sizes.
func Serialize(c *Container) []byte {
	w := stream.NewWriter()

	h0 := c.Headers[0]
	h0.FileType = c.FileType
	h0.DataOffset = HeaderSize

	// Pass one: placeholder first header, then every section payload with
	// its size prefix, padded to 4 bytes.
	h0.write(w)
	for _, b := range c.Blocks {
		for _, s := range b.Sections {
			s.start.DataOffset = uint32(w.Len()) - h0.DataOffset
			w.WriteU32(uint32(len(s.Data)))
			w.WriteBytes(s.Data)
			w.Pad(4)
		}
	}
	h0.InfoOffset = uint32(w.Len())
	h0.DataSize = h0.InfoOffset - h0.DataOffset

	// Pass two: section names region is assembled while walking the blocks,
	// since SectionStart records carry offsets into it.
	var names []byte
	for _, b := range c.Blocks {
		for _, s := range b.Sections {
			if s.Name == nil {
				s.start.NameOffset = NoName
				continue
			}
			s.start.NameOffset = uint32(len(names))
			name := s.Name
			if len(name) > 255 {
				name = name[:255]
			}
			names = append(names, byte(len(name)))
			names = append(names, name...)
		}
	}

	// SectionStart arrays start right after the BlockInfoHeader and the
	// BlockHeader records.
	startOffs := uint32(4 + len(c.Blocks)*blockHeaderSize)
	type blockPlacement struct {
		head blockHeader
	}
	placements := make([]blockPlacement, len(c.Blocks))
	for i, b := range c.Blocks {
		placements[i].head = blockHeader{
			Ident:  b.Ident,
			Count:  uint32(len(b.Sections) - 1),
			Offset: startOffs,
		}
		startOffs += uint32(len(b.Sections) * sectionStartSize)
	}

	lh := c.ListHdr
	lh.Int3 = HeaderSize
	lh.BlockInfoOffset = HeaderSize + infoListHeaderSize
	lh.BlockInfoSize = lh.BlockInfoOffset + startOffs

	h1 := c.Headers[1]
	h1.FileType = c.FileType
	h1.InfoOffset = h0.InfoOffset
	h1.DataOffset = h0.DataOffset
	h1.DataSize = h0.DataSize

	h1.write(w)
	lh.write(w)
	w.WriteU32(uint32(len(c.Blocks) - 1))
	for i := range placements {
		bh := &placements[i].head
		w.WriteBytes(bh.Ident[:])
		w.WriteU32(bh.Count)
		w.WriteU32(bh.Offset)
	}
	for _, b := range c.Blocks {
		for _, s := range b.Sections {
			ss := &s.start
			w.WriteI32(ss.SectionIdx)
			w.WriteU32(ss.NameOffset)
			w.WriteU32(ss.Int3)
			w.WriteU32(ss.DataOffset)
			w.WriteU32(ss.Int5)
		}
	}
	w.WriteBytes(names)

	h0.InfoSize = uint32(w.Len()) - h0.InfoOffset
	h1.InfoSize = h0.InfoSize

	// Rewrite both headers with final offsets and sizes.
	hw := stream.NewWriter()
	h0.write(hw)
	copy(w.Bytes()[0:HeaderSize], hw.Bytes())

	hw = stream.NewWriter()
	h1.write(hw)
	copy(w.Bytes()[h0.InfoOffset:int(h0.InfoOffset)+HeaderSize], hw.Bytes())

	c.Headers[0], c.Headers[1] = h0, h1
	c.ListHdr = lh
	return w.Bytes()
}
