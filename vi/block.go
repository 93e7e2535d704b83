package vi

import (
	"github.com/mefistotelis/lvrsrc-go/rsrc"
)

// codings maps block tags to the transform applied to their section
// data on disk. Anything not listed is stored plain.
var codings = map[rsrc.Ident]rsrc.Coding{
	rsrc.MakeIdent("VCTP"): rsrc.CodingZlib,
	rsrc.MakeIdent("DFDS"): rsrc.CodingZlib,
	rsrc.MakeIdent("GCDI"): rsrc.CodingZlib,
	rsrc.MakeIdent("BDHb"): rsrc.CodingZlib,
	rsrc.MakeIdent("BDHc"): rsrc.CodingZlib,
	rsrc.MakeIdent("FPHb"): rsrc.CodingZlib,
	rsrc.MakeIdent("FPHc"): rsrc.CodingZlib,
	rsrc.MakeIdent("LVzp"): rsrc.CodingXor,
}

// CodingForIdent returns the section transform used by a block tag.
func CodingForIdent(id rsrc.Ident) rsrc.Coding {
	if c, ok := codings[id]; ok {
		return c
	}
	return rsrc.CodingNone
}

// Section is one stored instance of a block. Either the coded (on-disk)
// bytes or the decoded content is authoritative at any time; the other
// form is materialized on demand.
type Section struct {
	Index  int32
	Name   []byte
	coding rsrc.Coding

	coded     []byte
	codedOK   bool
	content   []byte
	contentOK bool

	// gen increments on every content change so cached typed views
	// can tell they are stale.
	gen uint64
}

func newSection(coding rsrc.Coding, src *rsrc.Section) *Section {
	return &Section{
		Index:   src.Index,
		Name:    src.Name,
		coding:  coding,
		coded:   src.Data,
		codedOK: true,
	}
}

// Content returns the decoded section payload.
func (s *Section) Content() ([]byte, error) {
	if s.contentOK {
		return s.content, nil
	}
	data, err := s.coding.Decode(s.coded)
	if err != nil {
		return nil, err
	}
	s.content = data
	s.contentOK = true
	return s.content, nil
}

// SetContent replaces the decoded payload and invalidates the coded
// form. The coded bytes are rebuilt on the next Coded call.
func (s *Section) SetContent(data []byte) {
	s.content = data
	s.contentOK = true
	s.coded = nil
	s.codedOK = false
	s.gen++
}

// Coded returns the on-disk form of the section payload.
func (s *Section) Coded() ([]byte, error) {
	if s.codedOK {
		return s.coded, nil
	}
	data, err := s.coding.Encode(s.content)
	if err != nil {
		return nil, err
	}
	s.coded = data
	s.codedOK = true
	return s.coded, nil
}

// Block groups the sections stored under one 4-byte tag.
type Block struct {
	Ident    rsrc.Ident
	Sections []*Section
}

func newBlock(entry *rsrc.BlockEntry) *Block {
	b := &Block{Ident: entry.Ident}
	coding := CodingForIdent(entry.Ident)
	for _, src := range entry.Sections {
		b.Sections = append(b.Sections, newSection(coding, src))
	}
	return b
}

// Section returns the section with the given index, or nil.
func (b *Block) Section(idx int32) *Section {
	for _, s := range b.Sections {
		if s.Index == idx {
			return s
		}
	}
	return nil
}

// DefaultSection returns the section whose index is closest to zero,
// preferring non-negative indices on a tie. Most blocks store exactly
// one section at index zero.
func (b *Block) DefaultSection() *Section {
	var best *Section
	for _, s := range b.Sections {
		if best == nil || abs32(s.Index) < abs32(best.Index) ||
			(abs32(s.Index) == abs32(best.Index) && s.Index > best.Index) {
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

// entry converts the block back to container form for serialization.
func (b *Block) entry() (*rsrc.BlockEntry, error) {
	e := &rsrc.BlockEntry{Ident: b.Ident}
	for _, s := range b.Sections {
		data, err := s.Coded()
		if err != nil {
			return nil, parseErr(b.Ident, s.Index, "encode section", err)
		}
		e.Sections = append(e.Sections, &rsrc.Section{
			Index: s.Index,
			Name:  s.Name,
			Data:  data,
		})
	}
	return e, nil
}
