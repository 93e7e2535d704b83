package vi

import (
	"fmt"
	"os"
	"sync"

	"github.com/mefistotelis/lvrsrc-go/internal/lvver"
	"github.com/mefistotelis/lvrsrc-go/internal/td"
	"github.com/mefistotelis/lvrsrc-go/rsrc"
)

// File is an opened RSRC resource file with typed access to its blocks.
// Reads are safe for concurrent use; mutations are not.
type File struct {
	FileType rsrc.FileType
	typeID   rsrc.Ident

	mu     sync.RWMutex
	blocks map[rsrc.Ident]*Block
	order  []*Block
	opts   options
	closed bool

	warnings []Warning

	typeList    *td.List
	typeListGen uint64

	passRec    *PasswordRecord
	passRecGen uint64
}

// Open reads and parses an RSRC file from the given path.
func Open(path string, opts ...Option) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vi: failed to open file: %w", err)
	}
	return FromBytes(data, opts...)
}

// FromBytes parses an RSRC file held in memory.
func FromBytes(data []byte, opts ...Option) (*File, error) {
	c, err := rsrc.Parse(data)
	if err != nil {
		return nil, err
	}

	f := &File{
		FileType: rsrc.RecognizeFileType(c.FileType),
		typeID:   c.FileType,
		blocks:   make(map[rsrc.Ident]*Block),
		opts:     defaultOptions(),
	}
	for _, opt := range opts {
		opt(&f.opts)
	}
	for _, entry := range c.Blocks {
		b := newBlock(entry)
		f.blocks[b.Ident] = b
		f.order = append(f.order, b)
	}
	return f, nil
}

// NewFile creates an empty in-memory RSRC file of the given type.
func NewFile(ft rsrc.FileType, opts ...Option) *File {
	return NewFileIdent(ft.TypeIdent(), opts...)
}

// NewFileIdent creates an empty in-memory RSRC file with an explicit
// 4-byte type tag, which may be one the file type table does not know.
func NewFileIdent(id rsrc.Ident, opts ...Option) *File {
	f := &File{
		FileType: rsrc.RecognizeFileType(id),
		typeID:   id,
		blocks:   make(map[rsrc.Ident]*Block),
		opts:     defaultOptions(),
	}
	for _, opt := range opts {
		opt(&f.opts)
	}
	return f
}

// TypeIdent returns the 4-byte file type tag from the headers.
func (f *File) TypeIdent() rsrc.Ident {
	return f.typeID
}

// Close releases the file. Further typed accesses fail.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.blocks = nil
	f.order = nil
	return nil
}

// Block returns the block stored under the given tag, or nil.
func (f *File) Block(id rsrc.Ident) *Block {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.blocks[id]
}

// BlockOneOf returns the first block matching any of the given tags,
// checked in argument order.
func (f *File) BlockOneOf(ids ...rsrc.Ident) *Block {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, id := range ids {
		if b := f.blocks[id]; b != nil {
			return b
		}
	}
	return nil
}

// Blocks lists all blocks in their stored order.
func (f *File) Blocks() []*Block {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*Block(nil), f.order...)
}

// AddBlock registers a new empty block under the given tag. If the tag
// already exists the existing block is returned.
func (f *File) AddBlock(id rsrc.Ident) *Block {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b := f.blocks[id]; b != nil {
		return b
	}
	b := &Block{Ident: id}
	f.blocks[id] = b
	f.order = append(f.order, b)
	return b
}

// SetSection stores decoded content under a block tag and section
// index, creating both when missing.
func (f *File) SetSection(id rsrc.Ident, idx int32, name, content []byte) {
	b := f.AddBlock(id)
	f.mu.Lock()
	defer f.mu.Unlock()
	s := b.Section(idx)
	if s == nil {
		s = &Section{Index: idx, Name: name, coding: CodingForIdent(id)}
		b.Sections = append(b.Sections, s)
	}
	s.SetContent(content)
}

// defaultContent fetches the decoded default section content of a
// block tag. A missing block yields ErrBlockMissing.
func (f *File) defaultContent(id rsrc.Ident) ([]byte, *Section, error) {
	b := f.Block(id)
	if b == nil {
		return nil, nil, fmt.Errorf("vi: block %s: %w", id, ErrBlockMissing)
	}
	s := b.DefaultSection()
	if s == nil {
		return nil, nil, fmt.Errorf("vi: block %s: %w", id, ErrSectionMissing)
	}
	data, err := s.Content()
	if err != nil {
		return nil, nil, parseErr(id, s.Index, "decode section", err)
	}
	return data, s, nil
}

// Version returns the format version recorded in the file, preferring
// the vers block and falling back to the save record. A file with
// neither reports a zero version.
func (f *File) Version() lvver.Version {
	if v, err := f.Vers(); err == nil {
		return v.Version
	}
	if sr, err := f.SaveRecord(); err == nil {
		return sr.Version
	}
	return lvver.Version{}
}

// TypeList decodes the descriptor table from the VCTP block. The
// decoded list is cached until the underlying section changes.
func (f *File) TypeList() (*td.List, error) {
	data, s, err := f.defaultContent(identVCTP)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.typeList != nil && f.typeListGen == s.gen {
		return f.typeList, nil
	}

	list, warns, err := td.ParseList(data, f.Version(), f.opts.listLimit)
	if err != nil {
		return nil, parseErr(identVCTP, s.Index, "descriptor table", err)
	}
	for _, w := range warns {
		f.warnings = append(f.warnings, Warning{
			Block:   identVCTP,
			Section: s.Index,
			Message: w.String(),
		})
	}
	if f.opts.strict && len(warns) > 0 {
		return nil, fmt.Errorf("vi: block %s: %d finding(s): %w",
			identVCTP, len(warns), ErrSanityCheckFailed)
	}
	f.typeList = list
	f.typeListGen = s.gen
	return list, nil
}

// Warnings lists every non-fatal finding recorded so far.
func (f *File) Warnings() []Warning {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Warning(nil), f.warnings...)
}

func (f *File) warnf(id rsrc.Ident, idx int32, format string, args ...any) {
	f.mu.Lock()
	f.warnings = append(f.warnings, Warning{
		Block:   id,
		Section: idx,
		Message: fmt.Sprintf(format, args...),
	})
	f.mu.Unlock()
}

// strictCheck converts pending warnings into an error in strict mode.
func (f *File) strictCheck(id rsrc.Ident, count int) error {
	if f.opts.strict && count > 0 {
		return fmt.Errorf("vi: block %s: %d finding(s): %w", id, count, ErrSanityCheckFailed)
	}
	return nil
}

// Bytes serializes the file back to RSRC form.
func (f *File) Bytes() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c := &rsrc.Container{FileType: f.typeID}
	for _, b := range f.order {
		entry, err := b.entry()
		if err != nil {
			return nil, err
		}
		c.Blocks = append(c.Blocks, entry)
	}
	return rsrc.Serialize(c), nil
}

// Save writes the file to the given path.
func (f *File) Save(path string) error {
	data, err := f.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("vi: failed to write file: %w", err)
	}
	return nil
}
