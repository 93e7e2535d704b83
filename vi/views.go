package vi

import (
	"bytes"
	"crypto/md5"
	"fmt"

	"github.com/mefistotelis/lvrsrc-go/internal/lvver"
	"github.com/mefistotelis/lvrsrc-go/internal/stream"
	"github.com/mefistotelis/lvrsrc-go/rsrc"
)

var (
	identVCTP = rsrc.MakeIdent("VCTP")
	identDFDS = rsrc.MakeIdent("DFDS")
	identLVSR = rsrc.MakeIdent("LVSR")
	identLVIN = rsrc.MakeIdent("LVIN")
	identVers = rsrc.MakeIdent("vers")
	identBDPW = rsrc.MakeIdent("BDPW")
	identLIBN = rsrc.MakeIdent("LIBN")
	identBDHP = rsrc.MakeIdent("BDHP")
	identBDHb = rsrc.MakeIdent("BDHb")
	identBDHc = rsrc.MakeIdent("BDHc")
	identFPHP = rsrc.MakeIdent("FPHP")
	identFPHb = rsrc.MakeIdent("FPHb")
	identFPHc = rsrc.MakeIdent("FPHc")
	identLVzp = rsrc.MakeIdent("LVzp")
)

// Blocks holding one big-endian u32.
var scalarIdents = []rsrc.Ident{
	rsrc.MakeIdent("CONP"),
	rsrc.MakeIdent("CPC2"),
	rsrc.MakeIdent("FPSE"),
	rsrc.MakeIdent("BDSE"),
	rsrc.MakeIdent("FPTD"),
	rsrc.MakeIdent("MUID"),
	rsrc.MakeIdent("FLAG"),
}

// Blocks holding one Pascal string.
var stringIdents = []rsrc.Ident{
	rsrc.MakeIdent("TITL"),
	rsrc.MakeIdent("STRG"),
}

// Icon bitmap blocks, kept as raw pixel data.
var iconIdents = []rsrc.Ident{
	rsrc.MakeIdent("icl8"),
	rsrc.MakeIdent("icl4"),
	rsrc.MakeIdent("ICON"),
}

// VersInfo is the decoded vers block: the format version followed by
// two version strings.
type VersInfo struct {
	Version lvver.Version
	Text    []byte
	Info    []byte
}

// Vers decodes the vers block.
func (f *File) Vers() (*VersInfo, error) {
	data, s, err := f.defaultContent(identVers)
	if err != nil {
		return nil, err
	}
	r := stream.NewReader(data)
	code, err := r.ReadU32()
	if err != nil {
		return nil, parseErr(identVers, s.Index, "version code", err)
	}
	v := &VersInfo{Version: lvver.Decode(code)}
	if v.Text, err = r.ReadPStr(); err != nil {
		return nil, parseErr(identVers, s.Index, "version text", err)
	}
	if err = r.Skip(1); err != nil {
		return nil, parseErr(identVers, s.Index, "version text", err)
	}
	if v.Info, err = r.ReadPStr(); err != nil {
		return nil, parseErr(identVers, s.Index, "version info", err)
	}
	return v, nil
}

// SetVers stores a vers block, replacing any existing one.
func (f *File) SetVers(v *VersInfo) {
	w := stream.NewWriter()
	w.WriteU32(v.Version.Encode())
	w.WritePStr(v.Text)
	w.WriteU8(0)
	w.WritePStr(v.Info)
	w.WriteU8(0)
	f.SetSection(identVers, 0, nil, w.Bytes())
}

// LibraryNames decodes the LIBN block, listing the libraries this file
// belongs to.
func (f *File) LibraryNames() ([][]byte, error) {
	data, s, err := f.defaultContent(identLIBN)
	if err != nil {
		return nil, err
	}
	r := stream.NewReader(data)
	count, err := r.ReadU32()
	if err != nil {
		return nil, parseErr(identLIBN, s.Index, "name count", err)
	}
	if int(count) > f.opts.listLimit {
		return nil, parseErr(identLIBN, s.Index,
			fmt.Sprintf("name count %d above limit", count), ErrSanityCheckFailed)
	}
	names := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.ReadPStr()
		if err != nil {
			return nil, parseErr(identLIBN, s.Index, "name entry", err)
		}
		names = append(names, name)
	}
	return names, nil
}

// SetLibraryNames stores a LIBN block.
func (f *File) SetLibraryNames(names [][]byte) {
	w := stream.NewWriter()
	w.WriteU32(uint32(len(names)))
	for _, name := range names {
		w.WritePStr(name)
	}
	f.SetSection(identLIBN, 0, nil, w.Bytes())
}

// JoinedLibraryNames returns the library names joined with a colon, the
// exact byte string that feeds the first password hash. A file without
// a LIBN block yields an empty slice.
func (f *File) JoinedLibraryNames() []byte {
	names, err := f.LibraryNames()
	if err != nil {
		return nil
	}
	return bytes.Join(names, []byte(":"))
}

// ScalarU32 reads a block holding a single big-endian u32 (CONP, CPC2,
// FPSE, BDSE, FPTD, MUID, FLAG).
func (f *File) ScalarU32(id rsrc.Ident) (uint32, error) {
	data, s, err := f.defaultContent(id)
	if err != nil {
		return 0, err
	}
	r := stream.NewReader(data)
	v, err := r.ReadU32()
	if err != nil {
		return 0, parseErr(id, s.Index, "scalar value", err)
	}
	return v, nil
}

// SetScalarU32 stores a single-u32 block.
func (f *File) SetScalarU32(id rsrc.Ident, v uint32) {
	w := stream.NewWriter()
	w.WriteU32(v)
	f.SetSection(id, 0, nil, w.Bytes())
}

// StringValue reads a block holding one Pascal string (TITL, STRG).
func (f *File) StringValue(id rsrc.Ident) ([]byte, error) {
	data, s, err := f.defaultContent(id)
	if err != nil {
		return nil, err
	}
	r := stream.NewReader(data)
	v, err := r.ReadPStr()
	if err != nil {
		return nil, parseErr(id, s.Index, "string value", err)
	}
	return v, nil
}

// SetStringValue stores a single-string block.
func (f *File) SetStringValue(id rsrc.Ident, v []byte) {
	w := stream.NewWriter()
	w.WritePStr(v)
	f.SetSection(id, 0, nil, w.Bytes())
}

// HeapContent is the decoded payload of a heap block (BDH or FPH
// family) plus its content hash, which feeds the second password hash.
type HeapContent struct {
	Ident   rsrc.Ident
	Content []byte
	Hash    [md5.Size]byte
}

// heap blocks store a u32 content length in front of the content.
func (f *File) heapContent(ids ...rsrc.Ident) (*HeapContent, error) {
	b := f.BlockOneOf(ids...)
	if b == nil {
		return nil, fmt.Errorf("vi: heap block: %w", ErrBlockMissing)
	}
	data, s, err := f.defaultContent(b.Ident)
	if err != nil {
		return nil, err
	}
	r := stream.NewReader(data)
	length, err := r.ReadU32()
	if err != nil {
		return nil, parseErr(b.Ident, s.Index, "content length", err)
	}
	content, err := r.ReadBytesRef(int(length))
	if err != nil {
		return nil, parseErr(b.Ident, s.Index, "content", err)
	}
	return &HeapContent{
		Ident:   b.Ident,
		Content: content,
		Hash:    md5.Sum(content),
	}, nil
}

// BlockDiagramHeap returns the decoded block diagram heap, trying the
// compressed variants before the plain one.
func (f *File) BlockDiagramHeap() (*HeapContent, error) {
	return f.heapContent(identBDHc, identBDHb, identBDHP)
}

// FrontPanelHeap returns the decoded front panel heap.
func (f *File) FrontPanelHeap() (*HeapContent, error) {
	return f.heapContent(identFPHc, identFPHb, identFPHP)
}

// SetHeapContent stores heap content under the given tag with its u32
// length prefix.
func (f *File) SetHeapContent(id rsrc.Ident, content []byte) {
	w := stream.NewWriter()
	w.WriteU32(uint32(len(content)))
	w.WriteBytes(content)
	f.SetSection(id, 0, nil, w.Bytes())
}

// ZipContent returns the decoded payload of the LVzp block, a zip
// archive stored under the xor transform.
func (f *File) ZipContent() ([]byte, error) {
	data, _, err := f.defaultContent(identLVzp)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Icon returns the raw bitmap of an icon block (ICON, icl4, icl8).
func (f *File) Icon(id rsrc.Ident) ([]byte, error) {
	data, _, err := f.defaultContent(id)
	if err != nil {
		return nil, err
	}
	return data, nil
}
