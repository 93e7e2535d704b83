package vi

import (
	"bytes"
	"crypto/md5"
	"errors"
	"testing"

	"github.com/mefistotelis/lvrsrc-go/internal/lvver"
	"github.com/mefistotelis/lvrsrc-go/internal/password"
	"github.com/mefistotelis/lvrsrc-go/internal/td"
	"github.com/mefistotelis/lvrsrc-go/rsrc"
)

var (
	ver86 = lvver.Version{Major: 8, Minor: 6, Stage: lvver.StageRelease}
	ver12 = lvver.Version{Major: 12, Stage: lvver.StageRelease}
	ver14 = lvver.Version{Major: 14, Stage: lvver.StageRelease}
)

// rebuild serializes the file and parses it back, exercising the
// section codings on the way.
func rebuild(t *testing.T, f *File, opts ...Option) *File {
	t.Helper()
	data, err := f.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	out, err := FromBytes(data, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestNewFileRoundTrip(t *testing.T) {
	f := NewFile(rsrc.FileTypeVI)
	f.SetVers(&VersInfo{Version: ver14, Text: []byte("14.0"), Info: []byte("14.0f1")})
	f.SetLibraryNames([][]byte{[]byte("libA"), []byte("libB")})
	f.SetScalarU32(rsrc.MakeIdent("FPSE"), 7)
	f.SetStringValue(rsrc.MakeIdent("TITL"), []byte("My VI"))

	got := rebuild(t, f)
	if got.FileType != rsrc.FileTypeVI {
		t.Fatalf("file type = %v", got.FileType)
	}
	if got.TypeIdent() != rsrc.MakeIdent("LVIN") {
		t.Fatalf("type ident = %q", got.TypeIdent())
	}

	v, err := got.Vers()
	if err != nil {
		t.Fatal(err)
	}
	if v.Version != ver14 || string(v.Text) != "14.0" || string(v.Info) != "14.0f1" {
		t.Fatalf("vers = %+v", v)
	}
	if got.Version() != ver14 {
		t.Fatalf("Version() = %v", got.Version())
	}

	names, err := got.LibraryNames()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || string(names[0]) != "libA" {
		t.Fatalf("names = %q", names)
	}
	if string(got.JoinedLibraryNames()) != "libA:libB" {
		t.Fatalf("joined names = %q", got.JoinedLibraryNames())
	}

	if n, err := got.ScalarU32(rsrc.MakeIdent("FPSE")); err != nil || n != 7 {
		t.Fatalf("FPSE = %d, %v", n, err)
	}
	if s, err := got.StringValue(rsrc.MakeIdent("TITL")); err != nil || string(s) != "My VI" {
		t.Fatalf("TITL = %q, %v", s, err)
	}
}

func TestMissingBlockErrors(t *testing.T) {
	f := NewFile(rsrc.FileTypeVI)
	if _, err := f.Vers(); !errors.Is(err, ErrBlockMissing) {
		t.Fatalf("missing vers = %v, want ErrBlockMissing", err)
	}
	if _, err := f.TypeList(); !errors.Is(err, ErrBlockMissing) {
		t.Fatalf("missing VCTP = %v, want ErrBlockMissing", err)
	}
	if _, err := f.SaveRecord(); !errors.Is(err, ErrBlockMissing) {
		t.Fatalf("missing LVSR = %v, want ErrBlockMissing", err)
	}
}

func TestTypeListFromSyntheticFile(t *testing.T) {
	list := &td.List{
		Version: ver86,
		Types: []*td.Type{
			{Index: 0, Full: td.NumInt32, Body: &td.NumberBody{}},
		},
		TypeMap: []uint32{0},
	}
	f := NewFile(rsrc.FileTypeVI)
	f.SetVers(&VersInfo{Version: ver86})
	f.SetSection(identVCTP, 0, nil, list.Encode())
	f.SetSaveRecord(&SaveRecord{Version: ver86})

	got := rebuild(t, f)
	decoded, err := got.TypeList()
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Types) != 1 {
		t.Fatalf("types = %d", len(decoded.Types))
	}
	if decoded.Types[0].Full != td.NumInt32 || !decoded.Types[0].IsNumber() {
		t.Fatalf("type 0 = %v", decoded.Types[0].Full)
	}

	// Decoding twice returns the cached list.
	again, err := got.TypeList()
	if err != nil {
		t.Fatal(err)
	}
	if again != decoded {
		t.Fatal("second TypeList call did not reuse the cache")
	}

	// Changing the section invalidates the cache.
	got.SetSection(identVCTP, 0, nil, list.Encode())
	third, err := got.TypeList()
	if err != nil {
		t.Fatal(err)
	}
	if third == decoded {
		t.Fatal("TypeList cache survived a content change")
	}
}

func TestTypeListStrictMode(t *testing.T) {
	// A type map entry past the descriptor table is a recoverable
	// finding; strict mode turns it into an error.
	list := &td.List{
		Version: ver86,
		Types:   []*td.Type{{Index: 0, Full: td.NumInt32, Body: &td.NumberBody{}}},
		TypeMap: []uint32{5},
	}
	f := NewFile(rsrc.FileTypeVI)
	f.SetVers(&VersInfo{Version: ver86})
	f.SetSection(identVCTP, 0, nil, list.Encode())

	lax := rebuild(t, f)
	if _, err := lax.TypeList(); err != nil {
		t.Fatalf("lax decode failed: %v", err)
	}
	if len(lax.Warnings()) == 0 {
		t.Fatal("finding was not recorded as a warning")
	}

	strict := rebuild(t, f, WithStrict())
	if _, err := strict.TypeList(); !errors.Is(err, ErrSanityCheckFailed) {
		t.Fatalf("strict decode = %v, want ErrSanityCheckFailed", err)
	}
}

func TestSaveRecordRoundTrip(t *testing.T) {
	sr := &SaveRecord{
		Version:    ver14,
		Protected:  true,
		ExecFlags:  0x21,
		VIType:     2,
		InstrState: 0x1000,
		InlineStg:  1,
	}
	sr.VISignature[0] = 0xAB

	f := NewFile(rsrc.FileTypeVI)
	f.SetSaveRecord(sr)

	got, err := rebuild(t, f).SaveRecord()
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != ver14 || !got.Protected || got.ExecFlags != 0x21 {
		t.Fatalf("record = %+v", got)
	}
	if got.VIType != 2 || got.InstrState != 0x1000 || got.InlineStg != 1 {
		t.Fatalf("record = %+v", got)
	}
	if got.VISignature[0] != 0xAB {
		t.Fatalf("signature = %x", got.VISignature)
	}
	// 120 fixed bytes, the 10.0 digest, the 14.0 inline flag.
	if len(got.Raw) != 137 {
		t.Fatalf("raw size = %d", len(got.Raw))
	}
	if !bytes.Equal(got.Encode(), got.Raw) {
		t.Fatal("re-encoding the record changed its bytes")
	}
}

func TestSaveRecordLegacySize(t *testing.T) {
	sr := &SaveRecord{Version: ver86}
	data := sr.Encode()
	if len(data) != 120 {
		t.Fatalf("8.6 record size = %d", len(data))
	}
	if _, err := parseSaveRecord(data[:100]); err == nil {
		t.Fatal("short record should fail")
	}
}

func TestSectionStateMachine(t *testing.T) {
	f := NewFile(rsrc.FileTypeVI)
	content := bytes.Repeat([]byte("type data "), 30)
	f.SetSection(identVCTP, 0, nil, content)

	s := f.Block(identVCTP).Section(0)
	coded, err := s.Coded()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(coded, content) {
		t.Fatal("VCTP section should be stored compressed")
	}
	back, err := s.Content()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, content) {
		t.Fatal("content lost through coding")
	}

	gen := s.gen
	s.SetContent([]byte("replaced"))
	if s.gen == gen {
		t.Fatal("SetContent did not bump the generation")
	}
	coded2, err := s.Coded()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(coded2, coded) {
		t.Fatal("stale coded bytes survived SetContent")
	}
}

func TestDefaultSectionTieBreak(t *testing.T) {
	b := &Block{Ident: identBDHb, Sections: []*Section{
		{Index: -1}, {Index: 1},
	}}
	if got := b.DefaultSection().Index; got != 1 {
		t.Fatalf("default section = %d, want the non-negative index", got)
	}
}

func TestHeapContentPriority(t *testing.T) {
	f := NewFile(rsrc.FileTypeVI)
	f.SetHeapContent(identBDHP, []byte("plain"))
	f.SetHeapContent(identBDHc, []byte("compressed"))

	heap, err := rebuild(t, f).BlockDiagramHeap()
	if err != nil {
		t.Fatal(err)
	}
	if heap.Ident != identBDHc {
		t.Fatalf("heap ident = %q", heap.Ident)
	}
	if string(heap.Content) != "compressed" {
		t.Fatalf("heap content = %q", heap.Content)
	}
	if heap.Hash != md5.Sum([]byte("compressed")) {
		t.Fatal("heap hash mismatch")
	}
}

func TestZipContentXorRoundTrip(t *testing.T) {
	content := []byte("PK\x03\x04 pretend archive bytes")
	f := NewFile(rsrc.FileTypeVI)
	f.SetSection(identLVzp, 0, nil, content)

	got, err := rebuild(t, f).ZipContent()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("zip content = %x", got)
	}
}

func TestPasswordRecordFields(t *testing.T) {
	pwd := md5.Sum([]byte("password"))
	var section []byte
	section = append(section, pwd[:]...)
	section = append(section, bytes.Repeat([]byte{1}, 16)...)
	section = append(section, bytes.Repeat([]byte{2}, 16)...)

	f := NewFile(rsrc.FileTypeVI)
	f.SetSection(identBDPW, 0, nil, section)

	rec, err := f.PasswordRecord()
	if err != nil {
		t.Fatal(err)
	}
	if rec.PasswordMD5 != pwd {
		t.Fatal("password digest mismatch")
	}
	if !rec.Recognized || rec.Password != "password" {
		t.Fatalf("recognition = %q, %v", rec.Password, rec.Recognized)
	}
	if rec.Hash1[0] != 1 || rec.Hash2[0] != 2 {
		t.Fatal("hash fields mismatch")
	}
}

func TestSetPasswordAndVerifyPre12(t *testing.T) {
	// Files older than LabVIEW 12 use an empty salt.
	f := NewFile(rsrc.FileTypeVI)
	f.SetVers(&VersInfo{Version: ver86})
	f.SetSaveRecord(&SaveRecord{Version: ver86})
	f.SetLibraryNames([][]byte{[]byte("libA")})
	f.SetHeapContent(identBDHb, []byte("diagram"))
	f.SetSection(identBDPW, 0, nil, make([]byte, 48))

	if err := f.SetPassword("secret"); err != nil {
		t.Fatal(err)
	}
	ok, err := f.VerifyPassword()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("freshly set password does not verify")
	}

	// The full chain must survive a serialize/parse cycle.
	got := rebuild(t, f)
	ok, err = got.VerifyPassword()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("password chain broken after round trip")
	}

	// Tampering with the diagram heap invalidates hash2.
	got.SetHeapContent(identBDHb, []byte("patched diagram"))
	ok, err = got.VerifyPassword()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("tampered diagram still verifies")
	}
}

func TestSaltInterfaceScan(t *testing.T) {
	// From LabVIEW 12 on the salt comes from the terminal counts of an
	// interface descriptor; the scan must find the right one.
	list := &td.List{
		Version: ver12,
		Types: []*td.Type{
			{Index: 0, Full: td.NumInt32, Body: &td.NumberBody{}},
			{Index: 1, Full: td.String, Body: &td.BlobBody{Prop1: 0xFFFFFFFF}},
			{Index: 2, Full: td.Path, Body: &td.BlobBody{Prop1: 0xFFFFFFFF}},
			{Index: 3, Full: td.Function, Body: &td.FunctionBody{
				Clients: []td.Client{{Index: 0}, {Index: 1}, {Index: 2}},
				Pattern: 0x4844,
			}},
		},
		TypeMap: []uint32{3},
	}

	f := NewFile(rsrc.FileTypeVI)
	f.SetVers(&VersInfo{Version: ver12})
	f.SetSaveRecord(&SaveRecord{Version: ver12})
	f.SetSection(identVCTP, 0, nil, list.Encode())

	// Build the BDPW section the way a writer would: hash1 over the
	// digest, library names, raw save record and the interface salt.
	pwd := md5.Sum([]byte("secret"))
	salt := password.Salt(1, 1, 1)
	sr, err := f.SaveRecord()
	if err != nil {
		t.Fatal(err)
	}
	h1 := password.Hash1(pwd[:], nil, sr.Raw, salt)
	h2 := password.Hash2(h1, nil)
	var section []byte
	section = append(section, pwd[:]...)
	section = append(section, h1...)
	section = append(section, h2...)
	f.SetSection(identBDPW, 0, nil, section)

	ok, err := f.VerifyPassword()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("interface-salted password does not verify")
	}

	rec, err := f.PasswordRecord()
	if err != nil {
		t.Fatal(err)
	}
	if rec.SaltIface != 3 {
		t.Fatalf("salt interface = %d, want 3", rec.SaltIface)
	}
	if !bytes.Equal(rec.Salt, salt) {
		t.Fatalf("salt = %v, want %v", rec.Salt, salt)
	}
}

func TestCodingForIdent(t *testing.T) {
	if CodingForIdent(identVCTP) != rsrc.CodingZlib {
		t.Fatal("VCTP should be zlib coded")
	}
	if CodingForIdent(identLVzp) != rsrc.CodingXor {
		t.Fatal("LVzp should be xor coded")
	}
	if CodingForIdent(identBDPW) != rsrc.CodingNone {
		t.Fatal("BDPW should be stored plain")
	}
}

func TestBlocksOrderPreserved(t *testing.T) {
	f := NewFile(rsrc.FileTypeVI)
	f.SetVers(&VersInfo{Version: ver14})
	f.SetSection(identBDPW, 0, nil, make([]byte, 48))
	f.SetSection(identVCTP, 0, nil, []byte{0, 0, 0, 0, 0, 0})

	got := rebuild(t, f)
	blocks := got.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("blocks = %d", len(blocks))
	}
	want := []rsrc.Ident{identVers, identBDPW, identVCTP}
	for i, b := range blocks {
		if b.Ident != want[i] {
			t.Fatalf("block %d = %q, want %q", i, b.Ident, want[i])
		}
	}
}

func TestCloseInvalidatesFile(t *testing.T) {
	f := NewFile(rsrc.FileTypeVI)
	f.SetVers(&VersInfo{Version: ver14})
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if f.Block(identVers) != nil {
		t.Fatal("closed file still serves blocks")
	}
}
