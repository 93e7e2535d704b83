package rsrc

import (
	"bytes"
	"errors"
	"testing"
)

// buildContainer makes a minimal in-memory container and serializes it.
func buildContainer(t *testing.T, blocks []*BlockEntry) []byte {
	t.Helper()
	c := &Container{
		FileType: MakeIdent("LVIN"),
		Blocks:   blocks,
	}
	return Serialize(c)
}

func TestSerializeParseRoundTrip(t *testing.T) {
	data := buildContainer(t, []*BlockEntry{
		{
			Ident: MakeIdent("vers"),
			Sections: []*Section{
				{Index: 0, Data: []byte{0x14, 0x00, 0x80, 0x01, 0, 0, 0}},
			},
		},
		{
			Ident: MakeIdent("BDPW"),
			Sections: []*Section{
				{Index: 0, Data: bytes.Repeat([]byte{0xAB}, 48)},
				{Index: 2, Name: []byte("alt"), Data: []byte("second")},
			},
		},
	})

	c, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if c.FileType != MakeIdent("LVIN") {
		t.Fatalf("FileType = %q", c.FileType)
	}
	if len(c.Blocks) != 2 {
		t.Fatalf("blocks = %d", len(c.Blocks))
	}

	vers := c.Block(MakeIdent("vers"))
	if vers == nil || len(vers.Sections) != 1 {
		t.Fatal("vers block missing")
	}
	if !bytes.Equal(vers.Sections[0].Data, []byte{0x14, 0x00, 0x80, 0x01, 0, 0, 0}) {
		t.Fatalf("vers data = %v", vers.Sections[0].Data)
	}

	bdpw := c.Block(MakeIdent("BDPW"))
	if bdpw == nil || len(bdpw.Sections) != 2 {
		t.Fatal("BDPW block missing sections")
	}
	s2 := bdpw.Section(2)
	if s2 == nil || string(s2.Name) != "alt" || string(s2.Data) != "second" {
		t.Fatalf("section 2 = %+v", s2)
	}
	if bdpw.DefaultSection().Index != 0 {
		t.Fatalf("default section index = %d", bdpw.DefaultSection().Index)
	}
}

func TestSerializeIdempotent(t *testing.T) {
	data := buildContainer(t, []*BlockEntry{
		{Ident: MakeIdent("LVSR"), Sections: []*Section{{Index: 0, Data: make([]byte, 120)}}},
	})
	c, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	again := Serialize(c)
	if !bytes.Equal(data, again) {
		t.Fatal("parse then serialize changed the bytes")
	}
}

func TestParseBadMagic(t *testing.T) {
	data := buildContainer(t, []*BlockEntry{
		{Ident: MakeIdent("vers"), Sections: []*Section{{Index: 0, Data: []byte{1}}}},
	})
	data[0] = 'X'
	if _, err := Parse(data); !errors.Is(err, ErrMalformedContainer) {
		t.Fatalf("bad magic = %v, want ErrMalformedContainer", err)
	}
}

func TestParseBadVendorTag(t *testing.T) {
	data := buildContainer(t, []*BlockEntry{
		{Ident: MakeIdent("vers"), Sections: []*Section{{Index: 0, Data: []byte{1}}}},
	})
	copy(data[12:16], "XXXX")
	if _, err := Parse(data); !errors.Is(err, ErrMalformedContainer) {
		t.Fatalf("bad vendor tag = %v, want ErrMalformedContainer", err)
	}
}

func TestParseTruncated(t *testing.T) {
	data := buildContainer(t, []*BlockEntry{
		{Ident: MakeIdent("vers"), Sections: []*Section{{Index: 0, Data: []byte{1, 2, 3}}}},
	})
	for _, n := range []int{0, 10, HeaderSize - 1, HeaderSize + 2} {
		if _, err := Parse(data[:n]); err == nil {
			t.Fatalf("Parse of %d-byte prefix should fail", n)
		}
	}
}

func TestParseDuplicateSectionIndex(t *testing.T) {
	data := buildContainer(t, []*BlockEntry{
		{
			Ident: MakeIdent("BDHb"),
			Sections: []*Section{
				{Index: 3, Data: []byte("a")},
				{Index: 3, Data: []byte("b")},
			},
		},
	})
	if _, err := Parse(data); !errors.Is(err, ErrDuplicateSectionIndex) {
		t.Fatalf("duplicate index = %v, want ErrDuplicateSectionIndex", err)
	}
}

func TestDefaultSectionPrefersNonNegative(t *testing.T) {
	b := &BlockEntry{
		Ident: MakeIdent("BDHb"),
		Sections: []*Section{
			{Index: -1, Data: []byte("neg")},
			{Index: 1, Data: []byte("pos")},
		},
	}
	// Equal distance from zero resolves to whichever comes first with a
	// strictly smaller absolute value; here both tie so file order wins.
	if got := b.DefaultSection().Index; got != -1 {
		t.Fatalf("default section = %d, want first in file order", got)
	}
}

func TestIdentPretty(t *testing.T) {
	cases := []struct {
		in     string
		pretty string
	}{
		{"VCTP", "VCTP"},
		{"vers", "vers"},
		{"icl#", "iclsh"},
		{"#&f ", "shf"},
	}
	for _, c := range cases {
		id := MakeIdent(c.in)
		if got := id.Pretty(); got != c.pretty {
			t.Errorf("Pretty(%q) = %q, want %q", c.in, got, c.pretty)
		}
	}
	if ParsePrettyIdent("iclsh") != MakeIdent("icl#") {
		t.Error("ParsePrettyIdent did not restore '#'")
	}
	if ParsePrettyIdent("vers") != MakeIdent("vers") {
		t.Error("ParsePrettyIdent altered a plain ident")
	}
}

func TestFileTypeRecognition(t *testing.T) {
	if RecognizeFileType(MakeIdent("LVIN")) != FileTypeVI {
		t.Error("LVIN should be a VI")
	}
	if RecognizeFileType(MakeIdent("LVCC")) != FileTypeControl {
		t.Error("LVCC should be a Control")
	}
	if RecognizeFileType(MakeIdent("????")) != FileTypeUnknown {
		t.Error("unknown ident should map to FileTypeUnknown")
	}
	if FileTypeVI.Ext() != "vi" || FileTypeUnknown.Ext() != "rsrc" {
		t.Error("Ext mismatch")
	}
	if FileTypeVI.TypeIdent() != MakeIdent("LVIN") {
		t.Error("TypeIdent mismatch")
	}
}
