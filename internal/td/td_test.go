package td

import (
	"bytes"
	"testing"

	"github.com/mefistotelis/lvrsrc-go/internal/lvver"
	"github.com/mefistotelis/lvrsrc-go/internal/stream"
)

var ver14 = lvver.Version{Major: 14, Stage: lvver.StageRelease}

func roundTrip(t *testing.T, typ *Type, ver lvver.Version) *Type {
	t.Helper()
	data := typ.EncodeVersion(ver)
	got, consumed, warns, err := ParseSingle(data, ver, 0)
	if err != nil {
		t.Fatalf("ParseSingle(%v): %v", typ.Full, err)
	}
	for _, w := range warns {
		t.Logf("warning: %s", w)
	}
	if consumed != len(data) {
		t.Fatalf("%v consumed %d of %d bytes", typ.Full, consumed, len(data))
	}
	if got.Full != typ.Full {
		t.Fatalf("full type %v -> %v", typ.Full, got.Full)
	}
	return got
}

func TestNumberRoundTrip(t *testing.T) {
	typ := &Type{Full: NumInt32, Body: &NumberBody{Prop1: 0}}
	got := roundTrip(t, typ, ver14)
	body, ok := got.Body.(*NumberBody)
	if !ok {
		t.Fatalf("body type %T", got.Body)
	}
	if body.Prop1 != 0 {
		t.Fatalf("prop1 = %d", body.Prop1)
	}
	if !got.IsNumber() || got.IsString() || got.IsPath() {
		t.Fatal("NumInt32 should classify as a number")
	}
}

func TestNumberLabelRoundTrip(t *testing.T) {
	for _, label := range []string{"count", "abc", "x"} {
		typ := &Type{Full: NumInt32, Label: []byte(label), Body: &NumberBody{}}
		got := roundTrip(t, typ, ver14)
		if !got.HasLabel() {
			t.Fatalf("label flag lost for %q", label)
		}
		if string(got.Label) != label {
			t.Fatalf("label %q -> %q", label, got.Label)
		}
	}
}

func TestEnumRoundTrip(t *testing.T) {
	typ := &Type{Full: UnitUInt8, Body: &NumberBody{
		EnumValues: []EnumValue{{Label: []byte("On")}, {Label: []byte("Off")}},
	}}
	got := roundTrip(t, typ, ver14)
	body := got.Body.(*NumberBody)
	if len(body.EnumValues) != 2 ||
		string(body.EnumValues[0].Label) != "On" ||
		string(body.EnumValues[1].Label) != "Off" {
		t.Fatalf("enum values = %v", body.EnumValues)
	}
	if !got.IsNumber() {
		t.Fatal("enum should classify as a number")
	}
}

func TestPhysRoundTrip(t *testing.T) {
	typ := &Type{Full: UnitFloat64, Body: &NumberBody{
		UnitValues: []UnitValue{{Val1: 1, Val2: 2}, {Val1: 3, Val2: 4}},
	}}
	got := roundTrip(t, typ, ver14)
	body := got.Body.(*NumberBody)
	if len(body.UnitValues) != 2 || body.UnitValues[1] != (UnitValue{Val1: 3, Val2: 4}) {
		t.Fatalf("unit values = %v", body.UnitValues)
	}
}

func TestStringAndPathRoundTrip(t *testing.T) {
	s := roundTrip(t, &Type{Full: String, Body: &BlobBody{Prop1: 0xFFFFFFFF}}, ver14)
	if !s.IsString() {
		t.Fatal("String should classify as a string")
	}
	if s.Body.(*BlobBody).Prop1 != 0xFFFFFFFF {
		t.Fatal("blob prop lost")
	}
	p := roundTrip(t, &Type{Full: Path, Body: &BlobBody{Prop1: 0xFFFFFFFF}}, ver14)
	if !p.IsPath() {
		t.Fatal("Path should classify as a path")
	}
	c := roundTrip(t, &Type{Full: CString, Body: EmptyBody{}}, ver14)
	if c.IsString() {
		t.Fatal("CString must not count as a plain string")
	}
}

func TestArrayRoundTrip(t *testing.T) {
	typ := &Type{Full: Array, Body: &ArrayBody{
		Dimensions: []Dimension{{Flags: 0xFF, FixedSize: 0xFFFFFF}, {Flags: 0x80, FixedSize: 16}},
		Clients:    []Client{{Index: 3}},
	}}
	got := roundTrip(t, typ, ver14)
	body := got.Body.(*ArrayBody)
	if len(body.Dimensions) != 2 {
		t.Fatalf("dims = %d", len(body.Dimensions))
	}
	if body.Dimensions[0].Flags != 0xFF || body.Dimensions[0].FixedSize != 0xFFFFFF {
		t.Fatalf("dim 0 = %+v", body.Dimensions[0])
	}
	if body.Dimensions[1].Flags != 0x80 || body.Dimensions[1].FixedSize != 16 {
		t.Fatalf("dim 1 = %+v", body.Dimensions[1])
	}
	if len(body.Clients) != 1 || body.Clients[0].Index != 3 {
		t.Fatalf("clients = %v", body.Clients)
	}
}

func TestClusterRoundTrip(t *testing.T) {
	typ := &Type{Full: Cluster, Body: &ClusterBody{
		Clients: []Client{{Index: 0}, {Index: 1}, {Index: 2}},
	}}
	got := roundTrip(t, typ, ver14)
	body := got.Body.(*ClusterBody)
	if len(body.Clients) != 3 || body.Clients[2].Index != 2 {
		t.Fatalf("clients = %v", body.Clients)
	}
	if !got.HasClients() {
		t.Fatal("cluster should report clients")
	}
}

func TestFunctionRoundTrip(t *testing.T) {
	typ := &Type{Full: Function, Body: &FunctionBody{
		Clients: []Client{{Index: 1, Flags: 0x10}, {Index: 2, Flags: 0x20}},
		FFlags:  0,
		Pattern: 0x4844,
	}}
	got := roundTrip(t, typ, ver14)
	body := got.Body.(*FunctionBody)
	if body.Pattern != 0x4844 {
		t.Fatalf("pattern = %#x", body.Pattern)
	}
	if len(body.Clients) != 2 {
		t.Fatalf("clients = %+v", body.Clients)
	}
	if body.Clients[0].Index != 1 || body.Clients[0].Flags != 0x10 ||
		body.Clients[1].Index != 2 || body.Clients[1].Flags != 0x20 {
		t.Fatalf("clients = %+v", body.Clients)
	}
}

func TestFunctionOldVersionClientFlags(t *testing.T) {
	// Before 10.0 client flags are stored as 16-bit values.
	old := lvver.Version{Major: 8, Minor: 6, Stage: lvver.StageRelease}
	typ := &Type{Full: Function, Body: &FunctionBody{
		Clients: []Client{{Index: 1, Flags: 0x7FFF}},
		Pattern: 0x4811,
	}}
	got := roundTrip(t, typ, old)
	body := got.Body.(*FunctionBody)
	if body.Clients[0].Flags != 0x7FFF {
		t.Fatalf("flags = %#x", body.Clients[0].Flags)
	}
}

func TestFunctionThrallRoundTrip(t *testing.T) {
	typ := &Type{Full: Function, Body: &FunctionBody{
		Clients:   []Client{{Index: 1, Thrall: []uint8{2, 3}}, {Index: 2}},
		Pattern:   0x4822,
		HasThrall: 1,
	}}
	got := roundTrip(t, typ, ver14)
	body := got.Body.(*FunctionBody)
	if !bytes.Equal(body.Clients[0].Thrall, []uint8{2, 3}) {
		t.Fatalf("thrall = %v", body.Clients[0].Thrall)
	}
	if body.Clients[1].Thrall != nil {
		t.Fatalf("client 1 thrall = %v", body.Clients[1].Thrall)
	}
}

func TestTypeDefRoundTrip(t *testing.T) {
	nested := &Type{Index: NestedIndex, Full: NumInt32, Body: &NumberBody{}}
	typ := &Type{Full: TypeDef, Body: &TypeDefBody{
		Flag1:   1,
		Names:   [][]byte{[]byte("Lib"), []byte("Def.ctl")},
		Clients: []Client{{Index: NestedIndex, Nested: nested}},
	}}
	got := roundTrip(t, typ, ver14)
	body := got.Body.(*TypeDefBody)
	if body.Flag1 != 1 {
		t.Fatalf("flag1 = %d", body.Flag1)
	}
	if len(body.Names) != 2 || string(body.Names[0]) != "Lib" || string(body.Names[1]) != "Def.ctl" {
		t.Fatalf("names = %q", body.Names)
	}
	sub := body.Clients[0].Nested
	if sub == nil || sub.Full != NumInt32 {
		t.Fatalf("nested = %+v", sub)
	}
}

func TestTypeDefOldVersionName(t *testing.T) {
	old := lvver.Version{Major: 7, Minor: 1, Stage: lvver.StageRelease}
	nested := &Type{Index: NestedIndex, Full: Boolean, Body: EmptyBody{}}
	typ := &Type{Full: TypeDef, Body: &TypeDefBody{
		Names:   [][]byte{[]byte("Def")},
		Clients: []Client{{Index: NestedIndex, Nested: nested}},
	}}
	got := roundTrip(t, typ, old)
	body := got.Body.(*TypeDefBody)
	if len(body.Names) != 1 || string(body.Names[0]) != "Def" {
		t.Fatalf("names = %q", body.Names)
	}
	if body.Clients[0].Nested.Full != Boolean {
		t.Fatalf("nested full = %v", body.Clients[0].Nested.Full)
	}
}

func TestRefnumRoundTrip(t *testing.T) {
	typ := &Type{Full: Refnum, Body: &RefBody{
		RefKind: RefQueue,
		Clients: []Client{{Index: 4}},
	}}
	got := roundTrip(t, typ, ver14)
	body := got.Body.(*RefBody)
	if body.RefKind != RefQueue {
		t.Fatalf("ref kind = %v", body.RefKind)
	}
	if len(body.Clients) != 1 || body.Clients[0].Index != 4 {
		t.Fatalf("clients = %v", body.Clients)
	}
}

func TestEventRegistrationRefnumRoundTrip(t *testing.T) {
	typ := &Type{Full: Refnum, Body: &RefBody{
		RefKind:     RefEventRegistration,
		Clients:     []Client{{Index: 2}, {Index: 3}},
		EventFields: [][3]uint16{{1, 2, 3}, {4, 5, 6}},
	}}
	got := roundTrip(t, typ, ver14)
	body := got.Body.(*RefBody)
	if len(body.Clients) != 2 || body.Clients[1].Index != 3 {
		t.Fatalf("clients = %v", body.Clients)
	}
	if body.EventFields[1] != [3]uint16{4, 5, 6} {
		t.Fatalf("event fields = %v", body.EventFields)
	}
}

func TestFixedPointRoundTrip(t *testing.T) {
	typ := &Type{Full: FixedPoint, Body: &FixedPointBody{
		DataVersion:  0,
		RangeFormat:  0,
		DataEncoding: 1,
		DataUnit:     2,
		AllocOv:      1,
		Field1E:      0x40,
		Field20:      64,
		Ranges: [3]FixedPointRange{
			{Value: -1.5}, {Value: 1.5}, {Value: 0.25},
		},
	}}
	got := roundTrip(t, typ, ver14)
	body := got.Body.(*FixedPointBody)
	if body.DataEncoding != 1 || body.DataUnit != 2 || body.AllocOv != 1 {
		t.Fatalf("packed fields = %+v", body)
	}
	if body.Ranges[0].Value != -1.5 || body.Ranges[2].Value != 0.25 {
		t.Fatalf("ranges = %+v", body.Ranges)
	}
	if !got.IsNumber() {
		t.Fatal("fixed point should classify as a number")
	}
}

func TestUnknownTagKeepsPayload(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	typ := &Type{Full: FullType(0x99), Body: UnknownBody{Data: payload}}
	got := roundTrip(t, typ, ver14)
	body, ok := got.Body.(UnknownBody)
	if !ok {
		t.Fatalf("body type %T", got.Body)
	}
	if !bytes.Equal(body.Data, payload) {
		t.Fatalf("payload = %x", body.Data)
	}
}

func TestListRoundTrip(t *testing.T) {
	list := &List{
		Version: ver14,
		Types: []*Type{
			{Index: 0, Full: NumInt32, Body: &NumberBody{}},
			{Index: 1, Full: String, Body: &BlobBody{Prop1: 0xFFFFFFFF}},
			{Index: 2, Full: Cluster, Body: &ClusterBody{Clients: []Client{{Index: 0}, {Index: 1}}}},
		},
		TypeMap: []uint32{2},
	}
	data := list.Encode()
	got, warns, err := ParseList(data, ver14, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(warns) != 0 {
		t.Fatalf("warnings: %v", warns)
	}
	if len(got.Types) != 3 {
		t.Fatalf("types = %d", len(got.Types))
	}
	if got.Types[2].Full != Cluster {
		t.Fatalf("type 2 = %v", got.Types[2].Full)
	}
	if len(got.TypeMap) != 1 || got.TypeMap[0] != 2 {
		t.Fatalf("type map = %v", got.TypeMap)
	}
	if got.At(2) != got.Types[2] || got.At(5) != nil || got.At(-2) != nil {
		t.Fatal("At() resolution wrong")
	}
}

func TestResolveNested(t *testing.T) {
	nested := &Type{Index: NestedIndex, Full: Boolean, Body: EmptyBody{}}
	list := &List{Types: []*Type{{Index: 0, Full: NumInt32, Body: &NumberBody{}}}}
	if list.Resolve(Client{Index: 0}).Full != NumInt32 {
		t.Fatal("flat resolve failed")
	}
	if list.Resolve(Client{Index: NestedIndex, Nested: nested}) != nested {
		t.Fatal("nested resolve failed")
	}
}

func TestCollectTerminals(t *testing.T) {
	list := &List{
		Version: ver14,
		Types: []*Type{
			{Index: 0, Full: NumInt32, Body: &NumberBody{}},
			{Index: 1, Full: String, Body: &BlobBody{}},
			{Index: 2, Full: Path, Body: &BlobBody{}},
			{Index: 3, Full: Boolean, Body: EmptyBody{}},
			{Index: 4, Full: Cluster, Body: &ClusterBody{
				Clients: []Client{{Index: 0}, {Index: 1}, {Index: 2}, {Index: 3}},
			}},
			{Index: 5, Full: Function, Body: &FunctionBody{
				Clients: []Client{{Index: 4}, {Index: 0}},
			}},
		},
	}
	g := list.CollectTerminals(list.Types[5])
	numbers, strings, paths := g.Counts()
	if numbers != 2 || strings != 1 || paths != 1 {
		t.Fatalf("counts = %d,%d,%d", numbers, strings, paths)
	}
	if len(g.Compound) != 1 || g.Compound[0].Full != Cluster {
		t.Fatalf("compound = %v", g.Compound)
	}
	if len(g.Other) != 1 || g.Other[0].Full != Boolean {
		t.Fatalf("other = %v", g.Other)
	}
}

func TestCollectTerminalsCycle(t *testing.T) {
	// Self-referencing cluster must not recurse forever.
	list := &List{Types: []*Type{
		{Index: 0, Full: Cluster, Body: &ClusterBody{Clients: []Client{{Index: 0}}}},
	}}
	g := list.CollectTerminals(list.Types[0])
	if len(g.Number) != 0 || len(g.Compound) == 0 {
		t.Fatalf("groups = %+v", g)
	}
}

func TestVariantRoundTrip(t *testing.T) {
	v := &Variant{
		VarVersion: 0x12000000,
		Types: []*Type{
			{Index: NestedIndex, Full: NumInt32, Body: &NumberBody{}},
		},
		HasVarItem2: 1,
		VarItem2:    []byte{1, 2, 3, 4, 5, 6},
	}
	data := v.Encode(ver14)
	r := stream.NewReader(data)
	got, warns, err := ParseVariant(r, ver14, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(warns) != 0 {
		t.Fatalf("warnings: %v", warns)
	}
	if got.VarVersion != v.VarVersion {
		t.Fatalf("var version = %#x", got.VarVersion)
	}
	if len(got.Types) != 1 || got.Types[0].Full != NumInt32 {
		t.Fatalf("types = %v", got.Types)
	}
	if !bytes.Equal(got.VarItem2, v.VarItem2) {
		t.Fatalf("item2 = %v", got.VarItem2)
	}
	if r.Remaining() != 0 {
		t.Fatalf("variant left %d bytes", r.Remaining())
	}
}

func TestLabelPaddedWithZero(t *testing.T) {
	// Odd-length pstr forces a trailing pad byte; the back scan must still
	// find the label.
	typ := &Type{Full: NumInt32, Label: []byte("abc"), Body: &NumberBody{}}
	got := roundTrip(t, typ, ver14)
	if string(got.Label) != "abc" {
		t.Fatalf("label = %q", got.Label)
	}
}

func TestParseListTruncated(t *testing.T) {
	list := &List{
		Version: ver14,
		Types:   []*Type{{Index: 0, Full: NumInt32, Body: &NumberBody{}}},
	}
	data := list.Encode()
	for n := 0; n < len(data); n++ {
		if _, _, err := ParseList(data[:n], ver14, 0); err == nil {
			t.Fatalf("ParseList of %d-byte prefix should fail", n)
		}
	}
}
