// Package td implements the type descriptor graph stored in the VCTP block.
//
// Type descriptors form a bottom-up list: a compound descriptor refers to
// earlier entries by flat index, or carries a nested descriptor inline.
package td

import (
	"fmt"

	"github.com/mefistotelis/lvrsrc-go/internal/lvver"
)

// MainType is the upper nibble of a full type tag.
type MainType uint8

const (
	MainNumber    MainType = 0x0
	MainUnit      MainType = 0x1
	MainBool      MainType = 0x2
	MainBlob      MainType = 0x3
	MainArray     MainType = 0x4
	MainCluster   MainType = 0x5
	MainBlock     MainType = 0x6
	MainRef       MainType = 0x7
	MainNumberPtr MainType = 0x8
	MainTerminal  MainType = 0xF
)

func (m MainType) String() string {
	switch m {
	case MainNumber:
		return "Number"
	case MainUnit:
		return "Unit"
	case MainBool:
		return "Bool"
	case MainBlob:
		return "Blob"
	case MainArray:
		return "Array"
	case MainCluster:
		return "Cluster"
	case MainBlock:
		return "Block"
	case MainRef:
		return "Ref"
	case MainNumberPtr:
		return "NumberPtr"
	case MainTerminal:
		return "Terminal"
	}
	return fmt.Sprintf("MainType(0x%X)", uint8(m))
}

// FullType is the one byte type tag of a descriptor chunk.
type FullType uint8

const (
	Void FullType = 0x00

	NumInt8       FullType = 0x01
	NumInt16      FullType = 0x02
	NumInt32      FullType = 0x03
	NumInt64      FullType = 0x04
	NumUInt8      FullType = 0x05
	NumUInt16     FullType = 0x06
	NumUInt32     FullType = 0x07
	NumUInt64     FullType = 0x08
	NumFloat32    FullType = 0x09
	NumFloat64    FullType = 0x0A
	NumFloatExt   FullType = 0x0B
	NumComplex64  FullType = 0x0C
	NumComplex128 FullType = 0x0D
	NumComplexExt FullType = 0x0E

	UnitUInt8      FullType = 0x15
	UnitUInt16     FullType = 0x16
	UnitUInt32     FullType = 0x17
	UnitFloat32    FullType = 0x19
	UnitFloat64    FullType = 0x1A
	UnitFloatExt   FullType = 0x1B
	UnitComplex64  FullType = 0x1C
	UnitComplex128 FullType = 0x1D
	UnitComplexExt FullType = 0x1E

	BooleanU16 FullType = 0x20
	Boolean    FullType = 0x21

	String    FullType = 0x30
	String2   FullType = 0x31
	Path      FullType = 0x32
	Picture   FullType = 0x33
	CString   FullType = 0x34
	PasString FullType = 0x35
	Tag       FullType = 0x37
	SubString FullType = 0x3F

	Array        FullType = 0x40
	ArrayDataPtr FullType = 0x41
	SubArray     FullType = 0x4F

	Cluster        FullType = 0x50
	LVVariant      FullType = 0x53
	MeasureData    FullType = 0x54
	ComplexFixedPt FullType = 0x5E
	FixedPoint     FullType = 0x5F

	Block          FullType = 0x60
	TypeBlock      FullType = 0x61
	VoidBlock      FullType = 0x62
	AlignedBlock   FullType = 0x63
	RepeatedBlock  FullType = 0x64
	AlignmntMarker FullType = 0x65

	Refnum FullType = 0x70

	Ptr     FullType = 0x80
	PtrTo   FullType = 0x83
	ExtData FullType = 0x84

	ArrayInterfc  FullType = 0xA0
	InterfcToData FullType = 0xA1

	Function FullType = 0xF0
	TypeDef  FullType = 0xF1
	PolyVI   FullType = 0xF2
)

// Main gives the general type group the tag belongs to.
func (ft FullType) Main() MainType {
	return MainType(ft >> 4)
}

var fullTypeNames = map[FullType]string{
	Void:           "Void",
	NumInt8:        "I8",
	NumInt16:       "I16",
	NumInt32:       "I32",
	NumInt64:       "I64",
	NumUInt8:       "U8",
	NumUInt16:      "U16",
	NumUInt32:      "U32",
	NumUInt64:      "U64",
	NumFloat32:     "SGL",
	NumFloat64:     "DBL",
	NumFloatExt:    "EXT",
	NumComplex64:   "CSG",
	NumComplex128:  "CDB",
	NumComplexExt:  "CXT",
	UnitUInt8:      "EB",
	UnitUInt16:     "EW",
	UnitUInt32:     "EL",
	UnitFloat32:    "UnitFloat32",
	UnitFloat64:    "UnitFloat64",
	UnitFloatExt:   "UnitFloatExt",
	UnitComplex64:  "UnitComplex64",
	UnitComplex128: "UnitComplex128",
	UnitComplexExt: "UnitComplexExt",
	BooleanU16:     "BooleanU16",
	Boolean:        "Boolean",
	String:         "String",
	String2:        "String2",
	Path:           "Path",
	Picture:        "Picture",
	CString:        "CString",
	PasString:      "PasString",
	Tag:            "Tag",
	SubString:      "SubString",
	Array:          "Array",
	ArrayDataPtr:   "ArrayDataPtr",
	SubArray:       "SubArray",
	Cluster:        "Cluster",
	LVVariant:      "LvVariant",
	MeasureData:    "MeasureData",
	ComplexFixedPt: "ComplexFixedPt",
	FixedPoint:     "FixedPoint",
	Block:          "Block",
	TypeBlock:      "TypeBlock",
	VoidBlock:      "VoidBlock",
	AlignedBlock:   "AlignedBlock",
	RepeatedBlock:  "RepeatedBlock",
	AlignmntMarker: "AlignmntMarker",
	Refnum:         "Refnum",
	Ptr:            "Ptr",
	PtrTo:          "PtrTo",
	ExtData:        "ExtData",
	ArrayInterfc:   "ArrayInterfc",
	InterfcToData:  "InterfcToData",
	Function:       "Function",
	TypeDef:        "TypeDef",
	PolyVI:         "PolyVI",
}

func (ft FullType) String() string {
	if name, ok := fullTypeNames[ft]; ok {
		return name
	}
	return fmt.Sprintf("TD%02X", uint8(ft))
}

// Descriptor flag bits. Only the label bit has a known meaning.
const (
	FlagHasLabel uint8 = 1 << 6
)

// NestedIndex marks a client that carries its descriptor inline instead
// of referring to the flat list.
const NestedIndex int32 = -1

// Client is a reference from a compound descriptor to one of its element
// types.
type Client struct {
	Index  int32
	Flags  uint32
	Thrall []uint8
	Nested *Type
}

// Dimension describes one dimension of an array descriptor.
type Dimension struct {
	Flags     uint8
	FixedSize uint32
}

// Type is a single decoded descriptor.
type Type struct {
	Index int32
	Flags uint8
	Full  FullType
	Label []byte
	Body  Body

	// Raw keeps the original chunk so unrecognized descriptors survive a
	// round trip unchanged.
	Raw []byte
}

// Body holds the tag-specific payload of a descriptor.
type Body interface {
	clientList() []Client
}

// HasLabel reports whether the descriptor carries a trailing text label.
func (t *Type) HasLabel() bool {
	return t.Flags&FlagHasLabel != 0
}

// Clients lists the element references of a compound descriptor. Scalar
// descriptors return an empty list.
func (t *Type) Clients() []Client {
	if t.Body == nil {
		return nil
	}
	return t.Body.clientList()
}

// HasClients reports whether the descriptor refers to element types.
func (t *Type) HasClients() bool {
	return len(t.Clients()) > 0
}

// IsNumber reports whether the descriptor holds numeric data. Fixed point
// numbers count, physical units count, enums count.
func (t *Type) IsNumber() bool {
	m := t.Full.Main()
	return m == MainNumber || m == MainUnit || t.Full == FixedPoint
}

// IsString reports whether the descriptor is a plain string. C strings and
// Pascal strings are excluded, they do not take part in salt counting.
func (t *Type) IsString() bool {
	return t.Full == String
}

// IsPath reports whether the descriptor is a path.
func (t *Type) IsPath() bool {
	return t.Full == Path
}

// EmptyBody is the payload of descriptors that store nothing beyond the
// common header. Void, booleans, variants and both special string kinds
// use it.
type EmptyBody struct{}

func (EmptyBody) clientList() []Client { return nil }

// UnknownBody keeps the undecoded payload of a tag this package does not
// recognize.
type UnknownBody struct {
	Data []byte
}

func (UnknownBody) clientList() []Client { return nil }

// EnumValue is one labelled value of an enumeration descriptor.
type EnumValue struct {
	Label []byte
}

// UnitValue is one unit entry of a physical quantity descriptor.
type UnitValue struct {
	Val1 uint16
	Val2 uint16
}

// NumberBody is the payload of numeric descriptors, including enums and
// physical units.
type NumberBody struct {
	EnumValues []EnumValue
	UnitValues []UnitValue
	Prop1      uint8
}

func (NumberBody) clientList() []Client { return nil }

// IsEnum reports whether the full type carries enum value labels.
func IsEnum(ft FullType) bool {
	switch ft {
	case UnitUInt8, UnitUInt16, UnitUInt32:
		return true
	}
	return false
}

// IsPhys reports whether the full type carries physical unit entries.
func IsPhys(ft FullType) bool {
	switch ft {
	case UnitFloat32, UnitFloat64, UnitFloatExt,
		UnitComplex64, UnitComplex128, UnitComplexExt:
		return true
	}
	return false
}

// BlobBody is the payload of string, path, picture and similar
// descriptors: a single size property, normally 0xFFFFFFFF.
type BlobBody struct {
	Prop1 uint32
}

func (BlobBody) clientList() []Client { return nil }

// TagBody is the payload of tag descriptors.
type TagBody struct {
	Prop1   uint32
	TagType uint16
	Variant *Variant
	Ident   []byte
}

func (TagBody) clientList() []Client { return nil }

// Tag type of user defined tags; those carry an extra ident string.
const TagTypeUserDefined uint16 = 5

// ArrayBody is the payload of array descriptors: dimensions plus a single
// element type.
type ArrayBody struct {
	Dimensions []Dimension
	Clients    []Client
}

func (b ArrayBody) clientList() []Client { return b.Clients }

// ClusterBody is the payload of cluster descriptors.
type ClusterBody struct {
	Clients []Client
}

func (b ClusterBody) clientList() []Client { return b.Clients }

// MeasureDataBody is the payload of measure data descriptors; the flavor
// picks the concrete waveform or timestamp layout.
type MeasureDataBody struct {
	Flavor uint16
}

func (MeasureDataBody) clientList() []Client { return nil }

// FixedPointRange is one of the three range entries of a fixed point
// descriptor.
type FixedPointRange struct {
	Prop1 uint16
	Prop2 uint16
	Prop3 int32
	Value float64
}

// FixedPointBody is the payload of fixed point descriptors.
type FixedPointBody struct {
	DataVersion    uint8
	RangeFormat    uint8
	DataEncoding   uint8
	DataEndianness uint8
	DataUnit       uint8
	AllocOv        uint8
	LeftovFlags    uint8
	Field1E        uint16
	Field20        uint32
	Ranges         [3]FixedPointRange
}

func (FixedPointBody) clientList() []Client { return nil }

// HasExtendedRanges reports whether range entries carry the three extra
// properties in front of the float value.
func (b *FixedPointBody) HasExtendedRanges() bool {
	return b.RangeFormat == 1 && (b.Field1E > 0x40 || b.DataVersion > 0)
}

// BlockSizeBody is the payload of plain data block descriptors.
type BlockSizeBody struct {
	BlkSize uint32
}

func (BlockSizeBody) clientList() []Client { return nil }

// AlignedBlockBody is the payload of aligned block descriptors: a size
// plus the contained type.
type AlignedBlockBody struct {
	BlkSize uint32
	Clients []Client
}

func (b AlignedBlockBody) clientList() []Client { return b.Clients }

// RepeatedBlockBody is the payload of repeated block descriptors.
type RepeatedBlockBody struct {
	NumRepeats uint32
	Clients    []Client
}

func (b RepeatedBlockBody) clientList() []Client { return b.Clients }

// SingleContainerBody is the payload of descriptors wrapping exactly one
// other type: type blocks, void blocks, alignment markers and typed
// pointers.
type SingleContainerBody struct {
	Clients []Client
}

func (b SingleContainerBody) clientList() []Client { return b.Clients }

// FunctionBody is the payload of function descriptors, the connector pane
// interface of a VI.
type FunctionBody struct {
	Clients   []Client
	FFlags    uint16
	Pattern   uint16
	HasThrall uint16
	Field6    uint32
	Field7    uint32
}

func (b FunctionBody) clientList() []Client { return b.Clients }

// Function flag bits that change the wire layout.
const (
	funcFlagHasFields    uint16 = 0x0800
	funcFlagExtraClient  uint16 = 0x8000
)

// TypeDefBody is the payload of type definition descriptors. The defined
// type is stored inline as a nested descriptor.
type TypeDefBody struct {
	Flag1   uint32
	Names   [][]byte
	Clients []Client
}

func (b TypeDefBody) clientList() []Client { return b.Clients }

// RefBody is the payload of refnum descriptors.
type RefBody struct {
	RefKind  RefType
	Clients  []Client
	CtlFlags uint32
	ValFlags uint8
	Tmp1     uint16
	// EventFields keeps the three unknown words stored before each client
	// of an event registration refnum, in client order.
	EventFields [][3]uint16
}

func (b RefBody) clientList() []Client { return b.Clients }

// List is a decoded VCTP block: the flat descriptor table plus the type
// map that follows it.
type List struct {
	Types []*Type
	// TypeMap holds flat indices of the top level types, in the order the
	// container listed them.
	TypeMap []uint32

	Version lvver.Version
}

// At resolves a flat index, or nil when out of range.
func (l *List) At(idx int32) *Type {
	if idx < 0 || int(idx) >= len(l.Types) {
		return nil
	}
	return l.Types[idx]
}

// Resolve maps a client reference to its descriptor, following inline
// nesting.
func (l *List) Resolve(c Client) *Type {
	if c.Index == NestedIndex {
		return c.Nested
	}
	return l.At(c.Index)
}

// TypesOfKind lists flat descriptors with the given full type, keeping
// flat order.
func (l *List) TypesOfKind(ft FullType) []*Type {
	var out []*Type
	for _, t := range l.Types {
		if t.Full == ft {
			out = append(out, t)
		}
	}
	return out
}

// Warning records a recoverable oddity found while decoding descriptors.
type Warning struct {
	TypeIndex int32
	Message   string
}

func (w Warning) String() string {
	if w.TypeIndex >= 0 {
		return fmt.Sprintf("type %d: %s", w.TypeIndex, w.Message)
	}
	return w.Message
}
