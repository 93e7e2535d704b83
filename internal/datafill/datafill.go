// Package datafill decodes and encodes default data values, the byte
// sequences in the DFDS block that map onto type descriptors.
package datafill

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mefistotelis/lvrsrc-go/internal/lvver"
	"github.com/mefistotelis/lvrsrc-go/internal/stream"
	"github.com/mefistotelis/lvrsrc-go/internal/td"
)

var (
	// ErrUnboundedRepeatCount is returned when a decoded element count
	// exceeds the configured ceiling.
	ErrUnboundedRepeatCount = errors.New("datafill: unbounded repeat count")

	// ErrUnsupportedFill is returned for type and version combinations
	// with no known value layout.
	ErrUnsupportedFill = errors.New("datafill: unsupported fill")
)

// Warning records a non-fatal finding made while decoding values.
type Warning struct {
	TypeIndex int32
	Message   string
}

func (w Warning) String() string {
	return fmt.Sprintf("type %d: %s", w.TypeIndex, w.Message)
}

// Fill is one decoded default value bound to its descriptor.
type Fill struct {
	Type  *td.Type
	Value Value
}

// Value is the decoded payload of a fill. The concrete type depends on
// the descriptor kind.
type Value interface{ isValue() }

// Void carries no stored bytes.
type Void struct{}

// Int is a big-endian integer of 1, 2, 4 or 8 bytes.
type Int struct {
	Val      int64
	Size     int
	Unsigned bool
}

// Float is one or two (for complex types) 4- or 8-byte IEEE values.
type Float struct {
	Vals []float64
	Size int
}

// FloatExt is one or two 128-bit extended floats, kept raw.
type FloatExt struct {
	Raw [][]byte
}

// Bool is a 1- or 2-byte flag word.
type Bool struct {
	Val  uint16
	Size int
}

// Str is a 4-byte length followed by that many bytes. Used for string,
// picture and tag values.
type Str struct {
	Data []byte
}

// Path is a flattened path object: a 4-byte class ident, a 4-byte
// content length, and the content. Raw holds all of it.
type Path struct {
	Ident rsrcIdent
	Raw   []byte
}

type rsrcIdent [4]byte

func (id rsrcIdent) String() string { return string(id[:]) }

// Scalar32 is a single u32, used by cstring, pascal string pointers,
// array data pointers and block values.
type Scalar32 struct {
	Val uint32
}

// Array is the dimension sizes followed by every element in order.
type Array struct {
	Dimensions []uint32
	Elems      []*Fill
}

// Cluster is the element values of a cluster descriptor in order.
type Cluster struct {
	Elems []*Fill
}

// VariantVal wraps a variant object stored as a value.
type VariantVal struct {
	Variant *td.Variant
}

// ComplexFixedPt is the two 8-byte words of a complex fixed point
// value, each optionally followed by an overflow flag byte.
type ComplexFixedPt struct {
	Vals     [2]uint64
	Flags    [2]uint8
	HasFlags bool
}

// FixedPoint is one 8-byte fixed point word, optionally followed by an
// overflow flag byte when the descriptor allocates one.
type FixedPoint struct {
	Val     uint64
	Flag    uint8
	HasFlag bool
}

// Repeated is the element values of a repeated block.
type Repeated struct {
	Elems []*Fill
}

// RefValue is the plain 4-byte value most refnum kinds store.
type RefValue struct {
	Val uint32
}

// RefTag is a tag refnum value: a length-prefixed tag string, plus
// extra user-defined fields for the flavored variety.
type RefTag struct {
	Tag       []byte
	HasUsrDef bool
	UsrDef1   []byte
	UsrDef2   []byte
	UsrDef3   uint32
	UsrDef4   []byte
}

// RefClassInst is a class instance refnum value: a library name and
// per-level version strings.
type RefClassInst struct {
	LibName []byte
	Levels  [][]byte
}

// Nested wraps the value of an inline client, used by type definitions.
type Nested struct {
	Elems []*Fill
}

// None marks a type that stores no default value in this file version.
type None struct{}

func (Void) isValue()           {}
func (Int) isValue()            {}
func (Float) isValue()          {}
func (FloatExt) isValue()       {}
func (Bool) isValue()           {}
func (Str) isValue()            {}
func (Path) isValue()           {}
func (Scalar32) isValue()       {}
func (Array) isValue()          {}
func (Cluster) isValue()        {}
func (VariantVal) isValue()     {}
func (ComplexFixedPt) isValue() {}
func (FixedPoint) isValue()     {}
func (Repeated) isValue()       {}
func (RefValue) isValue()       {}
func (RefTag) isValue()         {}
func (RefClassInst) isValue()   {}
func (Nested) isValue()         {}
func (None) isValue()           {}

// Decoder reads default values for descriptors out of one data stream.
type Decoder struct {
	List    *td.List
	Version lvver.Version
	TMFlags uint16
	Limit   int
	warns   []Warning
}

// NewDecoder binds a decoder to a descriptor list. tmFlags carries the
// type map flags that gate special cluster handling; limit caps every
// decoded repeat count.
func NewDecoder(list *td.List, ver lvver.Version, tmFlags uint16, limit int) *Decoder {
	return &Decoder{List: list, Version: ver, TMFlags: tmFlags, Limit: limit}
}

// Warnings lists findings recorded since the decoder was created.
func (d *Decoder) Warnings() []Warning {
	return d.warns
}

func (d *Decoder) warnf(t *td.Type, format string, args ...any) {
	idx := int32(-1)
	if t != nil {
		idx = t.Index
	}
	d.warns = append(d.warns, Warning{TypeIndex: idx, Message: fmt.Sprintf(format, args...)})
}

// Decode reads the default value for one descriptor at the reader
// position.
func (d *Decoder) Decode(r *stream.Reader, t *td.Type) (*Fill, error) {
	v, err := d.decodeValue(r, t)
	if err != nil {
		return nil, fmt.Errorf("datafill: type %d (%v): %w", t.Index, t.Full, err)
	}
	return &Fill{Type: t, Value: v}, nil
}

func (d *Decoder) decodeValue(r *stream.Reader, t *td.Type) (Value, error) {
	switch t.Full {
	case td.Void, td.VoidBlock, td.AlignmntMarker:
		return Void{}, nil
	case td.NumInt8, td.NumInt16, td.NumInt32, td.NumInt64:
		return d.decodeInt(r, t, true)
	case td.NumUInt8, td.NumUInt16, td.NumUInt32, td.NumUInt64,
		td.UnitUInt8, td.UnitUInt16, td.UnitUInt32:
		return d.decodeInt(r, t, false)
	case td.NumFloat32, td.UnitFloat32:
		return d.decodeFloat(r, 4, 1)
	case td.NumFloat64, td.UnitFloat64:
		return d.decodeFloat(r, 8, 1)
	case td.NumComplex64, td.UnitComplex64:
		return d.decodeFloat(r, 4, 2)
	case td.NumComplex128, td.UnitComplex128:
		return d.decodeFloat(r, 8, 2)
	case td.NumFloatExt, td.UnitFloatExt:
		return d.decodeFloatExt(r, 1)
	case td.NumComplexExt, td.UnitComplexExt:
		return d.decodeFloatExt(r, 2)
	case td.BooleanU16:
		return d.decodeBool(r, 2)
	case td.Boolean:
		size := 1
		if !d.Version.AtLeast(4, 5, 0) {
			size = 2
		}
		return d.decodeBool(r, size)
	case td.String, td.Picture, td.Tag:
		return d.decodeStr(r)
	case td.Path:
		return d.decodePath(r)
	case td.CString, td.PasString, td.ArrayDataPtr, td.Block, td.AlignedBlock, td.PtrTo:
		return d.decodeScalar32(r)
	case td.Array, td.ArrayInterfc:
		return d.decodeArray(r, t)
	case td.Cluster:
		return d.decodeCluster(r, t)
	case td.LVVariant:
		return d.decodeVariant(r)
	case td.MeasureData:
		return nil, fmt.Errorf("measure data value: %w", ErrUnsupportedFill)
	case td.ComplexFixedPt:
		return d.decodeComplexFixedPt(r, t)
	case td.FixedPoint:
		return d.decodeFixedPoint(r, t)
	case td.RepeatedBlock:
		return d.decodeRepeated(r, t)
	case td.Refnum:
		return d.decodeRefnum(r, t)
	case td.Ptr:
		if d.Version.Before(8, 6, 0) {
			return d.decodeScalar32(r)
		}
		return None{}, nil
	case td.TypeBlock, td.TypeDef:
		return d.decodeNested(r, t)
	case td.ExtData:
		d.warnf(t, "default value of %v is not implemented", t.Full)
		return None{}, nil
	case td.Function, td.SubArray:
		d.warnf(t, "default value requested for %v, this should never happen", t.Full)
		return None{}, nil
	case td.SubString, td.PolyVI:
		return None{}, nil
	}
	return None{}, nil
}

func (d *Decoder) decodeInt(r *stream.Reader, t *td.Type, signed bool) (Value, error) {
	var size int
	switch t.Full {
	case td.NumInt8, td.NumUInt8, td.UnitUInt8:
		size = 1
	case td.NumInt16, td.NumUInt16, td.UnitUInt16:
		size = 2
	case td.NumInt32, td.NumUInt32, td.UnitUInt32:
		size = 4
	case td.NumInt64, td.NumUInt64:
		size = 8
	}
	raw, err := r.ReadBytesRef(size)
	if err != nil {
		return nil, err
	}
	var uval uint64
	for _, b := range raw {
		uval = uval<<8 | uint64(b)
	}
	val := int64(uval)
	if signed && size < 8 {
		shift := uint(64 - 8*size)
		val = int64(uval<<shift) >> shift
	}
	return Int{Val: val, Size: size, Unsigned: !signed}, nil
}

func (d *Decoder) decodeFloat(r *stream.Reader, size, count int) (Value, error) {
	vals := make([]float64, count)
	for i := range vals {
		var err error
		if size == 4 {
			var f float32
			if f, err = r.ReadFloat32(); err != nil {
				return nil, err
			}
			vals[i] = float64(f)
		} else {
			if vals[i], err = r.ReadFloat64(); err != nil {
				return nil, err
			}
		}
	}
	return Float{Vals: vals, Size: size}, nil
}

func (d *Decoder) decodeFloatExt(r *stream.Reader, count int) (Value, error) {
	raw := make([][]byte, count)
	for i := range raw {
		b, err := r.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		raw[i] = b
	}
	return FloatExt{Raw: raw}, nil
}

func (d *Decoder) decodeBool(r *stream.Reader, size int) (Value, error) {
	var val uint16
	if size == 2 {
		v, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		val = v
	} else {
		v, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		val = uint16(v)
	}
	return Bool{Val: val, Size: size}, nil
}

func (d *Decoder) decodeStr(r *stream.Reader) (Value, error) {
	length, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	data, err := r.ReadBytes(int(length))
	if err != nil {
		return nil, err
	}
	return Str{Data: data}, nil
}

var pathIdents = [][]byte{[]byte("PTH0"), []byte("PTH1"), []byte("PTH2")}

func (d *Decoder) decodePath(r *stream.Reader) (Value, error) {
	start := r.Offset()
	ident, err := r.ReadBytesRef(4)
	if err != nil {
		return nil, err
	}
	known := false
	for _, id := range pathIdents {
		if bytes.Equal(ident, id) {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("path data of unrecognized class %q: %w", ident, ErrUnsupportedFill)
	}
	length, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if _, err := r.ReadBytesRef(int(length)); err != nil {
		return nil, err
	}
	end := r.Offset()
	if err := r.SetOffset(start); err != nil {
		return nil, err
	}
	raw, err := r.ReadBytes(end - start)
	if err != nil {
		return nil, err
	}
	var p Path
	copy(p.Ident[:], ident)
	p.Raw = raw
	return p, nil
}

func (d *Decoder) decodeScalar32(r *stream.Reader) (Value, error) {
	v, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return Scalar32{Val: v}, nil
}

func (d *Decoder) decodeArray(r *stream.Reader, t *td.Type) (Value, error) {
	body, ok := t.Body.(*td.ArrayBody)
	if !ok || len(body.Clients) == 0 {
		return nil, fmt.Errorf("array descriptor has no element type: %w", ErrUnsupportedFill)
	}
	var arr Array
	totItems := uint64(1)
	for range body.Dimensions {
		dim, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		arr.Dimensions = append(arr.Dimensions, dim)
		totItems *= uint64(dim & 0x7FFFFFFF)
	}
	if totItems > uint64(d.Limit)*uint64(len(body.Dimensions)) {
		return nil, fmt.Errorf("array claims %d items: %w", totItems, ErrUnboundedRepeatCount)
	}
	sub := d.List.Resolve(body.Clients[0])
	if sub == nil {
		return nil, fmt.Errorf("array element type %d unresolved: %w", body.Clients[0].Index, ErrUnsupportedFill)
	}
	for i := uint64(0); i < totItems; i++ {
		f, err := d.Decode(r, sub)
		if err != nil {
			return nil, err
		}
		arr.Elems = append(arr.Elems, f)
	}
	return arr, nil
}

func (d *Decoder) decodeCluster(r *stream.Reader, t *td.Type) (Value, error) {
	var c Cluster
	for _, cli := range t.Clients() {
		sub := d.List.Resolve(cli)
		if sub == nil {
			return nil, fmt.Errorf("cluster element type %d unresolved: %w", cli.Index, ErrUnsupportedFill)
		}
		f, err := d.Decode(r, sub)
		if err != nil {
			return nil, err
		}
		c.Elems = append(c.Elems, f)
	}
	return c, nil
}

func (d *Decoder) decodeVariant(r *stream.Reader) (Value, error) {
	if !d.Version.AtLeastStage(6, 0, 0, lvver.StageAlpha) {
		return nil, fmt.Errorf("OLE variant value: %w", ErrUnsupportedFill)
	}
	v, warns, err := td.ParseVariant(r, d.Version, d.Limit)
	if err != nil {
		return nil, err
	}
	for _, w := range warns {
		d.warns = append(d.warns, Warning{TypeIndex: w.TypeIndex, Message: w.Message})
	}
	return VariantVal{Variant: v}, nil
}

func (d *Decoder) decodeComplexFixedPt(r *stream.Reader, t *td.Type) (Value, error) {
	body, _ := t.Body.(*td.FixedPointBody)
	var v ComplexFixedPt
	v.HasFlags = body != nil && body.AllocOv != 0
	for i := 0; i < 2; i++ {
		val, err := r.ReadU64()
		if err != nil {
			return nil, err
		}
		v.Vals[i] = val
		if v.HasFlags {
			if v.Flags[i], err = r.ReadU8(); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}

func (d *Decoder) decodeFixedPoint(r *stream.Reader, t *td.Type) (Value, error) {
	body, _ := t.Body.(*td.FixedPointBody)
	var v FixedPoint
	val, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	v.Val = val
	if body != nil && body.AllocOv != 0 {
		v.HasFlag = true
		if v.Flag, err = r.ReadU8(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (d *Decoder) decodeRepeated(r *stream.Reader, t *td.Type) (Value, error) {
	body, ok := t.Body.(*td.RepeatedBlockBody)
	if !ok || len(body.Clients) == 0 {
		return nil, fmt.Errorf("repeated block has no element type: %w", ErrUnsupportedFill)
	}
	if int(body.NumRepeats) > d.Limit {
		return nil, fmt.Errorf("repeated block claims %d items: %w", body.NumRepeats, ErrUnboundedRepeatCount)
	}
	sub := d.List.Resolve(body.Clients[0])
	if sub == nil {
		return nil, fmt.Errorf("repeated element type %d unresolved: %w", body.Clients[0].Index, ErrUnsupportedFill)
	}
	var rep Repeated
	for i := uint32(0); i < body.NumRepeats; i++ {
		f, err := d.Decode(r, sub)
		if err != nil {
			return nil, err
		}
		rep.Elems = append(rep.Elems, f)
	}
	return rep, nil
}

func (d *Decoder) decodeNested(r *stream.Reader, t *td.Type) (Value, error) {
	var n Nested
	for _, cli := range t.Clients() {
		if cli.Nested == nil {
			continue
		}
		f, err := d.Decode(r, cli.Nested)
		if err != nil {
			return nil, err
		}
		n.Elems = append(n.Elems, f)
	}
	return n, nil
}
