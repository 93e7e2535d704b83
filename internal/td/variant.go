package td

import (
	"github.com/mefistotelis/lvrsrc-go/internal/lvver"
	"github.com/mefistotelis/lvrsrc-go/internal/stream"
)

// Variant is an LVVariant object embedded in descriptor or default data.
// It carries its own version word and a list of inline descriptors.
type Variant struct {
	VarVersion  uint32
	Types       []*Type
	HasVarItem2 uint16
	VarItem2    []byte
}

// ParseVariant decodes a variant object at the reader position,
// advancing the reader past it. Used for variants embedded in default
// data as well as descriptor payloads.
func ParseVariant(br *stream.Reader, ver lvver.Version, limit int) (*Variant, []Warning, error) {
	p := &parser{ver: ver, limit: limit}
	v, err := p.parseVariant(br, NestedIndex)
	if err != nil {
		return nil, p.warns, err
	}
	return v, p.warns, nil
}

// Encode serializes the variant in wire form.
func (v *Variant) Encode(ver lvver.Version) []byte {
	w := stream.NewWriter()
	v.encode(w, ver)
	return w.Bytes()
}

// parseVariant decodes a variant object at the reader position.
func (p *parser) parseVariant(br *stream.Reader, index int32) (*Variant, error) {
	var v Variant
	var err error
	if v.VarVersion, err = br.ReadU32(); err != nil {
		return nil, err
	}
	count, err := br.ReadU32()
	if err != nil {
		return nil, err
	}
	if int(count) > p.limit {
		p.warnf(index, "variant has %d inline types, truncating to %d", count, p.limit)
		count = uint32(p.limit)
	}
	data := br.Data()
	pos := br.Offset()
	for i := uint32(0); i < count; i++ {
		t, consumed, err := p.parseChunk(data, pos, NestedIndex)
		if err != nil {
			return nil, err
		}
		v.Types = append(v.Types, t)
		pos += consumed
		if consumed < 4 {
			p.warnf(index, "variant inline type %d too small for remaining clients", i)
			break
		}
	}
	if err := br.SetOffset(pos); err != nil {
		return nil, err
	}
	if v.HasVarItem2, err = br.ReadU16(); err != nil {
		return nil, err
	}
	if v.HasVarItem2 != 0 {
		if v.VarItem2, err = br.ReadBytes(6); err != nil {
			return nil, err
		}
	}
	return &v, nil
}

// encode writes the variant back in wire form.
func (v *Variant) encode(w *stream.Writer, ver lvver.Version) {
	w.WriteU32(v.VarVersion)
	w.WriteU32(uint32(len(v.Types)))
	for _, t := range v.Types {
		w.WriteBytes(t.EncodeVersion(ver))
	}
	w.WriteU16(v.HasVarItem2)
	if v.HasVarItem2 != 0 {
		w.WriteBytes(v.VarItem2)
	}
}
