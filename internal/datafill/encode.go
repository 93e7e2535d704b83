package datafill

import (
	"fmt"
	"math"

	"github.com/mefistotelis/lvrsrc-go/internal/lvver"
	"github.com/mefistotelis/lvrsrc-go/internal/stream"
)

// Encoder writes default values back in wire form. It mirrors Decoder;
// the version decides value widths the same way in both directions.
type Encoder struct {
	Version lvver.Version
}

// Encode appends the wire form of one fill to the writer.
func (e *Encoder) Encode(w *stream.Writer, f *Fill) error {
	switch v := f.Value.(type) {
	case Void, None:
		return nil
	case Int:
		return e.encodeInt(w, v)
	case Float:
		return e.encodeFloat(w, v)
	case FloatExt:
		for _, raw := range v.Raw {
			w.WriteBytes(raw)
		}
		return nil
	case Bool:
		if v.Size == 2 {
			w.WriteU16(v.Val)
		} else {
			w.WriteU8(uint8(v.Val))
		}
		return nil
	case Str:
		w.WriteU32(uint32(len(v.Data)))
		w.WriteBytes(v.Data)
		return nil
	case Path:
		w.WriteBytes(v.Raw)
		return nil
	case Scalar32:
		w.WriteU32(v.Val)
		return nil
	case Array:
		for _, dim := range v.Dimensions {
			w.WriteU32(dim)
		}
		return e.encodeAll(w, v.Elems)
	case Cluster:
		return e.encodeAll(w, v.Elems)
	case VariantVal:
		w.WriteBytes(v.Variant.Encode(e.Version))
		return nil
	case ComplexFixedPt:
		for i := 0; i < 2; i++ {
			w.WriteU64(v.Vals[i])
			if v.HasFlags {
				w.WriteU8(v.Flags[i])
			}
		}
		return nil
	case FixedPoint:
		w.WriteU64(v.Val)
		if v.HasFlag {
			w.WriteU8(v.Flag)
		}
		return nil
	case Repeated:
		return e.encodeAll(w, v.Elems)
	case RefValue:
		w.WriteU32(v.Val)
		return nil
	case RefTag:
		return e.encodeRefTag(w, v)
	case RefClassInst:
		return e.encodeRefClassInst(w, v)
	case Nested:
		return e.encodeAll(w, v.Elems)
	}
	return fmt.Errorf("datafill: no encoding for %T: %w", f.Value, ErrUnsupportedFill)
}

func (e *Encoder) encodeAll(w *stream.Writer, fills []*Fill) error {
	for _, f := range fills {
		if err := e.Encode(w, f); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeInt(w *stream.Writer, v Int) error {
	uval := uint64(v.Val)
	switch v.Size {
	case 1:
		w.WriteU8(uint8(uval))
	case 2:
		w.WriteU16(uint16(uval))
	case 4:
		w.WriteU32(uint32(uval))
	case 8:
		w.WriteU64(uval)
	default:
		return fmt.Errorf("datafill: integer of %d bytes: %w", v.Size, ErrUnsupportedFill)
	}
	return nil
}

func (e *Encoder) encodeFloat(w *stream.Writer, v Float) error {
	for _, val := range v.Vals {
		if v.Size == 4 {
			w.WriteU32(math.Float32bits(float32(val)))
		} else {
			w.WriteFloat64(val)
		}
	}
	return nil
}

func (e *Encoder) encodeRefTag(w *stream.Writer, v RefTag) error {
	w.WriteU32(uint32(len(v.Tag)))
	w.WriteBytes(v.Tag)
	if e.Version.AtLeastStage(12, 0, 0, lvver.StageAlpha) && e.Version.Before(12, 0, 1) {
		w.WriteU8(0)
	}
	if v.HasUsrDef {
		w.WriteU32(uint32(len(v.UsrDef1)))
		w.WriteBytes(v.UsrDef1)
		w.WriteU32(uint32(len(v.UsrDef2)))
		w.WriteBytes(v.UsrDef2)
		w.WriteU32(v.UsrDef3)
		w.WriteU32(uint32(len(v.UsrDef4)))
		w.WriteBytes(v.UsrDef4)
	}
	return nil
}

func (e *Encoder) encodeRefClassInst(w *stream.Writer, v RefClassInst) error {
	w.WriteU32(uint32(len(v.Levels)))
	w.WritePStr(v.LibName)
	w.Pad(4)
	for _, level := range v.Levels {
		w.WriteU32(uint32(len(level)))
		w.WriteBytes(level)
	}
	return nil
}
