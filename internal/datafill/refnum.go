package datafill

import (
	"fmt"

	"github.com/mefistotelis/lvrsrc-go/internal/lvver"
	"github.com/mefistotelis/lvrsrc-go/internal/stream"
	"github.com/mefistotelis/lvrsrc-go/internal/td"
)

// isTagRefnum reports whether a refnum kind stores its value as a tag
// string rather than a plain word.
func isTagRefnum(kind td.RefType) bool {
	switch kind {
	case td.RefIVI, td.RefVisa, td.RefUsrDefTagFlt, td.RefUsrDefndTag:
		return true
	}
	return false
}

func (d *Decoder) decodeRefnum(r *stream.Reader, t *td.Type) (Value, error) {
	body, ok := t.Body.(*td.RefBody)
	if !ok {
		return nil, fmt.Errorf("refnum descriptor without payload: %w", ErrUnsupportedFill)
	}
	switch body.RefKind {
	case td.RefIVI, td.RefVisa, td.RefImaq:
		// IO refnums store a tag from LabVIEW 6 on, except IMAQ which
		// keeps the plain word.
		if d.Version.AtLeast(6, 0, 0) && isTagRefnum(body.RefKind) {
			return d.decodeStr(r)
		}
		return d.decodeRefWord(r)
	case td.RefUsrDefTagFlt, td.RefUsrDefndTag:
		return d.decodeRefTag(r, body.RefKind)
	case td.RefUsrDefined:
		return d.decodeRefWord(r)
	case td.RefUDClassInst:
		return d.decodeRefClassInst(r, t)
	}
	return d.decodeRefWord(r)
}

func (d *Decoder) decodeRefWord(r *stream.Reader) (Value, error) {
	v, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return RefValue{Val: v}, nil
}

func (d *Decoder) decodeRefTag(r *stream.Reader, kind td.RefType) (Value, error) {
	var tag RefTag
	length, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if tag.Tag, err = r.ReadBytes(int(length)); err != nil {
		return nil, err
	}
	// One stray byte in files written by LabVIEW 12.0.0 builds.
	if d.Version.AtLeastStage(12, 0, 0, lvver.StageAlpha) && d.Version.Before(12, 0, 1) {
		if err := r.Skip(1); err != nil {
			return nil, err
		}
	}
	if kind == td.RefUsrDefTagFlt {
		tag.HasUsrDef = true
		if tag.UsrDef1, err = readBlob32(r); err != nil {
			return nil, err
		}
		if tag.UsrDef2, err = readBlob32(r); err != nil {
			return nil, err
		}
		if tag.UsrDef3, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if tag.UsrDef4, err = readBlob32(r); err != nil {
			return nil, err
		}
	}
	return tag, nil
}

func (d *Decoder) decodeRefClassInst(r *stream.Reader, t *td.Type) (Value, error) {
	var inst RefClassInst
	numLevels, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if inst.LibName, err = r.ReadPStr(); err != nil {
		return nil, err
	}
	r.Align(4)
	if int(numLevels) > d.Limit {
		return nil, fmt.Errorf("class instance claims %d levels: %w", numLevels, ErrUnboundedRepeatCount)
	}
	for i := uint32(0); i < numLevels; i++ {
		level, err := readBlob32(r)
		if err != nil {
			return nil, err
		}
		inst.Levels = append(inst.Levels, level)
	}
	return inst, nil
}

func readBlob32(r *stream.Reader) ([]byte, error) {
	length, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(int(length))
}
