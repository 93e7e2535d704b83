package td

import (
	"bytes"

	"github.com/mefistotelis/lvrsrc-go/internal/lvver"
	"github.com/mefistotelis/lvrsrc-go/internal/stream"
)

// Encode serializes the whole descriptor table back to VCTP payload form.
func (l *List) Encode() []byte {
	w := stream.NewWriter()
	w.WriteU32(uint32(len(l.Types)))
	for _, t := range l.Types {
		w.WriteBytes(t.EncodeVersion(l.Version))
	}
	w.WriteU16(uint16(len(l.TypeMap)))
	for _, v := range l.TypeMap {
		w.WriteU16(uint16(v))
	}
	return w.Bytes()
}

// Encode serializes a descriptor chunk assuming a current format version.
func (t *Type) Encode() []byte {
	return t.EncodeVersion(lvver.Version{Major: 17, Stage: lvver.StageRelease})
}

// EncodeVersion serializes a descriptor chunk: body, optional label, and
// the common header in front. The stored length covers the whole chunk.
func (t *Type) EncodeVersion(ver lvver.Version) []byte {
	body := stream.NewWriter()
	t.encodeBody(body, ver)
	t.encodeLabel(body)

	w := stream.NewWriter()
	w.WriteU2p2(uint32(body.Len() + 4))
	w.WriteU8(t.flagsForEncode())
	w.WriteU8(uint8(t.Full))
	w.WriteBytes(body.Bytes())
	return w.Bytes()
}

// encodeNested serializes a descriptor embedded in a type definition; the
// recorded length of such a chunk is 4 bytes larger than the real one.
func (t *Type) encodeNested(ver lvver.Version) []byte {
	body := stream.NewWriter()
	t.encodeBody(body, ver)
	t.encodeLabel(body)

	w := stream.NewWriter()
	w.WriteU2p2(uint32(body.Len() + 8))
	w.WriteU8(t.flagsForEncode())
	w.WriteU8(uint8(t.Full))
	w.WriteBytes(body.Bytes())
	return w.Bytes()
}

func (t *Type) flagsForEncode() uint8 {
	flags := t.Flags
	if t.Label != nil {
		flags |= FlagHasLabel
	} else {
		flags &^= FlagHasLabel
	}
	return flags
}

func (t *Type) encodeLabel(w *stream.Writer) {
	if t.Label == nil {
		return
	}
	mark := w.Len()
	w.WritePStr(t.Label)
	if (w.Len()-mark)%2 != 0 {
		w.WriteU8(0)
	}
}

func (t *Type) encodeBody(w *stream.Writer, ver lvver.Version) {
	switch body := t.Body.(type) {
	case nil, EmptyBody:
		// nothing stored
	case UnknownBody:
		w.WriteBytes(body.Data)
	case *NumberBody:
		encodeNumber(t.Full, body, w)
	case *BlobBody:
		w.WriteU32(body.Prop1)
	case *TagBody:
		encodeTag(body, w, ver)
	case *ClusterBody:
		w.WriteU16(uint16(len(body.Clients)))
		for _, cli := range body.Clients {
			w.WriteU16(uint16(cli.Index))
		}
	case *MeasureDataBody:
		w.WriteU16(body.Flavor)
	case *FixedPointBody:
		encodeFixedPoint(body, w)
	case *BlockSizeBody:
		w.WriteU32(body.BlkSize)
	case *AlignedBlockBody:
		w.WriteU32(body.BlkSize)
		for _, cli := range body.Clients {
			w.WriteU2p2(uint32(cli.Index))
			break
		}
	case *RepeatedBlockBody:
		w.WriteU32(body.NumRepeats)
		for _, cli := range body.Clients {
			w.WriteU2p2(uint32(cli.Index))
			break
		}
	case *SingleContainerBody:
		for _, cli := range body.Clients {
			w.WriteU2p2(uint32(cli.Index))
			break
		}
	case *ArrayBody:
		w.WriteU16(uint16(len(body.Dimensions)))
		for _, dim := range body.Dimensions {
			w.WriteU32(uint32(dim.Flags)<<24 | dim.FixedSize&0x00FFFFFF)
		}
		for _, cli := range body.Clients {
			w.WriteU16(uint16(cli.Index))
		}
	case *FunctionBody:
		encodeFunction(body, w, ver)
	case *TypeDefBody:
		encodeTypeDef(body, w, ver)
	case *RefBody:
		w.WriteU16(uint16(body.RefKind))
		encodeRefPayload(body, w)
	}
}

func encodeNumber(ft FullType, body *NumberBody, w *stream.Writer) {
	if IsEnum(ft) {
		mark := w.Len()
		w.WriteU16(uint16(len(body.EnumValues)))
		for _, v := range body.EnumValues {
			w.WritePStr(v.Label)
		}
		if (w.Len()-mark)%2 != 0 {
			w.WriteU8(0)
		}
	}
	if IsPhys(ft) {
		w.WriteU16(uint16(len(body.UnitValues)))
		for _, v := range body.UnitValues {
			w.WriteU16(v.Val1)
			w.WriteU16(v.Val2)
		}
	}
	w.WriteU8(body.Prop1)
}

func encodeTag(body *TagBody, w *stream.Writer, ver lvver.Version) {
	w.WriteU32(body.Prop1)
	w.WriteU16(body.TagType)
	if ver.AtLeast(8, 2, 1) && (ver.Before(8, 2, 2) || ver.AtLeast(8, 5, 1)) {
		if body.Variant != nil {
			body.Variant.encode(w, ver)
		}
	}
	if body.TagType == TagTypeUserDefined && ver.AtLeast(8, 1, 1) {
		w.WritePStr(body.Ident)
		if (len(body.Ident)+1)%2 != 0 {
			w.WriteU8(0)
		}
	}
}

func encodeFixedPoint(body *FixedPointBody, w *stream.Writer) {
	field1C := uint16(body.DataVersion&0x0F) |
		uint16(body.RangeFormat&0x03)<<4 |
		uint16(body.DataEncoding&0x01)<<6 |
		uint16(body.DataEndianness&0x01)<<7 |
		uint16(body.DataUnit&0x07)<<8 |
		uint16(body.AllocOv&0x01)<<11 |
		uint16(body.LeftovFlags&0xF6)<<8
	w.WriteU16(field1C)
	w.WriteU16(body.Field1E)
	w.WriteU32(body.Field20)
	for i := range body.Ranges {
		rng := &body.Ranges[i]
		if body.HasExtendedRanges() {
			w.WriteU16(rng.Prop1)
			w.WriteU16(rng.Prop2)
			w.WriteI32(rng.Prop3)
		}
		if body.RangeFormat <= 1 {
			w.WriteFloat64(rng.Value)
		}
	}
}

func encodeFunction(body *FunctionBody, w *stream.Writer, ver lvver.Version) {
	clients := body.Clients
	var extra *Client
	if body.FFlags&funcFlagExtraClient != 0 && len(clients) > 0 {
		extra = &clients[len(clients)-1]
		clients = clients[:len(clients)-1]
	}

	w.WriteU2p2(uint32(len(clients)))
	for i := range clients {
		w.WriteU2p2(uint32(clients[i].Index))
	}
	w.WriteU16(body.FFlags)
	w.WriteU16(body.Pattern)

	if ver.AtLeastStage(10, 0, 0, lvver.StageAlpha) {
		for i := range clients {
			w.WriteU32(clients[i].Flags)
		}
	} else {
		for i := range clients {
			w.WriteU16(uint16(clients[i].Flags))
		}
	}

	if ver.AtLeastStage(8, 0, 0, lvver.StageBeta) {
		w.WriteU16(body.HasThrall)
		if body.HasThrall != 0 {
			shifted := ver.AtLeastStage(8, 2, 0, lvver.StageBeta)
			for i := range clients {
				for _, k := range clients[i].Thrall {
					if shifted {
						k++
					}
					w.WriteU8(k)
				}
				w.WriteU8(0)
			}
		}
	}

	if body.FFlags&funcFlagHasFields != 0 {
		w.WriteU32(body.Field6)
		w.WriteU32(body.Field7)
	}
	if extra != nil {
		w.WriteU2p2(uint32(extra.Index))
	}
}

func encodeTypeDef(body *TypeDefBody, w *stream.Writer, ver lvver.Version) {
	w.WriteU32(body.Flag1)
	if ver.AtLeastStage(8, 0, 0, lvver.StageRelease) {
		w.WriteU32(uint32(len(body.Names)))
		for _, name := range body.Names {
			w.WritePStr(name)
		}
	} else {
		joined := bytes.Join(body.Names, []byte("/"))
		mark := w.Len()
		w.WritePStr(joined)
		if (w.Len()-mark)%2 != 0 {
			w.WriteU8(0)
		}
	}
	for _, cli := range body.Clients {
		if cli.Nested != nil {
			w.WriteBytes(cli.Nested.encodeNested(ver))
		}
		break
	}
}
