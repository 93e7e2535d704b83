package td

import (
	"fmt"

	"github.com/mefistotelis/lvrsrc-go/internal/lvver"
	"github.com/mefistotelis/lvrsrc-go/internal/stream"
)

// Sanity limits on list counts stored in descriptor chunks.
const (
	MaxClusterClients  = 500
	MaxFunctionClients = 125
	MaxArrayDims       = 64
	MaxMeasureFlavor   = 127
)

// DefaultListLimit caps client and variant counts when the caller does not
// give its own bound.
const DefaultListLimit = 1000

type parser struct {
	ver   lvver.Version
	limit int
	warns []Warning
}

func (p *parser) warnf(index int32, format string, args ...any) {
	p.warns = append(p.warns, Warning{TypeIndex: index, Message: fmt.Sprintf(format, args...)})
}

// ParseList decodes the payload of a VCTP block: a descriptor count, the
// descriptor chunks, and the type map. Recoverable oddities are returned
// as warnings next to the list.
func ParseList(data []byte, ver lvver.Version, limit int) (*List, []Warning, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	p := &parser{ver: ver, limit: limit}

	r := stream.NewReader(data)
	count, err := r.ReadU32()
	if err != nil {
		return nil, nil, fmt.Errorf("type list count: %w", err)
	}
	if int(count) > limit {
		p.warnf(-1, "type list count %d exceeds limit %d, truncating", count, limit)
		count = uint32(limit)
	}

	list := &List{Version: ver, Types: make([]*Type, 0, count)}
	pos := r.Offset()
	for i := uint32(0); i < count; i++ {
		t, consumed, err := p.parseChunk(data, pos, int32(i))
		if err != nil {
			return nil, p.warns, fmt.Errorf("type %d at 0x%x: %w", i, pos, err)
		}
		list.Types = append(list.Types, t)
		pos += consumed
	}

	if err := r.SetOffset(pos); err != nil {
		return nil, p.warns, err
	}
	mapCount, err := r.ReadU2p2()
	if err != nil {
		return nil, p.warns, fmt.Errorf("type map count: %w", err)
	}
	if int(mapCount) > limit {
		p.warnf(-1, "type map count %d exceeds limit %d, truncating", mapCount, limit)
		mapCount = uint32(limit)
	}
	list.TypeMap = make([]uint32, 0, mapCount)
	for i := uint32(0); i < mapCount; i++ {
		v, err := r.ReadU2p2()
		if err != nil {
			return nil, p.warns, fmt.Errorf("type map entry %d: %w", i, err)
		}
		if int(v) >= len(list.Types) {
			p.warnf(-1, "type map entry %d points past descriptor table (%d)", i, v)
		}
		list.TypeMap = append(list.TypeMap, v)
	}

	return list, p.warns, nil
}

// ParseSingle decodes one descriptor chunk, as embedded in type definition
// descriptors and variant data.
func ParseSingle(data []byte, ver lvver.Version, limit int) (*Type, int, []Warning, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	p := &parser{ver: ver, limit: limit}
	t, consumed, err := p.parseChunk(data, 0, NestedIndex)
	return t, consumed, p.warns, err
}

// parseChunk decodes the descriptor chunk starting at pos and returns the
// number of bytes it occupies.
func (p *parser) parseChunk(data []byte, pos int, index int32) (*Type, int, error) {
	r := stream.NewReader(data)
	if err := r.SetOffset(pos); err != nil {
		return nil, 0, err
	}
	chunkLen, err := r.ReadU2p2()
	if err != nil {
		return nil, 0, err
	}
	lenFieldSize := r.Offset() - pos
	flags, err := r.ReadU8()
	if err != nil {
		return nil, 0, err
	}
	ftype, err := r.ReadU8()
	if err != nil {
		return nil, 0, err
	}

	full := FullType(ftype)
	if chunkLen < 4 {
		// A chunk this small cannot hold its own header; treat it as Void
		// but still advance far enough to make progress.
		p.warnf(index, "type 0x%02x chunk size %d too small to be valid", ftype, chunkLen)
		t := &Type{Index: index, Flags: flags, Full: Void, Body: EmptyBody{}}
		return t, 4, nil
	}
	if pos+int(chunkLen) > len(data) {
		return nil, 0, fmt.Errorf("chunk of %d bytes: %w", chunkLen, stream.ErrUnexpectedEOF)
	}
	chunk := data[pos : pos+int(chunkLen)]

	t := &Type{
		Index: index,
		Flags: flags,
		Full:  full,
		Raw:   chunk,
	}

	br := stream.NewReader(chunk)
	if err := br.SetOffset(lenFieldSize + 2); err != nil {
		return nil, 0, err
	}
	if err := p.parseBody(t, br, index); err != nil {
		return nil, 0, fmt.Errorf("type 0x%02x body: %w", ftype, err)
	}
	labelStart := p.parseLabel(t, br.RemainingData(), index)
	if ub, ok := t.Body.(UnknownBody); ok && labelStart >= 0 {
		ub.Data = ub.Data[:labelStart]
		t.Body = ub
	}

	return t, int(chunkLen), nil
}

func (p *parser) parseBody(t *Type, br *stream.Reader, index int32) error {
	switch t.Full {
	case Void, CString, PasString, LVVariant, Boolean, BooleanU16, Ptr:
		t.Body = EmptyBody{}
		return nil
	case String, Path, Picture, SubString, PolyVI:
		return p.parseBlob(t, br)
	case Tag:
		return p.parseTag(t, br, index)
	case Cluster:
		return p.parseCluster(t, br, index)
	case MeasureData:
		return p.parseMeasureData(t, br, index)
	case ComplexFixedPt, FixedPoint:
		return p.parseFixedPoint(t, br)
	case Block:
		return p.parseBlockSize(t, br)
	case AlignedBlock:
		return p.parseAlignedBlock(t, br)
	case RepeatedBlock:
		return p.parseRepeatedBlock(t, br)
	case TypeBlock, VoidBlock, AlignmntMarker, PtrTo:
		return p.parseSingleContainer(t, br)
	case Function:
		return p.parseFunction(t, br, index)
	case TypeDef:
		return p.parseTypeDef(t, br, index)
	}

	switch t.Full.Main() {
	case MainNumber, MainUnit:
		return p.parseNumber(t, br, index)
	case MainBool:
		t.Body = EmptyBody{}
		return nil
	case MainArray:
		return p.parseArray(t, br)
	case MainRef:
		return p.parseRef(t, br, index)
	}

	// No decoder for this tag; keep the payload raw so it survives a
	// round trip.
	t.Body = UnknownBody{Data: br.RemainingData()}
	return nil
}

func (p *parser) parseNumber(t *Type, br *stream.Reader, index int32) error {
	var body NumberBody
	if IsEnum(t.Full) {
		count, err := br.ReadU16()
		if err != nil {
			return err
		}
		wholeLen := 0
		body.EnumValues = make([]EnumValue, 0, count)
		for i := 0; i < int(count); i++ {
			label, err := br.ReadPStr()
			if err != nil {
				return err
			}
			body.EnumValues = append(body.EnumValues, EnumValue{Label: label})
			wholeLen += len(label) + 1
		}
		if wholeLen%2 != 0 {
			if err := br.Skip(1); err != nil {
				return err
			}
		}
	}
	if IsPhys(t.Full) {
		count, err := br.ReadU16()
		if err != nil {
			return err
		}
		body.UnitValues = make([]UnitValue, 0, count)
		for i := 0; i < int(count); i++ {
			v1, err := br.ReadU16()
			if err != nil {
				return err
			}
			v2, err := br.ReadU16()
			if err != nil {
				return err
			}
			body.UnitValues = append(body.UnitValues, UnitValue{Val1: v1, Val2: v2})
		}
	}
	prop1, err := br.ReadU8()
	if err != nil {
		return err
	}
	body.Prop1 = prop1
	if prop1&^uint8(1) != 0 {
		p.warnf(index, "number property %d, expected 1 bit value", prop1)
	}
	if (IsEnum(t.Full) || IsPhys(t.Full)) && len(body.EnumValues)+len(body.UnitValues) == 0 {
		p.warnf(index, "enumerated number has empty values list")
	}
	t.Body = &body
	return nil
}

func (p *parser) parseBlob(t *Type, br *stream.Reader) error {
	prop1, err := br.ReadU32()
	if err != nil {
		return err
	}
	t.Body = &BlobBody{Prop1: prop1}
	return nil
}

func (p *parser) parseTag(t *Type, br *stream.Reader, index int32) error {
	var body TagBody
	var err error
	if body.Prop1, err = br.ReadU32(); err != nil {
		return err
	}
	if body.TagType, err = br.ReadU16(); err != nil {
		return err
	}
	if p.ver.AtLeast(8, 2, 1) && (p.ver.Before(8, 2, 2) || p.ver.AtLeast(8, 5, 1)) {
		body.Variant, err = p.parseVariant(br, index)
		if err != nil {
			return err
		}
	}
	if body.TagType == TagTypeUserDefined && p.ver.AtLeast(8, 1, 1) {
		ident, err := br.ReadPStr()
		if err != nil {
			return err
		}
		body.Ident = ident
		if (len(ident)+1)%2 != 0 {
			if err := br.Skip(1); err != nil {
				return err
			}
		}
	}
	if body.Prop1 != 0xFFFFFFFF {
		p.warnf(index, "tag property 0x%x, expected 0xFFFFFFFF", body.Prop1)
	}
	t.Body = &body
	return nil
}

func (p *parser) parseCluster(t *Type, br *stream.Reader, index int32) error {
	count, err := br.ReadU2p2()
	if err != nil {
		return err
	}
	if count > MaxClusterClients {
		p.warnf(index, "cluster has %d clients, expected at most %d", count, MaxClusterClients)
	}
	if int(count) > p.limit {
		count = uint32(p.limit)
	}
	clients := make([]Client, 0, count)
	for i := uint32(0); i < count; i++ {
		cliIdx, err := br.ReadU2p2()
		if err != nil {
			return err
		}
		clients = append(clients, Client{Index: int32(cliIdx)})
	}
	t.Body = &ClusterBody{Clients: clients}
	return nil
}

func (p *parser) parseMeasureData(t *Type, br *stream.Reader, index int32) error {
	flavor, err := br.ReadU16()
	if err != nil {
		return err
	}
	if flavor > MaxMeasureFlavor {
		p.warnf(index, "measure data flavor %d, expected at most %d", flavor, MaxMeasureFlavor)
	}
	t.Body = &MeasureDataBody{Flavor: flavor}
	return nil
}

func (p *parser) parseFixedPoint(t *Type, br *stream.Reader) error {
	field1C, err := br.ReadU16()
	if err != nil {
		return err
	}
	var body FixedPointBody
	body.DataVersion = uint8(field1C & 0x0F)
	body.RangeFormat = uint8(field1C>>4) & 0x03
	body.DataEncoding = uint8(field1C>>6) & 0x01
	body.DataEndianness = uint8(field1C>>7) & 0x01
	body.DataUnit = uint8(field1C>>8) & 0x07
	body.AllocOv = uint8(field1C>>11) & 0x01
	body.LeftovFlags = uint8(field1C>>8) & 0xF6
	if body.Field1E, err = br.ReadU16(); err != nil {
		return err
	}
	if body.Field20, err = br.ReadU32(); err != nil {
		return err
	}
	for i := range body.Ranges {
		rng := &body.Ranges[i]
		if body.HasExtendedRanges() {
			if rng.Prop1, err = br.ReadU16(); err != nil {
				return err
			}
			if rng.Prop2, err = br.ReadU16(); err != nil {
				return err
			}
			if rng.Prop3, err = br.ReadI32(); err != nil {
				return err
			}
		}
		if body.RangeFormat <= 1 {
			if rng.Value, err = br.ReadFloat64(); err != nil {
				return err
			}
		}
	}
	t.Body = &body
	return nil
}

func (p *parser) parseBlockSize(t *Type, br *stream.Reader) error {
	blkSize, err := br.ReadU32()
	if err != nil {
		return err
	}
	t.Body = &BlockSizeBody{BlkSize: blkSize}
	return nil
}

func (p *parser) parseAlignedBlock(t *Type, br *stream.Reader) error {
	blkSize, err := br.ReadU32()
	if err != nil {
		return err
	}
	cliIdx, err := br.ReadU2p2()
	if err != nil {
		return err
	}
	t.Body = &AlignedBlockBody{
		BlkSize: blkSize,
		Clients: []Client{{Index: int32(cliIdx)}},
	}
	return nil
}

func (p *parser) parseRepeatedBlock(t *Type, br *stream.Reader) error {
	numRepeats, err := br.ReadU32()
	if err != nil {
		return err
	}
	cliIdx, err := br.ReadU2p2()
	if err != nil {
		return err
	}
	t.Body = &RepeatedBlockBody{
		NumRepeats: numRepeats,
		Clients:    []Client{{Index: int32(cliIdx)}},
	}
	return nil
}

func (p *parser) parseSingleContainer(t *Type, br *stream.Reader) error {
	cliIdx, err := br.ReadU2p2()
	if err != nil {
		return err
	}
	t.Body = &SingleContainerBody{Clients: []Client{{Index: int32(cliIdx)}}}
	return nil
}

func (p *parser) parseArray(t *Type, br *stream.Reader) error {
	ndims, err := br.ReadU16()
	if err != nil {
		return err
	}
	if int(ndims) > MaxArrayDims {
		return fmt.Errorf("array has %d dimensions, expected at most %d", ndims, MaxArrayDims)
	}
	dims := make([]Dimension, ndims)
	for i := range dims {
		packed, err := br.ReadU32()
		if err != nil {
			return err
		}
		dims[i].Flags = uint8(packed >> 24)
		dims[i].FixedSize = packed & 0x00FFFFFF
	}
	cliIdx, err := br.ReadU2p2()
	if err != nil {
		return err
	}
	t.Body = &ArrayBody{
		Dimensions: dims,
		Clients:    []Client{{Index: int32(cliIdx)}},
	}
	return nil
}

func (p *parser) parseFunction(t *Type, br *stream.Reader, index int32) error {
	count, err := br.ReadU2p2()
	if err != nil {
		return err
	}
	if count > MaxFunctionClients {
		p.warnf(index, "function has %d clients, expected at most %d", count, MaxFunctionClients)
	}
	if int(count) > p.limit {
		count = uint32(p.limit)
	}
	var body FunctionBody
	body.Clients = make([]Client, count)
	for i := range body.Clients {
		cliIdx, err := br.ReadU2p2()
		if err != nil {
			return err
		}
		body.Clients[i].Index = int32(cliIdx)
	}
	if body.FFlags, err = br.ReadU16(); err != nil {
		return err
	}
	if body.Pattern, err = br.ReadU16(); err != nil {
		return err
	}

	if p.ver.AtLeastStage(10, 0, 0, lvver.StageAlpha) {
		for i := range body.Clients {
			flags, err := br.ReadU32()
			if err != nil {
				return err
			}
			body.Clients[i].Flags = flags
		}
	} else {
		for i := range body.Clients {
			flags, err := br.ReadU16()
			if err != nil {
				return err
			}
			body.Clients[i].Flags = uint32(flags)
		}
	}

	if p.ver.AtLeastStage(8, 0, 0, lvver.StageBeta) {
		if body.HasThrall, err = br.ReadU16(); err != nil {
			return err
		}
		if body.HasThrall != 0 {
			shifted := p.ver.AtLeastStage(8, 2, 0, lvver.StageBeta)
			for i := range body.Clients {
				var sources []uint8
				for {
					k, err := br.ReadU8()
					if err != nil {
						return err
					}
					if k == 0 {
						break
					}
					if shifted {
						k--
					}
					sources = append(sources, k)
				}
				body.Clients[i].Thrall = sources
			}
		}
	}

	if body.FFlags&funcFlagHasFields != 0 {
		if body.Field6, err = br.ReadU32(); err != nil {
			return err
		}
		if body.Field7, err = br.ReadU32(); err != nil {
			return err
		}
	}
	if body.FFlags&funcFlagExtraClient != 0 {
		cliIdx, err := br.ReadU2p2()
		if err != nil {
			return err
		}
		body.Clients = append(body.Clients, Client{Index: int32(cliIdx)})
	}

	t.Body = &body
	return nil
}

func (p *parser) parseTypeDef(t *Type, br *stream.Reader, index int32) error {
	var body TypeDefBody
	var err error
	if body.Flag1, err = br.ReadU32(); err != nil {
		return err
	}

	if p.ver.AtLeastStage(8, 0, 0, lvver.StageRelease) {
		// Qualified name: a 32-bit count of Pascal strings.
		count, err := br.ReadU32()
		if err != nil {
			return err
		}
		if int(count) > p.limit {
			return fmt.Errorf("qualified name has %d parts", count)
		}
		body.Names = make([][]byte, 0, count)
		for i := uint32(0); i < count; i++ {
			name, err := br.ReadPStr()
			if err != nil {
				return err
			}
			body.Names = append(body.Names, name)
		}
	} else {
		name, err := br.ReadPStr()
		if err != nil {
			return err
		}
		if (len(name)+1)%2 != 0 {
			if err := br.Skip(1); err != nil {
				return err
			}
		}
		body.Names = [][]byte{name}
	}

	// The defined type follows inline. Its recorded length is 4 bytes
	// larger than the space it occupies.
	rest := br.RemainingData()
	nested, consumed, err := p.parseNested(rest, index)
	if err != nil {
		return err
	}
	if err := br.Skip(consumed); err != nil {
		return err
	}
	body.Clients = []Client{{Index: NestedIndex, Nested: nested}}
	t.Body = &body
	return nil
}

// parseNested decodes a descriptor stored inline inside a type definition.
// The length field of such a chunk overstates the occupied space by 4.
func (p *parser) parseNested(data []byte, index int32) (*Type, int, error) {
	r := stream.NewReader(data)
	chunkLen, err := r.ReadU2p2()
	if err != nil {
		return nil, 0, err
	}
	if chunkLen < 8 {
		p.warnf(index, "nested chunk size %d too small to be valid", chunkLen)
		return &Type{Index: NestedIndex, Full: Void, Body: EmptyBody{}}, 4, nil
	}
	real := int(chunkLen) - 4
	if real > len(data) {
		return nil, 0, stream.ErrUnexpectedEOF
	}
	// Rebuild the chunk with a corrected length so the regular decoder
	// can be reused.
	lenFieldSize := r.Offset()
	fixed := make([]byte, real)
	copy(fixed, data[:real])
	if lenFieldSize == 2 {
		fixed[0] = byte(real >> 8)
		fixed[1] = byte(real)
	} else {
		v := uint32(real) | 0x80000000
		fixed[0] = byte(v >> 24)
		fixed[1] = byte(v >> 16)
		fixed[2] = byte(v >> 8)
		fixed[3] = byte(v)
	}
	nested, _, err := p.parseChunk(fixed, 0, NestedIndex)
	if err != nil {
		return nil, 0, err
	}
	return nested, real, nil
}

func (p *parser) parseRef(t *Type, br *stream.Reader, index int32) error {
	reftype, err := br.ReadU16()
	if err != nil {
		return err
	}
	body := RefBody{RefKind: RefType(reftype)}
	if err := p.parseRefPayload(&body, br, index); err != nil {
		return err
	}
	t.Body = &body
	return nil
}

// parseLabel recovers the text label stored at the end of a chunk. There is
// no offset pointing at it, so the decoder scans forward over the bytes
// left after the body, accepting the first position where a length byte
// exactly spans the remaining data and the text is printable. It returns
// the label start within rest, or -1 when nothing was found.
func (p *parser) parseLabel(t *Type, rest []byte, index int32) int {
	if !t.HasLabel() {
		return -1
	}
	start := len(rest) - 256
	if start < 0 {
		start = 0
	}
	for i := start; i < len(rest); i++ {
		labelLen := validLabelLength(rest, i)
		if labelLen > 0 {
			t.Label = rest[i+1 : i+labelLen+1]
			if i > 0 {
				p.warnf(index, "label does not immediately follow type data")
			}
			return i
		}
	}
	p.warnf(index, "label text not found")
	t.Label = []byte{}
	return -1
}

// validLabelLength checks whether position i can start a length-prefixed
// label that spans the rest of the data, allowing one byte of padding.
func validLabelLength(whole []byte, i int) int {
	if len(whole) == 0 || i >= len(whole) {
		return 0
	}
	if whole[len(whole)-1] == 0 {
		whole = whole[:len(whole)-1]
	}
	if i >= len(whole) {
		return 0
	}
	labelLen := int(whole[i])
	if len(whole)-i != labelLen+1 {
		return 0
	}
	for _, bt := range whole[i+1:] {
		if bt >= 32 || bt == '\r' || bt == '\n' || bt == '\t' {
			continue
		}
		return 0
	}
	return labelLen
}
