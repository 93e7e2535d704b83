package vi

import (
	"crypto/md5"

	"github.com/mefistotelis/lvrsrc-go/internal/lvver"
	"github.com/mefistotelis/lvrsrc-go/internal/stream"
)

// execFlagLibProtected marks a VI whose diagram is password protected.
// It is masked out of ExecFlags and exposed as the Protected field.
const execFlagLibProtected = uint32(1) << 23

// SaveRecord is the decoded LVSR (or legacy LVIN) block. The fixed
// part is 120 bytes, with version-gated fields after it; anything past
// the known layout is kept in Tail so a rewrite stays byte-exact.
//
// Raw always holds the exact section bytes as read, because the first
// password hash covers them verbatim.
type SaveRecord struct {
	Version       lvver.Version
	Protected     bool
	ExecFlags     uint32
	Field08       uint32
	Field0C       uint32
	Flags10       uint16
	Field12       uint16
	ButtonsHidden uint16
	FrontpFlags   uint16
	InstrState    uint32
	ExecState     uint32
	ExecPrio      uint16
	VIType        uint16
	Field24       int32
	Field28       uint32
	Field2C       uint32
	Field30       uint32
	VISignature   [md5.Size]byte
	Field44       uint32
	Field48       uint32
	Field4C       uint16
	Field4E       uint16
	Field50MD5    [md5.Size]byte
	LibpassMD5    [md5.Size]byte
	Field70       uint32
	Field74       int32

	// Present from LabVIEW 10.0 release on.
	Field78MD5 [md5.Size]byte
	// Present from LabVIEW 14 on.
	InlineStg uint8
	// Present from LabVIEW 15 on.
	Field8C uint32

	Tail []byte
	Raw  []byte
}

const saveRecordFixedSize = 120

// SaveRecord decodes the LVSR block, falling back to the legacy LVIN
// tag used before LabVIEW 6.
func (f *File) SaveRecord() (*SaveRecord, error) {
	b := f.BlockOneOf(identLVSR, identLVIN)
	if b == nil {
		return nil, parseErr(identLVSR, 0, "", ErrBlockMissing)
	}
	data, s, err := f.defaultContent(b.Ident)
	if err != nil {
		return nil, err
	}
	sr, err := parseSaveRecord(data)
	if err != nil {
		return nil, parseErr(b.Ident, s.Index, "save record", err)
	}
	return sr, nil
}

func parseSaveRecord(data []byte) (*SaveRecord, error) {
	if len(data) < saveRecordFixedSize {
		return nil, stream.ErrUnexpectedEOF
	}
	r := stream.NewReader(data)
	sr := &SaveRecord{Raw: data}

	code, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	sr.Version = lvver.Decode(code)

	flags, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	sr.Protected = flags&execFlagLibProtected != 0
	sr.ExecFlags = flags &^ execFlagLibProtected

	read := func(dst any) {
		if err != nil {
			return
		}
		switch p := dst.(type) {
		case *uint16:
			*p, err = r.ReadU16()
		case *uint32:
			*p, err = r.ReadU32()
		case *int32:
			*p, err = r.ReadI32()
		}
	}
	read(&sr.Field08)
	read(&sr.Field0C)
	read(&sr.Flags10)
	read(&sr.Field12)
	read(&sr.ButtonsHidden)
	read(&sr.FrontpFlags)
	read(&sr.InstrState)
	read(&sr.ExecState)
	read(&sr.ExecPrio)
	read(&sr.VIType)
	read(&sr.Field24)
	read(&sr.Field28)
	read(&sr.Field2C)
	read(&sr.Field30)
	if err != nil {
		return nil, err
	}
	if err = readMD5(r, &sr.VISignature); err != nil {
		return nil, err
	}
	read(&sr.Field44)
	read(&sr.Field48)
	read(&sr.Field4C)
	read(&sr.Field4E)
	if err != nil {
		return nil, err
	}
	if err = readMD5(r, &sr.Field50MD5); err != nil {
		return nil, err
	}
	if err = readMD5(r, &sr.LibpassMD5); err != nil {
		return nil, err
	}
	read(&sr.Field70)
	read(&sr.Field74)
	if err != nil {
		return nil, err
	}

	if sr.Version.AtLeastStage(10, 0, 0, lvver.StageRelease) {
		if err = readMD5(r, &sr.Field78MD5); err != nil {
			return nil, err
		}
	}
	if sr.Version.AtLeastMajor(14) {
		if sr.InlineStg, err = r.ReadU8(); err != nil {
			return nil, err
		}
	}
	if sr.Version.AtLeastMajor(15) {
		if err = r.Skip(3); err != nil {
			return nil, err
		}
		if sr.Field8C, err = r.ReadU32(); err != nil {
			return nil, err
		}
	}
	sr.Tail = r.RemainingData()
	return sr, nil
}

func readMD5(r *stream.Reader, dst *[md5.Size]byte) error {
	b, err := r.ReadBytesRef(md5.Size)
	if err != nil {
		return err
	}
	copy(dst[:], b)
	return nil
}

// Encode rebuilds the section bytes from the decoded fields.
func (sr *SaveRecord) Encode() []byte {
	w := stream.NewWriter()
	w.WriteU32(sr.Version.Encode())
	flags := sr.ExecFlags &^ execFlagLibProtected
	if sr.Protected {
		flags |= execFlagLibProtected
	}
	w.WriteU32(flags)
	w.WriteU32(sr.Field08)
	w.WriteU32(sr.Field0C)
	w.WriteU16(sr.Flags10)
	w.WriteU16(sr.Field12)
	w.WriteU16(sr.ButtonsHidden)
	w.WriteU16(sr.FrontpFlags)
	w.WriteU32(sr.InstrState)
	w.WriteU32(sr.ExecState)
	w.WriteU16(sr.ExecPrio)
	w.WriteU16(sr.VIType)
	w.WriteI32(sr.Field24)
	w.WriteU32(sr.Field28)
	w.WriteU32(sr.Field2C)
	w.WriteU32(sr.Field30)
	w.WriteBytes(sr.VISignature[:])
	w.WriteU32(sr.Field44)
	w.WriteU32(sr.Field48)
	w.WriteU16(sr.Field4C)
	w.WriteU16(sr.Field4E)
	w.WriteBytes(sr.Field50MD5[:])
	w.WriteBytes(sr.LibpassMD5[:])
	w.WriteU32(sr.Field70)
	w.WriteI32(sr.Field74)
	if sr.Version.AtLeastStage(10, 0, 0, lvver.StageRelease) {
		w.WriteBytes(sr.Field78MD5[:])
	}
	if sr.Version.AtLeastMajor(14) {
		w.WriteU8(sr.InlineStg)
	}
	if sr.Version.AtLeastMajor(15) {
		w.WriteBytes([]byte{0, 0, 0})
		w.WriteU32(sr.Field8C)
	}
	w.WriteBytes(sr.Tail)
	return w.Bytes()
}

// SetSaveRecord stores the record back into its block and refreshes
// the raw bytes used for hashing.
func (f *File) SetSaveRecord(sr *SaveRecord) {
	b := f.BlockOneOf(identLVSR, identLVIN)
	id := identLVSR
	if b != nil {
		id = b.Ident
	}
	data := sr.Encode()
	sr.Raw = data
	f.SetSection(id, 0, nil, data)
}
