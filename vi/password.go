package vi

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"

	"github.com/mefistotelis/lvrsrc-go/internal/password"
	"github.com/mefistotelis/lvrsrc-go/internal/stream"
	"github.com/mefistotelis/lvrsrc-go/internal/td"
)

// PasswordRecord is the decoded BDPW block: the password digest and
// the two chained hashes protecting the block diagram. The salt fields
// are not stored in the file; they are recovered on demand and cached
// here so later recomputes reuse them.
type PasswordRecord struct {
	PasswordMD5 [md5.Size]byte
	Hash1       [md5.Size]byte
	Hash2       [md5.Size]byte

	// Password holds the clear text when the digest matches a
	// well-known password.
	Password   string
	Recognized bool

	// SaltIface is the flat descriptor index of the interface whose
	// terminal counts produce the salt, or -1 when unknown.
	SaltIface int32
	// Salt is the recovered salt bytes, nil when not yet determined.
	Salt []byte
}

const passwordRecordSize = 3 * md5.Size

// PasswordRecord decodes the BDPW block. The decoded record is cached
// until the underlying section changes.
func (f *File) PasswordRecord() (*PasswordRecord, error) {
	data, s, err := f.defaultContent(identBDPW)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.passRec != nil && f.passRecGen == s.gen {
		return f.passRec, nil
	}

	if len(data) < passwordRecordSize {
		return nil, parseErr(identBDPW, s.Index, "password record", stream.ErrUnexpectedEOF)
	}
	rec := &PasswordRecord{SaltIface: -1}
	copy(rec.PasswordMD5[:], data[0:16])
	copy(rec.Hash1[:], data[16:32])
	copy(rec.Hash2[:], data[32:48])
	rec.Password, rec.Recognized = password.Recognize(rec.PasswordMD5[:])

	f.passRec = rec
	f.passRecGen = s.gen
	return rec, nil
}

// interfaceSalt derives the salt from the terminal counts of one
// interface descriptor.
func interfaceSalt(list *td.List, iface *td.Type) []byte {
	g := list.CollectTerminals(iface)
	numbers, strings, paths := g.Counts()
	return password.Salt(uint32(numbers), uint32(strings), uint32(paths))
}

// scanForSalt recovers the salt that was mixed into hash1. Files from
// LabVIEW 12 on derive it from one of the interface descriptors,
// usually the last one, so those are checked in reverse; when no
// interface matches, every count combination is tried exhaustively.
// Older files use an empty salt.
func (f *File) scanForSalt(rec *PasswordRecord, presalt []byte) ([]byte, error) {
	ver := f.Version()
	if !ver.AtLeastMajor(1) {
		f.warnf(identBDPW, 0, "no version block; assuming oldest format with empty salt")
		rec.Salt = []byte{}
		return rec.Salt, nil
	}
	if !ver.AtLeastMajor(12) {
		rec.Salt = []byte{}
		return rec.Salt, nil
	}

	list, err := f.TypeList()
	if err != nil {
		return nil, err
	}
	ifaces := list.TypesOfKind(td.Function)
	for i := len(ifaces) - 1; i >= 0; i-- {
		salt := interfaceSalt(list, ifaces[i])
		h := password.Hash1(presalt, nil, nil, salt)
		if bytes.Equal(h, rec.Hash1[:]) {
			rec.SaltIface = ifaces[i].Index
			rec.Salt = salt
			return salt, nil
		}
	}

	f.warnf(identBDPW, 0, "no matching salt found by interface scan; doing brute-force scan")
	ctx := context.Background()
	if f.opts.bruteForceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.bruteForceTimeout)
		defer cancel()
	}
	salt, found, err := password.BruteForceSalt(ctx, presalt, rec.Hash1[:])
	if err != nil {
		return nil, fmt.Errorf("vi: salt brute force: %w", err)
	}
	if !found {
		f.warnf(identBDPW, 0, "brute-force scan found no matching salt")
		salt = []byte{}
	}
	rec.Salt = salt
	return salt, nil
}

// findHashSalt reuses a previously recovered salt source when one is
// cached, otherwise runs a scan.
func (f *File) findHashSalt(rec *PasswordRecord, passwordMD5 []byte) ([]byte, error) {
	if rec.SaltIface >= 0 {
		list, err := f.TypeList()
		if err != nil {
			return nil, err
		}
		if iface := list.At(rec.SaltIface); iface != nil {
			return interfaceSalt(list, iface), nil
		}
	}
	if rec.Salt != nil {
		return rec.Salt, nil
	}
	presalt := make([]byte, 0, len(passwordMD5))
	presalt = append(presalt, passwordMD5...)
	presalt = append(presalt, f.JoinedLibraryNames()...)
	presalt = append(presalt, f.saveRecordRaw()...)
	return f.scanForSalt(rec, presalt)
}

// saveRecordRaw returns the exact stored bytes of the save record
// section, the form hash1 is computed over.
func (f *File) saveRecordRaw() []byte {
	b := f.BlockOneOf(identLVSR, identLVIN)
	if b == nil {
		return nil
	}
	s := b.DefaultSection()
	if s == nil {
		return nil
	}
	data, err := s.Content()
	if err != nil {
		return nil
	}
	return data
}

// RecomputeHash1 derives hash1 from the given password digest and the
// file's current library names, save record and recovered salt.
func (f *File) RecomputeHash1(rec *PasswordRecord, passwordMD5 []byte) ([]byte, error) {
	salt, err := f.findHashSalt(rec, passwordMD5)
	if err != nil {
		return nil, err
	}
	libNames := f.JoinedLibraryNames()
	return password.Hash1(passwordMD5, libNames, f.saveRecordRaw(), salt), nil
}

// RecomputeHash2 derives hash2 from hash1 and the block diagram heap.
func (f *File) RecomputeHash2(hash1 []byte) []byte {
	heap, err := f.BlockDiagramHeap()
	if err != nil {
		return password.Hash2(hash1, nil)
	}
	return password.Hash2(hash1, heap.Hash[:])
}

// VerifyPassword recomputes the hash chain from the stored password
// digest and reports whether both stored hashes are consistent with
// the file content.
func (f *File) VerifyPassword() (bool, error) {
	rec, err := f.PasswordRecord()
	if err != nil {
		return false, err
	}
	h1, err := f.RecomputeHash1(rec, rec.PasswordMD5[:])
	if err != nil {
		return false, err
	}
	if !bytes.Equal(h1, rec.Hash1[:]) {
		return false, nil
	}
	h2 := f.RecomputeHash2(h1)
	return bytes.Equal(h2, rec.Hash2[:]), nil
}

// SetPassword protects the block diagram with a new clear-text
// password, recomputing the whole hash chain and storing the record.
func (f *File) SetPassword(text string) error {
	sum := md5.Sum([]byte(text))
	if err := f.SetPasswordMD5(sum[:]); err != nil {
		return err
	}
	f.mu.Lock()
	if f.passRec != nil {
		f.passRec.Password = text
		f.passRec.Recognized = true
	}
	f.mu.Unlock()
	return nil
}

// SetPasswordMD5 protects the block diagram with a password given only
// as its digest.
func (f *File) SetPasswordMD5(passwordMD5 []byte) error {
	if len(passwordMD5) != md5.Size {
		return fmt.Errorf("vi: password digest must be %d bytes", md5.Size)
	}
	rec, err := f.PasswordRecord()
	if err != nil {
		return err
	}
	h1, err := f.RecomputeHash1(rec, passwordMD5)
	if err != nil {
		return err
	}
	h2 := f.RecomputeHash2(h1)

	copy(rec.PasswordMD5[:], passwordMD5)
	copy(rec.Hash1[:], h1)
	copy(rec.Hash2[:], h2)
	rec.Password, rec.Recognized = password.Recognize(passwordMD5)

	w := stream.NewWriter()
	w.WriteBytes(rec.PasswordMD5[:])
	w.WriteBytes(rec.Hash1[:])
	w.WriteBytes(rec.Hash2[:])
	f.SetSection(identBDPW, 0, nil, w.Bytes())

	// Keep the cache bound to the freshly written section.
	f.mu.Lock()
	f.passRec = rec
	if b := f.blocks[identBDPW]; b != nil {
		if s := b.DefaultSection(); s != nil {
			f.passRecGen = s.gen
		}
	}
	f.mu.Unlock()
	return nil
}

