// Package password implements the MD5 chain protecting a VI's block
// diagram: the stored password digest, two derived hashes, and the
// 12-byte salt recovery needed to recompute them.
package password

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/binary"
	"runtime"
	"sync"
)

// SaltSize is the length of the hash salt: three little-endian u32
// terminal counts.
const SaltSize = 12

// Salt builds the hash salt from terminal counts of one interface
// descriptor.
func Salt(numbers, strings, paths uint32) []byte {
	salt := make([]byte, SaltSize)
	binary.LittleEndian.PutUint32(salt[0:], numbers)
	binary.LittleEndian.PutUint32(salt[4:], strings)
	binary.LittleEndian.PutUint32(salt[8:], paths)
	return salt
}

// Hash1 chains the password digest with the library names, the raw
// save record bytes and the salt.
func Hash1(passwordMD5, libNames, saveRecord, salt []byte) []byte {
	h := md5.New()
	h.Write(passwordMD5)
	h.Write(libNames)
	h.Write(saveRecord)
	h.Write(salt)
	return h.Sum(nil)
}

// Hash2 chains hash1 with the block diagram heap content hash. A file
// without a diagram heap hashes the empty string instead.
func Hash2(hash1, heapHash []byte) []byte {
	h := md5.New()
	if heapHash != nil {
		h.Write(hash1)
		h.Write(heapHash)
	}
	return h.Sum(nil)
}

// candidate expands a brute force iteration index into three terminal
// counts by de-interleaving its bits.
func candidate(i uint32) (numbers, strings, paths uint32) {
	for b := uint32(0); b < 8; b++ {
		numbers |= (i & (1 << (3*b + 0))) >> (2*b + 0)
		strings |= (i & (1 << (3*b + 1))) >> (2*b + 1)
		paths |= (i & (1 << (3*b + 2))) >> (2*b + 2)
	}
	return
}

const bruteForceSpace = 1 << 24

// BruteForceSalt searches every bit-interleaved count combination for a
// salt that reproduces want as md5(presalt + salt). Work is spread over
// all CPUs; the match with the lowest iteration index wins, so results
// are deterministic. Returns the salt and whether a match was found,
// or the context error when cancelled.
func BruteForceSalt(ctx context.Context, presalt []byte, want []byte) ([]byte, bool, error) {
	const chunkSize = 1 << 15

	var (
		mu   sync.Mutex
		best = uint32(bruteForceSpace)
		next uint32
	)
	takeChunk := func() (uint32, bool) {
		mu.Lock()
		defer mu.Unlock()
		if next >= bruteForceSpace || next >= best {
			return 0, false
		}
		start := next
		next += chunkSize
		return start, true
	}
	record := func(i uint32) {
		mu.Lock()
		if i < best {
			best = i
		}
		mu.Unlock()
	}

	workers := runtime.NumCPU()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, len(presalt)+SaltSize)
			copy(buf, presalt)
			salt := buf[len(presalt):]
			for {
				if ctx.Err() != nil {
					return
				}
				start, ok := takeChunk()
				if !ok {
					return
				}
				for i := start; i < start+chunkSize; i++ {
					numbers, strings, paths := candidate(i)
					binary.LittleEndian.PutUint32(salt[0:], numbers)
					binary.LittleEndian.PutUint32(salt[4:], strings)
					binary.LittleEndian.PutUint32(salt[8:], paths)
					sum := md5.Sum(buf)
					if bytes.Equal(sum[:], want) {
						record(i)
						break
					}
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if best == bruteForceSpace {
		return nil, false, nil
	}
	numbers, strings, paths := candidate(best)
	return Salt(numbers, strings, paths), true, nil
}

// commonPasswords are probed against a stored digest so well-known
// passwords can be reported in clear text.
var commonPasswords = []string{
	"", "qwerty", "password", "111111", "12345678", "abc123",
	"1234567", "password1", "12345", "123",
}

// Recognize reports the clear text of a password digest when it
// matches one of the common passwords.
func Recognize(passwordMD5 []byte) (string, bool) {
	for _, p := range commonPasswords {
		sum := md5.Sum([]byte(p))
		if bytes.Equal(sum[:], passwordMD5) {
			return p, true
		}
	}
	return "", false
}
