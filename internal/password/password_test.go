package password

import (
	"bytes"
	"context"
	"crypto/md5"
	"testing"
	"time"
)

func TestSaltLayout(t *testing.T) {
	salt := Salt(1, 2, 3)
	want := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}
	if !bytes.Equal(salt, want) {
		t.Fatalf("Salt(1,2,3) = %v", salt)
	}
	if len(Salt(0, 0, 0)) != SaltSize {
		t.Fatal("salt size mismatch")
	}
}

func TestHash1Chain(t *testing.T) {
	pwd := md5.Sum([]byte("secret"))
	libs := []byte("libA:libB")
	rec := bytes.Repeat([]byte{0x42}, 120)
	salt := Salt(4, 1, 0)

	got := Hash1(pwd[:], libs, rec, salt)

	h := md5.New()
	h.Write(pwd[:])
	h.Write(libs)
	h.Write(rec)
	h.Write(salt)
	if !bytes.Equal(got, h.Sum(nil)) {
		t.Fatal("Hash1 does not chain its inputs in order")
	}
}

func TestHash2WithHeap(t *testing.T) {
	h1 := bytes.Repeat([]byte{1}, 16)
	heap := bytes.Repeat([]byte{2}, 16)

	got := Hash2(h1, heap)
	h := md5.New()
	h.Write(h1)
	h.Write(heap)
	if !bytes.Equal(got, h.Sum(nil)) {
		t.Fatal("Hash2 mismatch with heap hash")
	}
}

func TestHash2WithoutHeap(t *testing.T) {
	// No diagram heap means the empty string is hashed; hash1 is ignored.
	h1 := bytes.Repeat([]byte{1}, 16)
	got := Hash2(h1, nil)
	empty := md5.Sum(nil)
	if !bytes.Equal(got, empty[:]) {
		t.Fatalf("Hash2(h1, nil) = %x, want md5 of empty input", got)
	}
}

func TestCandidateDeinterleave(t *testing.T) {
	cases := []struct {
		i                       uint32
		numbers, strings, paths uint32
	}{
		{0, 0, 0, 0},
		{1, 1, 0, 0},
		{2, 0, 1, 0},
		{4, 0, 0, 1},
		{7, 1, 1, 1},
		{1 << 3, 2, 0, 0},
		{1 << 4, 0, 2, 0},
		{1 << 5, 0, 0, 2},
		{0xFFFFFF, 0xFF, 0xFF, 0xFF},
	}
	for _, c := range cases {
		n, s, p := candidate(c.i)
		if n != c.numbers || s != c.strings || p != c.paths {
			t.Errorf("candidate(%#x) = %d,%d,%d, want %d,%d,%d",
				c.i, n, s, p, c.numbers, c.strings, c.paths)
		}
	}
}

func TestBruteForceSaltFindsEarlyIndex(t *testing.T) {
	presalt := []byte("presalt bytes")
	// Index 5 de-interleaves to numbers=1, strings=0, paths=1.
	target := Salt(1, 0, 1)
	sum := md5.Sum(append(append([]byte{}, presalt...), target...))

	salt, found, err := BruteForceSalt(context.Background(), presalt, sum[:])
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("salt not found")
	}
	if !bytes.Equal(salt, target) {
		t.Fatalf("salt = %v, want %v", salt, target)
	}
}

func TestBruteForceSaltCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	// A digest that matches nothing forces a full scan, which the timeout
	// must interrupt.
	_, found, err := BruteForceSalt(ctx, []byte("x"), make([]byte, 16))
	if err == nil && found {
		t.Fatal("impossible digest reported a match")
	}
	if err != nil && err != context.DeadlineExceeded {
		t.Fatalf("cancel returned %v", err)
	}
}

func TestRecognize(t *testing.T) {
	sum := md5.Sum([]byte("password"))
	got, ok := Recognize(sum[:])
	if !ok || got != "password" {
		t.Fatalf("Recognize = %q, %v", got, ok)
	}

	empty := md5.Sum(nil)
	got, ok = Recognize(empty[:])
	if !ok || got != "" {
		t.Fatal("empty password should be recognized")
	}

	rare := md5.Sum([]byte("not-a-common-password"))
	if _, ok := Recognize(rare[:]); ok {
		t.Fatal("uncommon password should not be recognized")
	}
}
