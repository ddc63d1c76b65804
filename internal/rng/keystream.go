// internal/rng/keystream.go

// Package rng derives deterministic uniform integers from a seeded ChaCha20
// keystream. The same seed and parameters produce the same output on every
// host, which is what lets independent parties arrive at identical tensors
// without ever exchanging them.
package rng

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/chacha20"
)

const (
	// KeySize is the seed length in bytes: eight 32-bit words.
	KeySize = chacha20.KeySize

	// BlockSize is the keystream granularity. Block counters address the
	// stream in these units.
	BlockSize = 64
)

// nonce is the fixed stream selector used by libsodium's
// randombytes_buf_deterministic. Reusing it keeps the keystream
// byte-compatible with generators built on that primitive.
var nonce = []byte("LibsodiumDRG")

// ErrInit means the cipher self-test failed and no keystream may be derived.
var ErrInit = errors.New("rng: cipher self-test failed")

var (
	initOnce sync.Once
	initErr  error
)

// Init runs the cipher known-answer self-test once per process and caches
// the verdict. Every generation path checks it before deriving keystream;
// call it at startup to fail fast instead of on the first request.
func Init() error {
	initOnce.Do(func() {
		initErr = selfTest()
	})
	return initErr
}

// RFC 8439 section 2.3.2 test vector: leading keystream bytes at block
// counter 1 under the sequential key 00..1f.
var (
	selfTestNonce = []byte{0x00, 0x00, 0x00, 0x09, 0x00, 0x00, 0x00, 0x4a, 0x00, 0x00, 0x00, 0x00}
	selfTestWant  = []byte{
		0x10, 0xf1, 0xe7, 0xe4, 0xd1, 0x3b, 0x59, 0x15,
		0x50, 0x0f, 0xdd, 0x1f, 0xa3, 0x20, 0x71, 0xc4,
	}
)

func selfTest() error {
	var key [KeySize]byte
	for i := range key {
		key[i] = byte(i)
	}
	cipher, err := chacha20.NewUnauthenticatedCipher(key[:], selfTestNonce)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInit, err)
	}
	cipher.SetCounter(1)
	got := make([]byte, len(selfTestWant))
	cipher.XORKeyStream(got, got)
	if !bytes.Equal(got, selfTestWant) {
		return fmt.Errorf("%w: keystream mismatch", ErrInit)
	}
	return nil
}

// Source derives keystream for one 32-byte seed. It is stateless between
// calls: every Derive re-keys the cipher and seeks to the requested block,
// so reads at different counters never disturb each other.
type Source struct {
	key [KeySize]byte
}

// NewSource binds a seed to a keystream source. It refuses to hand out a
// source when the self-test failed.
func NewSource(key [KeySize]byte) (*Source, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return &Source{key: key}, nil
}

// Derive returns n keystream bytes starting at the given 64-byte block
// counter. The counter seeks directly; earlier blocks are never derived.
func (s *Source) Derive(counter uint32, n int) []byte {
	buf := make([]byte, n)
	if n == 0 {
		return buf
	}
	cipher, err := chacha20.NewUnauthenticatedCipher(s.key[:], nonce)
	if err != nil {
		// Key and nonce sizes are fixed above; this cannot happen.
		panic("rng: " + err.Error())
	}
	cipher.SetCounter(counter)
	cipher.XORKeyStream(buf, buf) // buf is initially zero, so it becomes keystream
	return buf
}
