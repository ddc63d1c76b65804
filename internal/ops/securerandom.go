// Package ops exposes the secure random tensor operation: seeded,
// deterministic uniform integer tensors over a libsodium-compatible
// keystream.
package ops

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/abarak-biu/tf-encrypted/internal/rng"
	"github.com/abarak-biu/tf-encrypted/internal/tensor"
)

// SeedWords is the number of 32-bit words a seed must carry.
const SeedWords = 8

var (
	// ErrSeedLen reports a seed of the wrong length.
	ErrSeedLen = errors.New("ops: seed must be exactly 8 words")

	// ErrRange reports an empty output interval.
	ErrRange = errors.New("ops: minval must be strictly less than maxval")
)

// SeedKey packs eight 32-bit seed words into a cipher key, each word
// little-endian in seed order.
func SeedKey(seed []int32) ([rng.KeySize]byte, error) {
	var key [rng.KeySize]byte
	if len(seed) != SeedWords {
		return key, fmt.Errorf("%w: got %d", ErrSeedLen, len(seed))
	}
	for i, w := range seed {
		binary.LittleEndian.PutUint32(key[i*4:], uint32(w))
	}
	return key, nil
}

// Int32 draws a tensor of the given shape with elements uniform in
// [minval, maxval).
func Int32(shape []int, seed []int32, minval, maxval int32) (*tensor.Dense[int32], error) {
	return generate(shape, seed, minval, maxval)
}

// Int64 is the 64-bit wide variant of Int32.
func Int64(shape []int, seed []int32, minval, maxval int64) (*tensor.Dense[int64], error) {
	return generate(shape, seed, minval, maxval)
}

func generate[T tensor.Element](shape []int, seed []int32, minval, maxval T) (*tensor.Dense[T], error) {
	key, err := SeedKey(seed)
	if err != nil {
		return nil, err
	}
	if minval >= maxval {
		return nil, fmt.Errorf("%w: [%d, %d)", ErrRange, minval, maxval)
	}
	out, err := tensor.New[T](shape...)
	if err != nil {
		return nil, err
	}
	if out.Len() == 0 {
		// Nothing to fill; skip cipher setup entirely.
		return out, nil
	}
	src, err := rng.NewSource(key)
	if err != nil {
		return nil, err
	}
	rng.Uniform(src, out.Data(), minval, maxval)
	return out, nil
}
