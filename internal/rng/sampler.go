// internal/rng/sampler.go

package rng

import "encoding/binary"

// Element constrains the sampler to the supported output widths.
type Element interface {
	int32 | int64
}

// extraRing hands out replacement words for rejected draws. It holds one
// keystream block from past the primary region and re-derives at the next
// counter once every element in the block has been consumed.
type extraRing struct {
	src     *Source
	counter uint32
	buf     []byte
	off     int
	size    int
}

func newExtraRing(src *Source, counter uint32, size int) *extraRing {
	return &extraRing{
		src:     src,
		counter: counter,
		buf:     src.Derive(counter, BlockSize),
		size:    size,
	}
}

func (r *extraRing) next() uint64 {
	if r.off == BlockSize {
		r.counter++
		r.buf = r.src.Derive(r.counter, BlockSize)
		r.off = 0
	}
	v := loadWord(r.buf[r.off:], r.size)
	r.off += r.size
	return v
}

// loadWord decodes one little-endian element of the given byte width.
func loadWord(b []byte, size int) uint64 {
	if size == 8 {
		return binary.LittleEndian.Uint64(b)
	}
	return uint64(binary.LittleEndian.Uint32(b))
}

// extraCounter returns the block counter where the replacement region
// starts: one full block past the end of the primary region, so the two
// never overlap regardless of how many replacements a fill needs.
func extraCounter(byteLen int) uint32 {
	blocks := (byteLen + BlockSize - 1) / BlockSize
	return uint32(blocks) + 1
}

// Uniform fills out with integers drawn uniformly from [lo, hi), which must
// be a non-empty interval. The fill consumes keystream from block counter
// zero; raw words that fall below the rejection threshold are replaced from
// the extra region until every element is unbiased. Output is deterministic
// in (seed, lo, hi, len(out)).
func Uniform[T Element](src *Source, out []T, lo, hi T) {
	if len(out) == 0 {
		return
	}

	var size int
	switch any(lo).(type) {
	case int32:
		size = 4
	default:
		size = 8
	}
	byteLen := len(out) * size
	primary := src.Derive(0, byteLen)

	// Arithmetic happens in the unsigned domain of the element width.
	// Converting back to T at the end reinterprets the wrapped sum, which
	// is how lo + (u mod range) lands inside [lo, hi) even when the
	// interval spans zero.
	mask := ^uint64(0) >> (64 - uint(size)*8)
	rnge := (uint64(hi) - uint64(lo)) & mask

	// Smallest acceptable word: 2^width mod range. Words below it belong
	// to the partial bucket that would bias the modulus.
	var min uint64
	if size == 8 {
		min = -rnge % rnge // 2^64 mod range, without the overflowing constant
	} else {
		min = (mask + 1) % rnge
	}

	extra := newExtraRing(src, extraCounter(byteLen), size)
	for i := range out {
		u := loadWord(primary[i*size:], size)
		for u < min {
			u = extra.next()
		}
		out[i] = T(uint64(lo) + u%rnge)
	}
}
