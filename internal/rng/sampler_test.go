package rng

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestUniformInt32KnownAnswer(t *testing.T) {
	// Zero seed, five draws from [0, 10). Values computed independently
	// from the ChaCha20 block function and the rejection rule.
	out := make([]int32, 5)
	Uniform(mustSource(t, [KeySize]byte{}), out, 0, 10)
	if diff := cmp.Diff([]int32{3, 4, 7, 6, 8}, out); diff != "" {
		t.Fatalf("zero seed mismatch (-want +got):\n%s", diff)
	}

	// Flipping the low bit of the first seed word rewrites the whole
	// output vector.
	Uniform(mustSource(t, [KeySize]byte{0: 1}), out, 0, 10)
	if diff := cmp.Diff([]int32{0, 9, 2, 5, 4}, out); diff != "" {
		t.Fatalf("flipped seed mismatch (-want +got):\n%s", diff)
	}
}

func TestUniformInt32SignedRange(t *testing.T) {
	var key [KeySize]byte
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint32(key[i*4:], uint32(i+1))
	}
	out := make([]int32, 4)
	Uniform(mustSource(t, key), out, -5, 5)
	if diff := cmp.Diff([]int32{2, -4, -2, -5}, out); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUniformInt64KnownAnswer(t *testing.T) {
	src := mustSource(t, [KeySize]byte{})
	wide := make([]int64, 6)
	Uniform(src, wide, -(1 << 40), 1<<40)
	want := []int64{893664567201, -623532626579, 171318702472, -329433692298, 94894317822, 162877361757}
	if diff := cmp.Diff(want, wide); diff != "" {
		t.Fatalf("wide range mismatch (-want +got):\n%s", diff)
	}

	small := make([]int64, 3)
	Uniform(src, small, 0, 1000)
	if diff := cmp.Diff([]int64{417, 773, 144}, small); diff != "" {
		t.Fatalf("small range mismatch (-want +got):\n%s", diff)
	}

	pair := make([]int64, 2)
	Uniform(src, pair, -3, 3)
	if diff := cmp.Diff([]int64{-2, 0}, pair); diff != "" {
		t.Fatalf("signed range mismatch (-want +got):\n%s", diff)
	}
}

func TestUniformDeterministic(t *testing.T) {
	var key [KeySize]byte
	key[13] = 0x5e
	a := make([]int32, 257)
	b := make([]int32, 257)
	Uniform(mustSource(t, key), a, -1000, 1000)
	Uniform(mustSource(t, key), b, -1000, 1000)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("repeated fill differs (-first +second):\n%s", diff)
	}
}

func TestUniformRejectionReplacement(t *testing.T) {
	// A range of 2^31+2 rejects nearly half of all raw words, forcing
	// dozens of replacements and several re-derives of the extra block.
	// The expected values walk the replacement region in element order.
	out := make([]int32, 64)
	Uniform(mustSource(t, [KeySize]byte{}), out, math.MinInt32, 2)

	wantHead := []int32{
		-149625493, -457367503, -762368661, -557706132,
		-479989370, -972024027, -1980618901, -690238720,
		-127767878, -1074374476, -331395493, -1369468637,
		-1479815065, -1631337416, -1650081214, -189494842,
	}
	if diff := cmp.Diff(wantHead, out[:16]); diff != "" {
		t.Fatalf("head mismatch (-want +got):\n%s", diff)
	}
	wantTail := []int32{
		-1749755574, -908813646, -1099846666, -1336167187,
		-1795184525, -672564828, -390503730, -1258194614,
	}
	if diff := cmp.Diff(wantTail, out[56:]); diff != "" {
		t.Fatalf("tail mismatch (-want +got):\n%s", diff)
	}
	for i, v := range out {
		if v >= 2 {
			t.Fatalf("out[%d] = %d outside [MinInt32, 2)", i, v)
		}
	}
}

func TestUniformDegenerateRange(t *testing.T) {
	out := make([]int32, 3)
	Uniform(mustSource(t, [KeySize]byte{}), out, 5, 6)
	if diff := cmp.Diff([]int32{5, 5, 5}, out); diff != "" {
		t.Fatalf("single-value range mismatch (-want +got):\n%s", diff)
	}
}

func TestUniformEmpty(t *testing.T) {
	// A nil source proves the empty fill derives no keystream at all.
	Uniform(nil, []int32{}, 0, 10)
	Uniform(nil, []int64(nil), -1, 1)
}

func TestUniformBounds(t *testing.T) {
	var key [KeySize]byte
	key[0] = 7
	cases := []struct{ lo, hi int64 }{
		{0, 1},
		{0, 2},
		{-1, 1},
		{-128, 128},
		{1 << 40, 1<<40 + 3},
		{math.MinInt64, 0},
		{math.MinInt64, math.MaxInt64},
	}
	for _, tc := range cases {
		out := make([]int64, 33)
		Uniform(mustSource(t, key), out, tc.lo, tc.hi)
		for i, v := range out {
			if v < tc.lo || v >= tc.hi {
				t.Fatalf("out[%d] = %d outside [%d, %d)", i, v, tc.lo, tc.hi)
			}
		}
	}

	narrow := []struct{ lo, hi int32 }{
		{0, 3},
		{-7, -2},
		{math.MaxInt32 - 5, math.MaxInt32},
	}
	for _, tc := range narrow {
		out := make([]int32, 33)
		Uniform(mustSource(t, key), out, tc.lo, tc.hi)
		for i, v := range out {
			if v < tc.lo || v >= tc.hi {
				t.Fatalf("out[%d] = %d outside [%d, %d)", i, v, tc.lo, tc.hi)
			}
		}
	}
}

func TestUniformSeedAvalanche(t *testing.T) {
	base := make([]int32, 16)
	Uniform(mustSource(t, [KeySize]byte{}), base, 0, 10)
	for word := 0; word < 8; word++ {
		var key [KeySize]byte
		key[word*4] = 1
		got := make([]int32, 16)
		Uniform(mustSource(t, key), got, 0, 10)
		if cmp.Equal(base, got) {
			t.Errorf("flipping seed word %d left the output unchanged", word)
		}
	}
}

func TestUniformChiSquare(t *testing.T) {
	const (
		seeds   = 200
		perSeed = 50
		buckets = 10
	)
	var counts [buckets]int
	for i := 0; i < seeds; i++ {
		var key [KeySize]byte
		binary.LittleEndian.PutUint32(key[:4], uint32(i))
		out := make([]int32, perSeed)
		Uniform(mustSource(t, key), out, 0, buckets)
		for _, v := range out {
			counts[v]++
		}
	}
	expected := float64(seeds*perSeed) / buckets
	var stat float64
	for _, c := range counts {
		d := float64(c) - expected
		stat += d * d / expected
	}
	crit := distuv.ChiSquared{K: buckets - 1}.Quantile(0.999)
	if stat > crit {
		t.Fatalf("chi-square statistic %.2f exceeds %.2f; counts %v", stat, crit, counts)
	}
}

func TestUniformInt64ChiSquare(t *testing.T) {
	const (
		seeds   = 100
		perSeed = 30
	)
	var counts [10]int
	for i := 0; i < seeds; i++ {
		var key [KeySize]byte
		binary.LittleEndian.PutUint32(key[:4], uint32(1000+i))
		out := make([]int64, perSeed)
		Uniform(mustSource(t, key), out, 0, 1000)
		for _, v := range out {
			counts[v%10]++
		}
	}
	expected := float64(seeds*perSeed) / 10
	var stat float64
	for _, c := range counts {
		d := float64(c) - expected
		stat += d * d / expected
	}
	crit := distuv.ChiSquared{K: 9}.Quantile(0.999)
	if stat > crit {
		t.Fatalf("chi-square statistic %.2f exceeds %.2f; counts %v", stat, crit, counts)
	}
}

func TestExtraRegionPastPrimary(t *testing.T) {
	// The replacement region must start at least one full block past the
	// primary bytes for every element count and width.
	for _, size := range []int{4, 8} {
		for n := 1; n <= 2100; n++ {
			byteLen := n * size
			start := int(extraCounter(byteLen)) * BlockSize
			if start < byteLen+BlockSize {
				t.Fatalf("size %d, n %d: extra region starts at byte %d, primary ends at %d",
					size, n, start, byteLen)
			}
		}
	}
}

func TestExtraRingRefill(t *testing.T) {
	src := mustSource(t, [KeySize]byte{})
	ring := newExtraRing(src, 5, 4)
	blockA := src.Derive(5, BlockSize)
	blockB := src.Derive(6, BlockSize)
	for i := 0; i < BlockSize/4; i++ {
		want := uint64(binary.LittleEndian.Uint32(blockA[i*4:]))
		if got := ring.next(); got != want {
			t.Fatalf("element %d = %d, want %d", i, got, want)
		}
	}
	// Every element of the block has been handed out; the next read must
	// come from the following counter.
	want := uint64(binary.LittleEndian.Uint32(blockB))
	if got := ring.next(); got != want {
		t.Fatalf("first refilled element = %d, want %d", got, want)
	}
}
