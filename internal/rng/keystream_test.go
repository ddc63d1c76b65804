package rng

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func mustSource(t *testing.T, key [KeySize]byte) *Source {
	t.Helper()
	src, err := NewSource(key)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	return src
}

func TestInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// The verdict is cached; a second call must agree.
	if err := Init(); err != nil {
		t.Fatalf("Init (cached): %v", err)
	}
}

func TestDeriveKnownAnswer(t *testing.T) {
	// Zero seed under the fixed stream selector. Computed independently
	// from the RFC 8439 block function.
	src := mustSource(t, [KeySize]byte{})
	got := src.Derive(0, 16)
	want, err := hex.DecodeString("a11f8f12d0876f736d2d8fd26e14c2de")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Derive(0, 16) = %x, want %x", got, want)
	}
}

func TestDeriveSeeks(t *testing.T) {
	// Reading at counter 1 must match bytes 64..80 of a longer read at
	// counter 0: the counter addresses the stream, it does not re-key it.
	src := mustSource(t, [KeySize]byte{})
	long := src.Derive(0, 2*BlockSize)
	seek := src.Derive(1, 16)
	if !bytes.Equal(seek, long[BlockSize:BlockSize+16]) {
		t.Fatalf("Derive(1, 16) = %x, want %x", seek, long[BlockSize:BlockSize+16])
	}
	want, err := hex.DecodeString("f2f0c680b013cd9e2bf3d08e9c2aaf10")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(seek, want) {
		t.Fatalf("Derive(1, 16) = %x, want %x", seek, want)
	}
}

func TestDeriveDeterministic(t *testing.T) {
	var key [KeySize]byte
	for i := range key {
		key[i] = byte(0xA0 ^ i)
	}
	a := mustSource(t, key).Derive(3, 96)
	b := mustSource(t, key).Derive(3, 96)
	if !bytes.Equal(a, b) {
		t.Fatal("same seed and counter produced different keystream")
	}
}

func TestDeriveKeySeparation(t *testing.T) {
	a := mustSource(t, [KeySize]byte{}).Derive(0, 32)
	b := mustSource(t, [KeySize]byte{0: 1}).Derive(0, 32)
	if bytes.Equal(a, b) {
		t.Fatal("distinct seeds produced identical keystream")
	}
}

func TestDeriveZeroLength(t *testing.T) {
	src := mustSource(t, [KeySize]byte{})
	if got := src.Derive(0, 0); len(got) != 0 {
		t.Fatalf("Derive(0, 0) returned %d bytes", len(got))
	}
}

func TestDeriveStateless(t *testing.T) {
	// Interleaved reads at different counters must not disturb each other.
	src := mustSource(t, [KeySize]byte{})
	first := src.Derive(0, 32)
	src.Derive(7, BlockSize)
	src.Derive(2, 8)
	again := src.Derive(0, 32)
	if !bytes.Equal(first, again) {
		t.Fatal("interleaved derives changed the stream at counter 0")
	}
}
