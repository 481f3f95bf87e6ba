package world

import (
	"math"
	"math/rand"
	"testing"
)

func TestHash2Deterministic(t *testing.T) {
	first := hash2(10, 20, 42)
	for i := 0; i < 100; i++ {
		if h := hash2(10, 20, 42); h != first {
			t.Fatalf("hash2 not deterministic: %d != %d", h, first)
		}
	}
	if hash2(1, 2, 42) == hash2(2, 1, 42) {
		t.Errorf("hash2 should differ for swapped axes")
	}
	if hash2(1, 1, 100) == hash2(1, 1, 200) {
		t.Errorf("hash2 should differ for different seeds")
	}
}

func TestOctaveNoiseRange(t *testing.T) {
	rng := rand.New(rand.NewSource(12345))
	on := newOctaveNoise(42, 4, 0.5, 2.0)
	for i := 0; i < 1000; i++ {
		x := rng.Float64()*200 - 100
		z := rng.Float64()*200 - 100
		if v := on.At(x, z); v < 0 || v > 1 {
			t.Errorf("At(%f, %f) = %f, expected in [0,1]", x, z, v)
		}
	}
}

func TestValueNoiseContinuity(t *testing.T) {
	v1 := valueNoise2D(1.0, 1.0, 42)
	v2 := valueNoise2D(1.01, 1.0, 42)
	if d := math.Abs(v1 - v2); d >= 0.1 {
		t.Errorf("valueNoise2D not continuous: diff=%f", d)
	}
}
