package world

import "math"

// Deterministic 2D value noise summed over octaves. Lattice values come from
// an integer hash so the same seed always yields the same terrain.

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func hash2(x, z, seed int64) uint64 {
	v := uint64(x)*0x9E3779B97F4A7C15 + uint64(z)*0x517CC1B727220A95 + uint64(seed)
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}

func latticeValue(x, z, seed int64) float64 {
	return float64(hash2(x, z, seed)&0xFFFFFFFF) / float64(0xFFFFFFFF)
}

func valueNoise2D(x, z float64, seed int64) float64 {
	x0, z0 := math.Floor(x), math.Floor(z)
	fx, fz := fade(x-x0), fade(z-z0)
	ix, iz := int64(x0), int64(z0)

	i0 := lerp(latticeValue(ix, iz, seed), latticeValue(ix+1, iz, seed), fx)
	i1 := lerp(latticeValue(ix, iz+1, seed), latticeValue(ix+1, iz+1, seed), fx)
	return lerp(i0, i1, fz)
}

type octave struct {
	seed      int64
	frequency float64
	amplitude float64
}

// octaveNoise is a fixed octave stack, built once per generator.
type octaveNoise struct {
	octaves []octave
	norm    float64
}

func newOctaveNoise(seed int64, n int, persistence, lacunarity float64) octaveNoise {
	on := octaveNoise{octaves: make([]octave, n)}
	amp, freq := 1.0, 1.0
	for i := range on.octaves {
		on.octaves[i] = octave{seed: seed + int64(i*131), frequency: freq, amplitude: amp}
		on.norm += amp
		amp *= persistence
		freq *= lacunarity
	}
	return on
}

// At samples the stack; the result is in [0,1].
func (on octaveNoise) At(x, z float64) float64 {
	if on.norm == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range on.octaves {
		sum += valueNoise2D(x*o.frequency, z*o.frequency, o.seed) * o.amplitude
	}
	return sum / on.norm
}
