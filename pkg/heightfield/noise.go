package heightfield

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// NoiseParams controls procedural height-field generation.
type NoiseParams struct {
	Size        int        // samples per side
	Scale       mgl32.Vec3 // world extents
	Seed        int64
	Octaves     int
	Frequency   float32 // base lattice cells across the field
	Persistence float32 // amplitude falloff per octave
	Lacunarity  float32 // frequency growth per octave
}

// DefaultNoiseParams returns parameters producing rolling hills.
func DefaultNoiseParams() NoiseParams {
	return NoiseParams{
		Size:        129,
		Scale:       mgl32.Vec3{256, 256, 64},
		Seed:        1,
		Octaves:     4,
		Frequency:   4,
		Persistence: 0.5,
		Lacunarity:  2,
	}
}

// Generate builds a grid from fractal value noise. The same params always
// produce the same grid.
func Generate(p NoiseParams) (*Grid, error) {
	g, err := New(p.Size, p.Size, p.Scale)
	if err != nil {
		return nil, err
	}
	if p.Octaves < 1 {
		p.Octaves = 1
	}

	var norm float32
	amp := float32(1)
	for o := 0; o < p.Octaves; o++ {
		norm += amp
		amp *= p.Persistence
	}

	inv := 1 / float32(p.Size-1)
	for j := 0; j < p.Size; j++ {
		for i := 0; i < p.Size; i++ {
			u := float32(i) * inv
			v := float32(j) * inv

			var sum float32
			amp := float32(1)
			freq := p.Frequency
			for o := 0; o < p.Octaves; o++ {
				sum += amp * valueNoise(p.Seed+int64(o)*7919, u*freq, v*freq)
				amp *= p.Persistence
				freq *= p.Lacunarity
			}
			g.SetHeight(i, j, sum/norm*p.Scale.Z())
		}
	}
	return g, nil
}

// valueNoise returns smoothly interpolated lattice noise in [0, 1).
func valueNoise(seed int64, x, y float32) float32 {
	x0 := math32.Floor(x)
	y0 := math32.Floor(y)
	ix, iy := int64(x0), int64(y0)

	tx := smoothstep(x - x0)
	ty := smoothstep(y - y0)

	a := lattice(seed, ix, iy)
	b := lattice(seed, ix+1, iy)
	c := lattice(seed, ix, iy+1)
	d := lattice(seed, ix+1, iy+1)

	return lerp(lerp(a, b, tx), lerp(c, d, tx), ty)
}

func lattice(seed, x, y int64) float32 {
	h := uint64(seed)*0x9E3779B97F4A7C15 ^ uint64(x)*0xBF58476D1CE4E5B9 ^ uint64(y)*0x94D049BB133111EB
	h ^= h >> 31
	h *= 0xD6E8FEB86659FD93
	h ^= h >> 32
	return float32(h>>40) / float32(1<<24)
}

func smoothstep(t float32) float32 {
	return t * t * (3 - 2*t)
}
