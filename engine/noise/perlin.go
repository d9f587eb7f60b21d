package noise

import "math"

// Perlin is a seeded, tileable 3D Perlin noise generator. The permutation
// table is fixed at construction, so output is deterministic for a given
// (seed, coordinate, period).
type Perlin struct {
	perm [512]int
}

// NewPerlin creates a Perlin noise generator from a seed.
//
// Parameters:
//   - seed: permutation table seed
//
// Returns:
//   - *Perlin: the seeded generator
func NewPerlin(seed int64) *Perlin {
	p := &Perlin{}

	var base [256]int
	for i := range base {
		base[i] = i
	}

	// Fisher-Yates shuffle driven by an LCG so the table does not depend on
	// math/rand's generator changing between Go releases.
	s := seed
	for i := 255; i > 0; i-- {
		s = s*6364136223846793005 + 1442695040888963407
		j := int(uint64(s>>16) % uint64(i+1))
		base[i], base[j] = base[j], base[i]
	}

	for i := 0; i < 256; i++ {
		p.perm[i] = base[i]
		p.perm[i+256] = base[i]
	}
	return p
}

// fade applies the quintic smoothstep 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

// grad3 projects the distance vector onto one of the 12 cube-edge gradients.
func grad3(hash int, x, y, z float64) float64 {
	switch hash & 15 {
	case 0:
		return x + y
	case 1:
		return -x + y
	case 2:
		return x - y
	case 3:
		return -x - y
	case 4:
		return x + z
	case 5:
		return -x + z
	case 6:
		return x - z
	case 7:
		return -x - z
	case 8:
		return y + z
	case 9:
		return -y + z
	case 10:
		return y - z
	case 11:
		return -y - z
	case 12:
		return y + x
	case 13:
		return -y + z
	case 14:
		return y - x
	default:
		return -y - z
	}
}

// Noise3 computes tileable 3D Perlin noise at (x, y, z) in cell units. The
// field repeats every period cells along each axis. Returns a value roughly
// in [-1, 1].
//
// Parameters:
//   - x, y, z: sample position in cell units
//   - period: tiling period in cells (must be > 0)
//
// Returns:
//   - float64: noise value, roughly in [-1, 1]
func (p *Perlin) Noise3(x, y, z float64, period int) float64 {
	xi := int(math.Floor(x))
	yi := int(math.Floor(y))
	zi := int(math.Floor(z))

	xf := x - math.Floor(x)
	yf := y - math.Floor(y)
	zf := z - math.Floor(z)

	u := fade(xf)
	v := fade(yf)
	w := fade(zf)

	// Wrapping the lattice coordinates by the period makes the field tile.
	h := func(cx, cy, cz int) int {
		cx = ((cx % period) + period) % period
		cy = ((cy % period) + period) % period
		cz = ((cz % period) + period) % period
		return p.perm[p.perm[p.perm[cx&255]+cy&255]+cz&255]
	}

	x0 := lerp(u,
		grad3(h(xi, yi, zi), xf, yf, zf),
		grad3(h(xi+1, yi, zi), xf-1, yf, zf))
	x1 := lerp(u,
		grad3(h(xi, yi+1, zi), xf, yf-1, zf),
		grad3(h(xi+1, yi+1, zi), xf-1, yf-1, zf))
	x2 := lerp(u,
		grad3(h(xi, yi, zi+1), xf, yf, zf-1),
		grad3(h(xi+1, yi, zi+1), xf-1, yf, zf-1))
	x3 := lerp(u,
		grad3(h(xi, yi+1, zi+1), xf, yf-1, zf-1),
		grad3(h(xi+1, yi+1, zi+1), xf-1, yf-1, zf-1))

	return lerp(w, lerp(v, x0, x1), lerp(v, x2, x3))
}
