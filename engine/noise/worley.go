package noise

import "math"

// Worley is a seeded, tileable 3D Worley (cellular) noise generator. Each
// lattice cell holds one feature point at a hashed offset; the noise value is
// the distance to the nearest feature point, normalized so a sample at a
// feature point reads 0 and the furthest possible sample reads about 1.
type Worley struct {
	seed uint64
}

// NewWorley creates a Worley noise generator from a seed.
//
// Parameters:
//   - seed: feature point hash seed
//
// Returns:
//   - *Worley: the seeded generator
func NewWorley(seed int64) *Worley {
	return &Worley{seed: uint64(seed)}
}

// hash mixes the cell coordinates and a channel index into a uniform 64-bit
// value (splitmix64 finalizer).
func (w *Worley) hash(cx, cy, cz, channel int) uint64 {
	h := w.seed
	h ^= uint64(cx)*0x9e3779b97f4a7c15 ^ uint64(cy)*0xbf58476d1ce4e5b9 ^ uint64(cz)*0x94d049bb133111eb ^ uint64(channel)*0xd6e8feb86659fd93
	h ^= h >> 30
	h *= 0xbf58476d1ce4e5b9
	h ^= h >> 27
	h *= 0x94d049bb133111eb
	h ^= h >> 31
	return h
}

// featurePoint returns the feature point offset inside cell (cx, cy, cz),
// each component in [0, 1).
func (w *Worley) featurePoint(cx, cy, cz int) (fx, fy, fz float64) {
	const inv = 1.0 / (1 << 53)
	fx = float64(w.hash(cx, cy, cz, 0)>>11) * inv
	fy = float64(w.hash(cx, cy, cz, 1)>>11) * inv
	fz = float64(w.hash(cx, cy, cz, 2)>>11) * inv
	return fx, fy, fz
}

// Noise3 computes tileable 3D Worley noise at (x, y, z) in cell units. The
// field repeats every period cells along each axis. Returns the normalized
// distance to the nearest feature point, in [0, 1].
//
// Parameters:
//   - x, y, z: sample position in cell units
//   - period: tiling period in cells (must be > 0)
//
// Returns:
//   - float64: normalized nearest-feature distance in [0, 1]
func (w *Worley) Noise3(x, y, z float64, period int) float64 {
	xi := int(math.Floor(x))
	yi := int(math.Floor(y))
	zi := int(math.Floor(z))

	wrap := func(c int) int {
		return ((c % period) + period) % period
	}

	minDistSq := math.MaxFloat64
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				cx, cy, cz := xi+dx, yi+dy, zi+dz
				fx, fy, fz := w.featurePoint(wrap(cx), wrap(cy), wrap(cz))
				px := float64(cx) + fx
				py := float64(cy) + fy
				pz := float64(cz) + fz
				dxp, dyp, dzp := px-x, py-y, pz-z
				distSq := dxp*dxp + dyp*dyp + dzp*dzp
				if distSq < minDistSq {
					minDistSq = distSq
				}
			}
		}
	}

	// The nearest feature point is never further than one cell diagonal away;
	// in practice distances stay well under 1, so clamp instead of dividing
	// by the theoretical bound.
	return math.Min(math.Sqrt(minDistSq), 1)
}

// InvertedNoise3 is 1 - Noise3, producing bright blobs around feature points.
// This is the base field for cumulus-style cloud shapes.
//
// Parameters:
//   - x, y, z: sample position in cell units
//   - period: tiling period in cells (must be > 0)
//
// Returns:
//   - float64: inverted normalized distance in [0, 1]
func (w *Worley) InvertedNoise3(x, y, z float64, period int) float64 {
	return 1 - w.Noise3(x, y, z, period)
}
