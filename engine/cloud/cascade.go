package cloud

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// MaxCascades is the compiled upper bound on cloud and shadow cascades. Sets
// may be constructed with fewer, never more.
const MaxCascades = 4

// Cascade describes one independently marched depth interval: its own
// view-projection (and inverse) for ray generation, a stored reprojection
// matrix mapping current world positions into the previous frame's clip
// space, and a mip hint that lets far cascades sample coarser noise.
type Cascade struct {
	// Near and Far bound the cascade's interval in view depth, meters.
	Near float64
	Far  float64

	// ViewProj and InvViewProj generate and unproject rays for this cascade.
	ViewProj    mgl64.Mat4
	InvViewProj mgl64.Mat4

	// Reprojection is last frame's ViewProj, captured before the current
	// update overwrote it.
	Reprojection mgl64.Mat4

	// MipHint selects the noise mip level for this cascade's marches.
	MipHint int
}

// CascadeSet is an ordered, contiguous sequence of cascades over view depth.
type CascadeSet struct {
	cascades []Cascade
}

// NewCascadeSet creates a cascade set and checks the interval invariants:
// between 1 and MaxCascades entries, intervals contiguous and
// non-overlapping.
//
// Parameters:
//   - cascades: ordered cascade descriptors
//
// Returns:
//   - *CascadeSet: the validated set, panics on invariant violation
func NewCascadeSet(cascades []Cascade) *CascadeSet {
	if len(cascades) < 1 || len(cascades) > MaxCascades {
		panic(fmt.Sprintf("cloud: cascade count must be in [1, %d], got %d", MaxCascades, len(cascades)))
	}
	for i, c := range cascades {
		if c.Far <= c.Near {
			panic(fmt.Sprintf("cloud: cascade %d has far %v <= near %v", i, c.Far, c.Near))
		}
		if i > 0 && c.Near != cascades[i-1].Far {
			panic(fmt.Sprintf("cloud: cascade %d starts at %v, previous ends at %v", i, c.Near, cascades[i-1].Far))
		}
	}
	return &CascadeSet{cascades: append([]Cascade(nil), cascades...)}
}

// Count returns the number of cascades in the set.
//
// Returns:
//   - int: cascade count
func (s *CascadeSet) Count() int {
	return len(s.cascades)
}

// Cascade returns the descriptor at index i.
//
// Parameters:
//   - i: cascade index
//
// Returns:
//   - *Cascade: the descriptor
func (s *CascadeSet) Cascade(i int) *Cascade {
	return &s.cascades[i]
}

// Update replaces a cascade's matrices for the new frame, capturing the old
// view-projection as the reprojection matrix for temporal accumulation.
//
// Parameters:
//   - i: cascade index
//   - viewProj: this frame's view-projection matrix
func (s *CascadeSet) Update(i int, viewProj mgl64.Mat4) {
	c := &s.cascades[i]
	c.Reprojection = c.ViewProj
	c.ViewProj = viewProj
	c.InvViewProj = viewProj.Inv()
}

// Velocity returns the screen-space motion vector for a marched point: the
// current UV minus the UV the same world point had under the cascade's
// reprojection matrix. It is the reference for the compute kernel's velocity
// output, which the GPU temporal resolve consumes to fetch history; the CPU
// path carries no resolve stage of its own. ok is false when the
// previous-frame projection is degenerate, in which case history should be
// rejected for this pixel.
//
// Parameters:
//   - c: the cascade the point was marched in
//   - currentUV: this frame's normalized screen position of the point
//   - worldPoint: the front-depth world position of the marched cloud matter
//
// Returns:
//   - velocity: current UV minus previous-frame UV
//   - ok: false when the point was behind the previous frame's camera
func Velocity(c *Cascade, currentUV mgl64.Vec2, worldPoint mgl64.Vec3) (velocity mgl64.Vec2, ok bool) {
	prev := c.Reprojection.Mul4x1(mgl64.Vec4{worldPoint[0], worldPoint[1], worldPoint[2], 1})
	if prev[3] <= 0 {
		return mgl64.Vec2{}, false
	}
	prevUV := mgl64.Vec2{
		(prev[0]/prev[3] + 1) / 2,
		(1 - prev[1]/prev[3]) / 2,
	}
	return currentUV.Sub(prevUV), true
}
