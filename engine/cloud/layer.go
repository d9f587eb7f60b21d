package cloud

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Layer is one vertical cloud density band around the planet. Heights are
// meters above the planet surface. The weather offset scrolls the coverage
// field each frame to animate drift; everything else is stable per frame.
type Layer struct {
	// MinHeight and MaxHeight bound the band above the planet surface.
	MinHeight float64
	MaxHeight float64

	// DensityScale multiplies the sampled shape density before accumulation.
	DensityScale float64

	// Vertical density shape across the band, evaluated on the normalized
	// in-band height: ExpTerm*exp(ExpScale*h) + LinearTerm*h + ConstantTerm,
	// clamped to [0, 1].
	ExpTerm      float64
	ExpScale     float64
	LinearTerm   float64
	ConstantTerm float64

	// WeatherOffsetU and WeatherOffsetV shift the coverage lookup, animated
	// per frame.
	WeatherOffsetU float64
	WeatherOffsetV float64
}

// NewLayer creates a cloud layer with the default cumulus density shape.
//
// Parameters:
//   - minHeight, maxHeight: band bounds in meters above the surface
//
// Returns:
//   - *Layer: the layer, panics when maxHeight <= minHeight
func NewLayer(minHeight, maxHeight float64) *Layer {
	l := &Layer{
		MinHeight:    minHeight,
		MaxHeight:    maxHeight,
		DensityScale: 5,
		ExpTerm:      0,
		ExpScale:     0,
		LinearTerm:   -4,
		ConstantTerm: 2,
	}
	l.validate()
	return l
}

func (l *Layer) validate() {
	if l.MaxHeight <= l.MinHeight {
		panic(fmt.Sprintf("cloud: layer max height %v must exceed min height %v", l.MaxHeight, l.MinHeight))
	}
	if l.DensityScale < 0 {
		panic(fmt.Sprintf("cloud: layer density scale must not be negative, got %v", l.DensityScale))
	}
}

// HeightFraction returns the normalized position of a world point inside the
// band, 0 at the bottom shell and 1 at the top, relative to the planet
// surface radius.
//
// Parameters:
//   - point: world position relative to the planet center
//   - bottomRadius: planet surface radius in meters
//
// Returns:
//   - float64: normalized in-band height, clamped to [0, 1]
func (l *Layer) HeightFraction(point mgl64.Vec3, bottomRadius float64) float64 {
	h := point.Len() - bottomRadius
	f := (h - l.MinHeight) / (l.MaxHeight - l.MinHeight)
	return math.Min(math.Max(f, 0), 1)
}

// Shape evaluates the vertical density profile at a normalized in-band
// height. The default shape peaks near the band's lower half and tapers to
// zero at the top, the usual cumulus silhouette.
//
// Parameters:
//   - heightFraction: normalized in-band height in [0, 1]
//
// Returns:
//   - float64: vertical density factor, clamped to [0, 1]
func (l *Layer) Shape(heightFraction float64) float64 {
	v := l.ExpTerm*math.Exp(l.ExpScale*heightFraction) + l.LinearTerm*heightFraction + l.ConstantTerm
	// A hard zero at the very bottom avoids clouds intersecting the ground
	// shell when the band starts at the surface.
	v *= math.Min(heightFraction*10, 1)
	return math.Min(math.Max(v, 0), 1)
}

// raySphere returns the distances along the ray to a sphere of the given
// radius around center. ok is false when the ray misses.
func raySphere(origin, dir, center mgl64.Vec3, radius float64) (near, far float64, ok bool) {
	oc := origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, 0, false
	}
	s := math.Sqrt(disc)
	return -b - s, -b + s, true
}

// unboundedFarDistance caps the march segment when the far shell is missed.
// Large enough to cross the whole band at grazing angles, finite so the
// arithmetic downstream never sees Inf.
const unboundedFarDistance = 1e7

// MarchSegment computes the ray segment that crosses the layer's shell pair
// around the planet center. The segment is clamped to start at the ray
// origin; a miss on the far shell while inside the band is treated as
// unbounded and capped at a large finite distance.
//
// Parameters:
//   - origin: ray origin relative to the planet center
//   - dir: unit ray direction
//   - bottomRadius: planet surface radius in meters
//
// Returns:
//   - near: segment start distance along the ray, >= 0
//   - far: segment end distance along the ray
//   - ok: false when the ray misses the band entirely
func (l *Layer) MarchSegment(origin, dir mgl64.Vec3, bottomRadius float64) (near, far float64, ok bool) {
	center := mgl64.Vec3{}
	innerNear, innerFar, innerHit := raySphere(origin, dir, center, bottomRadius+l.MinHeight)
	outerNear, outerFar, outerHit := raySphere(origin, dir, center, bottomRadius+l.MaxHeight)

	r := origin.Len()
	switch {
	case r < bottomRadius+l.MinHeight:
		// Below the band: enter at the inner shell, leave at the outer.
		if !outerHit || outerFar <= 0 {
			return 0, 0, false
		}
		near = math.Max(innerFar, 0)
		far = outerFar
	case r <= bottomRadius+l.MaxHeight:
		// Inside the band: start at the origin, stop at the inner shell when
		// looking down or the outer shell when looking up.
		near = 0
		far = unboundedFarDistance
		if innerHit && innerNear > 0 {
			far = innerNear
		} else if outerHit && outerFar > 0 {
			far = math.Min(far, outerFar)
		}
	default:
		// Above the band: enter at the outer shell.
		if !outerHit || outerNear <= 0 {
			return 0, 0, false
		}
		near = outerNear
		far = outerFar
		if innerHit && innerNear > near {
			far = innerNear
		}
	}
	if far <= near {
		return 0, 0, false
	}
	return near, far, true
}
