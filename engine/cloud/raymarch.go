package cloud

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DensityField supplies the two sampling tiers of the march: a coarse weather
// read that gates accumulation, and the detailed shape density paid only when
// the coarse read passes.
type DensityField interface {
	// Coarse returns the weather channels at a world position relative to the
	// planet center: coverage, cloud type, wetness.
	Coarse(point mgl64.Vec3) (coverage, cloudType, wetness float64)

	// Detailed returns the full shape density at a world position relative to
	// the planet center, before the layer's density scale is applied.
	Detailed(point mgl64.Vec3) float64
}

// Occluder answers whether a world-space sample point is hidden behind opaque
// scene geometry. A nil Occluder disables the test.
type Occluder interface {
	// Occluded reports whether the point is behind the scene's recorded depth
	// at its screen position. Points outside the camera frustum are never
	// occluded.
	Occluded(point mgl64.Vec3) bool
}

// Result is the per-pixel output of one march: the depth of the farthest
// contributing cloud sample, the mean extinction over contributing samples,
// the accumulated optical depth, and a validity flag. Valid == 0 means no
// sample contributed and FrontDepth carries the segment's max distance
// sentinel.
type Result struct {
	FrontDepth      float64
	MeanExtinction  float64
	MaxOpticalDepth float64
	Valid           float64

	// Steps is the number of march iterations executed, including the
	// terminating one.
	Steps int
}

// Marcher runs the Setup-March-Terminate loop for one ray against a cloud
// layer. Stateless per call; one Marcher serves all pixels and cascades.
type Marcher interface {
	// March integrates cloud density along a ray. The jitter in [0, 1) pulls
	// the start distance back by a fraction of a step to decorrelate banding
	// across pixels. A nil occluder skips scene depth testing.
	//
	// Parameters:
	//   - origin: ray origin relative to the planet center
	//   - dir: unit ray direction
	//   - layer: the cloud band to march
	//   - field: density supplier for the layer
	//   - bottomRadius: planet surface radius in meters
	//   - jitter: start offset fraction in [0, 1)
	//   - occluder: optional opaque scene occlusion test
	//
	// Returns:
	//   - Result: accumulated march output
	March(origin, dir mgl64.Vec3, layer *Layer, field DensityField, bottomRadius, jitter float64, occluder Occluder) Result

	// Params packs the marcher's budget and a layer into the GPU uniform
	// payload for one cascade dispatch.
	//
	// Parameters:
	//   - layer: the cloud band
	//   - bottomRadius: planet surface radius in meters
	//   - blueNoiseW, blueNoiseH, blueNoiseD: jitter texture tiling period
	//   - frame: frame index for temporal jitter
	//
	// Returns:
	//   - GPUCloudParams: the uniform payload
	Params(layer *Layer, bottomRadius float64, blueNoiseW, blueNoiseH, blueNoiseD, frame int) GPUCloudParams
}

type marcherImpl struct {
	maxIterations    int
	minStepSize      float64
	maxStepSize      float64
	minDensity       float64
	minTransmittance float64
	maxRayDistance   float64
}

var _ Marcher = &marcherImpl{}

type MarcherBuilderOption func(*marcherImpl)

// NewMarcher creates a cloud raymarcher with the default budget: 128
// iterations, steps clamped to [50, 2000] meters, densities below 1e-3
// ignored, early exit below 5e-3 transmittance, 50 km maximum ray distance.
//
// Parameters:
//   - opts: functional options to configure the marcher
//
// Returns:
//   - Marcher: the configured marcher
func NewMarcher(opts ...MarcherBuilderOption) Marcher {
	m := &marcherImpl{
		maxIterations:    128,
		minStepSize:      50,
		maxStepSize:      2000,
		minDensity:       1e-3,
		minTransmittance: 5e-3,
		maxRayDistance:   50000,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.maxIterations < 1 {
		panic("cloud: marcher iteration budget must be at least 1")
	}
	if m.minStepSize <= 0 || m.maxStepSize < m.minStepSize {
		panic("cloud: marcher step size bounds must satisfy 0 < min <= max")
	}
	return m
}

// WithMaxIterations sets the per-ray iteration budget.
//
// Parameters:
//   - n: maximum march steps, at least 1
//
// Returns:
//   - MarcherBuilderOption: a function that sets the iteration budget
func WithMaxIterations(n int) MarcherBuilderOption {
	return func(m *marcherImpl) {
		m.maxIterations = n
	}
}

// WithStepSize sets the step length clamp in meters.
//
// Parameters:
//   - minStep, maxStep: step length bounds in meters
//
// Returns:
//   - MarcherBuilderOption: a function that sets the step bounds
func WithStepSize(minStep, maxStep float64) MarcherBuilderOption {
	return func(m *marcherImpl) {
		m.minStepSize = minStep
		m.maxStepSize = maxStep
	}
}

// WithMinDensity sets the density floor below which a sample is skipped.
//
// Parameters:
//   - d: minimum contributing density
//
// Returns:
//   - MarcherBuilderOption: a function that sets the density floor
func WithMinDensity(d float64) MarcherBuilderOption {
	return func(m *marcherImpl) {
		m.minDensity = d
	}
}

// WithMinTransmittance sets the early-exit transmittance threshold.
//
// Parameters:
//   - t: transmittance at or below which the march stops
//
// Returns:
//   - MarcherBuilderOption: a function that sets the early-exit threshold
func WithMinTransmittance(t float64) MarcherBuilderOption {
	return func(m *marcherImpl) {
		m.minTransmittance = t
	}
}

// WithMaxRayDistance sets the maximum march distance in meters.
//
// Parameters:
//   - d: maximum distance along the ray
//
// Returns:
//   - MarcherBuilderOption: a function that sets the distance cap
func WithMaxRayDistance(d float64) MarcherBuilderOption {
	return func(m *marcherImpl) {
		m.maxRayDistance = d
	}
}

// structureNormal returns the sampling plane normal for a ray direction: the
// unit diagonal whose component signs match the direction's. All rays sharing
// a normal snap their samples onto the same world-fixed plane lattice, so a
// sub-step camera translation does not slide the sample pattern through the
// volume.
//
// Parameters:
//   - dir: unit ray direction
//
// Returns:
//   - mgl64.Vec3: the matching diagonal lattice normal
func structureNormal(dir mgl64.Vec3) mgl64.Vec3 {
	const inv = 0.5773502691896258
	return mgl64.Vec3{
		math.Copysign(inv, dir.X()),
		math.Copysign(inv, dir.Y()),
		math.Copysign(inv, dir.Z()),
	}
}

func (m *marcherImpl) March(origin, dir mgl64.Vec3, layer *Layer, field DensityField, bottomRadius, jitter float64, occluder Occluder) Result {
	// Setup: bound the segment by the layer's shell pair and the distance
	// budget, derive the step from the budget, snap the start onto the
	// structure plane lattice, and jitter it backward so neighboring pixels
	// sample decorrelated depths.
	near, far, ok := layer.MarchSegment(origin, dir, bottomRadius)
	if !ok || near >= m.maxRayDistance {
		return Result{FrontDepth: m.maxRayDistance}
	}
	far = math.Min(far, m.maxRayDistance)

	stepSize := m.maxRayDistance / float64(m.maxIterations)
	stepSize = math.Min(math.Max(stepSize, m.minStepSize), m.maxStepSize)

	// Plane-aligned sampling: quantize the start distance so every sample
	// lands on a world-fixed plane perpendicular to the structure normal,
	// spaced one step apart along the ray. The bias keeps a start sitting
	// numerically on a plane from snapping one plane back.
	normal := structureNormal(dir)
	alongNormal := dir.Dot(normal)
	spacing := stepSize * alongNormal
	base := origin.Dot(normal)
	planeIndex := math.Floor((base+near*alongNormal)/spacing + 1e-4)
	rayDistance := (planeIndex*spacing - base) / alongNormal

	rayDistance -= stepSize * jitter
	if rayDistance < 0 {
		rayDistance = 0
	}

	var (
		frontDepth    float64
		extinctionSum float64
		opticalDepth  float64
		transmittance = 1.0
		sampleCount   int
		steps         int
	)

	// March.
	for i := 0; i < m.maxIterations; i++ {
		steps++
		rayDistance += stepSize
		if rayDistance > far {
			break
		}
		point := origin.Add(dir.Mul(rayDistance))

		coverage, cloudType, wetness := field.Coarse(point)
		if coverage < m.minDensity && cloudType < m.minDensity && wetness < m.minDensity {
			continue
		}
		if occluder != nil && occluder.Occluded(point) {
			continue
		}

		density := field.Detailed(point)
		if density <= m.minDensity {
			continue
		}
		density *= layer.DensityScale

		frontDepth = math.Max(frontDepth, rayDistance)
		extinctionSum += density
		opticalDepth += density * stepSize
		transmittance *= math.Exp(-density * stepSize)
		sampleCount++

		// Terminate: the ray is effectively opaque, further samples cannot
		// change the output visibly.
		if transmittance <= m.minTransmittance {
			break
		}
	}

	if sampleCount == 0 {
		return Result{FrontDepth: m.maxRayDistance, Steps: steps}
	}
	return Result{
		FrontDepth:      frontDepth,
		MeanExtinction:  extinctionSum / float64(sampleCount),
		MaxOpticalDepth: opticalDepth,
		Valid:           1,
		Steps:           steps,
	}
}
