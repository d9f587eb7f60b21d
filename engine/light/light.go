package light

import "math"

// sunImpl is the implementation of the Sun interface.
type sunImpl struct {
	direction     [3]float32
	irradiance    [3]float32
	angularRadius float32
	intensity     float32
}

// Sun defines the interface for the directional sun light driving the sky,
// cloud, and shadow passes. The direction is the unit vector pointing from the
// scene toward the sun; the atmosphere evaluator, the cloud raymarcher's Beer
// shadow bake, and the cascade fitter all consume the same vector.
type Sun interface {
	// Direction returns the normalized unit vector pointing toward the sun.
	//
	// Returns:
	//   - [3]float32: normalized direction as (x, y, z)
	Direction() [3]float32

	// Irradiance returns the top-of-atmosphere solar irradiance per channel.
	//
	// Returns:
	//   - [3]float32: irradiance as (r, g, b)
	Irradiance() [3]float32

	// AngularRadius returns the sun's angular radius in radians. Used by the
	// atmosphere evaluator's soft horizon term and the solid-angle radiance
	// conversion.
	//
	// Returns:
	//   - float32: angular radius in radians
	AngularRadius() float32

	// Intensity returns the scalar multiplier applied on top of the irradiance.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Elevation returns the angle of the sun above the horizon in radians.
	// Negative when the sun is below the horizon.
	//
	// Returns:
	//   - float32: elevation angle in radians
	Elevation() float32

	// SetDirection sets the direction toward the sun and normalizes it.
	//
	// Parameters:
	//   - x, y, z: direction components (will be normalized)
	SetDirection(x, y, z float32)

	// SetElevationAzimuth positions the sun from horizontal coordinates.
	// Elevation is measured from the horizon (+Y up), azimuth around +Y
	// starting from +Z.
	//
	// Parameters:
	//   - elevation: angle above the horizon in radians
	//   - azimuth: rotation around the up axis in radians
	SetElevationAzimuth(elevation, azimuth float32)

	// SetIrradiance sets the per-channel solar irradiance.
	//
	// Parameters:
	//   - r, g, b: irradiance components
	SetIrradiance(r, g, b float32)

	// SetAngularRadius sets the sun's angular radius in radians.
	//
	// Parameters:
	//   - angularRadius: angular radius in radians
	SetAngularRadius(angularRadius float32)

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the intensity value
	SetIntensity(intensity float32)

	// GPU returns the GPU-aligned uniform snapshot of the current sun state.
	//
	// Returns:
	//   - GPUSunLight: the packed uniform
	GPU() GPUSunLight
}

var _ Sun = &sunImpl{}

// NewSun creates a new Sun with physically plausible defaults: noon position
// straight overhead, the Bruneton reference solar irradiance, and the real
// sun's angular radius (0.00935 / 2 radians).
//
// Parameters:
//   - opts: variadic list of SunBuilderOption functions to configure the sun
//
// Returns:
//   - Sun: a new Sun instance
func NewSun(opts ...SunBuilderOption) Sun {
	s := &sunImpl{
		direction:     [3]float32{0, 1, 0},
		irradiance:    [3]float32{1.474, 1.8504, 1.91198},
		angularRadius: 0.004675,
		intensity:     1.0,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *sunImpl) Direction() [3]float32 {
	return s.direction
}

func (s *sunImpl) Irradiance() [3]float32 {
	return s.irradiance
}

func (s *sunImpl) AngularRadius() float32 {
	return s.angularRadius
}

func (s *sunImpl) Intensity() float32 {
	return s.intensity
}

func (s *sunImpl) Elevation() float32 {
	return float32(math.Asin(float64(clamp1(s.direction[1]))))
}

func (s *sunImpl) SetDirection(x, y, z float32) {
	s.direction = normalize3(x, y, z)
}

func (s *sunImpl) SetElevationAzimuth(elevation, azimuth float32) {
	cosE := float32(math.Cos(float64(elevation)))
	s.direction = [3]float32{
		cosE * float32(math.Sin(float64(azimuth))),
		float32(math.Sin(float64(elevation))),
		cosE * float32(math.Cos(float64(azimuth))),
	}
}

func (s *sunImpl) SetIrradiance(r, g, b float32) {
	s.irradiance = [3]float32{r, g, b}
}

func (s *sunImpl) SetAngularRadius(angularRadius float32) {
	s.angularRadius = angularRadius
}

func (s *sunImpl) SetIntensity(intensity float32) {
	s.intensity = intensity
}

// normalize3 returns the unit vector of (x, y, z). A zero-length input falls
// back to straight up so downstream dot products stay finite.
func normalize3(x, y, z float32) [3]float32 {
	lenSq := float64(x)*float64(x) + float64(y)*float64(y) + float64(z)*float64(z)
	if lenSq == 0 {
		return [3]float32{0, 1, 0}
	}
	inv := float32(1.0 / math.Sqrt(lenSq))
	return [3]float32{x * inv, y * inv, z * inv}
}

func clamp1(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
