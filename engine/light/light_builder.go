package light

// SunBuilderOption mutates a sunImpl during construction.
type SunBuilderOption func(*sunImpl)

// WithDirection sets the initial direction toward the sun (normalized on
// assignment).
//
// Parameters:
//   - x, y, z: direction components
//
// Returns:
//   - SunBuilderOption: the builder option
func WithDirection(x, y, z float32) SunBuilderOption {
	return func(s *sunImpl) {
		s.direction = normalize3(x, y, z)
	}
}

// WithElevationAzimuth sets the initial sun position from horizontal
// coordinates (radians).
//
// Parameters:
//   - elevation: angle above the horizon in radians
//   - azimuth: rotation around the up axis in radians
//
// Returns:
//   - SunBuilderOption: the builder option
func WithElevationAzimuth(elevation, azimuth float32) SunBuilderOption {
	return func(s *sunImpl) {
		s.SetElevationAzimuth(elevation, azimuth)
	}
}

// WithIrradiance sets the per-channel solar irradiance.
//
// Parameters:
//   - r, g, b: irradiance components
//
// Returns:
//   - SunBuilderOption: the builder option
func WithIrradiance(r, g, b float32) SunBuilderOption {
	return func(s *sunImpl) {
		s.irradiance = [3]float32{r, g, b}
	}
}

// WithAngularRadius sets the sun's angular radius in radians.
//
// Parameters:
//   - angularRadius: angular radius in radians
//
// Returns:
//   - SunBuilderOption: the builder option
func WithAngularRadius(angularRadius float32) SunBuilderOption {
	return func(s *sunImpl) {
		s.angularRadius = angularRadius
	}
}

// WithIntensity sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - SunBuilderOption: the builder option
func WithIntensity(intensity float32) SunBuilderOption {
	return func(s *sunImpl) {
		s.intensity = intensity
	}
}
