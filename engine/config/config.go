package config

import (
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/strato-gfx/strato-go/engine/atmosphere"
	"github.com/strato-gfx/strato-go/engine/cloud"
	"github.com/strato-gfx/strato-go/engine/shadow"
)

// Config is the full YAML-backed settings surface for the sky pipeline. All
// sections carry working defaults; a settings file only needs the values it
// overrides. Loaded configs are validated before use so a typo in a settings
// file surfaces as an error, not a corrupt bake.
type Config struct {
	Atmosphere AtmosphereConfig `yaml:"atmosphere"`
	Cloud      CloudConfig      `yaml:"cloud"`
	Shadow     ShadowConfig     `yaml:"shadow"`
}

// DensityLayerConfig mirrors one atmosphere density profile layer:
// density(h) = exp_term * exp(exp_scale * h) + linear_term * h + constant_term.
type DensityLayerConfig struct {
	Width        float64 `yaml:"width"`
	ExpTerm      float64 `yaml:"exp_term"`
	ExpScale     float64 `yaml:"exp_scale"`
	LinearTerm   float64 `yaml:"linear_term"`
	ConstantTerm float64 `yaml:"constant_term"`
}

// AtmosphereConfig is the atmosphere profile section. Distances in meters,
// angles in radians, spectral triples as linear RGB.
type AtmosphereConfig struct {
	BottomRadius         float64              `yaml:"bottom_radius"`
	TopRadius            float64              `yaml:"top_radius"`
	SunAngularRadius     float64              `yaml:"sun_angular_radius"`
	SolarIrradiance      [3]float64           `yaml:"solar_irradiance"`
	RayleighScattering   [3]float64           `yaml:"rayleigh_scattering"`
	RayleighDensity      []DensityLayerConfig `yaml:"rayleigh_density"`
	MieScattering        [3]float64           `yaml:"mie_scattering"`
	MieExtinction        [3]float64           `yaml:"mie_extinction"`
	MieDensity           []DensityLayerConfig `yaml:"mie_density"`
	MiePhaseG            float64              `yaml:"mie_phase_g"`
	AbsorptionExtinction [3]float64           `yaml:"absorption_extinction"`
	AbsorptionDensity    []DensityLayerConfig `yaml:"absorption_density"`
	GroundAlbedo         [3]float64           `yaml:"ground_albedo"`
	MaxSunZenithDegrees  float64              `yaml:"max_sun_zenith_degrees"`
	ScatteringOrders     int                  `yaml:"scattering_orders"`
}

// CloudConfig is the cloud layer and raymarch budget section.
type CloudConfig struct {
	MinHeight        float64 `yaml:"min_height"`
	MaxHeight        float64 `yaml:"max_height"`
	DensityScale     float64 `yaml:"density_scale"`
	MaxIterations    int     `yaml:"max_iterations"`
	MinStepSize      float64 `yaml:"min_step_size"`
	MaxStepSize      float64 `yaml:"max_step_size"`
	MinDensity       float64 `yaml:"min_density"`
	MinTransmittance float64 `yaml:"min_transmittance"`
	MaxRayDistance   float64 `yaml:"max_ray_distance"`
}

// ShadowConfig is the cascaded shadow map section.
type ShadowConfig struct {
	CascadeCount             int     `yaml:"cascade_count"`
	MapSize                  int     `yaml:"map_size"`
	SplitMode                string  `yaml:"split_mode"`
	Lambda                   float32 `yaml:"lambda"`
	Margin                   float32 `yaml:"margin"`
	Fade                     bool    `yaml:"fade"`
	DisableLastCascadeCutoff bool    `yaml:"disable_last_cascade_cutoff"`
	MaxShadowDistance        float32 `yaml:"max_shadow_distance"`
}

// Default returns the working configuration: the reference Earth atmosphere,
// the default cumulus raymarch budget, and a 4-cascade practical-split CSM.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	earth := atmosphere.EarthParameters()
	return Config{
		Atmosphere: AtmosphereConfig{
			BottomRadius:         earth.BottomRadius,
			TopRadius:            earth.TopRadius,
			SunAngularRadius:     earth.SunAngularRadius,
			SolarIrradiance:      vec3ToArray(earth.SolarIrradiance),
			RayleighScattering:   vec3ToArray(earth.RayleighScattering),
			RayleighDensity:      profileToLayers(earth.RayleighDensity),
			MieScattering:        vec3ToArray(earth.MieScattering),
			MieExtinction:        vec3ToArray(earth.MieExtinction),
			MieDensity:           profileToLayers(earth.MieDensity),
			MiePhaseG:            earth.MiePhaseFunctionG,
			AbsorptionExtinction: vec3ToArray(earth.AbsorptionExtinction),
			AbsorptionDensity:    profileToLayers(earth.AbsorptionDensity),
			GroundAlbedo:         vec3ToArray(earth.GroundAlbedo),
			MaxSunZenithDegrees:  102.0,
			ScatteringOrders:     4,
		},
		Cloud: CloudConfig{
			MinHeight:        1500,
			MaxHeight:        4000,
			DensityScale:     5,
			MaxIterations:    128,
			MinStepSize:      50,
			MaxStepSize:      2000,
			MinDensity:       1e-3,
			MinTransmittance: 5e-3,
			MaxRayDistance:   50000,
		},
		Shadow: ShadowConfig{
			CascadeCount:      shadow.MaxCascades,
			MapSize:           shadow.DefaultMapSize,
			SplitMode:         "practical",
			Lambda:            0.5,
			Margin:            50,
			Fade:              true,
			MaxShadowDistance: 500,
		},
	}
}

// Load reads a YAML settings file, overlays it on the defaults, and validates
// the result.
//
// Parameters:
//   - path: the settings file path
//
// Returns:
//   - Config: the merged, validated configuration
//   - error: read, parse, or validation failure
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse overlays YAML settings on the defaults and validates the result.
//
// Parameters:
//   - data: raw YAML bytes
//
// Returns:
//   - Config: the merged, validated configuration
//   - error: parse or validation failure
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every recognized option. Settings files are external input,
// so violations come back as errors rather than the builders' panics.
//
// Returns:
//   - error: the first violation found, or nil
func (c *Config) Validate() error {
	a := &c.Atmosphere
	if a.BottomRadius <= 0 || a.TopRadius <= a.BottomRadius {
		return fmt.Errorf("atmosphere: radii must satisfy 0 < bottom_radius < top_radius (got %g, %g)", a.BottomRadius, a.TopRadius)
	}
	if a.SunAngularRadius <= 0 {
		return fmt.Errorf("atmosphere: sun_angular_radius must be positive, got %g", a.SunAngularRadius)
	}
	if a.MiePhaseG <= -1 || a.MiePhaseG >= 1 {
		return fmt.Errorf("atmosphere: mie_phase_g must be in (-1, 1), got %g", a.MiePhaseG)
	}
	if a.MaxSunZenithDegrees <= 0 || a.MaxSunZenithDegrees > 180 {
		return fmt.Errorf("atmosphere: max_sun_zenith_degrees must be in (0, 180], got %g", a.MaxSunZenithDegrees)
	}
	if a.ScatteringOrders < 1 {
		return fmt.Errorf("atmosphere: scattering_orders must be at least 1, got %d", a.ScatteringOrders)
	}
	for name, layers := range map[string][]DensityLayerConfig{
		"rayleigh_density":   a.RayleighDensity,
		"mie_density":        a.MieDensity,
		"absorption_density": a.AbsorptionDensity,
	} {
		if len(layers) < 1 || len(layers) > 2 {
			return fmt.Errorf("atmosphere: %s must have 1 or 2 layers, got %d", name, len(layers))
		}
		for i, l := range layers {
			if l.Width < 0 {
				return fmt.Errorf("atmosphere: %s layer %d has negative width %g", name, i, l.Width)
			}
		}
	}

	cl := &c.Cloud
	if cl.MaxHeight <= cl.MinHeight {
		return fmt.Errorf("cloud: max_height %g must be above min_height %g", cl.MaxHeight, cl.MinHeight)
	}
	if cl.DensityScale <= 0 {
		return fmt.Errorf("cloud: density_scale must be positive, got %g", cl.DensityScale)
	}
	if cl.MaxIterations < 1 {
		return fmt.Errorf("cloud: max_iterations must be at least 1, got %d", cl.MaxIterations)
	}
	if cl.MinStepSize <= 0 || cl.MaxStepSize < cl.MinStepSize {
		return fmt.Errorf("cloud: step sizes must satisfy 0 < min_step_size <= max_step_size (got %g, %g)", cl.MinStepSize, cl.MaxStepSize)
	}
	if cl.MinDensity < 0 {
		return fmt.Errorf("cloud: min_density must not be negative, got %g", cl.MinDensity)
	}
	if cl.MinTransmittance <= 0 || cl.MinTransmittance >= 1 {
		return fmt.Errorf("cloud: min_transmittance must be in (0, 1), got %g", cl.MinTransmittance)
	}
	if cl.MaxRayDistance <= 0 {
		return fmt.Errorf("cloud: max_ray_distance must be positive, got %g", cl.MaxRayDistance)
	}

	s := &c.Shadow
	if s.CascadeCount < 1 || s.CascadeCount > shadow.MaxCascades {
		return fmt.Errorf("shadow: cascade_count must be in [1, %d], got %d", shadow.MaxCascades, s.CascadeCount)
	}
	if s.MapSize <= 0 {
		return fmt.Errorf("shadow: map_size must be positive, got %d", s.MapSize)
	}
	if _, err := shadow.ParseSplitMode(s.SplitMode); err != nil {
		return fmt.Errorf("shadow: %w", err)
	}
	if s.Lambda < 0 || s.Lambda > 1 {
		return fmt.Errorf("shadow: lambda must be in [0, 1], got %v", s.Lambda)
	}
	if s.Margin < 0 {
		return fmt.Errorf("shadow: margin must not be negative, got %v", s.Margin)
	}
	if s.MaxShadowDistance <= 0 {
		return fmt.Errorf("shadow: max_shadow_distance must be positive, got %v", s.MaxShadowDistance)
	}
	return nil
}

// Parameters converts the atmosphere section into the model's physical
// parameter struct.
//
// Returns:
//   - atmosphere.Parameters: the converted parameters
func (a *AtmosphereConfig) Parameters() atmosphere.Parameters {
	return atmosphere.Parameters{
		SolarIrradiance:      arrayToVec3(a.SolarIrradiance),
		SunAngularRadius:     a.SunAngularRadius,
		BottomRadius:         a.BottomRadius,
		TopRadius:            a.TopRadius,
		RayleighDensity:      layersToProfile(a.RayleighDensity),
		RayleighScattering:   arrayToVec3(a.RayleighScattering),
		MieDensity:           layersToProfile(a.MieDensity),
		MieScattering:        arrayToVec3(a.MieScattering),
		MieExtinction:        arrayToVec3(a.MieExtinction),
		MiePhaseFunctionG:    a.MiePhaseG,
		AbsorptionDensity:    layersToProfile(a.AbsorptionDensity),
		AbsorptionExtinction: arrayToVec3(a.AbsorptionExtinction),
		GroundAlbedo:         arrayToVec3(a.GroundAlbedo),
		MuSMin:               math.Cos(a.MaxSunZenithDegrees * math.Pi / 180.0),
	}
}

// ModelOptions converts the atmosphere section into model builder options.
//
// Returns:
//   - []atmosphere.ModelBuilderOption: options for atmosphere.NewModel
func (a *AtmosphereConfig) ModelOptions() []atmosphere.ModelBuilderOption {
	return []atmosphere.ModelBuilderOption{
		atmosphere.WithParameters(a.Parameters()),
		atmosphere.WithScatteringOrders(a.ScatteringOrders),
	}
}

// MarcherOptions converts the cloud section into raymarcher builder options.
//
// Returns:
//   - []cloud.MarcherBuilderOption: options for cloud.NewMarcher
func (c *CloudConfig) MarcherOptions() []cloud.MarcherBuilderOption {
	return []cloud.MarcherBuilderOption{
		cloud.WithMaxIterations(c.MaxIterations),
		cloud.WithStepSize(c.MinStepSize, c.MaxStepSize),
		cloud.WithMinDensity(c.MinDensity),
		cloud.WithMinTransmittance(c.MinTransmittance),
		cloud.WithMaxRayDistance(c.MaxRayDistance),
	}
}

// Layer builds the configured cloud layer.
//
// Returns:
//   - *cloud.Layer: the layer with the configured band and density scale
func (c *CloudConfig) Layer() *cloud.Layer {
	l := cloud.NewLayer(c.MinHeight, c.MaxHeight)
	l.DensityScale = c.DensityScale
	return l
}

// CSMOptions converts the shadow section into cascade manager builder options.
// Validate must have accepted the config first; an unknown split mode here is
// a contract violation and panics.
//
// Returns:
//   - []shadow.CSMBuilderOption: options for shadow.NewCSM
func (s *ShadowConfig) CSMOptions() []shadow.CSMBuilderOption {
	mode, err := shadow.ParseSplitMode(s.SplitMode)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return []shadow.CSMBuilderOption{
		shadow.WithCascadeCount(s.CascadeCount),
		shadow.WithMapSize(s.MapSize),
		shadow.WithSplitMode(mode),
		shadow.WithLambda(s.Lambda),
		shadow.WithMargin(s.Margin),
		shadow.WithFade(s.Fade),
		shadow.WithDisableLastCascadeCutoff(s.DisableLastCascadeCutoff),
		shadow.WithMaxShadowDistance(s.MaxShadowDistance),
	}
}

func vec3ToArray(v mgl64.Vec3) [3]float64 {
	return [3]float64{v[0], v[1], v[2]}
}

func arrayToVec3(a [3]float64) mgl64.Vec3 {
	return mgl64.Vec3{a[0], a[1], a[2]}
}

// profileToLayers drops the zero bottom layer single-layer profiles carry.
func profileToLayers(p atmosphere.DensityProfile) []DensityLayerConfig {
	layers := make([]DensityLayerConfig, 0, 2)
	for i, l := range p.Layers {
		if i == 0 && l == (atmosphere.DensityProfileLayer{}) {
			continue
		}
		layers = append(layers, DensityLayerConfig{
			Width:        l.Width,
			ExpTerm:      l.ExpTerm,
			ExpScale:     l.ExpScale,
			LinearTerm:   l.LinearTerm,
			ConstantTerm: l.ConstantTerm,
		})
	}
	return layers
}

// layersToProfile places a single configured layer in the top slot, matching
// the profile convention that the last layer extends to the atmosphere top.
func layersToProfile(layers []DensityLayerConfig) atmosphere.DensityProfile {
	var p atmosphere.DensityProfile
	offset := 2 - len(layers)
	for i, l := range layers {
		p.Layers[offset+i] = atmosphere.DensityProfileLayer{
			Width:        l.Width,
			ExpTerm:      l.ExpTerm,
			ExpScale:     l.ExpScale,
			LinearTerm:   l.LinearTerm,
			ConstantTerm: l.ConstantTerm,
		}
	}
	return p
}
