package sky

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/strato-gfx/strato-go/engine/cloud"
	"github.com/strato-gfx/strato-go/engine/noise"
)

// proceduralField feeds the cloud raymarcher from the noise generators
// directly: the weather map spec supplies the coarse coverage gate and the
// shape volume spec supplies the detailed density. Sampling the analytic
// fields instead of pre-baked textures keeps the CPU path exact at any
// resolution; the GPU path uploads the baked volumes instead.
type proceduralField struct {
	weather noise.WeatherMapSpec
	shape   noise.VolumeSpec

	layer        *cloud.Layer
	bottomRadius float64

	// weatherScale and shapeScale are the world-space tiling periods in
	// meters: one noise repeat per scale length.
	weatherScale float64
	shapeScale   float64
}

var _ cloud.DensityField = &proceduralField{}

// newProceduralField builds the default cumulus field: broad Worley weather
// coverage gating an inverted-Worley shape volume.
func newProceduralField(seed int64, layer *cloud.Layer, bottomRadius float64) *proceduralField {
	return &proceduralField{
		weather:      noise.DefaultWeatherSpec(seed, 512, 512),
		shape:        noise.CumulusShapeSpec(seed+1, 128),
		layer:        layer,
		bottomRadius: bottomRadius,
		weatherScale: 60000,
		shapeScale:   8000,
	}
}

func (f *proceduralField) Coarse(point mgl64.Vec3) (coverage, cloudType, wetness float64) {
	u := wrap(point[0]/f.weatherScale + f.layer.WeatherOffsetU)
	v := wrap(point[2]/f.weatherScale + f.layer.WeatherOffsetV)

	coverage = sampleChannel(&f.weather.Channels[0], u, v, 0)
	cloudType = sampleChannel(&f.weather.Channels[1], u, v, 0)
	wetness = sampleChannel(&f.weather.Channels[2], u, v, 0)
	return coverage, cloudType, wetness
}

func (f *proceduralField) Detailed(point mgl64.Vec3) float64 {
	hf := f.layer.HeightFraction(point, f.bottomRadius)
	vertical := f.layer.Shape(hf)
	if vertical <= 0 {
		return 0
	}

	coverage, _, _ := f.Coarse(point)
	if coverage <= 0 {
		return 0
	}

	u := wrap(point[0] / f.shapeScale)
	v := wrap(point[1] / f.shapeScale)
	w := wrap(point[2] / f.shapeScale)

	base := sampleChannel(&f.shape.Channels[0], u, v, w)
	detail := sampleChannel(&f.shape.Channels[1], u, v, w)

	// Coverage carves the base shape; detail erodes the edges from the
	// outside in, leaving dense cores untouched.
	d := noise.Smoothstep(1-coverage, 1, base)
	d -= 0.3 * detail * (1 - d)
	return math.Max(d, 0) * vertical
}

// sampleChannel evaluates one generator channel at normalized coordinates,
// the same fBm-then-remap pipeline the texture bakes run.
func sampleChannel(c *noise.ChannelSpec, u, v, w float64) float64 {
	if c.Field == nil {
		return 0
	}
	return noise.Smoothstep(c.RemapLo, c.RemapHi, noise.FBM(c.Field, c.FBM, u, v, w))
}

func wrap(v float64) float64 {
	f := v - math.Floor(v)
	return f
}
