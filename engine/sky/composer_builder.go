package sky

import (
	"github.com/strato-gfx/strato-go/engine/cloud"
	"github.com/strato-gfx/strato-go/engine/noise"
	"github.com/strato-gfx/strato-go/engine/shadow"
)

type ComposerBuilderOption func(*composerImpl)

// WithWorkers sets the number of worker goroutines used for the cloud march
// and the per-row render fan-out.
//
// Parameters:
//   - workers: the worker count, minimum 1
func WithWorkers(workers int) ComposerBuilderOption {
	return func(c *composerImpl) {
		if workers < 1 {
			panic("sky: worker count must be at least 1")
		}
		c.workers = workers
	}
}

// WithExposure sets the tonemap exposure applied in RenderTo.
//
// Parameters:
//   - exposure: the exposure multiplier, must be positive
func WithExposure(exposure float64) ComposerBuilderOption {
	return func(c *composerImpl) {
		if exposure <= 0 {
			panic("sky: exposure must be positive")
		}
		c.exposure = exposure
	}
}

// WithWind sets the weather scroll rate in coverage UV per second.
//
// Parameters:
//   - u: scroll rate along the weather U axis
//   - v: scroll rate along the weather V axis
func WithWind(u, v float64) ComposerBuilderOption {
	return func(c *composerImpl) {
		c.windU = u
		c.windV = v
	}
}

// WithBeerShadowMapSize sets the square texel resolution of each Beer shadow
// map cascade.
//
// Parameters:
//   - size: the per-cascade resolution in texels, must be positive
func WithBeerShadowMapSize(size int) ComposerBuilderOption {
	return func(c *composerImpl) {
		if size <= 0 {
			panic("sky: beer shadow map size must be positive")
		}
		c.beerSize = size
	}
}

// WithSeed sets the seed for the procedural weather and shape fields.
//
// Parameters:
//   - seed: the noise seed
func WithSeed(seed int64) ComposerBuilderOption {
	return func(c *composerImpl) {
		c.seed = seed
	}
}

// WithLayer sets the cloud layer instead of the default cumulus band.
//
// Parameters:
//   - layer: the cloud layer, must not be nil
func WithLayer(layer *cloud.Layer) ComposerBuilderOption {
	return func(c *composerImpl) {
		if layer == nil {
			panic("sky: layer must not be nil")
		}
		c.layer = layer
	}
}

// WithMarcher sets the cloud raymarcher instead of the default budget.
//
// Parameters:
//   - marcher: the raymarcher, must not be nil
func WithMarcher(marcher cloud.Marcher) ComposerBuilderOption {
	return func(c *composerImpl) {
		if marcher == nil {
			panic("sky: marcher must not be nil")
		}
		c.marcher = marcher
	}
}

// WithDensityField sets the cloud density field, replacing the procedural
// weather and shape noise.
//
// Parameters:
//   - field: the density field, must not be nil
func WithDensityField(field cloud.DensityField) ComposerBuilderOption {
	return func(c *composerImpl) {
		if field == nil {
			panic("sky: density field must not be nil")
		}
		c.field = field
	}
}

// WithCSM sets the cascaded shadow map manager instead of the default.
//
// Parameters:
//   - csm: the shadow map manager, must not be nil
func WithCSM(csm shadow.CSM) ComposerBuilderOption {
	return func(c *composerImpl) {
		if csm == nil {
			panic("sky: csm must not be nil")
		}
		c.csm = csm
	}
}

// WithBlueNoise sets the jitter sequence used to decorrelate march start
// offsets between neighboring pixels.
//
// Parameters:
//   - blue: the blue-noise volume, must not be nil
func WithBlueNoise(blue *noise.BlueNoise) ComposerBuilderOption {
	return func(c *composerImpl) {
		if blue == nil {
			panic("sky: blue noise must not be nil")
		}
		c.blue = blue
	}
}
