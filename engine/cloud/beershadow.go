package cloud

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/strato-gfx/strato-go/common"
)

// BeerShadowMap stores the sun-side march results for every cascade as layers
// of one 2D array texture: each texel is (frontDepth, meanExtinction,
// maxOpticalDepth, valid), with frontDepth the farthest contributing sample
// distance along that texel's shadow ray. Consumers reconstruct a sun
// transmittance through Beer-Lambert and can extend it past the recorded
// front depth with the mean extinction for soft penumbra.
type BeerShadowMap struct {
	size     int
	cascades int
	texels   []Result
}

// NewBeerShadowMap allocates a square shadow map with one layer per cascade.
//
// Parameters:
//   - size: map edge length in texels (must be > 0)
//   - cascades: layer count, in [1, MaxCascades]
//
// Returns:
//   - *BeerShadowMap: the zeroed map, panics on invalid dimensions
func NewBeerShadowMap(size, cascades int) *BeerShadowMap {
	if size <= 0 {
		panic(fmt.Sprintf("cloud: beer shadow map size must be positive, got %d", size))
	}
	if cascades < 1 || cascades > MaxCascades {
		panic(fmt.Sprintf("cloud: beer shadow map cascade count must be in [1, %d], got %d", MaxCascades, cascades))
	}
	return &BeerShadowMap{
		size:     size,
		cascades: cascades,
		texels:   make([]Result, size*size*cascades),
	}
}

// Size returns the map's edge length in texels.
//
// Returns:
//   - int: edge length
func (b *BeerShadowMap) Size() int {
	return b.size
}

// Cascades returns the number of layers.
//
// Returns:
//   - int: layer count
func (b *BeerShadowMap) Cascades() int {
	return b.cascades
}

// At returns the stored march result for a texel of a cascade layer.
//
// Parameters:
//   - cascade: layer index
//   - x, y: texel coordinates
//
// Returns:
//   - Result: the stored march result
func (b *BeerShadowMap) At(cascade, x, y int) Result {
	return b.texels[(cascade*b.size+y)*b.size+x]
}

// Render marches every texel of one cascade layer from the sun's perspective.
// The cascade's inverse view-projection turns texel centers into world rays
// along the sun direction. Rows are fanned out over the worker pool.
//
// Parameters:
//   - cascade: the sun-space cascade to render
//   - layerIndex: destination layer
//   - m: the marcher to run
//   - layer: the cloud band
//   - field: density supplier
//   - bottomRadius: planet surface radius in meters
//   - sunDir: unit direction toward the sun
//   - workers: parallel worker count, at least 1
func (b *BeerShadowMap) Render(cascade *Cascade, layerIndex int, m Marcher, layer *Layer, field DensityField, bottomRadius float64, sunDir mgl64.Vec3, workers int) {
	if layerIndex < 0 || layerIndex >= b.cascades {
		panic(fmt.Sprintf("cloud: beer shadow map layer %d out of range [0, %d)", layerIndex, b.cascades))
	}
	if workers < 1 {
		workers = 1
	}

	// Rays run opposite the sun direction, front depth measured from the
	// sun-side entry of each texel's column.
	dir := sunDir.Mul(-1)

	pool := worker.NewDynamicWorkerPool(workers, 256, 1*time.Second)
	var wg sync.WaitGroup
	for y := 0; y < b.size; y++ {
		wg.Add(1)
		row := y
		pool.SubmitTask(worker.Task{
			ID: row,
			Do: func() (any, error) {
				defer wg.Done()
				v := (float64(row) + 0.5) / float64(b.size)
				for x := 0; x < b.size; x++ {
					u := (float64(x) + 0.5) / float64(b.size)
					origin, ok := unprojectTexel(cascade.InvViewProj, u, v)
					if !ok {
						b.texels[(layerIndex*b.size+row)*b.size+x] = Result{}
						continue
					}
					b.texels[(layerIndex*b.size+row)*b.size+x] = m.March(origin, dir, layer, field, bottomRadius, 0, nil)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// unprojectTexel maps a normalized texel center on the near plane back to
// world space through the cascade's inverse view-projection.
func unprojectTexel(invViewProj mgl64.Mat4, u, v float64) (mgl64.Vec3, bool) {
	ndc := mgl64.Vec4{u*2 - 1, 1 - v*2, 0, 1}
	p := invViewProj.Mul4x1(ndc)
	if p[3] == 0 {
		return mgl64.Vec3{}, false
	}
	return mgl64.Vec3{p[0] / p[3], p[1] / p[3], p[2] / p[3]}, true
}

// Transmittance reconstructs the sun transmittance at a distance along the
// shadow ray of a texel. Invalid texels are fully lit. Before the recorded
// front depth the transmittance is 1; past it, Beer-Lambert of the recorded
// optical depth, softened between the two by the mean extinction so the
// penumbra onset is continuous rather than a step.
//
// Parameters:
//   - cascade: layer index
//   - x, y: texel coordinates
//   - depth: distance along the shadow ray in meters
//
// Returns:
//   - float64: approximate sun transmittance in [0, 1]
func (b *BeerShadowMap) Transmittance(cascade, x, y int, depth float64) float64 {
	r := b.At(cascade, x, y)
	if r.Valid == 0 {
		return 1
	}
	if depth <= r.FrontDepth {
		return 1
	}
	// Optical depth grows with the mean extinction until it saturates at the
	// recorded maximum.
	od := math.Min((depth-r.FrontDepth)*r.MeanExtinction, r.MaxOpticalDepth)
	return math.Exp(-od)
}

// ShadowLength estimates how much of a ray toward the sun is inside cloud
// shadow, the quantity the sky evaluator's shadow-length parameter expects.
// Zero for lit or invalid texels.
//
// Parameters:
//   - cascade: layer index
//   - x, y: texel coordinates
//   - depth: distance along the shadow ray in meters
//
// Returns:
//   - float64: shadowed suffix length estimate in meters, >= 0
func (b *BeerShadowMap) ShadowLength(cascade, x, y int, depth float64) float64 {
	r := b.At(cascade, x, y)
	if r.Valid == 0 || r.MeanExtinction <= 0 {
		return 0
	}
	if depth <= r.FrontDepth {
		return 0
	}
	// The optically relevant span of the shadow volume, capped at what the
	// march actually saw.
	return math.Min(depth-r.FrontDepth, r.MaxOpticalDepth/r.MeanExtinction)
}

// Staging converts the map to an RGBA32Float 2D array texture for GPU
// upload, one layer per cascade.
//
// Returns:
//   - common.TextureStagingData: the staging payload
func (b *BeerShadowMap) Staging() common.TextureStagingData {
	texels := make([]byte, len(b.texels)*16)
	for i, r := range b.texels {
		off := i * 16
		common.PutFloat32(texels[off:], float32(r.FrontDepth))
		common.PutFloat32(texels[off+4:], float32(r.MeanExtinction))
		common.PutFloat32(texels[off+8:], float32(r.MaxOpticalDepth))
		common.PutFloat32(texels[off+12:], float32(r.Valid))
	}
	return common.TextureStagingData{
		Texels:        texels,
		Width:         uint32(b.size),
		Height:        uint32(b.size),
		DepthOrLayers: uint32(b.cascades),
		Format:        wgpu.TextureFormatRGBA32Float,
		BytesPerTexel: 16,
		Dimension:     wgpu.TextureDimension2D,
	}
}
