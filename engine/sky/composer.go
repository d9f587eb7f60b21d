package sky

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/strato-gfx/strato-go/engine/atmosphere"
	"github.com/strato-gfx/strato-go/engine/camera"
	"github.com/strato-gfx/strato-go/engine/cloud"
	"github.com/strato-gfx/strato-go/engine/light"
	"github.com/strato-gfx/strato-go/engine/noise"
	"github.com/strato-gfx/strato-go/engine/profiler"
	"github.com/strato-gfx/strato-go/engine/shadow"
)

// Composer orchestrates the per-frame sky pipeline: it owns the atmosphere
// model, the cloud layer with its raymarcher and Beer shadow map, the cascaded
// shadow maps, the sun, and the camera. Update runs the frame's pass sequence
// in its fixed order (weather advance, cascade fit, sun-side cloud raymarch,
// shadow resolve); RenderTo composites the result into a caller image.
// Thread-safe for concurrent access.
type Composer interface {
	// Camera returns the composer's view camera.
	Camera() camera.Camera

	// Sun returns the directional sun light.
	Sun() light.Sun

	// Atmosphere returns the atmosphere model.
	Atmosphere() atmosphere.Model

	// CSM returns the cascaded shadow map manager.
	CSM() shadow.CSM

	// Layer returns the cloud layer.
	Layer() *cloud.Layer

	// Marcher returns the cloud raymarcher.
	Marcher() cloud.Marcher

	// BlueNoise returns the jitter sequence shared with the GPU march kernel.
	BlueNoise() *noise.BlueNoise

	// BeerShadowMap returns the sun-side cloud shadow map. Its contents are
	// valid after the first Update.
	BeerShadowMap() *cloud.BeerShadowMap

	// CloudCascades returns the cloud cascade set fitted by the last Update,
	// or nil before the first Update.
	CloudCascades() *cloud.CascadeSet

	// ShadowParams returns the packed cascade uniform block from the last
	// Update.
	//
	// Returns:
	//   - shadow.GPUShadowParams: the shadow sampling uniform
	ShadowParams() shadow.GPUShadowParams

	// Frame returns the number of completed Update calls.
	Frame() uint64

	// GPUCompose returns the packed uniform block for the composition pass.
	//
	// Returns:
	//   - GPUComposeParams: the uniform for compose.wgsl
	GPUCompose() GPUComposeParams

	// Bake precomputes the atmosphere lookup tables. Must complete before the
	// first Update or RenderTo. Expensive; meant for startup.
	//
	// Parameters:
	//   - ctx: cancellation context for the bake
	//
	// Returns:
	//   - error: ctx.Err() if cancelled, nil on completion
	Bake(ctx context.Context) error

	// Update advances the frame: scrolls the weather field, refits the shadow
	// cascades to the camera and sun, and re-marches the Beer shadow map from
	// the sun's point of view. Cascade reprojection matrices are captured
	// before the refit so temporal consumers can fetch last frame's history.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	Update(deltaTime float32)

	// RenderTo composites the sky and clouds into the image: per pixel, a
	// cloud march along the view ray, aerial perspective over the cloud
	// segment, sky radiance behind it, the sun disk, and a filmic exposure
	// tonemap. Rows are fanned out over the worker pool.
	//
	// Parameters:
	//   - img: the destination image
	//
	// Returns:
	//   - error: when the tables are not baked or the image is empty
	RenderTo(img *image.RGBA) error
}

type composerImpl struct {
	mu *sync.Mutex

	model atmosphere.Model
	cam   camera.Camera
	sun   light.Sun
	csm   shadow.CSM

	layer    *cloud.Layer
	marcher  cloud.Marcher
	field    cloud.DensityField
	beer     *cloud.BeerShadowMap
	beerSize int
	blue     *noise.BlueNoise

	cloudCascades *cloud.CascadeSet
	splitSig      []float32

	shadowParams shadow.GPUShadowParams

	// windU and windV scroll the weather field, in coverage UV per second.
	windU, windV float64

	exposure float64
	seed     int64

	frame uint64

	workers     int
	computePool worker.DynamicWorkerPool

	prof *profiler.Profiler
}

var _ Composer = &composerImpl{}

// scatteringAlbedo approximates the fraction of light a cloud sample scatters
// rather than absorbs. Water droplets are nearly pure scatterers.
const scatteringAlbedo = 0.9

// NewComposer creates a frame composer around an atmosphere model, camera, and
// sun. All three are required and NewComposer panics if any of them is nil.
// Defaults: a 1500-4000 m cumulus layer, the default raymarch budget, a
// 4-cascade practical-split CSM with a 256 texel Beer shadow map, and a
// procedurally generated 128-cube blue-noise jitter sequence.
//
// Parameters:
//   - model: the atmosphere model (must not be nil)
//   - cam: the view camera (must not be nil)
//   - sun: the directional sun (must not be nil)
//   - options: functional options to further configure the composer
//
// Returns:
//   - Composer: the newly created composer
func NewComposer(model atmosphere.Model, cam camera.Camera, sun light.Sun, options ...ComposerBuilderOption) Composer {
	if model == nil {
		panic("sky: NewComposer requires a non-nil atmosphere model")
	}
	if cam == nil {
		panic("sky: NewComposer requires a non-nil camera")
	}
	if sun == nil {
		panic("sky: NewComposer requires a non-nil sun")
	}

	c := &composerImpl{
		mu:       &sync.Mutex{},
		model:    model,
		cam:      cam,
		sun:      sun,
		exposure: 10,
		seed:     1,
		beerSize: 256,
		windU:    0.002,
		windV:    0.0005,
		workers:  max(runtime.NumCPU()-1, 1),
		prof:     profiler.NewProfiler(),
	}
	for _, option := range options {
		option(c)
	}

	if c.csm == nil {
		c.csm = shadow.NewCSM()
	}
	if c.layer == nil {
		c.layer = cloud.NewLayer(1500, 4000)
	}
	if c.marcher == nil {
		c.marcher = cloud.NewMarcher()
	}
	c.beer = cloud.NewBeerShadowMap(c.beerSize, c.csm.Count())
	if c.field == nil {
		c.field = newProceduralField(c.seed, c.layer, model.Parameters().BottomRadius)
	}
	if c.blue == nil {
		c.blue = noise.GenerateBlueNoise(128, 128, 32)
	}

	// Queue size of 256 holds a full frame of row tasks with headroom.
	c.computePool = worker.NewDynamicWorkerPool(c.workers, 256, 1*time.Second)

	return c
}

func (c *composerImpl) Camera() camera.Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cam
}

func (c *composerImpl) Sun() light.Sun {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sun
}

func (c *composerImpl) Atmosphere() atmosphere.Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

func (c *composerImpl) CSM() shadow.CSM {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csm
}

func (c *composerImpl) Layer() *cloud.Layer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layer
}

func (c *composerImpl) Marcher() cloud.Marcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.marcher
}

func (c *composerImpl) BlueNoise() *noise.BlueNoise {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blue
}

func (c *composerImpl) BeerShadowMap() *cloud.BeerShadowMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beer
}

func (c *composerImpl) CloudCascades() *cloud.CascadeSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cloudCascades
}

func (c *composerImpl) ShadowParams() shadow.GPUShadowParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shadowParams
}

func (c *composerImpl) Frame() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

func (c *composerImpl) Bake(ctx context.Context) error {
	defer c.prof.Section("atmosphere bake")()
	return c.model.Bake(ctx)
}

func (c *composerImpl) Update(deltaTime float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Weather drift.
	c.layer.WeatherOffsetU += c.windU * float64(deltaTime)
	c.layer.WeatherOffsetV += c.windV * float64(deltaTime)

	// Cascade fit against the current camera and sun.
	sunDir := c.sun.Direction()
	c.csm.Update(shadow.CameraState{
		FovY:    c.cam.Fov(),
		Aspect:  c.cam.Aspect(),
		Near:    c.cam.Near(),
		Far:     c.cam.Far(),
		InvView: c.cam.InverseViewMatrix(),
	}, sunDir)
	c.syncCloudCascades()

	// Sun-side cloud march into the Beer shadow map, cascade by cascade.
	// Each Render call fans its rows over the worker pool.
	bottomRadius := c.model.Parameters().BottomRadius
	sunDir64 := mgl64.Vec3{float64(sunDir[0]), float64(sunDir[1]), float64(sunDir[2])}
	for i := 0; i < c.beer.Cascades(); i++ {
		c.beer.Render(c.cloudCascades.Cascade(i), i, c.marcher, c.layer, c.field, bottomRadius, sunDir64, c.workers)
	}

	// Shadow resolve: snapshot the packed cascade uniform for samplers.
	c.shadowParams = c.csm.GPU()

	c.frame++
}

// syncCloudCascades mirrors the fitted shadow cascades into the cloud cascade
// set, rebuilding the set when the split layout changed (which resets the
// reprojection history) and otherwise just refreshing the matrices so each
// cascade's previous view-projection survives as its reprojection matrix.
// Caller must hold the mutex.
func (c *composerImpl) syncCloudCascades() {
	fitted := c.csm.Cascades()

	rebuild := c.cloudCascades == nil || c.cloudCascades.Count() != len(fitted)
	if !rebuild {
		for i, f := range fitted {
			if c.splitSig[i] != f.SplitDepth {
				rebuild = true
				break
			}
		}
	}

	if rebuild {
		descriptors := make([]cloud.Cascade, len(fitted))
		near := float64(c.cam.Near())
		for i, f := range fitted {
			descriptors[i] = cloud.Cascade{
				Near:    near,
				Far:     float64(f.SplitDepth),
				MipHint: i,
			}
			near = float64(f.SplitDepth)
		}
		c.cloudCascades = cloud.NewCascadeSet(descriptors)
		c.splitSig = make([]float32, len(fitted))
		for i, f := range fitted {
			c.splitSig[i] = f.SplitDepth
		}
	}

	for i, f := range fitted {
		c.cloudCascades.Update(i, toMat64(f.ViewProj))
	}
}

func (c *composerImpl) RenderTo(img *image.RGBA) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model.Tables() == nil {
		return fmt.Errorf("sky: atmosphere tables not baked")
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return fmt.Errorf("sky: render target is empty")
	}

	params := c.model.Parameters()
	camGeo := c.cam.GeocentricPosition(params.BottomRadius)
	origin := mgl64.Vec3{camGeo[0], camGeo[1], camGeo[2]}
	camWorld := origin.Sub(mgl64.Vec3{0, params.BottomRadius, 0})
	invVP := toMat64(c.cam.InverseViewProjectionMatrix())
	sd := c.sun.Direction()
	sunDir := mgl64.Vec3{float64(sd[0]), float64(sd[1]), float64(sd[2])}
	frame := int(c.frame)

	var wg sync.WaitGroup
	for y := 0; y < height; y++ {
		wg.Add(1)
		row := y
		c.computePool.SubmitTask(worker.Task{
			ID: row,
			Do: func() (any, error) {
				defer wg.Done()
				for x := 0; x < width; x++ {
					dir, ok := viewRay(invVP, camWorld, x, row, width, height)
					if !ok {
						img.SetRGBA(bounds.Min.X+x, bounds.Min.Y+row, color.RGBA{A: 255})
						continue
					}
					radiance := c.shadePixel(origin, dir, sunDir, &params, x, row, frame)
					img.SetRGBA(bounds.Min.X+x, bounds.Min.Y+row, tonemap(radiance, c.exposure))
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
	return nil
}

// shadePixel evaluates one view ray: cloud march first, then sky radiance
// with the cloud's shadow length, aerial perspective over the cloud segment,
// and the sun disk on unobstructed rays.
func (c *composerImpl) shadePixel(origin, dir, sunDir mgl64.Vec3, params *atmosphere.Parameters, x, y, frame int) mgl64.Vec3 {
	jitter := c.blue.Jitter(x, y, frame)
	march := c.marcher.March(origin, dir, c.layer, c.field, params.BottomRadius, jitter, nil)

	cloudAlpha := 0.0
	shadowLength := 0.0
	var cloudPoint mgl64.Vec3
	if march.Valid > 0 {
		cloudAlpha = 1 - math.Exp(-march.MaxOpticalDepth)
		cloudPoint = origin.Add(dir.Mul(march.FrontDepth))
		shadowLength = c.shadowLengthAt(cloudPoint, sunDir)
	}

	skyRadiance, skyTransmittance := c.model.SkyRadiance(origin, dir, shadowLength, sunDir)

	// Sun disk, attenuated by the atmosphere and hidden behind clouds.
	if dir.Dot(sunDir) > math.Cos(float64(c.sun.AngularRadius())) {
		skyRadiance = skyRadiance.Add(mulVec(skyTransmittance, c.solarRadiance()).Mul(1 - cloudAlpha))
	}

	if cloudAlpha <= 0 {
		return skyRadiance
	}

	// Lit cloud color from the sun and sky irradiance at the front depth,
	// attenuated by the Beer shadow map's sun transmittance.
	up := cloudPoint.Normalize()
	sunIrr, skyIrr := c.model.SunAndSkyIrradiance(cloudPoint, up, sunDir)
	sunVisibility := c.sunVisibilityAt(cloudPoint, sunDir)
	cloudColor := sunIrr.Mul(sunVisibility).Add(skyIrr).Mul(scatteringAlbedo / math.Pi)

	// Aerial perspective over the camera-to-cloud segment.
	inscatter, segTransmittance := c.model.SkyRadianceToPoint(origin, cloudPoint, shadowLength, sunDir)
	cloudRadiance := inscatter.Add(mulVec(segTransmittance, cloudColor))

	return skyRadiance.Mul(1 - cloudAlpha).Add(cloudRadiance.Mul(cloudAlpha))
}

// shadowLengthAt estimates the sun-shadowed suffix of the ray toward the sun
// at a world point through the Beer shadow map.
func (c *composerImpl) shadowLengthAt(point, sunDir mgl64.Vec3) float64 {
	idx, tx, ty, depth, ok := c.beerLookup(point, sunDir)
	if !ok {
		return 0
	}
	return c.beer.ShadowLength(idx, tx, ty, depth)
}

// sunVisibilityAt reconstructs the sun transmittance at a world point through
// the Beer shadow map. Points outside every cascade are fully lit.
func (c *composerImpl) sunVisibilityAt(point, sunDir mgl64.Vec3) float64 {
	idx, tx, ty, depth, ok := c.beerLookup(point, sunDir)
	if !ok {
		return 1
	}
	return c.beer.Transmittance(idx, tx, ty, depth)
}

// beerLookup projects a world point into the first cascade that contains it
// and returns the texel coordinates plus the depth along the shadow ray,
// measured from the cascade's near plane.
func (c *composerImpl) beerLookup(point, sunDir mgl64.Vec3) (cascade, tx, ty int, depth float64, ok bool) {
	if c.cloudCascades == nil {
		return 0, 0, 0, 0, false
	}
	size := c.beer.Size()
	for i := 0; i < c.cloudCascades.Count(); i++ {
		cas := c.cloudCascades.Cascade(i)
		clip := cas.ViewProj.Mul4x1(mgl64.Vec4{point[0], point[1], point[2], 1})
		if clip[3] <= 0 {
			continue
		}
		u := (clip[0]/clip[3] + 1) / 2
		v := (1 - clip[1]/clip[3]) / 2
		if u < 0 || u >= 1 || v < 0 || v >= 1 {
			continue
		}

		// Shadow-ray depth: distance from the cascade's near-plane entry of
		// this texel to the point, along the direction away from the sun.
		ndc := mgl64.Vec4{u*2 - 1, 1 - v*2, 0, 1}
		entry := cas.InvViewProj.Mul4x1(ndc)
		if entry[3] == 0 {
			continue
		}
		entryPoint := mgl64.Vec3{entry[0] / entry[3], entry[1] / entry[3], entry[2] / entry[3]}
		depth = point.Sub(entryPoint).Dot(sunDir.Mul(-1))
		return i, int(u * float64(size)), int(v * float64(size)), depth, true
	}
	return 0, 0, 0, 0, false
}

// solarRadiance converts the sun's irradiance to the radiance of its disk.
func (c *composerImpl) solarRadiance() mgl64.Vec3 {
	irr := c.sun.Irradiance()
	ar := float64(c.sun.AngularRadius())
	scale := float64(c.sun.Intensity()) / (math.Pi * ar * ar)
	return mgl64.Vec3{float64(irr[0]) * scale, float64(irr[1]) * scale, float64(irr[2]) * scale}
}

// viewRay unprojects a pixel center to a unit world-space view direction.
func viewRay(invVP mgl64.Mat4, camWorld mgl64.Vec3, x, y, width, height int) (mgl64.Vec3, bool) {
	u := (float64(x) + 0.5) / float64(width)
	v := (float64(y) + 0.5) / float64(height)
	ndc := mgl64.Vec4{u*2 - 1, 1 - v*2, 1, 1}
	p := invVP.Mul4x1(ndc)
	if p[3] == 0 {
		return mgl64.Vec3{}, false
	}
	world := mgl64.Vec3{p[0] / p[3], p[1] / p[3], p[2] / p[3]}
	d := world.Sub(camWorld)
	if d.Len() == 0 {
		return mgl64.Vec3{}, false
	}
	return d.Normalize(), true
}

// tonemap applies exposure and a gamma 2.2 transfer to a linear radiance.
func tonemap(radiance mgl64.Vec3, exposure float64) color.RGBA {
	channel := func(v float64) uint8 {
		if v < 0 {
			v = 0
		}
		mapped := math.Pow(1-math.Exp(-v*exposure), 1/2.2)
		if mapped >= 1 {
			return 255
		}
		if mapped <= 0 {
			return 0
		}
		return uint8(mapped*255 + 0.5)
	}
	return color.RGBA{
		R: channel(radiance[0]),
		G: channel(radiance[1]),
		B: channel(radiance[2]),
		A: 255,
	}
}

func mulVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// toMat64 widens a column-major float32 matrix into an mgl64.Mat4.
func toMat64(m [16]float32) mgl64.Mat4 {
	var out mgl64.Mat4
	for i, v := range m {
		out[i] = float64(v)
	}
	return out
}
