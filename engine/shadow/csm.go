package shadow

import (
	"fmt"
	"log"
	"math"

	"github.com/strato-gfx/strato-go/common"
)

// MaxCascades is the compiled upper bound on shadow cascades.
const MaxCascades = 4

// DefaultMapSize is the default shadow map edge length in texels.
const DefaultMapSize = 2048

// fadeExpansion scales the quadratic radius growth that reserves room for
// cross-cascade blending when fade is enabled.
const fadeExpansion = 0.25

// CameraState is the view camera snapshot the cascade fit consumes each
// frame. InvView is the camera's world transform, column-major.
type CameraState struct {
	FovY   float32
	Aspect float32
	Near   float32
	Far    float32

	InvView [16]float32
}

// Cascade is one fitted shadow cascade: its far split depth in camera view
// space, the light's orthographic view-projection, the world-space texel size
// for bias computation, and the repositioned light origin.
type Cascade struct {
	SplitDepth    float32
	ViewProj      [16]float32
	TexelSize     float32
	LightPosition [3]float32
}

// CSM owns the cascaded shadow map configuration and produces fitted light
// matrices from the camera and sun direction each frame. Split geometry is
// recomputed lazily behind a dirty flag; the world-space fit runs every
// Update because the camera moves every frame.
type CSM interface {
	// Update fits every cascade to the camera and light direction. Split
	// depths and view-space sub-frusta are recomputed only when a setting or
	// the camera projection changed since the last call.
	//
	// Parameters:
	//   - camera: the view camera snapshot
	//   - lightDir: unit direction toward the light
	Update(camera CameraState, lightDir [3]float32)

	// Cascades returns the fitted cascades from the last Update. The slice is
	// reused across calls; copy it to retain.
	//
	// Returns:
	//   - []Cascade: the fitted cascades
	Cascades() []Cascade

	// Count returns the configured cascade count.
	//
	// Returns:
	//   - int: cascade count
	Count() int

	// MapSize returns the shadow map edge length in texels.
	//
	// Returns:
	//   - int: map edge length
	MapSize() int

	// NeedsReallocation reports whether the cascade count or map size changed
	// since the consumer last acknowledged, invalidating existing shadow map
	// textures.
	//
	// Returns:
	//   - bool: true when shadow textures must be recreated
	NeedsReallocation() bool

	// AckReallocation clears the reallocation flag after the consumer has
	// recreated its shadow map textures.
	AckReallocation()

	// DisableLastCascadeCutoff reports whether the last cascade ignores the
	// shadow distance cutoff so geometry beyond the splits still shadows.
	//
	// Returns:
	//   - bool: the cutoff toggle
	DisableLastCascadeCutoff() bool

	// SetCascadeCount reconfigures the number of cascades, marking frusta
	// dirty and shadow textures for reallocation.
	//
	// Parameters:
	//   - count: new cascade count, in [1, MaxCascades]
	SetCascadeCount(count int)

	// SetMapSize reconfigures the shadow map edge length, marking shadow
	// textures for reallocation.
	//
	// Parameters:
	//   - size: new edge length in texels, must be > 0
	SetMapSize(size int)

	// SetSplitMode selects the cascade split scheme, marking frusta dirty.
	//
	// Parameters:
	//   - mode: the split scheme
	SetSplitMode(mode SplitMode)

	// SetLambda sets the practical split blend weight, marking frusta dirty.
	//
	// Parameters:
	//   - lambda: blend weight in [0, 1]
	SetLambda(lambda float32)

	// SetMargin sets the light-space depth margin in world units, marking
	// frusta dirty.
	//
	// Parameters:
	//   - margin: extra depth behind the cascade, >= 0
	SetMargin(margin float32)

	// SetFade toggles cross-cascade fade, expanding cascade radii to reserve
	// blend room. Marks frusta dirty.
	//
	// Parameters:
	//   - fade: true to enable fading
	SetFade(fade bool)

	// SetDisableLastCascadeCutoff toggles the last cascade's distance cutoff.
	//
	// Parameters:
	//   - disable: true to disable the cutoff
	SetDisableLastCascadeCutoff(disable bool)

	// CasterFrustum extracts the world-space culling frustum for a cascade
	// from its fitted light view-projection. Renderers use it to skip shadow
	// casters that cannot touch the cascade's map.
	//
	// Parameters:
	//   - i: cascade index, in [0, Count())
	//
	// Returns:
	//   - common.Frustum: the cascade's caster culling frustum
	CasterFrustum(i int) common.Frustum

	// GPU packs the current cascade fit into the shader uniform block.
	//
	// Returns:
	//   - GPUShadowParams: the packed uniform block
	GPU() GPUShadowParams
}

type csmImpl struct {
	count     int
	mapSize   int
	mode      SplitMode
	lambda    float32
	margin    float32
	fade      bool
	maxFar    float32
	noLastCut bool

	needsUpdateFrusta bool
	needsReallocation bool

	// Cached camera projection the split geometry was computed for.
	camFovY, camAspect, camNear, camFar float32

	splits      []float32
	viewFrusta  []FrustumCorners
	viewCenters [][3]float32
	radii       []float32
	cascades    []Cascade
}

var _ CSM = &csmImpl{}

type CSMBuilderOption func(*csmImpl)

// NewCSM creates a cascaded shadow map manager. Defaults: 4 cascades,
// 2048 texel maps, practical splits with lambda 0.5, 50 unit margin, fade
// enabled, shadow range capped at 500 units.
//
// Parameters:
//   - opts: functional options to configure the manager
//
// Returns:
//   - CSM: the configured manager
func NewCSM(opts ...CSMBuilderOption) CSM {
	c := &csmImpl{
		count:             MaxCascades,
		mapSize:           DefaultMapSize,
		mode:              SplitPractical,
		lambda:            0.5,
		margin:            50,
		fade:              true,
		maxFar:            500,
		needsUpdateFrusta: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.validate()
	log.Printf("[CSM] %d cascades, %dx%d maps, %s split", c.count, c.mapSize, c.mapSize, c.mode)
	return c
}

func (c *csmImpl) validate() {
	if c.count < 1 || c.count > MaxCascades {
		panic(fmt.Sprintf("shadow: cascade count must be in [1, %d], got %d", MaxCascades, c.count))
	}
	if c.mapSize <= 0 {
		panic(fmt.Sprintf("shadow: map size must be positive, got %d", c.mapSize))
	}
	if c.lambda < 0 || c.lambda > 1 {
		panic(fmt.Sprintf("shadow: lambda must be in [0, 1], got %v", c.lambda))
	}
	if c.margin < 0 {
		panic(fmt.Sprintf("shadow: margin must not be negative, got %v", c.margin))
	}
	if c.maxFar <= 0 {
		panic(fmt.Sprintf("shadow: max shadow distance must be positive, got %v", c.maxFar))
	}
}

// WithCascadeCount sets the number of cascades.
//
// Parameters:
//   - count: cascade count, in [1, MaxCascades]
//
// Returns:
//   - CSMBuilderOption: a function that sets the cascade count
func WithCascadeCount(count int) CSMBuilderOption {
	return func(c *csmImpl) {
		c.count = count
	}
}

// WithMapSize sets the shadow map edge length in texels.
//
// Parameters:
//   - size: edge length, must be > 0
//
// Returns:
//   - CSMBuilderOption: a function that sets the map size
func WithMapSize(size int) CSMBuilderOption {
	return func(c *csmImpl) {
		c.mapSize = size
	}
}

// WithSplitMode sets the cascade split scheme.
//
// Parameters:
//   - mode: the split scheme
//
// Returns:
//   - CSMBuilderOption: a function that sets the split mode
func WithSplitMode(mode SplitMode) CSMBuilderOption {
	return func(c *csmImpl) {
		c.mode = mode
	}
}

// WithLambda sets the practical split blend weight.
//
// Parameters:
//   - lambda: blend weight in [0, 1]
//
// Returns:
//   - CSMBuilderOption: a function that sets lambda
func WithLambda(lambda float32) CSMBuilderOption {
	return func(c *csmImpl) {
		c.lambda = lambda
	}
}

// WithMargin sets the light-space depth margin in world units.
//
// Parameters:
//   - margin: extra depth behind the cascade, >= 0
//
// Returns:
//   - CSMBuilderOption: a function that sets the margin
func WithMargin(margin float32) CSMBuilderOption {
	return func(c *csmImpl) {
		c.margin = margin
	}
}

// WithFade toggles cross-cascade fading.
//
// Parameters:
//   - fade: true to enable fading
//
// Returns:
//   - CSMBuilderOption: a function that sets the fade toggle
func WithFade(fade bool) CSMBuilderOption {
	return func(c *csmImpl) {
		c.fade = fade
	}
}

// WithMaxShadowDistance caps the shadowed depth range; the last split is
// min(camera far, this cap).
//
// Parameters:
//   - far: maximum shadowed distance in world units
//
// Returns:
//   - CSMBuilderOption: a function that sets the shadow range cap
func WithMaxShadowDistance(far float32) CSMBuilderOption {
	return func(c *csmImpl) {
		c.maxFar = far
	}
}

// WithDisableLastCascadeCutoff disables the shadow distance cutoff on the
// last cascade.
//
// Parameters:
//   - disable: true to disable the cutoff
//
// Returns:
//   - CSMBuilderOption: a function that sets the cutoff toggle
func WithDisableLastCascadeCutoff(disable bool) CSMBuilderOption {
	return func(c *csmImpl) {
		c.noLastCut = disable
	}
}

func (c *csmImpl) Cascades() []Cascade {
	return c.cascades
}

func (c *csmImpl) CasterFrustum(i int) common.Frustum {
	if i < 0 || i >= len(c.cascades) {
		panic(fmt.Sprintf("shadow: cascade index %d out of range [0, %d)", i, len(c.cascades)))
	}
	return common.ExtractFrustumFromMatrix(c.cascades[i].ViewProj[:])
}

func (c *csmImpl) Count() int {
	return c.count
}

func (c *csmImpl) MapSize() int {
	return c.mapSize
}

func (c *csmImpl) NeedsReallocation() bool {
	return c.needsReallocation
}

func (c *csmImpl) AckReallocation() {
	c.needsReallocation = false
}

func (c *csmImpl) DisableLastCascadeCutoff() bool {
	return c.noLastCut
}

func (c *csmImpl) SetCascadeCount(count int) {
	if count == c.count {
		return
	}
	c.count = count
	c.validate()
	c.needsUpdateFrusta = true
	c.needsReallocation = true
}

func (c *csmImpl) SetMapSize(size int) {
	if size == c.mapSize {
		return
	}
	c.mapSize = size
	c.validate()
	c.needsReallocation = true
}

func (c *csmImpl) SetSplitMode(mode SplitMode) {
	if mode == c.mode {
		return
	}
	c.mode = mode
	c.needsUpdateFrusta = true
}

func (c *csmImpl) SetLambda(lambda float32) {
	if lambda == c.lambda {
		return
	}
	c.lambda = lambda
	c.validate()
	c.needsUpdateFrusta = true
}

func (c *csmImpl) SetMargin(margin float32) {
	if margin == c.margin {
		return
	}
	c.margin = margin
	c.validate()
	c.needsUpdateFrusta = true
}

func (c *csmImpl) SetFade(fade bool) {
	if fade == c.fade {
		return
	}
	c.fade = fade
	c.needsUpdateFrusta = true
}

func (c *csmImpl) SetDisableLastCascadeCutoff(disable bool) {
	c.noLastCut = disable
}

func (c *csmImpl) Update(camera CameraState, lightDir [3]float32) {
	if camera.FovY != c.camFovY || camera.Aspect != c.camAspect || camera.Near != c.camNear || camera.Far != c.camFar {
		c.camFovY, c.camAspect, c.camNear, c.camFar = camera.FovY, camera.Aspect, camera.Near, camera.Far
		c.needsUpdateFrusta = true
	}

	if c.needsUpdateFrusta {
		c.rebuildFrusta()
		c.needsUpdateFrusta = false
	}

	// The world fit runs every call: the camera translates and the light
	// wanders every frame even when the projection is stable.
	for i := 0; i < c.count; i++ {
		c.fitCascade(i, &camera, lightDir)
	}
}

// rebuildFrusta recomputes split depths, view-space sub-frusta, and cascade
// radii for the current settings and camera projection.
func (c *csmImpl) rebuildFrusta() {
	shadowFar := float32(math.Min(float64(c.camFar), float64(c.maxFar)))
	c.splits = splitDepths(c.mode, c.count, c.camNear, shadowFar, c.lambda)

	c.viewFrusta = make([]FrustumCorners, c.count)
	c.viewCenters = make([][3]float32, c.count)
	c.radii = make([]float32, c.count)
	c.cascades = make([]Cascade, c.count)

	// Lateral corner distance per unit depth, for the axial circumcenter.
	tanHalf := float32(math.Tan(float64(c.camFovY) / 2))
	kSq := tanHalf * tanHalf * (c.camAspect*c.camAspect + 1)

	near := c.camNear
	for i := 0; i < c.count; i++ {
		far := c.splits[i]
		c.viewFrusta[i].SetFromCamera(c.camFovY, c.camAspect, near, far)

		// Bounding sphere center on the view axis, equidistant from near and
		// far corners, clamped to the far plane. Depends only on the camera
		// projection, so sphere size never changes as the camera moves.
		depth := (kSq + 1) * (near + far) / 2
		if depth > far {
			depth = far
		}
		c.viewCenters[i] = [3]float32{0, 0, -depth}

		radius := c.viewFrusta[i].Radius()
		if c.fade {
			t := far / shadowFar
			radius *= 1 + fadeExpansion*t*t
		}
		c.radii[i] = radius
		c.cascades[i].SplitDepth = far
		near = far
	}
}

// fitCascade positions the light's orthographic camera around one cascade,
// snapping its light-space translation to texel multiples on all three axes
// so sub-texel camera movement cannot make the shadow edges shimmer.
func (c *csmImpl) fitCascade(i int, camera *CameraState, lightDir [3]float32) {
	corners := c.viewFrusta[i]
	corners.Transform(camera.InvView[:])
	vc := c.viewCenters[i]
	wx, wy, wz, _ := common.TransformPoint4(camera.InvView[:], vc[0], vc[1], vc[2])
	center := [3]float32{wx, wy, wz}
	radius := c.radii[i]

	// Pure light rotation: a view matrix looking along -lightDir from the
	// origin, up flipped away from near-vertical light.
	up := [3]float32{0, 1, 0}
	if lightDir[1] > 0.99 || lightDir[1] < -0.99 {
		up = [3]float32{0, 0, 1}
	}
	var rot, invRot [16]float32
	common.LookAt(rot[:], 0, 0, 0, -lightDir[0], -lightDir[1], -lightDir[2], up[0], up[1], up[2])
	common.Invert4(invRot[:], rot[:])

	// Snap the light-space center to texel multiples.
	texel := 2 * radius / float32(c.mapSize)
	cx, cy, _, _ := common.TransformPoint4(rot[:], center[0], center[1], center[2])
	cx = float32(math.Floor(float64(cx/texel))) * texel
	cy = float32(math.Floor(float64(cy/texel))) * texel

	// Place the light eye at the cascade's light-space max depth plus margin,
	// then return to world space through the inverse orientation. The depth
	// snaps to texel multiples like XY: a sub-texel camera translation along
	// the light axis must not move the eye either.
	maxZ := float32(math.Inf(-1))
	for _, p := range corners.Points {
		_, _, z, _ := common.TransformPoint4(rot[:], p[0], p[1], p[2])
		if z > maxZ {
			maxZ = z
		}
	}
	maxZ = float32(math.Ceil(float64(maxZ/texel))) * texel
	ex, ey, ez, _ := common.TransformPoint4(invRot[:], cx, cy, maxZ+c.margin)

	var view, proj [16]float32
	common.LookAt(view[:], ex, ey, ez, ex-lightDir[0], ey-lightDir[1], ez-lightDir[2], up[0], up[1], up[2])
	common.Ortho(proj[:], -radius, radius, -radius, radius, 0, 2*radius+c.margin)

	cascade := &c.cascades[i]
	common.Mul4(cascade.ViewProj[:], proj[:], view[:])
	cascade.TexelSize = texel
	cascade.LightPosition = [3]float32{ex, ey, ez}
}
