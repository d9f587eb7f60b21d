package camera

import (
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/strato-gfx/strato-go/common"
	"github.com/strato-gfx/strato-go/engine/renderer/bind_group_provider"
)

// cameraCount feeds unique bind group provider labels per camera.
var cameraCount atomic.Uint64

type cameraImpl struct {
	mu sync.RWMutex

	position [3]float32
	target   [3]float32
	up       [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix            [16]float32
	projectionMatrix      [16]float32
	viewProjectionMatrix  [16]float32
	inverseViewMatrix     [16]float32
	inverseViewProjection [16]float32

	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Camera defines the interface for the viewer camera. The camera holds perspective
// settings and an explicit position/target pair, and recomputes its matrices whenever
// either changes. The inverse view matrix feeds cascade fitting and the inverse
// view-projection feeds fullscreen sky ray reconstruction.
type Camera interface {
	// Position returns the world-space camera position.
	Position() (x, y, z float32)

	// Target returns the world-space point the camera looks at.
	Target() (x, y, z float32)

	// Up returns the up vector.
	Up() (x, y, z float32)

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the width over height aspect ratio.
	Aspect() float32

	// Near returns the near clip plane distance.
	Near() float32

	// Far returns the far clip plane distance.
	Far() float32

	// ViewMatrix returns the column-major view matrix.
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the column-major projection matrix.
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns the column-major combined matrix,
	// projection times view.
	ViewProjectionMatrix() [16]float32

	// InverseViewMatrix returns the camera's world transform, the inverse of
	// the view matrix. Cascade fitting moves view-space frustum corners to
	// world space through it.
	InverseViewMatrix() [16]float32

	// InverseViewProjectionMatrix returns the inverse combined matrix. The
	// fullscreen sky pass reconstructs world-space view rays from clip
	// coordinates with it.
	InverseViewProjectionMatrix() [16]float32

	// GeocentricPosition returns the camera position expressed relative to the planet
	// center, for a planet whose surface passes through the world origin with +Y up.
	// This is the position the atmosphere evaluator's (r, mu) parameterization expects.
	//
	// Parameters:
	//   - bottomRadius: the planet's surface radius in meters
	//
	// Returns:
	//   - [3]float64: the planet-center-relative position
	GeocentricPosition(bottomRadius float64) [3]float64

	// BindGroupProvider returns the provider carrying the camera uniform
	// buffer, or nil when the camera is used CPU-side only.
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// LookAt moves the camera and its target in one call. Every setter below
	// recomputes the matrix set before returning.
	LookAt(px, py, pz, tx, ty, tz float32)

	// SetPosition moves the camera.
	SetPosition(x, y, z float32)

	// SetTarget aims the camera.
	SetTarget(x, y, z float32)

	// SetUp replaces the up vector.
	SetUp(x, y, z float32)

	// SetFov sets the vertical field of view in radians.
	SetFov(fov float32)

	// SetAspect sets the width over height aspect ratio. The engine's
	// resize callback calls this on framebuffer changes.
	SetAspect(aspect float32)

	// SetNear sets the near clip plane distance.
	SetNear(near float32)

	// SetFar sets the far clip plane distance.
	SetFar(far float32)

	// SetBindGroupProvider replaces the camera's uniform provider.
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)

	// GPU snapshots the current state as the packed camera uniform the
	// shaders consume.
	GPU() GPUCameraUniform
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera at the origin looking down -Z with +Y up, a 45
// degree vertical field of view, square aspect, near 0.1 and far 50000.
// Options override the defaults before the first matrix update.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the camera with its matrices computed
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		position: [3]float32{0, 0, 0},
		target:   [3]float32{0, 0, -1},
		up:       [3]float32{0, 1, 0},
		fov:      45.0 * (math.Pi / 180.0),
		aspect:   1.0,
		near:     0.1,
		far:      50000.0,
		bindGroupProvider: bind_group_provider.NewBindGroupProvider(
			"camera_" + strconv.FormatUint(cameraCount.Load(), 10),
		),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	cameraCount.Add(1)
	return c
}

func (c *cameraImpl) Position() (x, y, z float32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.position[0], c.position[1], c.position[2]
}

func (c *cameraImpl) Target() (x, y, z float32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target[0], c.target[1], c.target[2]
}

func (c *cameraImpl) Up() (x, y, z float32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.up[0], c.up[1], c.up[2]
}

func (c *cameraImpl) Fov() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) InverseViewMatrix() [16]float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inverseViewMatrix
}

func (c *cameraImpl) InverseViewProjectionMatrix() [16]float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inverseViewProjection
}

func (c *cameraImpl) GeocentricPosition(bottomRadius float64) [3]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return [3]float64{
		float64(c.position[0]),
		float64(c.position[1]) + bottomRadius,
		float64(c.position[2]),
	}
}

func (c *cameraImpl) LookAt(px, py, pz, tx, ty, tz float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = [3]float32{px, py, pz}
	c.target = [3]float32{tx, ty, tz}
	c.updateMatrices()
}

func (c *cameraImpl) SetPosition(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetTarget(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) BindGroupProvider() bind_group_provider.BindGroupProvider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bindGroupProvider
}

func (c *cameraImpl) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindGroupProvider = provider
}

func (c *cameraImpl) GPU() GPUCameraUniform {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return GPUCameraUniform{
		ViewProj:       c.viewProjectionMatrix,
		InvViewProj:    c.inverseViewProjection,
		CameraPosition: c.position,
		Near:           c.near,
		Far:            c.far,
	}
}

// updateMatrices refreshes the view, projection, combined, and inverse
// matrices. Caller holds the mutex.
func (c *cameraImpl) updateMatrices() {
	common.LookAt(c.viewMatrix[:],
		c.position[0], c.position[1], c.position[2],
		c.target[0], c.target[1], c.target[2],
		c.up[0], c.up[1], c.up[2],
	)

	common.Perspective(c.projectionMatrix[:],
		c.fov, c.aspect, c.near, c.far,
	)

	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
	common.Invert4(c.inverseViewMatrix[:], c.viewMatrix[:])
	common.Invert4(c.inverseViewProjection[:], c.viewProjectionMatrix[:])
}
