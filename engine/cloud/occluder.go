package cloud

import "github.com/go-gl/mathgl/mgl64"

// DepthSampler reads the scene depth buffer at normalized screen coordinates
// (u, v) in [0, 1], returning the stored clip-space depth in [0, 1].
type DepthSampler func(u, v float64) float64

// DepthOccluder tests march samples against the main camera's opaque depth
// buffer. A sample is occluded when its view-space depth is farther than the
// scene's recorded depth at its screen pixel; points outside the camera
// frustum are never occluded, so clouds beyond the screen edges still march.
type DepthOccluder struct {
	view    mgl64.Mat4
	proj    mgl64.Mat4
	invProj mgl64.Mat4
	depth   DepthSampler
}

var _ Occluder = &DepthOccluder{}

// NewDepthOccluder creates an occluder for the given camera matrices and
// depth buffer. Positions handed to Occluded must be in the same space the
// view matrix expects.
//
// Parameters:
//   - view: camera view matrix
//   - proj: camera projection matrix (clip z in [0, 1])
//   - depth: scene depth reader
//
// Returns:
//   - *DepthOccluder: the occluder
func NewDepthOccluder(view, proj mgl64.Mat4, depth DepthSampler) *DepthOccluder {
	return &DepthOccluder{
		view:    view,
		proj:    proj,
		invProj: proj.Inv(),
		depth:   depth,
	}
}

func (o *DepthOccluder) Occluded(point mgl64.Vec3) bool {
	viewPos := o.view.Mul4x1(mgl64.Vec4{point[0], point[1], point[2], 1})
	clip := o.proj.Mul4x1(viewPos)
	if clip[3] <= 0 {
		return false
	}
	ndcX := clip[0] / clip[3]
	ndcY := clip[1] / clip[3]
	ndcZ := clip[2] / clip[3]
	if ndcX < -1 || ndcX > 1 || ndcY < -1 || ndcY > 1 || ndcZ < 0 || ndcZ > 1 {
		return false
	}

	u := (ndcX + 1) / 2
	v := (1 - ndcY) / 2
	sceneDepth := o.depth(u, v)

	// Unproject the stored depth at this pixel back to view space and compare
	// along the view axis. The camera looks down -Z.
	scenePos := o.invProj.Mul4x1(mgl64.Vec4{ndcX, ndcY, sceneDepth, 1})
	if scenePos[3] == 0 {
		return false
	}
	sceneViewDepth := -scenePos[2] / scenePos[3]
	sampleViewDepth := -viewPos[2]
	return sampleViewDepth > sceneViewDepth
}
