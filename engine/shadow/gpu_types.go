package shadow

import (
	_ "embed"
	"encoding/binary"
	"unsafe"

	"github.com/strato-gfx/strato-go/common"
)

//go:embed assets/shadow.wgsl
var GPUShadowSource string

// GPUCascade is the std140-compatible layout of one fitted cascade.
type GPUCascade struct {
	ViewProj   [16]float32 // offset 0
	SplitDepth float32     // offset 64
	TexelSize  float32     // offset 68
	_pad       [2]float32  // offset 72
}

// GPUShadowParams is the uniform block consumed by the shadow sampling
// shader. Unused cascade slots stay zeroed.
type GPUShadowParams struct {
	Cascades                 [MaxCascades]GPUCascade // offset 0
	CascadeCount             uint32                  // offset 320
	MapSize                  uint32                  // offset 324
	FadeEnabled              uint32                  // offset 328
	DisableLastCascadeCutoff uint32                  // offset 332
}

// Size returns the byte size of the uniform block.
//
// Returns:
//   - int: size in bytes
func (p *GPUShadowParams) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the uniform block into little-endian bytes matching the
// WGSL struct layout.
//
// Returns:
//   - []byte: the serialized block
func (p *GPUShadowParams) Marshal() []byte {
	buf := make([]byte, p.Size())
	off := 0

	putF := func(v float32) {
		common.PutFloat32(buf[off:], v)
		off += 4
	}
	putU := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[off:], v)
		off += 4
	}

	for c := range p.Cascades {
		for _, v := range p.Cascades[c].ViewProj {
			putF(v)
		}
		putF(p.Cascades[c].SplitDepth)
		putF(p.Cascades[c].TexelSize)
		putF(0)
		putF(0)
	}
	putU(p.CascadeCount)
	putU(p.MapSize)
	putU(p.FadeEnabled)
	putU(p.DisableLastCascadeCutoff)

	return buf
}

// GPU packs the current cascade fit into the shader uniform block.
//
// Returns:
//   - GPUShadowParams: the packed uniform block
func (c *csmImpl) GPU() GPUShadowParams {
	var p GPUShadowParams
	for i := 0; i < c.count && i < len(c.cascades); i++ {
		p.Cascades[i].ViewProj = c.cascades[i].ViewProj
		p.Cascades[i].SplitDepth = c.cascades[i].SplitDepth
		p.Cascades[i].TexelSize = c.cascades[i].TexelSize
	}
	p.CascadeCount = uint32(c.count)
	p.MapSize = uint32(c.mapSize)
	if c.fade {
		p.FadeEnabled = 1
	}
	if c.noLastCut {
		p.DisableLastCascadeCutoff = 1
	}
	return p
}
