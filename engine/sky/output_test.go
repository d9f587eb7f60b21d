package sky

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpscale(t *testing.T) {
	// A left-to-right brightness ramp must survive resampling: the output has
	// the requested bounds, stays fully opaque, and keeps the ramp monotonic.
	src := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			v := uint8(x * 255 / 7)
			src.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	dst := Upscale(src, 32, 16)
	require.Equal(t, image.Rect(0, 0, 32, 16), dst.Bounds())

	prev := -1
	for x := 0; x < 32; x += 4 {
		c := dst.RGBAAt(x, 8)
		assert.Equal(t, uint8(255), c.A)
		assert.GreaterOrEqual(t, int(c.R), prev, "column %d", x)
		prev = int(c.R)
	}
	assert.Greater(t, int(dst.RGBAAt(31, 8).R), int(dst.RGBAAt(0, 8).R))

	assert.Panics(t, func() { Upscale(src, 0, 16) })
	assert.Panics(t, func() { Upscale(src, 32, -1) })
}
