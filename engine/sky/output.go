package sky

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Upscale resamples a rendered frame to the given output resolution with
// Catmull-Rom filtering. Marching at reduced resolution and upscaling the
// result keeps CPU renders tractable without visible blockiness.
//
// Parameters:
//   - src: the rendered source frame
//   - width, height: output resolution in pixels, both positive
//
// Returns:
//   - *image.RGBA: the resampled frame
func Upscale(src image.Image, width, height int) *image.RGBA {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("sky: upscale resolution must be positive, got %dx%d", width, height))
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
