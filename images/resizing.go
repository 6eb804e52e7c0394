package images

import (
	"image"

	"github.com/nfnt/resize"
)

// Thumbnail downsizes img so that neither side exceeds maxExtent, preserving
// the aspect ratio. Images that already fit are returned as an RGBA copy.
//
// Arguments:
//   - img: The image to shrink.
//   - maxExtent: The maximum width and height of the result. Values <= 0
//     disable shrinking.
//
// Returns:
//   - image.Image: The thumbnail.
func Thumbnail(img image.Image, maxExtent int) image.Image {
	b := img.Bounds()
	if maxExtent <= 0 || (b.Dx() <= maxExtent && b.Dy() <= maxExtent) {
		return ToRGBA(img)
	}
	return resize.Thumbnail(uint(maxExtent), uint(maxExtent), img, resize.Lanczos3)
}
