package images

import (
	"crypto/md5"
	"fmt"
	"image"
)

// Checksum generates a deterministic checksum of an image's pixels, used to
// verify that composition is idempotent.
//
// Arguments:
// - img: The image to compute the checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string, or "empty" for a nil or zero-area image.
//
// Example:
//
// ```go
//
//	sum := Checksum(out)
//	fmt.Printf("output checksum: %s\n", sum)
//
// ```
func Checksum(img image.Image) string {
	if img == nil || img.Bounds().Empty() {
		return "empty"
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Bounds().Min != (image.Point{}) || rgba.Stride != 4*rgba.Bounds().Dx() {
		rgba = ToRGBA(img)
	}

	w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	hash := md5.New()
	fmt.Fprintf(hash, "%dx%d:", w, h)
	hash.Write(rgba.Pix[:4*w*h])
	return fmt.Sprintf("%x", hash.Sum(nil))
}
