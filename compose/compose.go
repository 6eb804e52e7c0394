package compose

import (
	"image"

	"github.com/pkg/errors"
)

// MaxCanvasExtent bounds the stacking axis of a stacked output. Spacing is
// reduced so that the two images plus the gap never exceed it; inputs that
// are already larger are still drawn in full with no gap.
const MaxCanvasExtent = 1 << 16

// ErrOutputTooLarge is returned by CheckOutputSize.
var ErrOutputTooLarge = errors.New("output too large")

// Compose combines a and b into a new RGBA image according to cfg.
//
// Both images must be non-nil with positive width and height; that is the
// caller's contract and is not checked. Out-of-range configuration values are
// clamped (see Config.Normalized) rather than rejected, so Compose always
// returns an image. The inputs are never modified and the result is a pure
// function of the arguments: calling Compose twice with the same inputs
// yields byte-identical output.
//
// Arguments:
//   - a: The first image (top/left in stack modes, background in Overlay).
//   - b: The second image (bottom/right in stack modes, overlay in Overlay).
//   - cfg: The composition parameters.
//
// Returns:
//   - *image.RGBA: A freshly allocated image with bounds starting at (0,0).
//
// Example:
//
//	cfg := DefaultConfig()
//	cfg.Mode = Horizontal
//	cfg.Spacing = 10
//	out := Compose(left, right, cfg)
func Compose(a, b image.Image, cfg Config) *image.RGBA {
	cfg = cfg.Normalized()
	if cfg.Mode == Overlay {
		return composeOverlay(a, b, cfg)
	}
	return composeStack(a, b, cfg)
}

// OutputSize returns the dimensions Compose would produce for images of size
// a and b, without rendering anything.
func OutputSize(a, b image.Point, cfg Config) image.Point {
	cfg = cfg.Normalized()
	if cfg.Mode == Overlay {
		return a
	}
	return stackLayout(a, b, cfg).size
}

// CheckOutputSize returns ErrOutputTooLarge when composing images of sizes a
// and b with cfg would produce more than maxPixels pixels. A maxPixels of 0
// or less disables the check.
func CheckOutputSize(a, b image.Point, cfg Config, maxPixels int64) error {
	if maxPixels <= 0 {
		return nil
	}
	size := OutputSize(a, b, cfg)
	if pixels := int64(size.X) * int64(size.Y); pixels > maxPixels {
		return errors.Wrapf(ErrOutputTooLarge, "%dx%d is %d pixels, limit %d", size.X, size.Y, pixels, maxPixels)
	}
	return nil
}
