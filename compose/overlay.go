package compose

import (
	"image"
	"math"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/imgmerge/images"
)

// Placement returns the overlay's top-left corner for the given anchor, before
// any offset is applied. bgW/bgH are the background size and ovW/ovH the
// scaled overlay size; the values may be fractional or negative.
//
//	anchor        x             y
//	TopLeft       0             0
//	TopCenter     (bgW-ovW)/2   0
//	TopRight      bgW-ovW       0
//	CenterLeft    0             (bgH-ovH)/2
//	Center        (bgW-ovW)/2   (bgH-ovH)/2
//	CenterRight   bgW-ovW       (bgH-ovH)/2
//	BottomLeft    0             bgH-ovH
//	BottomCenter  (bgW-ovW)/2   bgH-ovH
//	BottomRight   bgW-ovW       bgH-ovH
func Placement(bgW, bgH int, ovW, ovH float64, anchor Anchor) (x, y float64) {
	col, row := int(anchor)%3, int(anchor)/3
	x = float64(col) * (float64(bgW) - ovW) / 2
	y = float64(row) * (float64(bgH) - ovH) / 2
	return x, y
}

// ScaledSize returns the overlay's logical size after scaling.
func ScaledSize(size image.Point, scalePercent int) (w, h float64) {
	factor := float64(scalePercent) / 100
	return float64(size.X) * factor, float64(size.Y) * factor
}

// OverlayRect returns the area the scaled overlay covers in background
// coordinates: round(ovW) x round(ovH) pixels with its top-left corner at the
// floored anchor position plus the offset. It may extend past the background,
// lie entirely outside it, or exceed the int range. ok is false when the
// scaled overlay has no pixels, which is the case for any ScalePercent <= 0.
func OverlayRect(bg, ov image.Point, cfg Config) (r images.Rect, ok bool) {
	cfg = cfg.Normalized()
	ovW, ovH := ScaledSize(ov, cfg.ScalePercent)

	w, h := math.Round(ovW), math.Round(ovH)
	if !(w > 0 && h > 0) {
		return images.Rect{}, false
	}

	x0, y0 := Placement(bg.X, bg.Y, ovW, ovH, cfg.Anchor)
	x := math.Floor(x0) + float64(cfg.OffsetX)
	y := math.Floor(y0) + float64(cfg.OffsetY)
	return images.RectAt(x, y, w, h), true
}

// composeOverlay renders Overlay mode. cfg must be normalized. Only the part
// of the overlay that lands on the background is resampled.
func composeOverlay(a, b image.Image, cfg Config) *image.RGBA {
	dst := images.ToRGBA(a)

	alpha := float32(cfg.OpacityPercent) / 100
	if alpha <= 0 {
		return dst
	}

	footprint, ok := OverlayRect(a.Bounds().Size(), b.Bounds().Size(), cfg)
	if !ok {
		return dst
	}
	visible := footprint.Clip(dst.Bounds())
	if visible.Empty() {
		return dst
	}

	src := images.ResizeRegion(b, footprint.Dx(), footprint.Dy(), footprint.X1, footprint.Y1, visible, cfg.Filter)
	blend(dst, src, alpha)
	return dst
}

// blend draws src over dst with a uniform extra alpha, using source-over on
// premultiplied channels:
//
//	out = src*alpha + dst*(1 - srcA*alpha)
//
// src's bounds are the region of dst to write.
func blend(dst, src *image.RGBA, alpha float32) {
	r := src.Bounds()
	images.Parallel(r.Dy(), func(partStart, partEnd int) {
		for y := r.Min.Y + partStart; y < r.Min.Y+partEnd; y++ {
			di := dst.PixOffset(r.Min.X, y)
			si := src.PixOffset(r.Min.X, y)
			for x := r.Min.X; x < r.Max.X; x++ {
				inv := 1 - float32(src.Pix[si+3])*alpha/255
				for ch := 0; ch < 4; ch++ {
					v := float32(src.Pix[si+ch])*alpha + float32(dst.Pix[di+ch])*inv
					dst.Pix[di+ch] = uint8(min(math32.Round(v), 255))
				}
				di += 4
				si += 4
			}
		}
	})
}
