package compose

import (
	"image"
	"image/draw"
)

// axis maps between image coordinates and (main, cross) coordinates, where
// main runs along the stacking direction.
type axis struct {
	horizontal bool
}

func (ax axis) split(p image.Point) (main, cross int) {
	if ax.horizontal {
		return p.X, p.Y
	}
	return p.Y, p.X
}

func (ax axis) join(main, cross int) image.Point {
	if ax.horizontal {
		return image.Pt(main, cross)
	}
	return image.Pt(cross, main)
}

// layout is the canvas size and top-left position of each stacked image.
type layout struct {
	size image.Point
	posA image.Point
	posB image.Point
}

// stackLayout computes where a and b land when stacked. Both images are
// centered on the cross axis using the same integer rounding. The gap shrinks
// so the main axis stays within MaxCanvasExtent.
func stackLayout(a, b image.Point, cfg Config) layout {
	ax := axis{horizontal: cfg.Mode == Horizontal}
	mainA, crossA := ax.split(a)
	mainB, crossB := ax.split(b)

	spacing := min(max(cfg.Spacing, 0), max(MaxCanvasExtent-mainA-mainB, 0))
	cross := max(crossA, crossB)
	return layout{
		size: ax.join(mainA+mainB+spacing, cross),
		posA: ax.join(0, (cross-crossA)/2),
		posB: ax.join(mainA+spacing, (cross-crossB)/2),
	}
}

// composeStack renders Vertical and Horizontal modes. cfg must be normalized.
func composeStack(a, b image.Image, cfg Config) *image.RGBA {
	ab, bb := a.Bounds(), b.Bounds()
	l := stackLayout(ab.Size(), bb.Size(), cfg)

	dst := image.NewRGBA(image.Rectangle{Max: l.size})
	draw.Draw(dst, dst.Bounds(), image.NewUniform(cfg.Background), image.Point{}, draw.Src)

	// Images are drawn at full opacity; transparent source pixels still show
	// the background through.
	draw.Draw(dst, image.Rectangle{Min: l.posA, Max: l.posA.Add(ab.Size())}, a, ab.Min, draw.Over)
	draw.Draw(dst, image.Rectangle{Min: l.posB, Max: l.posB.Add(bb.Size())}, b, bb.Min, draw.Over)

	return dst
}
