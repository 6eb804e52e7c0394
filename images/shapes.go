// Package images - Rectangle helpers used to clip overlays against a canvas.
package images

import (
	"image"
	"math"
)

// Rect is a rectangle in pixel units. Coordinates are float64 so that a
// magnified overlay far larger than the int range keeps its exact extent.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 float64
}

// RectAt returns the rectangle of size w x h whose top-left corner is (x, y).
func RectAt(x, y, w, h float64) Rect {
	return Rect{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

// FromRectangle converts an image.Rectangle.
func FromRectangle(r image.Rectangle) Rect {
	return Rect{X1: float64(r.Min.X), Y1: float64(r.Min.Y), X2: float64(r.Max.X), Y2: float64(r.Max.Y)}
}

// Dx returns the width of r, or 0 when r is empty.
func (r Rect) Dx() float64 {
	return math.Max(r.X2-r.X1, 0)
}

// Dy returns the height of r, or 0 when r is empty.
func (r Rect) Dy() float64 {
	return math.Max(r.Y2-r.Y1, 0)
}

// Empty reports whether r contains no pixels.
func (r Rect) Empty() bool {
	return !(r.X2 > r.X1 && r.Y2 > r.Y1)
}

// Area returns the number of pixels in r.
func (r Rect) Area() float64 {
	return r.Dx() * r.Dy()
}

// Intersect returns the largest rectangle contained by both r and o. The
// top-left corner is the maximum of the two top-left corners and the
// bottom-right corner the minimum of the two bottom-right corners. When the
// rectangles do not overlap the zero Rect is returned.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
		X2: math.Min(r.X2, o.X2),
		Y2: math.Min(r.Y2, o.Y2),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Clip returns the whole pixels of r that lie inside bounds. The result is
// always within bounds, so it is safe to convert however large r is.
func (r Rect) Clip(bounds image.Rectangle) image.Rectangle {
	in := r.Intersect(FromRectangle(bounds))
	if in.Empty() {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor(in.X1)), int(math.Floor(in.Y1)),
		int(math.Ceil(in.X2)), int(math.Ceil(in.Y2)),
	)
}

// VisibleFraction returns the share of inner's area that lies inside outer,
// in [0, 1]. An empty inner rectangle is reported as fully hidden.
//
// Example Usage:
// ```go
//
//	canvas := Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}
//	overlay := RectAt(90, 90, 20, 20)
//	VisibleFraction(overlay, canvas) // 0.25: a 10x10 corner of a 20x20 overlay
//
// ```
func VisibleFraction(inner, outer Rect) float32 {
	area := inner.Area()
	if area == 0 {
		return 0
	}
	return float32(inner.Intersect(outer).Area() / area)
}
