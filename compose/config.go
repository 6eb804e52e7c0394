// Package compose combines two decoded images into one raster, either stacked
// along an axis or with the second image alpha-blended over the first.
package compose

import (
	"image/color"

	"github.com/nvr-ai/imgmerge/images"
)

// Mode selects how the two images are combined.
type Mode int

const (
	// Vertical stacks the second image below the first.
	Vertical Mode = iota
	// Horizontal places the second image to the right of the first.
	Horizontal
	// Overlay blends the second image over the first.
	Overlay
)

// Anchor is the reference point used to position an overlay on the background.
type Anchor int

// The nine anchors, row by row.
const (
	TopLeft Anchor = iota
	TopCenter
	TopRight
	CenterLeft
	Center
	CenterRight
	BottomLeft
	BottomCenter
	BottomRight
)

// Config is the full set of composition parameters. Fields that do not apply
// to the selected Mode are ignored.
type Config struct {
	// Mode selects stacking or overlay.
	Mode Mode `json:"mode"`
	// Spacing is the gap in pixels between stacked images.
	Spacing int `json:"spacing"`
	// Background fills the canvas area not covered by stacked images.
	Background color.Color `json:"-"`
	// Anchor positions the overlay before the offset is applied.
	Anchor Anchor `json:"anchor"`
	// OffsetX shifts the overlay horizontally after anchoring.
	OffsetX int `json:"offsetX"`
	// OffsetY shifts the overlay vertically after anchoring.
	OffsetY int `json:"offsetY"`
	// ScalePercent scales the overlay; 100 draws it at native size.
	ScalePercent int `json:"scale"`
	// OpacityPercent is the overlay alpha in [0,100].
	OpacityPercent int `json:"opacity"`
	// Filter is the resampling filter used when the overlay is scaled.
	Filter images.ResampleFilter `json:"-"`
}

// DefaultConfig returns the settings a fresh session starts with.
func DefaultConfig() Config {
	return Config{
		Mode:           Vertical,
		Spacing:        0,
		Background:     color.RGBA{A: 255},
		Anchor:         Center,
		ScalePercent:   100,
		OpacityPercent: 100,
		Filter:         images.BilinearFilter,
	}
}

// Normalized returns a copy of c with out-of-range values clamped into the
// range the compositor can render: spacing is limited to [0,MaxCanvasExtent], opacity is
// limited to [0,100], a missing background becomes opaque black and unknown
// modes, anchors or filters fall back to their defaults.
func (c Config) Normalized() Config {
	c.Spacing = min(max(c.Spacing, 0), MaxCanvasExtent)
	c.OpacityPercent = min(max(c.OpacityPercent, 0), 100)
	if c.Background == nil {
		c.Background = color.RGBA{A: 255}
	}
	if c.Mode < Vertical || c.Mode > Overlay {
		c.Mode = Vertical
	}
	if c.Anchor < TopLeft || c.Anchor > BottomRight {
		c.Anchor = Center
	}
	if c.Filter.String() == "unknown" {
		c.Filter = images.BilinearFilter
	}
	return c
}

// BackgroundHex returns the background color as "#rrggbb".
func (c Config) BackgroundHex() string {
	return FormatColor(c.Normalized().Background)
}
