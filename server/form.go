package server

import (
	"net/url"

	"github.com/ajg/form"
	"github.com/pkg/errors"

	"github.com/nvr-ai/imgmerge/compose"
)

// configForm mirrors compose.Config as form fields.
type configForm struct {
	Mode       string `form:"mode"`
	Spacing    int    `form:"spacing"`
	Background string `form:"background"`
	Anchor     string `form:"anchor"`
	OffsetX    int    `form:"offsetX"`
	OffsetY    int    `form:"offsetY"`
	Scale      int    `form:"scale"`
	Opacity    int    `form:"opacity"`
	Filter     string `form:"filter"`
}

// applyForm decodes config fields from vs and applies the ones present to
// base. Unknown keys are ignored so multipart file fields can share vs.
func applyForm(base compose.Config, vs url.Values) (compose.Config, error) {
	var f configForm
	dec := form.NewDecoder(nil)
	dec.IgnoreUnknownKeys(true)
	if err := dec.DecodeValues(&f, vs); err != nil {
		return base, errors.Wrap(err, "failed to decode form")
	}

	cfg := base
	if vs.Has("mode") {
		m, err := compose.ParseMode(f.Mode)
		if err != nil {
			return base, err
		}
		cfg.Mode = m
	}
	if vs.Has("spacing") {
		cfg.Spacing = f.Spacing
	}
	if vs.Has("background") {
		bg, err := compose.ParseColor(f.Background)
		if err != nil {
			return base, err
		}
		cfg.Background = bg
	}
	if vs.Has("anchor") {
		a, err := compose.ParseAnchor(f.Anchor)
		if err != nil {
			return base, err
		}
		cfg.Anchor = a
	}
	if vs.Has("offsetX") {
		cfg.OffsetX = f.OffsetX
	}
	if vs.Has("offsetY") {
		cfg.OffsetY = f.OffsetY
	}
	if vs.Has("scale") {
		cfg.ScalePercent = f.Scale
	}
	if vs.Has("opacity") {
		cfg.OpacityPercent = f.Opacity
	}
	if vs.Has("filter") {
		filter, err := compose.ParseFilter(f.Filter)
		if err != nil {
			return base, err
		}
		cfg.Filter = filter
	}
	return cfg.Normalized(), nil
}
