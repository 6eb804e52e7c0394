package compose

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/sahilm/fuzzy"

	"github.com/nvr-ai/imgmerge/images"
)

var (
	// ErrUnknownMode is returned by ParseMode for unrecognized names.
	ErrUnknownMode = errors.New("unknown mode")
	// ErrUnknownAnchor is returned by ParseAnchor for unrecognized names.
	ErrUnknownAnchor = errors.New("unknown anchor")
	// ErrUnknownFilter is returned by ParseFilter for unrecognized names.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrInvalidColor is returned by ParseColor for malformed colors.
	ErrInvalidColor = errors.New("invalid color")
)

var modeNames = []string{"vertical", "horizontal", "overlay"}

var anchorNames = []string{
	"top-left", "top-center", "top-right",
	"center-left", "center", "center-right",
	"bottom-left", "bottom-center", "bottom-right",
}

// String returns the lowercase mode name.
func (m Mode) String() string {
	if m < Vertical || m > Overlay {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// Next returns the mode after m in the cycle vertical, horizontal, overlay.
func (m Mode) Next() Mode {
	return (m + 1) % Mode(len(modeNames))
}

// Stacked reports whether m lays the images out side by side.
func (m Mode) Stacked() bool {
	return m == Vertical || m == Horizontal
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// String returns the hyphenated anchor name, e.g. "bottom-right".
func (a Anchor) String() string {
	if a < TopLeft || a > BottomRight {
		return fmt.Sprintf("anchor(%d)", int(a))
	}
	return anchorNames[a]
}

// MarshalText implements encoding.TextMarshaler.
func (a Anchor) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Anchor) UnmarshalText(text []byte) error {
	parsed, err := ParseAnchor(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ModeNames returns the mode names in cycle order.
func ModeNames() []string {
	return append([]string(nil), modeNames...)
}

// AnchorNames returns the anchor names row by row.
func AnchorNames() []string {
	return append([]string(nil), anchorNames...)
}

// normalizeName folds case and separators so "TopLeft", "top_left" and
// "top-left" compare equal.
func normalizeName(s string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

// lookup finds name among candidates, returning its index or -1.
func lookup(name string, candidates []string) int {
	key := normalizeName(name)
	for i, c := range candidates {
		if normalizeName(c) == key {
			return i
		}
	}
	return -1
}

// unknown wraps sentinel with the offending name and, when one exists, the
// closest candidate.
func unknown(sentinel error, name string, candidates []string) error {
	matches := fuzzy.Find(strings.ToLower(strings.TrimSpace(name)), candidates)
	if len(matches) > 0 {
		return errors.Wrapf(sentinel, "%q (did you mean %q?)", name, matches[0].Str)
	}
	return errors.Wrapf(sentinel, "%q (expected one of %s)", name, strings.Join(candidates, ", "))
}

// ParseMode resolves a mode name.
func ParseMode(name string) (Mode, error) {
	if i := lookup(name, modeNames); i >= 0 {
		return Mode(i), nil
	}
	return Vertical, unknown(ErrUnknownMode, name, modeNames)
}

// ParseAnchor resolves an anchor name such as "bottom-right" or "BottomRight".
func ParseAnchor(name string) (Anchor, error) {
	if i := lookup(name, anchorNames); i >= 0 {
		return Anchor(i), nil
	}
	return Center, unknown(ErrUnknownAnchor, name, anchorNames)
}

// ParseFilter resolves a resampling filter name.
func ParseFilter(name string) (images.ResampleFilter, error) {
	if f, ok := images.ParseFilter(name); ok {
		return f, nil
	}
	return images.BilinearFilter, unknown(ErrUnknownFilter, name, images.FilterNames())
}

// ParseColor parses a "#rrggbb" or "#rgb" hex color into an opaque color.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, errors.Wrapf(ErrInvalidColor, "%q", s)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// FormatColor renders c as "#rrggbb", ignoring alpha.
func FormatColor(c color.Color) string {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return "#000000"
	}
	// Undo premultiplication.
	r, g, b = r*0xffff/a, g*0xffff/a, b*0xffff/a
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
