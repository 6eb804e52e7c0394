// Package session holds the interactive state around the compositor: the two
// image slots, the current composition settings and the visibility of the
// on-screen controls. Every mutating event recomposes the output when both
// images are present, so Result always reflects the latest state.
package session

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/imgmerge/compose"
	"github.com/nvr-ai/imgmerge/images"
)

// DefaultHideAfter is how long the controls stay visible after the last
// interaction.
const DefaultHideAfter = 3 * time.Second

var (
	// ErrIncomplete is returned when an operation needs both images.
	ErrIncomplete = errors.New("both images are required")
	// ErrInvalidSlot is returned for a slot index other than 0 or 1.
	ErrInvalidSlot = errors.New("invalid image slot")
)

// Session is a single user's editing state. It is safe for concurrent use.
type Session struct {
	mu sync.RWMutex

	images [2]image.Image
	config compose.Config
	result *image.RGBA

	maxPixels int64

	settingsOpen bool
	hideAfter    time.Duration
	hideAt       time.Time
	touchedAt    time.Time
}

// Options configures a new Session.
type Options struct {
	// Config is the initial composition configuration. Zero value means
	// compose.DefaultConfig().
	Config *compose.Config
	// HideAfter is the controls auto-hide delay (default DefaultHideAfter).
	HideAfter time.Duration
	// Now is the creation time, used to start the auto-hide timer.
	Now time.Time
	// MaxOutputPixels rejects changes whose output would be larger. Zero
	// means no limit.
	MaxOutputPixels int64
}

// New creates a session with no images loaded. The controls start visible.
func New(opts Options) *Session {
	cfg := compose.DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	hideAfter := opts.HideAfter
	if hideAfter <= 0 {
		hideAfter = DefaultHideAfter
	}
	s := &Session{
		config:    cfg.Normalized(),
		hideAfter: hideAfter,
		maxPixels: opts.MaxOutputPixels,
	}
	s.touch(opts.Now)
	return s
}

// SetImage loads img into slot 0 (first/background) or 1 (second/overlay).
// The slot is left unchanged when the resulting output would exceed the
// session's pixel limit.
func (s *Session) SetImage(slot int, img image.Image) error {
	if slot < 0 || slot > 1 {
		return errors.Wrapf(ErrInvalidSlot, "%d", slot)
	}
	if img == nil {
		return errors.New("image is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.images
	next[slot] = img
	if err := s.check(next, s.config); err != nil {
		return err
	}
	s.images = next
	s.recompose()
	return nil
}

// check returns compose.ErrOutputTooLarge when imgs composed with cfg would
// exceed the pixel limit. Callers hold mu.
func (s *Session) check(imgs [2]image.Image, cfg compose.Config) error {
	if imgs[0] == nil || imgs[1] == nil {
		return nil
	}
	return compose.CheckOutputSize(imgs[0].Bounds().Size(), imgs[1].Bounds().Size(), cfg, s.maxPixels)
}

// Clear unloads both images and drops the rendered result.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = [2]image.Image{}
	s.result = nil
}

// Ready reports whether both images are loaded.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready()
}

func (s *Session) ready() bool {
	return s.images[0] != nil && s.images[1] != nil
}

// Config returns the current composition configuration.
func (s *Session) Config() compose.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Result returns the latest composed image, or ErrIncomplete when an image is
// missing. The returned image must be treated as read-only.
func (s *Session) Result() (*image.RGBA, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil, ErrIncomplete
	}
	return s.result, nil
}

// update applies fn to a copy of the configuration and, if the result stays
// within the pixel limit, commits it and recomposes.
func (s *Session) update(fn func(c *compose.Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.config
	fn(&cfg)
	cfg = cfg.Normalized()
	if err := s.check(s.images, cfg); err != nil {
		return err
	}
	s.config = cfg
	s.recompose()
	return nil
}

// recompose renders the output when both images are present. Callers hold mu.
func (s *Session) recompose() {
	if !s.ready() {
		s.result = nil
		return
	}
	s.result = compose.Compose(s.images[0], s.images[1], s.config)
}

// Every configuration event below returns compose.ErrOutputTooLarge, leaving
// the configuration unchanged, when the new output would exceed the pixel
// limit.

// Apply replaces the whole configuration.
func (s *Session) Apply(cfg compose.Config) error {
	return s.update(func(c *compose.Config) { *c = cfg })
}

// SetMode switches the composition mode.
func (s *Session) SetMode(m compose.Mode) error {
	return s.update(func(c *compose.Config) { c.Mode = m })
}

// CycleMode advances vertical → horizontal → overlay → vertical and returns
// the mode now in effect.
func (s *Session) CycleMode() (compose.Mode, error) {
	err := s.update(func(c *compose.Config) { c.Mode = c.Mode.Next() })
	return s.Config().Mode, err
}

// SetSpacing sets the gap between stacked images.
func (s *Session) SetSpacing(px int) error {
	return s.update(func(c *compose.Config) { c.Spacing = px })
}

// SetBackground sets the stack background from a hex color. An invalid color
// leaves the current background unchanged.
func (s *Session) SetBackground(hex string) error {
	bg, err := compose.ParseColor(hex)
	if err != nil {
		return err
	}
	return s.update(func(c *compose.Config) { c.Background = bg })
}

// SetAnchor sets the overlay anchor.
func (s *Session) SetAnchor(a compose.Anchor) error {
	return s.update(func(c *compose.Config) { c.Anchor = a })
}

// SetOffset sets the overlay displacement.
func (s *Session) SetOffset(x, y int) error {
	return s.update(func(c *compose.Config) { c.OffsetX, c.OffsetY = x, y })
}

// SetScale sets the overlay scale percentage.
func (s *Session) SetScale(percent int) error {
	return s.update(func(c *compose.Config) { c.ScalePercent = percent })
}

// SetOpacity sets the overlay opacity percentage.
func (s *Session) SetOpacity(percent int) error {
	return s.update(func(c *compose.Config) { c.OpacityPercent = percent })
}

// SlotLabel names an image slot for display: "Background"/"Overlay" in
// overlay mode, "Image 1"/"Image 2" otherwise.
func (s *Session) SlotLabel(slot int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slotLabel(slot)
}

func (s *Session) slotLabel(slot int) string {
	if s.config.Mode == compose.Overlay {
		if slot == 0 {
			return "Background"
		}
		return "Overlay"
	}
	return fmt.Sprintf("Image %d", slot+1)
}

// ModeLabel describes the current mode, e.g. "merge vertical" or "overlay".
func (s *Session) ModeLabel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modeLabel()
}

func (s *Session) modeLabel() string {
	if s.config.Mode.Stacked() {
		return "merge " + s.config.Mode.String()
	}
	return s.config.Mode.String()
}

// OverlayVisibility returns the fraction of the scaled overlay that lands on
// the background, in [0,1]. It is 0 outside overlay mode or without images.
func (s *Session) OverlayVisibility() float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlayVisibility()
}

func (s *Session) overlayVisibility() float32 {
	if !s.ready() || s.config.Mode != compose.Overlay {
		return 0
	}
	bg := s.images[0].Bounds().Size()
	r, ok := compose.OverlayRect(bg, s.images[1].Bounds().Size(), s.config)
	if !ok {
		return 0
	}
	return images.VisibleFraction(r, images.FromRectangle(image.Rectangle{Max: bg}))
}

// ExportName returns the download file name "<mode>-<unix millis><ext>".
func (s *Session) ExportName(now time.Time, format images.ImageFormat) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ExportName(s.config.Mode, now, format)
}

// ExportName builds the file name used when saving a composition.
func ExportName(mode compose.Mode, now time.Time, format images.ImageFormat) string {
	if !format.Valid() {
		format = images.FormatPNG
	}
	return fmt.Sprintf("%s-%d%s", mode, now.UnixMilli(), format.Extension())
}
