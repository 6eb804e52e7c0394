package session

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/imgmerge/compose"
	"github.com/nvr-ai/imgmerge/images"
)

var epoch = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func loaded(t *testing.T) *Session {
	t.Helper()
	s := New(Options{Now: epoch})
	require.NoError(t, s.SetImage(0, solid(20, 10, color.RGBA{R: 255, A: 255})))
	require.NoError(t, s.SetImage(1, solid(10, 30, color.RGBA{B: 255, A: 255})))
	return s
}

func TestSession_ComposesOnlyWhenReady(t *testing.T) {
	s := New(Options{Now: epoch})

	_, err := s.Result()
	assert.True(t, errors.Is(err, ErrIncomplete))

	require.NoError(t, s.SetImage(0, solid(20, 10, color.RGBA{A: 255})))
	assert.False(t, s.Ready())
	_, err = s.Result()
	assert.True(t, errors.Is(err, ErrIncomplete))

	require.NoError(t, s.SetImage(1, solid(10, 30, color.RGBA{A: 255})))
	assert.True(t, s.Ready())
	out, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 40), out.Bounds())
}

func TestSession_SetImageErrors(t *testing.T) {
	s := New(Options{Now: epoch})
	assert.True(t, errors.Is(s.SetImage(2, solid(1, 1, color.RGBA{})), ErrInvalidSlot))
	assert.Error(t, s.SetImage(0, nil))
}

func TestSession_RecomposesOnEveryChange(t *testing.T) {
	s := loaded(t)

	s.SetSpacing(5)
	out, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 45), out.Bounds())

	s.SetMode(compose.Horizontal)
	out, _ = s.Result()
	assert.Equal(t, image.Rect(0, 0, 35, 30), out.Bounds())

	s.SetMode(compose.Overlay)
	out, _ = s.Result()
	assert.Equal(t, image.Rect(0, 0, 20, 10), out.Bounds())

	s.SetOpacity(0)
	out, _ = s.Result()
	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.RGBAAt(10, 5))
}

func TestSession_CycleMode(t *testing.T) {
	s := New(Options{Now: epoch})
	for _, want := range []compose.Mode{compose.Horizontal, compose.Overlay, compose.Vertical} {
		got, err := s.CycleMode()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSession_OutputPixelLimit(t *testing.T) {
	// 20x10 over 10x30 stacks to 20x40 = 800 pixels.
	s := New(Options{Now: epoch, MaxOutputPixels: 800})
	require.NoError(t, s.SetImage(0, solid(20, 10, color.RGBA{R: 255, A: 255})))
	require.NoError(t, s.SetImage(1, solid(10, 30, color.RGBA{B: 255, A: 255})))

	err := s.SetSpacing(1 << 40)
	assert.True(t, errors.Is(err, compose.ErrOutputTooLarge))
	assert.Equal(t, 0, s.Config().Spacing, "rejected spacing keeps the previous value")

	// Horizontal would be 30x30 = 900 pixels.
	mode, err := s.CycleMode()
	assert.True(t, errors.Is(err, compose.ErrOutputTooLarge))
	assert.Equal(t, compose.Vertical, mode)

	err = s.SetImage(1, solid(10, 31, color.RGBA{B: 255, A: 255}))
	assert.True(t, errors.Is(err, compose.ErrOutputTooLarge))

	out, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 40), out.Bounds(), "rejected image keeps the previous result")

	// Overlay output is the background size and always fits.
	require.NoError(t, s.SetMode(compose.Overlay))
	require.NoError(t, s.SetScale(1000))
}

func TestSession_SetBackground(t *testing.T) {
	s := loaded(t)
	require.NoError(t, s.SetBackground("#00ff00"))
	assert.Equal(t, "#00ff00", s.Config().BackgroundHex())

	err := s.SetBackground("not-a-color")
	assert.True(t, errors.Is(err, compose.ErrInvalidColor))
	assert.Equal(t, "#00ff00", s.Config().BackgroundHex(), "invalid color keeps the previous background")

	// The narrow second image leaves green margins.
	out, _ := s.Result()
	assert.Equal(t, color.RGBA{G: 255, A: 255}, out.RGBAAt(0, 20))
}

func TestSession_OverlaySetters(t *testing.T) {
	s := loaded(t)
	s.SetMode(compose.Overlay)
	s.SetAnchor(compose.TopLeft)
	s.SetOffset(-3, 4)
	s.SetScale(50)
	s.SetOpacity(140)

	cfg := s.Config()
	assert.Equal(t, compose.TopLeft, cfg.Anchor)
	assert.Equal(t, -3, cfg.OffsetX)
	assert.Equal(t, 4, cfg.OffsetY)
	assert.Equal(t, 50, cfg.ScalePercent)
	assert.Equal(t, 100, cfg.OpacityPercent, "opacity is clamped")
}

func TestSession_Clear(t *testing.T) {
	s := loaded(t)
	s.Clear()
	assert.False(t, s.Ready())
	_, err := s.Result()
	assert.True(t, errors.Is(err, ErrIncomplete))
}

func TestSession_Labels(t *testing.T) {
	s := New(Options{Now: epoch})
	assert.Equal(t, "Image 1", s.SlotLabel(0))
	assert.Equal(t, "Image 2", s.SlotLabel(1))
	assert.Equal(t, "merge vertical", s.ModeLabel())

	s.SetMode(compose.Overlay)
	assert.Equal(t, "Background", s.SlotLabel(0))
	assert.Equal(t, "Overlay", s.SlotLabel(1))
	assert.Equal(t, "overlay", s.ModeLabel())
}

func TestSession_OverlayVisibility(t *testing.T) {
	s := loaded(t)
	assert.Zero(t, s.OverlayVisibility(), "not in overlay mode")

	s.SetMode(compose.Overlay)
	s.SetAnchor(compose.TopLeft)
	// 10x30 overlay on a 20x10 background: 10 of 30 rows visible.
	assert.InDelta(t, 1.0/3.0, s.OverlayVisibility(), 1e-6)

	s.SetOffset(100, 0)
	assert.Zero(t, s.OverlayVisibility())
}

func TestExportName(t *testing.T) {
	s := New(Options{Now: epoch})
	s.SetMode(compose.Horizontal)

	assert.Equal(t, "horizontal-1792411200000.png", s.ExportName(epoch, images.FormatPNG))
	assert.Equal(t, "overlay-1792411200000.jpg", ExportName(compose.Overlay, epoch, images.FormatJPEG))
	assert.Equal(t, "vertical-1792411200000.png", ExportName(compose.Vertical, epoch, images.ImageFormat("gif")))
}

func TestSession_ControlsAutoHide(t *testing.T) {
	s := New(Options{Now: epoch, HideAfter: 3 * time.Second})

	assert.True(t, s.ControlsVisible(epoch.Add(2*time.Second)))
	assert.False(t, s.ControlsVisible(epoch.Add(3*time.Second)))

	s.Touch(epoch.Add(10 * time.Second))
	assert.True(t, s.ControlsVisible(epoch.Add(12*time.Second)))
	assert.False(t, s.ControlsVisible(epoch.Add(14*time.Second)))

	// The bottom bar also needs both images.
	assert.False(t, s.BottomBarVisible(epoch.Add(11*time.Second)))
	require.NoError(t, s.SetImage(0, solid(2, 2, color.RGBA{A: 255})))
	require.NoError(t, s.SetImage(1, solid(2, 2, color.RGBA{A: 255})))
	assert.True(t, s.BottomBarVisible(epoch.Add(11*time.Second)))
	assert.False(t, s.BottomBarVisible(epoch.Add(20*time.Second)))
}

func TestSession_SettingsKeepControlsVisible(t *testing.T) {
	s := New(Options{Now: epoch})

	assert.True(t, s.ToggleSettings(epoch))
	assert.True(t, s.SettingsOpen())
	assert.True(t, s.ControlsVisible(epoch.Add(time.Hour)))

	assert.False(t, s.ToggleSettings(epoch.Add(time.Hour)))
	assert.True(t, s.ControlsVisible(epoch.Add(time.Hour+time.Second)))
	assert.False(t, s.ControlsVisible(epoch.Add(time.Hour+DefaultHideAfter)))
}

func TestSession_Snapshot(t *testing.T) {
	s := loaded(t)
	s.SetMode(compose.Overlay)
	s.Touch(epoch.Add(time.Second))

	st := s.Snapshot(epoch.Add(2 * time.Second))
	assert.True(t, st.Ready)
	assert.Equal(t, "overlay", st.ModeLabel)
	assert.Equal(t, [2]string{"Background", "Overlay"}, st.SlotLabels)
	assert.Equal(t, &Size{Width: 20, Height: 10}, st.Inputs[0])
	assert.Equal(t, &Size{Width: 10, Height: 30}, st.Inputs[1])
	assert.Equal(t, &Size{Width: 20, Height: 10}, st.Output)
	assert.Equal(t, "#000000", st.Background)
	assert.Equal(t, "bilinear", st.Filter)
	assert.True(t, st.ControlsVisible)
	assert.True(t, st.BottomBarVisible)
	assert.Equal(t, epoch.Add(time.Second), st.LastInteraction)

	empty := New(Options{Now: epoch}).Snapshot(epoch)
	assert.False(t, empty.Ready)
	assert.Nil(t, empty.Output)
	assert.Nil(t, empty.Inputs[0])
}

func TestSession_SnapshotOutputResolution(t *testing.T) {
	s := New(Options{Now: epoch})
	require.NoError(t, s.SetImage(0, image.NewRGBA(image.Rect(0, 0, 1280, 360))))
	require.NoError(t, s.SetImage(1, image.NewRGBA(image.Rect(0, 0, 1280, 360))))

	st := s.Snapshot(epoch)
	assert.Equal(t, &Size{Width: 1280, Height: 720}, st.Output)
	assert.Equal(t, "HD 720p", st.OutputResolution)

	assert.Empty(t, loaded(t).Snapshot(epoch).OutputResolution, "smaller than every standard size")
}
