package session

import (
	"image"
	"time"

	"github.com/nvr-ai/imgmerge/compose"
	"github.com/nvr-ai/imgmerge/images"
)

// Size is an image's pixel dimensions.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func sizeOf(img image.Image) *Size {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	return &Size{Width: b.Dx(), Height: b.Dy()}
}

// State is a point-in-time snapshot of a session, suitable for rendering a
// user interface or serializing as JSON.
type State struct {
	Config            compose.Config `json:"config"`
	Background        string         `json:"background"`
	Filter            string         `json:"filter"`
	ModeLabel         string         `json:"modeLabel"`
	SlotLabels        [2]string      `json:"slotLabels"`
	Inputs            [2]*Size       `json:"inputs"`
	Output            *Size          `json:"output,omitempty"`
	OutputResolution  string         `json:"outputResolution,omitempty"`
	Ready             bool           `json:"ready"`
	OverlayVisibility float32        `json:"overlayVisibility"`
	SettingsOpen      bool           `json:"settingsOpen"`
	ControlsVisible   bool           `json:"controlsVisible"`
	BottomBarVisible  bool           `json:"bottomBarVisible"`
	LastInteraction   time.Time      `json:"lastInteraction"`
}

// Snapshot captures the session state as seen at now.
func (s *Session) Snapshot(now time.Time) State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Config:            s.config,
		Background:        s.config.BackgroundHex(),
		Filter:            s.config.Filter.String(),
		ModeLabel:         s.modeLabel(),
		SlotLabels:        [2]string{s.slotLabel(0), s.slotLabel(1)},
		Inputs:            [2]*Size{sizeOf(s.images[0]), sizeOf(s.images[1])},
		Ready:             s.ready(),
		OverlayVisibility: s.overlayVisibility(),
		SettingsOpen:      s.settingsOpen,
		ControlsVisible:   s.controlsVisible(now),
		BottomBarVisible:  s.ready() && s.controlsVisible(now),
		LastInteraction:   s.touchedAt,
	}
	if s.result != nil {
		st.Output = sizeOf(s.result)
		if r, ok := images.LargestResolutionWithin(st.Output.Width, st.Output.Height); ok {
			st.OutputResolution = r.Name
		}
	}
	return st
}
