package session

import "time"

// Touch records a user interaction at now: the controls become visible and the
// auto-hide timer restarts.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(now)
}

func (s *Session) touch(now time.Time) {
	s.touchedAt = now
	s.hideAt = now.Add(s.hideAfter)
}

// ToggleSettings opens or closes the settings panel and returns whether it is
// now open. Toggling counts as an interaction.
func (s *Session) ToggleSettings(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settingsOpen = !s.settingsOpen
	s.touch(now)
	return s.settingsOpen
}

// SettingsOpen reports whether the settings panel is open.
func (s *Session) SettingsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settingsOpen
}

// ControlsVisible reports whether the top controls are shown at now. They
// hide once the timer expires, except while the settings panel is open.
func (s *Session) ControlsVisible(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controlsVisible(now)
}

func (s *Session) controlsVisible(now time.Time) bool {
	return s.settingsOpen || now.Before(s.hideAt)
}

// BottomBarVisible reports whether the export/mode bar is shown at now. It
// follows the top controls and additionally needs both images.
func (s *Session) BottomBarVisible(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready() && s.controlsVisible(now)
}
