// Package config loads runtime settings for the imgmerge binary from the
// environment, optionally seeded from .env files.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/nvr-ai/imgmerge/images"
	"github.com/nvr-ai/imgmerge/session"
)

// Environment variable names.
const (
	EnvAddr              = "IMGMERGE_ADDR"
	EnvMaxUploadBytes    = "IMGMERGE_MAX_UPLOAD_BYTES"
	EnvFormat            = "IMGMERGE_FORMAT"
	EnvJPEGQuality       = "IMGMERGE_JPEG_QUALITY"
	EnvWebPQuality       = "IMGMERGE_WEBP_QUALITY"
	EnvPreviewMax        = "IMGMERGE_PREVIEW_MAX"
	EnvControlsHideAfter = "IMGMERGE_CONTROLS_HIDE_AFTER"
	EnvStatsInterval     = "IMGMERGE_STATS_INTERVAL"
	EnvMaxOutputPixels   = "IMGMERGE_MAX_OUTPUT_PIXELS"
)

// Settings holds the binary's runtime configuration.
type Settings struct {
	// Addr is the HTTP listen address.
	Addr string `json:"addr"`
	// MaxUploadBytes limits the size of a single uploaded image.
	MaxUploadBytes int64 `json:"maxUploadBytes"`
	// Format is the default export format.
	Format images.ImageFormat `json:"format"`
	// Encode tunes the lossy encoders.
	Encode images.EncodeOptions `json:"encode"`
	// PreviewMax bounds the width and height of preview images.
	PreviewMax int `json:"previewMax"`
	// ControlsHideAfter is the auto-hide delay for session controls.
	ControlsHideAfter time.Duration `json:"controlsHideAfter"`
	// StatsInterval is how often the server logs its profiler report.
	StatsInterval time.Duration `json:"statsInterval"`
	// MaxOutputPixels rejects compositions larger than this. Zero disables
	// the check.
	MaxOutputPixels int64 `json:"maxOutputPixels"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Addr:              ":8080",
		MaxUploadBytes:    32 << 20,
		Format:            images.FormatPNG,
		Encode:            images.EncodeOptions{JPEGQuality: 90, WebPQuality: 90},
		PreviewMax:        1024,
		ControlsHideAfter: session.DefaultHideAfter,
		StatsInterval:     time.Minute,
		MaxOutputPixels:   1 << 26,
	}
}

// Load reads the given .env files (missing files are skipped), then builds
// Settings from the defaults overridden by any IMGMERGE_* variables present in
// the environment. Variables already set in the environment win over .env
// values.
func Load(envFiles ...string) (*Settings, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, errors.Wrapf(err, "failed to load %s", f)
		}
	}

	s := Default()
	if v, ok := os.LookupEnv(EnvAddr); ok && v != "" {
		s.Addr = v
	}
	if v, ok := os.LookupEnv(EnvFormat); ok && v != "" {
		f, valid := images.ParseFormat(v)
		if !valid {
			return nil, errors.Wrapf(images.ErrUnsupportedFormat, "%s=%q", EnvFormat, v)
		}
		s.Format = f
	}

	var err error
	if s.MaxUploadBytes, err = lookupInt64(EnvMaxUploadBytes, s.MaxUploadBytes); err != nil {
		return nil, err
	}
	if s.MaxOutputPixels, err = lookupInt64(EnvMaxOutputPixels, s.MaxOutputPixels); err != nil {
		return nil, err
	}
	if s.Encode.JPEGQuality, err = lookupInt(EnvJPEGQuality, s.Encode.JPEGQuality); err != nil {
		return nil, err
	}
	webpQuality, err := lookupInt(EnvWebPQuality, int(s.Encode.WebPQuality))
	if err != nil {
		return nil, err
	}
	s.Encode.WebPQuality = float32(webpQuality)
	if s.PreviewMax, err = lookupInt(EnvPreviewMax, s.PreviewMax); err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv(EnvControlsHideAfter); ok && v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			return nil, errors.Wrapf(perr, "invalid %s", EnvControlsHideAfter)
		}
		s.ControlsHideAfter = d
	}
	if v, ok := os.LookupEnv(EnvStatsInterval); ok && v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			return nil, errors.Wrapf(perr, "invalid %s", EnvStatsInterval)
		}
		s.StatsInterval = d
	}

	return s, s.Validate()
}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	if s.MaxUploadBytes <= 0 {
		return errors.Errorf("max upload bytes must be positive, got %d", s.MaxUploadBytes)
	}
	if q := s.Encode.JPEGQuality; q < 1 || q > 100 {
		return errors.Errorf("jpeg quality must be in [1,100], got %d", q)
	}
	if q := s.Encode.WebPQuality; q < 0 || q > 100 {
		return errors.Errorf("webp quality must be in [0,100], got %v", q)
	}
	if s.PreviewMax < 0 {
		return errors.Errorf("preview max must not be negative, got %d", s.PreviewMax)
	}
	if s.ControlsHideAfter <= 0 {
		return errors.Errorf("controls hide delay must be positive, got %s", s.ControlsHideAfter)
	}
	if s.MaxOutputPixels < 0 {
		return errors.Errorf("max output pixels must not be negative, got %d", s.MaxOutputPixels)
	}
	if s.StatsInterval <= 0 {
		return errors.Errorf("stats interval must be positive, got %s", s.StatsInterval)
	}
	if !s.Format.Valid() {
		return errors.Wrapf(images.ErrUnsupportedFormat, "%q", s.Format)
	}
	return nil
}

func lookupInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return n, nil
}

func lookupInt64(key string, fallback int64) (int64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return n, nil
}
