package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/imgmerge/images"
)

// clearEnv blanks every IMGMERGE_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvAddr, EnvMaxUploadBytes, EnvFormat, EnvJPEGQuality,
		EnvWebPQuality, EnvPreviewMax, EnvControlsHideAfter, EnvStatsInterval,
		EnvMaxOutputPixels,
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	s, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAddr, "127.0.0.1:9000")
	t.Setenv(EnvFormat, "webp")
	t.Setenv(EnvJPEGQuality, "75")
	t.Setenv(EnvWebPQuality, "60")
	t.Setenv(EnvPreviewMax, "256")
	t.Setenv(EnvMaxUploadBytes, "1048576")
	t.Setenv(EnvControlsHideAfter, "5s")
	t.Setenv(EnvStatsInterval, "30s")
	t.Setenv(EnvMaxOutputPixels, "0")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", s.Addr)
	assert.Equal(t, images.FormatWebP, s.Format)
	assert.Equal(t, 75, s.Encode.JPEGQuality)
	assert.Equal(t, float32(60), s.Encode.WebPQuality)
	assert.Equal(t, 256, s.PreviewMax)
	assert.Equal(t, int64(1<<20), s.MaxUploadBytes)
	assert.Equal(t, 5*time.Second, s.ControlsHideAfter)
	assert.Equal(t, 30*time.Second, s.StatsInterval)
	assert.Equal(t, int64(0), s.MaxOutputPixels)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that already exist, so unset the
	// one the file provides.
	require.NoError(t, os.Unsetenv(EnvAddr))
	t.Cleanup(func() { os.Unsetenv(EnvAddr) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("IMGMERGE_ADDR=:7070\n"), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", s.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{EnvFormat, "gif"},
		{EnvJPEGQuality, "high"},
		{EnvJPEGQuality, "0"},
		{EnvWebPQuality, "101"},
		{EnvMaxUploadBytes, "-1"},
		{EnvPreviewMax, "-5"},
		{EnvStatsInterval, "0s"},
		{EnvMaxOutputPixels, "-1"},
		{EnvMaxOutputPixels, "lots"},
		{EnvControlsHideAfter, "soon"},
		{EnvControlsHideAfter, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
