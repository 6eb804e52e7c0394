package util

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/imgmerge/images"
)

func writeImage(t *testing.T, dir, name string, w, h int, format images.ImageFormat) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	data, err := images.EncodeBytes(img, format, images.EncodeOptions{})
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadImageFile(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "a.png", 12, 7, images.FormatPNG)

	f, err := LoadImageFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path)
	assert.Equal(t, images.FormatPNG, f.Image.Format)
	assert.Equal(t, 12, f.Image.Width)
	assert.Equal(t, 7, f.Image.Height)
	assert.NotEmpty(t, f.Image.Data)
	assert.Equal(t, image.Rect(0, 0, 12, 7), f.Decoded.Bounds())
}

func TestLoadImageFile_DetectsByContent(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "misnamed.jpg", 4, 4, images.FormatBMP)

	f, err := LoadImageFile(path)
	require.NoError(t, err)
	assert.Equal(t, images.FormatBMP, f.Image.Format)
}

func TestLoadImageFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadImageFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	bogus := filepath.Join(dir, "bogus.png")
	require.NoError(t, os.WriteFile(bogus, []byte("hello"), 0o644))
	_, err = LoadImageFile(bogus)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "looks like png")
}

func TestLoadImagePair(t *testing.T) {
	dir := t.TempDir()
	a := writeImage(t, dir, "a.png", 3, 3, images.FormatPNG)
	b := writeImage(t, dir, "b.tiff", 5, 2, images.FormatTIFF)

	fa, fb, err := LoadImagePair(a, b)
	require.NoError(t, err)
	assert.Equal(t, 3, fa.Image.Width)
	assert.Equal(t, images.FormatTIFF, fb.Image.Format)

	_, _, err = LoadImagePair(a, filepath.Join(dir, "nope.png"))
	assert.Error(t, err)
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "b.png", 1, 1, images.FormatPNG)
	writeImage(t, dir, "a.bmp", 1, 1, images.FormatBMP)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	paths, err := ListImageFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.bmp"), filepath.Join(dir, "b.png")}, paths)
}
