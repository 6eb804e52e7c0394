package util

import (
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/imgmerge/images"
)

// ImageFile represents an image file read from disk.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Image is the encoded file with its detected format and dimensions.
	Image images.Image
	// Decoded is the decoded raster.
	Decoded image.Image
}

// LoadImageFile reads and decodes an image file. The format is detected from
// the file contents; the extension is only a fallback for error messages.
//
// Arguments:
// - path: Path to the image file.
//
// Returns:
// - *ImageFile: The loaded file.
// - error: Error if reading or decoding fails.
func LoadImageFile(path string) (*ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	decoded, format, err := images.Decode(data)
	if err != nil {
		if ext, ok := images.FormatFromExtension(path); ok && format == "" {
			return nil, errors.Wrapf(err, "%s looks like %s by name but its contents are not", path, ext)
		}
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}

	b := decoded.Bounds()
	return &ImageFile{
		Path: path,
		Image: images.Image{
			Format: format,
			Data:   data,
			Width:  b.Dx(),
			Height: b.Dy(),
		},
		Decoded: decoded,
	}, nil
}

// LoadImagePair loads the two inputs of a composition.
func LoadImagePair(first, second string) (*ImageFile, *ImageFile, error) {
	a, err := LoadImageFile(first)
	if err != nil {
		return nil, nil, err
	}
	b, err := LoadImageFile(second)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// ListImageFiles returns the paths of files in dir with a supported image
// extension, sorted by name.
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := images.FormatFromExtension(entry.Name()); ok {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(paths)
	return paths, nil
}
