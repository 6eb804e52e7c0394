package images

import (
	"path/filepath"
	"strings"
)

// ImageFormat represents supported image formats.
type ImageFormat string

// ImageFormat constants
const (
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
	// FormatTIFF is the TIFF image format.
	FormatTIFF ImageFormat = "tiff"
)

// formatInfo holds the file extension and MIME type of a format.
type formatInfo struct {
	ext         string
	contentType string
}

var formats = map[ImageFormat]formatInfo{
	FormatPNG:  {ext: ".png", contentType: "image/png"},
	FormatJPEG: {ext: ".jpg", contentType: "image/jpeg"},
	FormatWebP: {ext: ".webp", contentType: "image/webp"},
	FormatBMP:  {ext: ".bmp", contentType: "image/bmp"},
	FormatTIFF: {ext: ".tiff", contentType: "image/tiff"},
}

// Valid reports whether f is a supported format.
func (f ImageFormat) Valid() bool {
	_, ok := formats[f]
	return ok
}

// Extension returns the file extension for the format, including the dot.
func (f ImageFormat) Extension() string {
	return formats[f].ext
}

// ContentType returns the MIME type for the format.
func (f ImageFormat) ContentType() string {
	if info, ok := formats[f]; ok {
		return info.contentType
	}
	return "application/octet-stream"
}

// ParseFormat resolves a format name such as "png", "jpg" or "JPEG".
func ParseFormat(name string) (ImageFormat, bool) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "png":
		return FormatPNG, true
	case "jpg", "jpeg":
		return FormatJPEG, true
	case "webp":
		return FormatWebP, true
	case "bmp":
		return FormatBMP, true
	case "tif", "tiff":
		return FormatTIFF, true
	}
	return "", false
}

// FormatFromExtension resolves the format of a file path by its extension.
func FormatFromExtension(path string) (ImageFormat, bool) {
	return ParseFormat(filepath.Ext(path))
}
