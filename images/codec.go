package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrUnsupportedFormat is returned when image data or a requested output
// format is not one of the supported formats.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// EncodeOptions tunes the lossy encoders. Zero values select defaults.
type EncodeOptions struct {
	// JPEGQuality is the JPEG quality in [1,100] (default 90).
	JPEGQuality int `json:"jpegQuality" yaml:"jpegQuality"`
	// WebPQuality is the WebP quality in [0,100] (default 90).
	WebPQuality float32 `json:"webpQuality" yaml:"webpQuality"`
	// WebPLossless selects lossless WebP encoding.
	WebPLossless bool `json:"webpLossless" yaml:"webpLossless"`
}

// SniffFormat detects the image format from the leading magic bytes.
//
// Arguments:
// - data: The encoded image bytes.
//
// Returns:
// - The detected format and true, or "" and false when unrecognized.
func SniffFormat(data []byte) (ImageFormat, bool) {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG, true
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return FormatJPEG, true
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return FormatWebP, true
	case bytes.HasPrefix(data, []byte("BM")):
		return FormatBMP, true
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return FormatTIFF, true
	}
	return "", false
}

// Decode decodes an encoded image. JPEG EXIF orientation is applied so phone
// photos come out upright.
//
// Arguments:
// - data: The encoded image bytes.
//
// Returns:
// - image.Image: The decoded image.
// - ImageFormat: The detected source format.
// - error: An error if the data is empty, unrecognized or corrupt.
func Decode(data []byte) (image.Image, ImageFormat, error) {
	if len(data) == 0 {
		return nil, "", errors.New("image data is empty")
	}

	format, ok := SniffFormat(data)
	if !ok {
		return nil, "", ErrUnsupportedFormat
	}

	var (
		img image.Image
		err error
	)
	if format == FormatWebP {
		img, err = webp.Decode(bytes.NewReader(data))
	} else {
		img, err = imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, format, errors.Wrapf(err, "failed to decode %s image", format)
	}

	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, format, errors.Errorf("invalid image dimensions: %dx%d", b.Dx(), b.Dy())
	}

	return img, format, nil
}

// Encode writes img to w in the requested format.
func Encode(w io.Writer, img image.Image, format ImageFormat, opts EncodeOptions) error {
	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatJPEG:
		quality := opts.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatWebP:
		quality := opts.WebPQuality
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		err = webp.Encode(w, img, &webp.Options{Lossless: opts.WebPLossless, Quality: quality})
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "cannot encode %q", format)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s image", format)
	}
	return nil
}

// EncodeBytes encodes img in the requested format and returns the bytes.
func EncodeBytes(img image.Image, format ImageFormat, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
