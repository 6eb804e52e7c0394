// Package images - provides the raster primitives used by the compositor:
// resampling, clipping, parallel row processing, codecs and checksums.
package images

import (
	"image"
	"image/draw"
	"math"
	"runtime"
	"strings"
	"sync"
)

// ResampleFilter defines the resampling algorithm used for image scaling.
type ResampleFilter int

const (
	// NearestNeighborFilter uses nearest-neighbor interpolation (fastest, lowest quality).
	NearestNeighborFilter ResampleFilter = iota
	// BilinearFilter uses bilinear interpolation (fast, good quality).
	BilinearFilter
	// BicubicFilter uses Catmull-Rom bicubic interpolation (slower, sharper).
	BicubicFilter
	// LanczosFilter uses Lanczos resampling with a=3 (slowest, best quality).
	LanczosFilter
	// MitchellNetravaliFilter uses the Mitchell-Netravali cubic filter (balanced).
	MitchellNetravaliFilter
)

// filterNames maps each filter to its canonical lowercase name.
var filterNames = map[ResampleFilter]string{
	NearestNeighborFilter:   "nearest",
	BilinearFilter:          "bilinear",
	BicubicFilter:           "bicubic",
	LanczosFilter:           "lanczos",
	MitchellNetravaliFilter: "mitchell",
}

// String returns the canonical name of the filter.
func (f ResampleFilter) String() string {
	if name, ok := filterNames[f]; ok {
		return name
	}
	return "unknown"
}

// FilterNames returns the canonical filter names in declaration order.
func FilterNames() []string {
	names := make([]string, 0, len(filterNames))
	for f := NearestNeighborFilter; f <= MitchellNetravaliFilter; f++ {
		names = append(names, filterNames[f])
	}
	return names
}

// ParseFilter resolves a filter by its canonical name, case-insensitively.
//
// Arguments:
// - name: The filter name (e.g. "bilinear").
//
// Returns:
// - The filter and true if the name is known, otherwise BilinearFilter and false.
func ParseFilter(name string) (ResampleFilter, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range filterNames {
		if n == name {
			return f, true
		}
	}
	return BilinearFilter, false
}

// kernel represents a resampling kernel function.
type kernel struct {
	// Support is the radius of the kernel in source pixels at scale 1.
	Support float64
	// At evaluates the kernel weight at distance x.
	At func(x float64) float64
}

// kernels maps each filter type to its kernel function.
var kernels = map[ResampleFilter]kernel{
	NearestNeighborFilter: {
		Support: 0.5,
		At: func(x float64) float64 {
			if math.Abs(x) < 0.5 {
				return 1.0
			}
			return 0.0
		},
	},
	BilinearFilter: {
		Support: 1.0,
		At: func(x float64) float64 {
			// Triangle function.
			x = math.Abs(x)
			if x < 1.0 {
				return 1.0 - x
			}
			return 0.0
		},
	},
	BicubicFilter: {
		Support: 2.0,
		At: func(x float64) float64 {
			// Mitchell-Netravali cubic with B=0, C=0.5 (Catmull-Rom).
			x = math.Abs(x)
			if x < 1.0 {
				return (1.5*x-2.5)*x*x + 1.0
			}
			if x < 2.0 {
				return ((-0.5*x+2.5)*x-4.0)*x + 2.0
			}
			return 0.0
		},
	},
	LanczosFilter: {
		Support: 3.0,
		At: func(x float64) float64 {
			if x == 0.0 {
				return 1.0
			}
			x = math.Abs(x)
			if x >= 3.0 {
				return 0.0
			}
			// sinc(x) * sinc(x/3)
			pix := math.Pi * x
			return (math.Sin(pix) / pix) * (math.Sin(pix/3.0) / (pix / 3.0))
		},
	},
	MitchellNetravaliFilter: {
		Support: 2.0,
		At: func(x float64) float64 {
			// B=1/3, C=1/3.
			x = math.Abs(x)
			if x < 1.0 {
				return ((1.16666666666667*x-2.0)*x)*x + 0.888888888888889
			}
			if x < 2.0 {
				return ((-0.388888888888889*x+2.0)*x-3.333333333333333)*x + 1.777777777777778
			}
			return 0.0
		},
	},
}

// contribution is a single source pixel's weight for one output pixel.
type contribution struct {
	pixel  int
	weight float64
}

// ToRGBA returns img as an *image.RGBA whose bounds start at (0,0).
// The result is always a fresh copy, so callers may write to it freely.
//
// Arguments:
// - img: The source image.
//
// Returns:
// - A new RGBA image holding the same (premultiplied) pixels.
func ToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

// Resize scales img to width x height using the given resampling filter.
// Horizontal and vertical passes are applied separately. The result always has
// bounds starting at (0,0) and is never the source image itself.
//
// Arguments:
// - img: The source image to resize.
// - width: The target width in pixels.
// - height: The target height in pixels.
// - filter: The resampling filter to use for interpolation.
//
// Returns:
// - The resized image, or nil when width or height is not positive.
//
// @example
// resized := Resize(srcImage, 224, 224, LanczosFilter)
func Resize(img image.Image, width, height int, filter ResampleFilter) *image.RGBA {
	if width <= 0 || height <= 0 {
		return nil
	}

	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return ToRGBA(img)
	}

	if filter == NearestNeighborFilter {
		return ResizeNearestNeighbor(img, width, height)
	}
	if _, ok := kernels[filter]; !ok {
		filter = BilinearFilter
	}

	src := ToRGBA(img)
	intermediate := image.NewRGBA(image.Rect(0, 0, width, bounds.Dy()))
	ResizeHorizontal(src, intermediate, filter)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	ResizeVertical(intermediate, dst, filter)

	return dst
}

// ResizeNearestNeighbor performs nearest-neighbor resizing by sampling the
// source pixel under each destination pixel center.
func ResizeNearestNeighbor(img image.Image, width, height int) *image.RGBA {
	src := ToRGBA(img)
	srcWidth := src.Bounds().Dx()
	srcHeight := src.Bounds().Dy()

	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	xRatio := float64(srcWidth) / float64(width)
	yRatio := float64(srcHeight) / float64(height)

	Parallel(height, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			srcY := min(int((float64(y)+0.5)*yRatio), srcHeight-1)
			for x := 0; x < width; x++ {
				srcX := min(int((float64(x)+0.5)*xRatio), srcWidth-1)
				si := src.PixOffset(srcX, srcY)
				di := dst.PixOffset(x, y)
				copy(dst.Pix[di:di+4], src.Pix[si:si+4])
			}
		}
	})

	return dst
}

// contributions precomputes normalized kernel weights for each output index
// along one axis.
func contributions(srcSize, dstSize int, k kernel) [][]contribution {
	return windowContributions(srcSize, float64(dstSize), 0, dstSize, k)
}

// windowContributions computes the weights for count consecutive output
// indices starting at start, for a resize of srcSize pixels to dstSize. Only
// the window is materialized, so dstSize may be arbitrarily large.
func windowContributions(srcSize int, dstSize, start float64, count int, k kernel) [][]contribution {
	scale := float64(srcSize) / dstSize

	// When downsampling the kernel is stretched so every source pixel counts.
	filterScale := math.Max(scale, 1.0)
	support := k.Support * filterScale
	last := float64(srcSize - 1)

	out := make([][]contribution, count)
	for i := 0; i < count; i++ {
		center := (start + float64(i) + 0.5) * scale

		left := int(Clamp(math.Floor(center-support), 0, last))
		right := int(Clamp(math.Ceil(center+support), 0, last))

		var weights []contribution
		var sum float64
		for s := left; s <= right; s++ {
			w := k.At((float64(s) + 0.5 - center) / filterScale)
			if w != 0 {
				weights = append(weights, contribution{pixel: s, weight: w})
				sum += w
			}
		}

		// Normalize so brightness is preserved.
		if sum != 0 {
			for j := range weights {
				weights[j].weight /= sum
			}
		}
		out[i] = weights
	}
	return out
}

// nearestContributions picks the single source pixel under each output
// pixel center, matching ResizeNearestNeighbor.
func nearestContributions(srcSize int, dstSize, start float64, count int) [][]contribution {
	scale := float64(srcSize) / dstSize
	out := make([][]contribution, count)
	for i := range out {
		p := Clamp(math.Floor((start+float64(i)+0.5)*scale), 0, float64(srcSize-1))
		out[i] = []contribution{{pixel: int(p), weight: 1}}
	}
	return out
}

// ResizeRegion renders only the part of a virtual width x height resize of img
// that falls inside window. origin is the resized image's top-left corner in
// window's coordinate space; width, height and origin may be fractional or
// far beyond the int range. Memory is proportional to the window, not to the
// virtual size.
//
// Arguments:
// - img: The source image.
// - width, height: The virtual size of the resized image.
// - originX, originY: Where the resized image's top-left corner lies.
// - window: The region to render, in the same coordinates as the origin.
// - filter: The resampling filter to use for interpolation.
//
// Returns:
// - An RGBA image whose bounds equal window, or nil when there is nothing to render.
func ResizeRegion(img image.Image, width, height, originX, originY float64, window image.Rectangle, filter ResampleFilter) *image.RGBA {
	if window.Empty() || !(width > 0) || !(height > 0) {
		return nil
	}

	src := ToRGBA(img)
	srcW, srcH := src.Bounds().Dx(), src.Bounds().Dy()
	startX := float64(window.Min.X) - originX
	startY := float64(window.Min.Y) - originY
	dst := image.NewRGBA(window)

	// Native size at a whole-pixel offset is a plain copy.
	if width == float64(srcW) && height == float64(srcH) && startX == math.Trunc(startX) && startY == math.Trunc(startY) {
		sx, sy := int(startX), int(startY)
		Parallel(window.Dy(), func(partStart, partEnd int) {
			for y := partStart; y < partEnd; y++ {
				if sy+y < 0 || sy+y >= srcH {
					continue
				}
				for x := 0; x < window.Dx(); x++ {
					if sx+x < 0 || sx+x >= srcW {
						continue
					}
					si := src.PixOffset(sx+x, sy+y)
					di := dst.PixOffset(window.Min.X+x, window.Min.Y+y)
					copy(dst.Pix[di:di+4], src.Pix[si:si+4])
				}
			}
		})
		return dst
	}

	var cols, rows [][]contribution
	if filter == NearestNeighborFilter {
		cols = nearestContributions(srcW, width, startX, window.Dx())
		rows = nearestContributions(srcH, height, startY, window.Dy())
	} else {
		k, ok := kernels[filter]
		if !ok {
			k = kernels[BilinearFilter]
		}
		cols = windowContributions(srcW, width, startX, window.Dx(), k)
		rows = windowContributions(srcH, height, startY, window.Dy(), k)
	}

	// Horizontal pass over just the source rows the vertical pass reads.
	rowLo, rowHi := srcH, -1
	for _, ws := range rows {
		for _, c := range ws {
			rowLo, rowHi = min(rowLo, c.pixel), max(rowHi, c.pixel)
		}
	}
	if rowHi < rowLo {
		return dst
	}
	intermediate := image.NewRGBA(image.Rect(0, rowLo, window.Dx(), rowHi+1))

	Parallel(rowHi-rowLo+1, func(partStart, partEnd int) {
		for y := rowLo + partStart; y < rowLo+partEnd; y++ {
			for x, ws := range cols {
				var acc [4]float64
				for _, c := range ws {
					si := src.PixOffset(c.pixel, y)
					for ch := 0; ch < 4; ch++ {
						acc[ch] += float64(src.Pix[si+ch]) * c.weight
					}
				}
				writePremultiplied(intermediate, x, y, acc)
			}
		}
	})

	Parallel(window.Dx(), func(partStart, partEnd int) {
		for x := partStart; x < partEnd; x++ {
			for y, ws := range rows {
				var acc [4]float64
				for _, c := range ws {
					si := intermediate.PixOffset(x, c.pixel)
					for ch := 0; ch < 4; ch++ {
						acc[ch] += float64(intermediate.Pix[si+ch]) * c.weight
					}
				}
				writePremultiplied(dst, window.Min.X+x, window.Min.Y+y, acc)
			}
		}
	})

	return dst
}

// ResizeHorizontal resamples src into dst along the x axis. dst must have the
// target width and the same height as src.
func ResizeHorizontal(src, dst *image.RGBA, filter ResampleFilter) {
	dstWidth := dst.Bounds().Dx()
	height := src.Bounds().Dy()
	weights := contributions(src.Bounds().Dx(), dstWidth, kernels[filter])

	Parallel(height, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			for x := 0; x < dstWidth; x++ {
				var acc [4]float64
				for _, c := range weights[x] {
					si := src.PixOffset(c.pixel, y)
					for ch := 0; ch < 4; ch++ {
						acc[ch] += float64(src.Pix[si+ch]) * c.weight
					}
				}
				writePremultiplied(dst, x, y, acc)
			}
		}
	})
}

// ResizeVertical resamples src into dst along the y axis. dst must have the
// target height and the same width as src.
func ResizeVertical(src, dst *image.RGBA, filter ResampleFilter) {
	dstHeight := dst.Bounds().Dy()
	width := dst.Bounds().Dx()
	weights := contributions(src.Bounds().Dy(), dstHeight, kernels[filter])

	Parallel(width, func(partStart, partEnd int) {
		for x := partStart; x < partEnd; x++ {
			for y := 0; y < dstHeight; y++ {
				var acc [4]float64
				for _, c := range weights[y] {
					si := src.PixOffset(x, c.pixel)
					for ch := 0; ch < 4; ch++ {
						acc[ch] += float64(src.Pix[si+ch]) * c.weight
					}
				}
				writePremultiplied(dst, x, y, acc)
			}
		}
	})
}

// writePremultiplied rounds and stores an accumulated pixel. Color channels
// are bounded by alpha so the result stays a valid premultiplied value even
// when a kernel with negative lobes overshoots.
func writePremultiplied(dst *image.RGBA, x, y int, acc [4]float64) {
	a := Clamp(acc[3], 0, 255)
	di := dst.PixOffset(x, y)
	dst.Pix[di+0] = uint8(Clamp(acc[0], 0, a) + 0.5)
	dst.Pix[di+1] = uint8(Clamp(acc[1], 0, a) + 0.5)
	dst.Pix[di+2] = uint8(Clamp(acc[2], 0, a) + 0.5)
	dst.Pix[di+3] = uint8(a + 0.5)
}

// Clamp restricts a value to the range [lo, hi].
//
// @example
// clamped := Clamp(300.5, 0, 255) // Returns 255
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Parallel splits [0, dataSize) into contiguous partitions and runs fn on each
// partition in its own goroutine, returning once all partitions are done.
// Small inputs are processed on the calling goroutine.
//
// @example
//
//	Parallel(height, func(start, end int) {
//	    for y := start; y < end; y++ {
//	        // Process row y
//	    }
//	})
func Parallel(dataSize int, fn func(partStart, partEnd int)) {
	if dataSize <= 0 {
		return
	}

	numGoroutines := runtime.NumCPU()
	if dataSize < numGoroutines*2 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / numGoroutines

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		partStart := i * partSize
		partEnd := partStart + partSize
		// Last partition picks up the remainder.
		if i == numGoroutines-1 {
			partEnd = dataSize
		}
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(partStart, partEnd)
	}
	wg.Wait()
}
