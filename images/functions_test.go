package images

import (
	"image"
	"image/color"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestImage returns a solid w x h image of the given color.
func getTestImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// getGradientImage returns an opaque image whose pixels differ by position.
func getGradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 11), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func TestResize_Dimensions(t *testing.T) {
	src := getGradientImage(40, 30)

	for _, filter := range []ResampleFilter{
		NearestNeighborFilter, BilinearFilter, BicubicFilter, LanczosFilter, MitchellNetravaliFilter,
	} {
		t.Run(filter.String(), func(t *testing.T) {
			up := Resize(src, 80, 45, filter)
			require.NotNil(t, up)
			assert.Equal(t, image.Rect(0, 0, 80, 45), up.Bounds())

			down := Resize(src, 10, 7, filter)
			require.NotNil(t, down)
			assert.Equal(t, image.Rect(0, 0, 10, 7), down.Bounds())
		})
	}
}

func TestResize_SameSizeIsCopy(t *testing.T) {
	src := getGradientImage(16, 9)

	out := Resize(src, 16, 9, LanczosFilter)
	require.NotNil(t, out)
	assert.Equal(t, src.Pix, out.Pix, "same-size resize should reproduce the source pixels")

	out.Pix[0] = 1
	assert.NotEqual(t, src.Pix[0], out.Pix[0], "result must not alias the source")
}

func TestResize_NonPositive(t *testing.T) {
	src := getGradientImage(4, 4)
	assert.Nil(t, Resize(src, 0, 4, BilinearFilter))
	assert.Nil(t, Resize(src, 4, -1, BilinearFilter))
}

func TestResize_SolidColorPreserved(t *testing.T) {
	c := color.RGBA{R: 200, G: 100, B: 50, A: 255}
	src := getTestImage(13, 17, c)

	for _, filter := range []ResampleFilter{BilinearFilter, BicubicFilter, LanczosFilter, MitchellNetravaliFilter} {
		out := Resize(src, 29, 8, filter)
		for y := 0; y < 8; y++ {
			for x := 0; x < 29; x++ {
				assert.Equal(t, c, out.RGBAAt(x, y), "filter %s at (%d,%d)", filter, x, y)
			}
		}
	}
}

func TestResizeNearestNeighbor_DoublesPixels(t *testing.T) {
	src := getGradientImage(3, 2)
	out := ResizeNearestNeighbor(src, 6, 4)

	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			assert.Equal(t, src.RGBAAt(x/2, y/2), out.RGBAAt(x, y))
		}
	}
}

func TestResize_OffsetBounds(t *testing.T) {
	full := getGradientImage(20, 20)
	sub := full.SubImage(image.Rect(5, 5, 15, 15))

	out := Resize(sub, 10, 10, BilinearFilter)
	assert.Equal(t, image.Rect(0, 0, 10, 10), out.Bounds())
	assert.Equal(t, full.RGBAAt(5, 5), out.RGBAAt(0, 0))
}

func TestResizeRegion_MatchesResize(t *testing.T) {
	src := getGradientImage(17, 13)

	for _, filter := range []ResampleFilter{NearestNeighborFilter, BilinearFilter, LanczosFilter} {
		t.Run(filter.String(), func(t *testing.T) {
			full := Resize(src, 41, 29, filter)

			whole := ResizeRegion(src, 41, 29, 0, 0, full.Bounds(), filter)
			require.NotNil(t, whole)
			assert.Equal(t, full.Pix, whole.Pix)

			// A window shifted by the origin reads the same pixels.
			window := image.Rect(105, 203, 125, 215)
			part := ResizeRegion(src, 41, 29, 100, 200, window, filter)
			require.Equal(t, window, part.Bounds())
			for y := window.Min.Y; y < window.Max.Y; y++ {
				for x := window.Min.X; x < window.Max.X; x++ {
					assert.Equal(t, full.RGBAAt(x-100, y-200), part.RGBAAt(x, y), "(%d,%d)", x, y)
				}
			}
		})
	}
}

func TestResizeRegion_NativeSizeCopies(t *testing.T) {
	src := getGradientImage(4, 3)
	window := image.Rect(0, 0, 8, 8)

	out := ResizeRegion(src, 4, 3, 2, 1, window, BilinearFilter)
	require.Equal(t, window, out.Bounds())
	assert.Equal(t, src.RGBAAt(0, 0), out.RGBAAt(2, 1))
	assert.Equal(t, src.RGBAAt(3, 2), out.RGBAAt(5, 3))
	assert.Equal(t, color.RGBA{}, out.RGBAAt(1, 1), "outside the image stays transparent")
	assert.Equal(t, color.RGBA{}, out.RGBAAt(6, 3))
}

func TestResizeRegion_VirtualSizeBeyondIntRange(t *testing.T) {
	src := getGradientImage(10, 10)
	window := image.Rect(0, 0, 3, 3)

	// Just past the middle of a 1e20 x 1e20 resize lies source pixel (5,5).
	out := ResizeRegion(src, 1e20, 1e20, -5.05e19, -5.05e19, window, NearestNeighborFilter)
	require.Equal(t, window, out.Bounds())
	assert.Equal(t, src.RGBAAt(5, 5), out.RGBAAt(0, 0))
	assert.Equal(t, src.RGBAAt(5, 5), out.RGBAAt(2, 2))
}

func TestResizeRegion_Empty(t *testing.T) {
	src := getGradientImage(4, 4)
	assert.Nil(t, ResizeRegion(src, 4, 4, 0, 0, image.Rectangle{}, BilinearFilter))
	assert.Nil(t, ResizeRegion(src, 0, 4, 0, 0, image.Rect(0, 0, 2, 2), BilinearFilter))
	assert.Nil(t, ResizeRegion(src, -1, 4, 0, 0, image.Rect(0, 0, 2, 2), BilinearFilter))
}

func TestParseFilter(t *testing.T) {
	f, ok := ParseFilter(" Lanczos ")
	assert.True(t, ok)
	assert.Equal(t, LanczosFilter, f)

	f, ok = ParseFilter("sinc")
	assert.False(t, ok)
	assert.Equal(t, BilinearFilter, f)

	assert.Equal(t, []string{"nearest", "bilinear", "bicubic", "lanczos", "mitchell"}, FilterNames())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 255.0, Clamp(300.5, 0, 255))
	assert.Equal(t, 0.0, Clamp(-10, 0, 255))
	assert.Equal(t, 42.0, Clamp(42, 0, 255))
}

func TestParallel_CoversRange(t *testing.T) {
	for _, size := range []int{0, 1, 3, 64, 1001} {
		seen := make([]int32, size)
		var calls atomic.Int32
		Parallel(size, func(start, end int) {
			calls.Add(1)
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, n := range seen {
			assert.Equal(t, int32(1), n, "size=%d index=%d", size, i)
		}
		if size == 0 {
			assert.Zero(t, calls.Load())
		}
	}
}
