package images

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Resolution is a named standard raster size.
type Resolution struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MegaPixels returns the pixel count in millions, rounded to two decimals
// (e.g. 2.07 for 1080p).
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return math.Round(float64(r.Width*r.Height)/1e4) / 100
}

// String returns a human-readable summary such as "Full HD 1080p (1920x1080, 2.07MP)".
func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

// Resolutions lists the standard sizes in ascending pixel count.
var Resolutions = []Resolution{
	{Name: "nHD", Width: 640, Height: 360},
	{Name: "FWVGA", Width: 854, Height: 480},
	{Name: "qHD 540p", Width: 960, Height: 540},
	{Name: "HD 720p", Width: 1280, Height: 720},
	{Name: "WXGA", Width: 1280, Height: 800},
	{Name: "1MP (5:4)", Width: 1280, Height: 1024},
	{Name: "HD+", Width: 1600, Height: 900},
	{Name: "Full HD 1080p", Width: 1920, Height: 1080},
	{Name: "2MP (4:3)", Width: 1600, Height: 1200},
	{Name: "3MP (4:3)", Width: 2048, Height: 1536},
	{Name: "QHD 1440p", Width: 2560, Height: 1440},
	{Name: "4MP (16:9)", Width: 2688, Height: 1520},
	{Name: "6MP (3:2)", Width: 3072, Height: 2048},
	{Name: "4K UHD", Width: 3840, Height: 2160},
	{Name: "12MP (4:3)", Width: 4000, Height: 3000},
	{Name: "5K", Width: 5120, Height: 2880},
	{Name: "8K UHD", Width: 7680, Height: 4320},
}

func init() {
	sort.SliceStable(Resolutions, func(i, j int) bool {
		return Resolutions[i].Width*Resolutions[i].Height < Resolutions[j].Width*Resolutions[j].Height
	})
}

// ResolutionByName finds a standard resolution, case-insensitively.
func ResolutionByName(name string) (Resolution, bool) {
	for _, r := range Resolutions {
		if strings.EqualFold(r.Name, strings.TrimSpace(name)) {
			return r, true
		}
	}
	return Resolution{}, false
}

// LargestResolutionWithin returns the standard resolution with the most pixels
// that fits inside width x height in either orientation.
func LargestResolutionWithin(width, height int) (Resolution, bool) {
	for i := len(Resolutions) - 1; i >= 0; i-- {
		r := Resolutions[i]
		if (r.Width <= width && r.Height <= height) || (r.Height <= width && r.Width <= height) {
			return r, true
		}
	}
	return Resolution{}, false
}
