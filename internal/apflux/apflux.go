// Package apflux implements aperture photometry policy: deciding when an
// aperture is geometrically truncated by the image bounds, when the sinc
// weighting kernel's support is truncated, raising the corresponding flags,
// and naming the per-radius output fields. The pixel sums themselves are
// simple weighted integrations.
package apflux

import (
	"math"
	"strconv"
	"strings"

	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
)

// Flag bits shared by every aperture-flux result, in FlagDefinitionList
// order.
const (
	FlagFailure = iota
	FlagApertureTruncated
	FlagSincCoeffsTruncated
)

// Control configures aperture photometry.
type Control struct {
	// Radii are the circular aperture radii to measure, in pixels.
	Radii []float64
	// MaxSincRadius bounds sinc photometry: apertures larger than this use
	// the cheaper naive pixel sum, and their sinc-truncation flag field is
	// not even allocated.
	MaxSincRadius float64
	// SincKernelPad is the margin, in pixels, by which the sinc weighting
	// kernel's support region exceeds the geometric aperture.
	SincKernelPad float64
}

// DefaultControl returns the standard aperture set.
func DefaultControl() Control {
	return Control{
		Radii:         []float64{3.0, 4.5, 6.0, 9.0, 12.0, 17.0, 25.0, 35.0, 50.0, 70.0},
		MaxSincRadius: 10.0,
		SincKernelPad: 5.0,
	}
}

// Result is the outcome of one aperture evaluation. When the aperture is
// truncated the flux and its uncertainty are NaN: the true value cannot be
// bounded. Sinc-coefficient truncation alone still reports a flux, with the
// flag warning that it may be less accurate.
type Result struct {
	InstFlux            float64
	InstFluxErr         float64
	ApertureTruncated   bool
	SincCoeffsTruncated bool
}

func invalidResult() Result {
	return Result{InstFlux: math.NaN(), InstFluxErr: math.NaN()}
}

// ComputeNaiveFlux sums the pixels whose centers fall inside the aperture.
// variance may be nil, in which case the flux uncertainty is NaN.
func ComputeNaiveFlux(img *image.Image, variance *image.Image, ell geom.Ellipse) Result {
	if !img.Box().ContainsBox(ell.PixelRegion()) {
		r := invalidResult()
		r.ApertureTruncated = true
		return r
	}
	region := ell.PixelRegion()
	var flux, varSum float64
	for y := region.Min.Y; y <= region.Max.Y; y++ {
		for x := region.Min.X; x <= region.Max.X; x++ {
			if !ell.Contains(geom.Point2D{X: float64(x), Y: float64(y)}) {
				continue
			}
			flux += img.At(x, y)
			if variance != nil {
				varSum += variance.At(x, y)
			}
		}
	}
	res := Result{InstFlux: flux, InstFluxErr: math.NaN()}
	if variance != nil {
		res.InstFluxErr = math.Sqrt(varSum)
	}
	return res
}

// ComputeSincFlux integrates the aperture with sub-pixel boundary weights.
// The weighting kernel requires support out to the aperture grown by pad
// pixels; if that support region spills off the image while the aperture
// itself fits, the flux is still reported but flagged as less accurate.
func ComputeSincFlux(img *image.Image, variance *image.Image, ell geom.Ellipse, pad float64) Result {
	apRegion := ell.PixelRegion()
	if !img.Box().ContainsBox(apRegion) {
		r := invalidResult()
		r.ApertureTruncated = true
		r.SincCoeffsTruncated = true
		return r
	}
	support := geom.Ellipse{
		Core:   geom.Axes{A: ell.Core.A + pad, B: ell.Core.B + pad, Theta: ell.Core.Theta},
		Center: ell.Center,
	}
	sincTruncated := !img.Box().ContainsBox(support.PixelRegion())

	var flux, varSum float64
	for y := apRegion.Min.Y; y <= apRegion.Max.Y; y++ {
		for x := apRegion.Min.X; x <= apRegion.Max.X; x++ {
			w := pixelWeight(ell, x, y)
			if w == 0 {
				continue
			}
			flux += w * img.At(x, y)
			if variance != nil {
				varSum += w * w * variance.At(x, y)
			}
		}
	}
	res := Result{InstFlux: flux, InstFluxErr: math.NaN(), SincCoeffsTruncated: sincTruncated}
	if variance != nil {
		res.InstFluxErr = math.Sqrt(varSum)
	}
	return res
}

// ComputeFlux dispatches between sinc and naive integration based on the
// aperture size.
func ComputeFlux(img *image.Image, variance *image.Image, ell geom.Ellipse, ctrl Control) Result {
	if math.Max(ell.Core.A, ell.Core.B) <= ctrl.MaxSincRadius {
		return ComputeSincFlux(img, variance, ell, ctrl.SincKernelPad)
	}
	return ComputeNaiveFlux(img, variance, ell)
}

// pixelWeight returns the fraction of pixel (x, y) covered by the ellipse,
// supersampling only pixels that straddle the boundary.
func pixelWeight(ell geom.Ellipse, x, y int) float64 {
	fx, fy := float64(x), float64(y)
	inside := 0
	for _, c := range [4]geom.Point2D{
		{X: fx - 0.5, Y: fy - 0.5},
		{X: fx + 0.5, Y: fy - 0.5},
		{X: fx - 0.5, Y: fy + 0.5},
		{X: fx + 0.5, Y: fy + 0.5},
	} {
		if ell.Contains(c) {
			inside++
		}
	}
	switch inside {
	case 4:
		return 1
	case 0:
		if !ell.Contains(geom.Point2D{X: fx, Y: fy}) {
			return 0
		}
	}
	// Boundary pixel: count subsamples on a regular grid.
	const n = 32
	count := 0
	for j := 0; j < n; j++ {
		sy := fy - 0.5 + (float64(j)+0.5)/n
		for i := 0; i < n; i++ {
			sx := fx - 0.5 + (float64(i)+0.5)/n
			if ell.Contains(geom.Point2D{X: sx, Y: sy}) {
				count++
			}
		}
	}
	return float64(count) / (n * n)
}

// MakeFieldPrefix returns the catalog field prefix for one aperture of a
// multi-radius plugin, e.g. ("base_CircularApertureFlux", 4.5) ->
// "base_CircularApertureFlux_4_5".
func MakeFieldPrefix(pluginName string, radius float64) string {
	r := strconv.FormatFloat(radius, 'f', 1, 64)
	return pluginName + "_" + strings.ReplaceAll(r, ".", "_")
}

// MetadataKey returns the run-metadata key under which a plugin publishes
// its radii, e.g. "BASE_CIRCULARAPERTUREFLUX_RADII".
func MetadataKey(pluginName string) string {
	return strings.ToUpper(pluginName) + "_RADII"
}
