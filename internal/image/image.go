// Package image provides the pixel-data collaborators the measurement
// framework runs against: exposures with variance planes, PSF models,
// footprints, and bounded scalar fields. The numeric content here is
// deliberately minimal; the framework treats pixel integration as an
// external concern.
package image

import (
	"fmt"
	"math"

	"github.com/vk/starmeasgo/internal/geom"
)

// Image is a 2D float64 pixel array anchored at an arbitrary origin, so
// pixel indices are global catalog coordinates rather than array offsets.
type Image struct {
	box    geom.Box2I
	pixels []float64
}

// NewImage allocates a zero-filled image covering the given box.
func NewImage(box geom.Box2I) *Image {
	return &Image{
		box:    box,
		pixels: make([]float64, box.Area()),
	}
}

// NewImageFilled allocates an image with every pixel set to value.
func NewImageFilled(box geom.Box2I, value float64) *Image {
	img := NewImage(box)
	for i := range img.pixels {
		img.pixels[i] = value
	}
	return img
}

// Box returns the image bounds.
func (img *Image) Box() geom.Box2I { return img.box }

func (img *Image) index(x, y int) int {
	return (y-img.box.Min.Y)*img.box.Width() + (x - img.box.Min.X)
}

// At returns the pixel value at global coordinates (x, y). Reading outside
// the image bounds panics; callers are expected to clip first.
func (img *Image) At(x, y int) float64 {
	if !img.box.Contains(geom.Point2I{X: x, Y: y}) {
		panic(fmt.Sprintf("image: pixel (%d, %d) outside bounds %+v", x, y, img.box))
	}
	return img.pixels[img.index(x, y)]
}

// Set writes the pixel value at global coordinates (x, y).
func (img *Image) Set(x, y int, v float64) {
	if !img.box.Contains(geom.Point2I{X: x, Y: y}) {
		panic(fmt.Sprintf("image: pixel (%d, %d) outside bounds %+v", x, y, img.box))
	}
	img.pixels[img.index(x, y)] = v
}

// Add accumulates v into the pixel at (x, y).
func (img *Image) Add(x, y int, v float64) {
	img.Set(x, y, img.At(x, y)+v)
}

// Sum returns the sum of all pixels.
func (img *Image) Sum() float64 {
	var s float64
	for _, v := range img.pixels {
		s += v
	}
	return s
}

// Exposure bundles an image with its variance plane and optional attached
// models (WCS, PSF). It is the unit a measurement plugin receives.
type Exposure struct {
	image    *Image
	variance *Image
	wcs      geom.Wcs
	psf      *Psf
}

// NewExposure creates an exposure over the given box with a zero image and
// the given constant variance.
func NewExposure(box geom.Box2I, variance float64) *Exposure {
	return &Exposure{
		image:    NewImage(box),
		variance: NewImageFilled(box, variance),
	}
}

// Image returns the science pixel plane.
func (e *Exposure) Image() *Image { return e.image }

// Variance returns the per-pixel variance plane.
func (e *Exposure) Variance() *Image { return e.variance }

// Box returns the exposure bounds.
func (e *Exposure) Box() geom.Box2I { return e.image.Box() }

// Wcs returns the attached world coordinate system, or nil.
func (e *Exposure) Wcs() geom.Wcs { return e.wcs }

// SetWcs attaches a world coordinate system.
func (e *Exposure) SetWcs(w geom.Wcs) { e.wcs = w }

// Psf returns the attached point-spread-function model, or nil.
func (e *Exposure) Psf() *Psf { return e.psf }

// SetPsf attaches a point-spread-function model.
func (e *Exposure) SetPsf(p *Psf) { e.psf = p }

// WithImage returns a shallow copy of the exposure using a different science
// plane but sharing the variance plane and attached models. The measurement
// driver uses this to present per-object deblended pixel data.
func (e *Exposure) WithImage(img *Image) *Exposure {
	return &Exposure{
		image:    img,
		variance: e.variance,
		wcs:      e.wcs,
		psf:      e.psf,
	}
}

// NaN is a convenience for the not-a-number sentinel used for undefined
// measurements throughout the catalog.
func NaN() float64 { return math.NaN() }
