package testutil

import (
	"math"

	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/schema"
)

// NewExposure builds a w x h exposure anchored at (0, 0) with a constant
// variance plane, a Gaussian PSF of the given width, and a TAN WCS centered
// on the frame.
func NewExposure(w, h int, variance, psfSigma float64) *image.Exposure {
	box := geom.NewBox2I(geom.Point2I{X: 0, Y: 0}, geom.Extent2I{X: w, Y: h})
	exp := image.NewExposure(box, variance)
	exp.SetPsf(image.NewPsf(psfSigma))
	exp.SetWcs(geom.NewTanWcs(
		geom.Point2D{X: float64(w) / 2, Y: float64(h) / 2},
		geom.SpherePoint{Ra: 1.0, Dec: 0.5},
		1e-6,
	))
	return exp
}

// InjectGaussian renders a circular Gaussian source of total flux onto an
// image, out to five sigma, clipped to the image bounds.
func InjectGaussian(img *image.Image, x, y, flux, sigma float64) {
	r := int(math.Ceil(5 * sigma))
	cx, cy := int(math.Round(x)), int(math.Round(y))
	box := img.Box()
	s2 := sigma * sigma
	for j := cy - r; j <= cy+r; j++ {
		for i := cx - r; i <= cx+r; i++ {
			if !box.Contains(geom.Point2I{X: i, Y: j}) {
				continue
			}
			dx, dy := float64(i)-x, float64(j)-y
			img.Add(i, j, flux*math.Exp(-(dx*dx+dy*dy)/(2*s2))/(2*math.Pi*s2))
		}
	}
}

// AddSourceRecord appends a record with a box footprint of the given
// half-width around the source position and a peak at the position itself.
func AddSourceRecord(cat *schema.Catalog, x, y float64, halfWidth int) *schema.Record {
	rec := cat.AddNew()
	cx, cy := int(math.Round(x)), int(math.Round(y))
	box := geom.Box2I{
		Min: geom.Point2I{X: cx - halfWidth, Y: cy - halfWidth},
		Max: geom.Point2I{X: cx + halfWidth, Y: cy + halfWidth},
	}
	fp := image.NewFootprintFromBox(box)
	fp.AddPeak(x, y, 1.0)
	rec.SetFootprint(fp)
	return rec
}

// MakeBlendChild extracts a child's deblended pixel data: a fresh image is
// rendered with only the child's source, and the child record gets a heavy
// footprint carrying those pixels. The parent exposure stays untouched.
func MakeBlendChild(rec *schema.Record, bounds geom.Box2I, x, y, flux, sigma float64, halfWidth int) {
	childImg := image.NewImage(bounds)
	InjectGaussian(childImg, x, y, flux, sigma)
	cx, cy := int(math.Round(x)), int(math.Round(y))
	box := geom.Box2I{
		Min: geom.Point2I{X: cx - halfWidth, Y: cy - halfWidth},
		Max: geom.Point2I{X: cx + halfWidth, Y: cy + halfWidth},
	}
	fp := image.NewFootprintFromBox(box)
	fp.AddPeak(x, y, 1.0)
	rec.SetFootprint(fp)
	rec.SetHeavyFootprint(image.MakeHeavy(fp, childImg))
}
