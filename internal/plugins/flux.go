package plugins

import (
	"math"

	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/metadata"
	"github.com/vk/starmeasgo/internal/plugin"
	"github.com/vk/starmeasgo/internal/schema"
)

// Flag bits shared by the matched-filter flux plugins, in definition order.
const (
	fluxFlagFailure = iota
	fluxFlagEdge
)

// fluxAlgorithm is the black-box numeric core of a flux plugin: given an
// exposure and a record whose upstream slots are filled, return the flux and
// its uncertainty. The surrounding adapter owns fields, flags, and the
// failure contract, so algorithms stay plain functions.
type fluxAlgorithm func(rec *schema.Record, exp *image.Exposure) (flux, fluxErr float64, err error)

// fluxAdapter turns a fluxAlgorithm into a plugin: it allocates the
// instFlux/instFluxErr pair and the standard flag fields, runs the
// algorithm, and routes failures through the flag handler.
type fluxAdapter struct {
	name      string
	keys      schema.FluxKey
	flags     plugin.FlagHandler
	algorithm fluxAlgorithm
}

func newFluxAdapter(name string, sch *schema.Schema, doc string, algorithm fluxAlgorithm) (*fluxAdapter, error) {
	a := &fluxAdapter{name: name, algorithm: algorithm}
	var err error
	if a.keys, err = schema.AddFluxFields(sch, name, doc); err != nil {
		return nil, err
	}
	var defs plugin.FlagDefinitionList
	defs.AddFailureFlag("flux measurement failed")
	defs.Add("edge", "fit region extends outside the image")
	if a.flags, err = plugin.AddFlagFields(sch, name, &defs); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *fluxAdapter) Name() string { return a.name }

func (a *fluxAdapter) Measure(rec *schema.Record, exp *image.Exposure) error {
	flux, fluxErr, err := a.algorithm(rec, exp)
	if err != nil {
		return err
	}
	rec.SetF64(a.keys.Flux, flux)
	rec.SetF64(a.keys.Err, fluxErr)
	return nil
}

func (a *fluxAdapter) Fail(rec *schema.Record, err error) {
	a.flags.HandleFailure(rec, err)
}

// weightedFlux is the matched-filter estimator both flux algorithms reduce
// to: flux = sum(w*d) / sum(w*w), which recovers the total flux exactly when
// the data is the weight profile scaled. The variance plane propagates as
// sum(w*w*var) / sum(w*w)^2.
func weightedFlux(img, variance *image.Image, region geom.Box2I, weight func(x, y int) float64) (flux, fluxErr float64) {
	var wd, ww, wwv float64
	for y := region.Min.Y; y <= region.Max.Y; y++ {
		for x := region.Min.X; x <= region.Max.X; x++ {
			w := weight(x, y)
			if w == 0 {
				continue
			}
			wd += w * img.At(x, y)
			ww += w * w
			if variance != nil {
				wwv += w * w * variance.At(x, y)
			}
		}
	}
	if ww == 0 {
		return math.NaN(), math.NaN()
	}
	flux = wd / ww
	fluxErr = math.NaN()
	if variance != nil {
		fluxErr = math.Sqrt(wwv) / ww
	}
	return flux, fluxErr
}

func psfFluxDescriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Order:           plugin.FluxOrder,
		ShouldApCorr:    true,
		NewConfig:       func() any { return &struct{}{} },
		MakeSingleFrame: newPsfFlux,
		MakeForced:      forcedFlux(newPsfFlux),
	}
}

// newPsfFlux builds the PSF matched-filter flux plugin: the exposure's PSF
// model, centered on the slot centroid, is the weight profile.
func newPsfFlux(_ any, name string, sch *schema.Schema, slots *schema.Slots, _ *metadata.PropertyList) (plugin.SingleFrame, error) {
	algorithm := func(rec *schema.Record, exp *image.Exposure) (float64, float64, error) {
		psf := exp.Psf()
		if psf == nil {
			return 0, 0, plugin.NewFatalError("%s: exposure has no PSF model", name)
		}
		center, err := slotCenter(name, slots, rec)
		if err != nil {
			return 0, 0, err
		}
		r := psf.KernelRadius()
		region, err := fitRegion(exp, center, r, r)
		if err != nil {
			return 0, 0, err
		}
		flux, fluxErr := weightedFlux(exp.Image(), exp.Variance(), region, func(x, y int) float64 {
			return psf.Evaluate(float64(x)-center.X, float64(y)-center.Y)
		})
		return flux, fluxErr, nil
	}
	return newFluxAdapter(name, sch, "instrumental flux from the PSF matched filter", algorithm)
}

func gaussianFluxDescriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Order:           plugin.FluxOrder,
		ShouldApCorr:    true,
		NewConfig:       func() any { return &struct{}{} },
		MakeSingleFrame: newGaussianFlux,
		MakeForced:      forcedFlux(newGaussianFlux),
	}
}

// newGaussianFlux builds the elliptical Gaussian matched-filter flux plugin:
// the weight profile comes from the slot shape, centered on the slot
// centroid.
func newGaussianFlux(_ any, name string, sch *schema.Schema, slots *schema.Slots, _ *metadata.PropertyList) (plugin.SingleFrame, error) {
	algorithm := func(rec *schema.Record, exp *image.Exposure) (float64, float64, error) {
		if !slots.Shape.IsValid() {
			return 0, 0, plugin.NewFatalError("%s: no shape slot configured", name)
		}
		center, err := slotCenter(name, slots, rec)
		if err != nil {
			return 0, 0, err
		}
		q := slots.Shape.Get(rec)
		det := q.Ixx*q.Iyy - q.Ixy*q.Ixy
		if math.IsNaN(det) || det <= 0 {
			return 0, 0, plugin.NewMeasurementError("slot shape is singular or undefined", plugin.FlagBitUndefined)
		}
		// 5-sigma extent along each axis.
		hx := int(math.Ceil(5 * math.Sqrt(q.Ixx)))
		hy := int(math.Ceil(5 * math.Sqrt(q.Iyy)))
		region, err := fitRegion(exp, center, hx, hy)
		if err != nil {
			return 0, 0, err
		}
		// Inverse of the moment matrix and the unit-integral normalization.
		ixx, iyy, ixy := q.Iyy/det, q.Ixx/det, -q.Ixy/det
		norm := 1 / (2 * math.Pi * math.Sqrt(det))
		flux, fluxErr := weightedFlux(exp.Image(), exp.Variance(), region, func(x, y int) float64 {
			dx, dy := float64(x)-center.X, float64(y)-center.Y
			return norm * math.Exp(-0.5*(ixx*dx*dx+2*ixy*dx*dy+iyy*dy*dy))
		})
		return flux, fluxErr, nil
	}
	return newFluxAdapter(name, sch, "instrumental flux from the elliptical Gaussian matched filter", algorithm)
}

// slotCenter reads the slot centroid, distinguishing a missing slot (setup
// problem) from an unmeasured centroid (per-object problem).
func slotCenter(name string, slots *schema.Slots, rec *schema.Record) (geom.Point2D, error) {
	if !slots.Centroid.IsValid() {
		return geom.Point2D{}, plugin.NewFatalError("%s: no centroid slot configured", name)
	}
	center := slots.Centroid.Get(rec)
	if center.IsNaN() {
		return geom.Point2D{}, plugin.NewMeasurementError("slot centroid is undefined", plugin.FlagBitUndefined)
	}
	return center, nil
}

// fitRegion returns the pixel box of half-extents (hx, hy) around a center,
// or an edge error when it does not fit on the exposure.
func fitRegion(exp *image.Exposure, center geom.Point2D, hx, hy int) (geom.Box2I, error) {
	cx, cy := int(math.Round(center.X)), int(math.Round(center.Y))
	region := geom.Box2I{
		Min: geom.Point2I{X: cx - hx, Y: cy - hy},
		Max: geom.Point2I{X: cx + hx, Y: cy + hy},
	}
	if !exp.Box().ContainsBox(region) {
		return geom.Box2I{}, plugin.NewMeasurementError("fit region extends outside the image", fluxFlagEdge)
	}
	return region, nil
}

// forcedFlux lifts a single-frame flux factory into a forced-mode factory.
// The instance allocates its fields on the output schema and reads geometry
// from the output slots, which the transformed-geometry plugins populate.
func forcedFlux(makeSF func(cfg any, name string, sch *schema.Schema, slots *schema.Slots, md *metadata.PropertyList) (plugin.SingleFrame, error)) func(cfg any, name string, mapper *schema.Mapper, slots *schema.Slots, md *metadata.PropertyList) (plugin.Forced, error) {
	return func(cfg any, name string, mapper *schema.Mapper, slots *schema.Slots, md *metadata.PropertyList) (plugin.Forced, error) {
		sf, err := makeSF(cfg, name, mapper.EditOutputSchema(), slots, md)
		if err != nil {
			return nil, err
		}
		return forcedAdapter{sf}, nil
	}
}
