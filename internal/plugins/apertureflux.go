package plugins

import (
	"github.com/vk/starmeasgo/internal/apflux"
	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/metadata"
	"github.com/vk/starmeasgo/internal/plugin"
	"github.com/vk/starmeasgo/internal/schema"
)

// CircularApertureFluxConfig configures multi-aperture circular photometry.
type CircularApertureFluxConfig struct {
	// Radii are the aperture radii, in pixels.
	Radii []float64 `hcl:"radii,optional"`
	// MaxSincRadius bounds the sub-pixel (sinc) integration; larger apertures
	// fall back to the naive pixel sum.
	MaxSincRadius float64 `hcl:"max_sinc_radius,optional"`
	// SincKernelPad is the support margin of the sinc kernel, in pixels.
	SincKernelPad float64 `hcl:"sinc_kernel_pad,optional"`
}

func (c CircularApertureFluxConfig) control() apflux.Control {
	return apflux.Control{
		Radii:         c.Radii,
		MaxSincRadius: c.MaxSincRadius,
		SincKernelPad: c.SincKernelPad,
	}
}

// aperture holds the resolved keys for one radius.
type aperture struct {
	radius float64
	keys   schema.FluxKey
	flags  plugin.FlagHandler
}

// circularApertureFlux measures flux within concentric circular apertures
// centered on the slot centroid. Each radius gets its own field prefix and
// flag set; the plugin publishes the radii to the run metadata so consumers
// can map field names back to aperture sizes.
type circularApertureFlux struct {
	name      string
	slots     *schema.Slots
	apertures []aperture
	ctrl      apflux.Control
}

func circularApertureFluxDescriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Order:         plugin.FluxOrder,
		NeedsMetadata: true,
		ShouldApCorr:  true,
		NewConfig: func() any {
			def := apflux.DefaultControl()
			return &CircularApertureFluxConfig{
				Radii:         def.Radii,
				MaxSincRadius: def.MaxSincRadius,
				SincKernelPad: def.SincKernelPad,
			}
		},
		MakeSingleFrame: newCircularApertureFlux,
		MakeForced:      forcedFlux(newCircularApertureFlux),
	}
}

func newCircularApertureFlux(cfg any, name string, sch *schema.Schema, slots *schema.Slots, md *metadata.PropertyList) (plugin.SingleFrame, error) {
	c := cfg.(*CircularApertureFluxConfig)
	p := &circularApertureFlux{name: name, slots: slots, ctrl: c.control()}
	for _, radius := range c.Radii {
		prefix := apflux.MakeFieldPrefix(name, radius)
		keys, err := schema.AddFluxFields(sch, prefix, "instrumental flux within the aperture")
		if err != nil {
			return nil, err
		}
		var defs plugin.FlagDefinitionList
		defs.AddFailureFlag("aperture flux measurement failed")
		defs.Add("apertureTruncated", "aperture extends outside the image")
		defs.Add("sincCoeffsTruncated", "sinc kernel support extends outside the image")
		// Large apertures never use sinc integration, so the sinc flag field
		// is not allocated for them.
		var excl map[string]bool
		if radius > c.MaxSincRadius {
			excl = map[string]bool{"sincCoeffsTruncated": true}
		}
		flags, err := plugin.AddFlagFieldsExcluding(sch, prefix, &defs, excl)
		if err != nil {
			return nil, err
		}
		p.apertures = append(p.apertures, aperture{radius: radius, keys: keys, flags: flags})
	}
	if md != nil {
		radii := make([]float64, len(c.Radii))
		copy(radii, c.Radii)
		md.Set(apflux.MetadataKey(name), radii)
	}
	return p, nil
}

func (p *circularApertureFlux) Name() string { return p.name }

func (p *circularApertureFlux) Measure(rec *schema.Record, exp *image.Exposure) error {
	if !p.slots.Centroid.IsValid() {
		return plugin.NewFatalError("%s: no centroid slot configured", p.name)
	}
	center := p.slots.Centroid.Get(rec)
	if center.IsNaN() {
		return plugin.NewMeasurementError("slot centroid is undefined", plugin.FlagBitUndefined)
	}
	for _, ap := range p.apertures {
		ell := geom.Ellipse{
			Core:   geom.Axes{A: ap.radius, B: ap.radius},
			Center: center,
		}
		res := apflux.ComputeFlux(exp.Image(), exp.Variance(), ell, p.ctrl)
		rec.SetF64(ap.keys.Flux, res.InstFlux)
		rec.SetF64(ap.keys.Err, res.InstFluxErr)
		if res.ApertureTruncated {
			ap.flags.SetFlag(rec, apflux.FlagApertureTruncated, true)
			ap.flags.SetFlag(rec, apflux.FlagFailure, true)
		}
		if res.SincCoeffsTruncated && ap.flags.HasFlag(apflux.FlagSincCoeffsTruncated) {
			ap.flags.SetFlag(rec, apflux.FlagSincCoeffsTruncated, true)
		}
	}
	return nil
}

// Fail marks every aperture as failed: a failure this early (no centroid,
// unexpected error) invalidates all radii at once.
func (p *circularApertureFlux) Fail(rec *schema.Record, err error) {
	for _, ap := range p.apertures {
		ap.flags.HandleFailure(rec, err)
	}
}
