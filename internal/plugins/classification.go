package plugins

import (
	"math"

	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/metadata"
	"github.com/vk/starmeasgo/internal/plugin"
	"github.com/vk/starmeasgo/internal/schema"
)

// ClassificationConfig configures the star/galaxy separator.
type ClassificationConfig struct {
	// FluxRatio scales the model flux before comparing against the PSF flux.
	FluxRatio float64 `hcl:"flux_ratio,optional"`
	// PsfErrFactor scales the PSF flux uncertainty added to the PSF side of
	// the comparison. Zero disables the term even when the uncertainty is NaN.
	PsfErrFactor float64 `hcl:"psf_err_factor,optional"`
	// ModelErrFactor scales the model flux uncertainty added to the model
	// side of the comparison.
	ModelErrFactor float64 `hcl:"model_err_factor,optional"`
}

// classification writes 0.0 (point source) or 1.0 (extended) by comparing
// the slot model flux against the slot PSF flux. A point source has model
// flux consistent with its PSF flux; an extended source has more.
type classification struct {
	name  string
	cfg   ClassificationConfig
	slots *schema.Slots
	value schema.Key
	flags plugin.FlagHandler
}

func classificationDescriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Order:           plugin.ClassifyOrder,
		NewConfig:       func() any { return &ClassificationConfig{FluxRatio: 0.925} },
		MakeSingleFrame: newClassification,
	}
}

func newClassification(cfg any, name string, sch *schema.Schema, slots *schema.Slots, _ *metadata.PropertyList) (plugin.SingleFrame, error) {
	p := &classification{name: name, cfg: *cfg.(*ClassificationConfig), slots: slots}
	var err error
	if p.value, err = sch.AddField(name+"_value", schema.F64, "1.0 for extended sources, 0.0 for point sources"); err != nil {
		return nil, err
	}
	var defs plugin.FlagDefinitionList
	defs.AddFailureFlag("input fluxes were unusable")
	if p.flags, err = plugin.AddFlagFields(sch, name, &defs); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *classification) Name() string { return p.name }

func (p *classification) Measure(rec *schema.Record, _ *image.Exposure) error {
	if !p.slots.PsfFlux.IsValid() || !p.slots.ModelFlux.IsValid() {
		return plugin.NewFatalError("%s: psfFlux and modelFlux slots must both be configured", p.name)
	}
	psfFlux := rec.GetF64(p.slots.PsfFlux.Flux)
	modelFlux := rec.GetF64(p.slots.ModelFlux.Flux)
	if math.IsNaN(psfFlux) || math.IsNaN(modelFlux) {
		return plugin.NewMeasurementError("input flux is undefined", plugin.FlagBitUndefined)
	}
	if p.slots.PsfFlux.Flag.IsValid() && rec.GetFlag(p.slots.PsfFlux.Flag) {
		return plugin.NewMeasurementError("psfFlux slot is flagged", plugin.FlagBitUndefined)
	}
	if p.slots.ModelFlux.Flag.IsValid() && rec.GetFlag(p.slots.ModelFlux.Flag) {
		return plugin.NewMeasurementError("modelFlux slot is flagged", plugin.FlagBitUndefined)
	}
	// The uncertainty terms enter only with nonzero factors; undefined
	// uncertainties must not poison the comparison when disabled.
	modelSide := p.cfg.FluxRatio * modelFlux
	if p.cfg.ModelErrFactor != 0 {
		modelSide += p.cfg.ModelErrFactor * rec.GetF64(p.slots.ModelFlux.Err)
	}
	psfSide := psfFlux
	if p.cfg.PsfErrFactor != 0 {
		psfSide += p.cfg.PsfErrFactor * rec.GetF64(p.slots.PsfFlux.Err)
	}
	if math.IsNaN(modelSide) || math.IsNaN(psfSide) {
		return plugin.NewMeasurementError("flux uncertainty is undefined", plugin.FlagBitUndefined)
	}
	if modelSide < psfSide {
		rec.SetF64(p.value, 0.0)
	} else {
		rec.SetF64(p.value, 1.0)
	}
	return nil
}

func (p *classification) Fail(rec *schema.Record, err error) {
	p.flags.HandleFailure(rec, err)
}
