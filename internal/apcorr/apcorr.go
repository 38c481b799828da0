// Package apcorr applies position-dependent aperture corrections to measured
// instrumental fluxes. Corrections arrive as bounded scalar fields (one per
// corrected flux field), are evaluated at each record's slot centroid, and
// are recorded alongside the corrected values so the raw measurement can be
// reconstructed.
package apcorr

import (
	"context"
	"math"
	"sort"

	"github.com/vk/starmeasgo/internal/ctxlog"
	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/schema"
)

// FieldMap holds the correction fields for a run, keyed by the flux field
// name they correct ("<prefix>_instFlux") and optionally its uncertainty
// ("<prefix>_instFluxErr").
type FieldMap map[string]image.BoundedField

// Config selects which flux fields are corrected and how uncertainties
// propagate.
type Config struct {
	// Names are the flux field prefixes to correct.
	Names []string `hcl:"names,optional"`
	// Proxies maps a flux prefix to the prefix whose correction field it
	// reuses. Undeblended re-measurements correct with the corresponding
	// deblended plugin's field, since the correction depends only on
	// position and algorithm.
	Proxies map[string]string `hcl:"proxies,optional"`
	// UseNaiveFluxErr scales the flux uncertainty by the correction instead
	// of propagating the correction's own uncertainty.
	UseNaiveFluxErr bool `hcl:"use_naive_flux_err,optional"`
}

// DefaultConfig returns the standard correction behavior.
func DefaultConfig() Config {
	return Config{UseNaiveFluxErr: true}
}

// target is one flux field prefix being corrected. base names the prefix
// whose entry in the FieldMap supplies the correction.
type target struct {
	name string
	base string

	flux    schema.FluxKey
	apCorr  schema.Key
	apErr   schema.Key
	apFlag  schema.Key
	hasFlux bool
}

// Task corrects a configured set of flux fields in place.
type Task struct {
	cfg     Config
	slots   *schema.Slots
	targets []target
}

// NewTask allocates the correction output fields (<prefix>_apCorr,
// <prefix>_apCorrErr, <prefix>_flag_apCorr) for every configured prefix
// whose flux field exists in the schema. Prefixes without a flux field are
// skipped: a plugin may be configured out of the run while its correction
// stays configured in. With no explicit Names, the prefixes registered via
// AddApCorrName are used.
func NewTask(sch *schema.Schema, slots *schema.Slots, cfg Config) (*Task, error) {
	t := &Task{cfg: cfg, slots: slots}
	if len(cfg.Names) == 0 {
		cfg.Names = ApCorrNames()
	}

	add := func(name, base string) error {
		flux, okFlux := sch.Find(name + "_instFlux")
		if !okFlux {
			return nil
		}
		tg := target{name: name, base: base, hasFlux: true}
		tg.flux.Flux = flux
		if ek, ok := sch.Find(name + "_instFluxErr"); ok {
			tg.flux.Err = ek
		}
		var err error
		if tg.apCorr, err = sch.AddField(name+"_apCorr", schema.F64, "aperture correction applied to "+name+"_instFlux"); err != nil {
			return err
		}
		if tg.apErr, err = sch.AddField(name+"_apCorrErr", schema.F64, "uncertainty of the applied aperture correction"); err != nil {
			return err
		}
		if tg.apFlag, err = sch.AddField(name+"_flag_apCorr", schema.Flag, "aperture correction could not be applied"); err != nil {
			return err
		}
		t.targets = append(t.targets, tg)
		return nil
	}

	for _, name := range cfg.Names {
		if err := add(name, name); err != nil {
			return nil, err
		}
	}
	proxies := make([]string, 0, len(cfg.Proxies))
	for name := range cfg.Proxies {
		proxies = append(proxies, name)
	}
	sort.Strings(proxies)
	for _, name := range proxies {
		if err := add(name, cfg.Proxies[name]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Targets returns the corrected flux prefixes, for plan output.
func (t *Task) Targets() []string {
	names := make([]string, len(t.targets))
	for i, tg := range t.targets {
		names[i] = tg.name
	}
	return names
}

// Bases returns the prefixes whose FieldMap entries Run consults, without
// duplicates. Proxies resolve to their base prefix.
func (t *Task) Bases() []string {
	seen := make(map[string]struct{}, len(t.targets))
	bases := make([]string, 0, len(t.targets))
	for _, tg := range t.targets {
		if _, dup := seen[tg.base]; dup {
			continue
		}
		seen[tg.base] = struct{}{}
		bases = append(bases, tg.base)
	}
	return bases
}

// Run corrects every record of the catalog using the given correction
// fields. A missing or invalid correction flags the affected records and
// invalidates their fluxes; it never aborts the run.
func (t *Task) Run(ctx context.Context, cat *schema.Catalog, fields FieldMap) error {
	logger := ctxlog.FromContext(ctx)
	for _, tg := range t.targets {
		corrField, ok := fields[tg.base+"_instFlux"]
		if !ok {
			logger.Warn("No aperture correction available; flagging all records.", "field", tg.name+"_instFlux")
			for _, rec := range cat.Records() {
				rec.SetFlag(tg.apFlag, true)
			}
			continue
		}
		errField := fields[tg.base+"_instFluxErr"]
		for _, rec := range cat.Records() {
			t.applyOne(rec, tg, corrField, errField)
		}
	}
	return nil
}

func (t *Task) applyOne(rec *schema.Record, tg target, corrField, errField image.BoundedField) {
	center := geom.Point2D{}
	if t.slots.Centroid.IsValid() {
		center = t.slots.Centroid.Get(rec)
	}
	corr, err := corrField.Evaluate(center)
	if err != nil || corr <= 0 || math.IsNaN(corr) {
		rec.SetFlag(tg.apFlag, true)
		rec.SetF64(tg.flux.Flux, math.NaN())
		if tg.flux.Err.IsValid() {
			rec.SetF64(tg.flux.Err, math.NaN())
		}
		return
	}
	var corrErr float64
	if errField != nil {
		if v, evalErr := errField.Evaluate(center); evalErr == nil {
			corrErr = v
		}
	}
	rec.SetF64(tg.apCorr, corr)
	rec.SetF64(tg.apErr, corrErr)

	flux := rec.GetF64(tg.flux.Flux)
	corrected := flux * corr
	rec.SetF64(tg.flux.Flux, corrected)
	if !tg.flux.Err.IsValid() {
		return
	}
	fluxErr := rec.GetF64(tg.flux.Err)
	if t.cfg.UseNaiveFluxErr {
		rec.SetF64(tg.flux.Err, fluxErr*corr)
		return
	}
	a := fluxErr / flux
	b := corrErr / corr
	rec.SetF64(tg.flux.Err, math.Abs(corrected)*math.Sqrt(a*a+b*b))
}
