package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/vk/starmeasgo/internal/apcorr"
	"github.com/vk/starmeasgo/internal/config"
	"github.com/vk/starmeasgo/internal/ctxlog"
	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/schema"
)

// Run executes the main application logic: print the resolved plan, or
// measure the configured synthetic dataset end to end.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.Plan {
		a.printPlan()
		return nil
	}

	p := a.pipeline
	if p.Dataset == nil {
		return errors.New("pipeline has no dataset block; nothing to measure (use -plan to inspect the pipeline)")
	}

	exp, cat := buildDataset(p.Schema, p.Dataset)
	a.logger.Info("Synthetic dataset built.", "sources", cat.Len(), "width", p.Dataset.Width, "height", p.Dataset.Height)

	if err := p.Task.Run(ctx, cat, exp); err != nil {
		return fmt.Errorf("measurement failed: %w", err)
	}

	// Demo runs have no calibration products, so every correction field is
	// unity over the full frame; the pass still exercises evaluation,
	// propagation, and flagging.
	fields := make(apcorr.FieldMap)
	for _, base := range p.ApCorr.Bases() {
		fields[base+"_instFlux"] = image.ConstantBoundedField(exp.Box(), 1.0)
	}
	if err := p.ApCorr.Run(ctx, cat, fields); err != nil {
		return fmt.Errorf("aperture correction failed: %w", err)
	}

	a.printResults(cat)

	if appConfig.MetadataOut != "" {
		data, err := p.Metadata.ToYAML()
		if err != nil {
			return fmt.Errorf("failed to render run metadata: %w", err)
		}
		if err := os.WriteFile(appConfig.MetadataOut, data, 0o644); err != nil {
			return fmt.Errorf("failed to write run metadata: %w", err)
		}
		a.logger.Info("Run metadata written.", "path", appConfig.MetadataOut)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// printPlan writes the resolved execution order, slot aliases, correction
// targets, and schema fields.
func (a *App) printPlan() {
	p := a.pipeline
	fmt.Fprintln(a.outW, "Execution order:")
	for i, name := range p.Task.PluginNames() {
		fmt.Fprintf(a.outW, "  %2d. %s\n", i+1, name)
	}
	aliases := p.Schema.Aliases()
	aliasNames := aliases.Names()
	if len(aliasNames) > 0 {
		fmt.Fprintln(a.outW, "Slots:")
		for _, n := range aliasNames {
			target, _ := aliases.Get(n)
			fmt.Fprintf(a.outW, "  %s -> %s\n", n, target)
		}
	}
	if targets := p.ApCorr.Targets(); len(targets) > 0 {
		fmt.Fprintln(a.outW, "Aperture-corrected fluxes:")
		for _, t := range targets {
			fmt.Fprintf(a.outW, "  %s_instFlux\n", t)
		}
	}
	fmt.Fprintf(a.outW, "Schema: %d fields\n", len(p.Schema.Names()))
}

// printResults writes one line per measured record.
func (a *App) printResults(cat *schema.Catalog) {
	slots := a.pipeline.Slots
	for _, rec := range cat.Records() {
		line := fmt.Sprintf("record %d", rec.ID())
		if slots.Centroid.IsValid() {
			pos := slots.Centroid.Get(rec)
			line += fmt.Sprintf("  centroid=(%.2f, %.2f)", pos.X, pos.Y)
		}
		if slots.PsfFlux.IsValid() {
			line += fmt.Sprintf("  psfFlux=%.4g", rec.GetF64(slots.PsfFlux.Flux))
		}
		if slots.ModelFlux.IsValid() {
			line += fmt.Sprintf("  modelFlux=%.4g", rec.GetF64(slots.ModelFlux.Flux))
		}
		fmt.Fprintln(a.outW, line)
	}
}

// buildDataset renders the configured point sources onto a fresh exposure
// and creates the matching detection catalog: one record per source with a
// footprint and peak, as a detection stage would have produced.
func buildDataset(sch *schema.Schema, ds *config.Dataset) (*image.Exposure, *schema.Catalog) {
	variance := ds.Variance
	if variance <= 0 {
		variance = 1.0
	}
	sigma := ds.PsfSigma
	if sigma <= 0 {
		sigma = 2.0
	}
	box := geom.NewBox2I(geom.Point2I{X: 0, Y: 0}, geom.Extent2I{X: ds.Width, Y: ds.Height})
	exp := image.NewExposure(box, variance)
	psf := image.NewPsf(sigma)
	exp.SetPsf(psf)
	exp.SetWcs(geom.NewTanWcs(
		geom.Point2D{X: float64(ds.Width) / 2, Y: float64(ds.Height) / 2},
		geom.SpherePoint{Ra: 1.0, Dec: 0.5},
		1e-6,
	))

	cat := schema.NewCatalog(sch)
	r := psf.KernelRadius()
	img := exp.Image()
	for _, src := range ds.Sources {
		cx, cy := int(math.Round(src.X)), int(math.Round(src.Y))
		region := geom.Box2I{
			Min: geom.Point2I{X: cx - r, Y: cy - r},
			Max: geom.Point2I{X: cx + r, Y: cy + r},
		}
		for y := region.Min.Y; y <= region.Max.Y; y++ {
			for x := region.Min.X; x <= region.Max.X; x++ {
				if !box.Contains(geom.Point2I{X: x, Y: y}) {
					continue
				}
				img.Add(x, y, src.Flux*psf.Evaluate(float64(x)-src.X, float64(y)-src.Y))
			}
		}
		rec := cat.AddNew()
		fp := image.NewFootprintFromBox(region)
		fp.AddPeak(src.X, src.Y, src.Flux*psf.Evaluate(0, 0))
		rec.SetFootprint(fp)
	}
	return exp, cat
}
