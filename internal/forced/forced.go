// Package forced implements forced measurement: re-measuring objects on a
// new exposure at positions and shapes taken from a reference catalog
// observed under a (possibly) different world coordinate system. Geometry
// crosses frames through the sky; everything downstream reads it from the
// output catalog's slots.
package forced

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vk/starmeasgo/internal/ctxlog"
	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/plugin"
	"github.com/vk/starmeasgo/internal/schema"
)

// Measurer drives forced-mode plugins over a reference catalog. Construct it
// with NewMeasurer after the output schema and slots are final.
type Measurer struct {
	mapper  *schema.Mapper
	slots   *schema.Slots
	plugins []plugin.Forced
}

// NewMeasurer creates a driver over already-resolved forced plugins, in
// execution order.
func NewMeasurer(mapper *schema.Mapper, slots *schema.Slots, plugins []plugin.Forced) *Measurer {
	return &Measurer{mapper: mapper, slots: slots, plugins: plugins}
}

// Schema returns the output schema.
func (m *Measurer) Schema() *schema.Schema { return m.mapper.EditOutputSchema() }

// Slots returns the resolved output slot keys.
func (m *Measurer) Slots() *schema.Slots { return m.slots }

// GenerateMeasCat builds the output catalog mirroring a reference catalog:
// one record per reference record, carrying the same id, parent link, and
// footprint. Measurement fields start unset.
func (m *Measurer) GenerateMeasCat(refCat *schema.Catalog) (*schema.Catalog, error) {
	if refCat.Schema() != m.mapper.InputSchema() {
		return nil, fmt.Errorf("reference catalog schema does not match the mapper's input schema")
	}
	out := schema.NewCatalog(m.mapper.EditOutputSchema())
	for _, ref := range refCat.Records() {
		rec := out.AddWithID(ref.ID())
		rec.SetParent(ref.Parent())
		rec.SetFootprint(ref.Footprint())
	}
	return out, nil
}

// Run measures every output record against the exposure, pairing it with the
// reference record at the same index. Failure isolation matches single-frame
// measurement: one plugin failing on one record never stops the run.
func (m *Measurer) Run(ctx context.Context, cat *schema.Catalog, exp *image.Exposure, refCat *schema.Catalog, refWcs geom.Wcs) error {
	if cat.Len() != refCat.Len() {
		return fmt.Errorf("output catalog has %d records but reference catalog has %d", cat.Len(), refCat.Len())
	}
	if refWcs == nil {
		return fmt.Errorf("forced measurement requires a reference WCS")
	}
	logger := ctxlog.FromContext(ctx)
	logger.Info("Starting forced measurement.", "records", cat.Len(), "plugins", len(m.plugins))

	refs := refCat.Records()
	for i, rec := range cat.Records() {
		recLogger := logger.With("record", rec.ID())
		for _, p := range m.plugins {
			m.measureOne(recLogger, p, rec, exp, refs[i], refWcs)
		}
	}

	logger.Info("Forced measurement finished.", "records", cat.Len())
	return nil
}

func (m *Measurer) measureOne(logger *slog.Logger, p plugin.Forced, rec *schema.Record, exp *image.Exposure, refRec *schema.Record, refWcs geom.Wcs) {
	err := p.MeasureForced(rec, exp, refRec, refWcs)
	if err == nil {
		return
	}
	var merr *plugin.MeasurementError
	var ferr *plugin.FatalError
	switch {
	case errors.As(err, &merr):
		logger.Debug("Forced plugin could not measure source.", "plugin", p.Name(), "error", err)
	case errors.As(err, &ferr):
		logger.Error("Forced plugin hit a structural error; check pipeline configuration.", "plugin", p.Name(), "error", err)
	default:
		logger.Error("Forced plugin failed unexpectedly.", "plugin", p.Name(), "error", err)
	}
	p.Fail(rec, err)
}
