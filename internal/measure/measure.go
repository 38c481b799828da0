// Package measure drives single-frame measurement: it runs the configured
// plugins over each record in execution order, presents deblended pixel data
// per object, isolates per-plugin failures, and runs the undeblended proxy
// pass against the parent's pixel data.
package measure

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vk/starmeasgo/internal/ctxlog"
	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/plugin"
	"github.com/vk/starmeasgo/internal/schema"

	"context"
)

// Task runs an ordered plugin set over a catalog. Construct it with NewTask
// once the schema, slots, and plugin instances are final; it performs no
// further configuration.
type Task struct {
	schema      *schema.Schema
	slots       *schema.Slots
	plugins     []plugin.SingleFrame
	undeblended []plugin.SingleFrame
}

// NewTask creates a driver over already-resolved plugins. Both plugin slices
// must be in execution order; undeblended plugins carry the undeblended_
// field prefix and run against unsubtracted parent pixels.
func NewTask(sch *schema.Schema, slots *schema.Slots, plugins, undeblended []plugin.SingleFrame) *Task {
	return &Task{schema: sch, slots: slots, plugins: plugins, undeblended: undeblended}
}

// Schema returns the output schema.
func (t *Task) Schema() *schema.Schema { return t.schema }

// Slots returns the resolved slot keys.
func (t *Task) Slots() *schema.Slots { return t.slots }

// PluginNames returns the resolved execution order, for plan output.
func (t *Task) PluginNames() []string {
	names := make([]string, len(t.plugins))
	for i, p := range t.plugins {
		names[i] = p.Name()
	}
	return names
}

// Run measures every record of the catalog against the exposure. Each record
// is driven fully through all configured plugins; a failure in one plugin
// never prevents later plugins from running on the same record, and never
// affects other records.
func (t *Task) Run(ctx context.Context, cat *schema.Catalog, exp *image.Exposure) error {
	if cat.Schema() != t.schema {
		return fmt.Errorf("catalog schema does not match the schema this task was configured with")
	}
	logger := ctxlog.FromContext(ctx)
	logger.Info("Starting measurement.", "records", cat.Len(), "plugins", len(t.plugins))

	for _, rec := range cat.Records() {
		recLogger := logger.With("record", rec.ID())
		target := t.exposureFor(rec, exp)
		for _, p := range t.plugins {
			t.measureOne(recLogger, p, rec, target)
		}
		// The undeblended pass re-measures against the parent's
		// (pre-deblending) pixel data.
		for _, p := range t.undeblended {
			t.measureOne(recLogger, p, rec, exp)
		}
	}

	logger.Info("Measurement finished.", "records", cat.Len())
	return nil
}

// exposureFor returns the pixel data a record should be measured against:
// deblended children carry their own heavy footprint, which is presented on
// an otherwise blank image so neighbors do not contaminate the measurement.
func (t *Task) exposureFor(rec *schema.Record, exp *image.Exposure) *image.Exposure {
	heavy := rec.HeavyFootprint()
	if heavy == nil {
		return exp
	}
	img := image.NewImage(exp.Box())
	heavy.Insert(img)
	return exp.WithImage(img)
}

// measureOne invokes a single plugin on a single record, converting any
// error into a call to the plugin's Fail handler. Recoverable measurement
// errors are routine and logged at debug level; fatal errors usually signal
// misconfiguration and are reported loudly.
func (t *Task) measureOne(logger *slog.Logger, p plugin.SingleFrame, rec *schema.Record, exp *image.Exposure) {
	err := p.Measure(rec, exp)
	if err == nil {
		return
	}
	var merr *plugin.MeasurementError
	var ferr *plugin.FatalError
	switch {
	case errors.As(err, &merr):
		logger.Debug("Plugin could not measure source.", "plugin", p.Name(), "error", err)
	case errors.As(err, &ferr):
		logger.Error("Plugin hit a structural error; check pipeline configuration.", "plugin", p.Name(), "error", err)
	default:
		logger.Error("Plugin failed unexpectedly.", "plugin", p.Name(), "error", err)
	}
	p.Fail(rec, err)
}
