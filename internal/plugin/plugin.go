// Package plugin defines the contracts between the measurement scheduler and
// individual measurement algorithms: the plugin interfaces, the registry
// they are published in, execution-order bands, and the flag-based failure
// machinery.
package plugin

import (
	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/metadata"
	"github.com/vk/starmeasgo/internal/schema"
)

// Execution-order bands. Smaller runs first. Downstream bands read upstream
// outputs through slots, so the centroid < shape < flux < classification
// causal ordering must be preserved when new bands are added; fractional
// adjustments within a band are fine.
const (
	CentroidOrder float64 = 0.0
	ShapeOrder    float64 = 1.0
	FluxOrder     float64 = 2.0
	ApCorrOrder   float64 = 3.0
	ClassifyOrder float64 = 5.0
)

// SingleFrame is the contract for a plugin measuring an object directly on
// the image it was detected in.
//
// Measure mutates only the given record's fields. A returned
// *MeasurementError is the expected, recoverable per-object failure path; a
// *FatalError reports a violated structural precondition. Either way the
// scheduler calls Fail and continues with the next plugin.
//
// Fail records the failure in the plugin's own flag fields and must not
// raise further. A plugin that allocates no fields may make Fail a no-op,
// which leaves failures undetectable downstream; such plugins must document
// that gap.
type SingleFrame interface {
	Name() string
	Measure(rec *schema.Record, exp *image.Exposure) error
	Fail(rec *schema.Record, err error)
}

// Forced is the contract for forced-measurement plugins, which take their
// geometry from a reference record observed under a different world
// coordinate system. The four-argument signature is fixed: target record,
// target exposure, reference record, reference WCS.
type Forced interface {
	Name() string
	MeasureForced(rec *schema.Record, exp *image.Exposure, refRec *schema.Record, refWcs geom.Wcs) error
	Fail(rec *schema.Record, err error)
}

// Descriptor is the registry entry for one plugin: its execution order,
// capability flags, default configuration, and factories. A descriptor is
// immutable once registered.
//
// NewConfig returns a fresh default configuration struct; the loader decodes
// the plugin's config block into it before the factory runs. MakeSingleFrame
// and MakeForced may each be nil when the plugin does not support that mode.
type Descriptor struct {
	Order         float64
	NeedsMetadata bool
	ShouldApCorr  bool

	NewConfig func() any

	MakeSingleFrame func(cfg any, name string, sch *schema.Schema, slots *schema.Slots, md *metadata.PropertyList) (SingleFrame, error)
	MakeForced      func(cfg any, name string, mapper *schema.Mapper, slots *schema.Slots, md *metadata.PropertyList) (Forced, error)
}

// SupportsForced reports whether the plugin can run in forced mode.
func (d *Descriptor) SupportsForced() bool { return d.MakeForced != nil }

// SupportsSingleFrame reports whether the plugin can run in single-frame
// mode.
func (d *Descriptor) SupportsSingleFrame() bool { return d.MakeSingleFrame != nil }
