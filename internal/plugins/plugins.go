// Package plugins contains the built-in measurement algorithms: centroiders,
// the sky-coordinate writer, PSF and Gaussian-weighted photometry,
// multi-aperture circular photometry, and star/galaxy classification. Each
// plugin registers a descriptor; instantiation happens when a pipeline is
// built from configuration.
package plugins

import (
	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/plugin"
	"github.com/vk/starmeasgo/internal/schema"
)

// Canonical names of the built-in plugins.
const (
	PeakCentroidName         = "base_PeakCentroid"
	NaiveCentroidName        = "base_NaiveCentroid"
	SkyCoordName             = "base_SkyCoord"
	SdssShapeName            = "base_SdssShape"
	PsfFluxName              = "base_PsfFlux"
	GaussianFluxName         = "base_GaussianFlux"
	CircularApertureFluxName = "base_CircularApertureFlux"
	ClassificationName       = "base_ClassificationExtendedness"
)

// RegisterAll publishes every built-in plugin into the registry.
func RegisterAll(reg *plugin.Registry) {
	reg.MustRegister(PeakCentroidName, peakCentroidDescriptor())
	reg.MustRegister(NaiveCentroidName, naiveCentroidDescriptor())
	reg.MustRegister(SkyCoordName, skyCoordDescriptor())
	reg.MustRegister(SdssShapeName, sdssShapeDescriptor())
	reg.MustRegister(PsfFluxName, psfFluxDescriptor())
	reg.MustRegister(GaussianFluxName, gaussianFluxDescriptor())
	reg.MustRegister(CircularApertureFluxName, circularApertureFluxDescriptor())
	reg.MustRegister(ClassificationName, classificationDescriptor())
}

// forcedAdapter runs a single-frame measurer in forced mode. Flux and
// classification plugins take all their geometry from the target record's
// slots, which the transformed-geometry plugins fill in earlier in the run,
// so the reference record and WCS are not consulted again here.
type forcedAdapter struct {
	plugin.SingleFrame
}

func (a forcedAdapter) MeasureForced(rec *schema.Record, exp *image.Exposure, _ *schema.Record, _ geom.Wcs) error {
	return a.Measure(rec, exp)
}
