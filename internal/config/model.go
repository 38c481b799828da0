package config

import (
	"github.com/hashicorp/hcl/v2"
)

// Model is the unified, format-agnostic representation of the entire
// pipeline configuration.
type Model struct {
	Pipeline *Pipeline
}

// Pipeline describes one measurement run: which plugins execute, which
// subset re-runs undeblended, how slots bind, and how fluxes are corrected.
type Pipeline struct {
	Plugins     []*PluginBlock
	Undeblended []string
	Slots       *Slots
	ApCorr      *ApCorr
	Dataset     *Dataset
}

// PluginBlock is the format-agnostic representation of a `plugin` block: the
// plugin's registered name plus its raw, not-yet-decoded option body. The
// body is decoded into the plugin's own config struct by a Converter once
// the plugin's descriptor supplies the target type.
type PluginBlock struct {
	Name string
	Body hcl.Body
}

// Slots names the plugin backing each measurement role. A nil field keeps
// the application default; an explicit empty string disables the role.
type Slots struct {
	Centroid     *string
	Shape        *string
	PsfFlux      *string
	ModelFlux    *string
	ApFlux       *string
	GaussianFlux *string
	CalibFlux    *string
}

// ApCorr configures the aperture-correction pass.
type ApCorr struct {
	Names           []string
	Proxies         map[string]string
	UseNaiveFluxErr *bool
}

// Dataset describes the synthetic exposure a demo run measures: image
// geometry, noise level, PSF width, and the point sources to inject.
type Dataset struct {
	Width    int
	Height   int
	Variance float64
	PsfSigma float64
	Sources  []*Source
}

// Source is one injected point source.
type Source struct {
	X    float64
	Y    float64
	Flux float64
}
