package hclconf

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top-level blocks of a pipeline file.
type fileRoot struct {
	Pipeline *pipelineBlock `hcl:"pipeline,block"`
	Remain   hcl.Body       `hcl:",remain"`
}

// pipelineBlock is the HCL shape of a `pipeline` block.
type pipelineBlock struct {
	Plugins     []*pluginBlock `hcl:"plugin,block"`
	Undeblended []string       `hcl:"undeblended,optional"`
	Slots       *slotsBlock    `hcl:"slots,block"`
	ApCorr      *apCorrBlock   `hcl:"aperture_correction,block"`
	Dataset     *datasetBlock  `hcl:"dataset,block"`
}

// pluginBlock carries a plugin's registered name and its raw option body.
// The body's attributes depend on the plugin, so it stays undecoded here.
type pluginBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// slotsBlock keeps its body raw: slot attributes are decoded one by one so
// an explicit `null` (disable the role) can be told apart from an absent
// attribute (keep the default binding).
type slotsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// apCorrBlock is the HCL shape of an `aperture_correction` block.
type apCorrBlock struct {
	Names           []string          `hcl:"names,optional"`
	Proxies         map[string]string `hcl:"proxies,optional"`
	UseNaiveFluxErr *bool             `hcl:"use_naive_flux_err,optional"`
}

// datasetBlock is the HCL shape of a `dataset` block.
type datasetBlock struct {
	Width    int            `hcl:"width"`
	Height   int            `hcl:"height"`
	Variance float64        `hcl:"variance,optional"`
	PsfSigma float64        `hcl:"psf_sigma,optional"`
	Sources  []*sourceBlock `hcl:"source,block"`
}

// sourceBlock is one injected point source.
type sourceBlock struct {
	X    float64 `hcl:"x"`
	Y    float64 `hcl:"y"`
	Flux float64 `hcl:"flux"`
}
