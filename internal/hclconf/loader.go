package hclconf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/starmeasgo/internal/config"
	"github.com/vk/starmeasgo/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file reachable from the given paths and merges the
// discovered blocks into one model. Exactly one pipeline block must exist
// across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if root.Pipeline == nil {
			continue
		}
		if model.Pipeline != nil {
			return nil, nil, fmt.Errorf("multiple pipeline blocks found; second one in %s", file)
		}
		p, err := l.translatePipeline(root.Pipeline)
		if err != nil {
			return nil, nil, fmt.Errorf("in %s: %w", file, err)
		}
		model.Pipeline = p
	}

	if model.Pipeline == nil {
		return nil, nil, fmt.Errorf("no pipeline block found in %d file(s)", len(files))
	}
	logger.Debug("HCL loading complete.", "plugins", len(model.Pipeline.Plugins))
	return model, NewConverter(), nil
}

// translatePipeline converts the HCL-specific pipeline schema into the
// agnostic model.
func (l *Loader) translatePipeline(p *pipelineBlock) (*config.Pipeline, error) {
	out := &config.Pipeline{Undeblended: p.Undeblended}
	for _, pb := range p.Plugins {
		out.Plugins = append(out.Plugins, &config.PluginBlock{Name: pb.Name, Body: pb.Body})
	}
	if p.Slots != nil {
		slots, err := l.translateSlots(p.Slots)
		if err != nil {
			return nil, err
		}
		out.Slots = slots
	}
	if p.ApCorr != nil {
		out.ApCorr = &config.ApCorr{
			Names:           p.ApCorr.Names,
			Proxies:         p.ApCorr.Proxies,
			UseNaiveFluxErr: p.ApCorr.UseNaiveFluxErr,
		}
	}
	if p.Dataset != nil {
		ds := &config.Dataset{
			Width:    p.Dataset.Width,
			Height:   p.Dataset.Height,
			Variance: p.Dataset.Variance,
			PsfSigma: p.Dataset.PsfSigma,
		}
		for _, s := range p.Dataset.Sources {
			ds.Sources = append(ds.Sources, &config.Source{X: s.X, Y: s.Y, Flux: s.Flux})
		}
		out.Dataset = ds
	}
	return out, nil
}

// translateSlots decodes the slots block attribute by attribute. An
// attribute set to null disables the role (empty string); an absent
// attribute stays nil so the application default applies.
func (l *Loader) translateSlots(block *slotsBlock) (*config.Slots, error) {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid slots block: %w", diags)
	}
	slots := &config.Slots{}
	roles := map[string]**string{
		"centroid":      &slots.Centroid,
		"shape":         &slots.Shape,
		"psf_flux":      &slots.PsfFlux,
		"model_flux":    &slots.ModelFlux,
		"ap_flux":       &slots.ApFlux,
		"gaussian_flux": &slots.GaussianFlux,
		"calib_flux":    &slots.CalibFlux,
	}
	for name, attr := range attrs {
		field, ok := roles[name]
		if !ok {
			return nil, fmt.Errorf("unknown slot role %q", name)
		}
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid value for slot %q: %w", name, diags)
		}
		var binding string
		if !val.IsNull() {
			if val.Type() != cty.String {
				return nil, fmt.Errorf("slot %q must be a string or null, got %s", name, val.Type().FriendlyName())
			}
			binding = val.AsString()
		}
		*field = &binding
	}
	return slots, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
