package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/starmeasgo/internal/apcorr"
	"github.com/vk/starmeasgo/internal/config"
	"github.com/vk/starmeasgo/internal/measure"
	"github.com/vk/starmeasgo/internal/metadata"
	"github.com/vk/starmeasgo/internal/plugin"
	"github.com/vk/starmeasgo/internal/plugins"
	"github.com/vk/starmeasgo/internal/schema"
)

// Pipeline is the frozen, validated product of configuration: the output
// schema, resolved slots, and the tasks a run executes.
type Pipeline struct {
	Schema   *schema.Schema
	Slots    *schema.Slots
	Task     *measure.Task
	ApCorr   *apcorr.Task
	Metadata *metadata.PropertyList
	Dataset  *config.Dataset
}

// buildPipeline turns the configuration model into a runnable pipeline:
// plugins are resolved into execution order, instantiated against a shared
// schema, slots are bound and validated, and the aperture-correction pass is
// set up. Any error here names the offending plugin, field, or slot.
func buildPipeline(ctx context.Context, pcfg *config.Pipeline, reg *plugin.Registry, conv config.Converter) (*Pipeline, error) {
	if pcfg == nil {
		return nil, errors.New("configuration has no pipeline block")
	}

	names := make([]string, 0, len(pcfg.Plugins))
	bodies := make(map[string]hcl.Body, len(pcfg.Plugins))
	for _, pb := range pcfg.Plugins {
		names = append(names, pb.Name)
		bodies[pb.Name] = pb.Body
	}

	entries, err := reg.Resolve(names)
	if err != nil {
		return nil, err
	}

	sch := schema.MakeMinimalSchema()
	slots := &schema.Slots{}
	md := metadata.NewRunPropertyList()

	makeInstance := func(e plugin.Entry, instanceName string) (plugin.SingleFrame, error) {
		if !e.Descriptor.SupportsSingleFrame() {
			return nil, fmt.Errorf("plugin %q does not support single-frame measurement", e.Name)
		}
		cfg := e.Descriptor.NewConfig()
		if err := conv.DecodeBody(ctx, bodies[e.Name], cfg); err != nil {
			return nil, fmt.Errorf("plugin %q: %w", e.Name, err)
		}
		var mdArg *metadata.PropertyList
		if e.Descriptor.NeedsMetadata {
			mdArg = md
		}
		inst, err := e.Descriptor.MakeSingleFrame(cfg, instanceName, sch, slots, mdArg)
		if err != nil {
			return nil, fmt.Errorf("plugin %q: %w", instanceName, err)
		}
		return inst, nil
	}

	instances := make([]plugin.SingleFrame, 0, len(entries))
	for _, e := range entries {
		inst, err := makeInstance(e, e.Name)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}

	// The undeblended pass re-instantiates a subset of the configured
	// plugins under the undeblended_ prefix; they measure the same records
	// against the parent's pixel data.
	undebEntries, err := reg.Resolve(pcfg.Undeblended)
	if err != nil {
		return nil, err
	}
	undeblended := make([]plugin.SingleFrame, 0, len(undebEntries))
	for _, e := range undebEntries {
		if _, ok := bodies[e.Name]; !ok {
			return nil, fmt.Errorf("undeblended plugin %q is not among the configured plugins", e.Name)
		}
		inst, err := makeInstance(e, "undeblended_"+e.Name)
		if err != nil {
			return nil, err
		}
		undeblended = append(undeblended, inst)
	}

	bindings := defaultBindings(names)
	applySlotOverrides(&bindings, pcfg.Slots)
	if err := slots.Resolve(sch, bindings, membershipSet(names, bindings)); err != nil {
		return nil, err
	}

	apCfg := apcorr.DefaultConfig()
	var apNames []string
	for _, e := range entries {
		if e.Descriptor.ShouldApCorr {
			apNames = append(apNames, e.Name)
		}
	}
	proxies := make(map[string]string)
	for _, e := range undebEntries {
		if e.Descriptor.ShouldApCorr {
			proxies["undeblended_"+e.Name] = e.Name
		}
	}
	if pcfg.ApCorr != nil {
		apNames = append(apNames, pcfg.ApCorr.Names...)
		for k, v := range pcfg.ApCorr.Proxies {
			proxies[k] = v
		}
		if pcfg.ApCorr.UseNaiveFluxErr != nil {
			apCfg.UseNaiveFluxErr = *pcfg.ApCorr.UseNaiveFluxErr
		}
	}
	apCfg.Names = dedupe(apNames)
	apCfg.Proxies = proxies
	apTask, err := apcorr.NewTask(sch, slots, apCfg)
	if err != nil {
		return nil, fmt.Errorf("aperture correction: %w", err)
	}

	return &Pipeline{
		Schema:   sch,
		Slots:    slots,
		Task:     measure.NewTask(sch, slots, instances, undeblended),
		ApCorr:   apTask,
		Metadata: md,
		Dataset:  pcfg.Dataset,
	}, nil
}

// defaultBindings picks slot defaults from whatever happens to be
// configured; a role whose default plugin is absent stays disabled rather
// than failing validation.
func defaultBindings(names []string) schema.SlotBindings {
	has := make(map[string]bool, len(names))
	for _, n := range names {
		has[n] = true
	}
	pick := func(candidates ...string) string {
		for _, c := range candidates {
			if has[c] {
				return c
			}
		}
		return ""
	}
	return schema.SlotBindings{
		Centroid:     pick(plugins.NaiveCentroidName, plugins.PeakCentroidName),
		Shape:        pick(plugins.SdssShapeName),
		PsfFlux:      pick(plugins.PsfFluxName),
		ModelFlux:    pick(plugins.GaussianFluxName),
		GaussianFlux: pick(plugins.GaussianFluxName),
	}
}

// applySlotOverrides folds explicit slot configuration over the defaults. A
// set pointer overrides the binding; an empty string (HCL null) disables the
// role outright.
func applySlotOverrides(b *schema.SlotBindings, s *config.Slots) {
	if s == nil {
		return
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&b.Centroid, s.Centroid)
	set(&b.Shape, s.Shape)
	set(&b.PsfFlux, s.PsfFlux)
	set(&b.ModelFlux, s.ModelFlux)
	set(&b.ApFlux, s.ApFlux)
	set(&b.GaussianFlux, s.GaussianFlux)
	set(&b.CalibFlux, s.CalibFlux)
}

// membershipSet is the configured-plugin set used for slot validation. A
// binding like base_CircularApertureFlux_12_0 names one aperture of a
// configured multi-radius plugin, so prefixes of configured names (at an
// underscore boundary) count as members too.
func membershipSet(names []string, b schema.SlotBindings) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	admit := func(binding string) {
		if binding == "" {
			return
		}
		if _, ok := set[binding]; ok {
			return
		}
		for _, n := range names {
			if strings.HasPrefix(binding, n+"_") {
				set[binding] = struct{}{}
				return
			}
		}
	}
	for _, binding := range []string{b.Centroid, b.Shape, b.PsfFlux, b.ModelFlux, b.ApFlux, b.GaussianFlux, b.CalibFlux} {
		admit(binding)
	}
	return set
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
