package schema

import "fmt"

// SlotError reports a slot binding that cannot be satisfied. It is raised
// during pipeline setup, before any record is measured.
type SlotError struct {
	Role    string
	Plugin  string
	Missing string
}

func (e *SlotError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("slot %q bound to plugin %q, which does not provide field %q", e.Role, e.Plugin, e.Missing)
	}
	return fmt.Sprintf("slot %q bound to plugin %q, which is not among the configured plugins", e.Role, e.Plugin)
}

// SlotBindings names the plugin backing each slot role. An empty string
// disables the role.
type SlotBindings struct {
	Centroid     string
	Shape        string
	PsfFlux      string
	ModelFlux    string
	ApFlux       string
	GaussianFlux string
	CalibFlux    string
}

// FluxSlot holds the resolved keys for one flux role. Err and Flag are
// invalid keys when the backing plugin does not provide them.
type FluxSlot struct {
	Flux Key
	Err  Key
	Flag Key
}

// IsValid reports whether the slot is enabled and resolved.
func (s FluxSlot) IsValid() bool { return s.Flux.IsValid() }

// Slots resolves abstract measurement roles to the concrete fields of
// whichever plugin is bound to each role. A Slots value is shared between
// the driver and any plugins that read upstream results; its keys are filled
// in by Resolve once all plugins have allocated their fields.
type Slots struct {
	Centroid     Point2DKey
	CentroidFlag Key

	Shape     QuadrupoleKey
	ShapeFlag Key

	PsfFlux      FluxSlot
	ModelFlux    FluxSlot
	ApFlux       FluxSlot
	GaussianFlux FluxSlot
	CalibFlux    FluxSlot
}

// Resolve validates the bindings against the schema and the configured
// plugin set, fills in the concrete keys, and installs the slot aliases
// (slot_Centroid, slot_PsfFlux, ...) on the schema. configured may be nil to
// skip the membership check (reference schemas in forced mode carry slots
// for plugins configured in a different run).
func (sl *Slots) Resolve(s *Schema, b SlotBindings, configured map[string]struct{}) error {
	inSet := func(plugin string) bool {
		if configured == nil {
			return true
		}
		_, ok := configured[plugin]
		return ok
	}

	if b.Centroid != "" {
		if !inSet(b.Centroid) {
			return &SlotError{Role: "centroid", Plugin: b.Centroid}
		}
		k, ok := FindPoint2D(s, b.Centroid)
		if !ok {
			return &SlotError{Role: "centroid", Plugin: b.Centroid, Missing: b.Centroid + "_x"}
		}
		sl.Centroid = k
		if fk, ok := s.Find(b.Centroid + "_flag"); ok {
			sl.CentroidFlag = fk
		}
		s.Aliases().Set("slot_Centroid", b.Centroid)
	}

	if b.Shape != "" {
		if !inSet(b.Shape) {
			return &SlotError{Role: "shape", Plugin: b.Shape}
		}
		k, ok := FindQuadrupole(s, b.Shape)
		if !ok {
			return &SlotError{Role: "shape", Plugin: b.Shape, Missing: b.Shape + "_xx"}
		}
		sl.Shape = k
		if fk, ok := s.Find(b.Shape + "_flag"); ok {
			sl.ShapeFlag = fk
		}
		s.Aliases().Set("slot_Shape", b.Shape)
	}

	fluxRoles := []struct {
		role   string
		alias  string
		plugin string
		slot   *FluxSlot
	}{
		{"psfFlux", "slot_PsfFlux", b.PsfFlux, &sl.PsfFlux},
		{"modelFlux", "slot_ModelFlux", b.ModelFlux, &sl.ModelFlux},
		{"apFlux", "slot_ApFlux", b.ApFlux, &sl.ApFlux},
		{"gaussianFlux", "slot_GaussianFlux", b.GaussianFlux, &sl.GaussianFlux},
		{"calibFlux", "slot_CalibFlux", b.CalibFlux, &sl.CalibFlux},
	}
	for _, fr := range fluxRoles {
		if fr.plugin == "" {
			continue
		}
		if !inSet(fr.plugin) {
			return &SlotError{Role: fr.role, Plugin: fr.plugin}
		}
		fk, ok := s.Find(fr.plugin + "_instFlux")
		if !ok {
			return &SlotError{Role: fr.role, Plugin: fr.plugin, Missing: fr.plugin + "_instFlux"}
		}
		fr.slot.Flux = fk
		if ek, ok := s.Find(fr.plugin + "_instFluxErr"); ok {
			fr.slot.Err = ek
		}
		if flk, ok := s.Find(fr.plugin + "_flag"); ok {
			fr.slot.Flag = flk
		}
		s.Aliases().Set(fr.alias, fr.plugin)
	}
	return nil
}
