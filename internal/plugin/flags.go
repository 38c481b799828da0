package plugin

import (
	"errors"
	"fmt"

	"github.com/vk/starmeasgo/internal/schema"
)

// FailureFlagName is the canonical name of a plugin's general failure flag
// field, allocated as <pluginName>_flag.
const FailureFlagName = "flag"

// FlagDefinition names one flag field a plugin can set, relative to the
// plugin's field prefix.
type FlagDefinition struct {
	Name string
	Doc  string
}

// FlagDefinitionList is an ordered set of flag definitions. The position of
// a definition is the flag bit carried by MeasurementError.
type FlagDefinitionList struct {
	defs []FlagDefinition
}

// Add appends a definition and returns its bit number.
func (l *FlagDefinitionList) Add(name, doc string) int {
	l.defs = append(l.defs, FlagDefinition{Name: name, Doc: doc})
	return len(l.defs) - 1
}

// AddFailureFlag appends the canonical general failure flag.
func (l *FlagDefinitionList) AddFailureFlag(doc string) int {
	return l.Add(FailureFlagName, doc)
}

// Size returns the number of definitions.
func (l *FlagDefinitionList) Size() int { return len(l.defs) }

// Defs returns the definitions in bit order.
func (l *FlagDefinitionList) Defs() []FlagDefinition { return l.defs }

// FlagHandler owns a plugin's allocated flag fields and applies the failure
// contract: the general failure flag is always set on failure, plus the
// specific sub-flag named by a MeasurementError's flag bit.
type FlagHandler struct {
	keys    []schema.Key
	failure int
}

// AddFlagFields allocates fields for every definition under the given
// prefix.
func AddFlagFields(s *schema.Schema, prefix string, defs *FlagDefinitionList) (FlagHandler, error) {
	return AddFlagFieldsExcluding(s, prefix, defs, nil)
}

// AddFlagFieldsExcluding allocates flag fields, skipping definitions whose
// names appear in excl. Excluded bits keep invalid keys, so they can be
// declared (for stable bit numbering) without appearing in the catalog.
func AddFlagFieldsExcluding(s *schema.Schema, prefix string, defs *FlagDefinitionList, excl map[string]bool) (FlagHandler, error) {
	h := FlagHandler{failure: FlagBitUndefined}
	h.keys = make([]schema.Key, defs.Size())
	for i, def := range defs.Defs() {
		if excl[def.Name] {
			continue
		}
		k, err := s.AddField(prefix+"_"+def.Name, schema.Flag, def.Doc)
		if err != nil {
			return FlagHandler{}, err
		}
		h.keys[i] = k
		if def.Name == FailureFlagName {
			h.failure = i
		}
	}
	return h, nil
}

// HasFlag reports whether the bit has an allocated field.
func (h FlagHandler) HasFlag(bit int) bool {
	return bit >= 0 && bit < len(h.keys) && h.keys[bit].IsValid()
}

// SetFlag writes one flag bit. Setting an unallocated bit is a programmer
// error.
func (h FlagHandler) SetFlag(rec *schema.Record, bit int, value bool) {
	if !h.HasFlag(bit) {
		panic(fmt.Sprintf("plugin: flag bit %d not allocated", bit))
	}
	rec.SetFlag(h.keys[bit], value)
}

// GetFlag reads one flag bit.
func (h FlagHandler) GetFlag(rec *schema.Record, bit int) bool {
	if !h.HasFlag(bit) {
		panic(fmt.Sprintf("plugin: flag bit %d not allocated", bit))
	}
	return rec.GetFlag(h.keys[bit])
}

// HandleFailure records a failure on a record: the general failure flag is
// set if allocated, and a MeasurementError's specific sub-flag is set too.
// It never raises further.
func (h FlagHandler) HandleFailure(rec *schema.Record, err error) {
	if h.failure != FlagBitUndefined {
		rec.SetFlag(h.keys[h.failure], true)
	}
	var merr *MeasurementError
	if errors.As(err, &merr) && merr.FlagBit != FlagBitUndefined && h.HasFlag(merr.FlagBit) {
		rec.SetFlag(h.keys[merr.FlagBit], true)
	}
}
