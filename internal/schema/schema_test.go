package schema_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/schema"
)

func TestSchema_AddField_Duplicate(t *testing.T) {
	s := schema.New()

	_, err := s.AddField("base_Test_instFlux", schema.F64, "test flux")
	require.NoError(t, err)

	_, err = s.AddField("base_Test_instFlux", schema.F64, "test flux again")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already present")
}

func TestSchema_MinimalFields(t *testing.T) {
	s := schema.MakeMinimalSchema()

	want := []string{"coord_dec", "coord_ra"}
	if diff := cmp.Diff(want, s.Names()); diff != "" {
		t.Errorf("unexpected minimal schema fields (-want +got):\n%s", diff)
	}
}

func TestRecord_Defaults(t *testing.T) {
	s := schema.New()
	fk := s.MustAddField("value", schema.F64, "")
	bk := s.MustAddField("flag", schema.Flag, "")

	rec := schema.NewRecord(s)

	assert.True(t, math.IsNaN(rec.GetF64(fk)), "numeric fields start as NaN")
	assert.False(t, rec.GetFlag(bk), "flag fields start false")
}

func TestRecord_CrossSchemaKeyPanics(t *testing.T) {
	a := schema.New()
	b := schema.New()
	ka := a.MustAddField("value", schema.F64, "")
	b.MustAddField("value", schema.F64, "")

	rec := schema.NewRecord(b)

	require.Panics(t, func() { rec.GetF64(ka) })
}

func TestRecord_TypeMismatchPanics(t *testing.T) {
	s := schema.New()
	fk := s.MustAddField("value", schema.F64, "")

	rec := schema.NewRecord(s)

	require.Panics(t, func() { rec.GetFlag(fk) })
	require.Panics(t, func() { rec.GetF64(schema.Key{}) })
}

func TestCatalog_IDs(t *testing.T) {
	cat := schema.NewCatalog(schema.New())

	assert.Equal(t, int64(1), cat.AddNew().ID())
	assert.Equal(t, int64(2), cat.AddNew().ID())

	rec := cat.AddWithID(17)
	assert.Equal(t, int64(17), rec.ID())
	assert.Equal(t, int64(18), cat.AddNew().ID(), "AddWithID advances the id counter")
	assert.Equal(t, 4, cat.Len())
}

func TestCompositeKeys(t *testing.T) {
	s := schema.New()
	pk, err := schema.AddPoint2DFields(s, "base_Test", "position")
	require.NoError(t, err)
	qk, err := schema.AddQuadrupoleFields(s, "base_Test", "shape")
	require.NoError(t, err)

	rec := schema.NewRecord(s)
	pk.Set(rec, geom.Point2D{X: 3.5, Y: -1.25})
	qk.Set(rec, geom.Quadrupole{Ixx: 4, Iyy: 1, Ixy: 0.5})

	assert.Equal(t, geom.Point2D{X: 3.5, Y: -1.25}, pk.Get(rec))
	assert.Equal(t, geom.Quadrupole{Ixx: 4, Iyy: 1, Ixy: 0.5}, qk.Get(rec))

	found, ok := schema.FindPoint2D(s, "base_Test")
	require.True(t, ok)
	assert.Equal(t, pk, found)

	_, ok = schema.FindQuadrupole(s, "base_Missing")
	assert.False(t, ok)
}

func TestAliasMap_Resolve(t *testing.T) {
	a := schema.NewAliasMap()
	a.Set("slot_Centroid", "base_NaiveCentroid")
	a.Set("slot_Centroid_extra", "base_Other")

	assert.Equal(t, "base_NaiveCentroid_x", a.Resolve("slot_Centroid_x"))
	assert.Equal(t, "base_NaiveCentroid", a.Resolve("slot_Centroid"))
	assert.Equal(t, "base_Other_y", a.Resolve("slot_Centroid_extra_y"),
		"longest matching prefix wins")
	assert.Equal(t, "slot_Centroidish_x", a.Resolve("slot_Centroidish_x"),
		"prefixes match only at underscore boundaries")

	a.Erase("slot_Centroid")
	assert.Equal(t, "slot_Centroid_x", a.Resolve("slot_Centroid_x"))
}

func TestSlots_Resolve(t *testing.T) {
	s := schema.MakeMinimalSchema()
	_, err := schema.AddPoint2DFields(s, "base_NaiveCentroid", "centroid")
	require.NoError(t, err)
	s.MustAddField("base_NaiveCentroid_flag", schema.Flag, "")
	_, err = schema.AddFluxFields(s, "base_PsfFlux", "psf flux")
	require.NoError(t, err)
	s.MustAddField("base_PsfFlux_flag", schema.Flag, "")

	configured := map[string]struct{}{
		"base_NaiveCentroid": {},
		"base_PsfFlux":       {},
	}

	var slots schema.Slots
	err = slots.Resolve(s, schema.SlotBindings{
		Centroid: "base_NaiveCentroid",
		PsfFlux:  "base_PsfFlux",
	}, configured)
	require.NoError(t, err)

	assert.True(t, slots.Centroid.IsValid())
	assert.True(t, slots.CentroidFlag.IsValid())
	assert.True(t, slots.PsfFlux.IsValid())
	assert.True(t, slots.PsfFlux.Flag.IsValid())
	assert.False(t, slots.Shape.IsValid(), "unbound roles stay invalid")

	k, ok := s.Find("slot_Centroid_x")
	require.True(t, ok, "resolving installs slot aliases")
	direct, _ := s.Find("base_NaiveCentroid_x")
	assert.Equal(t, direct, k)
}

func TestSlots_Resolve_Errors(t *testing.T) {
	s := schema.MakeMinimalSchema()
	_, err := schema.AddPoint2DFields(s, "base_NaiveCentroid", "centroid")
	require.NoError(t, err)

	configured := map[string]struct{}{"base_NaiveCentroid": {}}

	t.Run("plugin not configured", func(t *testing.T) {
		var slots schema.Slots
		err := slots.Resolve(s, schema.SlotBindings{Centroid: "base_SdssCentroid"}, configured)
		var slotErr *schema.SlotError
		require.ErrorAs(t, err, &slotErr)
		assert.Equal(t, "centroid", slotErr.Role)
		assert.Empty(t, slotErr.Missing)
	})

	t.Run("field missing", func(t *testing.T) {
		var slots schema.Slots
		err := slots.Resolve(s, schema.SlotBindings{PsfFlux: "base_NaiveCentroid"}, configured)
		var slotErr *schema.SlotError
		require.ErrorAs(t, err, &slotErr)
		assert.Equal(t, "base_NaiveCentroid_instFlux", slotErr.Missing)
	})

	t.Run("membership check skipped with nil set", func(t *testing.T) {
		var slots schema.Slots
		err := slots.Resolve(s, schema.SlotBindings{Centroid: "base_NaiveCentroid"}, nil)
		require.NoError(t, err)
	})
}
