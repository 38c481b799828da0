package apcorr_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/starmeasgo/internal/apcorr"
	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/schema"
	"github.com/vk/starmeasgo/internal/testutil"
)

type fixture struct {
	sch   *schema.Schema
	slots *schema.Slots
	flux  schema.FluxKey
}

// newFixture builds a schema with a centroid slot and one flux field pair.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	sch := schema.MakeMinimalSchema()
	_, err := schema.AddPoint2DFields(sch, "base_NaiveCentroid", "centroid")
	require.NoError(t, err)
	flux, err := schema.AddFluxFields(sch, "base_PsfFlux", "psf flux")
	require.NoError(t, err)
	slots := &schema.Slots{}
	require.NoError(t, slots.Resolve(sch, schema.SlotBindings{Centroid: "base_NaiveCentroid"}, nil))
	return &fixture{sch: sch, slots: slots, flux: flux}
}

func (f *fixture) addRecord(cat *schema.Catalog, x, y, flux, fluxErr float64) *schema.Record {
	rec := cat.AddNew()
	f.slots.Centroid.Set(rec, geom.Point2D{X: x, Y: y})
	rec.SetF64(f.flux.Flux, flux)
	rec.SetF64(f.flux.Err, fluxErr)
	return rec
}

func domain() geom.Box2I {
	return geom.NewBox2I(geom.Point2I{X: 0, Y: 0}, geom.Extent2I{X: 100, Y: 100})
}

func TestTask_AppliesCorrection(t *testing.T) {
	f := newFixture(t)
	cfg := apcorr.DefaultConfig()
	cfg.Names = []string{"base_PsfFlux"}
	task, err := apcorr.NewTask(f.sch, f.slots, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"base_PsfFlux"}, task.Targets())

	cat := schema.NewCatalog(f.sch)
	rec := f.addRecord(cat, 50, 50, 100, 10)

	fields := apcorr.FieldMap{
		"base_PsfFlux_instFlux": image.ConstantBoundedField(domain(), 2.0),
	}
	require.NoError(t, task.Run(testutil.SilentContext(), cat, fields))

	assert.Equal(t, 200.0, rec.GetF64(f.flux.Flux))
	assert.Equal(t, 20.0, rec.GetF64(f.flux.Err), "naive error scales with the correction")

	corrKey, _ := f.sch.Find("base_PsfFlux_apCorr")
	assert.Equal(t, 2.0, rec.GetF64(corrKey))
	flagKey, _ := f.sch.Find("base_PsfFlux_flag_apCorr")
	assert.False(t, rec.GetFlag(flagKey))
}

func TestTask_FullErrorPropagation(t *testing.T) {
	f := newFixture(t)
	cfg := apcorr.Config{Names: []string{"base_PsfFlux"}, UseNaiveFluxErr: false}
	task, err := apcorr.NewTask(f.sch, f.slots, cfg)
	require.NoError(t, err)

	cat := schema.NewCatalog(f.sch)
	rec := f.addRecord(cat, 50, 50, 100, 10)

	fields := apcorr.FieldMap{
		"base_PsfFlux_instFlux":    image.ConstantBoundedField(domain(), 2.0),
		"base_PsfFlux_instFluxErr": image.ConstantBoundedField(domain(), 0.2),
	}
	require.NoError(t, task.Run(testutil.SilentContext(), cat, fields))

	// Relative uncertainties 10% (flux) and 10% (correction) add in
	// quadrature on the corrected flux of 200.
	assert.Equal(t, 200.0, rec.GetF64(f.flux.Flux))
	assert.InDelta(t, 200*math.Sqrt(0.02), rec.GetF64(f.flux.Err), 1e-9)

	errKey, _ := f.sch.Find("base_PsfFlux_apCorrErr")
	assert.Equal(t, 0.2, rec.GetF64(errKey))
}

func TestTask_InvalidCorrectionFlags(t *testing.T) {
	f := newFixture(t)
	cfg := apcorr.DefaultConfig()
	cfg.Names = []string{"base_PsfFlux"}
	task, err := apcorr.NewTask(f.sch, f.slots, cfg)
	require.NoError(t, err)

	cat := schema.NewCatalog(f.sch)
	negative := f.addRecord(cat, 50, 50, 100, 10)
	offDomain := f.addRecord(cat, 500, 50, 100, 10)

	fields := apcorr.FieldMap{
		"base_PsfFlux_instFlux": image.ConstantBoundedField(domain(), -1.0),
	}
	require.NoError(t, task.Run(testutil.SilentContext(), cat, fields))

	flagKey, _ := f.sch.Find("base_PsfFlux_flag_apCorr")
	for _, rec := range []*schema.Record{negative, offDomain} {
		assert.True(t, rec.GetFlag(flagKey))
		assert.True(t, math.IsNaN(rec.GetF64(f.flux.Flux)))
		assert.True(t, math.IsNaN(rec.GetF64(f.flux.Err)))
	}
}

func TestTask_MissingFieldFlagsAllRecords(t *testing.T) {
	f := newFixture(t)
	cfg := apcorr.DefaultConfig()
	cfg.Names = []string{"base_PsfFlux"}
	task, err := apcorr.NewTask(f.sch, f.slots, cfg)
	require.NoError(t, err)

	cat := schema.NewCatalog(f.sch)
	rec := f.addRecord(cat, 50, 50, 100, 10)

	buf := &testutil.SafeBuffer{}
	require.NoError(t, task.Run(testutil.CapturedContext(buf), cat, apcorr.FieldMap{}))

	flagKey, _ := f.sch.Find("base_PsfFlux_flag_apCorr")
	assert.True(t, rec.GetFlag(flagKey))
	assert.Equal(t, 100.0, rec.GetF64(f.flux.Flux), "the flux itself is left untouched")
	assert.Contains(t, buf.String(), "No aperture correction available")
}

func TestTask_ProxySharesBaseField(t *testing.T) {
	f := newFixture(t)
	_, err := schema.AddFluxFields(f.sch, "undeblended_base_PsfFlux", "undeblended psf flux")
	require.NoError(t, err)

	cfg := apcorr.DefaultConfig()
	cfg.Names = []string{"base_PsfFlux"}
	cfg.Proxies = map[string]string{"undeblended_base_PsfFlux": "base_PsfFlux"}
	task, err := apcorr.NewTask(f.sch, f.slots, cfg)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"base_PsfFlux", "undeblended_base_PsfFlux"}, task.Targets())
	assert.Equal(t, []string{"base_PsfFlux"}, task.Bases(), "proxies resolve to their base prefix")

	cat := schema.NewCatalog(f.sch)
	rec := f.addRecord(cat, 50, 50, 100, 10)
	undebFlux, _ := f.sch.Find("undeblended_base_PsfFlux_instFlux")
	rec.SetF64(undebFlux, 300)

	fields := apcorr.FieldMap{
		"base_PsfFlux_instFlux": image.ConstantBoundedField(domain(), 2.0),
	}
	require.NoError(t, task.Run(testutil.SilentContext(), cat, fields))

	assert.Equal(t, 200.0, rec.GetF64(f.flux.Flux))
	assert.Equal(t, 600.0, rec.GetF64(undebFlux), "the proxy corrects with the base's field")
}

func TestTask_SkipsAbsentFluxFields(t *testing.T) {
	f := newFixture(t)
	cfg := apcorr.DefaultConfig()
	cfg.Names = []string{"base_PsfFlux", "base_GaussianFlux"}
	task, err := apcorr.NewTask(f.sch, f.slots, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"base_PsfFlux"}, task.Targets(),
		"prefixes with no flux field in the schema are skipped")
	assert.False(t, f.sch.HasField("base_GaussianFlux_apCorr"))
}

func TestNameRegistry(t *testing.T) {
	apcorr.ClearApCorrNames()
	defer apcorr.ClearApCorrNames()

	apcorr.AddApCorrName("base_PsfFlux")
	apcorr.AddApCorrName("base_GaussianFlux")
	apcorr.AddApCorrName("base_PsfFlux")

	assert.Equal(t, []string{"base_GaussianFlux", "base_PsfFlux"}, apcorr.ApCorrNames())

	// With no explicit names, the task falls back to the registry.
	f := newFixture(t)
	task, err := apcorr.NewTask(f.sch, f.slots, apcorr.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"base_PsfFlux"}, task.Targets())
}
