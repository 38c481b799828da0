package forced

import (
	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/metadata"
	"github.com/vk/starmeasgo/internal/plugin"
	"github.com/vk/starmeasgo/internal/schema"
)

// Canonical names of the forced-geometry plugins.
const (
	TransformedCentroidName = "base_TransformedCentroid"
	TransformedShapeName    = "base_TransformedShape"
	PeakCentroidName        = "base_ForcedPeakCentroid"
)

// RegisterPlugins publishes the forced-geometry plugins into the registry.
func RegisterPlugins(reg *plugin.Registry) {
	reg.MustRegister(TransformedCentroidName, transformedCentroidDescriptor())
	reg.MustRegister(TransformedShapeName, transformedShapeDescriptor())
	reg.MustRegister(PeakCentroidName, forcedPeakCentroidDescriptor())
}

// transformedCentroid carries the reference slot centroid into the target
// pixel frame. It is usually the output centroid slot of a forced run, so
// every flux plugin measures at the reference position.
type transformedCentroid struct {
	name     string
	refPos   schema.Point2DKey
	refFlag  schema.Key
	pos      schema.Point2DKey
	flagKey  schema.Key
	hasFlags bool
}

func transformedCentroidDescriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Order:      plugin.CentroidOrder,
		NewConfig:  func() any { return &struct{}{} },
		MakeForced: newTransformedCentroid,
	}
}

func newTransformedCentroid(_ any, name string, mapper *schema.Mapper, _ *schema.Slots, _ *metadata.PropertyList) (plugin.Forced, error) {
	p := &transformedCentroid{name: name}
	refSchema := mapper.InputSchema()
	refPos, ok := schema.FindPoint2D(refSchema, "slot_Centroid")
	if !ok {
		return nil, &schema.SlotError{Role: "centroid", Plugin: "slot_Centroid", Missing: "slot_Centroid_x"}
	}
	p.refPos = refPos

	out := mapper.EditOutputSchema()
	var err error
	if p.pos, err = schema.AddPoint2DFields(out, name, "reference centroid transformed to the target frame"); err != nil {
		return nil, err
	}
	// The failure flag mirrors the reference centroid flag, and only exists
	// when the reference schema carries one.
	if refFlag, ok := refSchema.Find("slot_Centroid_flag"); ok {
		p.refFlag = refFlag
		if p.flagKey, err = out.AddField(name+"_flag", schema.Flag, "whether the reference centroid was flagged"); err != nil {
			return nil, err
		}
		p.hasFlags = true
	}
	return p, nil
}

func (p *transformedCentroid) Name() string { return p.name }

func (p *transformedCentroid) MeasureForced(rec *schema.Record, exp *image.Exposure, refRec *schema.Record, refWcs geom.Wcs) error {
	targetWcs := exp.Wcs()
	if targetWcs == nil {
		return plugin.NewFatalError("%s: target exposure has no WCS", p.name)
	}
	refPos := p.refPos.Get(refRec)
	if refWcs.Eq(targetWcs) {
		p.pos.Set(rec, refPos)
	} else {
		p.pos.Set(rec, targetWcs.SkyToPixel(refWcs.PixelToSky(refPos)))
	}
	if p.hasFlags && refRec.GetFlag(p.refFlag) {
		rec.SetFlag(p.flagKey, true)
	}
	return nil
}

func (p *transformedCentroid) Fail(rec *schema.Record, _ error) {
	if p.hasFlags {
		rec.SetFlag(p.flagKey, true)
	}
}

// transformedShape carries the reference slot shape into the target pixel
// frame through a local linearization of the frame-to-frame map.
type transformedShape struct {
	name     string
	refPos   schema.Point2DKey
	refShape schema.QuadrupoleKey
	refFlag  schema.Key
	shape    schema.QuadrupoleKey
	flagKey  schema.Key
	hasFlags bool
}

func transformedShapeDescriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Order:      plugin.ShapeOrder,
		NewConfig:  func() any { return &struct{}{} },
		MakeForced: newTransformedShape,
	}
}

func newTransformedShape(_ any, name string, mapper *schema.Mapper, _ *schema.Slots, _ *metadata.PropertyList) (plugin.Forced, error) {
	p := &transformedShape{name: name}
	refSchema := mapper.InputSchema()
	refShape, ok := schema.FindQuadrupole(refSchema, "slot_Shape")
	if !ok {
		return nil, &schema.SlotError{Role: "shape", Plugin: "slot_Shape", Missing: "slot_Shape_xx"}
	}
	p.refShape = refShape
	// The linearization point is the reference centroid.
	refPos, ok := schema.FindPoint2D(refSchema, "slot_Centroid")
	if !ok {
		return nil, &schema.SlotError{Role: "centroid", Plugin: "slot_Centroid", Missing: "slot_Centroid_x"}
	}
	p.refPos = refPos

	out := mapper.EditOutputSchema()
	var err error
	if p.shape, err = schema.AddQuadrupoleFields(out, name, "reference shape transformed to the target frame"); err != nil {
		return nil, err
	}
	if refFlag, ok := refSchema.Find("slot_Shape_flag"); ok {
		p.refFlag = refFlag
		if p.flagKey, err = out.AddField(name+"_flag", schema.Flag, "whether the reference shape was flagged"); err != nil {
			return nil, err
		}
		p.hasFlags = true
	}
	return p, nil
}

func (p *transformedShape) Name() string { return p.name }

func (p *transformedShape) MeasureForced(rec *schema.Record, exp *image.Exposure, refRec *schema.Record, refWcs geom.Wcs) error {
	targetWcs := exp.Wcs()
	if targetWcs == nil {
		return plugin.NewFatalError("%s: target exposure has no WCS", p.name)
	}
	refShape := p.refShape.Get(refRec)
	if refWcs.Eq(targetWcs) {
		p.shape.Set(rec, refShape)
	} else {
		l := geom.LinearizePixelToPixel(refWcs, targetWcs, p.refPos.Get(refRec))
		p.shape.Set(rec, refShape.Transform(l))
	}
	if p.hasFlags && refRec.GetFlag(p.refFlag) {
		rec.SetFlag(p.flagKey, true)
	}
	return nil
}

func (p *transformedShape) Fail(rec *schema.Record, _ error) {
	if p.hasFlags {
		rec.SetFlag(p.flagKey, true)
	}
}

// forcedPeakCentroid transforms the reference footprint's first peak into
// the target frame. It serves pipelines whose reference catalogs carry no
// measured centroid, only detection peaks.
type forcedPeakCentroid struct {
	name  string
	pos   schema.Point2DKey
	flags plugin.FlagHandler
}

func forcedPeakCentroidDescriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Order:      plugin.CentroidOrder,
		NewConfig:  func() any { return &struct{}{} },
		MakeForced: newForcedPeakCentroid,
	}
}

func newForcedPeakCentroid(_ any, name string, mapper *schema.Mapper, _ *schema.Slots, _ *metadata.PropertyList) (plugin.Forced, error) {
	p := &forcedPeakCentroid{name: name}
	out := mapper.EditOutputSchema()
	var err error
	if p.pos, err = schema.AddPoint2DFields(out, name, "reference peak transformed to the target frame"); err != nil {
		return nil, err
	}
	var defs plugin.FlagDefinitionList
	defs.AddFailureFlag("reference peak could not be transformed")
	if p.flags, err = plugin.AddFlagFields(out, name, &defs); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *forcedPeakCentroid) Name() string { return p.name }

func (p *forcedPeakCentroid) MeasureForced(rec *schema.Record, exp *image.Exposure, refRec *schema.Record, refWcs geom.Wcs) error {
	targetWcs := exp.Wcs()
	if targetWcs == nil {
		return plugin.NewFatalError("%s: target exposure has no WCS", p.name)
	}
	fp := refRec.Footprint()
	if fp == nil || len(fp.Peaks) == 0 {
		return plugin.NewMeasurementError("reference record has no footprint peak", plugin.FlagBitUndefined)
	}
	peak := geom.Point2D{X: fp.Peaks[0].Fx, Y: fp.Peaks[0].Fy}
	if refWcs.Eq(targetWcs) {
		p.pos.Set(rec, peak)
	} else {
		p.pos.Set(rec, targetWcs.SkyToPixel(refWcs.PixelToSky(peak)))
	}
	return nil
}

func (p *forcedPeakCentroid) Fail(rec *schema.Record, err error) {
	p.flags.HandleFailure(rec, err)
}
