package plugins

import (
	"math"

	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/metadata"
	"github.com/vk/starmeasgo/internal/plugin"
	"github.com/vk/starmeasgo/internal/schema"
)

// peakCentroid copies the position of the footprint's first detection peak
// into the record. It runs first in most pipelines because every later
// plugin reads its position through the centroid slot.
type peakCentroid struct {
	name  string
	pos   schema.Point2DKey
	flags plugin.FlagHandler
}

func peakCentroidDescriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Order:           plugin.CentroidOrder,
		NewConfig:       func() any { return &struct{}{} },
		MakeSingleFrame: newPeakCentroid,
	}
}

func newPeakCentroid(_ any, name string, sch *schema.Schema, _ *schema.Slots, _ *metadata.PropertyList) (plugin.SingleFrame, error) {
	p := &peakCentroid{name: name}
	var err error
	if p.pos, err = schema.AddPoint2DFields(sch, name, "position from the footprint peak"); err != nil {
		return nil, err
	}
	var defs plugin.FlagDefinitionList
	defs.AddFailureFlag("peak centroid could not be determined")
	if p.flags, err = plugin.AddFlagFields(sch, name, &defs); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *peakCentroid) Name() string { return p.name }

func (p *peakCentroid) Measure(rec *schema.Record, _ *image.Exposure) error {
	fp := rec.Footprint()
	if fp == nil || len(fp.Peaks) == 0 {
		return plugin.NewMeasurementError("record has no footprint peak", plugin.FlagBitUndefined)
	}
	peak := fp.Peaks[0]
	p.pos.Set(rec, geom.Point2D{X: peak.Fx, Y: peak.Fy})
	return nil
}

func (p *peakCentroid) Fail(rec *schema.Record, err error) {
	p.flags.HandleFailure(rec, err)
}

// Flag bits of naiveCentroid, in definition order.
const (
	naiveCentroidFlagFailure = iota
	naiveCentroidFlagNoCounts
	naiveCentroidFlagEdge
)

// NaiveCentroidConfig configures the background-subtracted first-moment
// centroider.
type NaiveCentroidConfig struct {
	// Background is subtracted from every pixel before the moments are
	// accumulated.
	Background float64 `hcl:"background,optional"`
	// Radius is the half-width, in pixels, of the square accumulation window
	// around the footprint peak.
	Radius int `hcl:"radius,optional"`
}

// naiveCentroid refines the footprint peak with an intensity-weighted first
// moment over a small window.
type naiveCentroid struct {
	name  string
	cfg   NaiveCentroidConfig
	pos   schema.Point2DKey
	flags plugin.FlagHandler
}

func naiveCentroidDescriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Order:           plugin.CentroidOrder,
		NewConfig:       func() any { return &NaiveCentroidConfig{Radius: 7} },
		MakeSingleFrame: newNaiveCentroid,
	}
}

func newNaiveCentroid(cfg any, name string, sch *schema.Schema, _ *schema.Slots, _ *metadata.PropertyList) (plugin.SingleFrame, error) {
	p := &naiveCentroid{name: name, cfg: *cfg.(*NaiveCentroidConfig)}
	var err error
	if p.pos, err = schema.AddPoint2DFields(sch, name, "intensity-weighted centroid"); err != nil {
		return nil, err
	}
	var defs plugin.FlagDefinitionList
	defs.AddFailureFlag("naive centroid failed")
	defs.Add("noCounts", "no usable flux in the accumulation window")
	defs.Add("edge", "accumulation window extends outside the image")
	if p.flags, err = plugin.AddFlagFields(sch, name, &defs); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *naiveCentroid) Name() string { return p.name }

func (p *naiveCentroid) Measure(rec *schema.Record, exp *image.Exposure) error {
	fp := rec.Footprint()
	if fp == nil || len(fp.Peaks) == 0 {
		return plugin.NewMeasurementError("record has no footprint peak", plugin.FlagBitUndefined)
	}
	peak := fp.Peaks[0]
	cx, cy := int(math.Round(peak.Fx)), int(math.Round(peak.Fy))
	window := geom.Box2I{
		Min: geom.Point2I{X: cx - p.cfg.Radius, Y: cy - p.cfg.Radius},
		Max: geom.Point2I{X: cx + p.cfg.Radius, Y: cy + p.cfg.Radius},
	}
	if !exp.Box().ContainsBox(window) {
		return plugin.NewMeasurementError("centroid window extends outside the image", naiveCentroidFlagEdge)
	}
	img := exp.Image()
	var sum, sumX, sumY float64
	for y := window.Min.Y; y <= window.Max.Y; y++ {
		for x := window.Min.X; x <= window.Max.X; x++ {
			v := img.At(x, y) - p.cfg.Background
			if v <= 0 {
				continue
			}
			sum += v
			sumX += v * float64(x)
			sumY += v * float64(y)
		}
	}
	if sum <= 0 {
		return plugin.NewMeasurementError("no counts above background in centroid window", naiveCentroidFlagNoCounts)
	}
	p.pos.Set(rec, geom.Point2D{X: sumX / sum, Y: sumY / sum})
	return nil
}

func (p *naiveCentroid) Fail(rec *schema.Record, err error) {
	p.flags.HandleFailure(rec, err)
}
