package plugins

import (
	"math"

	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/metadata"
	"github.com/vk/starmeasgo/internal/plugin"
	"github.com/vk/starmeasgo/internal/schema"
)

// Flag bits of sdssShape, in definition order.
const (
	sdssShapeFlagFailure = iota
	sdssShapeFlagNoCounts
	sdssShapeFlagEdge
)

// SdssShapeConfig configures the second-moment shape measurement.
type SdssShapeConfig struct {
	// Background is subtracted from every pixel before moments accumulate.
	Background float64 `hcl:"background,optional"`
	// Radius is the half-width, in pixels, of the square accumulation window
	// around the slot centroid.
	Radius int `hcl:"radius,optional"`
}

// sdssShape measures intensity-weighted second central moments around the
// slot centroid, filling the xx/yy/xy fields the shape slot reads.
type sdssShape struct {
	name  string
	cfg   SdssShapeConfig
	slots *schema.Slots
	shape schema.QuadrupoleKey
	flags plugin.FlagHandler
}

func sdssShapeDescriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Order:           plugin.ShapeOrder,
		NewConfig:       func() any { return &SdssShapeConfig{Radius: 15} },
		MakeSingleFrame: newSdssShape,
	}
}

func newSdssShape(cfg any, name string, sch *schema.Schema, slots *schema.Slots, _ *metadata.PropertyList) (plugin.SingleFrame, error) {
	p := &sdssShape{name: name, cfg: *cfg.(*SdssShapeConfig), slots: slots}
	var err error
	if p.shape, err = schema.AddQuadrupoleFields(sch, name, "second central moments of the source profile"); err != nil {
		return nil, err
	}
	var defs plugin.FlagDefinitionList
	defs.AddFailureFlag("shape measurement failed")
	defs.Add("noCounts", "no usable flux in the accumulation window")
	defs.Add("edge", "accumulation window extends outside the image")
	if p.flags, err = plugin.AddFlagFields(sch, name, &defs); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *sdssShape) Name() string { return p.name }

func (p *sdssShape) Measure(rec *schema.Record, exp *image.Exposure) error {
	center, err := slotCenter(p.name, p.slots, rec)
	if err != nil {
		return err
	}
	cx, cy := int(math.Round(center.X)), int(math.Round(center.Y))
	window := geom.Box2I{
		Min: geom.Point2I{X: cx - p.cfg.Radius, Y: cy - p.cfg.Radius},
		Max: geom.Point2I{X: cx + p.cfg.Radius, Y: cy + p.cfg.Radius},
	}
	if !exp.Box().ContainsBox(window) {
		return plugin.NewMeasurementError("shape window extends outside the image", sdssShapeFlagEdge)
	}
	img := exp.Image()
	var sum, sxx, syy, sxy float64
	for y := window.Min.Y; y <= window.Max.Y; y++ {
		for x := window.Min.X; x <= window.Max.X; x++ {
			v := img.At(x, y) - p.cfg.Background
			if v <= 0 {
				continue
			}
			dx, dy := float64(x)-center.X, float64(y)-center.Y
			sum += v
			sxx += v * dx * dx
			syy += v * dy * dy
			sxy += v * dx * dy
		}
	}
	if sum <= 0 {
		return plugin.NewMeasurementError("no counts above background in shape window", sdssShapeFlagNoCounts)
	}
	p.shape.Set(rec, geom.Quadrupole{Ixx: sxx / sum, Iyy: syy / sum, Ixy: sxy / sum})
	return nil
}

func (p *sdssShape) Fail(rec *schema.Record, err error) {
	p.flags.HandleFailure(rec, err)
}
