package plugins

import (
	"fmt"

	"github.com/vk/starmeasgo/internal/image"
	"github.com/vk/starmeasgo/internal/metadata"
	"github.com/vk/starmeasgo/internal/plugin"
	"github.com/vk/starmeasgo/internal/schema"
)

// skyCoord projects the slot centroid through the exposure's WCS into the
// record's coord_ra/coord_dec fields. It allocates no fields of its own, so
// its Fail is a no-op and a failure here is visible only in the log.
type skyCoord struct {
	name  string
	slots *schema.Slots
	ra    schema.Key
	dec   schema.Key
}

func skyCoordDescriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		// Runs after every measurement band so the final slot centroid is
		// the one projected.
		Order:           plugin.ClassifyOrder + 1.0,
		NewConfig:       func() any { return &struct{}{} },
		MakeSingleFrame: newSkyCoord,
	}
}

func newSkyCoord(_ any, name string, sch *schema.Schema, slots *schema.Slots, _ *metadata.PropertyList) (plugin.SingleFrame, error) {
	p := &skyCoord{name: name, slots: slots}
	var ok bool
	if p.ra, ok = sch.Find("coord_ra"); !ok {
		return nil, fmt.Errorf("%s: schema has no coord_ra field", name)
	}
	if p.dec, ok = sch.Find("coord_dec"); !ok {
		return nil, fmt.Errorf("%s: schema has no coord_dec field", name)
	}
	return p, nil
}

func (p *skyCoord) Name() string { return p.name }

func (p *skyCoord) Measure(rec *schema.Record, exp *image.Exposure) error {
	if exp.Wcs() == nil {
		return plugin.NewFatalError("%s: exposure has no WCS", p.name)
	}
	if !p.slots.Centroid.IsValid() {
		return plugin.NewFatalError("%s: no centroid slot configured", p.name)
	}
	pos := p.slots.Centroid.Get(rec)
	if pos.IsNaN() {
		return plugin.NewMeasurementError("slot centroid is undefined", plugin.FlagBitUndefined)
	}
	sky := exp.Wcs().PixelToSky(pos)
	rec.SetF64(p.ra, sky.Ra)
	rec.SetF64(p.dec, sky.Dec)
	return nil
}

// Fail is a no-op: this plugin owns no flag fields.
func (p *skyCoord) Fail(_ *schema.Record, _ error) {}
