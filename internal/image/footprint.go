package image

import "github.com/vk/starmeasgo/internal/geom"

// Peak is a candidate maximum inside a footprint, at sub-pixel precision.
type Peak struct {
	Fx    float64
	Fy    float64
	Value float64
}

// Span is a run of pixels on one row, [X0, X1] inclusive.
type Span struct {
	Y  int
	X0 int
	X1 int
}

// Footprint is the set of pixels attributed to one detected source plus its
// candidate peak positions.
type Footprint struct {
	Spans []Span
	Peaks []Peak
}

// NewFootprintFromBox builds a footprint covering every pixel of a box.
func NewFootprintFromBox(box geom.Box2I) *Footprint {
	fp := &Footprint{}
	for y := box.Min.Y; y <= box.Max.Y; y++ {
		fp.Spans = append(fp.Spans, Span{Y: y, X0: box.Min.X, X1: box.Max.X})
	}
	return fp
}

// AddPeak appends a peak candidate.
func (f *Footprint) AddPeak(fx, fy, value float64) {
	f.Peaks = append(f.Peaks, Peak{Fx: fx, Fy: fy, Value: value})
}

// BBox returns the bounding box of the footprint's spans.
func (f *Footprint) BBox() geom.Box2I {
	var box geom.Box2I
	first := true
	for _, s := range f.Spans {
		sb := geom.Box2I{Min: geom.Point2I{X: s.X0, Y: s.Y}, Max: geom.Point2I{X: s.X1, Y: s.Y}}
		if first {
			box = sb
			first = false
		} else {
			box = box.Include(sb)
		}
	}
	return box
}

// HeavyFootprint is a footprint that carries its own copy of the pixel
// values attributed to the source by deblending. Pixels are stored in span
// order.
type HeavyFootprint struct {
	Footprint
	Pixels []float64
}

// MakeHeavy copies the footprint's pixels out of an image, producing the
// deblended per-object pixel data.
func MakeHeavy(fp *Footprint, img *Image) *HeavyFootprint {
	h := &HeavyFootprint{Footprint: *fp}
	for _, s := range fp.Spans {
		for x := s.X0; x <= s.X1; x++ {
			h.Pixels = append(h.Pixels, img.At(x, s.Y))
		}
	}
	return h
}

// Insert writes the heavy footprint's pixels into an image.
func (h *HeavyFootprint) Insert(img *Image) {
	i := 0
	for _, s := range h.Spans {
		for x := s.X0; x <= s.X1; x++ {
			img.Set(x, s.Y, h.Pixels[i])
			i++
		}
	}
}
