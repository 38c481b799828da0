package schema

import "github.com/vk/starmeasgo/internal/geom"

// Point2DKey bundles the x/y field pair a centroid-like quantity is stored
// in.
type Point2DKey struct {
	X Key
	Y Key
}

// AddPoint2DFields allocates <prefix>_x and <prefix>_y.
func AddPoint2DFields(s *Schema, prefix, doc string) (Point2DKey, error) {
	x, err := s.AddField(prefix+"_x", F64, doc+" (x)")
	if err != nil {
		return Point2DKey{}, err
	}
	y, err := s.AddField(prefix+"_y", F64, doc+" (y)")
	if err != nil {
		return Point2DKey{}, err
	}
	return Point2DKey{X: x, Y: y}, nil
}

// FindPoint2D looks up an existing x/y pair under a prefix.
func FindPoint2D(s *Schema, prefix string) (Point2DKey, bool) {
	x, okX := s.Find(prefix + "_x")
	y, okY := s.Find(prefix + "_y")
	if !okX || !okY {
		return Point2DKey{}, false
	}
	return Point2DKey{X: x, Y: y}, true
}

// IsValid reports whether both component keys are valid.
func (k Point2DKey) IsValid() bool { return k.X.IsValid() && k.Y.IsValid() }

// Get reads the point from a record.
func (k Point2DKey) Get(r *Record) geom.Point2D {
	return geom.Point2D{X: r.GetF64(k.X), Y: r.GetF64(k.Y)}
}

// Set writes the point into a record.
func (k Point2DKey) Set(r *Record, p geom.Point2D) {
	r.SetF64(k.X, p.X)
	r.SetF64(k.Y, p.Y)
}

// QuadrupoleKey bundles the xx/yy/xy second-moment fields a shape is stored
// in.
type QuadrupoleKey struct {
	XX Key
	YY Key
	XY Key
}

// AddQuadrupoleFields allocates <prefix>_xx, <prefix>_yy and <prefix>_xy.
func AddQuadrupoleFields(s *Schema, prefix, doc string) (QuadrupoleKey, error) {
	xx, err := s.AddField(prefix+"_xx", F64, doc+" (x^2 moment)")
	if err != nil {
		return QuadrupoleKey{}, err
	}
	yy, err := s.AddField(prefix+"_yy", F64, doc+" (y^2 moment)")
	if err != nil {
		return QuadrupoleKey{}, err
	}
	xy, err := s.AddField(prefix+"_xy", F64, doc+" (xy moment)")
	if err != nil {
		return QuadrupoleKey{}, err
	}
	return QuadrupoleKey{XX: xx, YY: yy, XY: xy}, nil
}

// FindQuadrupole looks up an existing xx/yy/xy triple under a prefix.
func FindQuadrupole(s *Schema, prefix string) (QuadrupoleKey, bool) {
	xx, okXX := s.Find(prefix + "_xx")
	yy, okYY := s.Find(prefix + "_yy")
	xy, okXY := s.Find(prefix + "_xy")
	if !okXX || !okYY || !okXY {
		return QuadrupoleKey{}, false
	}
	return QuadrupoleKey{XX: xx, YY: yy, XY: xy}, true
}

// IsValid reports whether all component keys are valid.
func (k QuadrupoleKey) IsValid() bool {
	return k.XX.IsValid() && k.YY.IsValid() && k.XY.IsValid()
}

// Get reads the quadrupole from a record.
func (k QuadrupoleKey) Get(r *Record) geom.Quadrupole {
	return geom.Quadrupole{Ixx: r.GetF64(k.XX), Iyy: r.GetF64(k.YY), Ixy: r.GetF64(k.XY)}
}

// Set writes the quadrupole into a record.
func (k QuadrupoleKey) Set(r *Record, q geom.Quadrupole) {
	r.SetF64(k.XX, q.Ixx)
	r.SetF64(k.YY, q.Iyy)
	r.SetF64(k.XY, q.Ixy)
}

// FluxKey bundles a flux field with its uncertainty. Err may be invalid when
// a plugin reports no uncertainty.
type FluxKey struct {
	Flux Key
	Err  Key
}

// AddFluxFields allocates <prefix>_instFlux and <prefix>_instFluxErr.
func AddFluxFields(s *Schema, prefix, doc string) (FluxKey, error) {
	f, err := s.AddField(prefix+"_instFlux", F64, doc)
	if err != nil {
		return FluxKey{}, err
	}
	e, err := s.AddField(prefix+"_instFluxErr", F64, "1-sigma uncertainty on "+prefix+"_instFlux")
	if err != nil {
		return FluxKey{}, err
	}
	return FluxKey{Flux: f, Err: e}, nil
}

// IsValid reports whether the flux key is usable.
func (k FluxKey) IsValid() bool { return k.Flux.IsValid() }
