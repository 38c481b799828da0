package geom

import "math"

// Quadrupole holds second moments of an elliptical source profile, in
// pixels squared.
type Quadrupole struct {
	Ixx float64
	Iyy float64
	Ixy float64
}

// Transform maps the moments through a local linear approximation of a
// coordinate transform: M' = L M L^T. This is exact for a truly linear map
// and a local approximation otherwise.
func (q Quadrupole) Transform(l LinearTransform) Quadrupole {
	// L M
	a := l.XX*q.Ixx + l.XY*q.Ixy
	b := l.XX*q.Ixy + l.XY*q.Iyy
	c := l.YX*q.Ixx + l.YY*q.Ixy
	d := l.YX*q.Ixy + l.YY*q.Iyy
	// (L M) L^T
	return Quadrupole{
		Ixx: a*l.XX + b*l.XY,
		Ixy: a*l.YX + b*l.YY,
		Iyy: c*l.YX + d*l.YY,
	}
}

// Axes describes an ellipse by semi-major axis A, semi-minor axis B, and
// position angle Theta (radians, from +x toward +y).
type Axes struct {
	A     float64
	B     float64
	Theta float64
}

// Area returns the ellipse area.
func (a Axes) Area() float64 { return math.Pi * a.A * a.B }

// Quadrupole converts the axes description to second moments.
func (a Axes) Quadrupole() Quadrupole {
	c, s := math.Cos(a.Theta), math.Sin(a.Theta)
	a2, b2 := a.A*a.A, a.B*a.B
	return Quadrupole{
		Ixx: a2*c*c + b2*s*s,
		Iyy: a2*s*s + b2*c*c,
		Ixy: (a2 - b2) * c * s,
	}
}

// Ellipse is an ellipse core placed at a center position.
type Ellipse struct {
	Core   Axes
	Center Point2D
}

// Contains reports whether the point lies inside (or on) the ellipse.
func (e Ellipse) Contains(p Point2D) bool {
	dx, dy := p.X-e.Center.X, p.Y-e.Center.Y
	c, s := math.Cos(e.Core.Theta), math.Sin(e.Core.Theta)
	u := (dx*c + dy*s) / e.Core.A
	v := (-dx*s + dy*c) / e.Core.B
	return u*u+v*v <= 1.0
}

// Bounds returns the half-extents of the ellipse's axis-aligned bounding
// rectangle.
func (e Ellipse) Bounds() (hx, hy float64) {
	c, s := math.Cos(e.Core.Theta), math.Sin(e.Core.Theta)
	a2, b2 := e.Core.A*e.Core.A, e.Core.B*e.Core.B
	hx = math.Sqrt(a2*c*c + b2*s*s)
	hy = math.Sqrt(a2*s*s + b2*c*c)
	return hx, hy
}

// PixelRegion returns the smallest pixel box whose pixels could intersect
// the ellipse.
func (e Ellipse) PixelRegion() Box2I {
	hx, hy := e.Bounds()
	return BoxForRegion(e.Center.X-hx, e.Center.Y-hy, e.Center.X+hx, e.Center.Y+hy)
}
