package geom

import "fmt"

// LinearTransform is a 2x2 linear map on pixel coordinates.
type LinearTransform struct {
	XX, XY float64
	YX, YY float64
}

// IdentityLinear returns the identity linear transform.
func IdentityLinear() LinearTransform {
	return LinearTransform{XX: 1, YY: 1}
}

// Apply maps the vector (x, y) through the transform.
func (l LinearTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: l.XX*p.X + l.XY*p.Y,
		Y: l.YX*p.X + l.YY*p.Y,
	}
}

// Mul composes two transforms; (l.Mul(m)).Apply(p) == l.Apply(m.Apply(p)).
func (l LinearTransform) Mul(m LinearTransform) LinearTransform {
	return LinearTransform{
		XX: l.XX*m.XX + l.XY*m.YX,
		XY: l.XX*m.XY + l.XY*m.YY,
		YX: l.YX*m.XX + l.YY*m.YX,
		YY: l.YX*m.XY + l.YY*m.YY,
	}
}

// Det returns the determinant.
func (l LinearTransform) Det() float64 {
	return l.XX*l.YY - l.XY*l.YX
}

// Inverse returns the inverse transform, or an error for a singular map.
func (l LinearTransform) Inverse() (LinearTransform, error) {
	det := l.Det()
	if det == 0 {
		return LinearTransform{}, fmt.Errorf("linear transform is singular: %+v", l)
	}
	return LinearTransform{
		XX: l.YY / det,
		XY: -l.XY / det,
		YX: -l.YX / det,
		YY: l.XX / det,
	}, nil
}

// AffineTransform is a linear map followed by a translation.
type AffineTransform struct {
	Linear      LinearTransform
	Translation Point2D
}

// Apply maps a point through the affine transform.
func (a AffineTransform) Apply(p Point2D) Point2D {
	q := a.Linear.Apply(p)
	return Point2D{X: q.X + a.Translation.X, Y: q.Y + a.Translation.Y}
}
