package image

import (
	"fmt"

	"github.com/vk/starmeasgo/internal/geom"
)

// BoundedField is a scalar field defined over a pixel bounding box, such as
// a position-dependent aperture correction.
type BoundedField interface {
	// Evaluate returns the field value at a pixel position. Positions off
	// the field's domain are an error.
	Evaluate(p geom.Point2D) (float64, error)
	// Box returns the field's domain.
	Box() geom.Box2I
}

// ChebyshevBoundedField is a BoundedField backed by a 2D Chebyshev
// polynomial expansion over its bounding box. Coeffs[j][i] multiplies
// T_i(sx) * T_j(sy), with sx and sy the box-normalized coordinates.
type ChebyshevBoundedField struct {
	box    geom.Box2I
	coeffs [][]float64
}

// NewChebyshevBoundedField constructs a field from its coefficient matrix.
// A 1x1 matrix yields a constant field.
func NewChebyshevBoundedField(box geom.Box2I, coeffs [][]float64) *ChebyshevBoundedField {
	return &ChebyshevBoundedField{box: box, coeffs: coeffs}
}

// ConstantBoundedField is shorthand for a 1x1 Chebyshev field.
func ConstantBoundedField(box geom.Box2I, value float64) *ChebyshevBoundedField {
	return NewChebyshevBoundedField(box, [][]float64{{value}})
}

// Box implements BoundedField.
func (f *ChebyshevBoundedField) Box() geom.Box2I { return f.box }

// Evaluate implements BoundedField.
func (f *ChebyshevBoundedField) Evaluate(p geom.Point2D) (float64, error) {
	if !f.box.ContainsPoint(p) {
		return 0, fmt.Errorf("position (%g, %g) outside field domain %+v", p.X, p.Y, f.box)
	}
	sx := scaleToUnit(p.X, float64(f.box.Min.X), float64(f.box.Max.X))
	sy := scaleToUnit(p.Y, float64(f.box.Min.Y), float64(f.box.Max.Y))

	var sum float64
	for j, row := range f.coeffs {
		tj := chebyshev(j, sy)
		for i, c := range row {
			if c == 0 {
				continue
			}
			sum += c * chebyshev(i, sx) * tj
		}
	}
	return sum, nil
}

func scaleToUnit(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return 2*(v-lo)/(hi-lo) - 1
}

// chebyshev evaluates the Chebyshev polynomial of the first kind T_n(x) by
// the forward recurrence.
func chebyshev(n int, x float64) float64 {
	switch n {
	case 0:
		return 1
	case 1:
		return x
	}
	tm, t := 1.0, x
	for i := 2; i <= n; i++ {
		tm, t = t, 2*x*t-tm
	}
	return t
}
