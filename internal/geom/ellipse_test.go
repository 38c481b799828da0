package geom_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/starmeasgo/internal/geom"
)

func TestQuadrupole_Transform_Rotation(t *testing.T) {
	// A quarter-turn swaps the axes of an axis-aligned ellipse.
	rot := geom.LinearTransform{XY: -1, YX: 1}
	q := geom.Quadrupole{Ixx: 4, Iyy: 1, Ixy: 0}

	r := q.Transform(rot)

	assert.InDelta(t, 1.0, r.Ixx, 1e-12)
	assert.InDelta(t, 4.0, r.Iyy, 1e-12)
	assert.InDelta(t, 0.0, r.Ixy, 1e-12)
}

func TestQuadrupole_Transform_Scale(t *testing.T) {
	scale := geom.LinearTransform{XX: 2, YY: 2}
	q := geom.Quadrupole{Ixx: 3, Iyy: 1, Ixy: 0.5}

	r := q.Transform(scale)

	assert.InDelta(t, 12.0, r.Ixx, 1e-12)
	assert.InDelta(t, 4.0, r.Iyy, 1e-12)
	assert.InDelta(t, 2.0, r.Ixy, 1e-12)
}

func TestAxes_Quadrupole_RoundValues(t *testing.T) {
	a := geom.Axes{A: 2, B: 1, Theta: 0}
	q := a.Quadrupole()

	assert.InDelta(t, 4.0, q.Ixx, 1e-12)
	assert.InDelta(t, 1.0, q.Iyy, 1e-12)
	assert.InDelta(t, 0.0, q.Ixy, 1e-12)
	assert.InDelta(t, 2*math.Pi, a.Area(), 1e-12)
}

func TestEllipse_Contains(t *testing.T) {
	e := geom.Ellipse{
		Core:   geom.Axes{A: 3, B: 1, Theta: 0},
		Center: geom.Point2D{X: 10, Y: 10},
	}

	assert.True(t, e.Contains(geom.Point2D{X: 12.9, Y: 10}))
	assert.False(t, e.Contains(geom.Point2D{X: 10, Y: 11.1}))
}

func TestEllipse_PixelRegion(t *testing.T) {
	e := geom.Ellipse{
		Core:   geom.Axes{A: 2.2, B: 2.2, Theta: 0},
		Center: geom.Point2D{X: 10, Y: 10},
	}

	region := e.PixelRegion()

	assert.Equal(t, geom.Point2I{X: 7, Y: 7}, region.Min)
	assert.Equal(t, geom.Point2I{X: 13, Y: 13}, region.Max)
}
