package image_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/starmeasgo/internal/geom"
	"github.com/vk/starmeasgo/internal/image"
)

func box(w, h int) geom.Box2I {
	return geom.NewBox2I(geom.Point2I{X: 0, Y: 0}, geom.Extent2I{X: w, Y: h})
}

func TestImage_GlobalCoordinates(t *testing.T) {
	b := geom.NewBox2I(geom.Point2I{X: 10, Y: 20}, geom.Extent2I{X: 5, Y: 5})
	img := image.NewImage(b)

	img.Set(12, 23, 7.5)
	assert.Equal(t, 7.5, img.At(12, 23))
	assert.Equal(t, 7.5, img.Sum())

	require.Panics(t, func() { img.At(9, 20) }, "reads outside the bounds panic")
	require.Panics(t, func() { img.Set(12, 25, 1) })
}

func TestExposure_WithImage(t *testing.T) {
	exp := image.NewExposure(box(10, 10), 2.0)
	exp.SetPsf(image.NewPsf(1.5))

	other := image.NewImageFilled(box(10, 10), 3.0)
	view := exp.WithImage(other)

	assert.Same(t, other, view.Image())
	assert.Same(t, exp.Variance(), view.Variance(), "the variance plane is shared")
	assert.Same(t, exp.Psf(), view.Psf())
	assert.Equal(t, 0.0, exp.Image().At(5, 5), "the original exposure is untouched")
}

func TestHeavyFootprint_RoundTrip(t *testing.T) {
	src := image.NewImage(box(20, 20))
	src.Set(5, 5, 1.0)
	src.Set(6, 5, 2.0)
	src.Set(5, 6, 3.0)

	fp := image.NewFootprintFromBox(geom.Box2I{
		Min: geom.Point2I{X: 4, Y: 4},
		Max: geom.Point2I{X: 7, Y: 7},
	})
	heavy := image.MakeHeavy(fp, src)

	dst := image.NewImage(box(20, 20))
	heavy.Insert(dst)

	assert.Equal(t, 1.0, dst.At(5, 5))
	assert.Equal(t, 2.0, dst.At(6, 5))
	assert.Equal(t, 3.0, dst.At(5, 6))
	assert.Equal(t, 0.0, dst.At(10, 10), "pixels outside the footprint stay blank")
	assert.Equal(t, src.At(5, 5)+src.At(6, 5)+src.At(5, 6), dst.Sum())
}

func TestFootprint_BBox(t *testing.T) {
	fp := &image.Footprint{Spans: []image.Span{
		{Y: 3, X0: 2, X1: 8},
		{Y: 4, X0: 1, X1: 6},
	}}

	b := fp.BBox()
	assert.Equal(t, geom.Point2I{X: 1, Y: 3}, b.Min)
	assert.Equal(t, geom.Point2I{X: 8, Y: 4}, b.Max)
}

func TestPsf(t *testing.T) {
	psf := image.NewPsf(2.0)

	assert.Equal(t, 10, psf.KernelRadius())
	assert.Greater(t, psf.Evaluate(0, 0), psf.Evaluate(1, 0))

	// The kernel integrates to one over its support.
	var sum float64
	r := psf.KernelRadius()
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			sum += psf.Evaluate(float64(x), float64(y))
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestChebyshevBoundedField(t *testing.T) {
	b := box(100, 100)

	constant := image.ConstantBoundedField(b, 2.5)
	v, err := constant.Evaluate(geom.Point2D{X: 50, Y: 50})
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	_, err = constant.Evaluate(geom.Point2D{X: 150, Y: 50})
	require.Error(t, err, "positions off the domain are an error")

	// First-order term in x: value varies linearly from -1 at the left edge
	// to +1 at the right edge.
	linear := image.NewChebyshevBoundedField(b, [][]float64{{0, 1}})
	left, err := linear.Evaluate(geom.Point2D{X: 0, Y: 50})
	require.NoError(t, err)
	right, err := linear.Evaluate(geom.Point2D{X: 99, Y: 50})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, left, 1e-12)
	assert.InDelta(t, 1.0, right, 1e-12)
}
