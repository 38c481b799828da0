package geom

import "math"

// Wcs maps between a pixel frame and sky coordinates. Implementations must
// support value-equality comparison so callers can short-circuit transforms
// between identical frames.
type Wcs interface {
	// PixelToSky projects a pixel position to the sky.
	PixelToSky(p Point2D) SpherePoint
	// SkyToPixel back-projects a sky position into the pixel frame.
	SkyToPixel(s SpherePoint) Point2D
	// Eq reports value equality with another Wcs.
	Eq(other Wcs) bool
}

// TanWcs is a gnomonic (tangent-plane) world coordinate system: pixel
// offsets from CrPix are mapped through the Cd matrix onto a tangent plane
// touching the sphere at CrVal.
type TanWcs struct {
	CrPix Point2D
	CrVal SpherePoint
	// Cd maps pixel offsets to intermediate tangent-plane coordinates,
	// in radians per pixel.
	Cd LinearTransform
}

// NewTanWcs constructs a TAN WCS with a diagonal Cd matrix of the given
// pixel scale (radians per pixel).
func NewTanWcs(crPix Point2D, crVal SpherePoint, scale float64) *TanWcs {
	return &TanWcs{
		CrPix: crPix,
		CrVal: crVal,
		Cd:    LinearTransform{XX: scale, YY: scale},
	}
}

// PixelToSky implements Wcs using the standard gnomonic deprojection.
func (w *TanWcs) PixelToSky(p Point2D) SpherePoint {
	t := w.Cd.Apply(Point2D{X: p.X - w.CrPix.X, Y: p.Y - w.CrPix.Y})
	xi, eta := t.X, t.Y
	sinDec0, cosDec0 := math.Sincos(w.CrVal.Dec)
	den := cosDec0 - eta*sinDec0
	ra := w.CrVal.Ra + math.Atan2(xi, den)
	dec := math.Atan2(sinDec0+eta*cosDec0, math.Hypot(xi, den))
	return SpherePoint{Ra: ra, Dec: dec}
}

// SkyToPixel implements Wcs using the standard gnomonic projection.
func (w *TanWcs) SkyToPixel(s SpherePoint) Point2D {
	sinDec0, cosDec0 := math.Sincos(w.CrVal.Dec)
	sinDec, cosDec := math.Sincos(s.Dec)
	dRa := s.Ra - w.CrVal.Ra
	cosC := sinDec0*sinDec + cosDec0*cosDec*math.Cos(dRa)
	xi := cosDec * math.Sin(dRa) / cosC
	eta := (sinDec*cosDec0 - cosDec*sinDec0*math.Cos(dRa)) / cosC
	inv, err := w.Cd.Inverse()
	if err != nil {
		// A singular Cd matrix is a construction error, not a per-source
		// condition.
		panic(err)
	}
	t := inv.Apply(Point2D{X: xi, Y: eta})
	return Point2D{X: t.X + w.CrPix.X, Y: t.Y + w.CrPix.Y}
}

// Eq implements Wcs by value comparison of all parameters.
func (w *TanWcs) Eq(other Wcs) bool {
	o, ok := other.(*TanWcs)
	if !ok {
		return false
	}
	return *w == *o
}

// LinearizePixelToPixel computes a local linear approximation of the
// composite map targetWcs.SkyToPixel(refWcs.PixelToSky(.)) at the given
// reference-frame position, by central finite differences. The result is
// valid only near that position.
func LinearizePixelToPixel(refWcs, targetWcs Wcs, at Point2D) LinearTransform {
	const h = 0.5 // pixels; small enough for smooth projections
	f := func(p Point2D) Point2D {
		return targetWcs.SkyToPixel(refWcs.PixelToSky(p))
	}
	px := f(Point2D{X: at.X + h, Y: at.Y})
	mx := f(Point2D{X: at.X - h, Y: at.Y})
	py := f(Point2D{X: at.X, Y: at.Y + h})
	my := f(Point2D{X: at.X, Y: at.Y - h})
	return LinearTransform{
		XX: (px.X - mx.X) / (2 * h),
		XY: (py.X - my.X) / (2 * h),
		YX: (px.Y - mx.Y) / (2 * h),
		YY: (py.Y - my.Y) / (2 * h),
	}
}
