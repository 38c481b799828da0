package geom

import "math"

// Point2D is a position in a pixel coordinate frame.
type Point2D struct {
	X float64
	Y float64
}

// Point2I is an integer pixel index.
type Point2I struct {
	X int
	Y int
}

// Extent2I is an integer width/height pair.
type Extent2I struct {
	X int
	Y int
}

// SpherePoint is a position on the celestial sphere, in radians.
type SpherePoint struct {
	Ra  float64
	Dec float64
}

// IsNaN reports whether either coordinate is NaN.
func (p Point2D) IsNaN() bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y)
}
