package geom

import "math"

// Box2I is an integer pixel bounding box. Min and Max are both inclusive,
// following the usual image-catalog convention.
type Box2I struct {
	Min Point2I
	Max Point2I
}

// NewBox2I constructs a box from a minimum corner and an extent.
func NewBox2I(min Point2I, ext Extent2I) Box2I {
	return Box2I{
		Min: min,
		Max: Point2I{X: min.X + ext.X - 1, Y: min.Y + ext.Y - 1},
	}
}

// Width returns the number of columns covered by the box.
func (b Box2I) Width() int { return b.Max.X - b.Min.X + 1 }

// Height returns the number of rows covered by the box.
func (b Box2I) Height() int { return b.Max.Y - b.Min.Y + 1 }

// Area returns the number of pixels covered by the box.
func (b Box2I) Area() int { return b.Width() * b.Height() }

// Contains reports whether the pixel index lies inside the box.
func (b Box2I) Contains(p Point2I) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// ContainsBox reports whether o lies entirely inside b.
func (b Box2I) ContainsBox(o Box2I) bool {
	return o.Min.X >= b.Min.X && o.Max.X <= b.Max.X &&
		o.Min.Y >= b.Min.Y && o.Max.Y <= b.Max.Y
}

// ContainsPoint reports whether a continuous position falls inside the
// region covered by the box's pixels. Pixel (i, j) covers
// [i-0.5, i+0.5) x [j-0.5, j+0.5).
func (b Box2I) ContainsPoint(p Point2D) bool {
	return p.X >= float64(b.Min.X)-0.5 && p.X < float64(b.Max.X)+0.5 &&
		p.Y >= float64(b.Min.Y)-0.5 && p.Y < float64(b.Max.Y)+0.5
}

// Include grows the box to cover o. An empty receiver becomes o.
func (b Box2I) Include(o Box2I) Box2I {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	r := b
	if o.Min.X < r.Min.X {
		r.Min.X = o.Min.X
	}
	if o.Min.Y < r.Min.Y {
		r.Min.Y = o.Min.Y
	}
	if o.Max.X > r.Max.X {
		r.Max.X = o.Max.X
	}
	if o.Max.Y > r.Max.Y {
		r.Max.Y = o.Max.Y
	}
	return r
}

// Empty reports whether the box covers no pixels.
func (b Box2I) Empty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y
}

// BoxForRegion returns the smallest pixel box covering the continuous
// rectangle [minX, maxX] x [minY, maxY].
func BoxForRegion(minX, minY, maxX, maxY float64) Box2I {
	return Box2I{
		Min: Point2I{X: int(math.Floor(minX)), Y: int(math.Floor(minY))},
		Max: Point2I{X: int(math.Ceil(maxX)), Y: int(math.Ceil(maxY))},
	}
}
