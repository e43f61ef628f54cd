// Package geometry provides the coordinate types and frame conversions used
// by the block selection subsystem. Three frames are involved: document space
// (PDF points, resolution independent), raster space (pixels of a page
// rendered at a specific DPI), and view space (screen pixels under the
// current zoom and pan).
package geometry

import "math"

// Point is a location in any of the three coordinate frames.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle. A normalized Rect has non-negative
// width and height.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewRect returns the rectangle with the given origin and size.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// RectFromPoints returns the normalized rectangle spanned by two corner
// points, in any order.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

func (r Rect) Left() float64   { return r.X }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Area returns the rectangle's area, or zero for a degenerate rectangle.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// IsEmpty reports whether the rectangle has no positive area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p lies inside the rectangle (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left() && p.X <= r.Right() &&
		p.Y >= r.Top() && p.Y <= r.Bottom()
}

// Clamp returns the part of r that lies within bounds. If r lies entirely
// outside bounds the result is a degenerate rectangle with zero area.
func (r Rect) Clamp(bounds Rect) Rect {
	left := math.Max(r.Left(), bounds.Left())
	top := math.Max(r.Top(), bounds.Top())
	right := math.Min(r.Right(), bounds.Right())
	bottom := math.Min(r.Bottom(), bounds.Bottom())
	if right < left {
		right = left
	}
	if bottom < top {
		bottom = top
	}
	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Intersects reports whether r and other overlap.
func (r Rect) Intersects(other Rect) bool {
	return !(r.Right() < other.Left() ||
		r.Left() > other.Right() ||
		r.Bottom() < other.Top() ||
		r.Top() > other.Bottom())
}
