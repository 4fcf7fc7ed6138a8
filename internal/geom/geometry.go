package geom

import "math"

// Vec2 is a point or direction on the arena plane.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale returns v*k.
func (v Vec2) Scale(k float64) Vec2 { return Vec2{X: v.X * k, Y: v.Y * k} }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// IsZero reports whether both components are zero.
func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }

// IsFinite reports whether neither component is NaN or infinite.
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Normalize returns the unit vector pointing along v, or the zero vector when v
// has no length or is not finite.
func (v Vec2) Normalize() Vec2 {
	if !v.IsFinite() {
		return Vec2{}
	}
	length := v.Len()
	if length == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / length, Y: v.Y / length}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec2) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Center returns the midpoint of r.
func (r Rect) Center() Vec2 {
	return Vec2{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Overlaps checks for AABB overlap with optional padding.
func (r Rect) Overlaps(o Rect, padding float64) bool {
	return r.X-padding < o.X+o.Width+padding &&
		r.X+r.Width+padding > o.X-padding &&
		r.Y-padding < o.Y+o.Height+padding &&
		r.Y+r.Height+padding > o.Y-padding
}

// ClosestPoint returns the point of r nearest to p.
func (r Rect) ClosestPoint(p Vec2) Vec2 {
	return Vec2{
		X: Clamp(p.X, r.X, r.X+r.Width),
		Y: Clamp(p.Y, r.Y, r.Y+r.Height),
	}
}

// Edges returns the four boundary segments of r in clockwise order starting at
// the top edge.
func (r Rect) Edges() [4][2]Vec2 {
	tl := Vec2{X: r.X, Y: r.Y}
	tr := Vec2{X: r.X + r.Width, Y: r.Y}
	br := Vec2{X: r.X + r.Width, Y: r.Y + r.Height}
	bl := Vec2{X: r.X, Y: r.Y + r.Height}
	return [4][2]Vec2{{tl, tr}, {tr, br}, {br, bl}, {bl, tl}}
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// CircleRectOverlap reports whether a circle intersects the rectangle.
func CircleRectOverlap(center Vec2, radius float64, r Rect) bool {
	closest := r.ClosestPoint(center)
	dx := center.X - closest.X
	dy := center.Y - closest.Y
	return dx*dx+dy*dy < radius*radius
}
