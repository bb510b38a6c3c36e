// Package geom provides the world-space primitives shared by the diagram
// engine: points, sizes, axis-aligned rectangles and segment distance.
//
// All coordinates are float64 in world units. The Y axis points down, matching
// SVG and screen conventions, so "top" means smaller Y.
package geom

import "math"

// Point is a world-space coordinate.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p multiplied by s on both axes.
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Len returns the Euclidean length of p.
func (p Point) Len() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return p.Sub(q).Len() }

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	Min  Point `json:"min"`
	Size Size  `json:"size"`
}

// RectOf builds the rectangle covering [pos, pos+size].
func RectOf(pos Point, size Size) Rect {
	return Rect{Min: pos, Size: size}
}

// Max returns the bottom-right corner.
func (r Rect) Max() Point {
	return Point{r.Min.X + r.Size.Width, r.Min.Y + r.Size.Height}
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Size.Width <= 0 || r.Size.Height <= 0
}

// Contains reports whether p lies inside r, boundary included.
func (r Rect) Contains(p Point) bool {
	max := r.Max()
	return p.X >= r.Min.X && p.X <= max.X && p.Y >= r.Min.Y && p.Y <= max.Y
}

// Intersects reports whether r and o overlap, touching edges included.
func (r Rect) Intersects(o Rect) bool {
	rm, om := r.Max(), o.Max()
	return r.Min.X <= om.X && o.Min.X <= rm.X && r.Min.Y <= om.Y && o.Min.Y <= rm.Y
}

// Union returns the smallest rectangle covering r and o.
func (r Rect) Union(o Rect) Rect {
	rm, om := r.Max(), o.Max()
	min := Point{math.Min(r.Min.X, o.Min.X), math.Min(r.Min.Y, o.Min.Y)}
	max := Point{math.Max(rm.X, om.X), math.Max(rm.Y, om.Y)}
	return Rect{Min: min, Size: Size{max.X - min.X, max.Y - min.Y}}
}

// Expand grows r by pad on every side.
func (r Rect) Expand(pad float64) Rect {
	return Rect{
		Min:  Point{r.Min.X - pad, r.Min.Y - pad},
		Size: Size{r.Size.Width + 2*pad, r.Size.Height + 2*pad},
	}
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{r.Min.X + r.Size.Width/2, r.Min.Y + r.Size.Height/2}
}

// RightCenter returns the midpoint of the right edge.
func (r Rect) RightCenter() Point {
	return Point{r.Min.X + r.Size.Width, r.Min.Y + r.Size.Height/2}
}

// LeftCenter returns the midpoint of the left edge.
func (r Rect) LeftCenter() Point {
	return Point{r.Min.X, r.Min.Y + r.Size.Height/2}
}

// ClosestOnSegment projects p onto the segment a-b and clamps the projection
// to the segment. A degenerate segment yields a.
func ClosestOnSegment(p, a, b Point) Point {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return a
	}
	t := p.Sub(a).Dot(ab) / lenSq
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.Scale(t))
}

// DistanceToSegment returns the shortest distance from p to the segment a-b.
func DistanceToSegment(p, a, b Point) float64 {
	return p.Dist(ClosestOnSegment(p, a, b))
}

// Bounds returns the union of rects, or the zero Rect when rects is empty.
func Bounds(rects ...Rect) Rect {
	var out Rect
	for i, r := range rects {
		if i == 0 {
			out = r
			continue
		}
		out = out.Union(r)
	}
	return out
}

// Snap rounds v to the nearest multiple of grid. A non-positive grid leaves
// v unchanged.
func Snap(v, grid float64) float64 {
	if grid <= 0 {
		return v
	}
	return math.Round(v/grid) * grid
}

// SnapPoint snaps both axes of p to grid.
func SnapPoint(p Point, grid float64) Point {
	return Point{Snap(p.X, grid), Snap(p.Y, grid)}
}
