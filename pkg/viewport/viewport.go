// Package viewport implements the pan/zoom transform between world space and
// screen space.
//
// A [Viewport] is a uniform scale (Zoom) followed by a translation (X, Y) in
// screen pixels:
//
//	screen = world*Zoom + (X, Y)
//
// Zoom is always kept within [MinZoom, MaxZoom]. All operations are plain
// synchronous mutations of the receiver.
package viewport

import (
	"math"

	"github.com/matzehuels/schemagraph/pkg/geom"
)

// Zoom limits and fit parameters.
const (
	MinZoom = 0.1
	MaxZoom = 3.0

	// FitPadding is added around the content bounds by FitToView.
	FitPadding = 50.0

	// FitMaxZoom caps the zoom chosen by FitToView so tiny diagrams are not
	// blown up.
	FitMaxZoom = 1.5
)

// Viewport is the current pan/zoom transform.
type Viewport struct {
	X    float64 `json:"x" bson:"x"`
	Y    float64 `json:"y" bson:"y"`
	Zoom float64 `json:"zoom" bson:"zoom"`
}

// New returns the identity viewport.
func New() Viewport {
	return Viewport{Zoom: 1}
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// zoom returns the effective zoom, treating an unset zoom as 1.
func (v *Viewport) zoom() float64 {
	if v.Zoom == 0 {
		return 1
	}
	return v.Zoom
}

// Normalize clamps the zoom of a viewport loaded from outside the engine.
func (v *Viewport) Normalize() {
	v.Zoom = ClampZoom(v.zoom())
}

// WorldToScreen maps a world point to screen pixels.
func (v *Viewport) WorldToScreen(p geom.Point) geom.Point {
	z := v.zoom()
	return geom.Point{X: p.X*z + v.X, Y: p.Y*z + v.Y}
}

// ScreenToWorld maps screen pixels to a world point. It is the exact inverse
// of WorldToScreen.
func (v *Viewport) ScreenToWorld(p geom.Point) geom.Point {
	z := v.zoom()
	return geom.Point{X: (p.X - v.X) / z, Y: (p.Y - v.Y) / z}
}

// ZoomAt multiplies the zoom by factor, keeping the world point under the
// screen point center fixed. It reports whether the viewport changed; a
// non-finite factor changes nothing.
func (v *Viewport) ZoomAt(factor float64, center geom.Point) bool {
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return false
	}
	old := v.zoom()
	next := ClampZoom(old * factor)
	if next == old {
		return false
	}
	ratio := next / old
	v.X = center.X - (center.X-v.X)*ratio
	v.Y = center.Y - (center.Y-v.Y)*ratio
	v.Zoom = next
	return true
}

// SetZoom sets an absolute zoom around the screen point center.
func (v *Viewport) SetZoom(zoom float64, center geom.Point) bool {
	return v.ZoomAt(zoom/v.zoom(), center)
}

// Pan translates the viewport by a screen-space delta, independent of zoom.
func (v *Viewport) Pan(dx, dy float64) bool {
	if dx == 0 && dy == 0 {
		return false
	}
	v.X += dx
	v.Y += dy
	return true
}

// FitToView zooms and centers so that bounds, expanded by FitPadding, fits a
// canvasW x canvasH canvas. Empty bounds or a non-positive canvas leave the
// viewport untouched and report false.
func (v *Viewport) FitToView(bounds geom.Rect, canvasW, canvasH float64) bool {
	if bounds.Empty() || canvasW <= 0 || canvasH <= 0 {
		return false
	}
	content := bounds.Expand(FitPadding)
	zoom := math.Min(canvasW/content.Size.Width, canvasH/content.Size.Height)
	zoom = ClampZoom(math.Min(zoom, FitMaxZoom))

	center := content.Center()
	v.Zoom = zoom
	v.X = canvasW/2 - center.X*zoom
	v.Y = canvasH/2 - center.Y*zoom
	return true
}

// Reset restores the identity viewport.
func (v *Viewport) Reset() bool {
	if *v == New() {
		return false
	}
	*v = New()
	return true
}

// Visible returns the world-space rectangle shown on a canvasW x canvasH canvas.
func (v *Viewport) Visible(canvasW, canvasH float64) geom.Rect {
	min := v.ScreenToWorld(geom.Point{})
	z := v.zoom()
	return geom.Rect{Min: min, Size: geom.Size{Width: canvasW / z, Height: canvasH / z}}
}
