package export

import (
	"bytes"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/fonts"
	"github.com/matzehuels/schemagraph/pkg/geom"
)

// MaxPixels bounds the raster size so a huge scale cannot exhaust memory.
const MaxPixels = 1 << 26

// PNGSize returns the pixel dimensions RenderPNG produces for d: the padded
// content size multiplied by scale, rounded to whole pixels. It returns an
// INVALID_INPUT error when either side is below one pixel or the area
// exceeds MaxPixels.
func PNGSize(d *diagram.Data, padding, scale float64) (w, h int, err error) {
	content := ContentBounds(d, padding)
	fw := math.Round(content.Size.Width * scale)
	fh := math.Round(content.Size.Height * scale)
	// Checked in floating point so huge sizes never reach an int conversion.
	if !(fw >= 1 && fh >= 1 && fw*fh <= MaxPixels) {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "png size %vx%v out of range", fw, fh)
	}
	return int(fw), int(fh), nil
}

// RenderPNG rasterizes the same drawing as RenderSVG at the configured
// scale. Key columns are marked with ASCII PK and FK tags since the bundled
// monospace font has no emoji.
func RenderPNG(d *diagram.Data, opts ...Option) ([]byte, error) {
	o := newOptions(opts...)
	if o.scale <= 0 || math.IsNaN(o.scale) || math.IsInf(o.scale, 0) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "png scale must be positive, got %v", o.scale)
	}

	w, h, err := PNGSize(d, o.padding, o.scale)
	if err != nil {
		return nil, err
	}

	mono, err := fonts.Mono()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "load font")
	}
	bold, err := fonts.MonoBold()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "load font")
	}

	r := &rasterizer{
		dc:     gg.NewContext(w, h),
		origin: ContentBounds(d, o.padding).Min,
		scale:  o.scale,
		faces:  fonts.NewFaces(mono, o.scale),
		bold:   fonts.NewFaces(bold, o.scale),
	}
	r.draw(d, o)

	var buf bytes.Buffer
	if err := r.dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "encode png")
	}
	return buf.Bytes(), nil
}

type rasterizer struct {
	dc     *gg.Context
	origin geom.Point
	scale  float64
	faces  *fonts.Faces
	bold   *fonts.Faces
}

// px maps a world point to pixel coordinates.
func (r *rasterizer) px(p geom.Point) (float64, float64) {
	return (p.X - r.origin.X) * r.scale, (p.Y - r.origin.Y) * r.scale
}

func (r *rasterizer) draw(d *diagram.Data, o options) {
	dc := r.dc
	if o.background {
		dc.SetColor(color.White)
		dc.Clear()
	}
	if o.grid {
		r.drawGrid(d.Options.GridSize)
	}
	for _, e := range d.Edges {
		r.drawEdge(d, e, o)
	}
	for _, n := range d.Nodes {
		r.drawNode(n, d.Options)
	}
}

func (r *rasterizer) drawGrid(size float64) {
	if size <= 0 {
		return
	}
	dc := r.dc
	dc.SetHexColor(gridColor)
	dc.SetLineWidth(0.5 * r.scale)
	step := size * r.scale
	ox := math.Mod(-r.origin.X*r.scale, step)
	oy := math.Mod(-r.origin.Y*r.scale, step)
	for x := ox; x < float64(dc.Width()); x += step {
		dc.DrawLine(x, 0, x, float64(dc.Height()))
	}
	for y := oy; y < float64(dc.Height()); y += step {
		dc.DrawLine(0, y, float64(dc.Width()), y)
	}
	dc.Stroke()
}

func (r *rasterizer) drawEdge(d *diagram.Data, e *diagram.RelationshipEdge, o options) {
	start, end, ok := d.Anchors(e)
	if !ok {
		return
	}
	dc := r.dc
	stroke, width := edgeColor, 1.5
	if e.Selected {
		stroke, width = selectStroke, 2.5
	}
	mx := (start.X + end.X) / 2

	x1, y1 := r.px(start)
	cx1, cy1 := r.px(geom.Point{X: mx, Y: start.Y})
	cx2, cy2 := r.px(geom.Point{X: mx, Y: end.Y})
	x2, y2 := r.px(end)

	dc.SetHexColor(stroke)
	dc.SetLineWidth(width * r.scale)
	dc.MoveTo(x1, y1)
	dc.CubicTo(cx1, cy1, cx2, cy2, x2, y2)
	dc.Stroke()

	// Arrowhead along the final tangent, which is horizontal.
	dir := 1.0
	if end.X < mx {
		dir = -1
	}
	length, half := 10*r.scale, 4*r.scale
	dc.MoveTo(x2, y2)
	dc.LineTo(x2-dir*length, y2-half)
	dc.LineTo(x2-dir*length, y2+half)
	dc.ClosePath()
	dc.Fill()

	if o.edgeLabels && e.Label != "" {
		lx, ly := r.px(geom.Point{X: mx, Y: (start.Y + end.Y) / 2})
		dc.SetFontFace(r.faces.Face(indexSize))
		dc.SetHexColor(mutedColor)
		dc.DrawStringAnchored(e.Label, lx, ly-4*r.scale, 0.5, 0)
	}
}

func (r *rasterizer) drawNode(n *diagram.TableNode, opts diagram.Options) {
	dc := r.dc
	rect := n.Rect()
	x, y := r.px(rect.Min)
	w, h := rect.Size.Width*r.scale, rect.Size.Height*r.scale
	radius := 4 * r.scale

	dc.DrawRoundedRectangle(x, y, w, h, radius)
	dc.SetHexColor(bodyFill)
	dc.FillPreserve()
	stroke, width := bodyStroke, 1.0
	if n.Selected {
		stroke, width = selectStroke, 2.5
	}
	dc.SetHexColor(stroke)
	dc.SetLineWidth(width * r.scale)
	dc.Stroke()

	dc.DrawRoundedRectangle(x, y, w, diagram.HeaderHeight*r.scale, radius)
	dc.SetColor(n.Color.NRGBA())
	dc.Fill()

	dc.SetFontFace(r.bold.Face(titleSize))
	dc.SetColor(color.White)
	dc.DrawStringAnchored(title(n), x+diagram.NodePadding*r.scale, y+diagram.HeaderHeight/2*r.scale, 0, 0.35)

	for _, row := range nodeRows(n, opts, rasterGlyphs) {
		size, fill := fontSize, textColor
		if row.kind == indexRow {
			size, fill = indexSize, mutedColor
		}
		_, cy := r.px(geom.Point{Y: row.center()})
		dc.SetFontFace(r.faces.Face(size))
		dc.SetHexColor(fill)
		dc.DrawStringAnchored(row.left, x+diagram.NodePadding*r.scale, cy, 0, 0.35)
		if row.right != "" {
			dc.SetHexColor(mutedColor)
			dc.DrawStringAnchored(row.right, x+w-diagram.NodePadding*r.scale, cy, 1, 0.35)
		}
	}
}
