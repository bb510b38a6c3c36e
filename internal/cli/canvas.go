package cli

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/geom"
	"github.com/matzehuels/schemagraph/pkg/viewport"
)

// Terminal cells map to this many screen pixels, so viewport math stays in
// the same units as the SVG export.
const (
	cellWidth  = 8.0
	cellHeight = 16.0
)

type cellStyle uint8

const (
	cellPlain cellStyle = iota
	cellEdge
	cellEdgeSelected
	cellNode
	cellNodeHovered
	cellNodeSelected
)

var canvasStyles = map[cellStyle]lipgloss.Style{
	cellPlain:        lipgloss.NewStyle(),
	cellEdge:         lipgloss.NewStyle().Foreground(colorDim),
	cellEdgeSelected: lipgloss.NewStyle().Foreground(colorCyan),
	cellNode:         lipgloss.NewStyle().Foreground(colorWhite),
	cellNodeHovered:  lipgloss.NewStyle().Foreground(colorYellow),
	cellNodeSelected: lipgloss.NewStyle().Foreground(colorCyan).Bold(true),
}

type cell struct {
	r     rune
	style cellStyle
}

// canvas is a character grid the diagram is drawn onto.
type canvas struct {
	cols, rows int
	cells      []cell
}

func newCanvas(cols, rows int) *canvas {
	cols, rows = max(cols, 0), max(rows, 0)
	cv := &canvas{cols: cols, rows: rows, cells: make([]cell, cols*rows)}
	for i := range cv.cells {
		cv.cells[i] = cell{r: ' '}
	}
	return cv
}

// pixelSize returns the canvas size in screen pixels.
func (cv *canvas) pixelSize() (float64, float64) {
	return float64(cv.cols) * cellWidth, float64(cv.rows) * cellHeight
}

func (cv *canvas) set(x, y int, r rune, s cellStyle) {
	if x < 0 || y < 0 || x >= cv.cols || y >= cv.rows {
		return
	}
	cv.cells[y*cv.cols+x] = cell{r: r, style: s}
}

// cellAt converts a screen point to cell coordinates.
func cellAt(p geom.Point) (int, int) {
	return int(math.Floor(p.X / cellWidth)), int(math.Floor(p.Y / cellHeight))
}

// draw renders d as seen through v. Edges are drawn first so tables cover
// them.
func (cv *canvas) draw(d *diagram.Data, v viewport.Viewport) {
	if d == nil {
		return
	}
	for _, e := range d.Edges {
		start, end, ok := d.Anchors(e)
		if !ok {
			continue
		}
		s := cellEdge
		if e.Selected {
			s = cellEdgeSelected
		}
		cv.line(v.WorldToScreen(start), v.WorldToScreen(end), s)
	}
	for _, n := range d.Nodes {
		s := cellNode
		switch {
		case n.Selected:
			s = cellNodeSelected
		case n.Hovered:
			s = cellNodeHovered
		}
		cv.box(v, n, s)
	}
}

// line plots a straight segment between two screen points.
func (cv *canvas) line(a, b geom.Point, s cellStyle) {
	x0, y0 := cellAt(a)
	x1, y1 := cellAt(b)
	steps := max(abs(x1-x0), abs(y1-y0))
	if steps == 0 {
		cv.set(x0, y0, '·', s)
		return
	}
	if steps > 4*(cv.cols+cv.rows) {
		steps = 4 * (cv.cols + cv.rows)
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := x0 + int(math.Round(t*float64(x1-x0)))
		y := y0 + int(math.Round(t*float64(y1-y0)))
		cv.set(x, y, '·', s)
	}
	cv.set(x1, y1, '▸', s)
}

// box draws a node's frame and title. Nodes smaller than a cell collapse
// to a single marker.
func (cv *canvas) box(v viewport.Viewport, n *diagram.TableNode, s cellStyle) {
	r := n.Rect()
	x0, y0 := cellAt(v.WorldToScreen(r.Min))
	x1, y1 := cellAt(v.WorldToScreen(geom.Point{X: r.Min.X + r.Size.Width, Y: r.Min.Y + r.Size.Height}))
	if x1 <= x0 || y1 <= y0 {
		cv.set(x0, y0, '■', s)
		return
	}
	if x0 >= cv.cols || y0 >= cv.rows || x1 < 0 || y1 < 0 {
		return
	}

	for y := y0 + 1; y < y1; y++ {
		for x := x0 + 1; x < x1; x++ {
			cv.set(x, y, ' ', s)
		}
		cv.set(x0, y, '│', s)
		cv.set(x1, y, '│', s)
	}
	for x := x0 + 1; x < x1; x++ {
		cv.set(x, y0, '─', s)
		cv.set(x, y1, '─', s)
	}
	cv.set(x0, y0, '╭', s)
	cv.set(x1, y0, '╮', s)
	cv.set(x0, y1, '╰', s)
	cv.set(x1, y1, '╯', s)

	if y1-y0 < 2 {
		return
	}
	label := []rune(title(n))
	if width := x1 - x0 - 1; len(label) > width {
		label = label[:max(width, 0)]
	}
	for i, ch := range label {
		cv.set(x0+1+i, y0+1, ch, s)
	}
}

// String renders the grid with styles, one line per row.
func (cv *canvas) String() string {
	var b strings.Builder
	for y := 0; y < cv.rows; y++ {
		row := cv.cells[y*cv.cols : (y+1)*cv.cols]
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && row[x].style == row[start].style {
				continue
			}
			var run strings.Builder
			for _, c := range row[start:x] {
				run.WriteRune(c.r)
			}
			b.WriteString(canvasStyles[row[start].style].Render(run.String()))
			start = x
		}
		if y < cv.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// title is the table label shown in the box header.
func title(n *diagram.TableNode) string {
	if n.Schema == "" {
		return n.Name
	}
	return n.Schema + "." + n.Name
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
