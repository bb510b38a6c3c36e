package export

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/geom"
)

const (
	fontFamily   = `'Inter', 'Segoe UI', 'Helvetica Neue', Arial, sans-serif`
	fontSize     = 12.0
	titleSize    = 13.0
	indexSize    = 11.0
	edgeColor    = "#94a3b8"
	bodyFill     = "#ffffff"
	bodyStroke   = "#cbd5e1"
	selectStroke = "#2563eb"
	textColor    = "#1e293b"
	mutedColor   = "#64748b"
	gridColor    = "#e2e8f0"
)

const tableInteractionCSS = `
    .table .table-body { transition: stroke-width 0.2s ease; }
    .table.highlight .table-body { stroke: ` + selectStroke + `; stroke-width: 2.5; }
    .edge { transition: stroke 0.2s ease, stroke-width 0.2s ease; }
    .edge.highlight { stroke: ` + selectStroke + `; stroke-width: 2.5; }`

const tableInteractionJS = `
    function highlight(id) {
      document.querySelectorAll('.edge').forEach(e => {
        const hit = e.dataset.source === id || e.dataset.target === id;
        e.classList.toggle('highlight', hit);
        if (hit) {
          document.getElementById('table-' + e.dataset.source).classList.add('highlight');
          document.getElementById('table-' + e.dataset.target).classList.add('highlight');
        }
      });
      document.getElementById('table-' + id).classList.add('highlight');
    }
    function clearHighlight() {
      document.querySelectorAll('.table, .edge').forEach(el => el.classList.remove('highlight'));
    }
    document.querySelectorAll('.table').forEach(el => {
      el.addEventListener('mouseenter', () => highlight(el.dataset.table));
      el.addEventListener('mouseleave', clearHighlight);
    });`

// RenderSVG draws d as a standalone SVG document. The viewBox is the union
// of all node rectangles expanded by the padding, and the width and height
// attributes equal the viewBox size.
func RenderSVG(d *diagram.Data, opts ...Option) []byte {
	o := newOptions(opts...)
	view := ContentBounds(d, o.padding)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s" width="%s" height="%s" font-family="%s">`+"\n",
		num(view.Min.X), num(view.Min.Y), num(view.Size.Width), num(view.Size.Height),
		num(view.Size.Width), num(view.Size.Height), escapeXML(fontFamily))

	renderDefs(&buf, d, o)
	if o.background {
		fmt.Fprintf(&buf, `  <rect class="background" x="%s" y="%s" width="%s" height="%s" fill="#ffffff"/>`+"\n",
			num(view.Min.X), num(view.Min.Y), num(view.Size.Width), num(view.Size.Height))
	}
	if o.grid {
		fmt.Fprintf(&buf, `  <rect class="grid" x="%s" y="%s" width="%s" height="%s" fill="url(#grid)"/>`+"\n",
			num(view.Min.X), num(view.Min.Y), num(view.Size.Width), num(view.Size.Height))
	}

	buf.WriteString(`  <g class="edges">` + "\n")
	for _, e := range d.Edges {
		renderEdge(&buf, d, e, o)
	}
	buf.WriteString("  </g>\n")

	buf.WriteString(`  <g class="tables">` + "\n")
	for _, n := range d.Nodes {
		renderNode(&buf, n, d.Options)
	}
	buf.WriteString("  </g>\n")

	if o.interaction {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", tableInteractionCSS)
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", tableInteractionJS)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderDefs(buf *bytes.Buffer, d *diagram.Data, o options) {
	buf.WriteString("  <defs>\n")
	fmt.Fprintf(buf, `    <marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse">`+
		`<path d="M 0 0 L 10 5 L 0 10 z" fill="%s"/></marker>`+"\n", edgeColor)
	fmt.Fprintf(buf, `    <marker id="arrow-selected" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse">`+
		`<path d="M 0 0 L 10 5 L 0 10 z" fill="%s"/></marker>`+"\n", selectStroke)
	if o.grid {
		g := num(d.Options.GridSize)
		fmt.Fprintf(buf, `    <pattern id="grid" width="%s" height="%s" patternUnits="userSpaceOnUse">`+
			`<path d="M %s 0 L 0 0 0 %s" fill="none" stroke="%s" stroke-width="0.5"/></pattern>`+"\n",
			g, g, g, g, gridColor)
	}
	buf.WriteString("  </defs>\n")
}

// edgePath returns the cubic Bézier from start to end with both control
// points on the vertical line through the midpoint x.
func edgePath(start, end geom.Point) string {
	mx := (start.X + end.X) / 2
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		num(start.X), num(start.Y),
		num(mx), num(start.Y),
		num(mx), num(end.Y),
		num(end.X), num(end.Y))
}

func renderEdge(buf *bytes.Buffer, d *diagram.Data, e *diagram.RelationshipEdge, o options) {
	start, end, ok := d.Anchors(e)
	if !ok {
		return
	}
	stroke, marker, width := edgeColor, "arrow", "1.5"
	class := "edge"
	if e.Selected {
		stroke, marker, width = selectStroke, "arrow-selected", "2.5"
		class += " selected"
	}
	if e.Type == diagram.OneToOne {
		class += " one-to-one"
	}
	fmt.Fprintf(buf, `    <path id="edge-%s" class="%s" data-source="%s" data-target="%s" d="%s" fill="none" stroke="%s" stroke-width="%s" marker-end="url(#%s)"/>`+"\n",
		escapeXML(e.ID), class, escapeXML(e.SourceNode), escapeXML(e.TargetNode),
		edgePath(start, end), stroke, width, marker)

	if o.edgeLabels && e.Label != "" {
		mid := geom.Point{X: (start.X + end.X) / 2, Y: (start.Y + end.Y) / 2}
		fmt.Fprintf(buf, `    <text class="edge-label" x="%s" y="%s" font-size="%s" fill="%s" text-anchor="middle" dy="-4">%s</text>`+"\n",
			num(mid.X), num(mid.Y), num(indexSize), mutedColor, escapeXML(e.Label))
	}
}

func renderNode(buf *bytes.Buffer, n *diagram.TableNode, opts diagram.Options) {
	r := n.Rect()
	x, y, w, h := r.Min.X, r.Min.Y, r.Size.Width, r.Size.Height

	class := "table"
	stroke, strokeWidth := bodyStroke, "1"
	if n.Selected {
		class += " selected"
		stroke, strokeWidth = selectStroke, "2.5"
	}
	fmt.Fprintf(buf, `    <g id="table-%s" class="%s" data-table="%s" data-schema="%s">`+"\n",
		escapeXML(n.ID), class, escapeXML(n.ID), escapeXML(n.Schema))

	fmt.Fprintf(buf, `      <rect class="table-body" x="%s" y="%s" width="%s" height="%s" rx="4" fill="%s" stroke="%s" stroke-width="%s"/>`+"\n",
		num(x), num(y), num(w), num(h), bodyFill, stroke, strokeWidth)

	fmt.Fprintf(buf, `      <rect class="table-header" x="%s" y="%s" width="%s" height="%s" rx="4" fill="%s"%s/>`+"\n",
		num(x), num(y), num(w), num(diagram.HeaderHeight), n.Color.Hex(), opacityAttr(n.Color))
	fmt.Fprintf(buf, `      <text class="table-title" x="%s" y="%s" font-size="%s" font-weight="bold" fill="#ffffff" dominant-baseline="middle">%s</text>`+"\n",
		num(x+diagram.NodePadding), num(y+diagram.HeaderHeight/2), num(titleSize), escapeXML(title(n)))

	for _, row := range nodeRows(n, opts, vectorGlyphs) {
		size, fill, extra := fontSize, textColor, ""
		if row.kind == indexRow {
			size, fill, extra = indexSize, mutedColor, ` font-style="italic"`
		} else if row.key {
			extra = ` font-weight="600"`
		}
		fmt.Fprintf(buf, `      <text class="%s" x="%s" y="%s" font-size="%s" fill="%s" dominant-baseline="middle"%s>%s</text>`+"\n",
			rowClass(row.kind), num(x+diagram.NodePadding), num(row.center()), num(size), fill, extra, escapeXML(row.left))
		if row.right != "" {
			fmt.Fprintf(buf, `      <text class="%s-type" x="%s" y="%s" font-size="%s" fill="%s" text-anchor="end" dominant-baseline="middle">%s</text>`+"\n",
				rowClass(row.kind), num(x+w-diagram.NodePadding), num(row.center()), num(size), mutedColor, escapeXML(row.right))
		}
	}

	buf.WriteString("    </g>\n")
}

func rowClass(k rowKind) string {
	if k == indexRow {
		return "index"
	}
	return "column"
}

func opacityAttr(c diagram.Color) string {
	if a := c.Alpha(); a < 1 {
		return fmt.Sprintf(` fill-opacity="%s"`, num(a))
	}
	return ""
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
