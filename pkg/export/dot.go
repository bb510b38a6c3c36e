package export

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
)

// ToDOT converts a diagram to Graphviz DOT. Tables become HTML-table nodes
// with a colored header and one row per visible column; foreign keys become
// edges from the referencing column port to the referenced column port.
//
// The output ignores node positions: Graphviz computes its own layout when
// the DOT is rendered with [RenderGraphviz].
func ToDOT(d *diagram.Data) string {
	var buf bytes.Buffer
	buf.WriteString("digraph schema {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=plaintext, fontname=\"Helvetica\", fontsize=11];\n")
	buf.WriteString("  edge [color=\"" + edgeColor + "\", arrowsize=0.8];\n")
	buf.WriteString("  ranksep=1.0;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	for _, n := range d.Nodes {
		fmt.Fprintf(&buf, "  %q [label=<%s>];\n", n.ID, dotTable(n, d.Options))
	}

	buf.WriteString("\n")
	for _, e := range d.Edges {
		attrs := []string{fmt.Sprintf("tooltip=%q", e.ID)}
		if e.Label != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", e.Label))
		}
		if e.Type == diagram.OneToOne {
			attrs = append(attrs, "arrowtail=tee", "dir=both")
		}
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n",
			dotEndpoint(d, e.SourceNode, e.SourceColumn),
			dotEndpoint(d, e.TargetNode, e.TargetColumn),
			strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// dotEndpoint addresses the column's port when the column is visible.
func dotEndpoint(d *diagram.Data, nodeID, column string) string {
	if n := d.Node(nodeID); n != nil {
		for _, c := range n.Columns {
			if c.Name == column {
				return fmt.Sprintf("%q:%q", nodeID, portName(column))
			}
		}
	}
	return strconv.Quote(nodeID)
}

func portName(column string) string { return "c_" + column }

func dotTable(n *diagram.TableNode, opts diagram.Options) string {
	var b strings.Builder
	b.WriteString(`<TABLE BORDER="1" CELLBORDER="0" CELLSPACING="0" CELLPADDING="4" COLOR="` + bodyStroke + `">`)
	fmt.Fprintf(&b, `<TR><TD COLSPAN="2" BGCOLOR="%s" ALIGN="LEFT"><FONT COLOR="#ffffff"><B>%s</B></FONT></TD></TR>`,
		n.Color.Hex(), escapeXML(title(n)))

	for _, row := range nodeRows(n, opts, rasterGlyphs) {
		if row.kind == indexRow {
			fmt.Fprintf(&b, `<TR><TD ALIGN="LEFT"><I>%s</I></TD>%s</TR>`, escapeXML(row.left), dotRight(row.right))
			continue
		}
		fmt.Fprintf(&b, `<TR><TD ALIGN="LEFT" PORT="%s">%s</TD>%s</TR>`,
			escapeXML(portName(row.column)), escapeXML(row.left), dotRight(row.right))
	}
	b.WriteString("</TABLE>")
	return b.String()
}

func dotRight(text string) string {
	if text == "" {
		return "<TD></TD>"
	}
	return fmt.Sprintf(`<TD ALIGN="RIGHT"><FONT COLOR="%s">%s</FONT></TD>`, mutedColor, escapeXML(text))
}

// RenderGraphviz lays out and renders DOT source with Graphviz. Supported
// formats are SVG, PNG and PDF (PDF via rsvg-convert on the SVG output).
func RenderGraphviz(ctx context.Context, dot string, format Format) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatSVG, FormatPDF:
		gvFormat = graphviz.SVG
	case FormatPNG:
		gvFormat = graphviz.PNG
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "graphviz cannot render %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "render")
	}
	if gvFormat == graphviz.PNG {
		return buf.Bytes(), nil
	}

	svg := normalizeViewBox(buf.Bytes())
	if format == FormatPDF {
		return ToPDF(ctx, svg)
	}
	return svg, nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one whose
// width and height match the viewBox.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" width="%s" height="%s">`,
		num(w), num(h), num(w), num(h))
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
