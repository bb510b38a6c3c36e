package export

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/geom"
)

// Format identifies an output format.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// Formats returns every supported format.
func Formats() []Format {
	return []Format{FormatSVG, FormatPNG, FormatPDF, FormatDOT, FormatJSON}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported export format %q", s)
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string { return "." + string(f) }

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatJSON:
		return "application/json"
	default:
		return "text/vnd.graphviz"
	}
}

// DefaultPadding surrounds the content bounds in every visual format.
const DefaultPadding = 50.0

// DefaultScale is the PNG scale factor.
const DefaultScale = 2.0

// Option configures rendering.
type Option func(*options)

type options struct {
	padding     float64
	background  bool
	edgeLabels  bool
	grid        bool
	interaction bool
	scale       float64
}

func newOptions(opts ...Option) options {
	o := options{padding: DefaultPadding, background: true, scale: DefaultScale}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPadding sets the space around the diagram bounds.
func WithPadding(p float64) Option {
	return func(o *options) {
		if p >= 0 {
			o.padding = p
		}
	}
}

// WithBackground toggles the white background rectangle (on by default).
func WithBackground(on bool) Option { return func(o *options) { o.background = on } }

// WithEdgeLabels draws each edge's column label at its midpoint.
func WithEdgeLabels() Option { return func(o *options) { o.edgeLabels = true } }

// WithGrid draws the background grid at the diagram's grid size.
func WithGrid() Option { return func(o *options) { o.grid = true } }

// WithInteraction embeds hover highlighting CSS and script in the SVG.
func WithInteraction() Option { return func(o *options) { o.interaction = true } }

// WithScale sets the raster scale factor.
func WithScale(s float64) Option { return func(o *options) { o.scale = s } }

// Render exports d in the given format. PDF and Graphviz rendering may shell
// out or call into C, so ctx bounds them.
func Render(ctx context.Context, d *diagram.Data, f Format, opts ...Option) ([]byte, error) {
	if d == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no diagram to export")
	}
	switch f {
	case FormatSVG:
		return RenderSVG(d, opts...), nil
	case FormatPNG:
		return RenderPNG(d, opts...)
	case FormatPDF:
		return ToPDF(ctx, RenderSVG(d, opts...))
	case FormatDOT:
		return []byte(ToDOT(d)), nil
	case FormatJSON:
		out, err := diagram.MarshalData(d)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeExport, err, "encode diagram")
		}
		return out, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported export format %q", f)
}

// ContentBounds returns the diagram bounds expanded by padding.
func ContentBounds(d *diagram.Data, padding float64) geom.Rect {
	return d.Bounds().Expand(padding)
}

// num formats v with at most two decimals and no trailing zeros.
func num(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
