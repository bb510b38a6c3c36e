package session

import (
	"context"
	"time"

	"github.com/matzehuels/schemagraph/pkg/export"
)

// ExportSVG renders the live diagram as SVG.
func (s *Session) ExportSVG(opts ...export.Option) ([]byte, error) {
	return s.Export(context.Background(), export.FormatSVG, opts...)
}

// ExportPNG rasterizes the live diagram.
func (s *Session) ExportPNG(opts ...export.Option) ([]byte, error) {
	return s.Export(context.Background(), export.FormatPNG, opts...)
}

// Export renders the live diagram in format. Export never changes session
// state, including on failure. PDF conversion runs outside the session lock.
func (s *Session) Export(ctx context.Context, format export.Format, opts ...export.Option) ([]byte, error) {
	start := time.Now()
	s.hooks.Diagram.OnExportStart(ctx, string(format))

	var (
		out []byte
		err error
	)
	if format == export.FormatPDF {
		var svg []byte
		svg, err = s.render(ctx, export.FormatSVG, opts)
		if err == nil {
			out, err = export.ToPDF(ctx, svg)
		}
	} else {
		out, err = s.render(ctx, format, opts)
	}

	s.hooks.Diagram.OnExportComplete(ctx, string(format), len(out), time.Since(start), err)
	return out, err
}

func (s *Session) render(ctx context.Context, format export.Format, opts []export.Option) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return export.Render(ctx, s.ctrl.Data(), format, opts...)
}
