package export

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/matzehuels/schemagraph/pkg/errors"
)

// rsvgBinary is the external converter used for PDF output.
const rsvgBinary = "rsvg-convert"

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// PDFAvailable reports whether rsvg-convert is on PATH.
func PDFAvailable() bool {
	_, err := lookPath(rsvgBinary)
	return err == nil
}

// ToPDF converts SVG bytes to PDF using rsvg-convert.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
//
// A missing binary returns an EXPORT_UNAVAILABLE error, which callers treat
// as recoverable.
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	return rsvgConvert(ctx, svg, "pdf")
}

// rsvgConvert shells out to rsvg-convert for format conversion.
func rsvgConvert(ctx context.Context, svg []byte, format string, extraArgs ...string) ([]byte, error) {
	bin, err := lookPath(rsvgBinary)
	if err != nil {
		return nil, errors.New(errors.ErrCodeExportUnavailable,
			"%s export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin", format)
	}

	args := append([]string{"-f", format}, extraArgs...)
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "rsvg-convert: %s", errBuf.String())
	}
	return out.Bytes(), nil
}
