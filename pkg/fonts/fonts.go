// Package fonts provides the fonts used for raster export.
//
// The SVG renderer relies on the viewer's system fonts. PNG output is drawn
// without a browser, so a TrueType font is compiled into the binary. The
// Go Mono family from golang.org/x/image is used for its fixed advance,
// which keeps column names and data types aligned.
package fonts

import (
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
)

// Parsed fonts are cached after the first access.
var (
	mono     = sync.OnceValues(func() (*truetype.Font, error) { return truetype.Parse(gomono.TTF) })
	monoBold = sync.OnceValues(func() (*truetype.Font, error) { return truetype.Parse(gomonobold.TTF) })
)

// Mono returns the regular monospace font.
func Mono() (*truetype.Font, error) { return mono() }

// MonoBold returns the bold monospace font used for table headers.
func MonoBold() (*truetype.Font, error) { return monoBold() }

// Faces caches font faces by point size for one rendering pass. A Faces
// value is not safe for concurrent use.
type Faces struct {
	font  *truetype.Font
	scale float64
	cache map[float64]font.Face
}

// NewFaces returns a face cache for f where every requested size is
// multiplied by scale.
func NewFaces(f *truetype.Font, scale float64) *Faces {
	return &Faces{font: f, scale: scale, cache: make(map[float64]font.Face)}
}

// Face returns the face for size points.
func (fs *Faces) Face(size float64) font.Face {
	if f, ok := fs.cache[size]; ok {
		return f
	}
	f := truetype.NewFace(fs.font, &truetype.Options{Size: size * fs.scale, Hinting: font.HintingFull})
	fs.cache[size] = f
	return f
}
