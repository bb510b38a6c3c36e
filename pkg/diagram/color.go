package diagram

import (
	"fmt"
	"image/color"
	"math"
	"slices"
)

// Color is an HSLA color: hue in degrees, saturation and lightness in
// percent, alpha in [0, 1].
type Color struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	L float64 `json:"l"`
	A float64 `json:"a"`
}

// HSL returns an opaque color.
func HSL(h, s, l float64) Color {
	return Color{H: h, S: s, L: l, A: 1}
}

// RGB converts c to 8-bit red, green and blue using the standard HSL to RGB
// formula.
func (c Color) RGB() (r, g, b uint8) {
	h := math.Mod(c.H, 360)
	if h < 0 {
		h += 360
	}
	s := clamp01(c.S / 100)
	l := clamp01(c.L / 100)

	chroma := (1 - math.Abs(2*l-1)) * s
	x := chroma * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - chroma/2

	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = chroma, x, 0
	case h < 120:
		rf, gf, bf = x, chroma, 0
	case h < 180:
		rf, gf, bf = 0, chroma, x
	case h < 240:
		rf, gf, bf = 0, x, chroma
	case h < 300:
		rf, gf, bf = x, 0, chroma
	default:
		rf, gf, bf = chroma, 0, x
	}
	return to8(rf + m), to8(gf + m), to8(bf + m)
}

// to8 scales a [0, 1] channel to [0, 255]. The value is first rounded to six
// decimals so float noise cannot flip a .5 boundary.
func to8(v float64) uint8 {
	scaled := math.Round(clamp01(v)*255*1e6) / 1e6
	return uint8(math.Round(scaled))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Hex returns the color as "#rrggbb". Alpha is not encoded.
func (c Color) Hex() string {
	r, g, b := c.RGB()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// Alpha returns the opacity, treating an unset alpha as opaque.
func (c Color) Alpha() float64 {
	if c.A <= 0 || c.A > 1 {
		return 1
	}
	return c.A
}

// NRGBA converts c for raster backends.
func (c Color) NRGBA() color.NRGBA {
	r, g, b := c.RGB()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(c.Alpha() * 255))}
}

// Lighten returns c with lightness raised by delta percent.
func (c Color) Lighten(delta float64) Color {
	c.L = math.Min(100, c.L+delta)
	return c
}

// Palette is the fixed schema palette, assigned round-robin.
var Palette = []Color{
	HSL(210, 65, 50),
	HSL(150, 55, 40),
	HSL(30, 80, 50),
	HSL(280, 50, 55),
	HSL(0, 65, 55),
	HSL(180, 60, 38),
	HSL(45, 85, 45),
	HSL(330, 60, 52),
}

// NeutralColor is used for every node when coloring by schema is off.
var NeutralColor = HSL(220, 10, 55)

// SchemaColors sorts the distinct schemas and assigns palette entries in
// that order. The same schema set always yields the same colors.
func SchemaColors(schemas []string) map[string]Color {
	uniq := slices.Clone(schemas)
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)

	out := make(map[string]Color, len(uniq))
	for i, s := range uniq {
		out[s] = Palette[i%len(Palette)]
	}
	return out
}
