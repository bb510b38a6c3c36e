package diagram

import "testing"

func TestColorHex(t *testing.T) {
	tests := []struct {
		c    Color
		want string
	}{
		{HSL(0, 100, 50), "#ff0000"},
		{HSL(120, 100, 25), "#008000"},
		{HSL(240, 100, 50), "#0000ff"},
		{HSL(0, 0, 0), "#000000"},
		{HSL(0, 0, 100), "#ffffff"},
		{HSL(210, 65, 50), "#2d80d2"},
		{HSL(360, 100, 50), "#ff0000"},
		{HSL(-120, 100, 50), "#0000ff"},
	}
	for _, tt := range tests {
		if got := tt.c.Hex(); got != tt.want {
			t.Errorf("%+v.Hex() = %s, want %s", tt.c, got, tt.want)
		}
	}
}

func TestColorAlpha(t *testing.T) {
	tests := []struct {
		a, want float64
	}{
		{0, 1},
		{1, 1},
		{0.5, 0.5},
		{2, 1},
	}
	for _, tt := range tests {
		c := Color{A: tt.a}
		if got := c.Alpha(); got != tt.want {
			t.Errorf("Alpha(%v) = %v, want %v", tt.a, got, tt.want)
		}
	}
	if got := (Color{H: 0, S: 100, L: 50, A: 0.5}).NRGBA(); got.A != 128 || got.R != 255 {
		t.Errorf("NRGBA() = %+v", got)
	}
}

func TestSchemaColors(t *testing.T) {
	a := SchemaColors([]string{"public", "audit", "public", "billing"})
	b := SchemaColors([]string{"billing", "audit", "public"})

	if len(a) != 3 {
		t.Fatalf("len = %d, want 3", len(a))
	}
	for s, c := range a {
		if b[s] != c {
			t.Errorf("%s: %v vs %v", s, c, b[s])
		}
	}
	if a["audit"] != Palette[0] || a["billing"] != Palette[1] || a["public"] != Palette[2] {
		t.Errorf("colors not assigned in sorted order: %v", a)
	}

	many := make([]string, len(Palette)+1)
	for i := range many {
		many[i] = string(rune('a' + i))
	}
	wrapped := SchemaColors(many)
	if wrapped[many[len(Palette)]] != Palette[0] {
		t.Error("palette should wrap round-robin")
	}
}

func TestLighten(t *testing.T) {
	c := HSL(10, 50, 95).Lighten(10)
	if c.L != 100 {
		t.Errorf("L = %v, want 100", c.L)
	}
}
