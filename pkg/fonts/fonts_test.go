package fonts

import "testing"

func TestMono(t *testing.T) {
	f, err := Mono()
	if err != nil {
		t.Fatalf("Mono() error: %v", err)
	}
	again, _ := Mono()
	if f != again {
		t.Error("Mono() should return the cached font")
	}
	if _, err := MonoBold(); err != nil {
		t.Fatalf("MonoBold() error: %v", err)
	}
}

func TestFaces(t *testing.T) {
	f, err := Mono()
	if err != nil {
		t.Fatal(err)
	}
	faces := NewFaces(f, 2)

	small := faces.Face(10)
	if faces.Face(10) != small {
		t.Error("Face() should cache by size")
	}

	// Monospace: every glyph has the same advance, and scale doubles it.
	a, _ := small.GlyphAdvance('i')
	b, _ := small.GlyphAdvance('W')
	if a != b {
		t.Errorf("advances differ: %v vs %v", a, b)
	}
	one := NewFaces(f, 1).Face(10)
	c, _ := one.GlyphAdvance('i')
	if a <= c {
		t.Errorf("scaled advance %v, unscaled %v", a, c)
	}
}
