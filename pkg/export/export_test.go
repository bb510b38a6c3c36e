package export

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"math"
	"os/exec"
	"strings"
	"testing"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/geom"
)

func single() *diagram.Data {
	return &diagram.Data{
		Nodes: []*diagram.TableNode{{
			ID: "public.users", Schema: "public", Name: "users",
			Size:  geom.Size{Width: 220, Height: 100},
			Color: diagram.HSL(210, 65, 50),
		}},
		Options: diagram.DefaultOptions(),
	}
}

func pair() *diagram.Data {
	opts := diagram.DefaultOptions()
	return &diagram.Data{
		Nodes: []*diagram.TableNode{
			{
				ID: "public.users", Schema: "public", Name: "users",
				Columns: []diagram.Column{
					{Name: "id", DataType: "bigint", IsPrimaryKey: true},
					{Name: "nickname", DataType: "text", Nullable: true},
				},
				Indexes:  []diagram.Index{{Name: "users_pkey", Columns: []string{"id"}, IsPrimary: true, IsUnique: true}},
				Position: geom.Point{X: 0, Y: 0},
				Size:     geom.Size{Width: 220, Height: diagram.NodeHeight(2, 1, false)},
				Color:    diagram.HSL(210, 65, 50),
			},
			{
				ID: "public.orders", Schema: "public", Name: "orders",
				Columns: []diagram.Column{
					{Name: "user_id", DataType: "bigint", IsForeignKey: true, FKReference: "public.users.id"},
					{Name: "note", DataType: "a<b & c", Nullable: true},
				},
				Position: geom.Point{X: 400, Y: 200},
				Size:     geom.Size{Width: 220, Height: diagram.NodeHeight(2, 0, false)},
				Color:    diagram.Color{H: 150, S: 55, L: 40, A: 0.5},
			},
		},
		Edges: []*diagram.RelationshipEdge{{
			ID: "orders_user_fk", SourceNode: "public.orders", SourceColumn: "user_id",
			TargetNode: "public.users", TargetColumn: "id", Label: "user_id", Type: diagram.OneToMany,
		}},
		Options: opts,
	}
}

func TestScenarioC(t *testing.T) {
	svg := string(RenderSVG(single()))

	if !strings.Contains(svg, `viewBox="-50 -50 320 200"`) {
		t.Errorf("viewBox missing:\n%s", svg)
	}
	if !strings.Contains(svg, `width="320" height="200"`) {
		t.Error("width/height should equal the viewBox size")
	}
	if !strings.Contains(svg, `<rect class="table-body" x="0" y="0" width="220" height="100"`) {
		t.Errorf("body rect missing:\n%s", svg)
	}
	if !strings.Contains(svg, `fill="#2d80d2"`) {
		t.Error("header should be filled with the node's hex color")
	}
	if !strings.Contains(svg, ">public.users</text>") {
		t.Error("header title missing")
	}
}

func TestNum(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{-0.001, "0"},
		{1.5, "1.5"},
		{2.0, "2"},
		{3.14159, "3.14"},
		{-12.346, "-12.35"},
		{1e6, "1000000"},
	}
	for _, tt := range tests {
		if got := num(tt.in); got != tt.want {
			t.Errorf("num(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEdgePath(t *testing.T) {
	got := edgePath(geom.Point{X: 100, Y: 50}, geom.Point{X: 300, Y: 150.5})
	want := "M 100 50 C 200 50, 200 150.5, 300 150.5"
	if got != want {
		t.Errorf("edgePath() = %q, want %q", got, want)
	}
}

func TestRenderSVGContents(t *testing.T) {
	d := pair()
	svg := string(RenderSVG(d, WithEdgeLabels(), WithGrid(), WithInteraction()))

	// orders right-center (620, 256) -> users left-center (0, 36)
	users, orders := d.Nodes[0], d.Nodes[1]
	start, end := orders.Rect().RightCenter(), users.Rect().LeftCenter()
	if path := edgePath(start, end); !strings.Contains(svg, `d="`+path+`"`) {
		t.Errorf("edge path %q missing", path)
	}
	checks := []string{
		`marker-end="url(#arrow)"`,
		`<marker id="arrow"`,
		`<pattern id="grid" width="20" height="20"`,
		"🔑 id",
		"🔗 user_id",
		">text?</text>",
		"a&lt;b &amp; c?",
		`fill-opacity="0.5"`,
		`class="edge-label"`,
		"<script",
	}
	for _, c := range checks {
		if !strings.Contains(svg, c) {
			t.Errorf("SVG missing %q", c)
		}
	}
	if strings.Contains(svg, "users_pkey") {
		t.Error("index rows drawn while ShowIndexes is off")
	}
	if strings.Contains(svg, ">bigint?<") {
		t.Error("non-nullable column got a ? suffix")
	}
}

func TestRenderSVGDisplayOptions(t *testing.T) {
	d := pair()
	d.Options.ShowDataTypes = false
	d.Options.ShowIndexes = true
	svg := string(RenderSVG(d, WithBackground(false)))

	if strings.Contains(svg, ">bigint<") {
		t.Error("data types drawn while ShowDataTypes is off")
	}
	if !strings.Contains(svg, "nickname?") {
		t.Error("nullable suffix should move to the name when types are hidden")
	}
	if !strings.Contains(svg, "users_pkey (id)") {
		t.Error("index row missing")
	}
	if strings.Contains(svg, `class="background"`) {
		t.Error("background drawn while disabled")
	}

	d.Options.ShowNullable = false
	if svg := string(RenderSVG(d)); strings.Contains(svg, "nickname?") {
		t.Error("nullable suffix drawn while ShowNullable is off")
	}
}

func TestRenderSVGSelection(t *testing.T) {
	d := pair()
	d.Nodes[0].Selected = true
	d.Edges[0].Selected = true
	svg := string(RenderSVG(d))
	if !strings.Contains(svg, `class="table selected"`) || !strings.Contains(svg, `marker-end="url(#arrow-selected)"`) {
		t.Error("selection not reflected")
	}
}

func TestRenderSVGEmpty(t *testing.T) {
	svg := string(RenderSVG(&diagram.Data{}))
	if !strings.Contains(svg, `viewBox="-50 -50 100 100"`) {
		t.Errorf("empty diagram viewBox:\n%s", svg)
	}
}

func TestRenderPNGSize(t *testing.T) {
	tests := []struct {
		scale float64
		w, h  int
	}{
		{1, 320, 200},
		{1.5, 480, 300},
		{2, 640, 400},
		{0.333, 107, 67},
	}
	for _, tt := range tests {
		out, err := RenderPNG(single(), WithScale(tt.scale))
		if err != nil {
			t.Fatalf("RenderPNG(%v) error: %v", tt.scale, err)
		}
		cfg, err := png.DecodeConfig(bytes.NewReader(out))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if cfg.Width != tt.w || cfg.Height != tt.h {
			t.Errorf("scale %v: %dx%d, want %dx%d", tt.scale, cfg.Width, cfg.Height, tt.w, tt.h)
		}
	}

	if _, err := RenderPNG(pair(), WithEdgeLabels(), WithGrid()); err != nil {
		t.Errorf("RenderPNG(pair) error: %v", err)
	}
}

func TestRenderPNGInvalidScale(t *testing.T) {
	for _, s := range []float64{0, -1} {
		_, err := RenderPNG(single(), WithScale(s))
		if !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("RenderPNG(scale=%v) error = %v, want INVALID_INPUT", s, err)
		}
	}
}

func TestRenderPNGTooLarge(t *testing.T) {
	for _, s := range []float64{1e6, 1e200, math.MaxFloat64} {
		_, err := RenderPNG(single(), WithScale(s))
		if !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("RenderPNG(scale=%g) error = %v, want INVALID_INPUT", s, err)
		}
	}

	d := single()
	d.Nodes[0].Size = geom.Size{Width: 1e300, Height: 1e300}
	if _, _, err := PNGSize(d, 50, 1); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("PNGSize(huge node) error = %v, want INVALID_INPUT", err)
	}
	if w, h, err := PNGSize(single(), 50, 2); err != nil || w != 640 || h != 400 {
		t.Errorf("PNGSize(scale 2) = %d, %d, %v, want 640, 400", w, h, err)
	}
}

func TestToPDFUnavailable(t *testing.T) {
	orig := lookPath
	lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	t.Cleanup(func() { lookPath = orig })

	d := single()
	before := d.Nodes[0].Position
	_, err := Render(context.Background(), d, FormatPDF)
	if !errors.Is(err, errors.ErrCodeExportUnavailable) {
		t.Fatalf("Render(pdf) error = %v, want EXPORT_UNAVAILABLE", err)
	}
	if !errors.IsRecoverable(err) {
		t.Error("missing rsvg-convert should be recoverable")
	}
	if d.Nodes[0].Position != before {
		t.Error("failed export mutated the diagram")
	}
	if PDFAvailable() {
		t.Error("PDFAvailable() = true with no binary")
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(pair())
	checks := []string{
		"digraph schema {",
		`"public.users" [label=<`,
		`BGCOLOR="#2d80d2"`,
		`PORT="c_user_id"`,
		`"public.orders":"c_user_id" -> "public.users":"c_id"`,
		`label="user_id"`,
		"a&lt;b &amp; c?",
	}
	for _, c := range checks {
		if !strings.Contains(dot, c) {
			t.Errorf("DOT missing %q:\n%s", c, dot)
		}
	}
}

func TestRenderGraphviz(t *testing.T) {
	svg, err := RenderGraphviz(context.Background(), ToDOT(pair()), FormatSVG)
	if err != nil {
		t.Fatalf("RenderGraphviz() error: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("output is not SVG")
	}
	if _, err := RenderGraphviz(context.Background(), "digraph {", FormatJSON); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("RenderGraphviz(json) error = %v", err)
	}
}

func TestRenderDispatch(t *testing.T) {
	ctx := context.Background()
	d := pair()

	out, err := Render(ctx, d, FormatJSON)
	if err != nil {
		t.Fatalf("Render(json) error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Errorf("json output invalid: %v", err)
	}

	if out, err := Render(ctx, d, FormatSVG); err != nil || !bytes.HasPrefix(out, []byte("<svg")) {
		t.Errorf("Render(svg) = %d bytes, %v", len(out), err)
	}
	if _, err := Render(ctx, d, Format("gif")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Render(gif) error = %v", err)
	}
	if _, err := Render(ctx, nil, FormatSVG); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Render(nil) error = %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		got, err := ParseFormat(strings.ToUpper(string(f)))
		if err != nil || got != f {
			t.Errorf("ParseFormat(%s) = %v, %v", f, got, err)
		}
	}
	if _, err := ParseFormat("bmp"); err == nil {
		t.Error("ParseFormat(bmp) should fail")
	}
	if FormatPNG.ContentType() != "image/png" || FormatSVG.Extension() != ".svg" {
		t.Error("format metadata wrong")
	}
}
