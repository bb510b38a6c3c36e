package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/layout"
	"github.com/matzehuels/schemagraph/pkg/pipeline"
	"github.com/matzehuels/schemagraph/pkg/schema/catalog"
	"github.com/matzehuels/schemagraph/pkg/session"
)

// loadedModel returns a view model over the shop catalog after the
// initial window size and generation messages.
func loadedModel(t *testing.T) viewModel {
	t.Helper()
	cat, err := catalog.Parse([]byte(shopCatalog), "toml")
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(pipeline.NewRunner(cat, nil, nil, nil))
	req := session.Request{ConnectionID: "shop", Schemas: []string{"public"}}

	m := newViewModel(context.Background(), sess, req, "shop", "")
	m = step(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = step(t, m, m.generate()())
	if m.err != nil || !m.loaded {
		t.Fatalf("load failed: %v", m.err)
	}
	return m
}

func step(t *testing.T, m viewModel, msg tea.Msg) viewModel {
	t.Helper()
	next, _ := m.Update(msg)
	vm, ok := next.(viewModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return vm
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewLoad(t *testing.T) {
	m := loadedModel(t)

	if got := len(m.sess.Data().Nodes); got != 3 {
		t.Errorf("loaded %d tables, want 3", got)
	}
	if !m.fitted {
		t.Error("diagram not fitted after load")
	}
	if m.modified() {
		t.Error("fresh diagram reported as modified")
	}
	out := m.View()
	if !strings.Contains(out, "3 tables") || !strings.Contains(out, "shop") {
		t.Errorf("status bar missing:\n%s", out)
	}
}

func TestViewLoadError(t *testing.T) {
	cat, _ := catalog.Parse([]byte(shopCatalog), "toml")
	sess := session.New(pipeline.NewRunner(cat, nil, nil, nil))
	req := session.Request{ConnectionID: "shop", Schemas: []string{"public"}, Algorithm: "spiral"}

	m := newViewModel(context.Background(), sess, req, "shop", "")
	next, cmd := m.Update(m.generate()())
	if vm := next.(viewModel); !errors.Is(vm.err, errors.ErrCodeInvalidLayout) {
		t.Errorf("err = %v, want INVALID_LAYOUT", vm.err)
	}
	if cmd == nil {
		t.Fatal("load error should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("load error should quit")
	}
}

func TestViewSelectAndMove(t *testing.T) {
	m := loadedModel(t)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	sel := m.sess.Data().SelectedNodes()
	if len(sel) != 1 || sel[0].ID != m.sess.Data().Nodes[0].ID {
		t.Fatalf("tab selected %v", sel)
	}
	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if sel := m.sess.Data().SelectedNodes(); sel[0].ID != m.sess.Data().Nodes[1].ID {
		t.Errorf("second tab selected %s", sel[0].ID)
	}

	before := m.sess.Data().SelectedNodes()[0].Position
	m = step(t, m, tea.KeyMsg{Type: tea.KeyShiftRight})
	after := m.sess.Data().SelectedNodes()[0].Position
	if after.X <= before.X || after.Y != before.Y {
		t.Errorf("shift+right moved %v -> %v", before, after)
	}
	if !m.modified() {
		t.Error("moved diagram not reported as modified")
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.sess.Data().SelectedNodes()) != 0 {
		t.Error("esc did not clear the selection")
	}
}

func TestViewViewportKeys(t *testing.T) {
	m := loadedModel(t)
	z := m.sess.Viewport().Zoom

	m = step(t, m, runes("+"))
	if m.sess.Viewport().Zoom <= z {
		t.Error("+ did not zoom in")
	}
	x := m.sess.Viewport().X
	m = step(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.sess.Viewport().X != x+panStep {
		t.Errorf("left pan: X = %v, want %v", m.sess.Viewport().X, x+panStep)
	}
	m = step(t, m, runes("0"))
	if v := m.sess.Viewport(); v.Zoom != 1 || v.X != 0 || v.Y != 0 {
		t.Errorf("reset viewport = %+v", v)
	}
}

func TestViewMouse(t *testing.T) {
	m := loadedModel(t)
	z := m.sess.Viewport().Zoom

	m = step(t, m, tea.MouseMsg{X: 10, Y: 5, Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	if m.sess.Viewport().Zoom <= z {
		t.Error("wheel up did not zoom in")
	}

	// Clicking empty space starts a pan; releasing ends it.
	m = step(t, m, tea.MouseMsg{X: 0, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	m = step(t, m, tea.MouseMsg{X: 0, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
	if s := m.sess.State(); s.String() != "idle" {
		t.Errorf("state after release = %s", s)
	}
}

func TestViewLayoutKeys(t *testing.T) {
	m := loadedModel(t)
	algs := layout.Algorithms()

	m = step(t, m, runes("3"))
	if m.sess.Algorithm() != algs[2] {
		t.Errorf("algorithm = %s, want %s", m.sess.Algorithm(), algs[2])
	}
	if !strings.Contains(m.status, string(algs[2])) {
		t.Errorf("status = %q", m.status)
	}
}

func TestViewDisplayToggles(t *testing.T) {
	m := loadedModel(t)
	grid := m.sess.Data().Options.ShowGrid

	m = step(t, m, runes("g"))
	if m.sess.Data().Options.ShowGrid == grid {
		t.Error("g did not toggle the grid")
	}

	columns := m.sess.Data().Options.ColumnDisplay
	next, cmd := m.Update(runes("c"))
	m = next.(viewModel)
	if cmd == nil || !m.loading {
		t.Fatal("c should regenerate the diagram")
	}
	m = step(t, m, cmd())
	got := m.sess.Data().Options.ColumnDisplay
	if got == columns || got != m.req.Options.ColumnDisplay {
		t.Errorf("column display = %q, was %q, requested %q", got, columns, m.req.Options.ColumnDisplay)
	}
}

func TestViewSaveWithoutStorage(t *testing.T) {
	m := loadedModel(t)
	m = step(t, m, runes("s"))
	if m.status == "" {
		t.Error("save without storage should report an error")
	}
}

func TestViewQuit(t *testing.T) {
	m := loadedModel(t)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
