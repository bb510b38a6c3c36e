package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/export"
	"github.com/matzehuels/schemagraph/pkg/geom"
	"github.com/matzehuels/schemagraph/pkg/interaction"
	"github.com/matzehuels/schemagraph/pkg/layout"
	"github.com/matzehuels/schemagraph/pkg/observability"
	"github.com/matzehuels/schemagraph/pkg/session"
	"github.com/matzehuels/schemagraph/pkg/viewport"
)

// viewChrome is the number of terminal lines used by the status and help
// bars.
const viewChrome = 2

// panStep is the keyboard pan distance in screen pixels.
const panStep = 4 * cellWidth

// zoomStep is the keyboard zoom factor.
const zoomStep = 1.25

const viewHelp = "←↑↓→ pan · shift+arrows move · +/- zoom · f fit · 0 reset · tab next · esc clear · 1-4 layout · c columns · t types · g grid · s save · e export · r reload · q quit"

var (
	styleStatusBar = lipgloss.NewStyle().Foreground(colorWhite).Background(lipgloss.Color("236"))
	styleHelpBar   = lipgloss.NewStyle().Foreground(colorDim)
)

// viewCommand creates the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		schemas, include, exclude []string
		layoutName, name, open    string
	)

	cmd := &cobra.Command{
		Use:   "view [connection|catalog-file]",
		Short: "Explore a diagram interactively in the terminal",
		Long: `View opens a diagram in the terminal. Tables can be selected and dragged with
the mouse, the view panned and zoomed, and the arrangement saved for later use
with render --config-id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd.Context(), args[0], viewOpts{
				schemas: schemas, include: include, exclude: exclude,
				layout: layoutName, name: name, open: open,
			})
		},
	}

	cmd.Flags().StringSliceVarP(&schemas, "schema", "s", nil, "schema to include (repeatable)")
	cmd.Flags().StringSliceVar(&include, "include", nil, "only tables matching these globs")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "skip tables matching these globs")
	cmd.Flags().StringVarP(&layoutName, "layout", "l", "", "initial layout algorithm")
	cmd.Flags().StringVar(&name, "name", "", "name used when saving (default: the connection id)")
	cmd.Flags().StringVar(&open, "open", "", "open a saved diagram by id")

	return cmd
}

type viewOpts struct {
	schemas, include, exclude []string
	layout, name, open        string
}

func (c *CLI) runView(ctx context.Context, arg string, opts viewOpts) error {
	ws, err := c.open(arg)
	if err != nil {
		return err
	}
	defer ws.Close()

	sessOpts := []session.Option{
		session.WithLogger(c.Logger),
		session.WithHooks(observability.Logging(c.Logger)),
	}
	if repo, err := c.openRepository(ctx, ws.cfg); err != nil {
		c.Logger.Warn("saving disabled", "err", err)
	} else {
		defer repo.Close()
		sessOpts = append(sessOpts, session.WithRepository(repo))
	}
	sess := session.New(ws.runner, sessOpts...)

	display := ws.cfg.Defaults.DiagramOptions()
	req := session.Request{
		ConnectionID: ws.conn.ID,
		Schemas:      opts.schemas,
		Include:      opts.include,
		Exclude:      opts.exclude,
		Options:      &display,
		Algorithm:    ws.cfg.Defaults.Layout,
	}
	if opts.layout != "" {
		req.Algorithm = opts.layout
	}
	if len(req.Schemas) == 0 {
		req.Schemas = defaultSchemas(ws.conn)
	}
	name := opts.name
	if name == "" {
		name = ws.conn.ID
	}

	m := newViewModel(ctx, sess, req, name, opts.open)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	unsubscribe := sess.Subscribe(func(ch interaction.Change) {
		// Session callbacks run inside Update; Send would block the loop.
		go p.Send(changedMsg(ch))
	})
	defer unsubscribe()

	final, err := p.Run()
	if err != nil && !stderrors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	vm, ok := final.(viewModel)
	if !ok {
		return nil
	}
	if vm.err != nil {
		return vm.err
	}
	if vm.modified() {
		printWarning("Unsaved layout changes discarded")
	}
	return nil
}

// =============================================================================
// viewModel - bubbletea model driving a session
// =============================================================================

type (
	generatedMsg struct{ err error }
	changedMsg   interaction.Change
)

type viewModel struct {
	ctx      context.Context
	sess     *session.Session
	req      session.Request
	name     string
	open     string
	width    int
	height   int
	status   string
	err      error
	loading  bool
	loaded   bool // a diagram has been installed
	fitted   bool
	baseline map[string]geom.Point // positions at the last load or save
}

func newViewModel(ctx context.Context, sess *session.Session, req session.Request, name, open string) viewModel {
	return viewModel{ctx: ctx, sess: sess, req: req, name: name, open: open, loading: true}
}

func (m viewModel) Init() tea.Cmd {
	return m.generate()
}

// generate loads the diagram off the UI goroutine.
func (m viewModel) generate() tea.Cmd {
	ctx, sess, req, open := m.ctx, m.sess, m.req, m.open
	return func() tea.Msg {
		if open != "" {
			_, found, err := sess.OpenConfig(ctx, open)
			if err == nil && !found {
				err = errors.New(errors.ErrCodeNotFound, "no saved diagram %q", open)
			}
			return generatedMsg{err: err}
		}
		_, err := sess.Generate(ctx, req)
		return generatedMsg{err: err}
	}
}

// canvasSize returns the diagram area in screen pixels.
func (m viewModel) canvasSize() (float64, float64) {
	return float64(m.width) * cellWidth, float64(max(m.height-viewChrome, 0)) * cellHeight
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.loading && !m.fitted {
			m.fit()
		}
	case generatedMsg:
		m.loading = false
		if msg.err != nil {
			if errors.Is(msg.err, errors.ErrCodeSuperseded) {
				return m, nil
			}
			if !m.loaded {
				m.err = msg.err
				return m, tea.Quit
			}
			m.status = errors.UserMessage(msg.err)
			return m, nil
		}
		m.loaded = true
		if m.status == "" || m.status == "reloading..." {
			m.status = fmt.Sprintf("loaded %d tables", len(m.sess.Data().Nodes))
		}
		m.baseline = m.sess.Data().Positions()
		m.fit()
	case changedMsg:
		// Redraw only.
	case tea.MouseMsg:
		m.mouse(msg)
	case tea.KeyMsg:
		return m.key(msg)
	}
	return m, nil
}

func (m *viewModel) fit() {
	w, h := m.canvasSize()
	m.sess.FitToView(w, h)
	m.fitted = w > 0 && h > 0
}

func (m *viewModel) mouse(msg tea.MouseMsg) {
	if msg.Y >= m.height-viewChrome {
		return
	}
	p := geom.Point{X: (float64(msg.X) + 0.5) * cellWidth, Y: (float64(msg.Y) + 0.5) * cellHeight}
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.sess.Wheel(-1, p)
	case msg.Button == tea.MouseButtonWheelDown:
		m.sess.Wheel(1, p)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.sess.PointerDown(p, interaction.Modifiers{Multi: msg.Shift || msg.Ctrl})
	case msg.Action == tea.MouseActionMotion:
		m.sess.PointerMove(p)
	case msg.Action == tea.MouseActionRelease:
		m.sess.PointerUp(p)
	}
}

func (m viewModel) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	w, h := m.canvasSize()
	center := geom.Point{X: w / 2, Y: h / 2}
	m.status = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		m.sess.Pan(panStep, 0)
	case "right", "l":
		m.sess.Pan(-panStep, 0)
	case "up", "k":
		m.sess.Pan(0, panStep)
	case "down", "j":
		m.sess.Pan(0, -panStep)
	case "shift+left":
		m.sess.Key(interaction.KeyLeft)
	case "shift+right":
		m.sess.Key(interaction.KeyRight)
	case "shift+up":
		m.sess.Key(interaction.KeyUp)
	case "shift+down":
		m.sess.Key(interaction.KeyDown)
	case "+", "=":
		m.sess.Zoom(zoomStep, center)
	case "-":
		m.sess.Zoom(1/zoomStep, center)
	case "f":
		m.fit()
	case "0":
		m.sess.ResetView()
	case "esc":
		m.sess.Key(interaction.KeyEscape)
	case "ctrl+a":
		m.sess.Key(interaction.KeySelectAll)
	case "tab":
		m.selectNext()
	case "1", "2", "3", "4":
		m.applyLayout(int(msg.String()[0] - '1'))
	case "c":
		return m, m.cycleColumns()
	case "t":
		m.toggle(func(o *diagram.Options) { o.ShowDataTypes = !o.ShowDataTypes })
	case "g":
		m.toggle(func(o *diagram.Options) { o.ShowGrid = !o.ShowGrid })
	case "s":
		m.save()
	case "e":
		m.export()
	case "r":
		m.loading = true
		m.status = "reloading..."
		return m, m.generate()
	}
	return m, nil
}

// selectNext moves the selection to the table after the selected one.
func (m *viewModel) selectNext() {
	d := m.sess.Data()
	if d == nil || len(d.Nodes) == 0 {
		return
	}
	next := 0
	if sel := d.SelectedNodes(); len(sel) > 0 {
		for i, n := range d.Nodes {
			if n.ID == sel[len(sel)-1].ID {
				next = (i + 1) % len(d.Nodes)
				break
			}
		}
	}
	m.sess.SelectNode(d.Nodes[next].ID, false)
}

func (m *viewModel) applyLayout(i int) {
	algs := layout.Algorithms()
	if i < 0 || i >= len(algs) {
		return
	}
	if _, err := m.sess.ApplyLayout(string(algs[i])); err != nil {
		m.status = errors.UserMessage(err)
		return
	}
	m.status = "layout " + string(algs[i])
}

var columnCycle = []diagram.ColumnDisplay{diagram.ColumnsAll, diagram.ColumnsPKFK, diagram.ColumnsNone}

// cycleColumns switches the column display mode. The mode changes node
// sizes, so the diagram is regenerated.
func (m *viewModel) cycleColumns() tea.Cmd {
	d := m.sess.Data()
	if d == nil {
		return nil
	}
	opts := d.Options
	next := columnCycle[0]
	for i, cd := range columnCycle {
		if cd == opts.ColumnDisplay {
			next = columnCycle[(i+1)%len(columnCycle)]
		}
	}
	opts.ColumnDisplay = next
	m.req.Options = &opts
	m.req.Algorithm = string(m.sess.Algorithm())
	m.open = ""
	m.loading = true
	m.status = "columns " + string(next)
	return m.generate()
}

// toggle flips a display option that keeps node sizes.
func (m *viewModel) toggle(fn func(*diagram.Options)) {
	d := m.sess.Data()
	if d == nil {
		return
	}
	opts := d.Options
	fn(&opts)
	if _, err := m.sess.SetDisplayOptions(opts); err != nil {
		m.status = errors.UserMessage(err)
	}
}

func (m *viewModel) save() {
	name := m.name
	if cur, ok := m.sess.Current(); ok {
		name = cur.Name
	}
	cfg, err := m.sess.SaveConfig(m.ctx, name)
	if err != nil {
		m.status = errors.UserMessage(err)
		return
	}
	m.baseline = cfg.Layout.NodePositions
	m.status = fmt.Sprintf("saved %q as %s", cfg.Name, cfg.ID)
}

func (m *viewModel) export() {
	out, err := m.sess.Export(m.ctx, export.FormatSVG)
	if err != nil {
		m.status = errors.UserMessage(err)
		return
	}
	path := m.name + export.FormatSVG.Extension()
	if err := os.WriteFile(path, out, 0o644); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "wrote " + path
}

func (m viewModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if !m.loaded {
		return StyleDim.Render("Loading diagram...")
	}

	cv := newCanvas(m.width, m.height-viewChrome)
	m.sess.View(func(d *diagram.Data, v viewport.Viewport) {
		cv.draw(d, v)
	})
	m.sess.ClearDirty()

	var b strings.Builder
	b.WriteString(cv.String())
	b.WriteByte('\n')
	b.WriteString(styleStatusBar.Width(m.width).Render(m.statusLine()))
	b.WriteByte('\n')
	b.WriteString(styleHelpBar.Width(m.width).MaxHeight(1).Render(viewHelp))
	return b.String()
}

func (m viewModel) statusLine() string {
	parts := []string{m.req.ConnectionID, string(m.sess.Algorithm())}
	m.sess.View(func(d *diagram.Data, v viewport.Viewport) {
		parts = append(parts, fmt.Sprintf("%.0f%%", v.Zoom*100))
		if d == nil {
			return
		}
		parts = append(parts, fmt.Sprintf("%d tables", len(d.Nodes)))
		if sel := d.SelectedNodes(); len(sel) > 0 {
			ids := make([]string, len(sel))
			for i, n := range sel {
				ids[i] = n.ID
			}
			parts = append(parts, strings.Join(ids, ","))
		}
	})
	if m.modified() {
		parts = append(parts, "modified")
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return " " + strings.Join(parts, " · ")
}

// modified reports whether any table moved since the last load or save.
func (m viewModel) modified() bool {
	changed := false
	m.sess.View(func(d *diagram.Data, _ viewport.Viewport) {
		changed = d != nil && !maps.Equal(d.Positions(), m.baseline)
	})
	return changed
}
