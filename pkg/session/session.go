package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/geom"
	"github.com/matzehuels/schemagraph/pkg/interaction"
	"github.com/matzehuels/schemagraph/pkg/layout"
	"github.com/matzehuels/schemagraph/pkg/observability"
	"github.com/matzehuels/schemagraph/pkg/persist"
	"github.com/matzehuels/schemagraph/pkg/pipeline"
	"github.com/matzehuels/schemagraph/pkg/viewport"
)

// Request describes a diagram to generate.
type Request struct {
	ConnectionID string           `json:"connection_id"`
	Schemas      []string         `json:"schemas"`
	Include      []string         `json:"include,omitempty"`
	Exclude      []string         `json:"exclude,omitempty"`
	Options      *diagram.Options `json:"options,omitempty"` // nil means diagram.DefaultOptions()
	Algorithm    string           `json:"layout,omitempty"`
}

func (r Request) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		ConnectionID: r.ConnectionID,
		Schemas:      r.Schemas,
		Include:      r.Include,
		Exclude:      r.Exclude,
		Display:      r.Options,
		Algorithm:    r.Algorithm,
	}
}

// Session holds one live diagram and its interaction state.
type Session struct {
	mu sync.Mutex

	runner *pipeline.Runner
	repo   *persist.Repository
	logger *log.Logger
	hooks  observability.Hooks

	view      viewport.Viewport
	ctrl      *interaction.Controller
	request   Request
	algorithm layout.Algorithm
	current   *diagram.Config // last saved or applied config

	generation uint64
	dirty      bool

	subs    []subscriber
	nextSub uint64
}

type subscriber struct {
	id uint64
	fn func(interaction.Change)
}

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	repo      *persist.Repository
	logger    *log.Logger
	hooks     observability.Hooks
	tolerance float64
}

// WithRepository enables SaveConfig, LoadConfig, ListConfigs and DeleteConfig.
func WithRepository(repo *persist.Repository) Option {
	return func(c *sessionConfig) { c.repo = repo }
}

// WithLogger sets the session logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(c *sessionConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHooks reports layout and export events to h.
func WithHooks(h observability.Hooks) Option {
	return func(c *sessionConfig) { c.hooks = h }
}

// WithEdgeTolerance sets the edge hit distance in world units.
func WithEdgeTolerance(tol float64) Option {
	return func(c *sessionConfig) { c.tolerance = tol }
}

// New creates a session that generates diagrams with runner. The session
// starts with an empty diagram and the identity viewport.
func New(runner *pipeline.Runner, opts ...Option) *Session {
	cfg := sessionConfig{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		runner:    runner,
		repo:      cfg.repo,
		logger:    cfg.logger,
		hooks:     cfg.hooks.OrNoop(),
		view:      viewport.New(),
		algorithm: layout.DefaultAlgorithm,
	}
	var ctrlOpts []interaction.Option
	if cfg.tolerance > 0 {
		ctrlOpts = append(ctrlOpts, interaction.WithEdgeTolerance(cfg.tolerance))
	}
	s.ctrl = interaction.New(nil, &s.view, ctrlOpts...)
	return s
}

// =============================================================================
// Change notification
// =============================================================================

// Subscribe registers fn to be called with every non-empty change. The
// returned function unregisters it.
func (s *Session) Subscribe(fn func(interaction.Change)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Dirty reports whether anything changed since the last ClearDirty.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// ClearDirty resets the dirty flag, typically after a repaint.
func (s *Session) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// update runs fn under the lock, records its change and notifies
// subscribers once the lock is released.
func (s *Session) update(fn func() interaction.Change) interaction.Change {
	s.mu.Lock()
	ch := fn()
	var subs []subscriber
	if ch != interaction.ChangeNone {
		s.dirty = true
		subs = append(subs, s.subs...)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(ch)
	}
	return ch
}

// =============================================================================
// Read access
// =============================================================================

// View runs fn with the live diagram and viewport under the session lock.
// fn must not retain d or call back into the session.
func (s *Session) View(fn func(d *diagram.Data, v viewport.Viewport)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.ctrl.Data(), s.view)
}

// Data returns the live diagram. It is mutated by later calls; use View
// when other goroutines drive the session.
func (s *Session) Data() *diagram.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Data()
}

// Viewport returns a copy of the current viewport.
func (s *Session) Viewport() viewport.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// State returns the pointer interaction state.
func (s *Session) State() interaction.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.State()
}

// Request returns the request behind the current diagram.
func (s *Session) Request() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

// Algorithm returns the layout algorithm last applied.
func (s *Session) Algorithm() layout.Algorithm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.algorithm
}

// =============================================================================
// Generation and layout
// =============================================================================

// Generate fetches metadata, builds and lays out a new diagram, and
// installs it unless a newer Generate call started in the meantime.
//
// Errors leave the current diagram untouched: collaborator failures are
// GENERATION_FAILED, an unknown algorithm is INVALID_LAYOUT, and a result
// overtaken by a newer request is SUPERSEDED.
func (s *Session) Generate(ctx context.Context, req Request) (*diagram.Data, error) {
	alg, err := layout.ParseAlgorithm(req.Algorithm)
	if err != nil {
		return nil, err
	}
	req.Algorithm = string(alg)
	if s.runner == nil {
		return nil, errors.New(errors.ErrCodeInternal, "session has no pipeline runner")
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	opts := req.pipelineOptions()
	d, err := s.runner.Generate(ctx, opts)
	if err == nil {
		_, err = s.runner.LayoutWithCacheInfo(ctx, d, opts)
	}

	superseded := false
	s.update(func() interaction.Change {
		if gen != s.generation {
			superseded = true
			s.logger.Debug("discarding superseded generation", "generation", gen, "latest", s.generation)
			return interaction.ChangeNone
		}
		if err != nil {
			return interaction.ChangeNone
		}
		s.install(d, req, alg)
		s.current = nil
		return interaction.ChangeDiagram
	})
	if superseded {
		return nil, errors.New(errors.ErrCodeSuperseded, "generation %d superseded by %d", gen, s.Generation())
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// install replaces the live diagram. The caller holds the lock.
func (s *Session) install(d *diagram.Data, req Request, alg layout.Algorithm) {
	s.ctrl.SetData(d)
	s.request = req
	s.algorithm = alg
}

// Generation returns the number of Generate calls started so far.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// ApplyLayout repositions every node with the named algorithm. An empty
// diagram is a no-op; an unknown name is INVALID_LAYOUT and moves nothing.
func (s *Session) ApplyLayout(name string) (interaction.Change, error) {
	alg, err := layout.ParseAlgorithm(name)
	if err != nil {
		return interaction.ChangeNone, err
	}

	var layoutErr error
	ch := s.update(func() interaction.Change {
		d := s.ctrl.Data()
		s.algorithm = alg
		s.request.Algorithm = string(alg)
		if len(d.Nodes) == 0 {
			return interaction.ChangeNone
		}

		ctx := context.Background()
		start := time.Now()
		s.hooks.Diagram.OnLayoutStart(ctx, string(alg), len(d.Nodes))
		layoutErr = layout.ApplyData(d, alg, layout.WithLogger(s.logger))
		s.hooks.Diagram.OnLayoutComplete(ctx, string(alg), time.Since(start), layoutErr)
		if layoutErr != nil {
			return interaction.ChangeNone
		}
		return interaction.ChangePositions
	})
	return ch, layoutErr
}

// SetDisplayOptions switches display options that do not change the node
// model (grid, snapping, nullable and type display) in place. Changing
// column display, index rows or schema coloring returns INVALID_INPUT and
// leaves the diagram untouched; those need a Generate with the new options.
func (s *Session) SetDisplayOptions(opts diagram.Options) (interaction.Change, error) {
	opts.Normalize()
	var err error
	ch := s.update(func() interaction.Change {
		d := s.ctrl.Data()
		if d.Options == opts {
			return interaction.ChangeNone
		}
		if !d.Options.SameNodeModel(opts) {
			err = errors.New(errors.ErrCodeInvalidInput,
				"column display, indexes and schema coloring change the nodes; regenerate to apply them")
			return interaction.ChangeNone
		}
		d.Options = opts
		o := opts
		s.request.Options = &o
		return interaction.ChangeDiagram
	})
	return ch, err
}

// =============================================================================
// Viewport
// =============================================================================

// Pan translates the viewport by a screen-space delta.
func (s *Session) Pan(dx, dy float64) interaction.Change {
	return s.update(func() interaction.Change {
		if s.view.Pan(dx, dy) {
			return interaction.ChangeViewport
		}
		return interaction.ChangeNone
	})
}

// Zoom multiplies the zoom by factor around the screen point center.
func (s *Session) Zoom(factor float64, center geom.Point) interaction.Change {
	return s.update(func() interaction.Change {
		if s.view.ZoomAt(factor, center) {
			return interaction.ChangeViewport
		}
		return interaction.ChangeNone
	})
}

// FitToView fits the whole diagram into a w x h canvas.
func (s *Session) FitToView(w, h float64) interaction.Change {
	return s.update(func() interaction.Change {
		if s.view.FitToView(s.ctrl.Data().Bounds(), w, h) {
			return interaction.ChangeViewport
		}
		return interaction.ChangeNone
	})
}

// ResetView restores the identity viewport.
func (s *Session) ResetView() interaction.Change {
	return s.update(func() interaction.Change {
		if s.view.Reset() {
			return interaction.ChangeViewport
		}
		return interaction.ChangeNone
	})
}

// =============================================================================
// Input events
// =============================================================================

// PointerDown forwards a press at screen point p.
func (s *Session) PointerDown(p geom.Point, mods interaction.Modifiers) interaction.Change {
	return s.update(func() interaction.Change { return s.ctrl.PointerDown(p, mods) })
}

// PointerMove forwards a pointer move to screen point p.
func (s *Session) PointerMove(p geom.Point) interaction.Change {
	return s.update(func() interaction.Change { return s.ctrl.PointerMove(p) })
}

// PointerUp forwards a release at screen point p.
func (s *Session) PointerUp(p geom.Point) interaction.Change {
	return s.update(func() interaction.Change { return s.ctrl.PointerUp(p) })
}

// Wheel forwards a wheel event at screen point p.
func (s *Session) Wheel(deltaY float64, p geom.Point) interaction.Change {
	return s.update(func() interaction.Change { return s.ctrl.Wheel(deltaY, p) })
}

// Key forwards a keyboard command.
func (s *Session) Key(k interaction.Key) interaction.Change {
	return s.update(func() interaction.Change { return s.ctrl.Key(k) })
}

// =============================================================================
// Programmatic selection and dragging
// =============================================================================

// SelectNode selects a node, adding to the selection when additive is set.
func (s *Session) SelectNode(id string, additive bool) interaction.Change {
	return s.update(func() interaction.Change { return s.ctrl.SelectNode(id, additive) })
}

// SelectEdge selects an edge, adding to the selection when additive is set.
func (s *Session) SelectEdge(id string, additive bool) interaction.Change {
	return s.update(func() interaction.Change { return s.ctrl.SelectEdge(id, additive) })
}

// ClearSelection deselects everything.
func (s *Session) ClearSelection() interaction.Change {
	return s.update(s.ctrl.ClearSelection)
}

// HoverNode marks a node as hovered; "" clears hover.
func (s *Session) HoverNode(id string) interaction.Change {
	return s.update(func() interaction.Change { return s.ctrl.HoverNode(id) })
}

// StartDrag begins dragging a node from world point p.
func (s *Session) StartDrag(id string, p geom.Point) interaction.Change {
	return s.update(func() interaction.Change { return s.ctrl.StartDrag(id, p) })
}

// UpdateDrag moves the dragged node to follow world point p.
func (s *Session) UpdateDrag(p geom.Point) interaction.Change {
	return s.update(func() interaction.Change { return s.ctrl.UpdateDrag(p) })
}

// EndDrag finishes a drag. Positions are not persisted.
func (s *Session) EndDrag() interaction.Change {
	return s.update(s.ctrl.EndDrag)
}

// MoveNode places a node at an absolute world position, as a drag would.
func (s *Session) MoveNode(id string, p geom.Point) interaction.Change {
	return s.update(func() interaction.Change {
		n := s.ctrl.Data().Node(id)
		if n == nil || n.Position == p {
			return interaction.ChangeNone
		}
		n.Position = p
		return interaction.ChangePositions
	})
}
