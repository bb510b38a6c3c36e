package interaction

import (
	"strings"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/geom"
	"github.com/matzehuels/schemagraph/pkg/hittest"
	"github.com/matzehuels/schemagraph/pkg/viewport"
)

// =============================================================================
// States and Changes
// =============================================================================

// State is the pointer state of a controller.
type State int

const (
	Idle State = iota
	Panning
	Dragging
)

func (s State) String() string {
	switch s {
	case Panning:
		return "panning"
	case Dragging:
		return "dragging"
	default:
		return "idle"
	}
}

// Change is a bitmask of what an operation modified.
type Change uint8

const (
	ChangeSelection Change = 1 << iota
	ChangeHover
	ChangePositions
	ChangeViewport

	// ChangeDiagram is reported by hosts when the whole diagram was
	// replaced; the controller itself never returns it.
	ChangeDiagram

	// ChangeNone is returned when nothing changed.
	ChangeNone Change = 0
)

// Has reports whether c includes every bit of other.
func (c Change) Has(other Change) bool { return c&other == other && other != 0 }

func (c Change) String() string {
	if c == ChangeNone {
		return "none"
	}
	var parts []string
	for _, b := range []struct {
		bit  Change
		name string
	}{
		{ChangeSelection, "selection"},
		{ChangeHover, "hover"},
		{ChangePositions, "positions"},
		{ChangeViewport, "viewport"},
		{ChangeDiagram, "diagram"},
	} {
		if c&b.bit != 0 {
			parts = append(parts, b.name)
		}
	}
	return strings.Join(parts, "|")
}

// Modifiers are the keyboard modifiers held during a pointer event.
type Modifiers struct {
	// Multi toggles membership instead of replacing the selection.
	Multi bool
}

// Key is a keyboard command.
type Key int

const (
	KeyEscape Key = iota + 1
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeySelectAll
)

// WheelFactor is the zoom step applied per wheel event.
const WheelFactor = 1.1

// NudgeStep is the arrow-key step when snapping is off.
const NudgeStep = 10.0

// =============================================================================
// Controller
// =============================================================================

// Controller owns the interaction state for one diagram and viewport. It is
// not safe for concurrent use; hosts serialize calls.
type Controller struct {
	data      *diagram.Data
	view      *viewport.Viewport
	tolerance float64

	state  State
	dragID string
	offset geom.Point // world pointer minus node position at drag start
	last   geom.Point // last pointer position in screen space
}

// Option configures a controller.
type Option func(*Controller)

// WithEdgeTolerance sets the edge hit distance in world units.
func WithEdgeTolerance(tol float64) Option {
	return func(c *Controller) {
		if tol > 0 {
			c.tolerance = tol
		}
	}
}

// New creates a controller over data and view. A nil view gets an identity
// viewport.
func New(data *diagram.Data, view *viewport.Viewport, opts ...Option) *Controller {
	if view == nil {
		v := viewport.New()
		view = &v
	}
	if data == nil {
		data = &diagram.Data{}
	}
	c := &Controller{data: data, view: view, tolerance: hittest.DefaultEdgeTolerance}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetData replaces the diagram and returns to Idle.
func (c *Controller) SetData(d *diagram.Data) {
	if d == nil {
		d = &diagram.Data{}
	}
	c.data = d
	c.reset()
}

// Data returns the diagram the controller operates on.
func (c *Controller) Data() *diagram.Data { return c.data }

// Viewport returns the controlled viewport.
func (c *Controller) Viewport() *viewport.Viewport { return c.view }

// State returns the current pointer state.
func (c *Controller) State() State { return c.state }

// DraggingID returns the id of the node being dragged, or "".
func (c *Controller) DraggingID() string { return c.dragID }

func (c *Controller) reset() {
	c.state = Idle
	c.dragID = ""
	c.offset = geom.Point{}
}

// =============================================================================
// Pointer Events
// =============================================================================

// PointerDown handles a press at screen point p. It is ignored unless the
// controller is Idle.
func (c *Controller) PointerDown(p geom.Point, mods Modifiers) Change {
	if c.state != Idle {
		return ChangeNone
	}
	c.last = p
	world := c.view.ScreenToWorld(p)
	hit := hittest.At(c.data, world, c.tolerance)

	switch {
	case hit.Node != nil:
		ch := c.SelectNode(hit.Node.ID, mods.Multi)
		c.state = Dragging
		c.dragID = hit.Node.ID
		c.offset = world.Sub(hit.Node.Position)
		return ch
	case hit.Edge != nil:
		return c.SelectEdge(hit.Edge.ID, mods.Multi)
	default:
		ch := c.ClearSelection()
		c.state = Panning
		return ch
	}
}

// PointerMove handles motion to screen point p: pans or drags depending on
// state, then recomputes hover.
func (c *Controller) PointerMove(p geom.Point) Change {
	ch := ChangeNone
	switch c.state {
	case Panning:
		if c.view.Pan(p.X-c.last.X, p.Y-c.last.Y) {
			ch |= ChangeViewport
		}
	case Dragging:
		ch |= c.UpdateDrag(c.view.ScreenToWorld(p))
	}
	c.last = p

	world := c.view.ScreenToWorld(p)
	hit := hittest.At(c.data, world, c.tolerance)
	var nodeID, edgeID string
	if hit.Node != nil {
		nodeID = hit.Node.ID
	}
	if hit.Edge != nil {
		edgeID = hit.Edge.ID
	}
	return ch | c.setHover(nodeID, edgeID)
}

// PointerUp ends a pan or drag. Positions are not persisted.
func (c *Controller) PointerUp(geom.Point) Change {
	c.reset()
	return ChangeNone
}

// Wheel zooms around screen point p: scrolling up (deltaY < 0) zooms in by
// WheelFactor, scrolling down zooms out.
func (c *Controller) Wheel(deltaY float64, p geom.Point) Change {
	var factor float64
	switch {
	case deltaY < 0:
		factor = WheelFactor
	case deltaY > 0:
		factor = 1 / WheelFactor
	default:
		return ChangeNone
	}
	if c.view.ZoomAt(factor, p) {
		return ChangeViewport
	}
	return ChangeNone
}

// =============================================================================
// Keyboard
// =============================================================================

// Key applies a keyboard command. Escape clears the selection and aborts any
// pan or drag; arrows nudge the selected nodes by one grid unit (or
// NudgeStep when snapping is off).
func (c *Controller) Key(k Key) Change {
	switch k {
	case KeyEscape:
		c.reset()
		return c.ClearSelection()
	case KeySelectAll:
		return c.SelectAll()
	case KeyUp:
		return c.Nudge(0, -1)
	case KeyDown:
		return c.Nudge(0, 1)
	case KeyLeft:
		return c.Nudge(-1, 0)
	case KeyRight:
		return c.Nudge(1, 0)
	}
	return ChangeNone
}

// Nudge moves every selected node by (dx, dy) steps.
func (c *Controller) Nudge(dx, dy float64) Change {
	step := NudgeStep
	if c.data.Options.SnapToGrid && c.data.Options.GridSize > 0 {
		step = c.data.Options.GridSize
	}
	delta := geom.Point{X: dx * step, Y: dy * step}
	if delta == (geom.Point{}) {
		return ChangeNone
	}
	ch := ChangeNone
	for _, n := range c.data.SelectedNodes() {
		n.Position = n.Position.Add(delta)
		ch = ChangePositions
	}
	return ch
}

// =============================================================================
// Programmatic API
// =============================================================================

// SelectNode selects the node with the given id. With additive set it
// toggles the node's membership; otherwise it replaces the selection.
func (c *Controller) SelectNode(id string, additive bool) Change {
	n := c.data.Node(id)
	if n == nil {
		return ChangeNone
	}
	if additive {
		n.Selected = !n.Selected
		return ChangeSelection
	}
	if soleSelection(c.data, n, nil) {
		return ChangeNone
	}
	c.data.ClearSelection()
	n.Selected = true
	return ChangeSelection
}

// soleSelection reports whether exactly the given node or edge is selected.
func soleSelection(d *diagram.Data, node *diagram.TableNode, edge *diagram.RelationshipEdge) bool {
	for _, n := range d.Nodes {
		if n.Selected != (n == node) {
			return false
		}
	}
	for _, e := range d.Edges {
		if e.Selected != (e == edge) {
			return false
		}
	}
	return true
}

// SelectEdge selects the edge with the given id, replacing or toggling like
// SelectNode.
func (c *Controller) SelectEdge(id string, additive bool) Change {
	e := c.data.Edge(id)
	if e == nil {
		return ChangeNone
	}
	if additive {
		e.Selected = !e.Selected
		return ChangeSelection
	}
	if soleSelection(c.data, nil, e) {
		return ChangeNone
	}
	c.data.ClearSelection()
	e.Selected = true
	return ChangeSelection
}

// ClearSelection deselects everything.
func (c *Controller) ClearSelection() Change {
	if c.data.ClearSelection() {
		return ChangeSelection
	}
	return ChangeNone
}

// SelectAll selects every node.
func (c *Controller) SelectAll() Change {
	ch := ChangeNone
	for _, n := range c.data.Nodes {
		if !n.Selected {
			n.Selected = true
			ch = ChangeSelection
		}
	}
	return ch
}

// HoverNode marks the node with the given id as the only hovered node. An
// empty or unknown id clears node hover.
func (c *Controller) HoverNode(id string) Change {
	edgeID := ""
	if e := c.data.HoveredEdge(); e != nil {
		edgeID = e.ID
	}
	return c.setHover(id, edgeID)
}

// HoverEdge marks the edge with the given id as the only hovered edge.
func (c *Controller) HoverEdge(id string) Change {
	nodeID := ""
	if n := c.data.HoveredNode(); n != nil {
		nodeID = n.ID
	}
	return c.setHover(nodeID, id)
}

func (c *Controller) setHover(nodeID, edgeID string) Change {
	ch := ChangeNone
	for _, n := range c.data.Nodes {
		want := n.ID == nodeID
		if n.Hovered != want {
			n.Hovered = want
			ch = ChangeHover
		}
	}
	for _, e := range c.data.Edges {
		want := e.ID == edgeID
		if e.Hovered != want {
			e.Hovered = want
			ch = ChangeHover
		}
	}
	return ch
}

// StartDrag begins dragging the node with the given id from world point p.
// It is ignored for unknown ids.
func (c *Controller) StartDrag(id string, p geom.Point) Change {
	n := c.data.Node(id)
	if n == nil {
		return ChangeNone
	}
	c.state = Dragging
	c.dragID = id
	c.offset = p.Sub(n.Position)
	return ChangeNone
}

// UpdateDrag moves the dragged node so that the grab offset stays under
// world point p, snapping to the grid when enabled.
func (c *Controller) UpdateDrag(p geom.Point) Change {
	if c.state != Dragging {
		return ChangeNone
	}
	n := c.data.Node(c.dragID)
	if n == nil {
		c.reset()
		return ChangeNone
	}
	pos := p.Sub(c.offset)
	if c.data.Options.SnapToGrid {
		pos = geom.SnapPoint(pos, c.data.Options.GridSize)
	}
	if pos == n.Position {
		return ChangeNone
	}
	n.Position = pos
	return ChangePositions
}

// EndDrag finishes a drag and returns to Idle.
func (c *Controller) EndDrag() Change {
	if c.state == Dragging {
		c.reset()
	}
	return ChangeNone
}
