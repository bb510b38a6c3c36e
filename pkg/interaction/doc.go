// Package interaction turns pointer and keyboard input into selection, hover,
// drag and viewport changes on a diagram.
//
// # State Machine
//
// A [Controller] is in one of three states:
//
//   - [Idle]: waiting for input.
//   - [Panning]: the pointer went down on empty canvas; moves pan the view.
//   - [Dragging]: the pointer went down on a node; moves reposition it.
//
// Pointer down is only handled in Idle. Pointer up returns to Idle without
// persisting anything; saving positions is a separate, explicit action.
// Hover is recomputed on every pointer move regardless of state, and the
// wheel zooms around the pointer in every state.
//
// # Change Reporting
//
// Every method returns a [Change] bitmask describing what it modified. Hosts
// redraw or notify subscribers based on it; nothing in this package renders.
//
// # Coordinates
//
// Pointer events carry screen coordinates and are mapped to world space
// through the controller's viewport. The programmatic drag API
// ([Controller.StartDrag], [Controller.UpdateDrag]) takes world coordinates.
package interaction
