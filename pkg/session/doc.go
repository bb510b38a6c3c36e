// Package session is the host-facing API of the diagram engine.
//
// A [Session] owns one live diagram together with its viewport and
// interaction state. Hosts (the terminal viewer, the HTTP server, tests)
// create a session, generate a diagram into it, and then forward input
// events and commands. There is no process-wide state: each session is an
// explicit value owned by its caller, and all methods are safe for
// concurrent use.
//
// # Generation and supersession
//
// [Session.Generate] is the one asynchronous boundary. Every call takes a
// new generation number; when a call finishes after a newer one has
// started, its result is discarded and it returns a SUPERSEDED error. A
// failed generation leaves the previous diagram in place.
//
// # Change notification
//
// Mutating methods return an [interaction.Change] bitmask, set the dirty
// flag and notify subscribers. Hosts either poll [Session.Dirty] and call
// [Session.ClearDirty] after repainting, or register with
// [Session.Subscribe]. Subscribers run on the caller's goroutine after the
// session lock is released, so they may call back into the session.
//
// # Persistence
//
// Dragging nodes never saves anything. [Session.SaveConfig] copies the
// current positions and viewport into a [diagram.Config] and hands it to
// the repository; [Session.ApplyConfig] regenerates a saved diagram and
// restores its positions and viewport.
package session
