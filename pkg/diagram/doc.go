// Package diagram holds the entity-relationship diagram model and the
// builder that derives it from schema metadata.
//
// # Model
//
// A [Data] is a flat list of [TableNode] values (one per table) and
// [RelationshipEdge] values (one per foreign key). Nodes carry world-space
// positions and sizes; edges reference nodes by id. The model is mutated in
// place by the layout engine (bulk repositioning) and by the interaction
// controller (dragging, selection and hover flags), and is replaced wholesale
// whenever the schema or the display [Options] change.
//
// # Building
//
// [Build] converts fetched tables, foreign keys and indexes into a Data:
//
//	snap, err := schema.Fetch(ctx, src, req)
//	if err != nil {
//	    return err
//	}
//	data := diagram.Build(snap.Tables, snap.ForeignKeys, snap.Indexes, diagram.DefaultOptions())
//
// Node sizes are derived from the visible rows and never change afterwards.
// Foreign keys whose referenced table was not fetched are dropped, so every
// edge in a Data always references two nodes of the same Data.
//
// # Persistence
//
// A [Config] is the explicitly-saved snapshot of a diagram: which
// connection and schemas it shows, its options, node positions and
// viewport. Dragging nodes never updates a Config implicitly.
package diagram
