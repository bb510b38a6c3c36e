// Package pkg provides the libraries behind schemagraph, an entity-relationship
// diagram engine for relational database schemas.
//
// # Overview
//
// Schemagraph reads table metadata from a live database or a catalog file,
// turns it into a diagram of table nodes and foreign-key edges, positions
// the nodes with one of four layout algorithms and renders the result. The
// same diagram can be explored interactively: selection, hover, dragging,
// pan and zoom all operate on one shared model.
//
// # Architecture
//
// The data flow through schemagraph:
//
//	Database / catalog file
//	         ↓
//	    [schema] package (tables, columns, indexes, foreign keys)
//	         ↓
//	    [diagram] package (nodes, edges, colors, sizes)
//	         ↓
//	    [layout] package (hierarchical, force, grid, circular)
//	         ↓
//	    [export] package (SVG, PNG, PDF, DOT, JSON)
//
// [pipeline] runs these stages with caching and is shared by the CLI and the
// HTTP server. [session] wraps a pipeline runner with a viewport and an
// [interaction] controller and is what interactive hosts drive.
//
// # Quick Start
//
// Render a catalog file to SVG:
//
//	reg := schema.NewRegistry()
//	reg.RegisterDriver("catalog", catalog.NewSource(reg))
//	reg.AddConnection(schema.Connection{ID: "shop", Driver: "catalog", DSN: "shop.toml"})
//
//	runner := pipeline.NewRunner(reg, cache.NewNullCache(), cache.NewDefaultKeyer(), nil)
//	res, _ := runner.Execute(ctx, pipeline.Options{
//	    ConnectionID: "shop",
//	    Schemas:      []string{"public"},
//	    Formats:      []string{"svg"},
//	})
//	os.WriteFile("shop.svg", res.Artifacts["svg"], 0o644)
//
// # Main Packages
//
// ## Model
//
// [geom] - World-space points, sizes and rectangles.
//
// [diagram] - Table nodes, relationship edges, display options and the
// builder that derives them from schema metadata.
//
// [layout] - Layout algorithms and foreign-key cycle detection.
//
// [viewport] - Pan and zoom between world and screen space.
//
// [hittest] - Node and edge queries at a world point.
//
// [interaction] - Pointer and keyboard state machine.
//
// ## Sources and Output
//
// [schema] - The read-only schema collaborator with postgres, sqlite and
// catalog drivers.
//
// [export] - Serializers for a positioned diagram.
//
// [fonts] - Fonts embedded for raster export.
//
// ## Infrastructure
//
// [pipeline] - Generate, layout and export with caching.
//
// [cache] - Layout and artifact caches.
//
// [storage] - Key-value stores (file, memory, sqlite, redis, mongo).
//
// [persist] - Saved diagram configurations on top of a store.
//
// [session] - Host-facing engine API.
//
// [server] - HTTP API over the pipeline and saved configurations.
//
// [retry] - Retries for transient connection failures.
//
// [config], [errors], [observability] and [buildinfo] carry configuration,
// structured errors, hooks and version data.
//
// # Testing
//
// Run tests:
//
//	go test ./...                        # All tests
//	go test ./pkg/layout/...             # Specific package
//	go test -run Example ./pkg/...       # Examples only
//	go test -tags integration ./pkg/...  # Include container-backed tests
package pkg
