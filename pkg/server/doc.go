// Package server exposes the diagram pipeline and saved diagrams over HTTP.
//
// Routes:
//
//	GET    /healthz                         liveness and build info
//	POST   /api/v1/diagrams                 generate and lay out, returns diagram JSON
//	POST   /api/v1/diagrams/export?format=  generate, lay out and export
//	GET    /api/v1/configs?connection=      list saved diagrams, newest first
//	POST   /api/v1/configs                  save a new diagram
//	GET    /api/v1/configs/{id}             load a saved diagram
//	PUT    /api/v1/configs/{id}             create or replace a saved diagram
//	DELETE /api/v1/configs/{id}             delete a saved diagram
//	GET    /api/v1/configs/{id}/export      export a saved diagram with its positions
//
// Request bodies for the diagram routes are [pipeline.Options] in JSON.
// Errors are returned as {"error": {"code": ..., "message": ...}} with a
// status derived from the error code.
package server
