// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Components that do interesting work
// (sessions, the pipeline runner, persistence, the layout cache) accept a
// [Hooks] value and emit events through it.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Pass a [Hooks] bundle explicitly to the components that emit events
//
// There is no global registry: two sessions in one process can report to
// different backends.
//
// # Usage
//
// Build a bundle at startup and hand it to the components:
//
//	hooks := observability.Logging(logger)
//	sess := session.New(registry, session.WithHooks(hooks))
//
// Components call hooks around their work:
//
//	h.Diagram.OnLayoutStart(ctx, "force", len(nodes))
//	// ... run layout ...
//	h.Diagram.OnLayoutComplete(ctx, "force", time.Since(start), err)
package observability

import (
	"context"
	"time"
)

// =============================================================================
// Diagram Hooks
// =============================================================================

// DiagramHooks receives events from diagram generation, layout and export.
type DiagramHooks interface {
	// Generation events
	OnGenerateStart(ctx context.Context, connID string, schemas []string)
	OnGenerateComplete(ctx context.Context, connID string, tables, edges int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, algorithm string, nodeCount int)
	OnLayoutComplete(ctx context.Context, algorithm string, duration time.Duration, err error)

	// Export events
	OnExportStart(ctx context.Context, format string)
	OnExportComplete(ctx context.Context, format string, size int, duration time.Duration, err error)
}

// =============================================================================
// Storage Hooks
// =============================================================================

// StorageHooks receives events from saved-diagram persistence.
type StorageHooks interface {
	// OnStorageOp records one store operation ("save", "load", "list", "delete").
	OnStorageOp(ctx context.Context, op, key string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopDiagramHooks is a no-op implementation of DiagramHooks.
type NoopDiagramHooks struct{}

func (NoopDiagramHooks) OnGenerateStart(context.Context, string, []string) {}
func (NoopDiagramHooks) OnGenerateComplete(context.Context, string, int, int, time.Duration, error) {
}
func (NoopDiagramHooks) OnLayoutStart(context.Context, string, int)                          {}
func (NoopDiagramHooks) OnLayoutComplete(context.Context, string, time.Duration, error)      {}
func (NoopDiagramHooks) OnExportStart(context.Context, string)                               {}
func (NoopDiagramHooks) OnExportComplete(context.Context, string, int, time.Duration, error) {}

// NoopStorageHooks is a no-op implementation of StorageHooks.
type NoopStorageHooks struct{}

func (NoopStorageHooks) OnStorageOp(context.Context, string, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Bundle
// =============================================================================

// Hooks bundles one implementation per event category. Nil fields behave
// as no-ops after [Hooks.OrNoop].
type Hooks struct {
	Diagram DiagramHooks
	Storage StorageHooks
	Cache   CacheHooks
}

// Noop returns a bundle of no-op hooks.
func Noop() Hooks {
	return Hooks{
		Diagram: NoopDiagramHooks{},
		Storage: NoopStorageHooks{},
		Cache:   NoopCacheHooks{},
	}
}

// OrNoop returns h with nil fields replaced by no-op implementations.
func (h Hooks) OrNoop() Hooks {
	if h.Diagram == nil {
		h.Diagram = NoopDiagramHooks{}
	}
	if h.Storage == nil {
		h.Storage = NoopStorageHooks{}
	}
	if h.Cache == nil {
		h.Cache = NoopCacheHooks{}
	}
	return h
}
