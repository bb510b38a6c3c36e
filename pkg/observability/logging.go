package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Logging returns hooks that write every event to logger at debug level,
// and failures at warn.
func Logging(logger *log.Logger) Hooks {
	l := logHooks{logger: logger}
	return Hooks{Diagram: l, Storage: l, Cache: l}
}

type logHooks struct {
	logger *log.Logger
}

func (h logHooks) done(msg string, duration time.Duration, err error, kv ...any) {
	kv = append(kv, "duration", duration.Round(time.Millisecond))
	if err != nil {
		h.logger.Warn(msg+" failed", append(kv, "err", err)...)
		return
	}
	h.logger.Debug(msg, kv...)
}

func (h logHooks) OnGenerateStart(_ context.Context, connID string, schemas []string) {
	h.logger.Debug("generating diagram", "connection", connID, "schemas", schemas)
}

func (h logHooks) OnGenerateComplete(_ context.Context, connID string, tables, edges int, d time.Duration, err error) {
	h.done("generate", d, err, "connection", connID, "tables", tables, "edges", edges)
}

func (h logHooks) OnLayoutStart(_ context.Context, algorithm string, nodeCount int) {
	h.logger.Debug("computing layout", "algorithm", algorithm, "nodes", nodeCount)
}

func (h logHooks) OnLayoutComplete(_ context.Context, algorithm string, d time.Duration, err error) {
	h.done("layout", d, err, "algorithm", algorithm)
}

func (h logHooks) OnExportStart(_ context.Context, format string) {
	h.logger.Debug("exporting", "format", format)
}

func (h logHooks) OnExportComplete(_ context.Context, format string, size int, d time.Duration, err error) {
	h.done("export", d, err, "format", format, "bytes", size)
}

func (h logHooks) OnStorageOp(_ context.Context, op, key string, d time.Duration, err error) {
	h.done("storage "+op, d, err, "key", key)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}
