package raytrace

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/raytrace/internal/gpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by the raytrace package and by
// internal/gpu (grid, pack and traversal do not log). By default no log
// output is produced. Pass nil to restore the silent default.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
//
// Log levels:
//   - [slog.LevelDebug]: internal diagnostics (skipped degenerate primitives, shader validation, dispatch)
//   - [slog.LevelInfo]: lifecycle events (GPU traversal pipeline initialized)
//   - [slog.LevelWarn]: non-fatal diagnostics from spec.md §7 (cell-size clamp,
//     dimension clamp, fine-cell overflow, grid rebuild falling back to the
//     previous scene)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
}

// Logger returns the current package-wide logger.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
