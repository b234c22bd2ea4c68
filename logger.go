package raytrace

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/raytrace/accel"
	"github.com/gogpu/raytrace/graphics"
	"github.com/gogpu/raytrace/pipeline"
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
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for raytrace and its sub-packages
// (graphics, accel, pipeline, backend/wgpu). By default nothing is logged.
//
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by raytrace:
//   - [slog.LevelDebug]: sizes, offsets and descriptor handles
//   - [slog.LevelInfo]: lifecycle events (pipeline created, structures built)
//   - [slog.LevelWarn]: non-fatal issues (ray tracing unsupported, upload ring overrun)
//
// Example:
//
//	raytrace.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	graphics.SetLogger(l)
	accel.SetLogger(l)
	pipeline.SetLogger(l)
	setBackendLogger(l)
}

// Logger returns the current logger used by raytrace.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func slogger() *slog.Logger { return loggerPtr.Load() }
