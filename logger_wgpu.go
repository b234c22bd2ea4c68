//go:build !nogpu

package raytrace

import (
	"log/slog"

	"github.com/gogpu/raytrace/backend/wgpu"
)

func setBackendLogger(l *slog.Logger) { wgpu.SetLogger(l) }
