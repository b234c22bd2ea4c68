//go:build nogpu

package raytrace

import "log/slog"

func setBackendLogger(*slog.Logger) {}
