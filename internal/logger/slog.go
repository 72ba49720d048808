package logger

import (
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

// Slog bridges a zap logger into log/slog for components that accept *slog.Logger.
// Records keep the zap core, level and sinks of the source logger.
func Slog(l *zap.Logger, name string) *slog.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return slog.New(zapslog.NewHandler(l.Core(), zapslog.WithName(name)))
}
