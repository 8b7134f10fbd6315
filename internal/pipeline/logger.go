package pipeline

import (
	"log/slog"
	"sync"

	"github.com/tphakala/roofsolar/internal/logging"
)

// Package-level logger specific to the pipeline
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
	loggerOnce      sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLevelVar.Set(slog.LevelInfo)
		logger, closeLogger = logging.NewServiceLogger("pipeline", serviceLevelVar)
	})
	return logger
}

// SetLogLevel changes the pipeline log level.
func SetLogLevel(level slog.Level) {
	serviceLevelVar.Set(level)
}

// CloseLogger flushes and closes the pipeline log file.
func CloseLogger() error {
	getLogger()
	return closeLogger()
}
