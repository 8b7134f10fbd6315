package checks

import (
	"log/slog"
	"sync"

	"github.com/tphakala/roofsolar/internal/logging"
)

// Package-level logger specific to the checks
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
	loggerOnce      sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLevelVar.Set(slog.LevelInfo)
		logger, closeLogger = logging.NewServiceLogger("checks", serviceLevelVar)
	})
	return logger
}

// SetLogLevel changes the checks log level.
func SetLogLevel(level slog.Level) {
	serviceLevelVar.Set(level)
}

// CloseLogger flushes and closes the checks log file.
func CloseLogger() error {
	getLogger()
	return closeLogger()
}
