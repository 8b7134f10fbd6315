package resolver

import (
	"log/slog"
	"sync"

	"github.com/tphakala/roofsolar/internal/logging"
)

// Package-level logger specific to the resolver
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
	loggerOnce      sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLevelVar.Set(slog.LevelInfo)
		logger, closeLogger = logging.NewServiceLogger("resolver", serviceLevelVar)
	})
	return logger
}

// SetLogLevel changes the resolver log level.
func SetLogLevel(level slog.Level) {
	serviceLevelVar.Set(level)
}

// CloseLogger flushes and closes the resolver log file.
func CloseLogger() error {
	getLogger()
	return closeLogger()
}
