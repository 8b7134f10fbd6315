package pvwatts

import (
	"log/slog"
	"sync"

	"github.com/tphakala/roofsolar/internal/logging"
)

// Package-level logger specific to the pvwatts service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar) // Dynamic level control
	closeLogger     func() error
	loggerOnce      sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLevelVar.Set(slog.LevelInfo)
		logger, closeLogger = logging.NewServiceLogger("pvwatts", serviceLevelVar)
	})
	return logger
}

// SetLogLevel changes the pvwatts log level.
func SetLogLevel(level slog.Level) {
	serviceLevelVar.Set(level)
}

