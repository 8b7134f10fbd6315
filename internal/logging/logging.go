package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tphakala/roofsolar/internal/conf"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	loggerMu            sync.RWMutex
	structuredLogger    *slog.Logger
	humanReadableLogger *slog.Logger
	globalLevel         = new(slog.LevelVar)
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// Add trace and fatal level names.
var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

// replaceLevelAttr renders the custom TRACE and FATAL levels by name.
func replaceLevelAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level, ok := a.Value.Any().(slog.Level)
		if !ok {
			return a
		}
		levelLabel, exists := levelNames[level]
		if !exists {
			levelLabel = level.String()
		}
		a.Value = slog.StringValue(levelLabel)
	}
	return a
}

// Init initializes the logging system with structured and human-readable loggers.
// Both write to stderr, stdout carries the reports.
func Init() {
	SetOutput(os.Stderr, os.Stderr)
}

// SetLevel changes the minimum level of the global loggers.
func SetLevel(level slog.Level) {
	globalLevel.Set(level)
}

// SetOutput redirects the global loggers, e.g. to a buffer in tests.
func SetOutput(structuredOutput, humanReadableOutput io.Writer) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	structuredLogger = slog.New(slog.NewJSONHandler(structuredOutput, &slog.HandlerOptions{
		Level:       globalLevel,
		ReplaceAttr: replaceLevelAttr,
	}))
	humanReadableLogger = slog.New(slog.NewTextHandler(humanReadableOutput, &slog.HandlerOptions{
		Level:       globalLevel,
		ReplaceAttr: replaceLevelAttr,
	}))

	slog.SetDefault(structuredLogger)
}

// Structured returns the globally configured structured (JSON) logger.
// Returns nil if Init() has not been called.
func Structured() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return structuredLogger
}

// HumanReadable returns the globally configured human-readable (Text) logger.
// Returns nil if Init() has not been called.
func HumanReadable() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return humanReadableLogger
}

// ForService creates a new logger instance with the 'service' attribute added.
// Returns nil if Init() has not been called.
func ForService(serviceName string) *slog.Logger {
	l := Structured()
	if l == nil {
		return nil
	}
	return l.With("service", serviceName)
}

// ParseLevel maps a configured level name to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "fatal":
		return LevelFatal
	default:
		return slog.LevelInfo
	}
}

// rotationFor translates the log configuration into lumberjack limits.
func rotationFor(logConf conf.LogConfig) (maxSizeMB, maxBackups, maxAge int) {
	maxSizeMB = 100
	maxBackups = 3
	maxAge = 28 // days

	if configMaxSizeMB := int(logConf.MaxSize / (1024 * 1024)); configMaxSizeMB > 0 {
		maxSizeMB = configMaxSizeMB
	}

	switch logConf.Rotation {
	case conf.RotationDaily:
		maxAge = 1
		maxBackups = 30
	case conf.RotationWeekly:
		maxAge = 7
		maxBackups = 4
	case conf.RotationSize:
	default:
		slog.Warn("Unknown log rotation type in config, using size-based defaults", "configuredType", logConf.Rotation)
	}
	return maxSizeMB, maxBackups, maxAge
}

// NewFileLogger creates a new slog.Logger instance configured to write JSON logs
// to the specified file path using lumberjack for rotation based on global config.
// It includes a 'service' attribute in all logs.
// It returns the logger, a function to close the underlying log writer, and an error if setup fails.
func NewFileLogger(filePath, serviceName string, level slog.Leveler) (*slog.Logger, func() error, error) {
	logConf := conf.LogConfig{Enabled: true, Rotation: conf.RotationDaily}
	if settings := conf.GetSettings(); settings != nil {
		logConf = settings.Log
	}

	if !logConf.Enabled {
		handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: level})
		return slog.New(handler).With("service", serviceName), func() error { return nil }, nil
	}

	if logConf.Path != "" && !filepath.IsAbs(filePath) {
		filePath = filepath.Join(logConf.Path, filepath.Base(filePath))
	}

	// lumberjack doesn't create directories
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	maxSizeMB, maxBackups, maxAge := rotationFor(logConf)
	logWriter := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
	}

	fileHandler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelAttr,
	})

	logger := slog.New(fileHandler).With("service", serviceName)
	return logger, logWriter.Close, nil
}

// NewServiceLogger wraps NewFileLogger with the fallback every service uses:
// when the file cannot be opened, logs are discarded rather than failing startup.
func NewServiceLogger(serviceName string, level *slog.LevelVar) (logger *slog.Logger, closeFn func() error) {
	logFilePath := filepath.Join("logs", serviceName+".log")
	logger, closeFn, err := NewFileLogger(logFilePath, serviceName, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize %s file logger at %s: %v. Service logging disabled.\n", serviceName, logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: level})
		return slog.New(fbHandler).With("service", serviceName), func() error { return nil }
	}
	return logger, closeFn
}
