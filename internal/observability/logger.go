// Package observability sets up riftcrawl's logging: go.uber.org/zap
// for structured logging, writing through
// gopkg.in/natefinch/lumberjack.v2 for size-based file rotation so a
// long-running crawl does not grow one unbounded log file.
package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CLILogger is the process-wide logger internal/cmd reaches for before
// Init has run (e.g. to report a configuration error that prevents
// building a real one). Init replaces it with a fully configured logger.
var CLILogger = zap.NewNop()

// FileConfig configures lumberjack's size-based log rotation.
type FileConfig struct {
	// Path is the log file to write to. Empty disables file output;
	// logs go to stderr only.
	Path string

	MaxSizeMB  int // default 100
	MaxBackups int // default 5
	MaxAgeDays int // default 28
	Compress   bool
}

// Init builds the process logger for level (the logging_level config
// key, one of the standard level names) and installs it as CLILogger.
// It returns a sync func the caller should defer.
func Init(level string, file FileConfig) (*zap.Logger, func(), error) {
	atomicLevel := zap.NewAtomicLevel()
	atomicLevel.SetLevel(parseLevel(level))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		atomicLevel,
	)

	cores := []zapcore.Core{consoleCore}
	if file.Path != "" {
		lj := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    orDefault(file.MaxSizeMB, 100),
			MaxBackups: orDefault(file.MaxBackups, 5),
			MaxAge:     orDefault(file.MaxAgeDays, 28),
			Compress:   file.Compress,
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(lj),
			atomicLevel,
		)
		cores = append(cores, fileCore)
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	CLILogger = logger

	return logger, func() { _ = logger.Sync() }, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// parseLevel maps a logging_level name onto a zapcore.Level. NOTSET,
// the default, maps to Info: quiet but not silent.
func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARNING", "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "CRITICAL", "FATAL":
		return zapcore.FatalLevel
	case "INFO", "NOTSET", "":
		return zapcore.InfoLevel
	default:
		return zapcore.InfoLevel
	}
}
