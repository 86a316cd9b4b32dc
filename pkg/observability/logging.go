// Package observability provides structured logging for genoconv built on
// zap. A single process-wide logger is configured from the environment
// (LOG_LEVEL, LOG_FORMAT) and components derive scoped loggers from it.
package observability

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger   *zap.Logger
	loggerMu sync.RWMutex
)

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level       zapcore.Level
	Format      string // "json" or "console"
	OutputPaths []string
	ErrorPaths  []string
	Development bool
}

// DefaultLoggingConfig returns the logging configuration derived from the
// environment, defaulting to info-level JSON on stdout.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:       ParseLevel(getEnv("LOG_LEVEL", "info")),
		Format:      getEnv("LOG_FORMAT", "json"),
		OutputPaths: []string{"stdout"},
		ErrorPaths:  []string{"stderr"},
		Development: getEnv("ENVIRONMENT", "development") == "development",
	}
}

// InitLogging builds and installs the process-wide logger.
func InitLogging(config LoggingConfig) error {
	logConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(config.Level),
		Development: config.Development,
		Encoding:    config.Format,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      config.OutputPaths,
		ErrorOutputPaths: config.ErrorPaths,
	}

	if len(logConfig.OutputPaths) == 0 {
		logConfig.OutputPaths = []string{"stdout"}
	}
	if len(logConfig.ErrorOutputPaths) == 0 {
		logConfig.ErrorOutputPaths = []string{"stderr"}
	}

	built, err := logConfig.Build()
	if err != nil {
		return err
	}

	loggerMu.Lock()
	logger = built
	loggerMu.Unlock()
	zap.ReplaceGlobals(built)

	return nil
}

// GetLogger returns the process logger, initializing a default one on
// first use.
func GetLogger() *zap.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}

	// Lazily fall back to defaults so library use works without InitLogging.
	_ = InitLogging(DefaultLoggingConfig())

	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// NewComponentLogger returns a logger scoped to a named component.
func NewComponentLogger(component string) *zap.Logger {
	return GetLogger().With(zap.String("component", component))
}

// ParseLevel converts a level string to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// OperationLogger logs the lifecycle of one named operation, stamping
// every line with the operation and tracking elapsed time from creation.
type OperationLogger struct {
	logger    *zap.Logger
	operation string
	startTime time.Time
}

// NewOperationLogger derives an operation logger from a parent logger.
func NewOperationLogger(parent *zap.Logger, operation string) *OperationLogger {
	return &OperationLogger{
		logger:    parent.With(zap.String("operation", operation)),
		operation: operation,
		startTime: time.Now(),
	}
}

// Debug logs a debug message for the operation.
func (ol *OperationLogger) Debug(msg string, fields ...zap.Field) {
	ol.logger.Debug(msg, fields...)
}

// Info logs an info message for the operation.
func (ol *OperationLogger) Info(msg string, fields ...zap.Field) {
	ol.logger.Info(msg, fields...)
}

// Warn logs a warning message for the operation.
func (ol *OperationLogger) Warn(msg string, fields ...zap.Field) {
	ol.logger.Warn(msg, fields...)
}

// LogStart logs the start of the operation.
func (ol *OperationLogger) LogStart(msg string, fields ...zap.Field) {
	allFields := append(fields, zap.String("phase", "start"))
	ol.logger.Info(msg, allFields...)
}

// LogProgress logs progress through the operation.
func (ol *OperationLogger) LogProgress(msg string, progress float64, fields ...zap.Field) {
	allFields := append(fields,
		zap.String("phase", "progress"),
		zap.Float64("progress_percent", progress*100),
		zap.Duration("elapsed", time.Since(ol.startTime)),
	)
	ol.logger.Info(msg, allFields...)
}

// LogComplete logs successful completion with the total duration.
func (ol *OperationLogger) LogComplete(msg string, fields ...zap.Field) {
	allFields := append(fields,
		zap.String("phase", "complete"),
		zap.Duration("total_duration", time.Since(ol.startTime)),
	)
	ol.logger.Info(msg, allFields...)
}

// LogError logs an operation failure with the elapsed time before it.
func (ol *OperationLogger) LogError(msg string, err error, fields ...zap.Field) {
	allFields := append(fields,
		zap.String("phase", "error"),
		zap.Duration("duration_before_error", time.Since(ol.startTime)),
		zap.Error(err),
	)
	ol.logger.Error(msg, allFields...)
}
