package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "BESTWAY_LOG_LEVEL"

// maxLoggedBody limits how much of an API response body is logged
const maxLoggedBody = 512

// Initialize creates a new logger with the specified level.
// If level is empty, it checks BESTWAY_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		// Unknown level - use info as default when explicitly set to something
		return zapcore.InfoLevel
	}
}

// InitializeFromEnv initializes the logger from the BESTWAY_LOG_LEVEL
// environment variable.
func InitializeFromEnv() error {
	return Initialize("")
}

// SetLogger replaces the global logger (tests use zaptest/observer cores)
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Fallback to silent logger if not initialized
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogAPIRequest logs an outbound request to the spa cloud
func LogAPIRequest(op, endpoint string, authenticated bool) {
	Debug("API request",
		zap.String("op", op),
		zap.String("endpoint", endpoint),
		zap.Bool("authenticated", authenticated),
	)
}

// LogAPIResponse logs a spa cloud response. The body is truncated, and
// replaced entirely when sensitive is set.
func LogAPIResponse(op string, statusCode int, elapsed time.Duration, body []byte, sensitive bool) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("status_code", statusCode),
		zap.Duration("elapsed", elapsed),
		zap.Int("length", len(body)),
	}
	if GetLogger().Core().Enabled(zapcore.DebugLevel) {
		if sensitive {
			fields = append(fields, zap.String("body", "[redacted]"))
		} else {
			fields = append(fields, zap.String("body", truncate(body)))
		}
	}
	Debug("API response", fields...)
}

// LogCommand logs a state change issued on behalf of a user
func LogCommand(id, key string, value int, err error) {
	if err != nil {
		Warn("Spa command failed",
			zap.String("command_id", id),
			zap.String("key", key),
			zap.Int("value", value),
			zap.Error(err),
		)
		return
	}
	Info("Spa command sent",
		zap.String("command_id", id),
		zap.String("key", key),
		zap.Int("value", value),
	)
}

// Redact masks a secret, keeping the first and last two characters
func Redact(secret string) string {
	if len(secret) <= 6 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "..."
	}
	return string(body)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
