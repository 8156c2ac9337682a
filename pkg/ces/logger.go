package ces

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards every entry.
type NopLogger struct{}

// Debug discards the entry.
func (NopLogger) Debug(string, map[string]interface{}) {}

// Info discards the entry.
func (NopLogger) Info(string, map[string]interface{}) {}

// Warn discards the entry.
func (NopLogger) Warn(string, map[string]interface{}) {}

// Error discards the entry.
func (NopLogger) Error(string, map[string]interface{}) {}

// LoggerOrNop returns logger, or a NopLogger when logger is nil.
func LoggerOrNop(logger Logger) Logger {
	if logger == nil {
		return NopLogger{}
	}

	return logger
}

// ZerologLogger adapts a zerolog.Logger to Logger.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps logger.
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// NewJSONLogger writes JSON lines to w at info level, or debug level when debug is set.
func NewJSONLogger(w io.Writer, debug bool) *ZerologLogger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &ZerologLogger{logger: logger}
}

// NewConsoleLogger writes human readable lines to w.
func NewConsoleLogger(w io.Writer, debug bool) *ZerologLogger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}

	return &ZerologLogger{logger: zerolog.New(output).Level(level).With().Timestamp().Logger()}
}

// WithScope returns a logger tagging every entry with scope.
func (l *ZerologLogger) WithScope(scope string) *ZerologLogger {
	return &ZerologLogger{logger: l.logger.With().Str("scope", scope).Logger()}
}

// Debug logs at debug level.
func (l *ZerologLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug().Fields(fields).Msg(msg)
}

// Info logs at info level.
func (l *ZerologLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info().Fields(fields).Msg(msg)
}

// Warn logs at warn level.
func (l *ZerologLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn().Fields(fields).Msg(msg)
}

// Error logs at error level.
func (l *ZerologLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error().Fields(fields).Msg(msg)
}
