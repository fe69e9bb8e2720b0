// Package common provides the shared logging infrastructure for the loupe-go
// client and CLI. It routes error-level output to stderr while all other
// levels go to stdout, which keeps error streams separable in scripted and
// containerized environments.
//
// The logging system is built on logrus. A global Logger instance is provided
// for consistent usage across packages; callers that need their own instance
// (custom level, JSON format, service fields) use NewLogger.
package common

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes formatted log output to stdout or stderr based on the
// log level embedded in the message.
//
// Routing:
//   - messages containing "level=error" → stderr
//   - everything else (debug, info, warn) → stdout
//
// The pattern match works on the final formatted output, so it is compatible
// with both the text and JSON logrus formatters.
//
// Stdout and Stderr default to the process streams when nil.
type OutputSplitter struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Write implements io.Writer. It inspects the formatted log entry and selects
// the output stream. Safe for concurrent use; it only reads the input and
// writes to the thread-safe OS streams.
func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if isErrorEntry(p) {
		if splitter.Stderr != nil {
			return splitter.Stderr.Write(p)
		}
		return os.Stderr.Write(p)
	}
	if splitter.Stdout != nil {
		return splitter.Stdout.Write(p)
	}
	return os.Stdout.Write(p)
}

// isErrorEntry reports whether a formatted log entry carries the error level,
// in either text or JSON formatter output.
func isErrorEntry(p []byte) bool {
	return bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte(`"level":"error"`))
}

// Logger is the global logger instance shared by the client and CLI.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
	Logger.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})
}

// LogLevel represents standard logging levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LoggerConfig contains configuration for creating a logger
type LoggerConfig struct {
	Level      LogLevel // Minimum log level
	Format     string   // "json" or "text"
	Service    string   // Service name added to all entries
	TimeFormat string   // Time format for logs
}

// DefaultLoggerConfig returns a logger config with sensible defaults
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:      LogLevelInfo,
		Format:     "text",
		Service:    "",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger creates a new configured logger instance
func NewLogger(config LoggerConfig) *logrus.Logger {
	logger := logrus.New()

	switch config.Level {
	case LogLevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LogLevelInfo:
		logger.SetLevel(logrus.InfoLevel)
	case LogLevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LogLevelError:
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: config.TimeFormat,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: config.TimeFormat,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(&OutputSplitter{})

	if config.Service != "" {
		logger.AddHook(&serviceHook{service: config.Service})
	}

	return logger
}

// serviceHook stamps every entry with the service name.
type serviceHook struct {
	service string
}

func (h *serviceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *serviceHook) Fire(entry *logrus.Entry) error {
	entry.Data["service"] = h.service
	return nil
}

// SetLogLevel adjusts the global Logger level from its string representation.
// Unknown levels fall back to info.
func SetLogLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	Logger.SetLevel(parsed)
}

// SetLogFormat switches the global Logger between text and JSON output.
// Anything other than "json" selects the text formatter.
func SetLogFormat(format string) {
	if format == "json" {
		Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
		return
	}
	Logger.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})
}
