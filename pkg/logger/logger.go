// Package logger provides structured logging utilities.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName tags every production log line.
const ServiceName = "supportbot"

// Logger is a wrapper around zap.Logger.
type Logger struct {
	*zap.Logger
}

// New creates a JSON logger writing to stdout. Unknown levels fall back to
// info.
func New(level string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "ts"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeDuration = zapcore.MillisDurationEncoder

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         "json",
		EncoderConfig:    encoder,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    map[string]interface{}{"service": ServiceName},
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger}, nil
}

// NewDevelopment creates a colored console logger on stderr, keeping stdout
// free for command output.
func NewDevelopment() (*Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger}, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// With creates a child logger with additional fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named creates a child logger for a component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{Logger: l.Logger.Named(component)}
}

// WithConversation tags log lines with the helpdesk conversation and inbox.
func (l *Logger) WithConversation(conversationID, inboxID string) *Logger {
	fields := []zap.Field{zap.String("conversation_id", conversationID)}
	if inboxID != "" {
		fields = append(fields, zap.String("inbox_id", inboxID))
	}
	return l.With(fields...)
}

// WithRequest tags log lines with the request correlation id and, for
// authenticated dashboard calls, the token subject.
func (l *Logger) WithRequest(correlationID, subject string) *Logger {
	fields := []zap.Field{zap.String("correlation_id", correlationID)}
	if subject != "" {
		fields = append(fields, zap.String("subject", subject))
	}
	return l.With(fields...)
}

var global = NewNop()

func init() {
	var (
		l   *Logger
		err error
	)
	if os.Getenv("ENV") == "development" {
		l, err = NewDevelopment()
	} else {
		l, err = New(os.Getenv("LOG_LEVEL"))
	}
	if err == nil {
		global = l
	}
}

// Global returns the process-wide logger.
func Global() *Logger {
	return global
}

// SetGlobal replaces the process-wide logger.
func SetGlobal(l *Logger) {
	global = l
}
