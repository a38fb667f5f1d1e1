package observability

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/platinummonkey/biolink/pkg/contextkeys"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// LogLevel is the minimum severity a Logger emits
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var logrusLevels = map[LogLevel]logrus.Level{
	DebugLevel: logrus.DebugLevel,
	InfoLevel:  logrus.InfoLevel,
	WarnLevel:  logrus.WarnLevel,
	ErrorLevel: logrus.ErrorLevel,
}

// ParseLogLevel maps BIOLINK_LOG_LEVEL values to a LogLevel. Unknown values mean info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger writes JSON lines through logrus. Derived loggers share the
// underlying output and level.
type Logger struct {
	entry *logrus.Entry
	level LogLevel
}

// NewLogger returns a logger writing to output, or stdout when output is nil.
// Fields are nested under "fields" in each line.
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	lvl, ok := logrusLevels[level]
	if !ok {
		lvl = logrus.InfoLevel
	}
	base := logrus.New()
	base.SetOutput(output)
	base.SetLevel(lvl)
	base.SetFormatter(&logrus.JSONFormatter{DataKey: "fields"})

	return &Logger{entry: logrus.NewEntry(base), level: level}
}

func (l *Logger) derive(e *logrus.Entry) *Logger {
	return &Logger{entry: e, level: l.level}
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.derive(l.entry.WithField(key, value))
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.derive(l.entry.WithFields(logrus.Fields(fields)))
}

// WithError records err.Error() under "error"; a nil error is a no-op.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) Level() LogLevel { return l.level }

func (l *Logger) Debug(msg string)                          { l.entry.Debug(msg) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Info(msg string)                           { l.entry.Info(msg) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(msg string)                           { l.entry.Warn(msg) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(msg string)                          { l.entry.Error(msg) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

var defaultLogger = NewLogger(InfoLevel, os.Stdout)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return contextkeys.WithRequestID(ctx, requestID)
}

func GetRequestID(ctx context.Context) string {
	return contextkeys.RequestID(ctx)
}

// WithLogger attaches a request-scoped logger to ctx
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return contextkeys.WithLogger(ctx, logger)
}

// GetLogger returns the logger attached to ctx, or a stdout logger at info level
func GetLogger(ctx context.Context) *Logger {
	if logger, ok := contextkeys.Logger(ctx).(*Logger); ok {
		return logger
	}
	return defaultLogger
}

// FromContext returns the context logger annotated with the request, caller
// and active trace.
func FromContext(ctx context.Context) *Logger {
	fields := map[string]interface{}{}
	if id := contextkeys.RequestID(ctx); id != "" {
		fields["request_id"] = id
	}
	if id := contextkeys.UserID(ctx); id != "" {
		fields["user_id"] = id
	}
	if id := contextkeys.MerchantID(ctx); id != "" {
		fields["merchant_id"] = id
	}

	logger := GetLogger(ctx)
	if len(fields) > 0 {
		logger = logger.WithFields(fields)
	}
	return WithTraceContext(ctx, logger)
}

// WithTraceContext adds trace_id and span_id when ctx carries a recording span
func WithTraceContext(ctx context.Context, logger *Logger) *Logger {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return logger
	}
	sc := span.SpanContext()
	return logger.WithFields(map[string]interface{}{
		"trace_id": sc.TraceID().String(),
		"span_id":  sc.SpanID().String(),
	})
}
