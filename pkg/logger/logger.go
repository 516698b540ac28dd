package logger

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	traceIDKey ctxKey = "trace_id"
)

// Logger wraps zap.Logger with trace-aware helpers
type Logger struct {
	*zap.Logger
	service string
}

// New creates a new logger instance
func New(service, level string) *Logger {
	encoderConfig := zapcore.EncoderConfig{
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
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		parseLevel(level),
	)

	zapLogger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	zapLogger = zapLogger.With(zap.String("service", service))

	return &Logger{
		Logger:  zapLogger,
		service: service,
	}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Service returns the service name attached to every entry
func (l *Logger) Service() string {
	return l.service
}

// WithContext returns a logger carrying the trace ID found in ctx
func (l *Logger) WithContext(ctx context.Context) *zap.Logger {
	if traceID := GetTraceID(ctx); traceID != "" {
		return l.Logger.With(zap.String("trace_id", traceID))
	}
	return l.Logger
}

// WithTraceIDContext adds a trace ID to the context
func WithTraceIDContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}

// NSQLogger satisfies the logger interface expected by go-nsq.
type NSQLogger struct {
	log *zap.Logger
}

// NSQ returns an adapter that routes go-nsq client logs through zap.
func (l *Logger) NSQ() *NSQLogger {
	return &NSQLogger{log: l.Logger.WithOptions(zap.AddCallerSkip(2)).Named("nsq")}
}

// Output implements the go-nsq logger interface. Lines arrive prefixed with
// a three letter level ("INF", "WRN", "ERR").
func (n *NSQLogger) Output(calldepth int, s string) error {
	level, msg, found := strings.Cut(s, " ")
	if !found {
		n.log.Info(s)
		return nil
	}

	switch level {
	case "DBG":
		n.log.Debug(msg)
	case "WRN":
		n.log.Warn(msg)
	case "ERR":
		n.log.Error(msg)
	default:
		n.log.Info(msg)
	}
	return nil
}
