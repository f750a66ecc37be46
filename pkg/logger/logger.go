package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Options configures the structured logger.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	// Format is "json" (default) or "console".
	Format string
	Output io.Writer
}

// Logger writes structured entries and picks up request scoped fields and the
// active otel span from the context.
type Logger struct {
	base *zerolog.Logger
}

type ctxKey struct{}

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	if opts.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger := zerolog.
		New(output).
		With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger().
		Level(opts.Level)

	return &Logger{base: &logger}
}

// Nop discards everything. Useful as a default in constructors and tests.
func Nop() *Logger {
	l := zerolog.Nop()
	return &Logger{base: &l}
}

func ParseLevel(value string) zerolog.Level {
	levelString := strings.ToLower(strings.TrimSpace(value))
	if levelString == "" {
		return zerolog.InfoLevel
	}
	if lvl, err := zerolog.ParseLevel(levelString); err == nil {
		return lvl
	}
	return zerolog.InfoLevel
}

func (l *Logger) fromContext(ctx context.Context) zerolog.Logger {
	entry := *l.base
	if ctx == nil {
		return entry
	}
	if scoped, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
		entry = *scoped
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		entry = entry.With().
			Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String()).
			Logger()
	}
	return entry
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	entry := *l.base
	if scoped, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
		entry = *scoped
	}
	entry = entry.With().Interface(key, value).Logger()
	return context.WithValue(ctx, ctxKey{}, &entry)
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithSessionID(ctx context.Context, sessionID string) context.Context {
	return l.WithField(ctx, "session_id", sessionID)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	entry := l.fromContext(ctx)
	entry.Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	entry := l.fromContext(ctx)
	entry.Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string, err error) {
	entry := l.fromContext(ctx)
	event := entry.Warn()
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error) {
	entry := l.fromContext(ctx)
	event := entry.Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}

// Event exposes the underlying zerolog event for call sites that need typed
// fields, e.g. access logs.
func (l *Logger) Event(ctx context.Context, level zerolog.Level) *zerolog.Event {
	entry := l.fromContext(ctx)
	return entry.WithLevel(level)
}
