// Package logging wraps log/slog the way the rest of this codebase's
// sibling services do: one Logger type, a Config struct driving level/
// format/output, and a process-wide default set once at startup.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	defaultLogger *Logger
	once          sync.Once
)

// Logger wraps a configured slog.Logger with a mutable level, so SetLevel
// can adjust verbosity after construction without rebuilding the handler.
type Logger struct {
	slog  *slog.Logger
	level *slog.LevelVar
}

// Config controls how a Logger is built.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is json or text.
	Format string
	// Output is stdout or stderr. stelp writes records to stdout, so
	// diagnostic logging defaults to stderr to keep the two streams apart.
	Output string
}

// DefaultConfig returns stderr/text/info, matching a CLI tool's usual
// expectation that stdout stays reserved for pipeline output.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "text", Output: "stderr"}
}

// Init builds a Logger from cfg and installs it as both this package's and
// slog's default.
func Init(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger, err := New(cfg)
	if err != nil {
		return err
	}
	defaultLogger = logger
	slog.SetDefault(logger.slog)
	return nil
}

// New builds a standalone Logger from cfg without touching package defaults.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(parseLevel(cfg.Level))

	output := outputWriter(cfg.Output)
	opts := &slog.HandlerOptions{Level: levelVar}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{slog: slog.New(handler), level: levelVar}, nil
}

func outputWriter(output string) io.Writer {
	if output == "stdout" {
		return os.Stdout
	}
	return os.Stderr
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the process-wide Logger, building a stderr/text/info one
// lazily if Init was never called.
func Default() *Logger {
	once.Do(func() {
		if defaultLogger == nil {
			defaultLogger, _ = New(DefaultConfig())
			slog.SetDefault(defaultLogger.slog)
		}
	})
	return defaultLogger
}

// SetDefault installs l as the process-wide Logger.
func SetDefault(l *Logger) {
	defaultLogger = l
	slog.SetDefault(l.slog)
}

// SetLevel adjusts verbosity without rebuilding the handler.
func (l *Logger) SetLevel(level string) {
	l.level.Set(parseLevel(level))
}

// With returns a child Logger carrying fixed fields on every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), level: l.level}
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slog.DebugContext(ctx, msg, args...)
}
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slog.InfoContext(ctx, msg, args...)
}
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slog.WarnContext(ctx, msg, args...)
}
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slog.ErrorContext(ctx, msg, args...)
}

// Slog exposes the underlying slog.Logger for callers that want it
// directly (e.g. to pass into a library expecting *slog.Logger).
func (l *Logger) Slog() *slog.Logger { return l.slog }

// Debug logs to the process-wide default Logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }

// Info logs to the process-wide default Logger.
func Info(msg string, args ...any) { Default().Info(msg, args...) }

// Warn logs to the process-wide default Logger.
func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

// Error logs to the process-wide default Logger.
func Error(msg string, args ...any) { Default().Error(msg, args...) }
