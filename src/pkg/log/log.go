// Package log provides structured logging of commands, errors and diagnostics.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"inkboard/src/pkg/model"
)

// Fields carries structured attributes attached to a log entry.
type Fields map[string]interface{}

// Logger writes command, error and info entries to separate JSON log files.
type Logger struct {
	commandLogger *slog.Logger
	errorLogger   *slog.Logger
	infoLogger    *slog.Logger
	files         []*os.File
	level         LogLevel
}

// NewLogger creates a Logger writing into cfg.LogFolder. Entries less severe
// than level are discarded from the info log.
func NewLogger(cfg *model.Config, level LogLevel) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogFolder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	var files []*os.File
	open := func(name string) (*os.File, error) {
		f, err := os.OpenFile(filepath.Join(cfg.LogFolder, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			for _, opened := range files {
				opened.Close()
			}
			return nil, fmt.Errorf("failed to open log file %s: %w", name, err)
		}
		files = append(files, f)
		return f, nil
	}

	commandFile, err := open(cfg.CommandLog)
	if err != nil {
		return nil, err
	}
	errorFile, err := open(cfg.ErrorLog)
	if err != nil {
		return nil, err
	}
	infoFile, err := open(cfg.InfoLog)
	if err != nil {
		return nil, err
	}

	l := newLogger(commandFile, errorFile, infoFile, level)
	l.files = files
	return l, nil
}

// NewWriterLogger sends every entry to w. Useful for tools and tests.
func NewWriterLogger(w io.Writer, level LogLevel) *Logger {
	return newLogger(w, w, w, level)
}

// NewDiscardLogger drops everything.
func NewDiscardLogger() *Logger {
	return NewWriterLogger(io.Discard, LevelError)
}

func newLogger(commandW, errorW, infoW io.Writer, level LogLevel) *Logger {
	return &Logger{
		commandLogger: slog.New(slog.NewJSONHandler(commandW, &slog.HandlerOptions{Level: slog.LevelInfo})),
		errorLogger:   slog.New(slog.NewJSONHandler(errorW, &slog.HandlerOptions{Level: slog.LevelWarn})),
		infoLogger:    slog.New(slog.NewJSONHandler(infoW, &slog.HandlerOptions{Level: slog.LevelDebug})),
		level:         level,
	}
}

// Command records a user or remote command.
func (l *Logger) Command(ctx context.Context, msg string, fields Fields) {
	l.commandLogger.InfoContext(ctx, msg, fields.attrs()...)
}

// Error records a failure in the error log and mirrors it into the info log.
func (l *Logger) Error(ctx context.Context, msg string, fields Fields) {
	l.errorLogger.ErrorContext(ctx, msg, fields.attrs()...)
	l.infoLogger.ErrorContext(ctx, msg, fields.attrs()...)
}

// Warn records a recoverable problem.
func (l *Logger) Warn(ctx context.Context, msg string, fields Fields) {
	l.errorLogger.WarnContext(ctx, msg, fields.attrs()...)
	if l.level >= LevelWarn {
		l.infoLogger.WarnContext(ctx, msg, fields.attrs()...)
	}
}

func (l *Logger) Info(ctx context.Context, msg string, fields Fields) {
	if l.level >= LevelInfo {
		l.infoLogger.InfoContext(ctx, msg, fields.attrs()...)
	}
}

func (l *Logger) Debug(ctx context.Context, msg string, fields Fields) {
	if l.level >= LevelDebug {
		l.infoLogger.DebugContext(ctx, msg, fields.attrs()...)
	}
}

// SetLevel changes the info log verbosity.
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

// Close closes the log files, if any.
func (l *Logger) Close() error {
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close log file %s: %w", f.Name(), err)
		}
	}
	l.files = nil
	return firstErr
}

func (f Fields) attrs() []any {
	if len(f) == 0 {
		return nil
	}
	out := make([]any, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && err != nil {
			v = err.Error()
		}
		out = append(out, slog.Any(k, v))
	}
	return out
}
