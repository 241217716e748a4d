// Package logging provides rash's structured logging infrastructure,
// including the task-status tags (ok, changed, skipping, ignoring)
// the executor attaches to every task outcome.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rash-sh/rash-go/internal/config"
)

// NewFromConfig creates a new slog.Logger based on configuration. When
// cfg.Logging.File is set it is resolved relative to baseDir and the
// logger writes to both stderr and the file.
func NewFromConfig(cfg *config.Config, baseDir string) (*slog.Logger, io.Closer, error) {
	level := parseLevel(cfg.Logging.Level)
	handler := newHandler(cfg.Logging.Format, os.Stderr, level)

	var closer io.Closer
	if cfg.Logging.File != "" {
		logPath := cfg.Logging.File
		if !filepath.IsAbs(logPath) {
			logPath = filepath.Join(baseDir, logPath)
		}

		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return nil, nil, err
		}

		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, err
		}
		closer = file

		multi := io.MultiWriter(os.Stderr, file)
		handler = newHandler(cfg.Logging.Format, multi, level)
	}

	return slog.New(handler), closer, nil
}

// NewDefault creates a default logger writing to stderr.
func NewDefault() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// NewForTest creates a silent logger for tests.
func NewForTest() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// NewWithLevel creates a logger with the specified level.
func NewWithLevel(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func parseLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(format config.LogFormat, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch format {
	case config.LogFormatJSON:
		return slog.NewJSONHandler(w, opts)
	case config.LogFormatText:
		return slog.NewTextHandler(w, opts)
	default:
		return slog.NewJSONHandler(w, opts)
	}
}

// WithFields returns a logger with the given fields added.
func WithFields(logger *slog.Logger, fields ...any) *slog.Logger {
	return logger.With(fields...)
}

// WithTask returns a logger scoped to a single task, tagged with its
// name and the module it dispatches to.
func WithTask(logger *slog.Logger, taskName, moduleName string) *slog.Logger {
	return logger.With("task", taskName, "module", moduleName)
}

// WithTrace returns a logger scoped to a single execution trace.
func WithTrace(logger *slog.Logger, traceID string) *slog.Logger {
	return logger.With("trace_id", traceID)
}

// Outcome is the task-status tag attached to every task log line,
// mirroring the conventional four states of a task run.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeChanged  Outcome = "changed"
	OutcomeSkipping Outcome = "skipping"
	OutcomeIgnoring Outcome = "ignoring"
)

// LogOutcome logs a task's dispatch outcome at the appropriate level:
// ignoring at Warn (a failure was swallowed), everything else at Info.
func LogOutcome(logger *slog.Logger, outcome Outcome, taskName string, extra ...any) {
	args := append([]any{"outcome", string(outcome), "task", taskName}, extra...)
	if outcome == OutcomeIgnoring {
		logger.Warn("task outcome", args...)
		return
	}
	logger.Info("task outcome", args...)
}
