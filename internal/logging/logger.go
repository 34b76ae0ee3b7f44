package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with helpers for the analysis run.
type Logger struct {
	*slog.Logger
}

// New creates a logger writing to stderr. format is "text" or "json".
func New(debug bool, format string) *Logger {
	return NewWithWriter(os.Stderr, debug, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, debug bool, format string) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{slog.New(handler)}
}

// Discard returns a logger that drops everything. Used as the zero value in tests.
func Discard() *Logger {
	return &Logger{slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{l.With("component", component)}
}

// WithQuestion tags entries with a pipeline question.
func (l *Logger) WithQuestion(id int, slug string) *Logger {
	return &Logger{l.With("question", id, "slug", slug)}
}

// LogLoad logs a finished dataset load.
func (l *Logger) LogLoad(source string, rows int, dropped []string, took time.Duration) {
	l.Info("Dataset loaded",
		"source", source,
		"rows", rows,
		"duration", took.Round(time.Millisecond),
	)
	if len(dropped) > 0 {
		l.Debug("Dropped columns outside the schema",
			"columns", strings.Join(dropped, ","),
		)
	}
}

// LogPipeline logs the outcome of one pipeline.
func (l *Logger) LogPipeline(charts, warnings int, err error, took time.Duration) {
	if err != nil {
		l.Error("Pipeline failed",
			"error", err,
			"duration", took.Round(time.Millisecond),
		)
		return
	}
	l.Info("Pipeline completed",
		"charts", charts,
		"warnings", warnings,
		"duration", took.Round(time.Millisecond),
	)
}

// LogWarning logs a non-fatal condition such as an empty join.
func (l *Logger) LogWarning(msg string, err error) {
	l.Warn(msg, "detail", err)
}

// LogArtifact logs a written file.
func (l *Logger) LogArtifact(kind, path string) {
	l.Debug("Artifact written",
		"kind", kind,
		"path", path,
	)
}
