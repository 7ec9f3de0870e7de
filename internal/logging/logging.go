// Package logging builds the slog logger used by the cvs-release CLI.
//
// Console output is plain messages on stderr; debug records only appear
// with --verbose. When a log file is configured, every record (including
// debug) is also written there as JSON, rotated by lumberjack.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Environment variables that tune log file rotation.
const (
	EnvLogMaxSize    = "CVS_RELEASE_LOG_MAX_SIZE"
	EnvLogMaxBackups = "CVS_RELEASE_LOG_MAX_BACKUPS"
	EnvLogMaxAge     = "CVS_RELEASE_LOG_MAX_AGE"
)

// Options configures New.
type Options struct {
	// Console receives human-readable output. Defaults to os.Stderr.
	Console io.Writer

	// Verbose enables debug records on the console.
	Verbose bool

	// File, when set, is the path of a rotating JSON log file.
	File string
}

// consoleHandler writes "message key=value ..." lines without timestamps
// or level prefixes, except for warnings and errors.
type consoleHandler struct {
	writer  io.Writer
	verbose bool
	attrs   []slog.Attr
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if level < slog.LevelInfo {
		return h.verbose
	}
	return true
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	switch {
	case record.Level >= slog.LevelError:
		b.WriteString("ERROR: ")
	case record.Level >= slog.LevelWarn:
		b.WriteString("WARNING: ")
	}
	b.WriteString(record.Message)

	writeAttr := func(a slog.Attr) bool {
		if a.Equal(slog.Attr{}) {
			return true
		}
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
		return true
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	record.Attrs(writeAttr)

	b.WriteByte('\n')
	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &consoleHandler{writer: h.writer, verbose: h.verbose, attrs: merged}
}

func (h *consoleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// multiHandler fans out log records to multiple handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

// New builds a logger from opts. The returned closer flushes and closes
// the log file, if any; it is never nil.
func New(opts Options) (*slog.Logger, io.Closer) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	var handler slog.Handler = &consoleHandler{writer: console, verbose: opts.Verbose}

	if opts.File == "" {
		return slog.New(handler), nopCloser{}
	}

	rotator := newRotator(opts.File)
	fileHandler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(&multiHandler{handlers: []slog.Handler{handler, fileHandler}}), rotator
}

// newRotator creates a lumberjack logger, tuned by environment variables.
func newRotator(path string) *lumberjack.Logger {
	l := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}

	if v, err := strconv.Atoi(os.Getenv(EnvLogMaxSize)); err == nil && v > 0 {
		l.MaxSize = v
	}
	if v, err := strconv.Atoi(os.Getenv(EnvLogMaxBackups)); err == nil && v >= 0 {
		l.MaxBackups = v
	}
	if v, err := strconv.Atoi(os.Getenv(EnvLogMaxAge)); err == nil && v > 0 {
		l.MaxAge = v
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
