package log

import (
	"io"
	"log/slog"
	"strings"

	"github.com/nao1215/charscan/internal/model"
)

// NewSecureLogger creates a text logger writing to w.
// verbose selects Debug level; otherwise only warnings and errors are logged.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger creates a JSON logger writing to w, for structured
// log aggregation.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

// NewDiscardLogger returns a logger that drops everything. Packages use it
// as their default when no logger is injected.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}

// HeadersAttr returns a group attribute holding headers in received order.
// Header names are lowercased so that sensitive names are recognised by
// SecureHandler whatever their original casing.
func HeadersAttr(key string, headers model.Headers) slog.Attr {
	attrs := make([]any, 0, len(headers))
	for _, h := range headers {
		attrs = append(attrs, slog.String(strings.ToLower(h.Name), h.Value))
	}
	return slog.Group(key, attrs...)
}
