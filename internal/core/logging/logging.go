// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
)

// Setup builds a logger writing to w at level ("debug", "info", "warn",
// "error") in format ("json" or "text"), and installs it as slog's default.
// Attributes named like a database URL have their password redacted.
func Setup(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: redactAttr,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json", "":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q (expected json or text)", format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if !strings.Contains(strings.ToLower(a.Key), "url") || a.Value.Kind() != slog.KindString {
		return a
	}
	return slog.String(a.Key, RedactURL(a.Value.String()))
}

// RedactURL masks the password of a URL; other values pass through.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	return u.Redacted()
}
