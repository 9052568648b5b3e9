// Package telemetry provides structured JSON logging with audio/token
// redaction and per-call stage timing (spec §4.2).
package telemetry

import (
	"context"
	"log/slog"
	"regexp"
)

// redactedKeys are the field names whose values are always replaced,
// regardless of content, per §4.2(a).
var redactedKeys = map[string]bool{
	"audio":   true,
	"payload": true,
	"pcm":     true,
	"pcm16":   true,
	"mulaw":   true,
}

const redactedAudioValue = "[REDACTED_AUDIO]"
const redactedBase64Value = "[REDACTED_BASE64]"

// base64Heuristic matches long unbroken base64-looking strings (§4.2(b)):
// length >= 256, charset [A-Za-z0-9+/=], no whitespace.
var base64Heuristic = regexp.MustCompile(`^[A-Za-z0-9+/=]{256,}$`)

// secretPattern masks bearer tokens and token=/api_key= query-style
// parameters (§4.2(c)).
var secretPattern = regexp.MustCompile(`(?i)(bearer\s+[A-Za-z0-9._\-]+|(?:token|api_key)=[^&\s"]+)`)

const redactedSecretValue = "[REDACTED]"

// RedactingHandler wraps an inner slog.Handler and rewrites attribute
// values before they reach it, so every ordinary slog.Info/Warn/Error
// call site stays redaction-free.
type RedactingHandler struct {
	inner slog.Handler
}

// NewRedactingHandler wraps inner with the §4.2 redaction rules.
func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	redacted := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, redacted)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = redactAttr(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(out)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	if redactedKeys[a.Key] {
		return slog.String(a.Key, redactedAudioValue)
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		redactedGroup := make([]slog.Attr, len(group))
		for i, ga := range group {
			redactedGroup[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redactedGroup...)}
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, redactString(a.Value.String()))
	}
	return a
}

func redactString(s string) string {
	if base64Heuristic.MatchString(s) {
		return redactedBase64Value
	}
	return secretPattern.ReplaceAllString(s, redactedSecretValue)
}
