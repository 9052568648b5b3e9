package telemetry

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"
)

// NewTraceID generates a random 128-bit hex id, used when the carrier
// supplies no stable call identifier (§4.2's trace id seed policy).
func NewTraceID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// Tracer marks elapsed-time stages for one call, all sharing the same
// monotonic start and traceId, per §4.2 (`stage`, `ms` fields) and §4.7's
// stage list (asr_start, asr_done, llm_start, llm_done, tts_start,
// tts_first_audio, tts_done, response_completed, teardown). All methods
// are nil-safe (no-op on a nil receiver), so callers may mark stages
// before a call's trace id is known.
type Tracer struct {
	logger    *slog.Logger
	traceID   string
	component string
	startedAt time.Time
}

// NewTracer seeds a Tracer bound to traceID and component (the log line's
// "component" field, e.g. "bridge", "relay", "backend").
func NewTracer(logger *slog.Logger, component, traceID string) *Tracer {
	if traceID == "" {
		traceID = NewTraceID()
	}
	return &Tracer{
		logger:    logger,
		traceID:   traceID,
		component: component,
		startedAt: time.Now(),
	}
}

// TraceID returns the trace id this tracer was seeded with.
func (t *Tracer) TraceID() string {
	if t == nil {
		return ""
	}
	return t.traceID
}

// Mark logs a stage event with the elapsed milliseconds since the tracer
// was created, plus any additional key/value attributes. Nil-safe: a nil
// *Tracer is a no-op, so callers don't need to guard every call site
// before a call's trace id is known.
func (t *Tracer) Mark(stage string, args ...any) {
	if t == nil {
		return
	}
	elapsed := time.Since(t.startedAt).Milliseconds()
	attrs := append([]any{
		"component", t.component,
		"traceId", t.traceID,
		"stage", stage,
		"ms", elapsed,
	}, args...)
	t.logger.Info("stage", attrs...)
}

// ElapsedMs returns milliseconds since the tracer started, for callers
// that need the raw value without logging (e.g. time-to-first-audio
// measurement embedded in a later log line).
func (t *Tracer) ElapsedMs() int64 {
	if t == nil {
		return 0
	}
	return time.Since(t.startedAt).Milliseconds()
}
