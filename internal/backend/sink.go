package backend

import "context"

// TranscriptRecord is one completed turn's transcript row (spec §6.4).
type TranscriptRecord struct {
	CallID        string
	TurnIndex     int
	TraceID       string
	UserText      string
	AssistantText string
	ResponseID    string
	Instructions  string

	// ClassificationLabel/ClassificationConfidence carry the optional
	// fire-and-forget audio-classification result, empty when
	// ClassifyURL is unset or the call failed/timed out.
	ClassificationLabel      string
	ClassificationConfidence float64
}

// TranscriptSink persists a TranscriptRecord. Implementations must not
// block the turn: Write is called in its own goroutine, and failures are
// swallowed by the caller and logged at warn (§6.4: "Fire-and-forget...
// failures are swallowed and logged at warn. Never writes audio.").
type TranscriptSink interface {
	Write(ctx context.Context, rec TranscriptRecord) error
}

// noopSink discards every record; the default when no sink is configured.
type noopSink struct{}

func (noopSink) Write(context.Context, TranscriptRecord) error { return nil }
