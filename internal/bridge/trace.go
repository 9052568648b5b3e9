package bridge

import "github.com/voicecore/callcore/internal/telemetry"

// seedTraceID uses the carrier's callId as the trace id when one was
// supplied, falling back to a fresh random id otherwise (§4.2).
func seedTraceID(seed string) string {
	if seed != "" {
		return seed
	}
	return telemetry.NewTraceID()
}
