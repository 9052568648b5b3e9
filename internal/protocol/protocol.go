// Package protocol implements the JSON-over-WebSocket event codec shared
// by the bridge, relay, backend, and replay harness (spec §6.1).
package protocol

import "fmt"

// Kind names the error taxonomy from spec §7. Kind is inspected with
// errors.As against *ProtocolError rather than compared by string.
type Kind string

const (
	KindProtocol   Kind = "protocol"
	KindDownstream Kind = "downstream"
	KindSubprocess Kind = "subprocess"
	KindResource   Kind = "resource"
	KindConfig     Kind = "config"
	KindOverflow   Kind = "overflow"
)

// ProtocolError reports a malformed or unrecognized envelope (§4.3).
type ProtocolError struct {
	Kind    Kind
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newProtocolError(format string, args ...any) *ProtocolError {
	return &ProtocolError{Kind: KindProtocol, Message: fmt.Sprintf(format, args...)}
}

// ClientMessage is implemented by every client→server variant.
type ClientMessage interface {
	clientMessage()
}

// ServerMessage is implemented by every server→client variant.
type ServerMessage interface {
	serverMessage()
}

// StartEvent seeds a session and negotiates the output sample rate.
type StartEvent struct {
	TraceID          string `json:"traceId,omitempty"`
	CallSid          string `json:"callSid,omitempty"`
	StreamSid        string `json:"streamSid,omitempty"`
	StartedAt        *int64 `json:"startedAt,omitempty"`
	OutputSampleRate int    `json:"outputSampleRate,omitempty"`
}

func (StartEvent) clientMessage() {}

// AudioChunkEvent carries base64 PCM16 mono audio at 16 kHz.
type AudioChunkEvent struct {
	TraceID string `json:"traceId,omitempty"`
	Audio   string `json:"audio"`
}

func (AudioChunkEvent) clientMessage() {}

// CommitEvent ends turn input and starts processing.
type CommitEvent struct {
	TraceID      string `json:"traceId,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func (CommitEvent) clientMessage() {}

// TextEvent skips ASR and begins a turn from literal text.
type TextEvent struct {
	TraceID string `json:"traceId,omitempty"`
	Text    string `json:"text"`
}

func (TextEvent) clientMessage() {}

// EndEvent closes the session.
type EndEvent struct {
	TraceID string `json:"traceId,omitempty"`
}

func (EndEvent) clientMessage() {}

// ReadyEvent announces negotiated sample rates.
type ReadyEvent struct {
	InputSampleRate  int `json:"inputSampleRate"`
	OutputSampleRate int `json:"outputSampleRate"`
}

func (ReadyEvent) serverMessage() {}

// TranscriptEvent carries the user transcript for the just-committed audio.
type TranscriptEvent struct {
	Text string `json:"text"`
}

func (TranscriptEvent) serverMessage() {}

// TextDeltaEvent carries an ordered partial assistant text chunk.
type TextDeltaEvent struct {
	Text string `json:"text"`
}

func (TextDeltaEvent) serverMessage() {}

// TextCompletedEvent carries the full assistant text, once per turn.
type TextCompletedEvent struct {
	Text string `json:"text"`
}

func (TextCompletedEvent) serverMessage() {}

// AudioDeltaEvent carries an ordered synthesized audio frame.
type AudioDeltaEvent struct {
	Audio string `json:"audio"`
}

func (AudioDeltaEvent) serverMessage() {}

// ResponseCompletedEvent terminates a turn.
type ResponseCompletedEvent struct {
	ResponseID string `json:"responseId"`
}

func (ResponseCompletedEvent) serverMessage() {}

// ErrorEvent reports a non-fatal error during the turn.
type ErrorEvent struct {
	Error string `json:"error"`
}

func (ErrorEvent) serverMessage() {}
