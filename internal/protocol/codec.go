package protocol

import "encoding/json"

// envelope is the wire shape every message shares: a discriminating
// "type" field plus the variant's own fields flattened alongside it.
type envelope struct {
	Type             string `json:"type"`
	TraceID          string `json:"traceId,omitempty"`
	CallSid          string `json:"callSid,omitempty"`
	StreamSid        string `json:"streamSid,omitempty"`
	StartedAt        *int64 `json:"startedAt,omitempty"`
	OutputSampleRate int    `json:"outputSampleRate,omitempty"`
	InputSampleRate  int    `json:"inputSampleRate,omitempty"`
	Audio            string `json:"audio,omitempty"`
	Instructions     string `json:"instructions,omitempty"`
	Reason           string `json:"reason,omitempty"`
	Text             string `json:"text,omitempty"`
	ResponseID       string `json:"responseId,omitempty"`
	Error            string `json:"error,omitempty"`
}

// DecodeClientMessage is the sole entry point for decoding a
// client→server frame (§6.1). An unrecognized type or a variant missing
// a required field returns a *ProtocolError.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, newProtocolError("invalid json: %v", err)
	}

	switch env.Type {
	case "start":
		return StartEvent{
			TraceID:          env.TraceID,
			CallSid:          env.CallSid,
			StreamSid:        env.StreamSid,
			StartedAt:        env.StartedAt,
			OutputSampleRate: env.OutputSampleRate,
		}, nil
	case "audio_chunk":
		if env.Audio == "" {
			return nil, newProtocolError("audio_chunk: audio field required and non-empty")
		}
		return AudioChunkEvent{TraceID: env.TraceID, Audio: env.Audio}, nil
	case "commit":
		return CommitEvent{TraceID: env.TraceID, Instructions: env.Instructions, Reason: env.Reason}, nil
	case "text":
		if env.Text == "" {
			return nil, newProtocolError("text: text field required and non-empty")
		}
		return TextEvent{TraceID: env.TraceID, Text: env.Text}, nil
	case "end":
		return EndEvent{TraceID: env.TraceID}, nil
	case "":
		return nil, newProtocolError("missing type field")
	default:
		return nil, newProtocolError("unknown message type %q", env.Type)
	}
}

// EncodeClientMessage encodes a client→server frame, the direction the
// bridge and replay harness speak when they act as the downstream client
// of a backend/relay.
func EncodeClientMessage(msg ClientMessage) ([]byte, error) {
	var env envelope
	switch m := msg.(type) {
	case StartEvent:
		env = envelope{
			Type: "start", TraceID: m.TraceID, CallSid: m.CallSid, StreamSid: m.StreamSid,
			StartedAt: m.StartedAt, OutputSampleRate: m.OutputSampleRate,
		}
	case AudioChunkEvent:
		env = envelope{Type: "audio_chunk", TraceID: m.TraceID, Audio: m.Audio}
	case CommitEvent:
		env = envelope{Type: "commit", TraceID: m.TraceID, Instructions: m.Instructions, Reason: m.Reason}
	case TextEvent:
		env = envelope{Type: "text", TraceID: m.TraceID, Text: m.Text}
	case EndEvent:
		env = envelope{Type: "end", TraceID: m.TraceID}
	default:
		return nil, newProtocolError("unknown client message type %T", msg)
	}
	return json.Marshal(env)
}

// DecodeServerMessage is the sole entry point for decoding a
// server→client frame, the direction the bridge and replay harness
// consume from their downstream backend/relay connection.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, newProtocolError("invalid json: %v", err)
	}

	switch env.Type {
	case "ready":
		return ReadyEvent{InputSampleRate: env.InputSampleRate, OutputSampleRate: env.OutputSampleRate}, nil
	case "transcript":
		return TranscriptEvent{Text: env.Text}, nil
	case "text_delta":
		return TextDeltaEvent{Text: env.Text}, nil
	case "text_completed":
		return TextCompletedEvent{Text: env.Text}, nil
	case "audio_delta":
		return AudioDeltaEvent{Audio: env.Audio}, nil
	case "response_completed":
		return ResponseCompletedEvent{ResponseID: env.ResponseID}, nil
	case "error":
		return ErrorEvent{Error: env.Error}, nil
	case "":
		return nil, newProtocolError("missing type field")
	default:
		return nil, newProtocolError("unknown message type %q", env.Type)
	}
}

// EncodeServerMessage encodes a server→client frame. (The relay, which
// does not import this package, builds its one synthesized error event
// itself.)
func EncodeServerMessage(msg ServerMessage) ([]byte, error) {
	var env envelope
	switch m := msg.(type) {
	case ReadyEvent:
		env = envelope{Type: "ready", InputSampleRate: m.InputSampleRate, OutputSampleRate: m.OutputSampleRate}
	case TranscriptEvent:
		env = envelope{Type: "transcript", Text: m.Text}
	case TextDeltaEvent:
		env = envelope{Type: "text_delta", Text: m.Text}
	case TextCompletedEvent:
		env = envelope{Type: "text_completed", Text: m.Text}
	case AudioDeltaEvent:
		env = envelope{Type: "audio_delta", Audio: m.Audio}
	case ResponseCompletedEvent:
		env = envelope{Type: "response_completed", ResponseID: m.ResponseID}
	case ErrorEvent:
		env = envelope{Type: "error", Error: m.Error}
	default:
		return nil, newProtocolError("unknown server message type %T", msg)
	}
	return json.Marshal(env)
}
