// Package replay implements the golden replay harness (spec §4.10): a
// WAV-to-WebSocket driver that streams a fixed recording through the
// relay and records the resulting event sequence for regression and
// determinism testing.
package replay

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicecore/callcore/internal/audio"
	"github.com/voicecore/callcore/internal/protocol"
	"github.com/voicecore/callcore/internal/telemetry"
)

const frameMs = 20

// Config controls one replay run.
type Config struct {
	RelayURL     string
	CallSid      string
	SendCommit   bool
	Instructions string
	Timeout      time.Duration
	Logger       *slog.Logger

	// ReferenceTranscript, when set, scores the run's ASR transcript
	// against it with word error rate (§ SUPPLEMENTED FEATURES). Purely
	// diagnostic: never required for a run to succeed.
	ReferenceTranscript string
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return c.Logger
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

// Run streams wavData (mono 16-bit PCM16 at 16 kHz) to cfg.RelayURL and
// collects the server's event sequence into a RunReport. It returns an
// error if the dial fails or response_completed is never observed
// within the configured timeout; the partial report is still returned
// so callers can inspect what happened before the failure.
func Run(cfg Config, wavData []byte) (*RunReport, error) {
	samples, sampleRate, err := audio.ReadWAV(wavData)
	if err != nil {
		return nil, fmt.Errorf("replay: reading wav: %w", err)
	}
	if sampleRate != 16000 {
		return nil, fmt.Errorf("replay: expected 16 kHz mono PCM16 wav, got %d Hz", sampleRate)
	}

	conn, _, err := websocket.DefaultDialer.Dial(cfg.RelayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("replay: dial %s: %w", cfg.RelayURL, err)
	}
	defer conn.Close()

	traceID := telemetry.NewTraceID()
	tracer := telemetry.NewTracer(cfg.logger(), "replay", traceID)
	report := &RunReport{TraceID: traceID}

	events := make(chan protocol.ServerMessage, 256)
	go collectEvents(conn, events)

	if err := sendClient(conn, protocol.StartEvent{TraceID: traceID, CallSid: cfg.CallSid, OutputSampleRate: 16000}); err != nil {
		return report, fmt.Errorf("replay: sending start: %w", err)
	}

	frameSamples := sampleRate * frameMs / 1000
	for off := 0; off < len(samples); off += frameSamples {
		end := off + frameSamples
		if end > len(samples) {
			end = len(samples)
		}
		frame := int16SliceToBytes(samples[off:end])
		if err := sendClient(conn, protocol.AudioChunkEvent{TraceID: traceID, Audio: base64.StdEncoding.EncodeToString(frame)}); err != nil {
			return report, fmt.Errorf("replay: sending audio_chunk: %w", err)
		}
	}

	if cfg.SendCommit {
		if err := sendClient(conn, protocol.CommitEvent{TraceID: traceID, Instructions: cfg.Instructions}); err != nil {
			return report, fmt.Errorf("replay: sending commit: %w", err)
		}
	}

	var assistantText strings.Builder
	timeout := time.After(cfg.timeout())
loop:
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				break loop
			}
			report.Events = append(report.Events, eventTypeOf(msg))
			switch m := msg.(type) {
			case protocol.ReadyEvent:
				report.SawReady = true
			case protocol.TranscriptEvent:
				report.Transcript = m.Text
			case protocol.TextDeltaEvent:
				assistantText.WriteString(m.Text)
			case protocol.AudioDeltaEvent:
				report.AudioDeltaChunks++
			case protocol.ResponseCompletedEvent:
				report.SawCompleted = true
				report.MS = tracer.ElapsedMs()
				report.AssistantText = assistantText.String()
				break loop
			case protocol.ErrorEvent:
				report.Errors = append(report.Errors, m.Error)
			}
		case <-timeout:
			break loop
		}
	}

	report.MS = tracer.ElapsedMs()
	if report.AssistantText == "" {
		report.AssistantText = assistantText.String()
	}
	if cfg.ReferenceTranscript != "" {
		wer := computeWER(cfg.ReferenceTranscript, report.Transcript)
		report.WER = &wer
	}

	if !report.SawCompleted {
		return report, fmt.Errorf("replay: response_completed not observed within %s", cfg.timeout())
	}
	return report, nil
}

func sendClient(conn *websocket.Conn, msg protocol.ClientMessage) error {
	data, err := protocol.EncodeClientMessage(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func collectEvents(conn *websocket.Conn, out chan<- protocol.ServerMessage) {
	defer close(out)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.DecodeServerMessage(data)
		if err != nil {
			continue
		}
		out <- msg
	}
}

func eventTypeOf(msg protocol.ServerMessage) string {
	switch msg.(type) {
	case protocol.ReadyEvent:
		return "ready"
	case protocol.TranscriptEvent:
		return "transcript"
	case protocol.TextDeltaEvent:
		return "text_delta"
	case protocol.TextCompletedEvent:
		return "text_completed"
	case protocol.AudioDeltaEvent:
		return "audio_delta"
	case protocol.ResponseCompletedEvent:
		return "response_completed"
	case protocol.ErrorEvent:
		return "error"
	default:
		return "unknown"
	}
}

func int16SliceToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(uint16(s))
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

// WriteReport marshals a RunReport as indented JSON, the shape written
// to disk by cmd/replay.
func WriteReport(r *RunReport) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
