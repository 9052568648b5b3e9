// Package backend implements the Voice Backend session (spec §4.7): the
// turn state machine that drives ASR, the conversation core, and TTS for
// one call, speaking the same §6.1 wire protocol the relay and replay
// harness use.
package backend

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/google/uuid"

	"github.com/voicecore/callcore/internal/audio"
	"github.com/voicecore/callcore/internal/conversation"
	"github.com/voicecore/callcore/internal/metrics"
	"github.com/voicecore/callcore/internal/protocol"
	"github.com/voicecore/callcore/internal/session"
	"github.com/voicecore/callcore/internal/subproc"
	"github.com/voicecore/callcore/internal/telemetry"
)

const defaultTurnTimeout = 150 * time.Second

// Session owns one call's turn state machine (idle/turn), its inbound PCM
// accumulator, and the ASR→conversation→TTS pipeline for each commit.
type Session struct {
	cfg    Config
	conn   *websocket.Conn
	core   conversation.Core
	sink   TranscriptSink
	logger *slog.Logger
	tracer *telemetry.Tracer

	classifyClient *classifyClient

	buffer *session.PCMBuffer

	writeMu sync.Mutex

	inFlight         atomic.Bool
	turnIndex        int
	outputSampleRate int

	callID, traceID string

	closeOnce sync.Once
}

// NewSession creates a backend session for one already-upgraded client
// WebSocket connection.
func NewSession(conn *websocket.Conn, cfg Config, core conversation.Core, sink TranscriptSink, logger *slog.Logger) *Session {
	if sink == nil {
		sink = noopSink{}
	}
	metrics.CallsActive.WithLabelValues("backend").Inc()
	metrics.CallsTotal.WithLabelValues("backend").Inc()
	return &Session{
		cfg:              cfg,
		conn:             conn,
		core:             core,
		sink:             sink,
		logger:           logger,
		tracer:           telemetry.NewTracer(logger, "backend", ""),
		buffer:           session.NewPCMBuffer(session.MaxBytesForUtterance(cfg.MaxUtteranceMs)),
		outputSampleRate: cfg.outputSampleRate(),
	}
}

// Run reads client frames until the socket closes or an `end` is
// received.
func (s *Session) Run() {
	defer s.teardown()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if s.handleClientFrame(data) {
			return
		}
	}
}

func (s *Session) handleClientFrame(data []byte) (done bool) {
	msg, err := protocol.DecodeClientMessage(data)
	if err != nil {
		s.sendServer(protocol.ErrorEvent{Error: err.Error()})
		return false
	}

	switch m := msg.(type) {
	case protocol.StartEvent:
		s.handleStart(m)
	case protocol.AudioChunkEvent:
		s.handleAudioChunk(m)
	case protocol.CommitEvent:
		s.handleCommit(m)
	case protocol.TextEvent:
		s.handleText(m)
	case protocol.EndEvent:
		return true
	}
	return false
}

func (s *Session) handleStart(ev protocol.StartEvent) {
	s.callID = ev.CallSid
	s.traceID = ev.TraceID
	if s.traceID == "" {
		s.traceID = telemetry.NewTraceID()
	}
	s.tracer = telemetry.NewTracer(s.logger, "backend", s.traceID)

	if validSampleRates[ev.OutputSampleRate] {
		s.outputSampleRate = ev.OutputSampleRate
	}
	s.sendServer(protocol.ReadyEvent{
		InputSampleRate:  s.cfg.inputSampleRate(),
		OutputSampleRate: s.outputSampleRate,
	})
}

func (s *Session) handleAudioChunk(ev protocol.AudioChunkEvent) {
	metrics.AudioChunksIn.WithLabelValues("backend").Inc()
	raw, err := base64.StdEncoding.DecodeString(ev.Audio)
	if err != nil {
		s.sendServer(protocol.ErrorEvent{Error: fmt.Sprintf("protocol: invalid audio_chunk base64: %v", err)})
		return
	}
	if err := s.buffer.Append(raw); err != nil {
		metrics.QueueOverflows.WithLabelValues("backend", "pcm_buffer").Inc()
		s.tracer.Mark("overflow", "buffer", "pcm", "error", err.Error())
		s.sendServer(protocol.ErrorEvent{Error: err.Error()})
	}
}

// handleCommit begins a turn from the buffered PCM (spec §4.7 "idle →
// turn" transition). A commit received while a turn is already in flight
// is logged and otherwise ignored (no user-visible event, no queueing —
// the spec holds queue depth at 1-in-flight).
func (s *Session) handleCommit(ev protocol.CommitEvent) {
	if !s.checkReady() {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Info("commit_ignored", "traceId", s.traceID)
		return
	}
	pcm := s.buffer.TakeAll()
	go s.runCommitTurn(pcm, ev.Instructions)
}

// handleText enters the pipeline at step 5, skipping ASR (spec §4.7
// "Text-turn handling").
func (s *Session) handleText(ev protocol.TextEvent) {
	if !s.checkReady() {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Info("commit_ignored", "traceId", s.traceID, "reason", "text_turn")
		return
	}
	go s.runTextTurn(ev.Text, "")
}

// checkReady enforces §7's "config" propagation policy: a backend that
// failed its startup readiness check still accepts sessions, but the
// first commit/text immediately gets error{config} instead of running a
// turn against missing binaries or models.
func (s *Session) checkReady() bool {
	if s.cfg.Readiness == nil || s.cfg.Readiness() {
		return true
	}
	s.sendServer(protocol.ErrorEvent{Error: "config: backend not ready"})
	return false
}

func (s *Session) runCommitTurn(pcm []byte, instructions string) {
	defer s.endTurn()
	ctx, cancel := context.WithTimeout(context.Background(), s.turnTimeout())
	defer cancel()

	if len(pcm) == 0 {
		if instructions != "" {
			// No buffered caller audio, but the commit carries
			// instructions (e.g. the bridge's opener greeting sent on
			// downstream `ready`, before any caller speech exists) —
			// run the turn from instructions alone instead of acking
			// with an empty response_completed.
			s.runTurnFromText(ctx, "", instructions, nil)
			return
		}
		s.emitEmptyTranscriptTurn()
		return
	}

	classifyCh := s.classifyAsync(pcm)

	s.tracer.Mark("asr_start")
	asrStart := time.Now()
	tmpDir, err := subproc.NewTurnTempDir()
	if err != nil {
		s.sendServer(protocol.ErrorEvent{Error: fmt.Sprintf("resource: %v", err)})
		return
	}
	defer os.RemoveAll(tmpDir)

	wavPath := subproc.TurnWAVPath(tmpDir)
	samples := pcm16BytesToInt16(pcm)
	wav := audio.WriteWAV(samples, s.cfg.inputSampleRate())
	if err := os.WriteFile(wavPath, wav, 0o644); err != nil {
		s.sendServer(protocol.ErrorEvent{Error: fmt.Sprintf("resource: %v", err)})
		return
	}

	transcript, err := subproc.RunASR(ctx, wavPath, s.cfg.ASR)
	metrics.StageDuration.WithLabelValues("asr").Observe(time.Since(asrStart).Seconds())
	s.tracer.Mark("asr_done")
	if err != nil {
		s.sendServer(protocol.ErrorEvent{Error: fmt.Sprintf("subprocess: %v", err)})
		return
	}

	if isNoiseTranscript(transcript) {
		s.logger.Info("empty_transcript", "traceId", s.traceID)
		if instructions != "" {
			s.runTurnFromText(ctx, "", instructions, classifyCh)
			return
		}
		s.emitEmptyTranscriptTurn()
		return
	}

	s.sendServer(protocol.TranscriptEvent{Text: transcript})
	s.runTurnFromText(ctx, transcript, instructions, classifyCh)
}

func (s *Session) runTextTurn(text, instructions string) {
	defer s.endTurn()
	ctx, cancel := context.WithTimeout(context.Background(), s.turnTimeout())
	defer cancel()
	s.runTurnFromText(ctx, text, instructions, nil)
}

// emitEmptyTranscriptTurn covers both §4.7 step 2 (no audio and no
// instructions) and step 4 (ASR output trims to empty with no
// instructions to fall back on): a fresh responseId is emitted with no
// transcript and no deltas. A commit carrying instructions never reaches
// this path — it runs a text turn instead, see runCommitTurn.
func (s *Session) emitEmptyTranscriptTurn() {
	s.sendServer(protocol.ResponseCompletedEvent{ResponseID: uuid.NewString()})
	s.tracer.Mark("response_completed")
}

func (s *Session) runTurnFromText(ctx context.Context, userText, instructions string, classifyCh <-chan *ClassifyResult) {
	s.tracer.Mark("llm_start")
	llmStart := time.Now()
	assistantText, err := s.core.Respond(ctx, userText, instructions)
	metrics.StageDuration.WithLabelValues("llm").Observe(time.Since(llmStart).Seconds())
	s.tracer.Mark("llm_done")
	if err != nil {
		s.sendServer(protocol.ErrorEvent{Error: fmt.Sprintf("conversation core: %v", err)})
		return
	}

	for _, chunk := range chunkWords(assistantText, 80) {
		s.sendServer(protocol.TextDeltaEvent{Text: chunk})
	}
	s.sendServer(protocol.TextCompletedEvent{Text: assistantText})

	responseID := uuid.NewString()
	if err := s.synthesizeAudio(ctx, assistantText); err != nil {
		s.sendServer(protocol.ErrorEvent{Error: fmt.Sprintf("subprocess: %v", err)})
		// Text deltas already sent; the turn boundary must still close.
		s.sendServer(protocol.ResponseCompletedEvent{ResponseID: responseID})
		s.tracer.Mark("response_completed")
		s.recordTranscript(userText, assistantText, responseID, instructions, classifyCh)
		return
	}

	s.sendServer(protocol.ResponseCompletedEvent{ResponseID: responseID})
	s.tracer.Mark("response_completed")
	s.recordTranscript(userText, assistantText, responseID, instructions, classifyCh)
}

func (s *Session) synthesizeAudio(ctx context.Context, assistantText string) error {
	chunks := chunkSentences(assistantText, 180)
	if len(chunks) == 0 {
		return nil
	}

	frameBytes := frameBytesFor(s.outputSampleRate)
	firstAudio := true
	s.tracer.Mark("tts_start")
	ttsStart := time.Now()
	for _, chunk := range chunks {
		wavBytes, err := subproc.RunTTS(ctx, chunk, s.outputSampleRate, s.cfg.TTS)
		if err != nil {
			return err
		}
		samples, _, err := audio.ReadWAV(wavBytes)
		if err != nil {
			return fmt.Errorf("tts output: %w", err)
		}
		pcmBytes := int16SamplesToBytes(samples)
		for off := 0; off < len(pcmBytes); off += frameBytes {
			end := off + frameBytes
			if end > len(pcmBytes) {
				end = len(pcmBytes)
			}
			if firstAudio {
				s.tracer.Mark("tts_first_audio")
				metrics.TimeToFirstAudio.Observe(time.Since(ttsStart).Seconds())
				firstAudio = false
			}
			s.sendServer(protocol.AudioDeltaEvent{Audio: base64.StdEncoding.EncodeToString(pcmBytes[off:end])})
		}
	}
	metrics.StageDuration.WithLabelValues("tts").Observe(time.Since(ttsStart).Seconds())
	s.tracer.Mark("tts_done")
	return nil
}

func (s *Session) recordTranscript(userText, assistantText, responseID, instructions string, classifyCh <-chan *ClassifyResult) {
	rec := TranscriptRecord{
		CallID:        s.callID,
		TurnIndex:     s.turnIndex,
		TraceID:       s.traceID,
		UserText:      userText,
		AssistantText: assistantText,
		ResponseID:    responseID,
		Instructions:  instructions,
	}
	go func() {
		// The classification span started alongside ASR, well before the
		// LLM+TTS work above; this only waits if it is somehow still
		// outstanding, and gives up rather than delay the transcript
		// write indefinitely.
		if classifyCh != nil {
			select {
			case result := <-classifyCh:
				if result != nil {
					rec.ClassificationLabel = result.Label
					rec.ClassificationConfidence = result.Confidence
				}
			case <-time.After(time.Second):
			}
		}
		if err := s.sink.Write(context.Background(), rec); err != nil {
			s.logger.Warn("transcript sink write failed", "error", err, "traceId", s.traceID)
		}
	}()
}

func (s *Session) endTurn() {
	s.turnIndex++
	s.inFlight.Store(false)
	metrics.TurnsTotal.Inc()
}

func (s *Session) turnTimeout() time.Duration {
	if s.cfg.TurnTimeout <= 0 {
		return defaultTurnTimeout
	}
	return s.cfg.TurnTimeout
}

// sendServer serializes and writes one server→client frame.
func (s *Session) sendServer(msg protocol.ServerMessage) {
	if ev, ok := msg.(protocol.ErrorEvent); ok {
		metrics.Errors.WithLabelValues("backend", errorKind(ev.Error)).Inc()
	}
	if _, ok := msg.(protocol.AudioDeltaEvent); ok {
		metrics.AudioDeltasOut.Inc()
	}
	data, err := protocol.EncodeServerMessage(msg)
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.WriteMessage(websocket.TextMessage, data)
}

// errorKind extracts the leading "kind:" prefix convention used
// throughout this package's error messages (§7's error taxonomy), or
// "unknown" when a message doesn't carry one (e.g. the PCM buffer's
// overflow error, whose first word is followed by a space).
func errorKind(msg string) string {
	for i := 0; i < len(msg); i++ {
		if msg[i] == ':' {
			return msg[:i]
		}
		if msg[i] == ' ' {
			break
		}
	}
	return "unknown"
}

func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		metrics.CallsActive.WithLabelValues("backend").Dec()
		_ = s.conn.Close()
		s.tracer.Mark("teardown")
	})
}

// frameBytesFor returns the PCM16 byte count of one 20 ms frame at rate.
func frameBytesFor(rate int) int {
	samples := rate * 20 / 1000
	return samples * 2
}

func pcm16BytesToInt16(data []byte) []int16 {
	n := len(data) / 2
	out := make([]int16, n)
	for i := range n {
		out[i] = int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
	}
	return out
}

func int16SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(uint16(s))
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}
