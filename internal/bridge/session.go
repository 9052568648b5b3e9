package bridge

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicecore/callcore/internal/audio"
	"github.com/voicecore/callcore/internal/metrics"
	"github.com/voicecore/callcore/internal/protocol"
	"github.com/voicecore/callcore/internal/queue"
	"github.com/voicecore/callcore/internal/telemetry"
)

const (
	carrierFrameBytes = 160 // 20 ms @ 8 kHz mono mu-law
	pacerInterval     = 20 * time.Millisecond
)

// eventKind discriminates the fan-in channel Session.Run consumes, so all
// state transitions are processed by a single goroutine (spec §5:
// "per call session, all state transitions are serialized").
type eventKind int

const (
	evCarrierFrame eventKind = iota
	evCarrierClosed
	evDownstreamFrame
	evDownstreamClosed
)

type sessionEvent struct {
	kind eventKind
	data []byte
	err  error
}

// Session is one Call Session (spec §3): terminates a carrier media
// WebSocket, maintains a downstream WebSocket (to the relay), and
// shuttles audio both ways.
type Session struct {
	cfg    Config
	logger *slog.Logger
	tracer *telemetry.Tracer

	carrierConn    *websocket.Conn
	downstreamConn *websocket.Conn

	vad      *audio.Detector
	denoiser *audio.Denoiser
	preReady *queue.Queue[[]byte]

	events chan sessionEvent
	done   chan struct{}

	callID, streamID, traceID string
	downstreamReady           bool
	greeted                   bool
	outputSampleRate          int

	inboundBytes, outboundBytes int64

	outboundMu sync.Mutex
	outbound   []byte

	closeOnce sync.Once
}

// NewSession creates a bridge session around an already-upgraded carrier
// WebSocket connection. The downstream socket is dialed lazily, on the
// carrier's first `start` event, per §4.5. The session's Tracer is
// seeded once the carrier's callId is known; until then, tracer calls
// are no-ops (telemetry.Tracer is nil-safe).
func NewSession(carrierConn *websocket.Conn, cfg Config, logger *slog.Logger) *Session {
	if cfg.PreReadyCapacity <= 0 {
		cfg.PreReadyCapacity = 1000
	}
	s := &Session{
		cfg:              cfg,
		logger:           logger,
		carrierConn:      carrierConn,
		vad:              audio.NewDetector(cfg.VAD),
		outputSampleRate: 24000,
		events:           make(chan sessionEvent, 64),
		done:             make(chan struct{}),
	}
	if cfg.Denoise {
		s.denoiser = audio.NewDenoiser(cfg.DenoiseFloor)
	}
	s.preReady = queue.New[[]byte](cfg.PreReadyCapacity, func(dropped []byte) {
		metrics.QueueOverflows.WithLabelValues("bridge", "pre_ready").Inc()
		s.tracer.Mark("overflow", "queue", "pre_ready", "bytes", len(dropped))
	})
	metrics.CallsActive.WithLabelValues("bridge").Inc()
	metrics.CallsTotal.WithLabelValues("bridge").Inc()
	return s
}

// Run drives the session to completion. It blocks until both sockets are
// torn down.
func (s *Session) Run() {
	go s.readCarrierLoop()
	go s.pacerLoop()

	for {
		select {
		case ev := <-s.events:
			if s.handleEvent(ev) {
				s.teardown(ev.err)
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) readCarrierLoop() {
	for {
		_, data, err := s.carrierConn.ReadMessage()
		if err != nil {
			s.events <- sessionEvent{kind: evCarrierClosed, err: err}
			return
		}
		s.events <- sessionEvent{kind: evCarrierFrame, data: data}
	}
}

func (s *Session) readDownstreamLoop() {
	for {
		_, data, err := s.downstreamConn.ReadMessage()
		if err != nil {
			s.events <- sessionEvent{kind: evDownstreamClosed, err: err}
			return
		}
		s.events <- sessionEvent{kind: evDownstreamFrame, data: data}
	}
}

// handleEvent processes one event and returns true when the session
// should tear down.
func (s *Session) handleEvent(ev sessionEvent) bool {
	switch ev.kind {
	case evCarrierFrame:
		return s.handleCarrierFrame(ev.data)
	case evCarrierClosed:
		return true
	case evDownstreamFrame:
		return s.handleDownstreamFrame(ev.data)
	case evDownstreamClosed:
		return true
	}
	return false
}

func (s *Session) handleCarrierFrame(data []byte) bool {
	env, err := decodeCarrierEnvelope(data)
	if err != nil {
		s.tracer.Mark("carrier_decode_error", "error", err.Error())
		return false
	}

	switch env.Event {
	case "start":
		s.handleCarrierStart(env)
	case "media":
		s.handleCarrierMedia(env)
	case "dtmf":
		s.handleCarrierDTMF(env)
	case "stop":
		return true
	}
	return false
}

func (s *Session) handleCarrierStart(env carrierEnvelope) {
	if env.Start != nil {
		s.callID = env.Start.CallSid
		s.streamID = env.Start.StreamSid
	}
	if s.streamID == "" {
		s.streamID = env.StreamSid
	}
	s.traceID = seedTraceID(s.callID)
	s.tracer = telemetry.NewTracer(s.logger, "bridge", s.traceID)

	if err := s.dialDownstream(); err != nil {
		s.tracer.Mark("downstream_dial_error", "error", err.Error())
		return
	}
	go s.readDownstreamLoop()

	startedAt := time.Now().UnixMilli()
	s.sendDownstream(protocol.StartEvent{
		TraceID:   s.traceID,
		CallSid:   s.callID,
		StreamSid: s.streamID,
		StartedAt: &startedAt,
	})
}

func (s *Session) dialDownstream() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.cfg.DownstreamURL, nil)
	if err != nil {
		return fmt.Errorf("dial downstream: %w", err)
	}
	s.downstreamConn = conn
	return nil
}

func (s *Session) handleCarrierMedia(env carrierEnvelope) {
	if env.Media == nil || env.Media.Payload == "" {
		return
	}
	raw, err := audio.DecodeBase64(env.Media.Payload)
	if err != nil {
		return
	}
	s.inboundBytes += int64(len(raw))

	decoded8k, _, err := audio.Decode(raw, audio.CodecG711Ulaw, 8000)
	if err != nil {
		return
	}

	if s.cfg.Denoise && s.denoiser != nil {
		decoded8k = s.denoiser.Process(decoded8k)
	}

	rms := audio.RMS(decoded8k)
	s.checkBargeIn(rms)

	decoded16k := audio.Resample(decoded8k, 8000, 16000)
	encoded, err := audio.Encode(decoded16k, audio.CodecPCM)
	if err != nil {
		return
	}
	s.sendDownstream(protocol.AudioChunkEvent{
		TraceID: s.traceID,
		Audio:   audio.EncodeBase64(encoded),
	})

	result := s.vad.Process(decoded8k)
	if result.Commit {
		metrics.SpeechSegments.Inc()
		s.sendDownstream(protocol.CommitEvent{TraceID: s.traceID, Reason: string(result.Reason)})
	}
}

func (s *Session) checkBargeIn(rms float64) {
	s.outboundMu.Lock()
	nonEmpty := len(s.outbound) > 0
	s.outboundMu.Unlock()

	if !s.vad.ShouldBargeIn(rms, nonEmpty) {
		return
	}
	metrics.BargeIns.Inc()

	s.outboundMu.Lock()
	s.outbound = nil
	s.outboundMu.Unlock()

	s.sendDownstream(protocol.EndEvent{TraceID: s.traceID})
}

func (s *Session) handleCarrierDTMF(env carrierEnvelope) {
	if env.Dtmf == nil {
		return
	}
	switch env.Dtmf.Digit {
	case "#":
		s.vad.ForceCommit()
		s.sendDownstream(protocol.CommitEvent{TraceID: s.traceID, Reason: "dtmf"})
	case "*":
		s.sendDownstream(protocol.EndEvent{TraceID: s.traceID})
	}
}

func (s *Session) handleDownstreamFrame(data []byte) bool {
	msg, err := protocol.DecodeServerMessage(data)
	if err != nil {
		s.tracer.Mark("downstream_protocol_error", "error", err.Error())
		return false
	}

	switch m := msg.(type) {
	case protocol.ReadyEvent:
		s.handleDownstreamReady(m)
	case protocol.AudioDeltaEvent:
		s.handleDownstreamAudioDelta(m)
	case protocol.ResponseCompletedEvent:
		s.outboundMu.Lock()
		s.outbound = nil
		s.outboundMu.Unlock()
	case protocol.ErrorEvent:
		s.tracer.Mark("downstream_error", "error", m.Error)
	}
	return false
}

func (s *Session) handleDownstreamReady(ev protocol.ReadyEvent) {
	if ev.OutputSampleRate != 0 {
		s.outputSampleRate = ev.OutputSampleRate
	}
	s.downstreamReady = true
	s.preReady.DrainTo(func(frame []byte) {
		_ = s.downstreamConn.WriteMessage(websocket.TextMessage, frame)
	})

	if s.cfg.Opener != nil && s.cfg.Opener.OpenerText != "" && !s.greeted {
		s.sendDownstream(protocol.CommitEvent{
			TraceID:      s.traceID,
			Instructions: "Speak this opener verbatim: " + s.cfg.Opener.OpenerText,
		})
		s.greeted = true
	}
}

func (s *Session) handleDownstreamAudioDelta(ev protocol.AudioDeltaEvent) {
	raw, err := audio.DecodeBase64(ev.Audio)
	if err != nil {
		return
	}
	decoded, _, err := audio.Decode(raw, audio.CodecPCM, s.outputSampleRate)
	if err != nil {
		return
	}
	resampled := audio.Resample(decoded, s.outputSampleRate, 8000)
	companded, err := audio.Encode(resampled, audio.CodecG711Ulaw)
	if err != nil {
		return
	}

	s.outboundMu.Lock()
	s.outbound = append(s.outbound, companded...)
	s.outboundMu.Unlock()
}

// sendDownstream serializes msg and either writes it immediately, or
// queues it in the pre-ready FIFO if the downstream peer isn't ready yet
// (§4.5, §5).
func (s *Session) sendDownstream(msg protocol.ClientMessage) {
	data, err := protocol.EncodeClientMessage(msg)
	if err != nil {
		return
	}
	if s.downstreamConn == nil || !s.downstreamReady {
		s.preReady.Push(data)
		return
	}
	_ = s.downstreamConn.WriteMessage(websocket.TextMessage, data)
}

// pacerLoop drains the outbound companded buffer in exact 20 ms frames,
// one carrier `media` event per tick, per §4.5's per-frame pacing.
func (s *Session) pacerLoop() {
	ticker := time.NewTicker(pacerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.drainOneOutboundFrame()
		case <-s.done:
			return
		}
	}
}

func (s *Session) drainOneOutboundFrame() {
	s.outboundMu.Lock()
	if len(s.outbound) < carrierFrameBytes {
		s.outboundMu.Unlock()
		return
	}
	frame := s.outbound[:carrierFrameBytes]
	s.outbound = s.outbound[carrierFrameBytes:]
	s.outboundMu.Unlock()

	s.outboundBytes += int64(len(frame))
	payload := audio.EncodeBase64(frame)
	data, err := encodeCarrierMediaFrame(s.streamID, payload)
	if err != nil {
		return
	}
	_ = s.carrierConn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) teardown(reason error) {
	s.closeOnce.Do(func() {
		metrics.CallsActive.WithLabelValues("bridge").Dec()
		close(s.done)
		_ = s.carrierConn.Close()
		if s.downstreamConn != nil {
			_ = s.downstreamConn.Close()
		}
		reasonMsg := "normal"
		if reason != nil {
			reasonMsg = reason.Error()
		}
		if s.tracer != nil {
			s.tracer.Mark("teardown",
				"reason", reasonMsg,
				"inboundBytes", s.inboundBytes,
				"outboundBytes", s.outboundBytes,
			)
		}
	})
}
