// Package relay implements the Relay repeater (spec §4.6): a nearly
// transparent WebSocket tunnel between a telephony bridge client and the
// voice backend, sniffing only enough of client→backend frames to log a
// trace id.
package relay

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/voicecore/callcore/internal/metrics"
	"github.com/voicecore/callcore/internal/queue"
	"github.com/voicecore/callcore/internal/telemetry"
)

// Config configures one Relay session.
type Config struct {
	BackendURL       string
	PreReadyCapacity int
}

// sniffEnvelope extracts only the fields the relay logs; unlike
// internal/protocol, the relay never rejects an unrecognized frame — it
// forwards everything byte-identically regardless of shape (§4.6: "No
// protocol mutation").
type sniffEnvelope struct {
	Type    string `json:"type"`
	TraceID string `json:"traceId"`
}

// Session tunnels one client connection to one backend connection.
type Session struct {
	cfg    Config
	logger *slog.Logger
	tracer *telemetry.Tracer

	clientConn  *websocket.Conn
	backendConn *websocket.Conn

	// dialMu guards backendConn and preReady: the dial goroutine and
	// pumpClientToBackend both touch them until the dial resolves, and
	// Queue is not safe for concurrent use on its own.
	dialMu   sync.Mutex
	preReady *queue.Queue[wireFrame]

	sawStart bool

	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

type wireFrame struct {
	messageType int
	data        []byte
}

// NewSession creates a relay session around an already-upgraded client
// WebSocket. The backend socket is dialed as soon as Run starts (§4.6:
// "Opens a downstream socket to the Backend on every new client
// connection"), concurrently with accepting client frames.
func NewSession(clientConn *websocket.Conn, cfg Config, logger *slog.Logger) *Session {
	if cfg.PreReadyCapacity <= 0 {
		cfg.PreReadyCapacity = 1000
	}
	s := &Session{
		cfg:        cfg,
		logger:     logger,
		clientConn: clientConn,
		tracer:     telemetry.NewTracer(logger, "relay", ""),
		done:       make(chan struct{}),
	}
	s.preReady = queue.New[wireFrame](cfg.PreReadyCapacity, func(dropped wireFrame) {
		metrics.QueueOverflows.WithLabelValues("relay", "pre_ready").Inc()
		s.tracer.Mark("overflow", "queue", "pre_ready", "bytes", len(dropped.data))
	})
	metrics.CallsActive.WithLabelValues("relay").Inc()
	metrics.CallsTotal.WithLabelValues("relay").Inc()
	return s
}

// Run starts pumping client frames immediately and dials the backend
// concurrently (§5's shared-resource policy: frames arriving before the
// backend is reachable queue in preReady rather than stalling the
// client read loop). Frames queued during a slow or failed dial are
// flushed, in order, once the dial resolves.
func (s *Session) Run() {
	go s.pumpClientToBackend()

	conn, _, err := websocket.DefaultDialer.Dial(s.cfg.BackendURL, nil)
	if err != nil {
		metrics.Errors.WithLabelValues("relay", "downstream").Inc()
		s.tracer.Mark("backend_dial_error", "error", err.Error())
		s.closePeer(nil, "backend dial failed")
		<-s.done
		return
	}

	s.dialMu.Lock()
	select {
	case <-s.done:
		// The client closed (or the dial failed elsewhere) while this
		// dial was still in flight; the new connection is unwanted.
		s.dialMu.Unlock()
		_ = conn.Close()
		return
	default:
	}
	s.backendConn = conn
	s.preReady.DrainTo(func(f wireFrame) {
		_ = s.backendConn.WriteMessage(f.messageType, f.data)
	})
	s.dialMu.Unlock()

	s.pumpBackendToClient()
}

// pumpClientToBackend forwards every client frame to the backend
// byte-identically, sniffing `traceId`/`start` only for logging.
func (s *Session) pumpClientToBackend() {
	for {
		msgType, data, err := s.clientConn.ReadMessage()
		if err != nil {
			s.dialMu.Lock()
			backendConn := s.backendConn
			s.dialMu.Unlock()
			s.closePeer(backendConn, "client closed")
			return
		}
		s.sniff(data)
		s.writeToBackend(msgType, data)
	}
}

func (s *Session) sniff(data []byte) {
	var env sniffEnvelope
	if json.Unmarshal(data, &env) != nil {
		return
	}
	if env.TraceID != "" && s.tracer.TraceID() != env.TraceID {
		s.tracer = telemetry.NewTracer(s.logger, "relay", env.TraceID)
	}
	if env.Type == "start" {
		s.sawStart = true
		s.tracer.Mark("start_sniffed")
	}
}

func (s *Session) writeToBackend(msgType int, data []byte) {
	s.dialMu.Lock()
	defer s.dialMu.Unlock()
	if s.backendConn == nil {
		s.preReady.Push(wireFrame{messageType: msgType, data: data})
		return
	}
	_ = s.backendConn.WriteMessage(msgType, data)
}

// pumpBackendToClient forwards every backend frame to the client
// byte-identically. If the backend closes first, an `error` event is
// synthesized toward the client before the close cascades (§4.6, §8 S5).
func (s *Session) pumpBackendToClient() {
	for {
		msgType, data, err := s.backendConn.ReadMessage()
		if err != nil {
			s.writeClient(websocket.TextMessage, synthesizedBackendClosedEvent())
			s.closePeer(s.clientConn, "backend closed")
			return
		}
		s.writeClient(msgType, data)
	}
}

func (s *Session) writeClient(msgType int, data []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.clientConn.WriteMessage(msgType, data)
}

func synthesizedBackendClosedEvent() []byte {
	data, _ := json.Marshal(map[string]string{
		"type":  "error",
		"error": "backend connection closed",
	})
	return data
}

func (s *Session) closePeer(conn *websocket.Conn, reason string) {
	s.closeOnce.Do(func() {
		metrics.CallsActive.WithLabelValues("relay").Dec()
		close(s.done)
		if conn != nil {
			_ = conn.Close()
		}
		_ = s.clientConn.Close()
		s.dialMu.Lock()
		backendConn := s.backendConn
		s.dialMu.Unlock()
		if backendConn != nil && backendConn != conn {
			_ = backendConn.Close()
		}
		s.tracer.Mark("teardown", "reason", reason, "sawStart", s.sawStart)
	})
}
