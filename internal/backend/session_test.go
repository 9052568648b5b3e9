package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/voicecore/callcore/internal/audio"
	"github.com/voicecore/callcore/internal/conversation"
	"github.com/voicecore/callcore/internal/subproc"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func newClientAndBackend(t *testing.T, cfg Config) (client *websocket.Conn, cleanup func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		s := NewSession(conn, cfg, conversation.NewReferenceCore(), nil, testLogger())
		go s.Run()
	}))
	wsURL := "ws" + srv.URL[len("http"):]
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return c, func() { c.Close(); srv.Close() }
}

func TestBackendTextTurnHappyPath(t *testing.T) {
	ttsBin := writeScript(t, ttsStubScript())
	cfg := Config{
		TTS: subproc.TTSConfig{BinaryPath: ttsBin, ModelPath: "v.onnx", ConfigPath: "v.onnx.json"},
	}
	client, cleanup := newClientAndBackend(t, cfg)
	defer cleanup()

	require.NoError(t, client.WriteJSON(map[string]any{"type": "start"}))
	var ready map[string]any
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, client.ReadJSON(&ready))
	require.Equal(t, "ready", ready["type"])

	require.NoError(t, client.WriteJSON(map[string]any{"type": "text", "text": "hello there"}))

	var sawTextCompleted, sawResponseCompleted bool
	for i := 0; i < 20; i++ {
		var frame map[string]any
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, client.ReadJSON(&frame))
		switch frame["type"] {
		case "text_completed":
			sawTextCompleted = true
		case "response_completed":
			sawResponseCompleted = true
		}
		if sawResponseCompleted {
			break
		}
	}
	require.True(t, sawTextCompleted)
	require.True(t, sawResponseCompleted)
}

func TestBackendCommitWithEmptyBufferSkipsToResponseCompleted(t *testing.T) {
	cfg := Config{}
	client, cleanup := newClientAndBackend(t, cfg)
	defer cleanup()

	require.NoError(t, client.WriteJSON(map[string]any{"type": "start"}))
	var ready map[string]any
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, client.ReadJSON(&ready))

	require.NoError(t, client.WriteJSON(map[string]any{"type": "commit"}))

	var frame map[string]any
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, client.ReadJSON(&frame))
	require.Equal(t, "response_completed", frame["type"])
	require.NotEmpty(t, frame["responseId"])
}

func TestBackendCommitWithEmptyBufferAndInstructionsSpeaksOpener(t *testing.T) {
	ttsBin := writeScript(t, ttsStubScript())
	cfg := Config{
		TTS: subproc.TTSConfig{BinaryPath: ttsBin, ModelPath: "v.onnx", ConfigPath: "v.onnx.json"},
	}
	client, cleanup := newClientAndBackend(t, cfg)
	defer cleanup()

	require.NoError(t, client.WriteJSON(map[string]any{"type": "start"}))
	var ready map[string]any
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, client.ReadJSON(&ready))

	// No audio_chunk sent at all — mirrors the bridge's opener commit,
	// which fires on downstream `ready` before any caller audio exists.
	require.NoError(t, client.WriteJSON(map[string]any{
		"type": "commit", "instructions": "Speak this opener verbatim: welcome to the help line",
	}))

	var sawTextDelta, sawTextCompleted, sawResponseCompleted bool
	for i := 0; i < 20; i++ {
		var frame map[string]any
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, client.ReadJSON(&frame))
		switch frame["type"] {
		case "text_delta":
			sawTextDelta = true
		case "text_completed":
			sawTextCompleted = true
		case "response_completed":
			sawResponseCompleted = true
		}
		if sawResponseCompleted {
			break
		}
	}
	require.True(t, sawTextDelta, "opener commit must run a real turn, not the empty-transcript ack")
	require.True(t, sawTextCompleted)
	require.True(t, sawResponseCompleted)
}

func TestBackendCommitWhenNotReadyEmitsConfigError(t *testing.T) {
	cfg := Config{Readiness: func() bool { return false }}
	client, cleanup := newClientAndBackend(t, cfg)
	defer cleanup()

	require.NoError(t, client.WriteJSON(map[string]any{"type": "start"}))
	var ready map[string]any
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, client.ReadJSON(&ready))

	require.NoError(t, client.WriteJSON(map[string]any{"type": "commit"}))

	var frame map[string]any
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, client.ReadJSON(&frame))
	require.Equal(t, "error", frame["type"])
	require.Contains(t, frame["error"], "config:")
}

func TestBackendSecondCommitWhileInFlightIsIgnored(t *testing.T) {
	asrBin := writeScript(t, `sleep 0.3; echo "hello"`)
	ttsBin := writeScript(t, ttsStubScript())
	cfg := Config{
		ASR: subproc.ASRConfig{BinaryPath: asrBin, ModelPath: "m.bin"},
		TTS: subproc.TTSConfig{BinaryPath: ttsBin, ModelPath: "v.onnx", ConfigPath: "v.onnx.json"},
	}
	client, cleanup := newClientAndBackend(t, cfg)
	defer cleanup()

	require.NoError(t, client.WriteJSON(map[string]any{"type": "start"}))
	var ready map[string]any
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, client.ReadJSON(&ready))

	require.NoError(t, client.WriteJSON(map[string]any{
		"type": "audio_chunk", "audio": audio.EncodeBase64(make([]byte, 320)),
	}))
	require.NoError(t, client.WriteJSON(map[string]any{"type": "commit"}))
	// Sent while the first commit's ASR sleep is still in flight; must be
	// silently ignored rather than starting a second turn.
	require.NoError(t, client.WriteJSON(map[string]any{"type": "commit"}))

	seenCompleted := 0
	for i := 0; i < 30; i++ {
		var frame map[string]any
		client.SetReadDeadline(time.Now().Add(3 * time.Second))
		if client.ReadJSON(&frame) != nil {
			break
		}
		if frame["type"] == "response_completed" {
			seenCompleted++
		}
	}
	require.Equal(t, 1, seenCompleted)
}

type recordingSink struct {
	mu   sync.Mutex
	recs []TranscriptRecord
}

func (s *recordingSink) Write(_ context.Context, rec TranscriptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *recordingSink) last() (TranscriptRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recs) == 0 {
		return TranscriptRecord{}, false
	}
	return s.recs[len(s.recs)-1], true
}

func TestBackendCommitFiresClassifyAndAttachesResultToTranscript(t *testing.T) {
	classifySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ClassifyResult{Label: "calm", Confidence: 0.9})
	}))
	defer classifySrv.Close()

	asrBin := writeScript(t, `echo "hello there"`)
	ttsBin := writeScript(t, ttsStubScript())
	cfg := Config{
		ASR:         subproc.ASRConfig{BinaryPath: asrBin, ModelPath: "m.bin"},
		TTS:         subproc.TTSConfig{BinaryPath: ttsBin, ModelPath: "v.onnx", ConfigPath: "v.onnx.json"},
		ClassifyURL: classifySrv.URL,
	}
	sink := &recordingSink{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		s := NewSession(conn, cfg, conversation.NewReferenceCore(), sink, testLogger())
		go s.Run()
	}))
	defer srv.Close()
	wsURL := "ws" + srv.URL[len("http"):]
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteJSON(map[string]any{"type": "start"}))
	var ready map[string]any
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, client.ReadJSON(&ready))

	require.NoError(t, client.WriteJSON(map[string]any{
		"type": "audio_chunk", "audio": audio.EncodeBase64(make([]byte, 320)),
	}))
	require.NoError(t, client.WriteJSON(map[string]any{"type": "commit"}))

	for i := 0; i < 20; i++ {
		var frame map[string]any
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, client.ReadJSON(&frame))
		if frame["type"] == "response_completed" {
			break
		}
	}

	require.Eventually(t, func() bool {
		rec, ok := sink.last()
		return ok && rec.ClassificationLabel == "calm"
	}, 2*time.Second, 20*time.Millisecond)
}

// ttsStubScript emits a minimal valid mono PCM16 WAV (16 kHz, zero audio
// samples) to whatever --output_file path it receives, using portable
// POSIX octal printf escapes rather than \xHH (not universally supported
// by /bin/sh's printf builtin).
func ttsStubScript() string {
	return `
prev=""
out=""
for arg in "$@"; do
  if [ "$prev" = "--output_file" ]; then
    out="$arg"
  fi
  prev="$arg"
done
printf 'RIFF\044\000\000\000WAVEfmt \020\000\000\000\001\000\001\000\200\076\000\000\000\175\000\000\002\000\020\000data\000\000\000\000' > "$out"
`
}
