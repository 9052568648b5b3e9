package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadBridgeDefaults(t *testing.T) {
	cfg := LoadBridge()
	require.Equal(t, "8081", cfg.Port)
	require.Equal(t, "ws://localhost:8082/v1/session", cfg.Bridge.DownstreamURL)
	require.Equal(t, 0.012, cfg.Bridge.VAD.Threshold)
	require.False(t, cfg.Bridge.VAD.BargeIn)
	require.Nil(t, cfg.Bridge.Opener)
}

func TestLoadBridgeReadsOverrides(t *testing.T) {
	t.Setenv("BRIDGE_PORT", "9001")
	t.Setenv("DOWNSTREAM_URL", "ws://relay.internal:9002/v1/session")
	t.Setenv("VAD_THRESHOLD", "0.05")
	t.Setenv("BARGE_IN", "true")
	t.Setenv("OPENER_TEXT", "Thanks for calling.")

	cfg := LoadBridge()
	require.Equal(t, "9001", cfg.Port)
	require.Equal(t, "ws://relay.internal:9002/v1/session", cfg.Bridge.DownstreamURL)
	require.Equal(t, 0.05, cfg.Bridge.VAD.Threshold)
	require.True(t, cfg.Bridge.VAD.BargeIn)
	require.NotNil(t, cfg.Bridge.Opener)
	require.Equal(t, "Thanks for calling.", cfg.Bridge.Opener.OpenerText)
}

func TestLoadRelayDefaults(t *testing.T) {
	cfg := LoadRelay()
	require.Equal(t, "8082", cfg.Port)
	require.Equal(t, "ws://localhost:8083/v1/session", cfg.Relay.BackendURL)
}

func TestLoadBackendDefaultsAndPaths(t *testing.T) {
	t.Setenv("ASR_BINARY_PATH", "/opt/asr")
	t.Setenv("TTS_MODEL_PATH", "/opt/voice.onnx")

	cfg := LoadBackend()
	require.Equal(t, "8083", cfg.Port)
	require.Equal(t, 16000, cfg.Backend.InputSampleRate)
	require.Equal(t, 24000, cfg.Backend.OutputSampleRate)
	require.Equal(t, "/opt/asr", cfg.Paths.ASRBinary)
	require.Equal(t, "/opt/asr", cfg.Backend.ASR.BinaryPath)
	require.Equal(t, "/opt/voice.onnx", cfg.Paths.TTSModel)
	require.Equal(t, "", cfg.PostgresURL)
}

func TestLoadBackendTimeoutOverrides(t *testing.T) {
	t.Setenv("ASR_TIMEOUT", "5s")
	t.Setenv("TURN_TIMEOUT", "45s")

	cfg := LoadBackend()
	require.Equal(t, 5*time.Second, cfg.Backend.ASR.Timeout)
	require.Equal(t, 45*time.Second, cfg.Backend.TurnTimeout)
}

func TestLogLevelParsesKnownValues(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	require.Equal(t, -4, int(LogLevel()))

	t.Setenv("LOG_LEVEL", "bogus")
	require.Equal(t, 0, int(LogLevel()))
}
