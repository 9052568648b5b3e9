// Package config loads each binary's configuration from environment
// variables, grounded on the teacher's services/gateway/cmd/gateway
// config.go (envStr/envInt/envFloat) and generalized here with
// envBool/envDuration in the same idiom, to cover the module's full
// enumerated configuration surface (spec §6.3).
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/voicecore/callcore/internal/audio"
	"github.com/voicecore/callcore/internal/backend"
	"github.com/voicecore/callcore/internal/bridge"
	"github.com/voicecore/callcore/internal/health"
	"github.com/voicecore/callcore/internal/relay"
	"github.com/voicecore/callcore/internal/subproc"
)

func envStr(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}

// LogLevel parses the LOG_LEVEL env var (debug/info/warn/error) into a
// slog.Level, defaulting to info on anything unrecognized (spec §6.3).
func LogLevel() slog.Level {
	switch envStr("LOG_LEVEL", "info") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// BridgeConfig is the Telephony Bridge process's environment-sourced
// configuration.
type BridgeConfig struct {
	Port   string
	Bridge bridge.Config
}

// LoadBridge reads the bridge's env vars (spec §6.3: listen port,
// downstream URL, commit silence ms, VAD threshold, max utterance ms,
// barge-in), plus opener text, pre-ready capacity and the denoise knobs.
func LoadBridge() BridgeConfig {
	vad := audio.DefaultVADConfig()
	vad.Threshold = envFloat("VAD_THRESHOLD", vad.Threshold)
	vad.CommitSilenceMs = envInt("COMMIT_SILENCE_MS", vad.CommitSilenceMs)
	vad.MaxUtteranceMs = envInt("MAX_UTTERANCE_MS", vad.MaxUtteranceMs)
	vad.BargeIn = envBool("BARGE_IN", vad.BargeIn)

	var opener *bridge.OutboundPlan
	if text := envStr("OPENER_TEXT", ""); text != "" {
		opener = &bridge.OutboundPlan{OpenerText: text}
	}

	return BridgeConfig{
		Port: envStr("BRIDGE_PORT", "8081"),
		Bridge: bridge.Config{
			DownstreamURL:    envStr("DOWNSTREAM_URL", "ws://localhost:8082/v1/session"),
			VAD:              vad,
			Opener:           opener,
			PreReadyCapacity: envInt("PRE_READY_CAPACITY", 1000),
			Denoise:          envBool("DENOISE", false),
			DenoiseFloor:     float32(envFloat("DENOISE_FLOOR", 0.01)),
		},
	}
}

// RelayConfig is the Relay process's environment-sourced configuration.
type RelayConfig struct {
	Port  string
	Relay relay.Config
}

// LoadRelay reads the relay's env vars (spec §6.3: listen port,
// downstream URL).
func LoadRelay() RelayConfig {
	return RelayConfig{
		Port: envStr("RELAY_PORT", "8082"),
		Relay: relay.Config{
			BackendURL:       envStr("BACKEND_URL", "ws://localhost:8083/v1/session"),
			PreReadyCapacity: envInt("PRE_READY_CAPACITY", 1000),
		},
	}
}

// BackendConfig is the Voice Backend process's environment-sourced
// configuration, plus the binary/model paths health.Check uses to
// derive readiness.
type BackendConfig struct {
	Port        string
	Backend     backend.Config
	Paths       health.BinaryPaths
	PostgresURL string
}

// LoadBackend reads the backend's env vars (spec §6.3: listen port,
// input/output sample rate, ASR/TTS binary/model/config paths, resampler
// binary, §6.4 transcript sink Postgres URL).
func LoadBackend() BackendConfig {
	paths := health.BinaryPaths{
		ASRBinary:     envStr("ASR_BINARY_PATH", ""),
		ASRModel:      envStr("ASR_MODEL_PATH", ""),
		TTSBinary:     envStr("TTS_BINARY_PATH", ""),
		TTSModel:      envStr("TTS_MODEL_PATH", ""),
		TTSConfig:     envStr("TTS_CONFIG_PATH", ""),
		ResamplerPath: envStr("RESAMPLER_BINARY_PATH", ""),
	}

	cfg := backend.Config{
		InputSampleRate:  envInt("INPUT_SAMPLE_RATE", 16000),
		OutputSampleRate: envInt("OUTPUT_SAMPLE_RATE", 24000),
		ASR: subproc.ASRConfig{
			BinaryPath: paths.ASRBinary,
			ModelPath:  paths.ASRModel,
			Timeout:    envDuration("ASR_TIMEOUT", subproc.DefaultTimeout),
		},
		TTS: subproc.TTSConfig{
			BinaryPath: paths.TTSBinary,
			ModelPath:  paths.TTSModel,
			ConfigPath: paths.TTSConfig,
			Timeout:    envDuration("TTS_TIMEOUT", subproc.DefaultTimeout),
		},
		MaxUtteranceMs: envInt("MAX_UTTERANCE_MS", 0),
		ClassifyURL:    envStr("CLASSIFY_URL", ""),
		TurnTimeout:    envDuration("TURN_TIMEOUT", 30*time.Second),
	}

	return BackendConfig{
		Port:        envStr("BACKEND_PORT", "8083"),
		Backend:     cfg,
		Paths:       paths,
		PostgresURL: envStr("POSTGRES_URL", ""),
	}
}

// ReplayConfig is the golden replay CLI's environment-sourced
// configuration (spec §4.10); flags on the replay binary itself
// normally override these, but env fallbacks keep it consistent with
// the rest of the module's configuration style.
type ReplayConfig struct {
	RelayURL string
	Timeout  time.Duration
}

// LoadReplay reads the replay driver's env vars.
func LoadReplay() ReplayConfig {
	return ReplayConfig{
		RelayURL: envStr("REPLAY_RELAY_URL", "ws://localhost:8082/v1/session"),
		Timeout:  envDuration("REPLAY_TIMEOUT", 30*time.Second),
	}
}
