package backend

import (
	"time"

	"github.com/voicecore/callcore/internal/subproc"
)

// Config configures one Voice Backend session.
type Config struct {
	InputSampleRate  int
	OutputSampleRate int

	ASR subproc.ASRConfig
	TTS subproc.TTSConfig

	MaxUtteranceMs int

	// ClassifyURL, when set, enables the optional fire-and-forget
	// audio-classification span (disabled by default, additive).
	ClassifyURL string

	TurnTimeout time.Duration

	// Readiness, when set, gates commit/text handling on the process's
	// startup health check (spec §4.9/§7 "config" kind). Nil means
	// always ready.
	Readiness func() bool
}

func (c Config) outputSampleRate() int {
	if c.OutputSampleRate == 0 {
		return 24000
	}
	return c.OutputSampleRate
}

func (c Config) inputSampleRate() int {
	if c.InputSampleRate == 0 {
		return 16000
	}
	return c.InputSampleRate
}

// validSampleRates are the negotiable output rates (spec §6.1 `start`).
var validSampleRates = map[int]bool{8000: true, 16000: true, 24000: true}
