// Package health implements the readiness checks for the Voice Backend
// (spec §4.9): ASR/TTS binary and model presence, and a snapshot of the
// negotiated sample rates.
package health

import (
	"os"
)

// ComponentStatus is one readiness check's outcome.
type ComponentStatus struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Snapshot is the full readiness response (§4.9: "Exposes a readiness
// snapshot including negotiated sample rates").
type Snapshot struct {
	Ready            bool              `json:"ready"`
	Components       []ComponentStatus `json:"components"`
	InputSampleRate  int               `json:"inputSampleRate"`
	OutputSampleRate int               `json:"outputSampleRate"`
}

// BinaryPaths names every file a Voice Backend process needs present on
// disk before it can serve a turn.
type BinaryPaths struct {
	ASRBinary     string
	ASRModel      string
	TTSBinary     string
	TTSModel      string
	TTSConfig     string
	ResamplerPath string // optional; empty means "not used"
}

// Check runs every configured presence check and returns a full
// snapshot. Readiness is the conjunction of all required checks (§4.9).
func Check(paths BinaryPaths, inputSampleRate, outputSampleRate int) Snapshot {
	checks := []ComponentStatus{
		checkExecutable("asr_binary", paths.ASRBinary),
		checkNonEmptyFile("asr_model", paths.ASRModel),
		checkExecutable("tts_binary", paths.TTSBinary),
		checkNonEmptyFile("tts_model", paths.TTSModel),
		checkNonEmptyFile("tts_config", paths.TTSConfig),
	}
	if paths.ResamplerPath != "" {
		checks = append(checks, checkExecutable("resampler_binary", paths.ResamplerPath))
	}

	ready := true
	for _, c := range checks {
		if !c.Ready {
			ready = false
			break
		}
	}

	return Snapshot{
		Ready:            ready,
		Components:       checks,
		InputSampleRate:  inputSampleRate,
		OutputSampleRate: outputSampleRate,
	}
}

func checkExecutable(name, path string) ComponentStatus {
	if path == "" {
		return ComponentStatus{Name: name, Ready: false, Error: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return ComponentStatus{Name: name, Ready: false, Error: err.Error()}
	}
	if info.IsDir() {
		return ComponentStatus{Name: name, Ready: false, Error: "is a directory"}
	}
	if info.Mode()&0o111 == 0 {
		return ComponentStatus{Name: name, Ready: false, Error: "not executable"}
	}
	return ComponentStatus{Name: name, Ready: true}
}

func checkNonEmptyFile(name, path string) ComponentStatus {
	if path == "" {
		return ComponentStatus{Name: name, Ready: false, Error: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return ComponentStatus{Name: name, Ready: false, Error: err.Error()}
	}
	if info.IsDir() {
		return ComponentStatus{Name: name, Ready: false, Error: "is a directory"}
	}
	if info.Size() == 0 {
		return ComponentStatus{Name: name, Ready: false, Error: "empty file"}
	}
	return ComponentStatus{Name: name, Ready: true}
}
