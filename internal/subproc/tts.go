package subproc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// TTSConfig names the piper-style CLI binary and voice model to invoke.
type TTSConfig struct {
	BinaryPath string
	ModelPath  string
	ConfigPath string
	Timeout    time.Duration
}

func (c TTSConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// RunTTS synthesizes text at the given sample rate, returning the
// subprocess's mono PCM16 WAV output bytes (spec §4.7 step 7: "invoke the
// TTS subprocess with the negotiated outputSampleRate; read its mono
// PCM16 output"). Grounded on the teacher's piper service: a temp output
// file, `exec.Command` with the text piped via stdin, `CombinedOutput` for
// diagnostics, then reading the file back.
func RunTTS(ctx context.Context, text string, sampleRate int, cfg TTSConfig) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	outFile, err := os.CreateTemp("", "tts-*.wav")
	if err != nil {
		return nil, fmt.Errorf("tts temp file: %w", err)
	}
	outPath := outFile.Name()
	outFile.Close()
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, cfg.BinaryPath,
		"--model", cfg.ModelPath,
		"--config", cfg.ConfigPath,
		"--output_file", outPath,
		"--sample_rate", strconv.Itoa(sampleRate),
	)
	cmd.Stdin = bytes.NewReader([]byte(text))

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("tts timed out after %s", cfg.timeout())
		}
		return nil, fmt.Errorf("tts: %v: %s", err, combined.String())
	}

	return os.ReadFile(outPath)
}
