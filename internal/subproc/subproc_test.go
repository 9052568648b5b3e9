package subproc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript writes an executable shell script and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestRunASRReturnsStdoutOnSuccess(t *testing.T) {
	bin := writeScript(t, `echo "hello world"`)
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "input.wav")
	require.NoError(t, os.WriteFile(wavPath, []byte("RIFF"), 0o644))

	text, err := RunASR(context.Background(), wavPath, ASRConfig{BinaryPath: bin, ModelPath: "model.bin"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestRunASRFallsBackOnPrimaryFailure(t *testing.T) {
	// Fails whenever invoked without --output-txt, succeeds with it.
	bin := writeScript(t, `
case "$*" in
  *--output-txt*) echo "fallback transcript" ;;
  *) exit 1 ;;
esac
`)
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "input.wav")
	require.NoError(t, os.WriteFile(wavPath, []byte("RIFF"), 0o644))

	text, err := RunASR(context.Background(), wavPath, ASRConfig{BinaryPath: bin, ModelPath: "model.bin"})
	require.NoError(t, err)
	assert.Equal(t, "fallback transcript", text)
}

func TestRunASRFailsWhenBothAttemptsFail(t *testing.T) {
	bin := writeScript(t, `echo "boom" >&2; exit 1`)
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "input.wav")
	require.NoError(t, os.WriteFile(wavPath, []byte("RIFF"), 0o644))

	_, err := RunASR(context.Background(), wavPath, ASRConfig{BinaryPath: bin, ModelPath: "model.bin"})
	assert.Error(t, err)
}

func TestRunASRTimesOut(t *testing.T) {
	bin := writeScript(t, `sleep 5`)
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "input.wav")
	require.NoError(t, os.WriteFile(wavPath, []byte("RIFF"), 0o644))

	_, err := RunASR(context.Background(), wavPath, ASRConfig{
		BinaryPath: bin, ModelPath: "model.bin", Timeout: 50 * time.Millisecond,
	})
	assert.Error(t, err)
}

func TestRunTTSReadsOutputFile(t *testing.T) {
	bin := writeScript(t, `
for arg in "$@"; do
  if [ "$prev" = "--output_file" ]; then
    printf 'RIFFxxxxWAVE' > "$arg"
  fi
  prev="$arg"
done
`)
	out, err := RunTTS(context.Background(), "hello", 24000, TTSConfig{
		BinaryPath: bin, ModelPath: "voice.onnx", ConfigPath: "voice.onnx.json",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFxxxxWAVE"), out)
}

func TestRunTTSFailsOnNonZeroExit(t *testing.T) {
	bin := writeScript(t, `echo "bad voice" >&2; exit 2`)
	_, err := RunTTS(context.Background(), "hello", 24000, TTSConfig{
		BinaryPath: bin, ModelPath: "voice.onnx", ConfigPath: "voice.onnx.json",
	})
	assert.Error(t, err)
}

func TestNewTurnTempDirIsRemovable(t *testing.T) {
	dir, err := NewTurnTempDir()
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.NotEmpty(t, TurnWAVPath(dir))
}
