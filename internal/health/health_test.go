package health

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, size int, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), mode))
	return path
}

func TestCheckAllPresentIsReady(t *testing.T) {
	dir := t.TempDir()
	asrBin := writeFile(t, dir, "asr", 10, 0o755)
	asrModel := writeFile(t, dir, "asr.bin", 10, 0o644)
	ttsBin := writeFile(t, dir, "tts", 10, 0o755)
	ttsModel := writeFile(t, dir, "tts.onnx", 10, 0o644)
	ttsConfig := writeFile(t, dir, "tts.onnx.json", 10, 0o644)

	snap := Check(BinaryPaths{
		ASRBinary: asrBin, ASRModel: asrModel,
		TTSBinary: ttsBin, TTSModel: ttsModel, TTSConfig: ttsConfig,
	}, 16000, 24000)

	require.True(t, snap.Ready)
	require.Len(t, snap.Components, 5)
	require.Equal(t, 16000, snap.InputSampleRate)
	require.Equal(t, 24000, snap.OutputSampleRate)
	for _, c := range snap.Components {
		require.True(t, c.Ready, "%s: %s", c.Name, c.Error)
	}
}

func TestCheckMissingFileIsNotReady(t *testing.T) {
	dir := t.TempDir()
	snap := Check(BinaryPaths{
		ASRBinary: filepath.Join(dir, "missing"),
		ASRModel:  writeFile(t, dir, "asr.bin", 10, 0o644),
		TTSBinary: writeFile(t, dir, "tts", 10, 0o755),
		TTSModel:  writeFile(t, dir, "tts.onnx", 10, 0o644),
		TTSConfig: writeFile(t, dir, "tts.onnx.json", 10, 0o644),
	}, 16000, 24000)

	require.False(t, snap.Ready)
}

func TestCheckNonExecutableBinaryIsNotReady(t *testing.T) {
	dir := t.TempDir()
	snap := Check(BinaryPaths{
		ASRBinary: writeFile(t, dir, "asr", 10, 0o644), // not executable
		ASRModel:  writeFile(t, dir, "asr.bin", 10, 0o644),
		TTSBinary: writeFile(t, dir, "tts", 10, 0o755),
		TTSModel:  writeFile(t, dir, "tts.onnx", 10, 0o644),
		TTSConfig: writeFile(t, dir, "tts.onnx.json", 10, 0o644),
	}, 16000, 24000)

	require.False(t, snap.Ready)
	var asrStatus ComponentStatus
	for _, c := range snap.Components {
		if c.Name == "asr_binary" {
			asrStatus = c
		}
	}
	require.False(t, asrStatus.Ready)
	require.Contains(t, asrStatus.Error, "not executable")
}

func TestCheckEmptyModelFileIsNotReady(t *testing.T) {
	dir := t.TempDir()
	snap := Check(BinaryPaths{
		ASRBinary: writeFile(t, dir, "asr", 10, 0o755),
		ASRModel:  writeFile(t, dir, "asr.bin", 0, 0o644), // empty
		TTSBinary: writeFile(t, dir, "tts", 10, 0o755),
		TTSModel:  writeFile(t, dir, "tts.onnx", 10, 0o644),
		TTSConfig: writeFile(t, dir, "tts.onnx.json", 10, 0o644),
	}, 16000, 24000)

	require.False(t, snap.Ready)
}

func TestCheckUnconfiguredResamplerIsSkipped(t *testing.T) {
	dir := t.TempDir()
	snap := Check(BinaryPaths{
		ASRBinary: writeFile(t, dir, "asr", 10, 0o755),
		ASRModel:  writeFile(t, dir, "asr.bin", 10, 0o644),
		TTSBinary: writeFile(t, dir, "tts", 10, 0o755),
		TTSModel:  writeFile(t, dir, "tts.onnx", 10, 0o644),
		TTSConfig: writeFile(t, dir, "tts.onnx.json", 10, 0o644),
	}, 16000, 24000)

	require.True(t, snap.Ready)
	require.Len(t, snap.Components, 5)
}

func TestCheckConfiguredResamplerIsChecked(t *testing.T) {
	dir := t.TempDir()
	snap := Check(BinaryPaths{
		ASRBinary:     writeFile(t, dir, "asr", 10, 0o755),
		ASRModel:      writeFile(t, dir, "asr.bin", 10, 0o644),
		TTSBinary:     writeFile(t, dir, "tts", 10, 0o755),
		TTSModel:      writeFile(t, dir, "tts.onnx", 10, 0o644),
		TTSConfig:     writeFile(t, dir, "tts.onnx.json", 10, 0o644),
		ResamplerPath: filepath.Join(dir, "missing-resampler"),
	}, 16000, 24000)

	require.False(t, snap.Ready)
	require.Len(t, snap.Components, 6)
}
