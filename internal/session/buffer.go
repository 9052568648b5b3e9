// Package session holds the per-call inbound audio accumulator used by
// the voice backend (spec §3's Backend Session "inbound PCM buffer",
// §4.7 commit handling, §9's "unbounded buffers" note).
package session

import (
	"errors"
	"fmt"
)

// defaultMaxBytes is the flat safety ceiling used when no maxUtteranceMs
// is configured: 10 minutes of 16 kHz mono PCM16.
const defaultMaxBytes = 16000 * 2 * 60 * 10

// ErrOverflow is returned by Append when the buffer's byte ceiling would
// be exceeded; the caller drops the whole turn's buffered audio (§7
// `overflow` kind).
var ErrOverflow = errors.New("pcm buffer overflow")

// PCMBuffer accumulates inbound 16 kHz mono PCM16 bytes for one call
// session, between commits. Not safe for concurrent use; callers must
// serialize access per §5's "per call session, all state transitions are
// serialized" rule.
type PCMBuffer struct {
	chunks   [][]byte
	size     int
	maxBytes int
}

// NewPCMBuffer creates a buffer bounded by maxBytes. A maxBytes of 0
// adopts defaultMaxBytes.
func NewPCMBuffer(maxBytes int) *PCMBuffer {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &PCMBuffer{maxBytes: maxBytes}
}

// MaxBytesForUtterance derives a buffer ceiling from a configured
// maxUtteranceMs at 16 kHz mono PCM16 (2 bytes/sample), falling back to
// defaultMaxBytes when maxUtteranceMs is 0 (disabled).
func MaxBytesForUtterance(maxUtteranceMs int) int {
	if maxUtteranceMs <= 0 {
		return defaultMaxBytes
	}
	return (maxUtteranceMs * 16000 * 2) / 1000
}

// Append adds a chunk of inbound PCM16 bytes. If appending would push the
// buffer past its byte ceiling, the entire turn's buffered audio is
// dropped and ErrOverflow is returned; the caller is expected to surface
// an `overflow` error event and begin a fresh turn.
func (b *PCMBuffer) Append(data []byte) error {
	if b.size+len(data) > b.maxBytes {
		b.chunks = nil
		b.size = 0
		return fmt.Errorf("%w: would exceed %d bytes", ErrOverflow, b.maxBytes)
	}
	b.chunks = append(b.chunks, data)
	b.size += len(data)
	return nil
}

// TakeAll atomically returns all buffered bytes concatenated in order and
// resets the buffer to empty (§4.7 commit handling step 1).
func (b *PCMBuffer) TakeAll() []byte {
	if b.size == 0 {
		b.chunks = nil
		return nil
	}
	out := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	b.chunks = nil
	b.size = 0
	return out
}

// Len returns the total buffered byte count.
func (b *PCMBuffer) Len() int {
	return b.size
}

// ChunkCount returns the number of discrete chunks currently buffered.
func (b *PCMBuffer) ChunkCount() int {
	return len(b.chunks)
}
