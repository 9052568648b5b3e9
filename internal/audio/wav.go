package audio

import (
	"encoding/binary"
	"fmt"
)

// WriteWAV encodes mono PCM16 samples as a canonical 44-byte-header RIFF/WAVE
// file, the format the backend writes to a per-turn temp directory before
// invoking the ASR subprocess (spec §4.7 step 3).
func WriteWAV(samples []int16, sampleRate int) []byte {
	dataLen := len(samples) * 2
	totalLen := 44 + dataLen

	buf := make([]byte, totalLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(totalLen-8))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                   // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(s))
	}
	return buf
}

// WriteWAVFloat is WriteWAV for already-decoded [-1, 1] float32 samples.
func WriteWAVFloat(samples []float32, sampleRate int) []byte {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = clampToInt16(s)
	}
	return WriteWAV(pcm, sampleRate)
}

// ReadWAV parses a canonical mono PCM16 WAV file, as produced by a TTS
// subprocess or supplied to the golden replay harness (K). It walks RIFF
// chunks rather than assuming the 44-byte layout WriteWAV emits, since
// third-party encoders commonly add a "LIST" or "fact" chunk before "data".
func ReadWAV(data []byte) (samples []int16, sampleRate int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var numChannels, bitsPerSample uint16
	var dataBytes []byte
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, fmt.Errorf("fmt chunk too small")
			}
			numChannels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
		case "data":
			dataBytes = data[body : body+chunkSize]
		}

		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++ // chunks are word-aligned
		}
	}

	if dataBytes == nil {
		return nil, 0, fmt.Errorf("no data chunk")
	}
	if bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported bits per sample: %d", bitsPerSample)
	}
	if numChannels == 0 {
		numChannels = 1
	}

	n := len(dataBytes) / 2
	all := make([]int16, n)
	for i := range n {
		all[i] = int16(binary.LittleEndian.Uint16(dataBytes[i*2:]))
	}
	if numChannels == 1 {
		return all, sampleRate, nil
	}

	// Downmix to mono by averaging channels.
	frames := n / int(numChannels)
	mono := make([]int16, frames)
	for i := range frames {
		var sum int32
		for c := range int(numChannels) {
			sum += int32(all[i*int(numChannels)+c])
		}
		mono[i] = int16(sum / int32(numChannels))
	}
	return mono, sampleRate, nil
}

// ToFloat32 converts PCM16 samples to [-1, 1] float32.
func ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768
	}
	return out
}
