package audio

import (
	"encoding/binary"
	"math"
)

func decodePCM(data []byte) []float32 {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := range n {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(s) / math.MaxInt16
	}
	return samples
}

func encodePCM(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(clampToInt16(s)))
	}
	return out
}
