// Package audio implements the companding, resampling, and voice-activity
// pieces shared by the bridge and backend services: mu-law/A-law G.711
// conversion, linear resampling between 8/16/24 kHz, RMS energy, WAV
// framing, and the frame-level commit detector.
package audio

import "fmt"

// Codec identifies the wire encoding of a chunk of carrier or backend audio.
type Codec string

const (
	CodecPCM      Codec = "pcm"
	CodecG711Ulaw Codec = "g711_ulaw"
	CodecG711Alaw Codec = "g711_alaw"
)

// Decode converts encoded audio bytes to float32 PCM samples normalized to
// [-1, 1]. Returns the samples and the sample rate they were encoded at.
func Decode(data []byte, codec Codec, sampleRate int) ([]float32, int, error) {
	switch codec {
	case CodecPCM:
		return decodePCM(data), sampleRate, nil
	case CodecG711Ulaw:
		return decodeG711Ulaw(data), 8000, nil
	case CodecG711Alaw:
		return decodeG711Alaw(data), 8000, nil
	}
	return nil, 0, fmt.Errorf("unsupported codec: %s", codec)
}

// Encode converts float32 PCM samples in [-1, 1] to the wire encoding
// named by codec. The bridge uses it both for the inbound PCM16 frames it
// forwards downstream and for the outbound mu-law frames it sends the carrier.
func Encode(samples []float32, codec Codec) ([]byte, error) {
	switch codec {
	case CodecPCM:
		return encodePCM(samples), nil
	case CodecG711Ulaw:
		return encodeG711Ulaw(samples), nil
	case CodecG711Alaw:
		return encodeG711Alaw(samples), nil
	}
	return nil, fmt.Errorf("unsupported codec: %s", codec)
}
