package audio

import "math"

// Resample converts samples from srcRate to dstRate using linear
// interpolation. Returns the input unchanged if rates already match, so
// Resample(x, r, r) is bit-identical to x (spec §8 invariant 5).
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	outLen := int(math.Round(float64(len(samples)) * float64(dstRate) / float64(srcRate)))
	if outLen <= 0 {
		return nil
	}
	ratio := float64(srcRate) / float64(dstRate)
	out := make([]float32, outLen)

	for i := range outLen {
		srcIdx := float64(i) * ratio
		idx := int(srcIdx)
		frac := float32(srcIdx - float64(idx))
		out[i] = interpolate(samples, idx, frac)
	}

	return out
}

// interpolate clamps to the last sample when the requested index (or its
// neighbor) falls past the end of the buffer, per spec §4.1's "clamp edges
// by last-sample repetition".
func interpolate(samples []float32, idx int, frac float32) float32 {
	if idx >= len(samples) {
		return samples[len(samples)-1]
	}
	if idx+1 >= len(samples) {
		return samples[idx]
	}
	return samples[idx]*(1-frac) + samples[idx+1]*frac
}
