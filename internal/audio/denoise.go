package audio

// Denoiser is an optional pre-VAD noise-suppression stage (enabled by the
// bridge's DENOISE config knob). The teacher's denoiser binds
// RNNoise via cgo against a vendored rnnoise.h that isn't present in this
// tree; rather than fabricate that header, this is a stdlib noise gate
// that keeps the same call shape (New/Process/Close) so the bridge wires
// it identically to how the teacher wires its cgo denoiser.
type Denoiser struct {
	floor float32
}

// NewDenoiser creates a denoiser that attenuates samples whose magnitude
// falls below floor (a fraction of full scale, e.g. 0.01).
func NewDenoiser(floor float32) *Denoiser {
	if floor <= 0 {
		floor = 0.01
	}
	return &Denoiser{floor: floor}
}

// Process suppresses low-level noise in samples already normalized to
// [-1, 1], returning a new slice.
func (d *Denoiser) Process(samples []float32) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		if s > -d.floor && s < d.floor {
			out[i] = 0
			continue
		}
		out[i] = s
	}
	return out
}

// Close releases any resources held by the denoiser. Present for
// call-site parity with the cgo-backed denoiser it stands in for; this
// implementation holds none.
func (d *Denoiser) Close() {}
