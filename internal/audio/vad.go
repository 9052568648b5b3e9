package audio

// VADConfig controls the frame-level commit detector (spec §4.4). All
// timing is accounted in whole 20 ms frames, not wall-clock time, so that
// commit timing is deterministic and reproducible across replay runs
// (spec §8 S6).
type VADConfig struct {
	// Threshold is the normalized RMS ([0,1]) above which a frame counts
	// as speech. Spec default 0.012.
	Threshold float64
	// CommitSilenceMs is how much trailing silence after pending speech
	// triggers an automatic commit. Spec default 900.
	CommitSilenceMs int
	// MaxUtteranceMs forces a commit once continuous speech reaches this
	// duration. Zero disables the forced commit.
	MaxUtteranceMs int
	// BargeIn enables interrupting outbound playback when the caller
	// speaks over it.
	BargeIn bool
}

// DefaultVADConfig returns the spec's §4.4 defaults.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		Threshold:       0.012,
		CommitSilenceMs: 900,
		MaxUtteranceMs:  0,
		BargeIn:         false,
	}
}

// frameMs is the fixed frame duration the detector accounts in (spec §4.4
// and §4.5: carrier media frames are always 20 ms).
const frameMs = 20

// CommitReason names why a commit was triggered.
type CommitReason string

const (
	CommitSilence      CommitReason = "silence"
	CommitMaxUtterance CommitReason = "max_utterance"
	CommitDTMF         CommitReason = "dtmf"
)

// Detector is a frame-level voice-activity and commit detector. It is not
// safe for concurrent use; each call session owns exactly one (spec §5:
// per-session state is serialized).
type Detector struct {
	cfg VADConfig

	pendingSpeech bool
	silenceMs     int
	speechMs      int
}

// NewDetector creates a commit detector with the given configuration.
func NewDetector(cfg VADConfig) *Detector {
	return &Detector{cfg: cfg}
}

// FrameResult reports what a single 20 ms frame did to detector state.
type FrameResult struct {
	RMS      float64
	IsSpeech bool
	Commit   bool
	Reason   CommitReason
}

// Process feeds one 20 ms frame of decoded PCM (any sample rate consistent
// with Threshold's calibration) into the detector and returns whether a
// commit was triggered.
func (d *Detector) Process(samples []float32) FrameResult {
	rms := RMS(samples)
	isSpeech := rms >= d.cfg.Threshold

	if isSpeech {
		return d.onSpeechFrame(rms)
	}
	return d.onSilenceFrame(rms)
}

func (d *Detector) onSpeechFrame(rms float64) FrameResult {
	d.pendingSpeech = true
	d.silenceMs = 0
	d.speechMs += frameMs

	if d.cfg.MaxUtteranceMs > 0 && d.speechMs >= d.cfg.MaxUtteranceMs {
		d.speechMs = 0
		d.silenceMs = 0
		return FrameResult{RMS: rms, IsSpeech: true, Commit: true, Reason: CommitMaxUtterance}
	}
	return FrameResult{RMS: rms, IsSpeech: true}
}

func (d *Detector) onSilenceFrame(rms float64) FrameResult {
	d.silenceMs += frameMs
	d.speechMs = 0

	if d.pendingSpeech && d.silenceMs >= d.cfg.CommitSilenceMs {
		d.pendingSpeech = false
		return FrameResult{RMS: rms, Commit: true, Reason: CommitSilence}
	}
	return FrameResult{RMS: rms}
}

// ForceCommit resets accounting the same way an automatic commit does, for
// callers that trigger a commit out-of-band (DTMF `#`, explicit client
// `commit`). Spec §4.5: "VAD silence counter reset."
func (d *Detector) ForceCommit() {
	d.pendingSpeech = false
	d.silenceMs = 0
	d.speechMs = 0
}

// PendingSpeech reports whether the detector currently believes the caller
// is mid-utterance (used by tests; the bridge's barge-in decision goes
// through ShouldBargeIn).
func (d *Detector) PendingSpeech() bool {
	return d.pendingSpeech
}

// ShouldBargeIn reports whether a frame with the given RMS should interrupt
// outbound playback, per spec §4.4's barge-in bullet. outboundNonEmpty is
// the bridge's outbound companded-buffer occupancy.
func (d *Detector) ShouldBargeIn(rms float64, outboundNonEmpty bool) bool {
	return d.cfg.BargeIn && rms >= d.cfg.Threshold && outboundNonEmpty
}
