package bridge

import "github.com/voicecore/callcore/internal/audio"

// OutboundPlan optionally greets the caller once the downstream backend
// signals ready (§4.5: "If an outboundPlan.openerText exists...").
type OutboundPlan struct {
	OpenerText string
}

// Config configures one Telephony Bridge session.
type Config struct {
	DownstreamURL    string
	VAD              audio.VADConfig
	Opener           *OutboundPlan
	PreReadyCapacity int
	Denoise          bool
	DenoiseFloor     float32
}
