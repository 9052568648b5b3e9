// Package bridge implements the Telephony Bridge session (spec §4.5):
// carrier media ↔ relay bridging, VAD, DTMF, and per-frame pacing.
package bridge

import "encoding/json"

// carrierEnvelope is the loosely-typed shape of carrier webhook events
// (§6.2): start, media, mark, dtmf, stop. Carrier-defined fields vary by
// vendor, so this is intentionally permissive rather than a strict codec
// like internal/protocol.
type carrierEnvelope struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid,omitempty"`
	Start     *struct {
		CallSid   string `json:"callSid,omitempty"`
		StreamSid string `json:"streamSid,omitempty"`
	} `json:"start,omitempty"`
	Media *struct {
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
	Dtmf *struct {
		Digit string `json:"digit,omitempty"`
	} `json:"dtmf,omitempty"`
}

func decodeCarrierEnvelope(data []byte) (carrierEnvelope, error) {
	var env carrierEnvelope
	err := json.Unmarshal(data, &env)
	return env, err
}

// carrierMediaFrame is the outbound shape the bridge emits to the
// carrier (§4.5: "no track field to remain maximally compatible").
type carrierMediaFrame struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
	Media     struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

func encodeCarrierMediaFrame(streamSid, payload string) ([]byte, error) {
	frame := carrierMediaFrame{Event: "media", StreamSid: streamSid}
	frame.Media.Payload = payload
	return json.Marshal(frame)
}
