package bridge

import (
	"encoding/xml"
	"net/http"
)

// twiMLResponse is the minimal TwiML document the carrier's voice
// webhook expects: exactly one <Connect><Stream> directive pointing at
// this bridge's own media WebSocket URL, nothing else (spec §6.2).
type twiMLResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twiMLConnect `xml:"Connect"`
}

type twiMLConnect struct {
	Stream twiMLStream `xml:"Stream"`
}

type twiMLStream struct {
	URL string `xml:"url,attr"`
}

// VoiceWebhookHandler answers the carrier's inbound-call webhook with a
// TwiML document connecting the call's media stream to mediaURL (the
// bridge's own carrier WebSocket endpoint).
func VoiceWebhookHandler(mediaURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc := twiMLResponse{Connect: twiMLConnect{Stream: twiMLStream{URL: mediaURL}}}
		data, err := xml.Marshal(doc)
		if err != nil {
			http.Error(w, "twiml encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(xml.Header))
		w.Write(data)
	}
}
