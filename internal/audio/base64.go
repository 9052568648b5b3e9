package audio

import "encoding/base64"

// EncodeBase64 frames raw bytes for the JSON wire protocol.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 unframes a wire-protocol audio payload.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
