package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNoiseTranscript(t *testing.T) {
	cases := map[string]bool{
		"":               true,
		"   ":            true,
		"*static*":       true,
		"[noise]":        true,
		"(crunching)":    true,
		"thanks":         true,
		"Thank You":      true,
		"hello world":    false,
		"what time is it": false,
	}
	for text, want := range cases {
		assert.Equal(t, want, isNoiseTranscript(text), "text=%q", text)
	}
}
