package backend

import "strings"

// noiseWords are short transcripts whisper-family ASR models commonly
// hallucinate on background noise or silence (adapted from the teacher's
// isNoiseTranscript noise-word list in pipeline.go).
var noiseWords = map[string]bool{
	"you":       true,
	"thank you": true,
	"thanks":    true,
	"bye":       true,
	"okay":      true,
	"uh":        true,
	"um":        true,
	"hmm":       true,
	".":         true,
}

// isNoiseTranscript reports whether text is almost certainly not real
// speech: a bracketed/parenthesized/asterisked annotation ([noise],
// (static), *crunching*) or a known short noise word. Supplements, but
// does not replace, the literal empty-string check in commit handling
// step 4 — that check runs first here, and this widens what counts as
// "empty".
func isNoiseTranscript(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	if strings.HasPrefix(trimmed, "*") && strings.HasSuffix(trimmed, "*") {
		return true
	}
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		return true
	}
	if strings.HasPrefix(trimmed, "(") && strings.HasSuffix(trimmed, ")") {
		return true
	}
	return noiseWords[strings.ToLower(trimmed)]
}
