package backend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkWordsRespectsMaxLenAndOrder(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog and keeps running"
	chunks := chunkWords(text, 20)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 20)
	}
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestChunkWordsEmptyInput(t *testing.T) {
	assert.Nil(t, chunkWords("", 80))
	assert.Nil(t, chunkWords("   ", 80))
}

func TestChunkSentencesPacksShortSentencesIntoOneChunk(t *testing.T) {
	text := "Hello there. How are you? I am fine!"
	chunks := chunkSentences(text, 500)
	assert.Equal(t, []string{"Hello there. How are you? I am fine!"}, chunks)
}

func TestChunkSentencesRespectsMaxLen(t *testing.T) {
	text := "One sentence here. Another sentence follows. A third one too."
	chunks := chunkSentences(text, 30)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 30)
	}
	assert.Greater(t, len(chunks), 1)
}

func TestChunkSentencesNoTerminalPunctuationIsOneChunk(t *testing.T) {
	chunks := chunkSentences("no punctuation at all", 100)
	assert.Equal(t, []string{"no punctuation at all"}, chunks)
}
