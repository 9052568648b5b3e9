package backend

import "strings"

// chunkWords splits text into word-bounded chunks no longer than maxLen,
// preserving order (spec §4.7 step 6: word-bounded text_delta chunks ≤80
// chars).
func chunkWords(text string, maxLen int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var cur strings.Builder
	for _, w := range words {
		candidateLen := cur.Len() + len(w)
		if cur.Len() > 0 {
			candidateLen++ // separating space
		}
		if cur.Len() > 0 && candidateLen > maxLen {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// chunkSentences splits text into sentence-bounded chunks no longer than
// maxLen, where a sentence boundary is a terminal `.?!` followed by
// whitespace (spec §4.7 step 7).
func chunkSentences(text string, maxLen int) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var cur strings.Builder
	for _, s := range sentences {
		candidateLen := cur.Len() + len(s)
		if cur.Len() > 0 {
			candidateLen++
		}
		if cur.Len() > 0 && candidateLen > maxLen {
			chunks = append(chunks, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(s)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(cur.String()))
	}
	return chunks
}

func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '?' && c != '!' {
			continue
		}
		isBoundary := i+1 >= len(text) || text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t'
		if !isBoundary {
			continue
		}
		sentence := strings.TrimSpace(text[start : i+1])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
