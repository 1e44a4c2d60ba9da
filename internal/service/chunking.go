package service

import "strings"

// DefaultChunkSize is the target chunk size in characters for knowledge
// indexing.
const DefaultChunkSize = 500

// ChunkText splits knowledge text into sentence-respecting chunks of roughly
// maxChunkSize characters. Newlines are collapsed to spaces and sentences are
// accumulated greedily; a chunk is emitted when appending the next sentence
// would push a non-empty accumulator past the limit. The bound is soft: a
// single sentence longer than maxChunkSize is never split. Empty input yields
// no chunks.
func ChunkText(text string, maxChunkSize int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}

	normalized := strings.ReplaceAll(text, "\n", " ")
	sentences := splitSentences(normalized)

	var chunks []string
	var current string

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if len(current)+len(sentence) > maxChunkSize && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			current = sentence + " "
		} else {
			current += sentence + " "
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return chunks
}

// splitSentences splits on period-space boundaries, restoring the terminator
// on each piece so that joining the pieces reproduces the source text.
func splitSentences(text string) []string {
	parts := strings.Split(text, ". ")
	for i := 0; i < len(parts)-1; i++ {
		parts[i] += "."
	}
	return parts
}
