package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	chunks := ChunkText("We are open 9-5. Prices start at $20.", DefaultChunkSize)

	require.Len(t, chunks, 1)
	assert.Equal(t, "We are open 9-5. Prices start at $20.", chunks[0])
}

func TestChunkText_EmptyText(t *testing.T) {
	assert.Nil(t, ChunkText("", DefaultChunkSize))
	assert.Nil(t, ChunkText("   \n\n  ", DefaultChunkSize))
}

func TestChunkText_SplitsAtChunkSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("This sentence pads the text with roughly fifty characters. ")
	}

	chunks := ChunkText(b.String(), DefaultChunkSize)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), DefaultChunkSize+100, "chunk should stay near the configured size")
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestChunkText_SingleOversizedSentence(t *testing.T) {
	long := strings.Repeat("x", 1200)

	chunks := ChunkText(long, DefaultChunkSize)

	require.Len(t, chunks, 1)
	assert.Equal(t, long, chunks[0])
}

func TestChunkText_ConcatenationReproducesText(t *testing.T) {
	text := "First fact here. Second fact follows. Third fact closes it out. " +
		strings.Repeat("More detail about the business and its services. ", 20) +
		"Final sentence."

	chunks := ChunkText(text, 120)

	joined := strings.Join(chunks, " ")
	normalize := func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	}
	assert.Equal(t, normalize(text), normalize(joined))
}

func TestChunkText_NewlinesCollapsedToSpaces(t *testing.T) {
	chunks := ChunkText("Line one.\nLine two.", DefaultChunkSize)

	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0], "\n")
	assert.Equal(t, "Line one. Line two.", chunks[0])
}
