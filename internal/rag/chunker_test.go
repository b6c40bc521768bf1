package rag

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rejoin(chunks []string, overlap int) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		b.WriteString(string([]rune(c)[overlap:]))
	}
	return b.String()
}

func TestNewChunker_Defaults(t *testing.T) {
	c := NewChunker(0, -1, DefaultSeparator)
	assert.Equal(t, DefaultChunkSize, c.Size())
	assert.Equal(t, 0, c.Overlap())

	c = NewChunker(10, 10, DefaultSeparator)
	assert.Equal(t, 5, c.Overlap())
}

func TestChunker_EmptyInput(t *testing.T) {
	c := NewChunker(DefaultChunkSize, DefaultChunkOverlap, DefaultSeparator)
	assert.Nil(t, c.Split(""))
}

func TestChunker_ShortTextIsOneChunk(t *testing.T) {
	c := NewChunker(DefaultChunkSize, DefaultChunkOverlap, DefaultSeparator)
	text := "The warranty period is 24 months.\nReturns are accepted within 30 days."

	chunks := c.Split(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunker_PrefersSeparator(t *testing.T) {
	c := NewChunker(8, 2, "\n")

	chunks := c.Split("aaaa\nbbbb\ncccc")
	assert.Equal(t, []string{"aaaa\n", "a\nbbbb\n", "b\ncccc"}, chunks)
}

func TestChunker_ForceSplitWithoutSeparator(t *testing.T) {
	c := NewChunker(10, 3, "\n")

	chunks := c.Split("abcdefghijklmnopqrstuvwxy")
	assert.Equal(t, []string{"abcdefghij", "hijklmnopq", "opqrstuvwx", "vwxy"}, chunks)
}

func TestChunker_CountsRunes(t *testing.T) {
	c := NewChunker(10, 0, "\n")

	chunks := c.Split(strings.Repeat("é", 30))
	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.Equal(t, 10, len([]rune(chunk)))
	}
}

func TestChunker_RoundTripAndOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&b, "line %d: %s\n", i, strings.Repeat("x", i%37))
	}
	b.WriteString(strings.Repeat("tail-without-newline ", 40))
	text := b.String()

	for _, tc := range []struct{ size, overlap int }{
		{1000, 200},
		{100, 20},
		{57, 13},
		{40, 0},
	} {
		t.Run(fmt.Sprintf("size=%d overlap=%d", tc.size, tc.overlap), func(t *testing.T) {
			c := NewChunker(tc.size, tc.overlap, "\n")
			chunks := c.Split(text)
			require.NotEmpty(t, chunks)

			for i, chunk := range chunks {
				assert.LessOrEqual(t, len([]rune(chunk)), tc.size, "chunk %d too long", i)
				if i == 0 {
					continue
				}
				prev := []rune(chunks[i-1])
				head := string([]rune(chunk)[:tc.overlap])
				assert.Equal(t, string(prev[len(prev)-tc.overlap:]), head, "chunk %d overlap", i)
			}
			assert.Equal(t, text, rejoin(chunks, tc.overlap))
		})
	}
}
