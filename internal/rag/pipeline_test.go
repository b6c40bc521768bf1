package rag

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(emb *bagEmbedder) *Pipeline {
	return &Pipeline{
		Extractor: NewExtractor(plainText),
		Chunker:   NewChunker(DefaultChunkSize, DefaultChunkOverlap, DefaultSeparator),
		Embedder:  emb,
	}
}

func TestPipeline_BuildAndRetrieve(t *testing.T) {
	var stages []string
	p := newTestPipeline(&bagEmbedder{})
	p.Observe = func(stage string, _ time.Duration) { stages = append(stages, stage) }

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Shipping is free for orders above fifty dollars.\n")
	}
	for i := 0; i < 40; i++ {
		b.WriteString("The warranty period is twenty four months from purchase.\n")
	}

	corpus, err := p.Build(context.Background(), []Document{{Name: "policy.pdf", Data: []byte(b.String())}})
	require.NoError(t, err)
	assert.Greater(t, corpus.Chunks, 1)
	assert.Equal(t, corpus.Chunks, corpus.Index.Len())
	assert.Equal(t, []string{StageExtract, StageChunk, StageEmbed, StageIndex}, stages)

	r := NewRetriever(corpus.Index, p.Embedder, 0)
	assert.Equal(t, DefaultTopK, r.K())

	hits, err := r.Retrieve(context.Background(), "How long is the warranty period?")
	require.NoError(t, err)
	require.Len(t, hits, min(DefaultTopK, corpus.Chunks))
	assert.Contains(t, hits[0].Text, "warranty")

	again, err := r.Retrieve(context.Background(), "How long is the warranty period?")
	require.NoError(t, err)
	assert.Equal(t, hits, again)
}

func TestPipeline_SmallDocumentIsOneChunk(t *testing.T) {
	p := newTestPipeline(&bagEmbedder{})

	corpus, err := p.Build(context.Background(), []Document{{Name: "a.pdf", Data: []byte("The warranty period is 24 months.")}})
	require.NoError(t, err)
	assert.Equal(t, 1, corpus.Chunks)

	hits, err := NewRetriever(corpus.Index, p.Embedder, 4).Retrieve(context.Background(), "warranty?")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestPipeline_Failures(t *testing.T) {
	ctx := context.Background()

	_, err := newTestPipeline(&bagEmbedder{}).Build(ctx, []Document{{Name: "blank.pdf", Data: []byte("   ")}})
	assert.ErrorIs(t, err, ErrEmptyContent)

	emb := &bagEmbedder{fail: errUpstream}
	_, err = newTestPipeline(emb).Build(ctx, []Document{{Name: "a.pdf", Data: []byte("text")}})
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.Equal(t, 1, emb.calls)
}
