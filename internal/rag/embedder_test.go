package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docqa/internal/ai"
)

type recordingEmbeddingClient struct {
	batches [][]string
	short   bool
	err     error
}

func (c *recordingEmbeddingClient) EmbedBatch(_ context.Context, _ ai.EmbeddingConfig, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, append([]string(nil), texts...))
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	if c.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func TestRemoteEmbedder_BatchesInOrder(t *testing.T) {
	client := &recordingEmbeddingClient{}
	e := NewRemoteEmbedder(client, ai.EmbeddingConfig{Model: "nomic-embed-text"}, 2)
	assert.Equal(t, "nomic-embed-text", e.Model())

	vectors, err := e.EmbedDocuments(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "bb"}, {"ccc", "dddd"}, {"eeeee"}}, client.batches)
	require.Len(t, vectors, 5)
	for i, v := range vectors {
		assert.Equal(t, float32(i+1), v[0])
	}
}

func TestRemoteEmbedder_Failures(t *testing.T) {
	ctx := context.Background()

	_, err := NewRemoteEmbedder(&recordingEmbeddingClient{err: errUpstream}, ai.EmbeddingConfig{}, 0).
		EmbedDocuments(ctx, []string{"x"})
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.ErrorIs(t, err, errUpstream)

	_, err = NewRemoteEmbedder(&recordingEmbeddingClient{short: true}, ai.EmbeddingConfig{}, 0).
		EmbedDocuments(ctx, []string{"x", "y"})
	assert.ErrorIs(t, err, ErrEmbedding)

	_, err = NewRemoteEmbedder(&recordingEmbeddingClient{err: errUpstream}, ai.EmbeddingConfig{}, 0).
		EmbedQuery(ctx, "why?")
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestRemoteEmbedder_EmbedQuery(t *testing.T) {
	client := &recordingEmbeddingClient{}
	v, err := NewRemoteEmbedder(client, ai.EmbeddingConfig{}, 0).EmbedQuery(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, v)
	assert.Equal(t, [][]string{{"abc"}}, client.batches)
}
