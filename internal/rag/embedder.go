package rag

import (
	"context"
	"fmt"

	"gopherai-docqa/internal/ai"
)

const defaultEmbeddingBatchSize = 16

// Embedder maps text to fixed-dimension vectors. Implementations are shared by
// every session and must be safe for concurrent use.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingClient is the slice of the model API the remote embedder needs.
type EmbeddingClient interface {
	EmbedBatch(ctx context.Context, cfg ai.EmbeddingConfig, texts []string) ([][]float32, error)
}

// RemoteEmbedder calls one embedding model over HTTP in fixed-size batches.
type RemoteEmbedder struct {
	client    EmbeddingClient
	cfg       ai.EmbeddingConfig
	batchSize int
}

func NewRemoteEmbedder(client EmbeddingClient, cfg ai.EmbeddingConfig, batchSize int) *RemoteEmbedder {
	if batchSize <= 0 {
		batchSize = defaultEmbeddingBatchSize
	}
	return &RemoteEmbedder{client: client, cfg: cfg, batchSize: batchSize}
}

func (e *RemoteEmbedder) Model() string { return e.cfg.Model }

func (e *RemoteEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		batch, err := e.client.EmbedBatch(ctx, e.cfg, texts[i:end])
		if err != nil {
			return nil, NewError(KindEmbedding, "embed chunks failed", err)
		}
		if len(batch) != end-i {
			return nil, NewError(KindEmbedding, fmt.Sprintf("embedding batch returned %d vectors for %d texts", len(batch), end-i), nil)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (e *RemoteEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.client.EmbedBatch(ctx, e.cfg, []string{text})
	if err != nil {
		return nil, NewError(KindEmbedding, "embed question failed", err)
	}
	if len(vectors) != 1 {
		return nil, NewError(KindEmbedding, "embedding returned no vector for question", nil)
	}
	return vectors[0], nil
}
