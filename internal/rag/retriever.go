package rag

import "context"

const DefaultTopK = 4

// Retriever embeds a question with the build-time embedder and queries one
// session's index with a fixed k.
type Retriever struct {
	index    *Index
	embedder Embedder
	k        int
}

func NewRetriever(index *Index, embedder Embedder, k int) *Retriever {
	if k <= 0 {
		k = DefaultTopK
	}
	return &Retriever{index: index, embedder: embedder, k: k}
}

func (r *Retriever) K() int { return r.k }

func (r *Retriever) Retrieve(ctx context.Context, question string) ([]Hit, error) {
	vector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	return r.index.Search(vector, r.k)
}
