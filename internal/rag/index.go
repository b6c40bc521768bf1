package rag

import (
	"fmt"
	"math"
	"sort"
)

// Hit is one query result.
type Hit struct {
	Position int     `json:"position"`
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}

// Index is an exact nearest-neighbour index under cosine distance. It is
// built once and never mutated, so concurrent queries need no locking.
type Index struct {
	dimension int
	vectors   [][]float64
	chunks    []string
}

// BuildIndex stores a unit-length copy of every vector alongside its chunk.
func BuildIndex(chunks []string, vectors [][]float32) (*Index, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}
	if len(chunks) != len(vectors) {
		return nil, NewError(KindEmbedding, fmt.Sprintf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors)), nil)
	}

	dimension := len(vectors[0])
	if dimension == 0 {
		return nil, NewError(KindEmbedding, "embedding has zero dimension", nil)
	}

	normalized := make([][]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, NewError(KindEmbedding, fmt.Sprintf("vector %d has dimension %d, want %d", i, len(v), dimension), nil)
		}
		normalized[i] = normalize(v)
	}

	stored := make([]string, len(chunks))
	copy(stored, chunks)
	return &Index{dimension: dimension, vectors: normalized, chunks: stored}, nil
}

func (x *Index) Len() int       { return len(x.chunks) }
func (x *Index) Dimension() int { return x.dimension }

// Search returns the k nearest chunks, closest first. Equal distances keep
// corpus order. k larger than the corpus returns every chunk.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != x.dimension {
		return nil, NewError(KindEmbedding, fmt.Sprintf("query dimension %d, index dimension %d", len(query), x.dimension), nil)
	}
	if k <= 0 {
		return nil, nil
	}

	q := normalize(query)
	hits := make([]Hit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = Hit{Position: i, Text: x.chunks[i], Distance: 1 - dot(q, v)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	var norm float64
	for i, f := range v {
		out[i] = float64(f)
		norm += out[i] * out[i]
	}
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i := range out {
		out[i] /= norm
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
