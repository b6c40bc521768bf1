package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
)

const fakeDim = 16

// bagEmbedder hashes each lower-cased word into one of fakeDim buckets.
type bagEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (e *bagEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.fail != nil {
		return nil, NewError(KindEmbedding, "embed chunks failed", e.fail)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagVector(t)
	}
	return out, nil
}

func (e *bagEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.fail != nil {
		return nil, NewError(KindEmbedding, "embed question failed", e.fail)
	}
	return bagVector(text), nil
}

func bagVector(text string) []float32 {
	v := make([]float32, fakeDim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,?!")))
		v[h.Sum32()%fakeDim]++
	}
	v[fakeDim-1] += 0.01
	return v
}

var errUpstream = errors.New("upstream unavailable")
