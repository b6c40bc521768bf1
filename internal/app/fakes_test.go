package app

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/rag"
)

const testDim = 32

type wordEmbedder struct{}

func (wordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = wordVector(t)
	}
	return out, nil
}

func (wordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return wordVector(text), nil
}

func wordVector(text string) []float32 {
	v := make([]float32, testDim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,?!")))
		v[h.Sum32()%testDim]++
	}
	v[testDim-1] += 0.01
	return v
}

type fakeGenerator struct {
	mu       sync.Mutex
	answer   string
	err      error
	contexts [][]string
	opts     []rag.GenerationOptions
}

func (g *fakeGenerator) Generate(_ context.Context, chunks []string, _ string, opts rag.GenerationOptions) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.contexts = append(g.contexts, chunks)
	g.opts = append(g.opts, opts)
	if g.err != nil {
		return "", rag.NewError(rag.KindGeneration, "language model call failed", g.err)
	}
	return g.answer, nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	recorded []model.Exchange
	purged   []string
}

func (r *fakeRecorder) Record(_ context.Context, e model.Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, e)
	return nil
}

func (r *fakeRecorder) List(_ context.Context, sessionID string, _ int) ([]model.Exchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Exchange
	for _, e := range r.recorded {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRecorder) Purge(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purged = append(r.purged, sessionID)
	return nil
}

func (r *fakeRecorder) Enabled() bool { return true }

func textPipeline() *rag.Pipeline {
	return &rag.Pipeline{
		Extractor: rag.NewExtractor(func(data []byte) (string, error) { return string(data), nil }),
		Chunker:   rag.NewChunker(rag.DefaultChunkSize, rag.DefaultChunkOverlap, rag.DefaultSeparator),
		Embedder:  wordEmbedder{},
	}
}

func doc(name, text string) []rag.Document {
	return []rag.Document{{Name: name, Data: []byte(text)}}
}

func repeatLines(line string, n int) string {
	return strings.Repeat(line+"\n", n)
}
