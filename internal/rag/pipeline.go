package rag

import (
	"context"
	"time"
)

// Stage names reported to a StageObserver.
const (
	StageExtract  = "extract"
	StageChunk    = "chunk"
	StageEmbed    = "embed"
	StageIndex    = "index"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
)

// StageObserver receives the duration of every stage that ran.
type StageObserver func(stage string, elapsed time.Duration)

// Pipeline runs extraction, chunking, embedding and index build for one
// upload batch.
type Pipeline struct {
	Extractor Extractor
	Chunker   *Chunker
	Embedder  Embedder
	Observe   StageObserver
}

// Corpus is the outcome of a successful build.
type Corpus struct {
	Index  *Index
	Chunks int
}

// Build is synchronous and leaves no state behind on failure.
func (p *Pipeline) Build(ctx context.Context, docs []Document) (*Corpus, error) {
	start := time.Now()
	text, err := p.Extractor.Extract(docs)
	p.observe(StageExtract, start)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	chunks := p.Chunker.Split(text)
	p.observe(StageChunk, start)
	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}

	start = time.Now()
	vectors, err := p.Embedder.EmbedDocuments(ctx, chunks)
	p.observe(StageEmbed, start)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	index, err := BuildIndex(chunks, vectors)
	p.observe(StageIndex, start)
	if err != nil {
		return nil, err
	}

	return &Corpus{Index: index, Chunks: len(chunks)}, nil
}

func (p *Pipeline) observe(stage string, start time.Time) {
	if p.Observe != nil {
		p.Observe(stage, time.Since(start))
	}
}
