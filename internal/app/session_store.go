package app

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"gopherai-docqa/internal/pkg/validation"
	"gopherai-docqa/internal/rag"
)

const (
	DefaultModelLabel  = "Hugging Face"
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.7
)

// GenerationConfig is the per-session generation setting. Model is the label
// the client chose; the answering model itself is fixed process-wide.
type GenerationConfig struct {
	Model       string  `json:"model" validate:"required,max=128"`
	MaxTokens   int     `json:"max_tokens" validate:"gt=0,lte=8192"`
	Temperature float64 `json:"temperature" validate:"gte=0,lte=2"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Model:       DefaultModelLabel,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
}

func (c GenerationConfig) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return rag.NewError(rag.KindInvalidInput, "invalid generation config", err)
	}
	return nil
}

// Session binds one client id to one immutable index. Only the last-access
// time changes after construction.
type Session struct {
	ID            string
	Generation    GenerationConfig
	Index         *rag.Index
	Retriever     *rag.Retriever
	ChunkCount    int
	DocumentCount int
	CreatedAt     time.Time

	lastUsed atomic.Int64
}

func (s *Session) touch(now time.Time) { s.lastUsed.Store(now.UnixNano()) }

func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

// SessionSummary is one entry of a List snapshot.
type SessionSummary struct {
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

// SessionStore owns every Session. The mutex guards the map only; building a
// session happens outside it and the result is installed with a single write.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	pipeline *rag.Pipeline
	topK     int
	now      func() time.Time
	logger   *zap.Logger
}

func NewSessionStore(pipeline *rag.Pipeline, topK int, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		pipeline: pipeline,
		topK:     topK,
		now:      time.Now,
		logger:   logger,
	}
}

// CreateOrReplace builds a fresh index from docs and installs it under id,
// replacing any previous session wholesale. Concurrent callers for the same id
// race; the last one to finish wins.
func (s *SessionStore) CreateOrReplace(ctx context.Context, id string, docs []rag.Document, cfg GenerationConfig) (int, error) {
	if err := checkSessionID(id); err != nil {
		return 0, err
	}
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	corpus, err := s.pipeline.Build(ctx, docs)
	if err != nil {
		return 0, err
	}

	now := s.now()
	session := &Session{
		ID:            id,
		Generation:    cfg,
		Index:         corpus.Index,
		Retriever:     rag.NewRetriever(corpus.Index, s.pipeline.Embedder, s.topK),
		ChunkCount:    corpus.Chunks,
		DocumentCount: len(docs),
		CreatedAt:     now,
	}
	session.touch(now)

	s.mu.Lock()
	_, replaced := s.sessions[id]
	s.sessions[id] = session
	s.mu.Unlock()

	s.logger.Info("session installed",
		zap.String("session_id", id),
		zap.Int("chunks", corpus.Chunks),
		zap.Int("documents", len(docs)),
		zap.Bool("replaced", replaced))
	return corpus.Chunks, nil
}

func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, rag.ErrSessionNotFound
	}
	session.touch(s.now())
	return session, nil
}

// Delete removes id. Deleting an absent id is an error, including a repeat
// delete of the same id.
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return rag.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// List returns a snapshot ordered by session id.
func (s *SessionStore) List() []SessionSummary {
	s.mu.RLock()
	out := make([]SessionSummary, 0, len(s.sessions))
	for id, session := range s.sessions {
		out = append(out, SessionSummary{SessionID: id, Model: session.Generation.Model})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle drops sessions not accessed within ttl and returns their ids.
func (s *SessionStore) EvictIdle(ttl time.Duration) []string {
	if ttl <= 0 {
		return nil
	}
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	var evicted []string
	for id, session := range s.sessions {
		if session.LastUsed().Before(cutoff) {
			delete(s.sessions, id)
			evicted = append(evicted, id)
		}
	}
	s.mu.Unlock()

	sort.Strings(evicted)
	return evicted
}

// RunJanitor calls EvictIdle every interval until ctx is done.
func (s *SessionStore) RunJanitor(ctx context.Context, ttl, interval time.Duration, onEvict func(ids []string)) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := s.EvictIdle(ttl)
			if len(evicted) == 0 {
				continue
			}
			s.logger.Info("idle sessions evicted", zap.Strings("session_ids", evicted))
			if onEvict != nil {
				onEvict(evicted)
			}
		}
	}
}

// checkSessionID accepts any non-empty id. Ids are opaque and used exactly as
// sent, so " a" and "a" are different sessions.
func checkSessionID(id string) error {
	if id == "" {
		return rag.NewError(rag.KindInvalidInput, "session_id is required", nil)
	}
	return nil
}
