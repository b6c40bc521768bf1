package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"gopherai-docqa/internal/metrics"
	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/rag"
)

const (
	DefaultSourceLimit    = 3
	DefaultSourceMaxChars = 200

	uploadSuccessMessage = "PDFs processed successfully"
)

type RAGService struct {
	store          *SessionStore
	generator      rag.Generator
	history        ExchangeRecorder
	metrics        *metrics.Metrics
	sourceLimit    int
	sourceMaxChars int
	logger         *zap.Logger
}

type RAGServiceOptions struct {
	SourceLimit    int
	SourceMaxChars int
	History        ExchangeRecorder
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
}

func NewRAGService(store *SessionStore, generator rag.Generator, opts RAGServiceOptions) *RAGService {
	s := &RAGService{
		store:          store,
		generator:      generator,
		history:        opts.History,
		metrics:        opts.Metrics,
		sourceLimit:    opts.SourceLimit,
		sourceMaxChars: opts.SourceMaxChars,
		logger:         opts.Logger,
	}
	if s.history == nil {
		s.history = NopRecorder{}
	}
	if s.sourceLimit <= 0 {
		s.sourceLimit = DefaultSourceLimit
	}
	if s.sourceMaxChars <= 0 {
		s.sourceMaxChars = DefaultSourceMaxChars
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

type UploadInput struct {
	SessionID  string
	Documents  []rag.Document
	Generation GenerationConfig
}

type UploadResult struct {
	Message     string `json:"message"`
	SessionID   string `json:"session_id"`
	ChunksCount int    `json:"chunks_count"`
}

// Upload builds a new index for the session, replacing any previous one.
func (s *RAGService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	chunks, err := s.store.CreateOrReplace(ctx, input.SessionID, input.Documents, input.Generation)
	if err != nil {
		s.metrics.Upload(resultLabel(err), 0)
		s.logger.Warn("upload failed",
			zap.String("session_id", input.SessionID),
			zap.Int("documents", len(input.Documents)),
			zap.Error(err))
		return nil, err
	}
	s.metrics.Upload(resultLabel(nil), chunks)
	s.metrics.SetActiveSessions(s.store.Len())

	return &UploadResult{
		Message:     uploadSuccessMessage,
		SessionID:   input.SessionID,
		ChunksCount: chunks,
	}, nil
}

type AskInput struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type AskResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Ask retrieves once and uses the same hits for the prompt context and the
// returned sources.
func (s *RAGService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	result, err := s.ask(ctx, input)
	s.metrics.Ask(resultLabel(err))
	if err != nil {
		s.logger.Warn("ask failed", zap.String("session_id", input.SessionID), zap.Error(err))
	}
	return result, err
}

func (s *RAGService) ask(ctx context.Context, input AskInput) (*AskResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, rag.NewError(rag.KindInvalidInput, "question is required", nil)
	}
	session, err := s.store.Get(input.SessionID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	hits, err := session.Retriever.Retrieve(ctx, question)
	s.metrics.ObserveStage(rag.StageRetrieve, time.Since(start))
	if err != nil {
		return nil, err
	}

	contextChunks := make([]string, len(hits))
	for i, hit := range hits {
		contextChunks[i] = hit.Text
	}

	start = time.Now()
	answer, err := s.generator.Generate(ctx, contextChunks, question, rag.GenerationOptions{
		Temperature: session.Generation.Temperature,
		MaxTokens:   session.Generation.MaxTokens,
	})
	s.metrics.ObserveStage(rag.StageGenerate, time.Since(start))
	if err != nil {
		return nil, err
	}

	result := &AskResult{
		Answer:  answer,
		Sources: buildSources(contextChunks, s.sourceLimit, s.sourceMaxChars),
	}

	exchange := model.Exchange{
		SessionID: session.ID,
		Question:  question,
		Answer:    answer,
		Model:     session.Generation.Model,
		CreatedAt: time.Now(),
	}
	exchange.SetSources(result.Sources)
	if err := s.history.Record(ctx, exchange); err != nil {
		s.logger.Warn("record exchange failed", zap.String("session_id", session.ID), zap.Error(err))
	}
	return result, nil
}

// DeleteSession drops the session and, when history is enabled, its
// transcript.
func (s *RAGService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(sessionID); err != nil {
		return err
	}
	s.metrics.SetActiveSessions(s.store.Len())

	if err := s.history.Purge(ctx, sessionID); err != nil {
		s.logger.Warn("purge history failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}

func (s *RAGService) ListSessions() []SessionSummary {
	return s.store.List()
}

// History returns the recorded exchanges of a session. The session must be
// live; transcripts of deleted or evicted sessions are not served.
func (s *RAGService) History(ctx context.Context, sessionID string, limit int) ([]model.Exchange, error) {
	if !s.history.Enabled() {
		return nil, rag.NewError(rag.KindInvalidInput, "history is disabled", nil)
	}
	session, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	exchanges, err := s.history.List(ctx, session.ID, limit)
	if err != nil {
		return nil, err
	}
	return since(exchanges, session.CreatedAt), nil
}

// since drops exchanges recorded before the session was built. A purge can
// race with exchanges still queued for the worker; those land in MySQL after
// the purge and would otherwise show up under a re-upload of the same id.
// Stored timestamps carry millisecond precision.
func since(exchanges []model.Exchange, created time.Time) []model.Exchange {
	cutoff := created.Truncate(time.Millisecond)
	out := make([]model.Exchange, 0, len(exchanges))
	for _, e := range exchanges {
		if !e.CreatedAt.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// HistoryEnabled reports whether exchanges are being recorded.
func (s *RAGService) HistoryEnabled() bool { return s.history.Enabled() }

// SessionCount is the number of live sessions.
func (s *RAGService) SessionCount() int { return s.store.Len() }

// OnEvicted keeps the gauges and transcripts in step with the janitor.
func (s *RAGService) OnEvicted(ids []string) {
	s.metrics.Evicted(len(ids))
	s.metrics.SetActiveSessions(s.store.Len())
	for _, id := range ids {
		if err := s.history.Purge(context.Background(), id); err != nil {
			s.logger.Warn("purge history failed", zap.String("session_id", id), zap.Error(err))
		}
	}
}

func buildSources(chunks []string, limit, maxChars int) []string {
	n := min(limit, len(chunks))
	sources := make([]string, n)
	for i := 0; i < n; i++ {
		sources[i] = truncateRunes(chunks[i], maxChars)
	}
	return sources
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := rag.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
