package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gopherai-docqa/internal/model"
)

// ExchangePublisher hands an exchange to the asynchronous persist path.
type ExchangePublisher interface {
	Publish(ctx context.Context, exchange model.Exchange) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.Exchange, bool, error)
	SetHistory(ctx context.Context, sessionID string, exchanges []model.Exchange) error
	DeleteHistory(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

type ExchangeStore interface {
	ListBySessionID(ctx context.Context, sessionID string, limit int) ([]model.Exchange, error)
	DeleteBySessionID(ctx context.Context, sessionID string) error
}

// ExchangeRecorder keeps the question/answer transcript of sessions.
type ExchangeRecorder interface {
	Record(ctx context.Context, exchange model.Exchange) error
	List(ctx context.Context, sessionID string, limit int) ([]model.Exchange, error)
	Purge(ctx context.Context, sessionID string) error
	Enabled() bool
}

// NopRecorder is used when history is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, model.Exchange) error { return nil }

func (NopRecorder) List(context.Context, string, int) ([]model.Exchange, error) { return nil, nil }

func (NopRecorder) Purge(context.Context, string) error { return nil }

func (NopRecorder) Enabled() bool { return false }

// historyCacheDepth is how many exchanges a cache fill reads. Every cached
// list holds the same depth so any limit up to it can be sliced from it.
const historyCacheDepth = 200

type HistoryService struct {
	publisher ExchangePublisher
	cache     HistoryCache
	store     ExchangeStore
	now       func() time.Time
	logger    *zap.Logger
}

func NewHistoryService(publisher ExchangePublisher, cache HistoryCache, store ExchangeStore, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{
		publisher: publisher,
		cache:     cache,
		store:     store,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *HistoryService) Enabled() bool { return true }

// Record marks the cached transcript stale and publishes the exchange. The
// worker writes it to MySQL; readers skip the cache until the marker expires.
func (s *HistoryService) Record(ctx context.Context, exchange model.Exchange) error {
	if exchange.CreatedAt.IsZero() {
		exchange.CreatedAt = s.now()
	}
	if s.cache != nil {
		if err := s.cache.MarkDirty(ctx, exchange.SessionID); err != nil {
			s.logger.Warn("mark history dirty failed", zap.String("session_id", exchange.SessionID), zap.Error(err))
		}
		if err := s.cache.DeleteHistory(ctx, exchange.SessionID); err != nil {
			s.logger.Warn("drop history cache failed", zap.String("session_id", exchange.SessionID), zap.Error(err))
		}
	}
	return s.publisher.Publish(ctx, exchange)
}

func (s *HistoryService) List(ctx context.Context, sessionID string, limit int) ([]model.Exchange, error) {
	if s.cache != nil {
		dirty, err := s.cache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.cache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return lastExchanges(cached, limit), nil
			}
		}
	}

	if s.cache == nil {
		return s.store.ListBySessionID(ctx, sessionID, limit)
	}

	exchanges, err := s.store.ListBySessionID(ctx, sessionID, historyCacheDepth)
	if err != nil {
		return nil, err
	}
	if dirty, dirtyErr := s.cache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
		_ = s.cache.SetHistory(ctx, sessionID, exchanges)
	}
	return lastExchanges(exchanges, limit), nil
}

func (s *HistoryService) Purge(ctx context.Context, sessionID string) error {
	if s.cache != nil {
		_ = s.cache.DeleteHistory(ctx, sessionID)
	}
	return s.store.DeleteBySessionID(ctx, sessionID)
}

func lastExchanges(exchanges []model.Exchange, limit int) []model.Exchange {
	if limit <= 0 || len(exchanges) <= limit {
		return exchanges
	}
	return exchanges[len(exchanges)-limit:]
}
