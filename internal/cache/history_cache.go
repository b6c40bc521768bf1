package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"gopherai-docqa/internal/model"
)

// HistoryCache keeps a read-through copy of a session's exchanges. A dirty
// marker is set while a write is in flight so readers fall back to MySQL.
type HistoryCache struct {
	client         *redisv9.Client
	historyTTL     time.Duration
	dirtyMarkerTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, historyTTL, dirtyMarkerTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &HistoryCache{
		client:         client,
		historyTTL:     historyTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *HistoryCache) GetHistory(ctx context.Context, sessionID string) ([]model.Exchange, bool, error) {
	raw, err := c.client.Get(ctx, historyKey(sessionID)).Result()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var exchanges []cachedExchange
	if err := json.Unmarshal([]byte(raw), &exchanges); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	out := make([]model.Exchange, len(exchanges))
	for i, e := range exchanges {
		out[i] = e.toModel()
	}
	return out, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, sessionID string, exchanges []model.Exchange) error {
	cached := make([]cachedExchange, len(exchanges))
	for i := range exchanges {
		cached[i] = fromModel(exchanges[i])
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, historyKey(sessionID), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) MarkDirty(ctx context.Context, sessionID string) error {
	if err := c.client.Set(ctx, dirtyKey(sessionID), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context, sessionID string) (bool, error) {
	exists, err := c.client.Exists(ctx, dirtyKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

// cachedExchange keeps Sources in the payload; model.Exchange hides it from JSON.
type cachedExchange struct {
	ID        uint      `json:"id"`
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Sources   string    `json:"sources"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

func fromModel(e model.Exchange) cachedExchange {
	return cachedExchange{
		ID:        e.ID,
		SessionID: e.SessionID,
		Question:  e.Question,
		Answer:    e.Answer,
		Sources:   e.Sources,
		Model:     e.Model,
		CreatedAt: e.CreatedAt,
	}
}

func (e cachedExchange) toModel() model.Exchange {
	return model.Exchange{
		ID:        e.ID,
		SessionID: e.SessionID,
		Question:  e.Question,
		Answer:    e.Answer,
		Sources:   e.Sources,
		Model:     e.Model,
		CreatedAt: e.CreatedAt,
	}
}

func historyKey(sessionID string) string {
	return "docqa:history:" + sessionID
}

func dirtyKey(sessionID string) string {
	return "docqa:history:dirty:" + sessionID
}
