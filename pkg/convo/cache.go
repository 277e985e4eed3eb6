package convo

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/serenehq/serene/pkg/errorsx"
)

const (
	recentKeyPrefix = "recent:"
	defaultCacheTTL = 6 * time.Hour
)

// CachedStore layers a Redis recent-window cache over a Store. Reads of
// the recent window hit Redis first; appends write through. Cache errors
// degrade to the underlying store and are logged, never returned.
type CachedStore struct {
	Store
	client *redis.Client
	window int
	ttl    time.Duration
	log    *slog.Logger
}

func NewCachedStore(inner Store, client *redis.Client, window int, ttl time.Duration, log *slog.Logger) *CachedStore {
	if window <= 0 {
		window = 10
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &CachedStore{Store: inner, client: client, window: window, ttl: ttl, log: log}
}

func (s *CachedStore) AppendMessage(ctx context.Context, msg *Message) error {
	if err := s.Store.AppendMessage(ctx, msg); err != nil {
		return err
	}
	key := s.key(msg.SessionID)
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-s.window), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("recent_cache_write_failed",
			"session_id", msg.SessionID,
			"reason", string(errorsx.ReasonCacheWrite),
			"error", err.Error(),
		)
	}
	return nil
}

func (s *CachedStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > s.window {
		limit = s.window
	}
	key := s.key(sessionID)
	raw, err := s.client.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil && err != redis.Nil {
		s.log.Warn("recent_cache_read_failed",
			"session_id", sessionID,
			"reason", string(errorsx.ReasonCacheRead),
			"error", err.Error(),
		)
	}
	if len(raw) > 0 {
		out := make([]Message, 0, len(raw))
		ok := true
		for _, item := range raw {
			var msg Message
			if err := json.Unmarshal([]byte(item), &msg); err != nil {
				ok = false
				break
			}
			out = append(out, msg)
		}
		if ok {
			return out, nil
		}
	}

	msgs, err := s.Store.RecentMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	s.warm(ctx, key, msgs)
	return msgs, nil
}

func (s *CachedStore) warm(ctx context.Context, key string, msgs []Message) {
	if len(msgs) == 0 {
		return
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	for i := range msgs {
		payload, err := json.Marshal(&msgs[i])
		if err != nil {
			return
		}
		pipe.RPush(ctx, key, payload)
	}
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("recent_cache_warm_failed", "error", err.Error())
	}
}

func (s *CachedStore) key(sessionID string) string {
	return recentKeyPrefix + sessionID
}
