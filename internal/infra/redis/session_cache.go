package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-raffle-service/internal/domain"
)

// SessionCache is the Redis mirror of durable session state, one JSON blob
// per token with a TTL. It is the fast path of app.DualSessionStore; the
// durable store stays authoritative, so a missing or unreadable key is just
// a cache miss.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, ttl: ttl}
}

func (c *SessionCache) Get(ctx context.Context, token string) (*domain.QuizSession, bool) {
	raw, err := c.client.Get(ctx, c.key(token)).Bytes()
	if err != nil {
		return nil, false
	}
	var session domain.QuizSession
	if err := json.Unmarshal(raw, &session); err != nil {
		// Corrupt blob: drop it and fall through to the durable store.
		_ = c.client.Del(ctx, c.key(token)).Err()
		return nil, false
	}
	return &session, true
}

func (c *SessionCache) Put(ctx context.Context, session *domain.QuizSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(session.Token), raw, c.ttl).Err()
}

func (c *SessionCache) Delete(ctx context.Context, token string) error {
	return c.client.Del(ctx, c.key(token)).Err()
}

func (c *SessionCache) key(token string) string {
	return "quiz:session:" + token
}
