package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache keeps resolved sessions in Redis so the hot path avoids a
// Postgres round trip. Entries expire with the session.
type SessionCache struct {
	redis *redis.Client
}

// NewSessionCache creates a cache over the given Redis client. A nil client
// disables caching (all lookups miss).
func NewSessionCache(redisClient *redis.Client) *SessionCache {
	return &SessionCache{redis: redisClient}
}

func (c *SessionCache) key(token string) string {
	return "praxis:session:" + token
}

// Get returns the cached session, or (nil, nil) on a miss.
func (c *SessionCache) Get(ctx context.Context, token string) (*Session, error) {
	if c == nil || c.redis == nil {
		return nil, nil
	}
	data, err := c.redis.Get(ctx, c.key(token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: session cache get: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("auth: session cache decode: %w", err)
	}
	return &s, nil
}

// Set stores the session until it expires.
func (c *SessionCache) Set(ctx context.Context, s *Session) error {
	if c == nil || c.redis == nil || s == nil {
		return nil
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("auth: session cache encode: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(s.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("auth: session cache set: %w", err)
	}
	return nil
}

// Delete drops the cache entry for a token.
func (c *SessionCache) Delete(ctx context.Context, token string) error {
	if c == nil || c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, c.key(token)).Err(); err != nil {
		return fmt.Errorf("auth: session cache delete: %w", err)
	}
	return nil
}
