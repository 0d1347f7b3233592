package organizations

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SettingsCache keeps organization settings in Redis so the scheduling
// path does not hit Postgres for timezone and slot-duration lookups on
// every request. A nil client disables caching.
type SettingsCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewSettingsCache creates a cache with the given entry TTL.
func NewSettingsCache(client *redis.Client, ttl time.Duration) *SettingsCache {
	return &SettingsCache{redis: client, ttl: ttl}
}

func (c *SettingsCache) key(orgID string) string {
	return fmt.Sprintf("praxis:org:%s", orgID)
}

// Get returns the cached organization, or (nil, nil) on a miss.
func (c *SettingsCache) Get(ctx context.Context, orgID string) (*Organization, error) {
	if c == nil || c.redis == nil {
		return nil, nil
	}
	data, err := c.redis.Get(ctx, c.key(orgID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("organizations: cache get: %w", err)
	}

	var org Organization
	if err := json.Unmarshal(data, &org); err != nil {
		return nil, fmt.Errorf("organizations: cache unmarshal: %w", err)
	}
	return &org, nil
}

// Set stores the organization under its TTL.
func (c *SettingsCache) Set(ctx context.Context, org *Organization) error {
	if c == nil || c.redis == nil {
		return nil
	}
	data, err := json.Marshal(org)
	if err != nil {
		return fmt.Errorf("organizations: cache marshal: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(org.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("organizations: cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached entry after a settings update.
func (c *SettingsCache) Invalidate(ctx context.Context, orgID string) error {
	if c == nil || c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, c.key(orgID)).Err(); err != nil {
		return fmt.Errorf("organizations: cache invalidate: %w", err)
	}
	return nil
}
