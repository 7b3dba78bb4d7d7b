// Package cache provides a Redis-backed cache for the per-row enrichment
// lookups (author names, category names/icons). The cache is optional: a nil
// *Lookups is valid and every method becomes a no-op miss.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

// CategoryInfo is the cached projection of a category used for enrichment.
type CategoryInfo struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Lookups caches enrichment fields keyed by record id.
type Lookups struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLookups creates a Redis-backed lookup cache.
func NewLookups(redisURL string) (*Lookups, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Lookups{client: client, ttl: defaultTTL}, nil
}

// NewLookupsWithClient creates a cache from an existing Redis client.
func NewLookupsWithClient(client *redis.Client) *Lookups {
	return &Lookups{client: client, ttl: defaultTTL}
}

// UserName returns the cached display name for a user id.
func (l *Lookups) UserName(ctx context.Context, userID string) (string, bool) {
	if l == nil {
		return "", false
	}
	name, err := l.client.Get(ctx, "user_name:"+userID).Result()
	if err != nil {
		return "", false
	}
	return name, true
}

// SetUserName stores a display name. Errors are dropped: the cache is an
// optimization, not a source of truth.
func (l *Lookups) SetUserName(ctx context.Context, userID, name string) {
	if l == nil {
		return
	}
	_ = l.client.Set(ctx, "user_name:"+userID, name, l.ttl).Err()
}

// Category returns the cached name/icon for a category id.
func (l *Lookups) Category(ctx context.Context, categoryID string) (CategoryInfo, bool) {
	if l == nil {
		return CategoryInfo{}, false
	}
	raw, err := l.client.Get(ctx, "category:"+categoryID).Result()
	if err != nil {
		return CategoryInfo{}, false
	}
	var info CategoryInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return CategoryInfo{}, false
	}
	return info, true
}

// SetCategory stores a category projection.
func (l *Lookups) SetCategory(ctx context.Context, categoryID string, info CategoryInfo) {
	if l == nil {
		return
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return
	}
	_ = l.client.Set(ctx, "category:"+categoryID, raw, l.ttl).Err()
}

// Invalidate drops cached categories after a reseed.
func (l *Lookups) Invalidate(ctx context.Context, categoryIDs []string) {
	if l == nil || len(categoryIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		keys = append(keys, "category:"+id)
	}
	_ = l.client.Del(ctx, keys...).Err()
}

// Ping checks if Redis is reachable.
func (l *Lookups) Ping(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (l *Lookups) Close() error {
	if l == nil {
		return nil
	}
	return l.client.Close()
}
