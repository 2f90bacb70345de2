// Package cache keeps slow-changing circle records in Redis.
//
// Only loaded inputs are cached. Anything derived from trip evidence (pending
// actions, notifications, sort order) is recomputed on every read and never
// stored here.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tripcircle/coordinator/internal/domain"
)

const keyPrefix = "circle:"

// CircleCache keeps one JSON-encoded circle per key with a fixed TTL.
type CircleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redisURL and checks the connection.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*CircleCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache.New: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache.New: connect to redis: %w", err)
	}
	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *CircleCache {
	return &CircleCache{client: client, ttl: ttl}
}

func key(id uuid.UUID) string {
	return keyPrefix + id.String()
}

// GetMany returns the cached circles among ids, keyed by ID. Missing IDs are
// simply absent from the map.
func (c *CircleCache) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Circle, error) {
	out := make(map[uuid.UUID]domain.Circle, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("cache.CircleCache.GetMany: %w", err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var circle domain.Circle
		if err := json.Unmarshal([]byte(raw), &circle); err != nil {
			return nil, fmt.Errorf("cache.CircleCache.GetMany: unmarshal %s: %w", keys[i], err)
		}
		out[circle.ID] = circle
	}
	return out, nil
}

// SetMany stores every circle until the TTL expires, in one pipeline.
func (c *CircleCache) SetMany(ctx context.Context, circles []domain.Circle) error {
	if len(circles) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, circle := range circles {
			raw, err := json.Marshal(circle)
			if err != nil {
				return err
			}
			p.Set(ctx, key(circle.ID), raw, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache.CircleCache.SetMany: %w", err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (c *CircleCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *CircleCache) Close() error {
	return c.client.Close()
}
