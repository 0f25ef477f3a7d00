package livecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/gold-price-alerts/internal/models"
)

// KeyPrefix namespaces mirrored prices
const KeyPrefix = "price:latest:"

// RedisMirror copies each published price into Redis so other processes
// can read it without touching Postgres.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMirror connects to Redis and verifies the connection
func NewRedisMirror(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisMirrorFromClient(client, ttl), nil
}

// NewRedisMirrorFromClient wraps an existing client
func NewRedisMirrorFromClient(client *redis.Client, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, ttl: ttl}
}

// Key returns the Redis key holding the latest price for metal
func Key(metal string) string {
	return KeyPrefix + metal
}

// PublishPrice stores p as JSON under Key(p.Metal)
func (m *RedisMirror) PublishPrice(ctx context.Context, p models.LivePrice) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal live price: %w", err)
	}

	if err := m.client.Set(ctx, Key(p.Metal), data, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mirror live price: %w", err)
	}
	return nil
}

// Latest reads the mirrored price for metal
func (m *RedisMirror) Latest(ctx context.Context, metal string) (models.LivePrice, bool, error) {
	data, err := m.client.Get(ctx, Key(metal)).Bytes()
	if err == redis.Nil {
		return models.LivePrice{}, false, nil
	}
	if err != nil {
		return models.LivePrice{}, false, fmt.Errorf("failed to read live price: %w", err)
	}

	var p models.LivePrice
	if err := json.Unmarshal(data, &p); err != nil {
		return models.LivePrice{}, false, fmt.Errorf("failed to unmarshal live price: %w", err)
	}
	return p, true, nil
}

// Close closes the Redis client
func (m *RedisMirror) Close() error {
	return m.client.Close()
}
