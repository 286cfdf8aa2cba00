package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethio-origin/provenance-service/internal/domain"
	"github.com/ethio-origin/provenance-service/pkg/logging"
	"github.com/redis/go-redis/v9"
)

const journeyKeyPrefix = "journey:"

// Config holds Redis connection settings for the journey cache
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// DefaultConfig returns cache defaults for local development
func DefaultConfig() *Config {
	return &Config{
		Addr: "localhost:6379",
		TTL:  5 * time.Minute,
	}
}

// JourneyCache caches projected journey timelines in Redis. Every method is
// best-effort; a cache outage degrades reads to the store, never fails them.
type JourneyCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewJourneyCache connects to Redis and verifies the connection
func NewJourneyCache(config *Config, logger *logging.Logger) (*JourneyCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &JourneyCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Get returns the cached timeline for a batch, or nil on a miss
func (c *JourneyCache) Get(ctx context.Context, batchID string) (*domain.JourneyView, error) {
	raw, err := c.client.Get(ctx, journeyKeyPrefix+batchID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journey cache: %w", err)
	}

	var view domain.JourneyView
	if err := json.Unmarshal(raw, &view); err != nil {
		// A corrupt entry is treated as a miss and evicted
		c.client.Del(ctx, journeyKeyPrefix+batchID)
		return nil, nil
	}
	return &view, nil
}

// Set stores a projected timeline with the configured TTL
func (c *JourneyCache) Set(ctx context.Context, view *domain.JourneyView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal journey view: %w", err)
	}
	if err := c.client.Set(ctx, journeyKeyPrefix+view.BatchID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write journey cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached timeline for a batch
func (c *JourneyCache) Invalidate(ctx context.Context, batchID string) error {
	if err := c.client.Del(ctx, journeyKeyPrefix+batchID).Err(); err != nil {
		return fmt.Errorf("failed to invalidate journey cache: %w", err)
	}
	return nil
}

// HealthCheck verifies the Redis connection
func (c *JourneyCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *JourneyCache) Close() error {
	return c.client.Close()
}
