// Package cache provides the optional redis-backed response cache.
// A nil *Cache is valid everywhere and degrades to always-compute; cache
// failures are logged and never fail the pipeline.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/logger"
)

// connectionTimeout bounds the startup ping.
const connectionTimeout = 5 * time.Second

// Config holds redis connection settings and entry TTLs.
type Config struct {
	Address  string
	Password string
	Database int

	ClassificationTTL time.Duration
	ProviderTTL       time.Duration
}

// Cache stores classification results keyed by content fingerprint and
// provider results keyed by provider+query.
type Cache struct {
	client *redis.Client
	cfg    Config
	logger logger.Logger
}

// New connects to redis and returns a cache. Returns (nil, nil) when no
// address is configured, which callers treat as cache-disabled.
func New(cfg Config, log logger.Logger) (*Cache, error) {
	if cfg.Address == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Cache{client: client, cfg: cfg, logger: log}, nil
}

// Ping probes the redis connection for health checks. A nil cache is
// always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func classificationKey(fingerprint string) string {
	return "moodboard:classify:" + fingerprint
}

func providerKey(provider, query string, count int) string {
	return fmt.Sprintf("moodboard:search:%s:%s:%d", provider, query, count)
}

// GetClassification returns cached aesthetic scores for a fingerprint, or
// nil on miss or any cache error.
func (c *Cache) GetClassification(ctx context.Context, fingerprint string) []domain.AestheticScore {
	var scores []domain.AestheticScore
	if !c.get(ctx, classificationKey(fingerprint), &scores) {
		return nil
	}
	return scores
}

// SetClassification stores aesthetic scores for a fingerprint.
func (c *Cache) SetClassification(ctx context.Context, fingerprint string, scores []domain.AestheticScore) {
	if c == nil {
		return
	}
	c.set(ctx, classificationKey(fingerprint), scores, c.cfg.ClassificationTTL)
}

// GetSearch returns cached provider results, or nil on miss or error.
func (c *Cache) GetSearch(ctx context.Context, provider, query string, count int) []domain.ImageCandidate {
	var candidates []domain.ImageCandidate
	if !c.get(ctx, providerKey(provider, query, count), &candidates) {
		return nil
	}
	return candidates
}

// SetSearch stores provider results for a query.
func (c *Cache) SetSearch(ctx context.Context, provider, query string, count int, candidates []domain.ImageCandidate) {
	if c == nil {
		return
	}
	c.set(ctx, providerKey(provider, query, count), candidates, c.cfg.ProviderTTL)
}

func (c *Cache) get(ctx context.Context, key string, out any) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", logger.String("key", key), logger.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("cache entry corrupt", logger.String("key", key), logger.Error(err))
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, val any, ttl time.Duration) {
	if c == nil {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", logger.String("key", key), logger.Error(err))
	}
}
