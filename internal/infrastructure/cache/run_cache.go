package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/config"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/repository"
)

const latestKeyPrefix = "sentinel:latest:"

// RunCache is a read-through Redis layer over the result store's hot path:
// the latest run per country, which the dashboard polls far more often than
// new runs arrive. All other operations pass straight through. Cache failures
// degrade to the repository, never to an error.
type RunCache struct {
	client *redis.Client
	repo   repository.RunRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewRunCache connects to Redis and wraps the repository.
func NewRunCache(cfg *config.RedisConfig, repo repository.RunRepository, logger *zap.Logger) (*RunCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("run cache initialized",
		zap.String("addr", cfg.URL),
		zap.Duration("ttl", cfg.TTL))
	return NewRunCacheWithClient(client, repo, cfg.TTL, logger), nil
}

// NewRunCacheWithClient wraps an existing client, used by tests.
func NewRunCacheWithClient(client *redis.Client, repo repository.RunRepository, ttl time.Duration, logger *zap.Logger) *RunCache {
	return &RunCache{client: client, repo: repo, ttl: ttl, logger: logger}
}

// Close releases the Redis connection.
func (c *RunCache) Close() error {
	return c.client.Close()
}

// Persist writes through to the repository and invalidates the country's
// cached latest run.
func (c *RunCache) Persist(ctx context.Context, run *analysis.Run, alerts []analysis.Alert, articles []event.Article) error {
	if err := c.repo.Persist(ctx, run, alerts, articles); err != nil {
		return err
	}
	if err := c.client.Del(ctx, latestKeyPrefix+run.Country).Err(); err != nil {
		c.logger.Warn("failed to invalidate cached run",
			zap.String("country", run.Country), zap.Error(err))
	}
	return nil
}

// Latest serves from Redis when possible, falling back to the repository and
// repopulating on miss.
func (c *RunCache) Latest(ctx context.Context, country string) (*analysis.Run, error) {
	key := latestKeyPrefix + country
	payload, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var run analysis.Run
		if err := json.Unmarshal([]byte(payload), &run); err == nil {
			return &run, nil
		}
		c.logger.Warn("corrupt cached run, refetching", zap.String("country", country))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("redis get failed", zap.String("country", country), zap.Error(err))
	}

	run, err := c.repo.Latest(ctx, country)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, run)
	return run, nil
}

// LatestAll always hits the repository (one query for all countries beats N
// cache probes) but refreshes the per-country entries on the way out.
func (c *RunCache) LatestAll(ctx context.Context, countries []string) (map[string]*analysis.Run, error) {
	runs, err := c.repo.LatestAll(ctx, countries)
	if err != nil {
		return nil, err
	}
	for country, run := range runs {
		c.store(ctx, latestKeyPrefix+country, run)
	}
	return runs, nil
}

func (c *RunCache) History(ctx context.Context, country string, limit int) ([]*analysis.Run, error) {
	return c.repo.History(ctx, country, limit)
}

func (c *RunCache) AlertsForCountry(ctx context.Context, country string, limit int) ([]analysis.Alert, error) {
	return c.repo.AlertsForCountry(ctx, country, limit)
}

func (c *RunCache) ArticlesForRun(ctx context.Context, runID uuid.UUID) ([]event.Article, error) {
	return c.repo.ArticlesForRun(ctx, runID)
}

func (c *RunCache) store(ctx context.Context, key string, run *analysis.Run) {
	payload, err := json.Marshal(run)
	if err != nil {
		c.logger.Warn("failed to marshal run for cache", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", zap.Error(err))
	}
}
