package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// cachedService keeps recent feed reads in Redis. Every write bumps a
// generation counter so readers never see a feed older than the last
// acknowledged write; stale generations simply expire.
type cachedService struct {
	Service

	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}

// WithFeedCache wraps inner so that GetLatestEvents is served from Redis
// when possible. Cache errors are logged and the call falls through to inner.
func WithFeedCache(inner Service, rdb redis.UniversalClient, prefix string, ttl time.Duration, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedService{
		Service: inner,
		rdb:     rdb,
		prefix:  prefix,
		ttl:     ttl,
		logger:  logger,
	}
}

func (c *cachedService) generationKey() string {
	return c.prefix + "feed:generation"
}

func (c *cachedService) feedKey(generation string) string {
	return c.prefix + "feed:" + generation
}

func (c *cachedService) generation(ctx context.Context) (string, error) {
	gen, err := c.rdb.Get(ctx, c.generationKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

// Close closes the Redis client and then the wrapped store.
func (c *cachedService) Close() error {
	if err := c.rdb.Close(); err != nil {
		c.logger.Warn("close redis client", zap.Error(err))
	}
	return c.Service.Close()
}

func (c *cachedService) CreateEvent(ctx context.Context, e EventEntry) (EventEntry, error) {
	created, err := c.Service.CreateEvent(ctx, e)
	if err != nil {
		return created, err
	}

	if err := c.rdb.Incr(ctx, c.generationKey()).Err(); err != nil {
		c.logger.Error("feed cache invalidation failed", zap.Error(err))
	}

	return created, nil
}

func (c *cachedService) GetLatestEvents(ctx context.Context, n int) ([]EventEntry, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("feed cache unavailable", zap.Error(err))
		return c.Service.GetLatestEvents(ctx, n)
	}

	field := strconv.Itoa(n)
	raw, err := c.rdb.HGet(ctx, c.feedKey(gen), field).Bytes()
	switch {
	case err == nil:
		var events []EventEntry
		if jsonErr := json.Unmarshal(raw, &events); jsonErr == nil {
			return events, nil
		}
		c.logger.Warn("discarding undecodable feed cache entry", zap.String("generation", gen))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("feed cache read failed", zap.Error(err))
	}

	events, err := c.Service.GetLatestEvents(ctx, n)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(events)
	if err != nil {
		return events, nil
	}

	key := c.feedKey(gen)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, field, payload)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn("feed cache write failed", zap.Error(err))
	}

	return events, nil
}
