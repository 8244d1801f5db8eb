package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clx1415926/taobei-app/internal/core/port"
)

// RateLimitStore persists request attempts in Redis sorted sets keyed by
// caller identity, scored by nanosecond timestamps. The HTTP throttle
// middleware trims and counts against a trailing window.
type RateLimitStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRateLimitStore constructs a store using the provided Redis client.
// TTL bounds how long idle keys linger; zero disables expiry.
func NewRateLimitStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RateLimitStore {
	return &RateLimitStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// RecordAttempt stores the timestamp and refreshes the key TTL in one round trip.
func (s *RateLimitStore) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	key := s.key(identifier)

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixNano()), Member: at.UnixNano()})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record attempt: %w", err)
	}

	return nil
}

// CountAttempts returns how many attempts occurred within the window ending at reference time.
func (s *RateLimitStore) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	count, err := s.client.ZCount(ctx, s.key(identifier),
		scoreBound(reference.Add(-window)), scoreBound(reference)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}

	return int(count), nil
}

// TrimWindow removes attempts older than the provided window relative to reference time.
func (s *RateLimitStore) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}

	threshold := scoreBound(reference.Add(-window))
	if err := s.client.ZRemRangeByScore(ctx, s.key(identifier), "-inf", threshold).Err(); err != nil {
		return fmt.Errorf("redis zremrangebyscore: %w", err)
	}

	return nil
}

// OldestAttempt returns the oldest attempt remaining inside the active window.
func (s *RateLimitStore) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errors.New("window must be positive")
	}

	values, err := s.client.ZRangeByScore(ctx, s.key(identifier), &redis.ZRangeBy{
		Min:    scoreBound(reference.Add(-window)),
		Max:    scoreBound(reference),
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis zrangebyscore: %w", err)
	}

	if len(values) == 0 {
		return time.Time{}, false, nil
	}

	ts, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse timestamp: %w", err)
	}

	return time.Unix(0, ts), true, nil
}

func (s *RateLimitStore) key(identifier string) string {
	if s.keyPrefix == "" {
		return identifier
	}
	return s.keyPrefix + ":" + identifier
}

func scoreBound(at time.Time) string {
	return fmt.Sprintf("%f", float64(at.UnixNano()))
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
