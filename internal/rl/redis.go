// internal/rl/redis.go
package rl

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const experienceBufferKey = "ares:experience_buffer"

// RedisStore is an ExperienceStore backed by a Redis list, so that
// multiple mission workers share one buffer. LPUSH gives the atomic
// head-insert; LTRIM enforces the capacity bound on every write.
type RedisStore struct {
	client   *redis.Client
	capacity int
	logger   *zap.Logger
}

// NewRedisStore connects to the given Redis URL and verifies the
// connection before returning.
func NewRedisStore(ctx context.Context, url string, capacity int, logger *zap.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &RedisStore{
		client:   client,
		capacity: capacity,
		logger:   logger.Named("experience.redis"),
	}, nil
}

// Add pushes the serialized attempt onto the list head and trims the
// list back to capacity in the same pipeline.
func (s *RedisStore) Add(ctx context.Context, attempt ExploitAttempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to serialize attempt %s: %w", attempt.AttemptID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, experienceBufferKey, data)
	pipe.LTrim(ctx, experienceBufferKey, 0, int64(s.capacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store attempt %s: %w", attempt.AttemptID, err)
	}

	s.logger.Debug("Stored attempt in experience buffer", zap.String("attempt_id", attempt.AttemptID))
	return nil
}

// GetRecent reads up to n records from the list head. A record that
// fails to deserialize is skipped and logged; it never aborts the read.
func (s *RedisStore) GetRecent(ctx context.Context, n int) ([]ExploitAttempt, error) {
	raw, err := s.client.LRange(ctx, experienceBufferKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read experience buffer: %w", err)
	}

	attempts := make([]ExploitAttempt, 0, len(raw))
	for _, item := range raw {
		var attempt ExploitAttempt
		if err := json.Unmarshal([]byte(item), &attempt); err != nil {
			s.logger.Error("Skipping malformed attempt record", zap.Error(err))
			continue
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// GetByPredicate scans a bounded recent window for matches.
func (s *RedisStore) GetByPredicate(ctx context.Context, pred func(ExploitAttempt) bool, n int) ([]ExploitAttempt, error) {
	return filterRecent(ctx, s, pred, n)
}

// Len reports the current list length.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, experienceBufferKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read experience buffer length: %w", err)
	}
	return int(n), nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
