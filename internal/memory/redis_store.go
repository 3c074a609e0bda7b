package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store interface using Redis lists
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration // Per-user TTL, refreshed on every append
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	// Parse Redis URL
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// turnsKey generates Redis key for a user's turns
func (r *RedisStore) turnsKey(userID string) string {
	return fmt.Sprintf("nagarsathi:turns:%s", userID)
}

// AppendTurn pushes the turn onto the user's list and refreshes the TTL
func (r *RedisStore) AppendTurn(ctx context.Context, turn Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	key := r.turnsKey(turn.UserID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save turn to Redis: %w", err)
	}
	return nil
}

// Turns retrieves the user's turns oldest first
func (r *RedisStore) Turns(ctx context.Context, userID string, limit int) ([]Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	raw, err := r.client.LRange(ctx, r.turnsKey(userID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load turns from Redis: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var turn Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to parse turn data: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// ClearUser removes a user's turns from Redis
func (r *RedisStore) ClearUser(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.turnsKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection is alive
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
