package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mealbrowser/internal/meal"
)

// Redis is a Backend storing meal lists as JSON strings.
type Redis struct {
	client redis.UniversalClient
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects to Redis and verifies the connection with a PING.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{opts.Addr},
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  10 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &Redis{client: client}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Get implements Backend.
func (r *Redis) Get(ctx context.Context, key string) ([]meal.Meal, error) {
	data, err := r.client.Get(ctx, encodeKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var meals []meal.Meal
	if err := json.Unmarshal(data, &meals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached meals: %w", err)
	}
	if meals == nil {
		meals = []meal.Meal{}
	}
	return meals, nil
}

// Set implements Backend.
func (r *Redis) Set(ctx context.Context, key string, meals []meal.Meal, ttl time.Duration) error {
	if meals == nil {
		meals = []meal.Meal{}
	}
	data, err := json.Marshal(meals)
	if err != nil {
		return fmt.Errorf("failed to marshal meals: %w", err)
	}
	if err := r.client.Set(ctx, encodeKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping reports whether the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
