package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key used when none is configured.
const DefaultRedisKey = "formblocks:schema"

// RedisClient is the subset of redis.UniversalClient the store needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps the schema under a single Redis key.
type RedisStore struct {
	client RedisClient
	key    string
}

// NewRedisStore wraps an existing client. An empty key selects
// DefaultRedisKey.
func NewRedisStore(client RedisClient, key string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("store: redis client is required")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}, nil
}

// RedisOptions configures DialRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// DialRedis connects to Redis and checks the connection with a ping before
// returning the store and the client so the caller can close it.
func DialRedis(ctx context.Context, opts RedisOptions) (*RedisStore, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("store: connect to redis %s: %w", opts.Addr, err)
	}

	s, err := NewRedisStore(client, opts.Key)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return s, client, nil
}

// Key returns the Redis key holding the schema.
func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Get(ctx context.Context) (string, error) {
	text, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: redis get %s: %w", s.key, err)
	}
	return text, nil
}

func (s *RedisStore) Set(ctx context.Context, text string) error {
	if err := s.client.Set(ctx, s.key, text, 0).Err(); err != nil {
		return fmt.Errorf("store: redis set %s: %w", s.key, err)
	}
	return nil
}
