package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	redisPending   = "pending"
	redisDelivered = "delivered"
)

// RedisStore keeps lead keys in Redis so every server instance shares them.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "gulfcoast:lead:", ttl: ttl}
}

// NewRedisClient connects to the Redis server at url (redis://...).
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (Status, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), redisPending, s.ttl).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to reserve lead key: %w", err)
	}
	if ok {
		return StatusNew, nil
	}

	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; report pending and let the
		// visitor retry rather than racing for the key.
		return StatusPending, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read lead key: %w", err)
	}
	if val == redisDelivered {
		return StatusDelivered, nil
	}
	return StatusPending, nil
}

func (s *RedisStore) MarkDelivered(ctx context.Context, key string) error {
	if err := s.client.Set(ctx, s.key(key), redisDelivered, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark lead key delivered: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to release lead key: %w", err)
	}
	return nil
}
