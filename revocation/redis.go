package revocation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps revocation entries in Redis with native key expiry, which
// makes them visible to every service instance sharing the server.
type RedisStore struct {
	client redis.Cmdable
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient opens a client and checks connectivity within timeout.
func NewRedisClient(ctx context.Context, addr, password string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   -1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (s *RedisStore) Add(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, key, "1", ttl).Err()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
