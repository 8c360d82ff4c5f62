package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementWithTTLScript sets the expiry only when the increment opened a
// fresh window, so repeated failures cannot extend a lockout indefinitely.
var incrementWithTTLScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 or redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

type RedisCounterStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCounterStore(client redis.UniversalClient, prefix string) *RedisCounterStore {
	if prefix == "" {
		prefix = "trustcore"
	}
	return &RedisCounterStore{client: client, prefix: prefix}
}

func (s *RedisCounterStore) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if s.client == nil {
		return 0, errors.New("redis client not configured")
	}
	return incrementWithTTLScript.Run(ctx, s.client, []string{s.key(key)}, ttl.Milliseconds()).Int64()
}

func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, bool, error) {
	if s.client == nil {
		return 0, false, errors.New("redis client not configured")
	}
	n, err := s.client.Get(ctx, s.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (s *RedisCounterStore) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return errors.New("redis client not configured")
	}
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *RedisCounterStore) key(key string) string {
	return s.prefix + ":" + key
}
