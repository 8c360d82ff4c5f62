package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRoleCacheStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRoleCacheStore(client redis.UniversalClient, prefix string) *RedisRoleCacheStore {
	if prefix == "" {
		prefix = "trustcore"
	}
	return &RedisRoleCacheStore{client: client, prefix: prefix + ":role_cache"}
}

func (s *RedisRoleCacheStore) Get(ctx context.Context, subject string) (string, bool, error) {
	if s.client == nil {
		return "", false, nil
	}
	key, err := s.dataKey(ctx, subject)
	if err != nil {
		return "", false, err
	}
	role, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}

func (s *RedisRoleCacheStore) Set(ctx context.Context, subject, role string, ttl time.Duration) error {
	if s.client == nil || ttl <= 0 {
		return nil
	}
	key, err := s.dataKey(ctx, subject)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, role, ttl).Err()
}

func (s *RedisRoleCacheStore) InvalidateSubject(ctx context.Context, subject string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Incr(ctx, s.subjectEpochKey(subject)).Err()
}

func (s *RedisRoleCacheStore) InvalidateAll(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Incr(ctx, s.globalEpochKey()).Err()
}

func (s *RedisRoleCacheStore) dataKey(ctx context.Context, subject string) (string, error) {
	pipe := s.client.Pipeline()
	globalCmd := pipe.Get(ctx, s.globalEpochKey())
	subjectCmd := pipe.Get(ctx, s.subjectEpochKey(subject))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	globalEpoch, err := parseEpoch(globalCmd)
	if err != nil {
		return "", err
	}
	subjectEpoch, err := parseEpoch(subjectCmd)
	if err != nil {
		return "", err
	}
	return s.prefix + ":" + buildRoleCacheKey(globalEpoch, subjectEpoch, subject), nil
}

func parseEpoch(cmd *redis.StringCmd) (uint64, error) {
	v, err := cmd.Result()
	if errors.Is(err, redis.Nil) || (err == nil && v == "") {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

func (s *RedisRoleCacheStore) globalEpochKey() string {
	return s.prefix + ":epoch:global"
}

func (s *RedisRoleCacheStore) subjectEpochKey(subject string) string {
	return s.prefix + ":epoch:subject:" + subject
}
