package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stamps are fixed-width decimal nanoseconds; comparing them as strings
// avoids Lua's float precision loss.
var revokeAfterScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if (not cur) or (#ARGV[1] > #cur) or (#ARGV[1] == #cur and ARGV[1] > cur) then
	redis.call('SET', KEYS[1], ARGV[1])
end
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// RedisRevocationStore keeps a valid-after stamp per subject. Entries live
// as long as the longest session so every credential they void has expired
// by the time they disappear.
type RedisRevocationStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

func NewRedisRevocationStore(client redis.UniversalClient, prefix string, retention time.Duration) *RedisRevocationStore {
	if prefix == "" {
		prefix = "trustcore"
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &RedisRevocationStore{client: client, prefix: prefix, retention: retention}
}

func (s *RedisRevocationStore) RevokeAllFor(ctx context.Context, subject string, at time.Time) error {
	if s.client == nil {
		return errors.New("redis client not configured")
	}
	stamp := strconv.FormatInt(at.UnixNano(), 10)
	return revokeAfterScript.Run(ctx, s.client, []string{s.key(subject)}, stamp, s.retention.Milliseconds()).Err()
}

func (s *RedisRevocationStore) ValidAfter(ctx context.Context, subject string) (time.Time, bool, error) {
	if s.client == nil {
		return time.Time{}, false, errors.New("redis client not configured")
	}
	raw, err := s.client.Get(ctx, s.key(subject)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(0, n), true, nil
}

func (s *RedisRevocationStore) key(subject string) string {
	return s.prefix + ":revoked:" + subject
}
