package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"

	"github.com/redis/go-redis/v9"
)

var deleteSubjectTokensScript = redis.NewScript(`
local hashes = redis.call('SMEMBERS', KEYS[1])
local n = 0
for _, h in ipairs(hashes) do
	n = n + redis.call('DEL', ARGV[1] .. h)
end
redis.call('DEL', KEYS[1])
return n
`)

// redeemTokenScript deletes the token and its subject index entry in one
// step so the index never outlives a redeemed token.
var redeemTokenScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
	return false
end
redis.call('DEL', KEYS[1])
local rec = cjson.decode(v)
redis.call('SREM', ARGV[1] .. rec.subject, ARGV[2])
return v
`)

type redisRefreshRecord struct {
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RedisRefreshRecordStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRefreshRecordStore(client redis.UniversalClient, prefix string) *RedisRefreshRecordStore {
	if prefix == "" {
		prefix = "trustcore"
	}
	return &RedisRefreshRecordStore{client: client, prefix: prefix}
}

func (s *RedisRefreshRecordStore) Name() string { return "redis" }

func (s *RedisRefreshRecordStore) Put(ctx context.Context, rec *domain.RefreshRecord, ttl time.Duration) error {
	if s.client == nil {
		return errors.New("redis client not configured")
	}
	payload, err := json.Marshal(redisRefreshRecord{
		Subject:   rec.Subject,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	})
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.tokenKey(rec.TokenHash), payload, ttl)
	pipe.SAdd(ctx, s.subjectKey(rec.Subject), rec.TokenHash)
	pipe.Expire(ctx, s.subjectKey(rec.Subject), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisRefreshRecordStore) GetAndDelete(ctx context.Context, hash string) (*domain.RefreshRecord, bool, error) {
	if s.client == nil {
		return nil, false, errors.New("redis client not configured")
	}
	raw, err := redeemTokenScript.Run(ctx, s.client, []string{s.tokenKey(hash)}, s.subjectKey(""), hash).Text()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var stored redisRefreshRecord
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, false, err
	}
	return &domain.RefreshRecord{
		TokenHash: hash,
		Subject:   stored.Subject,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}, true, nil
}

func (s *RedisRefreshRecordStore) DeleteAll(ctx context.Context, subject string) (int64, error) {
	if s.client == nil {
		return 0, errors.New("redis client not configured")
	}
	return deleteSubjectTokensScript.Run(ctx, s.client, []string{s.subjectKey(subject)}, s.prefix+":refresh:").Int64()
}

func (s *RedisRefreshRecordStore) tokenKey(hash string) string {
	return s.prefix + ":refresh:" + hash
}

func (s *RedisRefreshRecordStore) subjectKey(subject string) string {
	return s.prefix + ":refresh_subject:" + subject
}
