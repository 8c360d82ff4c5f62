package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type RoleCacheStore interface {
	Get(ctx context.Context, subject string) (string, bool, error)
	Set(ctx context.Context, subject, role string, ttl time.Duration) error
	InvalidateSubject(ctx context.Context, subject string) error
	InvalidateAll(ctx context.Context) error
}

type NoopRoleCacheStore struct{}

func NewNoopRoleCacheStore() *NoopRoleCacheStore { return &NoopRoleCacheStore{} }

func (NoopRoleCacheStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (NoopRoleCacheStore) Set(context.Context, string, string, time.Duration) error { return nil }

func (NoopRoleCacheStore) InvalidateSubject(context.Context, string) error { return nil }

func (NoopRoleCacheStore) InvalidateAll(context.Context) error { return nil }

type roleCacheEntry struct {
	role      string
	expiresAt time.Time
}

type InMemoryRoleCacheStore struct {
	mu           sync.RWMutex
	data         map[string]roleCacheEntry
	globalEpoch  uint64
	subjectEpoch map[string]uint64
}

func NewInMemoryRoleCacheStore() *InMemoryRoleCacheStore {
	return &InMemoryRoleCacheStore{
		data:         make(map[string]roleCacheEntry),
		subjectEpoch: make(map[string]uint64),
	}
}

func (s *InMemoryRoleCacheStore) Get(_ context.Context, subject string) (string, bool, error) {
	now := time.Now()
	s.mu.RLock()
	key := s.cacheKeyLocked(subject)
	entry, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if now.After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return "", false, nil
	}
	return entry.role, true, nil
}

func (s *InMemoryRoleCacheStore) Set(_ context.Context, subject, role string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[s.cacheKeyLocked(subject)] = roleCacheEntry{role: role, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *InMemoryRoleCacheStore) InvalidateSubject(_ context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjectEpoch[subject]++
	return nil
}

func (s *InMemoryRoleCacheStore) InvalidateAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalEpoch++
	return nil
}

func (s *InMemoryRoleCacheStore) cacheKeyLocked(subject string) string {
	return buildRoleCacheKey(s.globalEpoch, s.subjectEpoch[subject], subject)
}

func buildRoleCacheKey(globalEpoch, subjectEpoch uint64, subject string) string {
	return fmt.Sprintf("role:g%d:s%d:%s", globalEpoch, subjectEpoch, subject)
}
