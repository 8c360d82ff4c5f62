package service

import (
	"context"
	"sync"
	"time"
)

// CounterStore is a distributed integer counter with per-key expiry.
type CounterStore interface {
	IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, bool, error)
	Delete(ctx context.Context, key string) error
}

type counterEntry struct {
	count     int64
	expiresAt time.Time
}

type InMemoryCounterStore struct {
	mu   sync.Mutex
	data map[string]counterEntry
	now  func() time.Time
}

func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{data: make(map[string]counterEntry), now: time.Now}
}

func (s *InMemoryCounterStore) IncrementWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.data[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = counterEntry{expiresAt: now.Add(ttl)}
	}
	entry.count++
	s.data[key] = entry
	return entry.count, nil
}

func (s *InMemoryCounterStore) Get(_ context.Context, key string) (int64, bool, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.data[key]
	if !ok {
		return 0, false, nil
	}
	if !now.Before(entry.expiresAt) {
		delete(s.data, key)
		return 0, false, nil
	}
	return entry.count, true, nil
}

func (s *InMemoryCounterStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
