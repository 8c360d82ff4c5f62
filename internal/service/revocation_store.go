package service

import (
	"context"
	"sync"
	"time"
)

type InMemoryRevocationStore struct {
	mu    sync.RWMutex
	after map[string]time.Time
}

func NewInMemoryRevocationStore() *InMemoryRevocationStore {
	return &InMemoryRevocationStore{after: make(map[string]time.Time)}
}

func (s *InMemoryRevocationStore) RevokeAllFor(_ context.Context, subject string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at.After(s.after[subject]) {
		s.after[subject] = at
	}
	return nil
}

func (s *InMemoryRevocationStore) ValidAfter(_ context.Context, subject string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.after[subject]
	return at, ok, nil
}
