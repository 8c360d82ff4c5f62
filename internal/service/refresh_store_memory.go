package service

import (
	"context"
	"sync"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"
)

type InMemoryRefreshRecordStore struct {
	mu        sync.Mutex
	records   map[string]domain.RefreshRecord
	bySubject map[string]map[string]struct{}
}

func NewInMemoryRefreshRecordStore() *InMemoryRefreshRecordStore {
	return &InMemoryRefreshRecordStore{
		records:   make(map[string]domain.RefreshRecord),
		bySubject: make(map[string]map[string]struct{}),
	}
}

func (s *InMemoryRefreshRecordStore) Name() string { return "memory" }

func (s *InMemoryRefreshRecordStore) Put(_ context.Context, rec *domain.RefreshRecord, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.TokenHash] = *rec
	set, ok := s.bySubject[rec.Subject]
	if !ok {
		set = make(map[string]struct{})
		s.bySubject[rec.Subject] = set
	}
	set[rec.TokenHash] = struct{}{}
	return nil
}

func (s *InMemoryRefreshRecordStore) GetAndDelete(_ context.Context, hash string) (*domain.RefreshRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[hash]
	if !ok {
		return nil, false, nil
	}
	delete(s.records, hash)
	if set := s.bySubject[rec.Subject]; set != nil {
		delete(set, hash)
		if len(set) == 0 {
			delete(s.bySubject, rec.Subject)
		}
	}
	return &rec, true, nil
}

func (s *InMemoryRefreshRecordStore) DeleteAll(_ context.Context, subject string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.bySubject[subject]
	for hash := range set {
		delete(s.records, hash)
	}
	delete(s.bySubject, subject)
	return int64(len(set)), nil
}

func (s *InMemoryRefreshRecordStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, hash)
			if set := s.bySubject[rec.Subject]; set != nil {
				delete(set, hash)
			}
			n++
		}
	}
	return n, nil
}
