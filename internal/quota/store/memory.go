// Package store provides Quota persistence.
package store

import (
	"context"
	"sync"

	"transferdesk/internal/quota"
	"transferdesk/pkg/platform/sentinel"
)

// InMemory stores quotas in a map guarded by a mutex. Execute holds the write
// lock across validate and mutate, matching the postgres store's
// SELECT ... FOR UPDATE semantics.
type InMemory struct {
	mu     sync.RWMutex
	quotas map[quota.Key]*quota.Quota
}

func NewInMemory() *InMemory {
	return &InMemory{quotas: make(map[quota.Key]*quota.Quota)}
}

func clone(q *quota.Quota) *quota.Quota {
	cp := *q
	return &cp
}

func (s *InMemory) Upsert(_ context.Context, q *quota.Quota) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotas[q.Key] = clone(q)
	return nil
}

func (s *InMemory) Find(_ context.Context, key quota.Key) (*quota.Quota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotas[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(q), nil
}

// Execute atomically validates and mutates a quota under the store lock.
func (s *InMemory) Execute(_ context.Context, key quota.Key, validate func(*quota.Quota) error, mutate func(*quota.Quota)) (*quota.Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotas[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := clone(q)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.quotas[key] = working
	return clone(working), nil
}
