// Package store provides ranking persistence. A cohort's entries are written
// and published as one atomic unit.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"transferdesk/internal/ranking"
	"transferdesk/pkg/domain"
	"transferdesk/pkg/platform/sentinel"
)

// InMemory stores ranking entries per cohort in a map guarded by a mutex.
type InMemory struct {
	mu      sync.RWMutex
	cohorts map[string][]*ranking.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{cohorts: make(map[string][]*ranking.Entry)}
}

func clone(e *ranking.Entry) *ranking.Entry {
	cp := *e
	if e.Score != nil {
		v := *e.Score
		cp.Score = &v
	}
	if e.PublishedAt != nil {
		v := *e.PublishedAt
		cp.PublishedAt = &v
	}
	return &cp
}

func cloneAll(entries []*ranking.Entry) []*ranking.Entry {
	out := make([]*ranking.Entry, len(entries))
	for i, e := range entries {
		out[i] = clone(e)
	}
	return out
}

// ReplaceCohort swaps the cohort's entries in one step. Published cohorts
// are immutable and return sentinel.ErrAlreadyUsed.
func (s *InMemory) ReplaceCohort(_ context.Context, cohort domain.Cohort, entries []*ranking.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cohorts[cohort.Key()] {
		if existing.IsPublished {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.cohorts[cohort.Key()] = cloneAll(entries)
	return nil
}

// ListByCohort returns the cohort's entries ordered by rank, ineligible
// entries last.
func (s *InMemory) ListByCohort(_ context.Context, cohort domain.Cohort) ([]*ranking.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.cohorts[cohort.Key()]
	if !ok || len(entries) == 0 {
		return nil, sentinel.ErrNotFound
	}
	out := cloneAll(entries)
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Rank, out[j].Rank
		if ri == 0 {
			ri = int(^uint(0) >> 1)
		}
		if rj == 0 {
			rj = int(^uint(0) >> 1)
		}
		if ri != rj {
			return ri < rj
		}
		return out[i].ApplicationID.String() < out[j].ApplicationID.String()
	})
	return out, nil
}

// PublishCohort flips the cohort to published in one step. Returns
// sentinel.ErrAlreadyUsed if it already is, sentinel.ErrNotFound if no
// ranking exists.
func (s *InMemory) PublishCohort(_ context.Context, cohort domain.Cohort, at time.Time) ([]*ranking.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.cohorts[cohort.Key()]
	if !ok || len(entries) == 0 {
		return nil, sentinel.ErrNotFound
	}
	for _, e := range entries {
		if e.IsPublished {
			return nil, sentinel.ErrAlreadyUsed
		}
	}
	for _, e := range entries {
		e.IsPublished = true
		ts := at
		e.PublishedAt = &ts
	}
	return cloneAll(entries), nil
}

// IsLocked reports whether the application sits in a published ranking.
func (s *InMemory) IsLocked(_ context.Context, applicationID domain.ApplicationID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entries := range s.cohorts {
		for _, e := range entries {
			if e.ApplicationID == applicationID && e.IsPublished {
				return true, nil
			}
		}
	}
	return false, nil
}
