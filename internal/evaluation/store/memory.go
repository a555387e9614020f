// Package store provides Evaluation persistence. Evaluations are keyed by
// application: Upsert replaces the application's active evaluation in place.
package store

import (
	"context"
	"sort"
	"sync"

	"transferdesk/internal/evaluation"
	"transferdesk/pkg/domain"
	"transferdesk/pkg/platform/sentinel"
)

// InMemory stores evaluations in a map guarded by a mutex.
type InMemory struct {
	mu    sync.RWMutex
	evals map[domain.ApplicationID]*evaluation.Evaluation
}

func NewInMemory() *InMemory {
	return &InMemory{evals: make(map[domain.ApplicationID]*evaluation.Evaluation)}
}

func clone(e *evaluation.Evaluation) *evaluation.Evaluation {
	cp := *e
	if e.CustomRuleSatisfied != nil {
		v := *e.CustomRuleSatisfied
		cp.CustomRuleSatisfied = &v
	}
	if e.CompositeScore != nil {
		v := *e.CompositeScore
		cp.CompositeScore = &v
	}
	if e.CompletedAt != nil {
		v := *e.CompletedAt
		cp.CompletedAt = &v
	}
	return &cp
}

func (s *InMemory) Upsert(_ context.Context, eval *evaluation.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evals[eval.ApplicationID] = clone(eval)
	return nil
}

func (s *InMemory) FindByApplication(_ context.Context, applicationID domain.ApplicationID) (*evaluation.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eval, ok := s.evals[applicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(eval), nil
}

// ListCompletedByCohort returns completed evaluations for one ranking cohort
// in a stable order.
func (s *InMemory) ListCompletedByCohort(_ context.Context, cohort domain.Cohort) ([]*evaluation.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*evaluation.Evaluation
	for _, eval := range s.evals {
		if eval.Cohort == cohort && eval.Completed {
			out = append(out, clone(eval))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ApplicationID.String() < out[j].ApplicationID.String()
	})
	return out, nil
}
