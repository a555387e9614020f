// Package store provides Application persistence. The in-memory
// implementation keeps unit tests and dev mode lightweight; the postgres
// implementation is the production store. Both return sentinel errors and
// leave domain-error translation to the service.
package store

import (
	"context"
	"sync"

	"transferdesk/internal/application/models"
	"transferdesk/pkg/domain"
	"transferdesk/pkg/platform/sentinel"
)

// InMemory stores applications in a map guarded by a mutex. Execute holds the
// write lock across validate and mutate, matching the postgres store's
// SELECT ... FOR UPDATE semantics.
type InMemory struct {
	mu        sync.RWMutex
	apps      map[domain.ApplicationID]*models.Application
	sequences map[domain.Period]int
}

func NewInMemory() *InMemory {
	return &InMemory{
		apps:      make(map[domain.ApplicationID]*models.Application),
		sequences: make(map[domain.Period]int),
	}
}

func clone(a *models.Application) *models.Application {
	cp := *a
	cp.Documents = append([]models.Document(nil), a.Documents...)
	cp.History = append([]models.TransitionRecord(nil), a.History...)
	return &cp
}

func (s *InMemory) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apps[app.ID]; exists {
		return sentinel.ErrConflict
	}
	s.apps[app.ID] = clone(app)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(app), nil
}

// Execute atomically validates and mutates an application under the store
// lock, returning the updated copy.
func (s *InMemory) Execute(_ context.Context, id domain.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := clone(app)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.apps[id] = working
	return clone(working), nil
}

// Delete removes an application after the validation callback passes under
// the lock.
func (s *InMemory) Delete(_ context.Context, id domain.ApplicationID, validate func(*models.Application) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if err := validate(clone(app)); err != nil {
		return err
	}
	delete(s.apps, id)
	return nil
}

// AllocateNumber returns the next sequential application number for a period.
func (s *InMemory) AllocateNumber(_ context.Context, period domain.Period) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[period]++
	return s.sequences[period], nil
}

func (s *InMemory) ListByStudent(_ context.Context, studentID domain.StudentID) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Application
	for _, app := range s.apps {
		if app.StudentID == studentID {
			out = append(out, clone(app))
		}
	}
	return out, nil
}

func (s *InMemory) ListByCohortAndStatus(_ context.Context, cohort domain.Cohort, status domain.ApplicationStatus) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Application
	for _, app := range s.apps {
		if app.Cohort() == cohort && app.Status == status {
			out = append(out, clone(app))
		}
	}
	return out, nil
}

// CountByStatus returns application counts per status for a department and
// period. Feeds the reporting read path.
func (s *InMemory) CountByStatus(_ context.Context, departmentID domain.DepartmentID, period domain.Period) (map[domain.ApplicationStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[domain.ApplicationStatus]int)
	for _, app := range s.apps {
		if app.DepartmentID == departmentID && app.Period == period {
			counts[app.Status]++
		}
	}
	return counts, nil
}
