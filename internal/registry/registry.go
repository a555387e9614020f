// Package registry holds the in-process configuration registries the
// evaluation engine consults: per-department eligibility requirements and
// per-program base scores. Both are administered over HTTP and kept in
// memory; they are reference data, volatile by design, and reseeded on
// deploy.
package registry

import (
	"context"
	"sync"

	"transferdesk/internal/evaluation/ports"
	"transferdesk/pkg/domain"
	"transferdesk/pkg/platform/sentinel"
)

// Requirements is an in-memory RequirementsRegistry.
type Requirements struct {
	mu    sync.RWMutex
	rules map[domain.DepartmentID]ports.Requirements
}

func NewRequirements() *Requirements {
	return &Requirements{rules: make(map[domain.DepartmentID]ports.Requirements)}
}

// Put installs or replaces a department's rule set.
func (r *Requirements) Put(req ports.Requirements) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[req.DepartmentID] = req
}

// GetRequirements implements ports.RequirementsRegistry.
func (r *Requirements) GetRequirements(_ context.Context, departmentID domain.DepartmentID) (*ports.Requirements, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.rules[departmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &req, nil
}

type baseScoreKey struct {
	departmentID domain.DepartmentID
	facultyID    domain.FacultyID
	examYear     int
}

// BaseScores is an in-memory BaseScoreRegistry.
type BaseScores struct {
	mu     sync.RWMutex
	scores map[baseScoreKey]float64
}

func NewBaseScores() *BaseScores {
	return &BaseScores{scores: make(map[baseScoreKey]float64)}
}

// Put installs or replaces a program's base score for one exam year.
func (b *BaseScores) Put(departmentID domain.DepartmentID, facultyID domain.FacultyID, examYear int, score float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scores[baseScoreKey{departmentID, facultyID, examYear}] = score
}

// GetBaseScore implements ports.BaseScoreRegistry.
func (b *BaseScores) GetBaseScore(_ context.Context, departmentID domain.DepartmentID, facultyID domain.FacultyID, examYear int) (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	score, ok := b.scores[baseScoreKey{departmentID, facultyID, examYear}]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return score, nil
}
