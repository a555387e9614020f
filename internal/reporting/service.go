// Package reporting provides the staff read models: application counts per
// status and audit trails. Read-only, no side effects.
package reporting

import (
	"context"
	"log/slog"

	"transferdesk/internal/application/models"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	audit "transferdesk/pkg/platform/audit"
	"transferdesk/pkg/requestcontext"
)

// StatusCounter supplies per-status application counts and stage listings.
type StatusCounter interface {
	CountByStatus(ctx context.Context, departmentID domain.DepartmentID, period domain.Period) (map[domain.ApplicationStatus]int, error)
	ListByCohortAndStatus(ctx context.Context, cohort domain.Cohort, status domain.ApplicationStatus) ([]*models.Application, error)
}

// AuditReader supplies an application's audit trail.
type AuditReader interface {
	ListByApplication(ctx context.Context, applicationID domain.ApplicationID) ([]audit.Event, error)
}

// Service is the reporting read side.
type Service struct {
	counts StatusCounter
	trail  AuditReader
	logger *slog.Logger
}

// New builds the reporting service.
func New(counts StatusCounter, trail AuditReader, logger *slog.Logger) *Service {
	return &Service{counts: counts, trail: trail, logger: logger}
}

// StatusReport is the per-status breakdown for one department and period.
type StatusReport struct {
	DepartmentID domain.DepartmentID              `json:"department_id"`
	Period       domain.Period                    `json:"period"`
	Counts       map[domain.ApplicationStatus]int `json:"counts"`
	Total        int                              `json:"total"`
}

// StatusCounts returns the application breakdown for one department and
// period. Staff only.
func (s *Service) StatusCounts(ctx context.Context, departmentID domain.DepartmentID, period domain.Period) (*StatusReport, error) {
	if requestcontext.Role(ctx) == domain.RoleStudent {
		return nil, dErrors.New(dErrors.CodeForbidden, "reports are staff only")
	}
	if departmentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "department id is required")
	}
	if !period.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "period is invalid")
	}
	counts, err := s.counts.CountByStatus(ctx, departmentID, period)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count applications")
	}
	report := &StatusReport{
		DepartmentID: departmentID,
		Period:       period,
		Counts:       counts,
	}
	for _, n := range counts {
		report.Total += n
	}
	return report, nil
}

// ApplicationsByStage lists a cohort's applications sitting in one status.
// Staff only.
func (s *Service) ApplicationsByStage(ctx context.Context, cohort domain.Cohort, status domain.ApplicationStatus) ([]*models.Application, error) {
	if requestcontext.Role(ctx) == domain.RoleStudent {
		return nil, dErrors.New(dErrors.CodeForbidden, "reports are staff only")
	}
	if err := cohort.Validate(); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "status is invalid")
	}
	apps, err := s.counts.ListByCohortAndStatus(ctx, cohort, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return apps, nil
}

// AuditTrail returns an application's audit events in order. Staff only.
func (s *Service) AuditTrail(ctx context.Context, applicationID domain.ApplicationID) ([]audit.Event, error) {
	if requestcontext.Role(ctx) == domain.RoleStudent {
		return nil, dErrors.New(dErrors.CodeForbidden, "audit trails are staff only")
	}
	events, err := s.trail.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit trail")
	}
	return events, nil
}
