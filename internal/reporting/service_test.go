package reporting

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"transferdesk/internal/application/models"
	"transferdesk/internal/application/store"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	audit "transferdesk/pkg/platform/audit"
	"transferdesk/pkg/platform/audit/store/memory"
	"transferdesk/pkg/requestcontext"
)

// =============================================================================
// Reporting Service Test Suite
// =============================================================================

type ReportingServiceSuite struct {
	suite.Suite
	apps    *store.InMemory
	trail   *memory.InMemoryStore
	service *Service

	cohort domain.Cohort
}

func TestReportingServiceSuite(t *testing.T) {
	suite.Run(t, new(ReportingServiceSuite))
}

func (s *ReportingServiceSuite) SetupTest() {
	s.apps = store.NewInMemory()
	s.trail = memory.NewInMemoryStore()
	s.service = New(s.apps, s.trail, slog.Default())

	s.cohort = domain.Cohort{
		DepartmentID: domain.DepartmentID(uuid.New()),
		FacultyID:    domain.FacultyID(uuid.New()),
		Period:       domain.NewPeriod(2026, domain.SemesterFall),
	}

	for _, status := range []domain.ApplicationStatus{
		domain.StatusSubmitted, domain.StatusSubmitted, domain.StatusYGKEvaluation,
	} {
		app := &models.Application{
			ID:           domain.ApplicationID(uuid.New()),
			StudentID:    domain.StudentID(uuid.New()),
			Status:       status,
			FacultyID:    s.cohort.FacultyID,
			DepartmentID: s.cohort.DepartmentID,
			Period:       s.cohort.Period,
			CreatedAt:    time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
		}
		s.Require().NoError(s.apps.Create(context.Background(), app))
	}
}

func (s *ReportingServiceSuite) ctx(role domain.ActorRole) context.Context {
	return requestcontext.WithActor(context.Background(), domain.ActorID(uuid.New()), role)
}

func (s *ReportingServiceSuite) TestStatusCounts() {
	report, err := s.service.StatusCounts(s.ctx(domain.RoleOIDBStaff), s.cohort.DepartmentID, s.cohort.Period)
	s.Require().NoError(err)
	s.Equal(2, report.Counts[domain.StatusSubmitted])
	s.Equal(1, report.Counts[domain.StatusYGKEvaluation])
	s.Equal(3, report.Total)

	s.Run("students are refused", func() {
		_, err := s.service.StatusCounts(s.ctx(domain.RoleStudent), s.cohort.DepartmentID, s.cohort.Period)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ReportingServiceSuite) TestApplicationsByStage() {
	apps, err := s.service.ApplicationsByStage(s.ctx(domain.RoleFacultyStaff), s.cohort, domain.StatusSubmitted)
	s.Require().NoError(err)
	s.Len(apps, 2)

	s.Run("invalid status is rejected", func() {
		_, err := s.service.ApplicationsByStage(s.ctx(domain.RoleFacultyStaff), s.cohort, domain.ApplicationStatus("PENDING"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("students are refused", func() {
		_, err := s.service.ApplicationsByStage(s.ctx(domain.RoleStudent), s.cohort, domain.StatusSubmitted)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ReportingServiceSuite) TestAuditTrail() {
	applicationID := domain.ApplicationID(uuid.New())
	err := s.trail.Append(context.Background(), audit.Event{
		ApplicationID: applicationID,
		Action:        string(audit.EventApplicationSubmitted),
	})
	s.Require().NoError(err)

	events, err := s.service.AuditTrail(s.ctx(domain.RoleOIDBStaff), applicationID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventApplicationSubmitted), events[0].Action)

	s.Run("students are refused", func() {
		_, err := s.service.AuditTrail(s.ctx(domain.RoleStudent), applicationID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
