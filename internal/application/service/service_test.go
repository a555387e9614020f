package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"transferdesk/internal/application/models"
	"transferdesk/internal/application/store"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	"transferdesk/pkg/requestcontext"
)

// =============================================================================
// Application Service Test Suite
// =============================================================================
// Justification for unit tests: the service layers ownership checks, number
// allocation, and transition orchestration on top of the models state machine.
// Exercising every guard through HTTP would require a full auth and storage
// stack for what is purely in-process behavior.

type ApplicationServiceSuite struct {
	suite.Suite
	store   *store.InMemory
	service *Service

	studentID domain.ActorID
	staffID   domain.ActorID
	now       time.Time

	facultyID    domain.FacultyID
	departmentID domain.DepartmentID
	period       domain.Period
}

func TestApplicationServiceSuite(t *testing.T) {
	suite.Run(t, new(ApplicationServiceSuite))
}

func (s *ApplicationServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.service = New(s.store)

	s.studentID = domain.ActorID(uuid.New())
	s.staffID = domain.ActorID(uuid.New())
	s.now = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	s.facultyID = domain.FacultyID(uuid.New())
	s.departmentID = domain.DepartmentID(uuid.New())
	s.period = domain.NewPeriod(2026, domain.SemesterFall)
}

func (s *ApplicationServiceSuite) studentCtx() context.Context {
	ctx := requestcontext.WithActor(context.Background(), s.studentID, domain.RoleStudent)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *ApplicationServiceSuite) staffCtx(role domain.ActorRole) context.Context {
	ctx := requestcontext.WithActor(context.Background(), s.staffID, role)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *ApplicationServiceSuite) declared() models.Declared {
	return models.Declared{GPA: 3.4, ExamScore: 420.5, ExamRank: 1500, ExamYear: 2025}
}

func (s *ApplicationServiceSuite) createDraft() *models.Application {
	app, err := s.service.CreateDraft(s.studentCtx(), CreateParams{
		FacultyID:    s.facultyID,
		DepartmentID: s.departmentID,
		Period:       s.period,
		Declared:     s.declared(),
	})
	s.Require().NoError(err)
	return app
}

// =============================================================================
// Draft Creation Tests
// =============================================================================

func (s *ApplicationServiceSuite) TestCreateDraft() {
	s.Run("student creates a draft", func() {
		app := s.createDraft()
		s.Equal(domain.StatusDraft, app.Status)
		s.Equal(domain.StudentID(s.studentID), app.StudentID)
		s.Empty(app.Number)
		s.Equal(s.now, app.CreatedAt)
	})

	s.Run("staff cannot create applications", func() {
		_, err := s.service.CreateDraft(s.staffCtx(domain.RoleOIDBStaff), CreateParams{
			FacultyID:    s.facultyID,
			DepartmentID: s.departmentID,
			Period:       s.period,
			Declared:     s.declared(),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("invalid declared figures are rejected", func() {
		declared := s.declared()
		declared.GPA = 4.5
		_, err := s.service.CreateDraft(s.studentCtx(), CreateParams{
			FacultyID:    s.facultyID,
			DepartmentID: s.departmentID,
			Period:       s.period,
			Declared:     declared,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// =============================================================================
// Visibility Tests
// =============================================================================

func (s *ApplicationServiceSuite) TestGet() {
	app := s.createDraft()

	s.Run("owner sees the application", func() {
		got, err := s.service.Get(s.studentCtx(), app.ID)
		s.NoError(err)
		s.Equal(app.ID, got.ID)
	})

	s.Run("another student is refused", func() {
		otherCtx := requestcontext.WithActor(context.Background(), domain.ActorID(uuid.New()), domain.RoleStudent)
		_, err := s.service.Get(otherCtx, app.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("staff sees any application", func() {
		got, err := s.service.Get(s.staffCtx(domain.RoleOIDBStaff), app.ID)
		s.NoError(err)
		s.Equal(app.ID, got.ID)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.service.Get(s.studentCtx(), domain.ApplicationID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ApplicationServiceSuite) TestListMine() {
	s.createDraft()
	s.createDraft()

	apps, err := s.service.ListMine(s.studentCtx())
	s.NoError(err)
	s.Len(apps, 2)

	_, err = s.service.ListMine(s.staffCtx(domain.RoleOIDBStaff))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

// =============================================================================
// Draft Editing Tests
// =============================================================================

func (s *ApplicationServiceSuite) TestUpdateDeclared() {
	app := s.createDraft()

	s.Run("owner updates figures in draft", func() {
		declared := s.declared()
		declared.GPA = 3.8
		updated, err := s.service.UpdateDeclared(s.studentCtx(), app.ID, declared)
		s.NoError(err)
		s.InDelta(3.8, updated.DeclaredGPA, 1e-9)
	})

	s.Run("staff cannot edit declared figures", func() {
		_, err := s.service.UpdateDeclared(s.staffCtx(domain.RoleOIDBStaff), app.ID, s.declared())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("edits stop once the application leaves submitted", func() {
		submitted, err := s.service.Submit(s.studentCtx(), app.ID)
		s.Require().NoError(err)
		s.Equal(domain.StatusSubmitted, submitted.Status)

		// Still editable while submitted.
		_, err = s.service.UpdateDeclared(s.studentCtx(), app.ID, s.declared())
		s.NoError(err)

		_, err = s.service.Review(s.staffCtx(domain.RoleOIDBStaff), app.ID)
		s.Require().NoError(err)

		_, err = s.service.UpdateDeclared(s.studentCtx(), app.ID, s.declared())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ApplicationServiceSuite) TestDocuments() {
	app := s.createDraft()

	s.Run("attach and remove", func() {
		updated, err := s.service.AttachDocument(s.studentCtx(), app.ID, domain.DocumentTranscript, "transcript.pdf")
		s.NoError(err)
		s.Require().Len(updated.Documents, 1)

		updated, err = s.service.RemoveDocument(s.studentCtx(), app.ID, updated.Documents[0].ID)
		s.NoError(err)
		s.Empty(updated.Documents)
	})

	s.Run("removing an unknown document fails", func() {
		_, err := s.service.RemoveDocument(s.studentCtx(), app.ID, domain.DocumentID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("blank filename is rejected", func() {
		_, err := s.service.AttachDocument(s.studentCtx(), app.ID, domain.DocumentTranscript, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ApplicationServiceSuite) TestDelete() {
	s.Run("owner deletes a draft", func() {
		app := s.createDraft()
		s.NoError(s.service.Delete(s.studentCtx(), app.ID))

		_, err := s.service.Get(s.studentCtx(), app.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("submitted applications cannot be deleted", func() {
		app := s.createDraft()
		_, err := s.service.Submit(s.studentCtx(), app.ID)
		s.Require().NoError(err)

		err = s.service.Delete(s.studentCtx(), app.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// =============================================================================
// Submission and Numbering Tests
// =============================================================================

func (s *ApplicationServiceSuite) TestSubmit() {
	s.Run("submission assigns a sequential period number", func() {
		first := s.createDraft()
		second := s.createDraft()

		submitted, err := s.service.Submit(s.studentCtx(), first.ID)
		s.NoError(err)
		s.Equal("TR-2026-FALL-0001", submitted.Number)
		s.Equal(domain.StatusSubmitted, submitted.Status)
		s.NotNil(submitted.SubmittedAt)

		submitted, err = s.service.Submit(s.studentCtx(), second.ID)
		s.NoError(err)
		s.Equal("TR-2026-FALL-0002", submitted.Number)
	})

	s.Run("only the owner may submit", func() {
		app := s.createDraft()
		otherCtx := requestcontext.WithActor(context.Background(), domain.ActorID(uuid.New()), domain.RoleStudent)
		_, err := s.service.Submit(otherCtx, app.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("double submission conflicts", func() {
		app := s.createDraft()
		_, err := s.service.Submit(s.studentCtx(), app.ID)
		s.Require().NoError(err)

		_, err = s.service.Submit(s.studentCtx(), app.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// =============================================================================
// Staff Pipeline Tests
// =============================================================================

func (s *ApplicationServiceSuite) TestStaffPipeline() {
	app := s.createDraft()
	_, err := s.service.Submit(s.studentCtx(), app.ID)
	s.Require().NoError(err)

	oidb := s.staffCtx(domain.RoleOIDBStaff)
	faculty := s.staffCtx(domain.RoleFacultyStaff)
	ygk := s.staffCtx(domain.RoleYGKMember)

	_, err = s.service.Review(oidb, app.ID)
	s.Require().NoError(err)
	_, err = s.service.RouteToFaculty(oidb, app.ID)
	s.Require().NoError(err)
	_, err = s.service.RouteToDepartment(faculty, app.ID)
	s.Require().NoError(err)
	_, err = s.service.SetForEvaluation(faculty, app.ID)
	s.Require().NoError(err)
	_, err = s.service.CompleteRanking(ygk, app.ID)
	s.Require().NoError(err)
	_, err = s.service.ReferToBoard(faculty, app.ID)
	s.Require().NoError(err)

	updated, err := s.service.BoardDecision(faculty, app.ID, domain.BoardApprove, "strong record")
	s.NoError(err)
	s.Equal(domain.StatusApproved, updated.Status)
	s.Equal(domain.BoardApprove, updated.BoardDecision)
	s.NotNil(updated.DecidedAt)
	s.Len(updated.History, 8)
}

func (s *ApplicationServiceSuite) TestReject() {
	app := s.createDraft()
	_, err := s.service.Submit(s.studentCtx(), app.ID)
	s.Require().NoError(err)
	_, err = s.service.Review(s.staffCtx(domain.RoleOIDBStaff), app.ID)
	s.Require().NoError(err)

	s.Run("a reason is mandatory", func() {
		_, err := s.service.Reject(s.staffCtx(domain.RoleOIDBStaff), app.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejection is terminal", func() {
		rejected, err := s.service.Reject(s.staffCtx(domain.RoleOIDBStaff), app.ID, "ineligible program")
		s.NoError(err)
		s.Equal(domain.StatusRejected, rejected.Status)
		s.Equal("ineligible program", rejected.RejectionReason)
		s.NotNil(rejected.RejectedAt)

		_, err = s.service.RouteToFaculty(s.staffCtx(domain.RoleOIDBStaff), app.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ApplicationServiceSuite) TestRoleGuards() {
	app := s.createDraft()
	_, err := s.service.Submit(s.studentCtx(), app.ID)
	s.Require().NoError(err)

	s.Run("students cannot run staff transitions", func() {
		_, err := s.service.Review(s.studentCtx(), app.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("wrong staff role is refused", func() {
		_, err := s.service.Review(s.staffCtx(domain.RoleFacultyStaff), app.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("admin satisfies any staff role", func() {
		_, err := s.service.Review(s.staffCtx(domain.RoleAdmin), app.ID)
		s.NoError(err)
	})
}

func (s *ApplicationServiceSuite) TestInvalidBoardDecision() {
	app := s.createDraft()
	_, err := s.service.BoardDecision(s.staffCtx(domain.RoleFacultyStaff), app.ID, domain.BoardDecision("MAYBE"), "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
