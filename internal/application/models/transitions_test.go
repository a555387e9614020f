package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
)

// =============================================================================
// Transition Table Test Suite
// =============================================================================
// The transition table is the single source of truth for the lifecycle; these
// tests walk the happy path end to end and then prove everything off the
// table is rejected.

type TransitionSuite struct {
	suite.Suite
	studentID domain.StudentID
	actorID   domain.ActorID
	now       time.Time
}

func TestTransitionSuite(t *testing.T) {
	suite.Run(t, new(TransitionSuite))
}

func (s *TransitionSuite) SetupTest() {
	id := uuid.New()
	s.studentID = domain.StudentID(id)
	s.actorID = domain.ActorID(id)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *TransitionSuite) newApplication() *Application {
	app, err := NewApplication(
		domain.ApplicationID(uuid.New()),
		s.studentID,
		domain.FacultyID(uuid.New()),
		domain.DepartmentID(uuid.New()),
		domain.Period("2026-FALL"),
		Declared{GPA: 3.2, ExamScore: 420.5, ExamRank: 1500, ExamYear: 2025},
		s.now,
	)
	s.Require().NoError(err)
	return app
}

func (s *TransitionSuite) apply(app *Application, op Operation, role domain.ActorRole) {
	rule, err := app.CanApply(op, role)
	s.Require().NoError(err)
	app.Apply(op, rule, s.actorID, "", s.now)
}

func (s *TransitionSuite) TestHappyPath() {
	app := s.newApplication()
	s.Equal(domain.StatusDraft, app.Status)

	steps := []struct {
		op   Operation
		role domain.ActorRole
		next domain.ApplicationStatus
	}{
		{OpSubmit, domain.RoleStudent, domain.StatusSubmitted},
		{OpReview, domain.RoleOIDBStaff, domain.StatusOIDBReview},
		{OpRouteToFaculty, domain.RoleOIDBStaff, domain.StatusFacultyRouting},
		{OpRouteToDepartment, domain.RoleFacultyStaff, domain.StatusDepartmentRouting},
		{OpSetForEvaluation, domain.RoleFacultyStaff, domain.StatusYGKEvaluation},
		{OpCompleteRanking, domain.RoleYGKMember, domain.StatusRanked},
		{OpReferToBoard, domain.RoleFacultyStaff, domain.StatusFacultyBoard},
	}
	for _, step := range steps {
		s.apply(app, step.op, step.role)
		s.Equal(step.next, app.Status)
	}

	app.ApplyBoardDecision(domain.BoardApprove, "strong record", s.actorID, s.now)
	s.Equal(domain.StatusApproved, app.Status)
	s.True(app.Status.IsTerminal())
	s.Len(app.History, 8)
}

func (s *TransitionSuite) TestWaitlistDecision() {
	app := s.newApplication()
	app.Status = domain.StatusFacultyBoard

	app.ApplyBoardDecision(domain.BoardWaitlist, "", s.actorID, s.now)
	s.Equal(domain.StatusWaitlisted, app.Status)
	s.True(app.Status.IsTerminal())
}

func (s *TransitionSuite) TestEveryIllegalPairIsRejected() {
	for _, op := range Operations() {
		for status := range map[domain.ApplicationStatus]struct{}{
			domain.StatusDraft:             {},
			domain.StatusSubmitted:         {},
			domain.StatusOIDBReview:        {},
			domain.StatusFacultyRouting:    {},
			domain.StatusDepartmentRouting: {},
			domain.StatusYGKEvaluation:     {},
			domain.StatusRanked:            {},
			domain.StatusFacultyBoard:      {},
			domain.StatusApproved:          {},
			domain.StatusWaitlisted:        {},
			domain.StatusRejected:          {},
		} {
			_, ruleErr := RuleFor(op, status)
			legal := ruleErr == nil
			app := s.newApplication()
			app.Status = status
			_, err := app.CanApply(op, domain.RoleAdmin)
			if legal && op != OpSubmit {
				s.NoError(err, "op %s from %s", op, status)
			} else if !legal {
				s.True(dErrors.HasCode(err, dErrors.CodeConflict), "op %s from %s should conflict", op, status)
			}
		}
	}
}

func (s *TransitionSuite) TestTerminalStatesAcceptNothing() {
	for _, status := range []domain.ApplicationStatus{
		domain.StatusApproved, domain.StatusWaitlisted, domain.StatusRejected,
	} {
		app := s.newApplication()
		app.Status = status
		for _, op := range Operations() {
			_, err := app.CanApply(op, domain.RoleAdmin)
			s.Error(err, "op %s from terminal %s", op, status)
		}
	}
}

func (s *TransitionSuite) TestRoleEnforcement() {
	s.Run("student cannot review", func() {
		app := s.newApplication()
		app.Status = domain.StatusSubmitted
		_, err := app.CanApply(OpReview, domain.RoleStudent)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("admin cannot submit for a student", func() {
		app := s.newApplication()
		_, err := app.CanApply(OpSubmit, domain.RoleAdmin)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("admin satisfies staff roles", func() {
		app := s.newApplication()
		app.Status = domain.StatusSubmitted
		_, err := app.CanApply(OpReview, domain.RoleAdmin)
		s.NoError(err)
	})
}

func (s *TransitionSuite) TestRejectRequiresReason() {
	app := s.newApplication()
	app.Status = domain.StatusOIDBReview

	_, err := app.CanReject(domain.RoleOIDBStaff, "  ")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	rule, err := app.CanReject(domain.RoleOIDBStaff, "missing transcript")
	s.Require().NoError(err)
	app.Apply(OpReject, rule, s.actorID, "missing transcript", s.now)
	s.Equal(domain.StatusRejected, app.Status)
	s.Equal("missing transcript", app.RejectionReason)
	s.NotNil(app.RejectedAt)
}

func (s *TransitionSuite) TestStageTimestampsAreAppendOnly() {
	app := s.newApplication()
	s.apply(app, OpSubmit, domain.RoleStudent)
	first := *app.SubmittedAt

	later := s.now.Add(time.Hour)
	rule := Rule{Next: domain.StatusSubmitted, Role: domain.RoleStudent}
	app.Apply(OpSubmit, rule, s.actorID, "", later)
	s.Equal(first, *app.SubmittedAt, "stage timestamp must not be overwritten")
	s.Equal(later, app.UpdatedAt)
}

func (s *TransitionSuite) TestHistoryRecordsEveryTransition() {
	app := s.newApplication()
	s.apply(app, OpSubmit, domain.RoleStudent)
	s.apply(app, OpReview, domain.RoleOIDBStaff)

	s.Require().Len(app.History, 2)
	s.Equal(domain.StatusDraft, app.History[0].From)
	s.Equal(domain.StatusSubmitted, app.History[0].To)
	s.Equal(OpSubmit, app.History[0].Operation)
	s.Equal(domain.StatusSubmitted, app.History[1].From)
	s.Equal(domain.StatusOIDBReview, app.History[1].To)
}
