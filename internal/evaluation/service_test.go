package evaluation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"transferdesk/internal/application/models"
	appstore "transferdesk/internal/application/store"
	"transferdesk/internal/evaluation"
	"transferdesk/internal/evaluation/ports"
	"transferdesk/internal/evaluation/ports/mocks"
	evalstore "transferdesk/internal/evaluation/store"
	"transferdesk/internal/registry"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	"transferdesk/pkg/requestcontext"
)

// =============================================================================
// Evaluation Engine Test Suite
// =============================================================================
// Justification for unit tests: eligibility is a conjunction of four
// independently configured rules, and the score path only runs when all of
// them hold. Each rule's failure mode and the lock guard need exercising in
// isolation.

type EvaluationServiceSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	apps         *appstore.InMemory
	evals        *evalstore.InMemory
	requirements *registry.Requirements
	baseScores   *registry.BaseScores
	publications *mocks.MockPublicationChecker
	service      *evaluation.Service

	evaluatorID  domain.ActorID
	facultyID    domain.FacultyID
	departmentID domain.DepartmentID
	period       domain.Period
	now          time.Time
}

func TestEvaluationServiceSuite(t *testing.T) {
	suite.Run(t, new(EvaluationServiceSuite))
}

func (s *EvaluationServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.apps = appstore.NewInMemory()
	s.evals = evalstore.NewInMemory()
	s.requirements = registry.NewRequirements()
	s.baseScores = registry.NewBaseScores()
	s.publications = mocks.NewMockPublicationChecker(s.ctrl)
	s.service = evaluation.New(s.evals, s.apps, s.requirements, s.baseScores, s.publications)

	s.evaluatorID = domain.ActorID(uuid.New())
	s.facultyID = domain.FacultyID(uuid.New())
	s.departmentID = domain.DepartmentID(uuid.New())
	s.period = domain.NewPeriod(2026, domain.SemesterFall)
	s.now = time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)

	s.requirements.Put(ports.Requirements{
		DepartmentID: s.departmentID,
		MinGPA:       2.5,
		MinExamScore: 380,
	})
	s.baseScores.Put(s.departmentID, s.facultyID, 2025, 450.5)

	s.publications.EXPECT().IsLocked(gomock.Any(), gomock.Any()).Return(false, nil).AnyTimes()
}

func (s *EvaluationServiceSuite) ctx(role domain.ActorRole) context.Context {
	ctx := requestcontext.WithActor(context.Background(), s.evaluatorID, role)
	return requestcontext.WithTime(ctx, s.now)
}

// seedApplication stores an application already before the evaluation board.
// Mutators adjust the fixture before it is persisted.
func (s *EvaluationServiceSuite) seedApplication(status domain.ApplicationStatus, mutate ...func(*models.Application)) *models.Application {
	submittedAt := s.now.Add(-72 * time.Hour)
	app := &models.Application{
		ID:                domain.ApplicationID(uuid.New()),
		StudentID:         domain.StudentID(uuid.New()),
		Status:            status,
		FacultyID:         s.facultyID,
		DepartmentID:      s.departmentID,
		Period:            s.period,
		DeclaredGPA:       3.4,
		DeclaredExamScore: 420.5,
		DeclaredExamRank:  1500,
		ExamYear:          2025,
		SubmittedAt:       &submittedAt,
	}
	for _, m := range mutate {
		m(app)
	}
	s.Require().NoError(s.apps.Create(context.Background(), app))
	return app
}

func (s *EvaluationServiceSuite) params(app *models.Application) evaluation.EvaluateParams {
	return evaluation.EvaluateParams{
		ApplicationID:     app.ID,
		VerifiedGPA:       3.4,
		VerifiedExamScore: 420.5,
		EnglishEligible:   true,
	}
}

// =============================================================================
// Happy Path Tests
// =============================================================================

func (s *EvaluationServiceSuite) TestEvaluateEligible() {
	app := s.seedApplication(domain.StatusYGKEvaluation)

	eval, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), s.params(app))
	s.Require().NoError(err)

	s.True(eval.GPAEligible)
	s.True(eval.ExamEligible)
	s.True(eval.EnglishEligible)
	s.True(eval.OverallEligible)
	s.True(eval.Completed)
	s.Require().NotNil(eval.CompositeScore)
	// (420.5/450.5)*100*0.9 + GPATo100(3.4)*0.1, rounded to four decimals.
	s.InDelta(92.2067, *eval.CompositeScore, 1e-9)
	s.Equal(s.evaluatorID, eval.EvaluatedBy)
	s.Equal(app.DeclaredExamRank, eval.DeclaredExamRank)
	s.Equal(*app.SubmittedAt, eval.SubmittedAt)

	got, err := s.service.Get(s.ctx(domain.RoleYGKMember), app.ID)
	s.NoError(err)
	s.Equal(eval.ID, got.ID)
}

func (s *EvaluationServiceSuite) TestReEvaluateReplacesPass() {
	app := s.seedApplication(domain.StatusYGKEvaluation)

	first, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), s.params(app))
	s.Require().NoError(err)

	params := s.params(app)
	params.VerifiedGPA = 3.9
	second, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), params)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.InDelta(3.9, second.VerifiedGPA, 1e-9)

	got, err := s.service.Get(s.ctx(domain.RoleYGKMember), app.ID)
	s.Require().NoError(err)
	s.InDelta(3.9, got.VerifiedGPA, 1e-9)
}

// =============================================================================
// Eligibility Rule Tests
// =============================================================================

func (s *EvaluationServiceSuite) TestIneligibleCarriesNoScore() {
	s.Run("GPA below threshold", func() {
		app := s.seedApplication(domain.StatusYGKEvaluation)
		params := s.params(app)
		params.VerifiedGPA = 2.1

		eval, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), params)
		s.Require().NoError(err)
		s.False(eval.GPAEligible)
		s.False(eval.OverallEligible)
		s.Nil(eval.CompositeScore)
		s.True(eval.Completed)
	})

	s.Run("exam score below threshold", func() {
		app := s.seedApplication(domain.StatusYGKEvaluation)
		params := s.params(app)
		params.VerifiedExamScore = 200

		eval, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), params)
		s.Require().NoError(err)
		s.False(eval.ExamEligible)
		s.False(eval.OverallEligible)
		s.Nil(eval.CompositeScore)
	})

	s.Run("english requirement not met", func() {
		app := s.seedApplication(domain.StatusYGKEvaluation)
		params := s.params(app)
		params.EnglishEligible = false

		eval, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), params)
		s.Require().NoError(err)
		s.False(eval.OverallEligible)
		s.Nil(eval.CompositeScore)
	})
}

func (s *EvaluationServiceSuite) TestMaxExamRankReplacesScoreThreshold() {
	department := domain.DepartmentID(uuid.New())
	s.requirements.Put(ports.Requirements{
		DepartmentID: department,
		MinGPA:       2.5,
		MinExamScore: 380,
		MaxExamRank:  1000,
	})
	s.baseScores.Put(department, s.facultyID, 2025, 450.5)

	app := s.seedApplication(domain.StatusYGKEvaluation, func(a *models.Application) {
		a.DepartmentID = department
		a.DeclaredExamRank = 1500
	})

	// Rank 1500 is outside the top 1000 even though the score clears the
	// threshold the rank rule replaces.
	eval, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), s.params(app))
	s.Require().NoError(err)
	s.False(eval.ExamEligible)
	s.False(eval.OverallEligible)
}

func (s *EvaluationServiceSuite) TestCustomRule() {
	department := domain.DepartmentID(uuid.New())
	s.requirements.Put(ports.Requirements{
		DepartmentID: department,
		MinGPA:       2.5,
		MinExamScore: 380,
		CustomRule:   ports.CustomRulePortfolioReview,
	})
	s.baseScores.Put(department, s.facultyID, 2025, 450.5)

	seed := func() *models.Application {
		return s.seedApplication(domain.StatusYGKEvaluation, func(a *models.Application) {
			a.DepartmentID = department
		})
	}

	s.Run("verdict is mandatory", func() {
		app := seed()
		_, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), s.params(app))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("failed verdict blocks eligibility", func() {
		app := seed()
		params := s.params(app)
		verdict := false
		params.CustomRuleSatisfied = &verdict

		eval, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), params)
		s.Require().NoError(err)
		s.False(eval.OverallEligible)
		s.Nil(eval.CompositeScore)
	})

	s.Run("passed verdict completes the conjunction", func() {
		app := seed()
		params := s.params(app)
		verdict := true
		params.CustomRuleSatisfied = &verdict

		eval, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), params)
		s.Require().NoError(err)
		s.True(eval.OverallEligible)
		s.NotNil(eval.CompositeScore)
	})
}

// =============================================================================
// Guard Tests
// =============================================================================

func (s *EvaluationServiceSuite) TestGuards() {
	s.Run("only board members may evaluate", func() {
		app := s.seedApplication(domain.StatusYGKEvaluation)
		_, err := s.service.Evaluate(s.ctx(domain.RoleFacultyStaff), s.params(app))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("application must sit before the board", func() {
		app := s.seedApplication(domain.StatusSubmitted)
		_, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), s.params(app))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown application", func() {
		params := evaluation.EvaluateParams{ApplicationID: domain.ApplicationID(uuid.New()), VerifiedGPA: 3, VerifiedExamScore: 400, EnglishEligible: true}
		_, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), params)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("verified figures are range checked", func() {
		app := s.seedApplication(domain.StatusYGKEvaluation)
		params := s.params(app)
		params.VerifiedGPA = 4.2
		_, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), params)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		params = s.params(app)
		params.VerifiedExamScore = -1
		_, err = s.service.Evaluate(s.ctx(domain.RoleYGKMember), params)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("missing requirements configuration", func() {
		app := s.seedApplication(domain.StatusYGKEvaluation, func(a *models.Application) {
			a.DepartmentID = domain.DepartmentID(uuid.New())
		})
		_, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), s.params(app))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing base score for exam year", func() {
		app := s.seedApplication(domain.StatusYGKEvaluation, func(a *models.Application) {
			a.ExamYear = 2024
		})
		_, err := s.service.Evaluate(s.ctx(domain.RoleYGKMember), s.params(app))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *EvaluationServiceSuite) TestPublishedRankingLocksEvaluation() {
	ctrl := gomock.NewController(s.T())
	publications := mocks.NewMockPublicationChecker(ctrl)
	service := evaluation.New(s.evals, s.apps, s.requirements, s.baseScores, publications)

	app := s.seedApplication(domain.StatusYGKEvaluation)
	publications.EXPECT().IsLocked(gomock.Any(), app.ID).Return(true, nil)

	_, err := service.Evaluate(s.ctx(domain.RoleYGKMember), s.params(app))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(err.Error(), "locked")
}

func (s *EvaluationServiceSuite) TestGetUnknownEvaluation() {
	_, err := s.service.Get(s.ctx(domain.RoleYGKMember), domain.ApplicationID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
