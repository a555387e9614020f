package ranking_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"transferdesk/internal/evaluation"
	evalstore "transferdesk/internal/evaluation/store"
	"transferdesk/internal/quota"
	quotaservice "transferdesk/internal/quota/service"
	quotastore "transferdesk/internal/quota/store"
	"transferdesk/internal/ranking"
	rankstore "transferdesk/internal/ranking/store"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	"transferdesk/pkg/requestcontext"
)

// =============================================================================
// Ranking Engine Test Suite
// =============================================================================
// Justification for unit tests: the ordering rules, the quota boundary, and
// the one-way publication guard are the load-bearing invariants of the whole
// placement pipeline. Each needs exercising against crafted cohorts that an
// E2E flow could only reach through many evaluation rounds.

type RankingServiceSuite struct {
	suite.Suite

	rankings *rankstore.InMemory
	evals    *evalstore.InMemory
	quotas   *quotastore.InMemory
	locker   *ranking.MemoryLocker
	service  *ranking.Service

	actorID domain.ActorID
	cohort  domain.Cohort
	now     time.Time
}

func TestRankingServiceSuite(t *testing.T) {
	suite.Run(t, new(RankingServiceSuite))
}

func (s *RankingServiceSuite) SetupTest() {
	s.rankings = rankstore.NewInMemory()
	s.evals = evalstore.NewInMemory()
	s.quotas = quotastore.NewInMemory()
	s.locker = ranking.NewMemoryLocker()
	s.service = ranking.New(s.rankings, s.evals, quotaservice.New(s.quotas), s.locker)

	s.actorID = domain.ActorID(uuid.New())
	s.cohort = domain.Cohort{
		DepartmentID: domain.DepartmentID(uuid.New()),
		FacultyID:    domain.FacultyID(uuid.New()),
		Period:       domain.NewPeriod(2026, domain.SemesterFall),
	}
	s.now = time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC)

	s.setQuota(2)
}

func (s *RankingServiceSuite) setQuota(seats int) {
	err := s.quotas.Upsert(context.Background(), &quota.Quota{
		Key:   quota.KeyForCohort(s.cohort),
		Quota: seats,
	})
	s.Require().NoError(err)
}

func (s *RankingServiceSuite) ctx(role domain.ActorRole) context.Context {
	ctx := requestcontext.WithActor(context.Background(), s.actorID, role)
	return requestcontext.WithTime(ctx, s.now)
}

// seedEvaluation stores one completed, eligible evaluation in the cohort.
func (s *RankingServiceSuite) seedEvaluation(score float64, examRank int, submittedAt time.Time) domain.ApplicationID {
	applicationID := domain.ApplicationID(uuid.New())
	completedAt := s.now.Add(-time.Hour)
	eval := &evaluation.Evaluation{
		ID:               domain.EvaluationID(uuid.New()),
		ApplicationID:    applicationID,
		Cohort:           s.cohort,
		OverallEligible:  true,
		CompositeScore:   &score,
		Completed:        true,
		CompletedAt:      &completedAt,
		DeclaredExamRank: examRank,
		SubmittedAt:      submittedAt,
	}
	s.Require().NoError(s.evals.Upsert(context.Background(), eval))
	return applicationID
}

func (s *RankingServiceSuite) seedIneligible() domain.ApplicationID {
	applicationID := domain.ApplicationID(uuid.New())
	completedAt := s.now.Add(-time.Hour)
	eval := &evaluation.Evaluation{
		ID:            domain.EvaluationID(uuid.New()),
		ApplicationID: applicationID,
		Cohort:        s.cohort,
		Completed:     true,
		CompletedAt:   &completedAt,
	}
	s.Require().NoError(s.evals.Upsert(context.Background(), eval))
	return applicationID
}

func (s *RankingServiceSuite) byApplication(entries []*ranking.Entry) map[domain.ApplicationID]*ranking.Entry {
	out := make(map[domain.ApplicationID]*ranking.Entry, len(entries))
	for _, e := range entries {
		out[e.ApplicationID] = e
	}
	return out
}

// =============================================================================
// Generation and Ordering Tests
// =============================================================================

func (s *RankingServiceSuite) TestGenerateOrdersAndSplitsByQuota() {
	base := s.now.Add(-240 * time.Hour)
	top := s.seedEvaluation(91.0, 500, base)
	second := s.seedEvaluation(85.5, 300, base.Add(time.Hour))
	third := s.seedEvaluation(85.5, 700, base)

	entries, err := s.service.Generate(s.ctx(domain.RoleYGKMember), s.cohort)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)

	got := s.byApplication(entries)

	s.Equal(1, got[top].Rank)
	s.True(got[top].IsPrimary)
	s.False(got[top].IsWaitlisted)

	// Equal scores fall back to the declared exam rank: 300 beats 700.
	s.Equal(2, got[second].Rank)
	s.True(got[second].IsPrimary)

	s.Equal(3, got[third].Rank)
	s.False(got[third].IsPrimary)
	s.True(got[third].IsWaitlisted)

	for _, e := range entries {
		s.Equal(2, e.QuotaSnapshot)
		s.False(e.IsPublished)
	}
}

func (s *RankingServiceSuite) TestGenerateBreaksScoreAndRankTiesBySubmissionTime() {
	base := s.now.Add(-240 * time.Hour)
	later := s.seedEvaluation(85.5, 300, base.Add(2*time.Hour))
	earlier := s.seedEvaluation(85.5, 300, base)

	entries, err := s.service.Generate(s.ctx(domain.RoleYGKMember), s.cohort)
	s.Require().NoError(err)

	got := s.byApplication(entries)
	s.Equal(1, got[earlier].Rank)
	s.Equal(2, got[later].Rank)
}

func (s *RankingServiceSuite) TestGenerateRefusesFullTie() {
	base := s.now.Add(-240 * time.Hour)
	s.seedEvaluation(85.5, 300, base)
	s.seedEvaluation(85.5, 300, base)

	_, err := s.service.Generate(s.ctx(domain.RoleYGKMember), s.cohort)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *RankingServiceSuite) TestIneligibleCarriedWithRankZero() {
	s.seedEvaluation(91.0, 500, s.now.Add(-240*time.Hour))
	ineligible := s.seedIneligible()

	entries, err := s.service.Generate(s.ctx(domain.RoleYGKMember), s.cohort)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	got := s.byApplication(entries)
	entry := got[ineligible]
	s.Equal(0, entry.Rank)
	s.False(entry.Eligible())
	s.False(entry.IsPrimary)
	s.False(entry.IsWaitlisted)
	s.Nil(entry.Score)
}

func (s *RankingServiceSuite) TestRegenerationReplacesTheSet() {
	base := s.now.Add(-240 * time.Hour)
	first := s.seedEvaluation(91.0, 500, base)

	_, err := s.service.Generate(s.ctx(domain.RoleYGKMember), s.cohort)
	s.Require().NoError(err)

	second := s.seedEvaluation(95.0, 200, base)
	entries, err := s.service.Generate(s.ctx(domain.RoleYGKMember), s.cohort)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	got := s.byApplication(entries)
	s.Equal(1, got[second].Rank)
	s.Equal(2, got[first].Rank)

	listed, err := s.service.List(s.ctx(domain.RoleYGKMember), s.cohort)
	s.Require().NoError(err)
	s.Len(listed, 2)
}

func (s *RankingServiceSuite) TestRegenerationWithUnchangedInputsIsStable() {
	base := s.now.Add(-240 * time.Hour)
	s.seedEvaluation(91.0, 500, base)
	s.seedEvaluation(85.5, 300, base.Add(time.Hour))
	s.seedEvaluation(85.5, 700, base)
	s.seedIneligible()

	first, err := s.service.Generate(s.ctx(domain.RoleYGKMember), s.cohort)
	s.Require().NoError(err)

	second, err := s.service.Generate(s.ctx(domain.RoleYGKMember), s.cohort)
	s.Require().NoError(err)
	s.Require().Len(second, len(first))

	// Entry IDs change across runs; the placement outcome must not.
	prior := s.byApplication(first)
	for _, entry := range second {
		want := prior[entry.ApplicationID]
		s.Require().NotNil(want)
		s.Equal(want.Rank, entry.Rank)
		s.Equal(want.IsPrimary, entry.IsPrimary)
		s.Equal(want.IsWaitlisted, entry.IsWaitlisted)
		s.Equal(want.QuotaSnapshot, entry.QuotaSnapshot)
		if want.Score == nil {
			s.Nil(entry.Score)
		} else {
			s.Require().NotNil(entry.Score)
			s.Equal(*want.Score, *entry.Score)
		}
	}
}

// =============================================================================
// Generation Guard Tests
// =============================================================================

func (s *RankingServiceSuite) TestGenerateGuards() {
	s.Run("role is enforced", func() {
		_, err := s.service.Generate(s.ctx(domain.RoleFacultyStaff), s.cohort)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("empty cohort", func() {
		_, err := s.service.Generate(s.ctx(domain.RoleYGKMember), s.cohort)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing quota configuration surfaces as-is", func() {
		other := s.cohort
		other.DepartmentID = domain.DepartmentID(uuid.New())
		completedAt := s.now.Add(-time.Hour)
		score := 90.0
		err := s.evals.Upsert(context.Background(), &evaluation.Evaluation{
			ID:              domain.EvaluationID(uuid.New()),
			ApplicationID:   domain.ApplicationID(uuid.New()),
			Cohort:          other,
			OverallEligible: true,
			CompositeScore:  &score,
			Completed:       true,
			CompletedAt:     &completedAt,
			SubmittedAt:     s.now.Add(-240 * time.Hour),
		})
		s.Require().NoError(err)

		_, err = s.service.Generate(s.ctx(domain.RoleYGKMember), other)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "quota not configured")
	})

	s.Run("held cohort lock refuses generation", func() {
		s.seedEvaluation(91.0, 500, s.now.Add(-240*time.Hour))

		release, err := s.locker.Acquire(context.Background(), s.cohort.Key())
		s.Require().NoError(err)
		defer release()

		_, err = s.service.Generate(s.ctx(domain.RoleYGKMember), s.cohort)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

// =============================================================================
// Publication Tests
// =============================================================================

func (s *RankingServiceSuite) TestPublish() {
	app := s.seedEvaluation(91.0, 500, s.now.Add(-240*time.Hour))
	_, err := s.service.Generate(s.ctx(domain.RoleYGKMember), s.cohort)
	s.Require().NoError(err)

	entries, err := s.service.Publish(s.ctx(domain.RoleFacultyStaff), s.cohort)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.True(entries[0].IsPublished)
	s.Require().NotNil(entries[0].PublishedAt)
	s.Equal(s.now, *entries[0].PublishedAt)

	s.Run("publication is one-way", func() {
		_, err := s.service.Publish(s.ctx(domain.RoleFacultyStaff), s.cohort)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		// The refused publish must leave the stored set untouched.
		after, err := s.service.List(s.ctx(domain.RoleFacultyStaff), s.cohort)
		s.Require().NoError(err)
		s.Equal(entries, after)
	})

	s.Run("published entries lock their evaluations", func() {
		locked, err := s.service.IsLocked(context.Background(), app)
		s.NoError(err)
		s.True(locked)
	})

	s.Run("regeneration after publication is refused", func() {
		_, err := s.service.Generate(s.ctx(domain.RoleYGKMember), s.cohort)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *RankingServiceSuite) TestPublishGuards() {
	s.Run("role is enforced", func() {
		_, err := s.service.Publish(s.ctx(domain.RoleYGKMember), s.cohort)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("nothing to publish", func() {
		_, err := s.service.Publish(s.ctx(domain.RoleFacultyStaff), s.cohort)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RankingServiceSuite) TestIsLockedBeforePublication() {
	app := s.seedEvaluation(91.0, 500, s.now.Add(-240*time.Hour))
	_, err := s.service.Generate(s.ctx(domain.RoleYGKMember), s.cohort)
	s.Require().NoError(err)

	locked, err := s.service.IsLocked(context.Background(), app)
	s.NoError(err)
	s.False(locked)
}
