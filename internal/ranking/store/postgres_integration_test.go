//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"transferdesk/internal/ranking"
	"transferdesk/internal/ranking/store"
	"transferdesk/pkg/domain"
	"transferdesk/pkg/platform/sentinel"
	"transferdesk/pkg/testutil/containers"
)

type RankingPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres

	cohort domain.Cohort
	now    time.Time
}

func TestRankingPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RankingPostgresSuite))
}

func (s *RankingPostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *RankingPostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
	s.cohort = domain.Cohort{
		DepartmentID: domain.DepartmentID(uuid.New()),
		FacultyID:    domain.FacultyID(uuid.New()),
		Period:       domain.NewPeriod(2026, domain.SemesterFall),
	}
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *RankingPostgresSuite) entry(rank int, score float64) *ranking.Entry {
	e := &ranking.Entry{
		ID:            domain.RankingID(uuid.New()),
		ApplicationID: domain.ApplicationID(uuid.New()),
		Cohort:        s.cohort,
		Rank:          rank,
		QuotaSnapshot: 2,
		GeneratedAt:   s.now,
	}
	if rank > 0 {
		e.Score = &score
		e.IsPrimary = rank <= e.QuotaSnapshot
		e.IsWaitlisted = rank > e.QuotaSnapshot
	}
	return e
}

func (s *RankingPostgresSuite) TestReplaceAndList() {
	ctx := context.Background()

	first := []*ranking.Entry{s.entry(1, 91.0), s.entry(0, 0)}
	s.Require().NoError(s.store.ReplaceCohort(ctx, s.cohort, first))

	second := []*ranking.Entry{s.entry(1, 95.0), s.entry(2, 91.0), s.entry(3, 85.5)}
	s.Require().NoError(s.store.ReplaceCohort(ctx, s.cohort, second))

	got, err := s.store.ListByCohort(ctx, s.cohort)
	s.Require().NoError(err)
	s.Require().Len(got, 3, "replacement drops the previous set")
	s.Equal(1, got[0].Rank)
	s.Equal(2, got[1].Rank)
	s.Equal(3, got[2].Rank)
}

func (s *RankingPostgresSuite) TestIneligibleEntriesSortLast() {
	ctx := context.Background()
	entries := []*ranking.Entry{s.entry(0, 0), s.entry(1, 91.0), s.entry(2, 85.5)}
	s.Require().NoError(s.store.ReplaceCohort(ctx, s.cohort, entries))

	got, err := s.store.ListByCohort(ctx, s.cohort)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(1, got[0].Rank)
	s.Equal(2, got[1].Rank)
	s.Equal(0, got[2].Rank)
}

func (s *RankingPostgresSuite) TestEmptyCohortIsNotFound() {
	_, err := s.store.ListByCohort(context.Background(), s.cohort)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.PublishCohort(context.Background(), s.cohort, s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RankingPostgresSuite) TestPublishIsOneWay() {
	ctx := context.Background()
	entries := []*ranking.Entry{s.entry(1, 91.0), s.entry(2, 85.5)}
	s.Require().NoError(s.store.ReplaceCohort(ctx, s.cohort, entries))

	published, err := s.store.PublishCohort(ctx, s.cohort, s.now)
	s.Require().NoError(err)
	s.Require().Len(published, 2)
	for _, e := range published {
		s.True(e.IsPublished)
		s.Require().NotNil(e.PublishedAt)
		s.Equal(s.now, e.PublishedAt.UTC())
	}

	s.Run("second publish fails clean", func() {
		_, err := s.store.PublishCohort(ctx, s.cohort, s.now.Add(time.Hour))
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)

		got, listErr := s.store.ListByCohort(ctx, s.cohort)
		s.Require().NoError(listErr)
		for _, e := range got {
			s.Equal(s.now, e.PublishedAt.UTC(), "timestamps survive the refused publish")
		}
	})

	s.Run("replacement after publication is refused", func() {
		err := s.store.ReplaceCohort(ctx, s.cohort, []*ranking.Entry{s.entry(1, 99.0)})
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})
}

func (s *RankingPostgresSuite) TestIsLocked() {
	ctx := context.Background()
	entry := s.entry(1, 91.0)
	s.Require().NoError(s.store.ReplaceCohort(ctx, s.cohort, []*ranking.Entry{entry}))

	locked, err := s.store.IsLocked(ctx, entry.ApplicationID)
	s.Require().NoError(err)
	s.False(locked, "unpublished rankings do not lock")

	_, err = s.store.PublishCohort(ctx, s.cohort, s.now)
	s.Require().NoError(err)

	locked, err = s.store.IsLocked(ctx, entry.ApplicationID)
	s.Require().NoError(err)
	s.True(locked)

	locked, err = s.store.IsLocked(ctx, domain.ApplicationID(uuid.New()))
	s.Require().NoError(err)
	s.False(locked)
}
