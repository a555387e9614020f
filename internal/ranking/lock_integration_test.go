//go:build integration

package ranking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"transferdesk/internal/ranking"
	"transferdesk/pkg/platform/sentinel"
	"transferdesk/pkg/testutil/containers"
)

type RedisLockerSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	locker *ranking.RedisLocker
}

func TestRedisLockerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockerSuite))
}

func (s *RedisLockerSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.locker = ranking.NewRedisLocker(s.redis.Client)
}

func (s *RedisLockerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLockerSuite) TestAcquireIsExclusiveUntilReleased() {
	ctx := context.Background()

	release, err := s.locker.Acquire(ctx, "cohort-a")
	s.Require().NoError(err)

	_, err = s.locker.Acquire(ctx, "cohort-a")
	s.True(errors.Is(err, sentinel.ErrLocked))

	release()

	again, err := s.locker.Acquire(ctx, "cohort-a")
	s.Require().NoError(err)
	again()
}

func (s *RedisLockerSuite) TestCohortsLockIndependently() {
	ctx := context.Background()

	releaseA, err := s.locker.Acquire(ctx, "cohort-a")
	s.Require().NoError(err)
	defer releaseA()

	releaseB, err := s.locker.Acquire(ctx, "cohort-b")
	s.Require().NoError(err)
	releaseB()
}

func (s *RedisLockerSuite) TestStaleReleaseKeepsSuccessorLock() {
	ctx := context.Background()

	staleRelease, err := s.locker.Acquire(ctx, "cohort-a")
	s.Require().NoError(err)

	// Simulate the TTL expiring while the first holder is still running.
	s.Require().NoError(s.redis.Client.Del(ctx, "ranking:lock:cohort-a").Err())

	successorRelease, err := s.locker.Acquire(ctx, "cohort-a")
	s.Require().NoError(err)
	defer successorRelease()

	// The late release carries the stale token and must leave the
	// successor's lock in place.
	staleRelease()

	_, err = s.locker.Acquire(ctx, "cohort-a")
	s.True(errors.Is(err, sentinel.ErrLocked))
}
