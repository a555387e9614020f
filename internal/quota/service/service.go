// Package service implements quota management: staff configure seat
// allocations and the ranking engine consumes and releases them.
package service

import (
	"context"
	"errors"
	"log/slog"

	"transferdesk/internal/quota"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	audit "transferdesk/pkg/platform/audit"
	"transferdesk/pkg/platform/sentinel"
	"transferdesk/pkg/requestcontext"
)

// Store persists quotas.
type Store interface {
	Upsert(ctx context.Context, q *quota.Quota) error
	Find(ctx context.Context, key quota.Key) (*quota.Quota, error)
	// Execute atomically validates and mutates a quota row.
	Execute(ctx context.Context, key quota.Key, validate func(*quota.Quota) error, mutate func(*quota.Quota)) (*quota.Quota, error)
}

// AuditPublisher emits audit events; nil disables auditing.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages quota allocations.
type Service struct {
	quotas  Store
	auditor AuditPublisher
	logger  *slog.Logger
}

// Option configures the service.
type Option func(*Service)

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New builds the quota service.
func New(quotas Store, opts ...Option) *Service {
	s := &Service{quotas: quotas, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the quota for a key.
func (s *Service) Get(ctx context.Context, key quota.Key) (*quota.Quota, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	q, err := s.quotas.Find(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "quota not configured")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load quota")
	}
	return q, nil
}

// GetForCohort returns the quota covering a ranking cohort.
func (s *Service) GetForCohort(ctx context.Context, cohort domain.Cohort) (*quota.Quota, error) {
	return s.Get(ctx, quota.KeyForCohort(cohort))
}

// Set creates or resizes a quota. The seat count can never drop below the
// already filled count.
func (s *Service) Set(ctx context.Context, key quota.Key, seats int) (*quota.Quota, error) {
	if !requestcontext.Role(ctx).Satisfies(domain.RoleFacultyStaff) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only faculty staff may manage quotas")
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if seats < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "quota cannot be negative")
	}

	now := requestcontext.Now(ctx)
	q, err := s.quotas.Execute(ctx, key,
		func(q *quota.Quota) error {
			if seats < q.FilledCount {
				return dErrors.New(dErrors.CodeConflict, "quota cannot drop below the filled seat count")
			}
			return nil
		},
		func(q *quota.Quota) {
			q.Quota = seats
			q.UpdatedAt = now
		},
	)
	if errors.Is(err, sentinel.ErrNotFound) {
		q = &quota.Quota{Key: key, Quota: seats, UpdatedAt: now}
		if err := s.quotas.Upsert(ctx, q); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store quota")
		}
	} else if err != nil {
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update quota")
	}

	if err := s.emit(ctx, key); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "quota set",
		"request_id", requestcontext.RequestID(ctx),
		"department_id", key.DepartmentID,
		"faculty_id", key.FacultyID,
		"semester", key.Semester,
		"academic_year", key.AcademicYear,
		"quota", seats,
	)
	return q, nil
}

// Fill consumes seats for a cohort, typically when board approvals land.
func (s *Service) Fill(ctx context.Context, cohort domain.Cohort, n int) (*quota.Quota, error) {
	return s.adjust(ctx, cohort, func(q *quota.Quota) error { return q.Fill(n) })
}

// Release returns seats for a cohort, typically when an approval is vacated.
func (s *Service) Release(ctx context.Context, cohort domain.Cohort, n int) (*quota.Quota, error) {
	return s.adjust(ctx, cohort, func(q *quota.Quota) error { return q.Release(n) })
}

func (s *Service) adjust(ctx context.Context, cohort domain.Cohort, change func(*quota.Quota) error) (*quota.Quota, error) {
	key := quota.KeyForCohort(cohort)
	if err := key.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	q, err := s.quotas.Execute(ctx, key,
		change,
		func(q *quota.Quota) { q.UpdatedAt = now },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "quota not configured")
		}
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update quota")
	}
	return q, nil
}

func (s *Service) emit(ctx context.Context, key quota.Key) error {
	if s.auditor == nil {
		return nil
	}
	cohortKey := key.DepartmentID.String() + ":" + key.FacultyID.String() + ":" +
		domain.NewPeriod(key.AcademicYear, key.Semester).String()
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Cohort:    cohortKey,
		ActorID:   requestcontext.ActorID(ctx).String(),
		ActorRole: requestcontext.Role(ctx).String(),
		Action:    string(audit.EventQuotaUpdated),
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}
