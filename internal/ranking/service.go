package ranking

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"transferdesk/internal/evaluation"
	"transferdesk/internal/quota"
	rankmetrics "transferdesk/internal/ranking/metrics"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	audit "transferdesk/pkg/platform/audit"
	"transferdesk/pkg/platform/sentinel"
	txpkg "transferdesk/pkg/platform/tx"
	"transferdesk/pkg/requestcontext"
)

// EvaluationSource supplies a cohort's completed evaluations.
type EvaluationSource interface {
	ListCompletedByCohort(ctx context.Context, cohort domain.Cohort) ([]*evaluation.Evaluation, error)
}

// QuotaSource supplies the seat allocation covering a cohort.
type QuotaSource interface {
	GetForCohort(ctx context.Context, cohort domain.Cohort) (*quota.Quota, error)
}

// Store persists ranking entries.
type Store interface {
	ReplaceCohort(ctx context.Context, cohort domain.Cohort, entries []*Entry) error
	ListByCohort(ctx context.Context, cohort domain.Cohort) ([]*Entry, error)
	PublishCohort(ctx context.Context, cohort domain.Cohort, at time.Time) ([]*Entry, error)
	IsLocked(ctx context.Context, applicationID domain.ApplicationID) (bool, error)
}

// AuditPublisher emits audit events; nil disables auditing.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the ranking engine.
type Service struct {
	rankings Store
	evals    EvaluationSource
	quotas   QuotaSource
	locker   Locker
	tx       txpkg.Runner
	auditor  AuditPublisher
	logger   *slog.Logger
	metrics  *rankmetrics.Metrics
}

// Option configures the service.
type Option func(*Service)

func WithTxRunner(runner txpkg.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *rankmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New builds the ranking engine.
func New(rankings Store, evals EvaluationSource, quotas QuotaSource, locker Locker, opts ...Option) *Service {
	s := &Service{
		rankings: rankings,
		evals:    evals,
		quotas:   quotas,
		locker:   locker,
		tx:       txpkg.NopRunner{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsLocked reports whether the application sits in a published ranking. The
// evaluation engine consults this before allowing a re-run.
func (s *Service) IsLocked(ctx context.Context, applicationID domain.ApplicationID) (bool, error) {
	return s.rankings.IsLocked(ctx, applicationID)
}

// Generate orders a cohort's completed evaluations into a fresh ranking set
// and replaces any previous unpublished set atomically. Eligible entries
// sort by composite score descending, then declared exam rank ascending,
// then submission time ascending; an exact three-way tie is refused rather
// than broken arbitrarily. Ineligible entries are carried with rank 0.
func (s *Service) Generate(ctx context.Context, cohort domain.Cohort) ([]*Entry, error) {
	start := time.Now()
	entries, err := s.generate(ctx, cohort)
	if s.metrics != nil {
		s.metrics.ObserveGenerate(err, len(entries), start)
	}
	return entries, err
}

func (s *Service) generate(ctx context.Context, cohort domain.Cohort) ([]*Entry, error) {
	if !requestcontext.Role(ctx).Satisfies(domain.RoleYGKMember) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only evaluation board members may generate rankings")
	}
	if err := cohort.Validate(); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, cohort.Key())
	if err != nil {
		if errors.Is(err, sentinel.ErrLocked) {
			return nil, dErrors.New(dErrors.CodeUnavailable, "another ranking generation is in progress for this cohort")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire cohort lock")
	}
	defer release()

	evals, err := s.evals.ListCompletedByCohort(ctx, cohort)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cohort evaluations")
	}
	if len(evals) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no completed evaluations in cohort")
	}

	q, err := s.quotas.GetForCohort(ctx, cohort)
	if err != nil {
		return nil, err
	}

	entries, err := buildEntries(cohort, evals, q.Quota, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.rankings.ReplaceCohort(txCtx, cohort, entries); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "cohort ranking is already published")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store ranking")
		}
		return s.emit(txCtx, cohort, audit.EventRankingsGenerated)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "rankings generated",
		"request_id", requestcontext.RequestID(ctx),
		"cohort", cohort.Key(),
		"entries", len(entries),
		"quota", q.Quota,
	)
	return entries, nil
}

// buildEntries partitions and orders the evaluations. Pure so the ordering
// rules are testable without stores.
func buildEntries(cohort domain.Cohort, evals []*evaluation.Evaluation, seats int, now time.Time) ([]*Entry, error) {
	var eligible, ineligible []*evaluation.Evaluation
	for _, e := range evals {
		if e.OverallEligible && e.CompositeScore != nil {
			eligible = append(eligible, e)
		} else {
			ineligible = append(ineligible, e)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return lessEvaluation(eligible[i], eligible[j])
	})
	for i := 1; i < len(eligible); i++ {
		if tied(eligible[i-1], eligible[i]) {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "cohort contains an unresolvable ranking tie")
		}
	}

	entries := make([]*Entry, 0, len(evals))
	for i, e := range eligible {
		score := *e.CompositeScore
		entries = append(entries, &Entry{
			ID:            domain.RankingID(uuid.New()),
			ApplicationID: e.ApplicationID,
			Cohort:        cohort,
			Rank:          i + 1,
			Score:         &score,
			IsPrimary:     i < seats,
			IsWaitlisted:  i >= seats,
			QuotaSnapshot: seats,
			GeneratedAt:   now,
		})
	}
	for _, e := range ineligible {
		entries = append(entries, &Entry{
			ID:            domain.RankingID(uuid.New()),
			ApplicationID: e.ApplicationID,
			Cohort:        cohort,
			Rank:          0,
			QuotaSnapshot: seats,
			GeneratedAt:   now,
		})
	}
	return entries, nil
}

// lessEvaluation orders two eligible evaluations: composite score
// descending, declared exam rank ascending, submission time ascending.
func lessEvaluation(a, b *evaluation.Evaluation) bool {
	if *a.CompositeScore != *b.CompositeScore {
		return *a.CompositeScore > *b.CompositeScore
	}
	if a.DeclaredExamRank != b.DeclaredExamRank {
		return a.DeclaredExamRank < b.DeclaredExamRank
	}
	return a.SubmittedAt.Before(b.SubmittedAt)
}

func tied(a, b *evaluation.Evaluation) bool {
	return *a.CompositeScore == *b.CompositeScore &&
		a.DeclaredExamRank == b.DeclaredExamRank &&
		a.SubmittedAt.Equal(b.SubmittedAt)
}

// Publish flips the cohort's ranking to published in one atomic step.
// Publication is one-way: a second call fails clean without mutating
// anything, and the publication event fires exactly once.
func (s *Service) Publish(ctx context.Context, cohort domain.Cohort) ([]*Entry, error) {
	entries, err := s.publish(ctx, cohort)
	if s.metrics != nil {
		s.metrics.ObservePublish(err)
	}
	return entries, err
}

func (s *Service) publish(ctx context.Context, cohort domain.Cohort) ([]*Entry, error) {
	if !requestcontext.Role(ctx).Satisfies(domain.RoleFacultyStaff) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only faculty staff may publish rankings")
	}
	if err := cohort.Validate(); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		entries, err = s.rankings.PublishCohort(txCtx, cohort, requestcontext.Now(ctx))
		if err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeNotFound, "no ranking exists for cohort")
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				return dErrors.New(dErrors.CodeConflict, "cohort ranking is already published")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish ranking")
		}
		return s.emit(txCtx, cohort, audit.EventRankingsPublished)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "rankings published",
		"request_id", requestcontext.RequestID(ctx),
		"cohort", cohort.Key(),
		"entries", len(entries),
	)
	return entries, nil
}

// List returns the cohort's ranking ordered by rank.
func (s *Service) List(ctx context.Context, cohort domain.Cohort) ([]*Entry, error) {
	if err := cohort.Validate(); err != nil {
		return nil, err
	}
	entries, err := s.rankings.ListByCohort(ctx, cohort)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no ranking exists for cohort")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ranking")
	}
	return entries, nil
}

func (s *Service) emit(ctx context.Context, cohort domain.Cohort, action audit.AuditEvent) error {
	if s.auditor == nil {
		return nil
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Cohort:    cohort.Key(),
		ActorID:   requestcontext.ActorID(ctx).String(),
		ActorRole: requestcontext.Role(ctx).String(),
		Action:    string(action),
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}
