package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appmodels "transferdesk/internal/application/models"
	evalmetrics "transferdesk/internal/evaluation/metrics"
	"transferdesk/internal/evaluation/ports"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	audit "transferdesk/pkg/platform/audit"
	"transferdesk/pkg/platform/sentinel"
	txpkg "transferdesk/pkg/platform/tx"
	"transferdesk/pkg/requestcontext"
)

// ApplicationReader is the slice of the application store the engine needs.
type ApplicationReader interface {
	FindByID(ctx context.Context, id domain.ApplicationID) (*appmodels.Application, error)
}

// Store persists evaluations.
type Store interface {
	// Upsert replaces the application's active evaluation.
	Upsert(ctx context.Context, eval *Evaluation) error
	FindByApplication(ctx context.Context, applicationID domain.ApplicationID) (*Evaluation, error)
	ListCompletedByCohort(ctx context.Context, cohort domain.Cohort) ([]*Evaluation, error)
}

// AuditPublisher emits audit events; nil disables auditing.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the evaluation engine. Eligibility rules and scoring are pure
// functions; this layer adds the registry lookups, the lock check, and
// persistence.
type Service struct {
	evals        Store
	apps         ApplicationReader
	requirements ports.RequirementsRegistry
	baseScores   ports.BaseScoreRegistry
	publications ports.PublicationChecker
	tx           txpkg.Runner
	auditor      AuditPublisher
	logger       *slog.Logger
	metrics      *evalmetrics.Metrics
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

func WithMetrics(m *evalmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New builds the evaluation engine.
func New(evals Store, apps ApplicationReader, requirements ports.RequirementsRegistry, baseScores ports.BaseScoreRegistry, publications ports.PublicationChecker, opts ...Option) *Service {
	s := &Service{
		evals:        evals,
		apps:         apps,
		requirements: requirements,
		baseScores:   baseScores,
		publications: publications,
		tx:           txpkg.NopRunner{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EvaluateParams carries the board member's verified figures.
type EvaluateParams struct {
	ApplicationID     domain.ApplicationID
	VerifiedGPA       float64
	VerifiedExamScore float64
	EnglishEligible   bool
	// CustomRuleSatisfied must be set iff the department has a custom rule.
	CustomRuleSatisfied *bool
	Notes               string
}

// Evaluate runs one verification pass: applies the department's eligibility
// rules to the verified record, computes the composite score when eligible,
// and stores the completed evaluation. Re-running replaces the previous pass
// until a published ranking locks it.
func (s *Service) Evaluate(ctx context.Context, params EvaluateParams) (*Evaluation, error) {
	start := time.Now()
	eval, err := s.evaluate(ctx, params)
	if s.metrics != nil {
		s.metrics.ObserveEvaluate(err, start)
	}
	return eval, err
}

func (s *Service) evaluate(ctx context.Context, params EvaluateParams) (*Evaluation, error) {
	role := requestcontext.Role(ctx)
	if !role.Satisfies(domain.RoleYGKMember) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only evaluation board members may evaluate")
	}
	if params.VerifiedGPA < 0 || params.VerifiedGPA > 4 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "verified GPA must be between 0 and 4")
	}
	if params.VerifiedExamScore < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "verified exam score cannot be negative")
	}

	app, err := s.apps.FindByID(ctx, params.ApplicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	if app.Status != domain.StatusYGKEvaluation {
		return nil, dErrors.New(dErrors.CodeConflict, "application is not in an evaluable state")
	}

	locked, err := s.publications.IsLocked(ctx, app.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check publication state")
	}
	if locked {
		return nil, dErrors.New(dErrors.CodeConflict, "evaluation is locked by a published ranking")
	}

	req, err := s.requirements.GetRequirements(ctx, app.DepartmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "department requirements not configured")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load department requirements")
	}

	if req.CustomRule != ports.CustomRuleNone && params.CustomRuleSatisfied == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "department custom rule requires a verdict")
	}

	eval := &Evaluation{
		ApplicationID:     app.ID,
		Cohort:            app.Cohort(),
		VerifiedGPA:       params.VerifiedGPA,
		VerifiedExamScore: params.VerifiedExamScore,
		EnglishEligible:   params.EnglishEligible,
		Notes:             params.Notes,
		EvaluatedBy:       requestcontext.ActorID(ctx),
		DeclaredExamRank:  app.DeclaredExamRank,
	}
	if app.SubmittedAt != nil {
		eval.SubmittedAt = *app.SubmittedAt
	}

	eval.GPAEligible = params.VerifiedGPA >= req.MinGPA
	if req.MaxExamRank > 0 {
		eval.ExamEligible = app.DeclaredExamRank <= req.MaxExamRank
	} else {
		eval.ExamEligible = params.VerifiedExamScore >= req.MinExamScore
	}

	eval.OverallEligible = eval.GPAEligible && eval.ExamEligible && eval.EnglishEligible
	if req.CustomRule != ports.CustomRuleNone {
		eval.CustomRuleSatisfied = params.CustomRuleSatisfied
		eval.OverallEligible = eval.OverallEligible && *params.CustomRuleSatisfied
	}

	if eval.OverallEligible {
		base, err := s.baseScores.GetBaseScore(ctx, app.DepartmentID, app.FacultyID, app.ExamYear)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "program base score not configured for exam year")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load base score")
		}
		gpa100, err := GPATo100(params.VerifiedGPA)
		if err != nil {
			return nil, err
		}
		score, err := TransferScore(params.VerifiedExamScore, base, gpa100)
		if err != nil {
			return nil, err
		}
		eval.CompositeScore = &score
	}

	now := requestcontext.Now(ctx)
	eval.Completed = true
	eval.CompletedAt = &now

	// Re-evaluation keeps the existing ID so the row is a replacement, not
	// an append.
	if existing, err := s.evals.FindByApplication(ctx, app.ID); err == nil {
		eval.ID = existing.ID
	} else if errors.Is(err, sentinel.ErrNotFound) {
		eval.ID = domain.EvaluationID(uuid.New())
	} else {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load existing evaluation")
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.evals.Upsert(txCtx, eval); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store evaluation")
		}
		return s.emit(txCtx, eval)
	})
	if err != nil {
		return nil, err
	}

	if !eval.OverallEligible && s.metrics != nil {
		s.metrics.IncrementIneligible()
	}
	s.logger.InfoContext(ctx, "evaluation completed",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", eval.ApplicationID,
		"overall_eligible", eval.OverallEligible,
	)
	return eval, nil
}

// Get returns an application's active evaluation.
func (s *Service) Get(ctx context.Context, applicationID domain.ApplicationID) (*Evaluation, error) {
	eval, err := s.evals.FindByApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "evaluation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evaluation")
	}
	return eval, nil
}

func (s *Service) emit(ctx context.Context, eval *Evaluation) error {
	if s.auditor == nil {
		return nil
	}
	event := audit.Event{
		Timestamp:     requestcontext.Now(ctx),
		ApplicationID: eval.ApplicationID,
		Cohort:        eval.Cohort.Key(),
		ActorID:       requestcontext.ActorID(ctx).String(),
		ActorRole:     requestcontext.Role(ctx).String(),
		Action:        string(audit.EventEvaluationCompleted),
		RequestID:     requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}
