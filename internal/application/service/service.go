// Package service implements the application lifecycle: draft management,
// the state machine transitions, and the edit/delete guards. All role and
// transition validation lives in the models package; this layer adds
// persistence, auditing, and metrics.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appmetrics "transferdesk/internal/application/metrics"
	"transferdesk/internal/application/models"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	audit "transferdesk/pkg/platform/audit"
	"transferdesk/pkg/platform/sentinel"
	txpkg "transferdesk/pkg/platform/tx"
	"transferdesk/pkg/requestcontext"
)

// Store is the persistence contract the service needs. Implemented by the
// in-memory and postgres stores.
type Store interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id domain.ApplicationID) (*models.Application, error)
	Execute(ctx context.Context, id domain.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error)
	Delete(ctx context.Context, id domain.ApplicationID, validate func(*models.Application) error) error
	AllocateNumber(ctx context.Context, period domain.Period) (int, error)
	ListByStudent(ctx context.Context, studentID domain.StudentID) ([]*models.Application, error)
}

// AuditPublisher emits audit events. Satisfied by the audit publisher; nil
// disables auditing (tests).
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the application lifecycle.
type Service struct {
	apps    Store
	tx      txpkg.Runner
	auditor AuditPublisher
	logger  *slog.Logger
	metrics *appmetrics.Metrics
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

func WithMetrics(m *appmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New builds the application service.
func New(apps Store, opts ...Option) *Service {
	s := &Service{
		apps:   apps,
		tx:     txpkg.NopRunner{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries the student's draft input.
type CreateParams struct {
	FacultyID    domain.FacultyID
	DepartmentID domain.DepartmentID
	Period       domain.Period
	Declared     models.Declared
}

// CreateDraft opens a new draft application owned by the calling student.
func (s *Service) CreateDraft(ctx context.Context, params CreateParams) (*models.Application, error) {
	if requestcontext.Role(ctx) != domain.RoleStudent {
		return nil, dErrors.New(dErrors.CodeForbidden, "only students may create applications")
	}
	studentID := domain.StudentID(requestcontext.ActorID(ctx))
	now := requestcontext.Now(ctx)

	app, err := models.NewApplication(
		domain.ApplicationID(uuid.New()), studentID,
		params.FacultyID, params.DepartmentID, params.Period,
		params.Declared, now,
	)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.apps.Create(txCtx, app); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
		}
		return s.emit(txCtx, app, audit.EventApplicationCreated, "", "")
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	return app, nil
}

// Get returns an application. Students only see their own.
func (s *Service) Get(ctx context.Context, id domain.ApplicationID) (*models.Application, error) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if requestcontext.Role(ctx) == domain.RoleStudent && !app.IsOwnedBy(requestcontext.ActorID(ctx)) {
		return nil, dErrors.New(dErrors.CodeForbidden, "application belongs to another student")
	}
	return app, nil
}

// ListMine lists the calling student's applications.
func (s *Service) ListMine(ctx context.Context) ([]*models.Application, error) {
	if requestcontext.Role(ctx) != domain.RoleStudent {
		return nil, dErrors.New(dErrors.CodeForbidden, "only students have an application list")
	}
	apps, err := s.apps.ListByStudent(ctx, domain.StudentID(requestcontext.ActorID(ctx)))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return apps, nil
}

// UpdateDeclared overwrites the declared academic figures while the edit
// guard allows it.
func (s *Service) UpdateDeclared(ctx context.Context, id domain.ApplicationID, declared models.Declared) (*models.Application, error) {
	actorID := requestcontext.ActorID(ctx)
	role := requestcontext.Role(ctx)
	now := requestcontext.Now(ctx)

	if err := declared.Validate(); err != nil {
		return nil, err
	}
	app, err := s.apps.Execute(ctx, id,
		func(a *models.Application) error {
			return a.CanEditDeclared(actorID, role)
		},
		func(a *models.Application) {
			// Input already validated above; Apply re-checks the same ranges.
			_ = a.ApplyDeclaredUpdate(declared, now)
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return app, nil
}

// AttachDocument records uploaded document metadata under the edit guard.
func (s *Service) AttachDocument(ctx context.Context, id domain.ApplicationID, docType domain.DocumentType, filename string) (*models.Application, error) {
	actorID := requestcontext.ActorID(ctx)
	role := requestcontext.Role(ctx)
	now := requestcontext.Now(ctx)
	if !docType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid document type")
	}
	if filename == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "document filename is required")
	}
	doc := models.Document{
		ID:         domain.DocumentID(uuid.New()),
		Type:       docType,
		Filename:   filename,
		UploadedAt: now,
	}

	app, err := s.apps.Execute(ctx, id,
		func(a *models.Application) error {
			return a.CanEditDeclared(actorID, role)
		},
		func(a *models.Application) {
			_ = a.ApplyDocumentAttach(doc, now)
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return app, nil
}

// RemoveDocument drops a document metadata record under the edit guard.
func (s *Service) RemoveDocument(ctx context.Context, id domain.ApplicationID, docID domain.DocumentID) (*models.Application, error) {
	actorID := requestcontext.ActorID(ctx)
	role := requestcontext.Role(ctx)
	now := requestcontext.Now(ctx)

	app, err := s.apps.Execute(ctx, id,
		func(a *models.Application) error {
			if err := a.CanEditDeclared(actorID, role); err != nil {
				return err
			}
			// Validate existence under the lock so the mutate step cannot
			// miss.
			probe := *a
			probe.Documents = append([]models.Document(nil), a.Documents...)
			return probe.ApplyDocumentRemove(docID, now)
		},
		func(a *models.Application) {
			_ = a.ApplyDocumentRemove(docID, now)
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return app, nil
}

// Delete removes a draft application.
func (s *Service) Delete(ctx context.Context, id domain.ApplicationID) error {
	actorID := requestcontext.ActorID(ctx)
	role := requestcontext.Role(ctx)

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.apps.Delete(txCtx, id, func(a *models.Application) error {
			return a.CanDelete(actorID, role)
		}); err != nil {
			return wrapStoreErr(err)
		}
		return s.emit(txCtx, &models.Application{ID: id}, audit.EventApplicationDeleted, "", "")
	})
	return err
}

// Submit hands the draft to admissions: allocates the sequential application
// number and runs the DRAFT → SUBMITTED transition.
func (s *Service) Submit(ctx context.Context, id domain.ApplicationID) (*models.Application, error) {
	start := time.Now()
	actorID := requestcontext.ActorID(ctx)
	role := requestcontext.Role(ctx)
	now := requestcontext.Now(ctx)

	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	// Allocate outside the row lock; a failed submit burns one sequence
	// number, which is acceptable for a human-readable identifier.
	seq, err := s.apps.AllocateNumber(ctx, app.Period)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate application number")
	}
	number := fmt.Sprintf("TR-%s-%04d", app.Period, seq)

	var updated *models.Application
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var rule models.Rule
		a, err := s.apps.Execute(txCtx, id,
			func(a *models.Application) error {
				r, err := a.CanApply(models.OpSubmit, role)
				if err != nil {
					return err
				}
				if !a.IsOwnedBy(actorID) {
					return dErrors.New(dErrors.CodeForbidden, "application belongs to another student")
				}
				rule = r
				return nil
			},
			func(a *models.Application) {
				a.Number = number
				a.Apply(models.OpSubmit, rule, actorID, "", now)
			},
		)
		if err != nil {
			return wrapStoreErr(err)
		}
		updated = a
		return s.emit(txCtx, a, audit.EventApplicationSubmitted, "", "")
	})
	s.observe(models.OpSubmit, err, start)
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, updated, models.OpSubmit)
	return updated, nil
}

// Review takes a submission into admissions review.
func (s *Service) Review(ctx context.Context, id domain.ApplicationID) (*models.Application, error) {
	return s.transition(ctx, id, models.OpReview, "", audit.EventApplicationReviewed)
}

// Reject terminates the application with a mandatory reason. Legal from
// admissions review and faculty routing.
func (s *Service) Reject(ctx context.Context, id domain.ApplicationID, reason string) (*models.Application, error) {
	start := time.Now()
	actorID := requestcontext.ActorID(ctx)
	role := requestcontext.Role(ctx)
	now := requestcontext.Now(ctx)

	var updated *models.Application
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var rule models.Rule
		a, err := s.apps.Execute(txCtx, id,
			func(a *models.Application) error {
				r, err := a.CanReject(role, reason)
				if err != nil {
					return err
				}
				rule = r
				return nil
			},
			func(a *models.Application) {
				a.Apply(models.OpReject, rule, actorID, reason, now)
			},
		)
		if err != nil {
			return wrapStoreErr(err)
		}
		updated = a
		return s.emit(txCtx, a, audit.EventApplicationRejected, reason, "")
	})
	s.observe(models.OpReject, err, start)
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, updated, models.OpReject)
	return updated, nil
}

// RouteToFaculty is the admissions approve outcome.
func (s *Service) RouteToFaculty(ctx context.Context, id domain.ApplicationID) (*models.Application, error) {
	return s.transition(ctx, id, models.OpRouteToFaculty, "", audit.EventRoutedToFaculty)
}

// RouteToDepartment forwards the application to the target department.
func (s *Service) RouteToDepartment(ctx context.Context, id domain.ApplicationID) (*models.Application, error) {
	return s.transition(ctx, id, models.OpRouteToDepartment, "", audit.EventRoutedToDepartment)
}

// SetForEvaluation places the application before the evaluation board.
func (s *Service) SetForEvaluation(ctx context.Context, id domain.ApplicationID) (*models.Application, error) {
	return s.transition(ctx, id, models.OpSetForEvaluation, "", audit.EventSetForEvaluation)
}

// CompleteRanking marks the application ranked within its cohort.
func (s *Service) CompleteRanking(ctx context.Context, id domain.ApplicationID) (*models.Application, error) {
	return s.transition(ctx, id, models.OpCompleteRanking, "", audit.EventRankingCompleted)
}

// ReferToBoard forwards the ranked application to the faculty board.
func (s *Service) ReferToBoard(ctx context.Context, id domain.ApplicationID) (*models.Application, error) {
	return s.transition(ctx, id, models.OpReferToBoard, "", audit.EventReferredToBoard)
}

// BoardDecision records the board's terminal approve/waitlist verdict.
func (s *Service) BoardDecision(ctx context.Context, id domain.ApplicationID, decision domain.BoardDecision, notes string) (*models.Application, error) {
	start := time.Now()
	actorID := requestcontext.ActorID(ctx)
	role := requestcontext.Role(ctx)
	now := requestcontext.Now(ctx)

	if !decision.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid board decision")
	}

	var updated *models.Application
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.apps.Execute(txCtx, id,
			func(a *models.Application) error {
				_, err := a.CanApply(models.OpBoardDecision, role)
				return err
			},
			func(a *models.Application) {
				a.ApplyBoardDecision(decision, notes, actorID, now)
			},
		)
		if err != nil {
			return wrapStoreErr(err)
		}
		updated = a
		return s.emit(txCtx, a, audit.EventBoardDecision, "", decision.String())
	})
	s.observe(models.OpBoardDecision, err, start)
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, updated, models.OpBoardDecision)
	return updated, nil
}

// transition runs a parameter-free transition end to end: table lookup, role
// check, timestamp stamp, history append, audit emit, metrics.
func (s *Service) transition(ctx context.Context, id domain.ApplicationID, op models.Operation, reason string, action audit.AuditEvent) (*models.Application, error) {
	start := time.Now()
	actorID := requestcontext.ActorID(ctx)
	role := requestcontext.Role(ctx)
	now := requestcontext.Now(ctx)

	var updated *models.Application
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var rule models.Rule
		a, err := s.apps.Execute(txCtx, id,
			func(a *models.Application) error {
				r, err := a.CanApply(op, role)
				if err != nil {
					return err
				}
				rule = r
				return nil
			},
			func(a *models.Application) {
				a.Apply(op, rule, actorID, reason, now)
			},
		)
		if err != nil {
			return wrapStoreErr(err)
		}
		updated = a
		return s.emit(txCtx, a, action, reason, "")
	})
	s.observe(op, err, start)
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, updated, op)
	return updated, nil
}

func (s *Service) emit(ctx context.Context, app *models.Application, action audit.AuditEvent, reason, decision string) error {
	if s.auditor == nil {
		return nil
	}
	event := audit.Event{
		Timestamp:     requestcontext.Now(ctx),
		ApplicationID: app.ID,
		ActorID:       requestcontext.ActorID(ctx).String(),
		ActorRole:     requestcontext.Role(ctx).String(),
		Action:        string(action),
		Reason:        reason,
		Decision:      decision,
		RequestID:     requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

func (s *Service) observe(op models.Operation, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(op), err, start)
	}
}

func (s *Service) logTransition(ctx context.Context, app *models.Application, op models.Operation) {
	s.logger.InfoContext(ctx, "application transition",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", app.ID,
		"operation", op,
		"status", app.Status,
	)
}

func wrapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "application already exists")
	default:
		return err
	}
}
