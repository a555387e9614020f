// Package handler wires the application lifecycle endpoints to the
// application service. Routes follow the stage order of the transfer
// workflow; each staff transition is its own POST.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"transferdesk/internal/application/models"
	"transferdesk/internal/application/service"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	"transferdesk/pkg/platform/httputil"
	"transferdesk/pkg/requestcontext"
)

// Service defines the application operations the handler exposes.
type Service interface {
	CreateDraft(ctx context.Context, params service.CreateParams) (*models.Application, error)
	Get(ctx context.Context, id domain.ApplicationID) (*models.Application, error)
	ListMine(ctx context.Context) ([]*models.Application, error)
	UpdateDeclared(ctx context.Context, id domain.ApplicationID, declared models.Declared) (*models.Application, error)
	AttachDocument(ctx context.Context, id domain.ApplicationID, docType domain.DocumentType, filename string) (*models.Application, error)
	RemoveDocument(ctx context.Context, id domain.ApplicationID, docID domain.DocumentID) (*models.Application, error)
	Delete(ctx context.Context, id domain.ApplicationID) error
	Submit(ctx context.Context, id domain.ApplicationID) (*models.Application, error)
	Review(ctx context.Context, id domain.ApplicationID) (*models.Application, error)
	Reject(ctx context.Context, id domain.ApplicationID, reason string) (*models.Application, error)
	RouteToFaculty(ctx context.Context, id domain.ApplicationID) (*models.Application, error)
	RouteToDepartment(ctx context.Context, id domain.ApplicationID) (*models.Application, error)
	SetForEvaluation(ctx context.Context, id domain.ApplicationID) (*models.Application, error)
	CompleteRanking(ctx context.Context, id domain.ApplicationID) (*models.Application, error)
	ReferToBoard(ctx context.Context, id domain.ApplicationID) (*models.Application, error)
	BoardDecision(ctx context.Context, id domain.ApplicationID, decision domain.BoardDecision, notes string) (*models.Application, error)
}

// Handler wires application endpoints to the application service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an application handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts application endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleListMine)
		r.Route("/{applicationID}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Delete("/", h.HandleDelete)
			r.Put("/declared", h.HandleUpdateDeclared)
			r.Post("/documents", h.HandleAttachDocument)
			r.Delete("/documents/{documentID}", h.HandleRemoveDocument)
			r.Post("/submit", h.transition(h.service.Submit))
			r.Post("/review", h.transition(h.service.Review))
			r.Post("/reject", h.HandleReject)
			r.Post("/route-to-faculty", h.transition(h.service.RouteToFaculty))
			r.Post("/route-to-department", h.transition(h.service.RouteToDepartment))
			r.Post("/set-for-evaluation", h.transition(h.service.SetForEvaluation))
			r.Post("/complete-ranking", h.transition(h.service.CompleteRanking))
			r.Post("/refer-to-board", h.transition(h.service.ReferToBoard))
			r.Post("/board-decision", h.HandleBoardDecision)
		})
	})
}

func applicationIDFrom(r *http.Request) (domain.ApplicationID, error) {
	id, err := domain.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		return domain.ApplicationID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "application id is invalid")
	}
	return id, nil
}

// HandleCreate handles POST /applications.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	app, err := h.service.CreateDraft(ctx, service.CreateParams{
		FacultyID:    req.ParsedFacultyID(),
		DepartmentID: req.ParsedDepartmentID(),
		Period:       req.ParsedPeriod(),
		Declared:     req.Declared(),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, app)
}

// HandleGet handles GET /applications/{applicationID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := applicationIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	app, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// HandleListMine handles GET /applications, scoped to the calling student.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	apps, err := h.service.ListMine(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if apps == nil {
		apps = []*models.Application{}
	}
	httputil.WriteJSON(w, http.StatusOK, apps)
}

// HandleUpdateDeclared handles PUT /applications/{applicationID}/declared.
func (h *Handler) HandleUpdateDeclared(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := applicationIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateDeclaredRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	app, err := h.service.UpdateDeclared(ctx, id, req.Declared())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// HandleAttachDocument handles POST /applications/{applicationID}/documents.
func (h *Handler) HandleAttachDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := applicationIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AttachDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	app, err := h.service.AttachDocument(ctx, id, req.ParsedType(), req.Filename)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// HandleRemoveDocument handles DELETE /applications/{applicationID}/documents/{documentID}.
func (h *Handler) HandleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	id, err := applicationIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docID, err := domain.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "document id is invalid"))
		return
	}
	app, err := h.service.RemoveDocument(r.Context(), id, docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// HandleDelete handles DELETE /applications/{applicationID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := applicationIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transition adapts the parameterless lifecycle transitions into handlers.
func (h *Handler) transition(fn func(context.Context, domain.ApplicationID) (*models.Application, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := applicationIDFrom(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		app, err := fn(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, app)
	}
}

// HandleReject handles POST /applications/{applicationID}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := applicationIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RejectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	app, err := h.service.Reject(ctx, id, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// HandleBoardDecision handles POST /applications/{applicationID}/board-decision.
func (h *Handler) HandleBoardDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := applicationIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[BoardDecisionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	app, err := h.service.BoardDecision(ctx, id, req.ParsedDecision(), req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}
