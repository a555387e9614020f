// Package handler exposes the ranking engine over HTTP. Cohorts are
// addressed in the URL as department/faculty/period.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"transferdesk/internal/ranking"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	"transferdesk/pkg/platform/httputil"
	"transferdesk/pkg/requestcontext"
)

// Service defines the ranking operations the handler exposes.
type Service interface {
	Generate(ctx context.Context, cohort domain.Cohort) ([]*ranking.Entry, error)
	Publish(ctx context.Context, cohort domain.Cohort) ([]*ranking.Entry, error)
	List(ctx context.Context, cohort domain.Cohort) ([]*ranking.Entry, error)
}

// Handler wires ranking endpoints to the ranking service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a ranking handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts ranking endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/cohorts/{departmentID}/{facultyID}/{period}/rankings", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/generate", h.HandleGenerate)
		r.Post("/publish", h.HandlePublish)
	})
}

func cohortFrom(r *http.Request) (domain.Cohort, error) {
	departmentID, err := domain.ParseDepartmentID(chi.URLParam(r, "departmentID"))
	if err != nil {
		return domain.Cohort{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "department id is invalid")
	}
	facultyID, err := domain.ParseFacultyID(chi.URLParam(r, "facultyID"))
	if err != nil {
		return domain.Cohort{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "faculty id is invalid")
	}
	period, err := domain.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		return domain.Cohort{}, err
	}
	return domain.Cohort{
		DepartmentID: departmentID,
		FacultyID:    facultyID,
		Period:       period,
	}, nil
}

// HandleGenerate handles POST .../rankings/generate.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cohort, err := cohortFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.service.Generate(ctx, cohort)
	if err != nil {
		h.logger.ErrorContext(ctx, "ranking generation failed",
			"request_id", requestcontext.RequestID(ctx),
			"cohort", cohort.Key(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// HandlePublish handles POST .../rankings/publish.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cohort, err := cohortFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.service.Publish(ctx, cohort)
	if err != nil {
		h.logger.ErrorContext(ctx, "ranking publication failed",
			"request_id", requestcontext.RequestID(ctx),
			"cohort", cohort.Key(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// HandleList handles GET .../rankings.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	cohort, err := cohortFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.service.List(r.Context(), cohort)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}
