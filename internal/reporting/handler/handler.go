// Package handler exposes the reporting read models over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"transferdesk/internal/application/models"
	"transferdesk/internal/reporting"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	audit "transferdesk/pkg/platform/audit"
	"transferdesk/pkg/platform/httputil"
)

// Service defines the reporting operations the handler exposes.
type Service interface {
	StatusCounts(ctx context.Context, departmentID domain.DepartmentID, period domain.Period) (*reporting.StatusReport, error)
	ApplicationsByStage(ctx context.Context, cohort domain.Cohort, status domain.ApplicationStatus) ([]*models.Application, error)
	AuditTrail(ctx context.Context, applicationID domain.ApplicationID) ([]audit.Event, error)
}

// Handler wires reporting endpoints to the reporting service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a reporting handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts reporting endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/reports/departments/{departmentID}/periods/{period}/status-counts", h.HandleStatusCounts)
	r.Get("/reports/cohorts/{departmentID}/{facultyID}/{period}/applications", h.HandleApplicationsByStage)
	r.Get("/reports/applications/{applicationID}/audit-trail", h.HandleAuditTrail)
}

// HandleStatusCounts handles the per-status breakdown report.
func (h *Handler) HandleStatusCounts(w http.ResponseWriter, r *http.Request) {
	departmentID, err := domain.ParseDepartmentID(chi.URLParam(r, "departmentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "department id is invalid"))
		return
	}
	period, err := domain.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	report, err := h.service.StatusCounts(r.Context(), departmentID, period)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleApplicationsByStage lists a cohort's applications filtered by the
// status query parameter.
func (h *Handler) HandleApplicationsByStage(w http.ResponseWriter, r *http.Request) {
	departmentID, err := domain.ParseDepartmentID(chi.URLParam(r, "departmentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "department id is invalid"))
		return
	}
	facultyID, err := domain.ParseFacultyID(chi.URLParam(r, "facultyID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "faculty id is invalid"))
		return
	}
	period, err := domain.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := domain.ParseApplicationStatus(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cohort := domain.Cohort{DepartmentID: departmentID, FacultyID: facultyID, Period: period}
	apps, err := h.service.ApplicationsByStage(r.Context(), cohort, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if apps == nil {
		apps = []*models.Application{}
	}
	httputil.WriteJSON(w, http.StatusOK, apps)
}

// HandleAuditTrail handles the per-application audit trail report.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	applicationID, err := domain.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "application id is invalid"))
		return
	}
	events, err := h.service.AuditTrail(r.Context(), applicationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}
