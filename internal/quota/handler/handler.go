// Package handler exposes quota management over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"transferdesk/internal/quota"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	"transferdesk/pkg/platform/httputil"
	"transferdesk/pkg/requestcontext"
)

// Service defines the quota operations the handler exposes.
type Service interface {
	Get(ctx context.Context, key quota.Key) (*quota.Quota, error)
	Set(ctx context.Context, key quota.Key, seats int) (*quota.Quota, error)
}

// Handler wires quota endpoints to the quota service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a quota handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts quota endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/quotas", h.HandleGet)
	r.Put("/quotas", h.HandleSet)
}

// SetRequest is the HTTP request body for PUT /quotas.
type SetRequest struct {
	DepartmentID string `json:"department_id"`
	FacultyID    string `json:"faculty_id"`
	Semester     string `json:"semester"`
	AcademicYear int    `json:"academic_year"`
	Quota        int    `json:"quota"`

	parsedKey quota.Key
}

// Validate validates and parses the request.
func (r *SetRequest) Validate() error {
	departmentID, err := domain.ParseDepartmentID(strings.TrimSpace(r.DepartmentID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "department_id is invalid")
	}
	facultyID, err := domain.ParseFacultyID(strings.TrimSpace(r.FacultyID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "faculty_id is invalid")
	}
	semester, err := domain.ParseSemester(strings.TrimSpace(r.Semester))
	if err != nil {
		return err
	}
	r.parsedKey = quota.Key{
		DepartmentID: departmentID,
		FacultyID:    facultyID,
		Semester:     semester,
		AcademicYear: r.AcademicYear,
	}
	if err := r.parsedKey.Validate(); err != nil {
		return err
	}
	if r.Quota < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "quota cannot be negative")
	}
	return nil
}

// ParsedKey returns the validated quota key.
func (r *SetRequest) ParsedKey() quota.Key { return r.parsedKey }

func keyFromQuery(r *http.Request) (quota.Key, error) {
	q := r.URL.Query()
	departmentID, err := domain.ParseDepartmentID(q.Get("department_id"))
	if err != nil {
		return quota.Key{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "department_id is invalid")
	}
	facultyID, err := domain.ParseFacultyID(q.Get("faculty_id"))
	if err != nil {
		return quota.Key{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "faculty_id is invalid")
	}
	semester, err := domain.ParseSemester(q.Get("semester"))
	if err != nil {
		return quota.Key{}, err
	}
	year, err := strconv.Atoi(q.Get("academic_year"))
	if err != nil {
		return quota.Key{}, dErrors.New(dErrors.CodeInvalidInput, "academic_year is invalid")
	}
	return quota.Key{
		DepartmentID: departmentID,
		FacultyID:    facultyID,
		Semester:     semester,
		AcademicYear: year,
	}, nil
}

// HandleGet handles GET /quotas.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q, err := h.service.Get(r.Context(), key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, q)
}

// HandleSet handles PUT /quotas.
func (h *Handler) HandleSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SetRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	q, err := h.service.Set(ctx, req.ParsedKey(), req.Quota)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, q)
}
