// Package handler exposes the admin endpoints that seed the in-process
// registries.
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"transferdesk/internal/evaluation/ports"
	"transferdesk/internal/registry"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	"transferdesk/pkg/platform/httputil"
	"transferdesk/pkg/requestcontext"
)

// Handler wires registry administration endpoints.
type Handler struct {
	requirements *registry.Requirements
	baseScores   *registry.BaseScores
	logger       *slog.Logger
}

// New constructs a registry handler.
func New(requirements *registry.Requirements, baseScores *registry.BaseScores, logger *slog.Logger) *Handler {
	return &Handler{requirements: requirements, baseScores: baseScores, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Put("/registry/requirements", h.HandlePutRequirements)
	r.Put("/registry/base-scores", h.HandlePutBaseScore)
}

// PutRequirementsRequest is the HTTP request body for PUT /registry/requirements.
type PutRequirementsRequest struct {
	DepartmentID string  `json:"department_id"`
	MinGPA       float64 `json:"min_gpa"`
	MinExamScore float64 `json:"min_exam_score"`
	MaxExamRank  int     `json:"max_exam_rank"`
	CustomRule   string  `json:"custom_rule,omitempty"`

	parsed ports.Requirements
}

// Validate validates and parses the request.
func (r *PutRequirementsRequest) Validate() error {
	departmentID, err := domain.ParseDepartmentID(strings.TrimSpace(r.DepartmentID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "department_id is invalid")
	}
	if r.MinGPA < 0 || r.MinGPA > 4 {
		return dErrors.New(dErrors.CodeInvalidInput, "min_gpa must be between 0 and 4")
	}
	if r.MinExamScore < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "min_exam_score cannot be negative")
	}
	if r.MaxExamRank < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "max_exam_rank cannot be negative")
	}
	rule := ports.CustomRule(strings.ToUpper(strings.TrimSpace(r.CustomRule)))
	switch rule {
	case ports.CustomRuleNone, ports.CustomRuleMinCourseGrade, ports.CustomRulePortfolioReview:
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "custom_rule is invalid")
	}
	r.parsed = ports.Requirements{
		DepartmentID: departmentID,
		MinGPA:       r.MinGPA,
		MinExamScore: r.MinExamScore,
		MaxExamRank:  r.MaxExamRank,
		CustomRule:   rule,
	}
	return nil
}

// PutBaseScoreRequest is the HTTP request body for PUT /registry/base-scores.
type PutBaseScoreRequest struct {
	DepartmentID string  `json:"department_id"`
	FacultyID    string  `json:"faculty_id"`
	ExamYear     int     `json:"exam_year"`
	BaseScore    float64 `json:"base_score"`

	parsedDepartmentID domain.DepartmentID
	parsedFacultyID    domain.FacultyID
}

// Validate validates and parses the request.
func (r *PutBaseScoreRequest) Validate() error {
	departmentID, err := domain.ParseDepartmentID(strings.TrimSpace(r.DepartmentID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "department_id is invalid")
	}
	r.parsedDepartmentID = departmentID
	facultyID, err := domain.ParseFacultyID(strings.TrimSpace(r.FacultyID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "faculty_id is invalid")
	}
	r.parsedFacultyID = facultyID
	if r.ExamYear < 2000 || r.ExamYear > 2100 {
		return dErrors.New(dErrors.CodeInvalidInput, "exam_year is out of range")
	}
	if r.BaseScore <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "base_score must be positive")
	}
	return nil
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if requestcontext.Role(r.Context()) != domain.RoleAdmin {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only admins may modify registries"))
		return false
	}
	return true
}

// HandlePutRequirements handles PUT /registry/requirements.
func (h *Handler) HandlePutRequirements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAdmin(w, r) {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PutRequirementsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.requirements.Put(req.parsed)
	h.logger.InfoContext(ctx, "department requirements updated",
		"request_id", requestcontext.RequestID(ctx),
		"department_id", req.parsed.DepartmentID,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandlePutBaseScore handles PUT /registry/base-scores.
func (h *Handler) HandlePutBaseScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAdmin(w, r) {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PutBaseScoreRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.baseScores.Put(req.parsedDepartmentID, req.parsedFacultyID, req.ExamYear, req.BaseScore)
	h.logger.InfoContext(ctx, "base score updated",
		"request_id", requestcontext.RequestID(ctx),
		"department_id", req.parsedDepartmentID,
		"exam_year", req.ExamYear,
	)
	w.WriteHeader(http.StatusNoContent)
}
