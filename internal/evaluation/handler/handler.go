// Package handler exposes the evaluation engine over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"transferdesk/internal/evaluation"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
	"transferdesk/pkg/platform/httputil"
	"transferdesk/pkg/requestcontext"
)

// Service defines the evaluation operations the handler exposes.
type Service interface {
	Evaluate(ctx context.Context, params evaluation.EvaluateParams) (*evaluation.Evaluation, error)
	Get(ctx context.Context, applicationID domain.ApplicationID) (*evaluation.Evaluation, error)
}

// Handler wires evaluation endpoints to the evaluation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an evaluation handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts evaluation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/applications/{applicationID}/evaluation", h.HandleEvaluate)
	r.Get("/applications/{applicationID}/evaluation", h.HandleGet)
}

// EvaluateRequest is the HTTP request body for the evaluation endpoint.
type EvaluateRequest struct {
	VerifiedGPA         float64 `json:"verified_gpa"`
	VerifiedExamScore   float64 `json:"verified_exam_score"`
	EnglishEligible     bool    `json:"is_english_eligible"`
	CustomRuleSatisfied *bool   `json:"custom_rule_satisfied,omitempty"`
	Notes               string  `json:"notes"`
}

// Validate checks the verified figures against their domain ranges.
func (r *EvaluateRequest) Validate() error {
	if r.VerifiedGPA < 0 || r.VerifiedGPA > 4 {
		return dErrors.New(dErrors.CodeInvalidInput, "verified_gpa must be between 0 and 4")
	}
	if r.VerifiedExamScore < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "verified_exam_score cannot be negative")
	}
	return nil
}

func applicationIDFrom(r *http.Request) (domain.ApplicationID, error) {
	id, err := domain.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		return domain.ApplicationID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "application id is invalid")
	}
	return id, nil
}

// HandleEvaluate handles POST /applications/{applicationID}/evaluation.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := applicationIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	eval, err := h.service.Evaluate(ctx, evaluation.EvaluateParams{
		ApplicationID:       id,
		VerifiedGPA:         req.VerifiedGPA,
		VerifiedExamScore:   req.VerifiedExamScore,
		EnglishEligible:     req.EnglishEligible,
		CustomRuleSatisfied: req.CustomRuleSatisfied,
		Notes:               req.Notes,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "evaluation failed",
			"request_id", requestID,
			"application_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eval)
}

// HandleGet handles GET /applications/{applicationID}/evaluation.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := applicationIDFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	eval, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eval)
}
