package handler

import (
	"strings"

	"transferdesk/internal/application/models"
	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
)

// CreateRequest is the HTTP request body for POST /applications.
type CreateRequest struct {
	FacultyID    string  `json:"faculty_id"`
	DepartmentID string  `json:"department_id"`
	Period       string  `json:"period"`
	GPA          float64 `json:"declared_gpa"`
	ExamScore    float64 `json:"declared_exam_score"`
	ExamRank     int     `json:"declared_exam_rank"`
	ExamYear     int     `json:"exam_year"`

	// Parsed values (populated by Validate)
	parsedFacultyID    domain.FacultyID
	parsedDepartmentID domain.DepartmentID
	parsedPeriod       domain.Period
}

// Validate validates and parses the request.
func (r *CreateRequest) Validate() error {
	facultyID, err := domain.ParseFacultyID(strings.TrimSpace(r.FacultyID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "faculty_id is invalid")
	}
	r.parsedFacultyID = facultyID

	departmentID, err := domain.ParseDepartmentID(strings.TrimSpace(r.DepartmentID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "department_id is invalid")
	}
	r.parsedDepartmentID = departmentID

	period, err := domain.ParsePeriod(strings.TrimSpace(r.Period))
	if err != nil {
		return err
	}
	r.parsedPeriod = period

	return r.Declared().Validate()
}

// Declared returns the declared academic figures.
func (r *CreateRequest) Declared() models.Declared {
	return models.Declared{
		GPA:       r.GPA,
		ExamScore: r.ExamScore,
		ExamRank:  r.ExamRank,
		ExamYear:  r.ExamYear,
	}
}

// ParsedFacultyID returns the validated faculty ID.
func (r *CreateRequest) ParsedFacultyID() domain.FacultyID { return r.parsedFacultyID }

// ParsedDepartmentID returns the validated department ID.
func (r *CreateRequest) ParsedDepartmentID() domain.DepartmentID { return r.parsedDepartmentID }

// ParsedPeriod returns the validated period.
func (r *CreateRequest) ParsedPeriod() domain.Period { return r.parsedPeriod }

// UpdateDeclaredRequest is the HTTP request body for PUT /applications/{id}/declared.
type UpdateDeclaredRequest struct {
	GPA       float64 `json:"declared_gpa"`
	ExamScore float64 `json:"declared_exam_score"`
	ExamRank  int     `json:"declared_exam_rank"`
	ExamYear  int     `json:"exam_year"`
}

func (r *UpdateDeclaredRequest) Validate() error {
	return r.Declared().Validate()
}

func (r *UpdateDeclaredRequest) Declared() models.Declared {
	return models.Declared{
		GPA:       r.GPA,
		ExamScore: r.ExamScore,
		ExamRank:  r.ExamRank,
		ExamYear:  r.ExamYear,
	}
}

// AttachDocumentRequest is the HTTP request body for POST /applications/{id}/documents.
type AttachDocumentRequest struct {
	Type     string `json:"type"`
	Filename string `json:"filename"`

	parsedType domain.DocumentType
}

func (r *AttachDocumentRequest) Validate() error {
	docType, err := domain.ParseDocumentType(strings.TrimSpace(r.Type))
	if err != nil {
		return err
	}
	r.parsedType = docType
	if strings.TrimSpace(r.Filename) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "filename is required")
	}
	return nil
}

func (r *AttachDocumentRequest) ParsedType() domain.DocumentType { return r.parsedType }

// RejectRequest is the HTTP request body for POST /applications/{id}/reject.
type RejectRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectRequest) Validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "rejection reason is required")
	}
	return nil
}

// BoardDecisionRequest is the HTTP request body for POST /applications/{id}/board-decision.
type BoardDecisionRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`

	parsedDecision domain.BoardDecision
}

func (r *BoardDecisionRequest) Validate() error {
	decision, err := domain.ParseBoardDecision(strings.TrimSpace(r.Decision))
	if err != nil {
		return err
	}
	r.parsedDecision = decision
	return nil
}

func (r *BoardDecisionRequest) ParsedDecision() domain.BoardDecision { return r.parsedDecision }
