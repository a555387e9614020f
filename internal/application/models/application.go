package models

import (
	"strings"
	"time"

	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
)

// Application is the aggregate root for one transfer request.
//
// Invariants:
//   - Status changes only through Apply with a rule from the transition table
//   - Stage timestamps are append-only: set once when the stage is traversed,
//     never cleared
//   - RejectionReason is non-empty iff Status is REJECTED
//   - Declared figures and documents are mutable only in DRAFT or SUBMITTED
//   - Owned exclusively by the student until SUBMITTED; afterwards mutated
//     only by staff transitions
type Application struct {
	ID        domain.ApplicationID `json:"id"`
	StudentID domain.StudentID     `json:"student_id"`
	// Number is the human-readable application number, sequential per
	// period, assigned at submission.
	Number string `json:"number,omitempty"`

	Status       domain.ApplicationStatus `json:"status"`
	FacultyID    domain.FacultyID         `json:"faculty_id"`
	DepartmentID domain.DepartmentID      `json:"department_id"`
	Period       domain.Period            `json:"period"`

	// Declared academic figures, entered by the student and later verified
	// by the evaluation board.
	DeclaredGPA       float64 `json:"declared_gpa"`
	DeclaredExamScore float64 `json:"declared_exam_score"`
	DeclaredExamRank  int     `json:"declared_exam_rank"`
	ExamYear          int     `json:"exam_year"`

	// Stage timestamps, stamped by Apply as each stage is traversed.
	SubmittedAt        *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`
	FacultyRoutedAt    *time.Time `json:"faculty_routed_at,omitempty"`
	DepartmentRoutedAt *time.Time `json:"department_routed_at,omitempty"`
	EvaluationSetAt    *time.Time `json:"evaluation_set_at,omitempty"`
	RankedAt           *time.Time `json:"ranked_at,omitempty"`
	BoardReferredAt    *time.Time `json:"board_referred_at,omitempty"`
	DecidedAt          *time.Time `json:"decided_at,omitempty"`
	RejectedAt         *time.Time `json:"rejected_at,omitempty"`

	RejectionReason string               `json:"rejection_reason,omitempty"`
	BoardDecision   domain.BoardDecision `json:"board_decision,omitempty"`
	BoardNotes      string               `json:"board_notes,omitempty"`

	Documents []Document         `json:"documents,omitempty"`
	History   []TransitionRecord `json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is the metadata record of an uploaded supporting document. The
// bytes live in the document storage subsystem, outside this service.
type Document struct {
	ID         domain.DocumentID   `json:"id"`
	Type       domain.DocumentType `json:"type"`
	Filename   string              `json:"filename"`
	UploadedAt time.Time           `json:"uploaded_at"`
}

// TransitionRecord is one row of the append-only status history.
type TransitionRecord struct {
	From      domain.ApplicationStatus `json:"from"`
	To        domain.ApplicationStatus `json:"to"`
	Operation Operation                `json:"operation"`
	ActorID   domain.ActorID           `json:"actor_id"`
	Reason    string                   `json:"reason,omitempty"`
	At        time.Time                `json:"at"`
}

// Declared bundles the student-entered academic figures for creation and
// edits.
type Declared struct {
	GPA       float64
	ExamScore float64
	ExamRank  int
	ExamYear  int
}

// Validate checks the declared figures against their domain ranges.
func (d Declared) Validate() error {
	if d.GPA < 0 || d.GPA > 4 {
		return dErrors.New(dErrors.CodeInvalidInput, "declared GPA must be between 0 and 4")
	}
	if d.ExamScore < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "declared exam score cannot be negative")
	}
	if d.ExamRank < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "declared exam rank must be a positive rank")
	}
	if d.ExamYear < 2000 || d.ExamYear > 2100 {
		return dErrors.New(dErrors.CodeInvalidInput, "exam year is out of range")
	}
	return nil
}

// NewApplication creates a draft application owned by the student.
func NewApplication(id domain.ApplicationID, studentID domain.StudentID, facultyID domain.FacultyID, departmentID domain.DepartmentID, period domain.Period, declared Declared, now time.Time) (*Application, error) {
	if studentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "student id is required")
	}
	if facultyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "faculty id is required")
	}
	if departmentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "department id is required")
	}
	if !period.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "period is invalid")
	}
	if err := declared.Validate(); err != nil {
		return nil, err
	}
	return &Application{
		ID:                id,
		StudentID:         studentID,
		Status:            domain.StatusDraft,
		FacultyID:         facultyID,
		DepartmentID:      departmentID,
		Period:            period,
		DeclaredGPA:       declared.GPA,
		DeclaredExamScore: declared.ExamScore,
		DeclaredExamRank:  declared.ExamRank,
		ExamYear:          declared.ExamYear,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Cohort returns the ranking cohort this application belongs to.
func (a *Application) Cohort() domain.Cohort {
	return domain.Cohort{
		DepartmentID: a.DepartmentID,
		FacultyID:    a.FacultyID,
		Period:       a.Period,
	}
}

// IsOwnedBy reports whether the acting identity is the owning student.
func (a *Application) IsOwnedBy(actorID domain.ActorID) bool {
	return domain.StudentID(actorID) == a.StudentID
}

// CanEditDeclared checks the declared-field edit guard: only the owning
// student, only in DRAFT or SUBMITTED.
func (a *Application) CanEditDeclared(actorID domain.ActorID, role domain.ActorRole) error {
	if role != domain.RoleStudent || !a.IsOwnedBy(actorID) {
		return dErrors.New(dErrors.CodeForbidden, "only the owning student may edit the application")
	}
	if !a.Status.AllowsDeclaredEdits() {
		return dErrors.New(dErrors.CodeConflict, "application can no longer be edited in its current status")
	}
	return nil
}

// ApplyDeclaredUpdate overwrites the declared figures. Call CanEditDeclared
// first.
func (a *Application) ApplyDeclaredUpdate(declared Declared, now time.Time) error {
	if err := declared.Validate(); err != nil {
		return err
	}
	a.DeclaredGPA = declared.GPA
	a.DeclaredExamScore = declared.ExamScore
	a.DeclaredExamRank = declared.ExamRank
	a.ExamYear = declared.ExamYear
	a.UpdatedAt = now
	return nil
}

// ApplyDocumentAttach records uploaded document metadata. Same guard as
// declared edits; call CanEditDeclared first.
func (a *Application) ApplyDocumentAttach(doc Document, now time.Time) error {
	if !doc.Type.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid document type")
	}
	if strings.TrimSpace(doc.Filename) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "document filename is required")
	}
	a.Documents = append(a.Documents, doc)
	a.UpdatedAt = now
	return nil
}

// ApplyDocumentRemove removes a document metadata record. Same guard as
// declared edits; call CanEditDeclared first.
func (a *Application) ApplyDocumentRemove(docID domain.DocumentID, now time.Time) error {
	for i, doc := range a.Documents {
		if doc.ID == docID {
			a.Documents = append(a.Documents[:i], a.Documents[i+1:]...)
			a.UpdatedAt = now
			return nil
		}
	}
	return dErrors.New(dErrors.CodeNotFound, "document not found")
}

// CanDelete checks the deletion guard: drafts only, owner only.
func (a *Application) CanDelete(actorID domain.ActorID, role domain.ActorRole) error {
	if role != domain.RoleStudent || !a.IsOwnedBy(actorID) {
		return dErrors.New(dErrors.CodeForbidden, "only the owning student may delete the application")
	}
	if a.Status != domain.StatusDraft {
		return dErrors.New(dErrors.CodeConflict, "only draft applications can be deleted")
	}
	return nil
}
