// Package evaluation verifies a single application's academic record against
// department and global eligibility rules and computes its composite transfer
// score. The ranking engine consumes the completed evaluations.
package evaluation

import (
	"time"

	"transferdesk/pkg/domain"
)

// Evaluation is one verification pass over an application by the department
// evaluation board.
//
// Invariants:
//   - OverallEligible is true iff every component eligibility holds
//   - CompositeScore is present iff Completed and OverallEligible
//   - An application has at most one active Evaluation; re-running Evaluate
//     replaces it until a published ranking locks it
type Evaluation struct {
	ID            domain.EvaluationID  `json:"id"`
	ApplicationID domain.ApplicationID `json:"application_id"`
	Cohort        domain.Cohort        `json:"cohort"`

	VerifiedGPA       float64 `json:"verified_gpa"`
	VerifiedExamScore float64 `json:"verified_exam_score"`

	GPAEligible     bool `json:"is_gpa_eligible"`
	ExamEligible    bool `json:"is_exam_eligible"`
	EnglishEligible bool `json:"is_english_eligible"`
	// CustomRuleSatisfied is nil when the department has no custom rule.
	CustomRuleSatisfied *bool `json:"custom_rule_satisfied,omitempty"`
	OverallEligible     bool  `json:"is_overall_eligible"`

	CompositeScore *float64 `json:"composite_score,omitempty"`
	Notes          string   `json:"notes,omitempty"`

	Completed   bool           `json:"is_completed"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	EvaluatedBy domain.ActorID `json:"evaluated_by"`

	// Snapshots from the application at evaluation time, carried so the
	// ranking engine can order a cohort without re-reading applications.
	DeclaredExamRank int       `json:"declared_exam_rank"`
	SubmittedAt      time.Time `json:"submitted_at"`
}
