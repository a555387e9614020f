package domain

import dErrors "transferdesk/pkg/domain-errors"

// ApplicationStatus is the lifecycle state of a transfer application.
// Mutated only through the application state machine.
type ApplicationStatus string

const (
	StatusDraft             ApplicationStatus = "DRAFT"
	StatusSubmitted         ApplicationStatus = "SUBMITTED"
	StatusOIDBReview        ApplicationStatus = "OIDB_REVIEW"
	StatusFacultyRouting    ApplicationStatus = "FACULTY_ROUTING"
	StatusDepartmentRouting ApplicationStatus = "DEPARTMENT_ROUTING"
	StatusYGKEvaluation     ApplicationStatus = "YGK_EVALUATION"
	StatusRanked            ApplicationStatus = "RANKED"
	StatusFacultyBoard      ApplicationStatus = "FACULTY_BOARD"
	StatusApproved          ApplicationStatus = "APPROVED"
	StatusWaitlisted        ApplicationStatus = "WAITLISTED"
	StatusRejected          ApplicationStatus = "REJECTED"
)

var validStatuses = map[ApplicationStatus]bool{
	StatusDraft:             true,
	StatusSubmitted:         true,
	StatusOIDBReview:        true,
	StatusFacultyRouting:    true,
	StatusDepartmentRouting: true,
	StatusYGKEvaluation:     true,
	StatusRanked:            true,
	StatusFacultyBoard:      true,
	StatusApproved:          true,
	StatusWaitlisted:        true,
	StatusRejected:          true,
}

// ParseApplicationStatus constructs an ApplicationStatus from external input.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid application status")
	}
	return st, nil
}

func (s ApplicationStatus) IsValid() bool { return validStatuses[s] }

func (s ApplicationStatus) String() string { return string(s) }

// IsTerminal reports whether the status permits no further transitions.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusWaitlisted || s == StatusRejected
}

// AllowsDeclaredEdits reports whether the student may still edit declared
// academic figures and attach or remove documents.
func (s ApplicationStatus) AllowsDeclaredEdits() bool {
	return s == StatusDraft || s == StatusSubmitted
}
