package audit

import (
	"time"

	"transferdesk/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: every
	// status transition, rejection, board decision, and publication. These
	// are the records an appeal or institutional audit will ask for.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility: evaluation reruns, quota edits, ranking regenerations.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category      EventCategory
	Timestamp     time.Time
	ApplicationID domain.ApplicationID
	// Cohort is the department:faculty:period key for cohort-level events
	// (ranking generation and publication) that span many applications.
	Cohort    string
	ActorID   string
	ActorRole string
	Action    string
	Reason    string
	Decision  string
	RequestID string
}

// AuditEvent names every action the service records.
type AuditEvent string

const (
	// Application lifecycle events
	EventApplicationCreated   AuditEvent = "application_created"
	EventApplicationSubmitted AuditEvent = "application_submitted"
	EventApplicationReviewed  AuditEvent = "application_reviewed"
	EventApplicationRejected  AuditEvent = "application_rejected"
	EventRoutedToFaculty      AuditEvent = "routed_to_faculty"
	EventRoutedToDepartment   AuditEvent = "routed_to_department"
	EventSetForEvaluation     AuditEvent = "set_for_evaluation"
	EventRankingCompleted     AuditEvent = "ranking_completed"
	EventReferredToBoard      AuditEvent = "referred_to_board"
	EventBoardDecision        AuditEvent = "board_decision"
	EventApplicationDeleted   AuditEvent = "application_deleted"

	// Evaluation and ranking events
	EventEvaluationCompleted AuditEvent = "evaluation_completed"
	EventRankingsGenerated   AuditEvent = "rankings_generated"
	// EventRankingsPublished is the exactly-once publication event the
	// notification subsystem consumes downstream.
	EventRankingsPublished AuditEvent = "rankings_published"

	// Configuration events
	EventQuotaUpdated AuditEvent = "quota_updated"
)

// eventCategories is the source of truth for routing events to categories.
var eventCategories = map[AuditEvent]EventCategory{
	EventApplicationCreated:   CategoryOperations,
	EventApplicationSubmitted: CategoryCompliance,
	EventApplicationReviewed:  CategoryCompliance,
	EventApplicationRejected:  CategoryCompliance,
	EventRoutedToFaculty:      CategoryCompliance,
	EventRoutedToDepartment:   CategoryCompliance,
	EventSetForEvaluation:     CategoryCompliance,
	EventRankingCompleted:     CategoryCompliance,
	EventReferredToBoard:      CategoryCompliance,
	EventBoardDecision:        CategoryCompliance,
	EventApplicationDeleted:   CategoryOperations,
	EventEvaluationCompleted:  CategoryCompliance,
	EventRankingsGenerated:    CategoryOperations,
	EventRankingsPublished:    CategoryCompliance,
	EventQuotaUpdated:         CategoryOperations,
}

// Category returns the category the event routes to. Unknown actions default
// to operations so a missing map entry never drops a compliance event
// silently into nowhere.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
