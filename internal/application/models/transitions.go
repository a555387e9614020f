package models

import (
	"strings"
	"time"

	"transferdesk/pkg/domain"
	dErrors "transferdesk/pkg/domain-errors"
)

// Operation names a state-machine transition. Every status mutation goes
// through exactly one operation; there is no other legal way to change
// Status.
type Operation string

const (
	// OpSubmit hands the draft to the admissions office.
	OpSubmit Operation = "submit"
	// OpReview takes a submission into admissions (OIDB) review.
	OpReview Operation = "review"
	// OpReject terminates the application with a mandatory reason. Legal
	// from admissions review and from faculty routing.
	OpReject Operation = "reject"
	// OpRouteToFaculty is the admissions approve outcome.
	OpRouteToFaculty Operation = "route_to_faculty"
	// OpRouteToDepartment forwards from faculty to the target department.
	OpRouteToDepartment Operation = "route_to_department"
	// OpSetForEvaluation places the application before the evaluation board.
	OpSetForEvaluation Operation = "set_for_evaluation"
	// OpCompleteRanking marks the application ranked within its cohort.
	OpCompleteRanking Operation = "complete_ranking"
	// OpReferToBoard forwards the ranked application to the faculty board.
	OpReferToBoard Operation = "refer_to_board"
	// OpBoardDecision records the board's terminal approve/waitlist verdict.
	OpBoardDecision Operation = "board_decision"
)

// Rule is one row of the transition table: from the current status, the
// operation moves to Next and requires Role.
type Rule struct {
	Next domain.ApplicationStatus
	Role domain.ActorRole
}

// transitionTable is the single source of truth for the state machine:
// (operation, current status) → (next status, required role). Everything not
// listed is an invalid transition. OpReject is the only operation with more
// than one legal predecessor; OpBoardDecision's Next is refined by the
// decision parameter in ApplyBoardDecision.
var transitionTable = map[Operation]map[domain.ApplicationStatus]Rule{
	OpSubmit: {
		domain.StatusDraft: {Next: domain.StatusSubmitted, Role: domain.RoleStudent},
	},
	OpReview: {
		domain.StatusSubmitted: {Next: domain.StatusOIDBReview, Role: domain.RoleOIDBStaff},
	},
	OpRouteToFaculty: {
		domain.StatusOIDBReview: {Next: domain.StatusFacultyRouting, Role: domain.RoleOIDBStaff},
	},
	OpReject: {
		domain.StatusOIDBReview:     {Next: domain.StatusRejected, Role: domain.RoleOIDBStaff},
		domain.StatusFacultyRouting: {Next: domain.StatusRejected, Role: domain.RoleFacultyStaff},
	},
	OpRouteToDepartment: {
		domain.StatusFacultyRouting: {Next: domain.StatusDepartmentRouting, Role: domain.RoleFacultyStaff},
	},
	OpSetForEvaluation: {
		domain.StatusDepartmentRouting: {Next: domain.StatusYGKEvaluation, Role: domain.RoleFacultyStaff},
	},
	OpCompleteRanking: {
		domain.StatusYGKEvaluation: {Next: domain.StatusRanked, Role: domain.RoleYGKMember},
	},
	OpReferToBoard: {
		domain.StatusRanked: {Next: domain.StatusFacultyBoard, Role: domain.RoleFacultyStaff},
	},
	OpBoardDecision: {
		domain.StatusFacultyBoard: {Next: domain.StatusApproved, Role: domain.RoleFacultyStaff},
	},
}

// Operations lists every operation in the table, for exhaustiveness tests.
func Operations() []Operation {
	ops := make([]Operation, 0, len(transitionTable))
	for op := range transitionTable {
		ops = append(ops, op)
	}
	return ops
}

// RuleFor looks up the transition rule for an operation from the current
// status. Returns a conflict error when the operation is not legal there.
func RuleFor(op Operation, current domain.ApplicationStatus) (Rule, error) {
	rules, ok := transitionTable[op]
	if !ok {
		return Rule{}, dErrors.New(dErrors.CodeBadRequest, "unknown operation")
	}
	rule, ok := rules[current]
	if !ok {
		return Rule{}, dErrors.New(dErrors.CodeConflict, "invalid transition: operation "+string(op)+" is not legal from status "+current.String())
	}
	return rule, nil
}

// CanApply validates both halves of the transition contract: the application
// is in the operation's unique legal predecessor state, and the actor holds
// the authorized role.
func (a *Application) CanApply(op Operation, role domain.ActorRole) (Rule, error) {
	rule, err := RuleFor(op, a.Status)
	if err != nil {
		return Rule{}, err
	}
	if !role.Satisfies(rule.Role) {
		return Rule{}, dErrors.New(dErrors.CodeForbidden, "role "+role.String()+" may not perform "+string(op))
	}
	return rule, nil
}

// Apply executes a validated transition: sets the next status, stamps the
// stage timestamp, and appends the history record. Call CanApply first; the
// rule must come from it.
func (a *Application) Apply(op Operation, rule Rule, actorID domain.ActorID, reason string, now time.Time) {
	from := a.Status
	a.Status = rule.Next
	a.UpdatedAt = now

	stamp := func(t **time.Time) {
		if *t == nil {
			ts := now
			*t = &ts
		}
	}
	switch op {
	case OpSubmit:
		stamp(&a.SubmittedAt)
	case OpReview:
		stamp(&a.ReviewedAt)
	case OpRouteToFaculty:
		stamp(&a.FacultyRoutedAt)
	case OpRouteToDepartment:
		stamp(&a.DepartmentRoutedAt)
	case OpSetForEvaluation:
		stamp(&a.EvaluationSetAt)
	case OpCompleteRanking:
		stamp(&a.RankedAt)
	case OpReferToBoard:
		stamp(&a.BoardReferredAt)
	case OpBoardDecision:
		stamp(&a.DecidedAt)
	case OpReject:
		stamp(&a.RejectedAt)
		a.RejectionReason = reason
	}

	a.History = append(a.History, TransitionRecord{
		From:      from,
		To:        a.Status,
		Operation: op,
		ActorID:   actorID,
		Reason:    reason,
		At:        now,
	})
}

// CanReject additionally enforces the non-empty reason requirement.
func (a *Application) CanReject(role domain.ActorRole, reason string) (Rule, error) {
	if strings.TrimSpace(reason) == "" {
		return Rule{}, dErrors.New(dErrors.CodeInvalidInput, "rejection requires a non-empty reason")
	}
	return a.CanApply(OpReject, role)
}

// ApplyBoardDecision executes the terminal board verdict. The transition
// table's row for OpBoardDecision authorizes the operation; the decision
// parameter selects which terminal status is entered.
func (a *Application) ApplyBoardDecision(decision domain.BoardDecision, notes string, actorID domain.ActorID, now time.Time) {
	rule := Rule{Next: decision.TerminalStatus(), Role: domain.RoleFacultyStaff}
	a.BoardDecision = decision
	a.BoardNotes = notes
	a.Apply(OpBoardDecision, rule, actorID, "", now)
}
